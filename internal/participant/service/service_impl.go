package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealroster/internal/authorization"
	"github.com/smallbiznis/dealroster/internal/callercontext"
	"github.com/smallbiznis/dealroster/internal/clock"
	"github.com/smallbiznis/dealroster/internal/config"
	obscontext "github.com/smallbiznis/dealroster/internal/observability/context"
	obslogger "github.com/smallbiznis/dealroster/internal/observability/logger"
	"github.com/smallbiznis/dealroster/internal/observability/metrics"
	"github.com/smallbiznis/dealroster/internal/observability/tracing"
	opportunitydomain "github.com/smallbiznis/dealroster/internal/opportunity/domain"
	organizationdomain "github.com/smallbiznis/dealroster/internal/organization/domain"
	"github.com/smallbiznis/dealroster/internal/participant/domain"
	"github.com/smallbiznis/dealroster/internal/participant/validator"
	"github.com/smallbiznis/dealroster/internal/rosterlock"
	"github.com/smallbiznis/dealroster/pkg/db"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	Opportunities opportunitydomain.Repository
	Organizations organizationdomain.Repository
	Gate          authorization.Gate
	Roster        *config.RosterConfigHolder
	Metrics       *metrics.RosterMetrics `optional:"true"`
	Locker        *rosterlock.Locker     `optional:"true"`
	Clock         clock.Clock            `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	opportunities opportunitydomain.Repository
	organizations organizationdomain.Repository
	gate          authorization.Gate
	roster        *config.RosterConfigHolder
	metrics       *metrics.RosterMetrics
	locker        *rosterlock.Locker
	clock         clock.Clock
	tracer        trace.Tracer
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.New()
	}
	roster := p.Roster
	if roster == nil {
		roster = config.NewStaticRosterConfigHolder(config.DefaultRosterConfig())
	}
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("participant.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		opportunities: p.Opportunities,
		organizations: p.Organizations,
		gate:          p.Gate,
		roster:        roster,
		metrics:       p.Metrics,
		locker:        p.Locker,
		clock:         c,
		tracer:        otel.Tracer("participant.service"),
	}
}

func (s *Service) CreateWithParticipants(ctx context.Context, req domain.CreateRequest) (resp *domain.CreateResponse, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "participant.CreateWithParticipants")
	defer func() { s.finish(span, metrics.OperationCreate, start, err) }()

	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}

	draft := req.Opportunity
	var problems []string
	if strings.TrimSpace(draft.Name) == "" {
		problems = append(problems, "opportunity name is required")
	}
	if draft.OwnerOrgID == 0 {
		problems = append(problems, "opportunity ownerOrgId is required")
	}
	if len(req.Participants) == 0 {
		problems = append(problems, "at least one participant is required")
	}
	if len(problems) > 0 {
		return nil, &domain.ValidationError{Errors: problems}
	}

	oppID := draft.ID
	if oppID == 0 {
		oppID = s.genID.Generate()
	}
	ctx = obscontext.WithOpportunityID(ctx, oppID.String())
	span.SetAttributes(attribute.String("opportunity.id", oppID.String()))
	log := obslogger.WithContext(ctx, s.log)

	release, err := s.lock(ctx, oppID)
	if err != nil {
		return nil, err
	}
	defer s.unlock(ctx, oppID, release)

	now := s.clock.Now()
	candidate := opportunitydomain.Opportunity{
		ID:          oppID,
		Name:        strings.TrimSpace(draft.Name),
		OwnerOrgID:  draft.OwnerOrgID,
		CreatedBy:   caller.ID,
		Stage:       opportunitydomain.NormalizeStage(draft.Stage),
		AmountCents: draft.AmountCents,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, result, err := s.createOnce(ctx, caller, candidate, req.Participants)
	if errors.Is(err, errCreateRace) {
		// Another writer inserted the id after the lookup; a second attempt finds and locks its row.
		log.Info("opportunity created concurrently, retrying")
		created, result, err = s.createOnce(ctx, caller, candidate, req.Participants)
	}
	if errors.Is(err, errCreateRace) {
		return nil, fmt.Errorf("%w: opportunity %s was created concurrently, retry", domain.ErrConflict, oppID)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.RecordRowChanges(result.upserted(), result.deleted)
	log.Info("opportunity roster created",
		zap.Bool("created", created),
		zap.Int("upserted", result.upserted()),
		zap.Int("total", result.total),
	)
	return &domain.CreateResponse{
		OpportunityID: oppID,
		Created:       created,
		Upserted:      result.upserted(),
		Total:         result.total,
	}, nil
}

// errCreateRace marks an insert that lost to a concurrent create of the same id.
var errCreateRace = errors.New("opportunity created concurrently")

// createOnce runs one create attempt in its own transaction.
func (s *Service) createOnce(ctx context.Context, caller callercontext.Caller, candidate opportunitydomain.Opportunity, inputs []domain.Input) (created bool, result changes, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Access is settled before anything about the opportunity or its owner is revealed.
		existing, err := s.opportunities.FindForUpdate(ctx, tx, candidate.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			if err := s.gate.CanAccessOpportunity(ctx, tx, caller, *existing, authorization.ActionParticipantsWrite); err != nil {
				return gateError(err, candidate.ID)
			}
		} else if err := s.gate.CanCreateIn(ctx, tx, caller, candidate.OwnerOrgID); err != nil {
			return gateError(err, candidate.ID)
		}

		owner, err := s.organizations.FindByID(ctx, tx, candidate.OwnerOrgID)
		if err != nil {
			return err
		}
		if owner == nil || !owner.Live() {
			return fmt.Errorf("%w: organization %s does not exist", domain.ErrNotFound, candidate.OwnerOrgID)
		}

		if existing != nil {
			if !existing.Live() {
				return fmt.Errorf("%w: opportunity %s was deleted", domain.ErrConflict, candidate.ID)
			}
			if !existing.SameDraft(candidate) {
				return fmt.Errorf("%w: opportunity %s already exists with different details", domain.ErrConflict, candidate.ID)
			}
		} else {
			if err := s.opportunities.Insert(ctx, tx, &candidate); err != nil {
				if db.IsDuplicateKeyErr(err) {
					return errCreateRace
				}
				return err
			}
			created = true
		}

		rows, err := s.validate(ctx, tx, inputs)
		if err != nil {
			return err
		}
		current, err := s.repo.ListByOpportunity(ctx, tx, candidate.ID)
		if err != nil {
			return err
		}
		result, err = s.applyRows(ctx, tx, candidate.ID, caller, current, rows, false)
		if err != nil {
			return err
		}

		switch {
		case created:
			return s.recordEvent(ctx, tx, candidate.ID, domain.EventOpportunityCreated, caller, result)
		case result.any():
			return s.touchAndRecord(ctx, tx, candidate.ID, caller, result)
		}
		return nil
	})
	return created, result, err
}

func (s *Service) SyncParticipants(ctx context.Context, req domain.SyncRequest) (res *domain.SyncResult, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "participant.SyncParticipants",
		trace.WithAttributes(attribute.String("opportunity.id", req.OpportunityID.String())))
	defer func() { s.finish(span, metrics.OperationSync, start, err) }()

	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if req.Problem != "" {
		return nil, &domain.ValidationError{Errors: []string{req.Problem}}
	}
	if req.OpportunityID == 0 {
		return nil, &domain.ValidationError{Errors: []string{"opportunityId is required"}}
	}

	oppID := req.OpportunityID
	ctx = obscontext.WithOpportunityID(ctx, oppID.String())
	log := obslogger.WithContext(ctx, s.log)

	release, err := s.lock(ctx, oppID)
	if err != nil {
		return nil, err
	}
	defer s.unlock(ctx, oppID, release)

	var result changes
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		opp, err := s.opportunities.FindForUpdate(ctx, tx, oppID)
		if err != nil {
			return err
		}
		if opp == nil || !opp.Live() {
			return fmt.Errorf("%w: opportunity %s does not exist", domain.ErrNotFound, oppID)
		}
		if err := s.gate.CanAccessOpportunity(ctx, tx, caller, *opp, authorization.ActionParticipantsWrite); err != nil {
			return gateError(err, oppID)
		}

		rows, err := s.validate(ctx, tx, req.Participants)
		if err != nil {
			return err
		}
		current, err := s.repo.ListByOpportunity(ctx, tx, oppID)
		if err != nil {
			return err
		}
		result, err = s.applyRows(ctx, tx, oppID, caller, current, rows, true)
		if err != nil {
			return err
		}
		if !result.any() {
			return nil
		}
		return s.touchAndRecord(ctx, tx, oppID, caller, result)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordRowChanges(result.upserted(), result.deleted)
	log.Info("roster synced",
		zap.Int("upserted", result.upserted()),
		zap.Int("deleted", result.deleted),
		zap.Int("total", result.total),
	)
	return &domain.SyncResult{
		Upserted: result.upserted(),
		Deleted:  result.deleted,
		Total:    result.total,
	}, nil
}

func (s *Service) GetOpportunityWithParticipants(ctx context.Context, opportunityID snowflake.ID) (view *domain.OpportunityView, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "participant.GetOpportunityWithParticipants",
		trace.WithAttributes(attribute.String("opportunity.id", opportunityID.String())))
	defer func() { s.finish(span, metrics.OperationGet, start, err) }()

	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		opp, err := s.opportunities.FindByID(ctx, tx, opportunityID)
		if err != nil {
			return err
		}
		if opp == nil || !opp.Live() {
			return fmt.Errorf("%w: opportunity %s does not exist", domain.ErrNotFound, opportunityID)
		}
		if err := s.gate.CanAccessOpportunity(ctx, tx, caller, *opp, authorization.ActionParticipantsView); err != nil {
			return gateError(err, opportunityID)
		}

		owner, err := s.organizations.FindByID(ctx, tx, opp.OwnerOrgID)
		if err != nil {
			return err
		}
		participants, err := s.repo.ListViews(ctx, tx, opportunityID)
		if err != nil {
			return err
		}
		sortParticipants(participants, s.roster.Get().RolePriority)

		view = &domain.OpportunityView{
			ID:           opp.ID,
			Name:         opp.Name,
			Slug:         opp.Slug(),
			Stage:        opp.Stage,
			AmountCents:  opp.AmountCents,
			CreatedBy:    opp.CreatedBy,
			Owner:        domain.OrganizationSummary{ID: opp.OwnerOrgID},
			Participants: participants,
			CreatedAt:    opp.CreatedAt,
			UpdatedAt:    opp.UpdatedAt,
		}
		if owner != nil {
			view.Owner.Name = owner.Name
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if view.Participants == nil {
		view.Participants = []domain.ParticipantView{}
	}
	return view, nil
}

func (s *Service) ValidateParticipants(ctx context.Context, inputs []domain.Input) (res *domain.ValidationResult, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "participant.ValidateParticipants",
		trace.WithAttributes(attribute.Int("participants.count", len(inputs))))
	defer func() { s.finish(span, metrics.OperationValidate, start, err) }()

	if _, err := callerFrom(ctx); err != nil {
		return nil, err
	}
	return validator.Validate(ctx, orgLookup{repo: s.organizations, db: s.db.WithContext(ctx)}, inputs)
}

// BulkSync runs SyncParticipants per item, one transaction each and never two
// opportunity locks at once. Item failures are reported in the result; the error
// return covers the batch as a whole.
func (s *Service) BulkSync(ctx context.Context, reqs []domain.SyncRequest) (res *domain.BulkResult, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "participant.BulkSync",
		trace.WithAttributes(attribute.Int("items.count", len(reqs))))
	defer func() { s.finish(span, metrics.OperationBulkSync, start, err) }()

	if _, err := callerFrom(ctx); err != nil {
		return nil, err
	}
	if limit := s.roster.Get().BulkMaxItems; len(reqs) > limit {
		return nil, &domain.ValidationError{Errors: []string{
			fmt.Sprintf("bulk sync accepts at most %d items, got %d", limit, len(reqs)),
		}}
	}

	log := obslogger.WithContext(ctx, s.log)
	res = &domain.BulkResult{Items: make([]domain.BulkItemResult, 0, len(reqs))}
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		item := domain.BulkItemResult{Index: i, OpportunityID: req.OpportunityID}
		out, err := s.SyncParticipants(ctx, req)
		if err != nil {
			item.Error = domain.DetailOf(err)
			res.Failed++
			log.Info("bulk sync item failed",
				zap.Int("index", i),
				zap.String("opportunity_id", req.OpportunityID.String()),
				zap.String("error_kind", item.Error.Type),
			)
		} else {
			item.Success = true
			item.Result = out
			res.Succeeded++
		}
		res.Items = append(res.Items, item)
	}

	log.Info("bulk sync finished",
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (s *Service) validate(ctx context.Context, tx *gorm.DB, inputs []domain.Input) ([]domain.Row, error) {
	result, err := validator.Validate(ctx, orgLookup{repo: s.organizations, db: tx}, inputs)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, &domain.ValidationError{Errors: result.Errors}
	}
	return result.Rows, nil
}

func (s *Service) touchAndRecord(ctx context.Context, tx *gorm.DB, oppID snowflake.ID, caller callercontext.Caller, result changes) error {
	if err := s.opportunities.Touch(ctx, tx, oppID, s.clock.Now()); err != nil {
		return err
	}
	return s.recordEvent(ctx, tx, oppID, domain.EventRosterChanged, caller, result)
}

func (s *Service) recordEvent(ctx context.Context, tx *gorm.DB, oppID snowflake.ID, eventType string, caller callercontext.Caller, result changes) error {
	payload, err := json.Marshal(map[string]any{
		"opportunity_id": oppID.String(),
		"caller_id":      caller.ID.String(),
		"upserted":       result.upserted(),
		"deleted":        result.deleted,
		"total":          result.total,
	})
	if err != nil {
		return err
	}
	return s.repo.InsertEvent(ctx, tx, &domain.RosterEvent{
		ID:            s.genID.Generate(),
		OpportunityID: oppID,
		EventType:     eventType,
		Payload:       datatypes.JSON(payload),
		CreatedAt:     s.clock.Now(),
	})
}

func (s *Service) lock(ctx context.Context, oppID snowflake.ID) (rosterlock.Release, error) {
	release, err := s.locker.Acquire(ctx, oppID, s.roster.Get().LockTTL)
	if errors.Is(err, rosterlock.ErrBusy) {
		return nil, fmt.Errorf("%w: roster of opportunity %s is busy, retry", domain.ErrConflict, oppID)
	}
	return release, err
}

func (s *Service) unlock(ctx context.Context, oppID snowflake.ID, release rosterlock.Release) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		s.log.Warn("release roster lock", zap.String("opportunity_id", oppID.String()), zap.Error(err))
	}
}

// finish ends the span and records the operation outcome.
func (s *Service) finish(span trace.Span, operation string, start time.Time, err error) {
	kind := domain.KindOf(err)
	if err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, kind)
		var cerr *domain.ConstraintError
		if errors.As(err, &cerr) {
			s.metrics.RecordViolation(cerr.Invariant)
		}
	}
	span.End()
	s.metrics.ObserveOperation(operation, kind, time.Since(start))
}

func callerFrom(ctx context.Context) (callercontext.Caller, error) {
	caller, ok := callercontext.FromContext(ctx)
	if !ok {
		return callercontext.Caller{}, fmt.Errorf("%w: caller identity is required", domain.ErrUnauthenticated)
	}
	return caller, nil
}

func gateError(err error, oppID snowflake.ID) error {
	switch {
	case errors.Is(err, authorization.ErrForbidden):
		return fmt.Errorf("%w: caller may not access opportunity %s", domain.ErrForbidden, oppID)
	case errors.Is(err, authorization.ErrInvalidActor):
		return fmt.Errorf("%w: caller identity is required", domain.ErrUnauthenticated)
	}
	return err
}
