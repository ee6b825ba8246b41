package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	capabilitydomain "github.com/smallbiznis/dealroster/internal/capability/domain"
	"github.com/smallbiznis/dealroster/internal/participant/domain"
	"github.com/smallbiznis/dealroster/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const participantColumns = `id, opportunity_id, organization_id, role, is_primary, commission_rate,
	territory, notes, created_at, updated_at, created_by, updated_by`

type Params struct {
	fx.In

	Registry capabilitydomain.Registry
}

type repo struct {
	registry capabilitydomain.Registry
}

func Provide(p Params) domain.Repository {
	return &repo{registry: p.Registry}
}

func (r *repo) ListByOpportunity(ctx context.Context, conn *gorm.DB, opportunityID snowflake.ID) ([]domain.Participant, error) {
	var rows []domain.Participant
	err := conn.WithContext(ctx).Raw(
		`SELECT `+participantColumns+`
		 FROM opportunity_participants
		 WHERE opportunity_id = ?
		 ORDER BY id ASC`,
		opportunityID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListViews(ctx context.Context, conn *gorm.DB, opportunityID snowflake.ID) ([]domain.ParticipantView, error) {
	var rows []domain.ParticipantView
	err := conn.WithContext(ctx).Raw(
		`SELECT p.id, p.opportunity_id, p.organization_id, p.role, p.is_primary, p.commission_rate,
		        p.territory, p.notes, p.created_at, p.updated_at, p.created_by, p.updated_by,
		        o.name AS organization_name
		 FROM opportunity_participants p
		 JOIN organizations o ON o.id = p.organization_id
		 WHERE p.opportunity_id = ?`,
		opportunityID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) FindByKey(ctx context.Context, conn *gorm.DB, opportunityID snowflake.ID, key domain.Key) (*domain.Participant, error) {
	var row domain.Participant
	err := conn.WithContext(ctx).Raw(
		`SELECT `+participantColumns+`
		 FROM opportunity_participants
		 WHERE opportunity_id = ? AND organization_id = ? AND role = ?`,
		opportunityID,
		key.OrganizationID,
		key.Role,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) CountCustomers(ctx context.Context, conn *gorm.DB, opportunityID snowflake.ID) (int64, error) {
	var count int64
	err := conn.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM opportunity_participants WHERE opportunity_id = ? AND role = ?`,
		opportunityID,
		domain.RoleCustomer,
	).Scan(&count).Error
	return count, err
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, p *domain.Participant) error {
	if err := r.checkCapability(ctx, conn, p); err != nil {
		return err
	}
	err := conn.WithContext(ctx).Exec(
		`INSERT INTO opportunity_participants (`+participantColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.OpportunityID,
		p.OrganizationID,
		p.Role,
		p.IsPrimary,
		p.CommissionRate,
		p.Territory,
		p.Notes,
		p.CreatedAt,
		p.UpdatedAt,
		p.CreatedBy,
		p.UpdatedBy,
	).Error
	return classify(err, *p)
}

// Update replaces the mutable fields of an existing row. Moving the last customer to
// another role is refused.
func (r *repo) Update(ctx context.Context, conn *gorm.DB, p *domain.Participant) error {
	var current struct {
		Role string `gorm:"column:role"`
	}
	err := conn.WithContext(ctx).Raw(
		`SELECT role FROM opportunity_participants WHERE id = ?`,
		p.ID,
	).Scan(&current).Error
	if err != nil {
		return err
	}
	if current.Role == "" {
		return domain.ErrNotFound
	}
	if current.Role == domain.RoleCustomer && p.Role != domain.RoleCustomer {
		if err := r.checkNotLastCustomer(ctx, conn, p.OpportunityID); err != nil {
			return err
		}
	}
	if err := r.checkCapability(ctx, conn, p); err != nil {
		return err
	}

	err = conn.WithContext(ctx).Exec(
		`UPDATE opportunity_participants
		 SET role = ?, is_primary = ?, commission_rate = ?, territory = ?, notes = ?,
		     updated_at = ?, updated_by = ?
		 WHERE id = ?`,
		p.Role,
		p.IsPrimary,
		p.CommissionRate,
		p.Territory,
		p.Notes,
		p.UpdatedAt,
		p.UpdatedBy,
		p.ID,
	).Error
	return classify(err, *p)
}

// Delete removes a participant unless it is the opportunity's last customer.
func (r *repo) Delete(ctx context.Context, conn *gorm.DB, p domain.Participant) error {
	if p.Role == domain.RoleCustomer {
		if err := r.checkNotLastCustomer(ctx, conn, p.OpportunityID); err != nil {
			return err
		}
	}
	return conn.WithContext(ctx).Exec(
		`DELETE FROM opportunity_participants WHERE id = ?`,
		p.ID,
	).Error
}

func (r *repo) InsertEvent(ctx context.Context, conn *gorm.DB, event *domain.RosterEvent) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO roster_events (id, opportunity_id, event_type, payload, published, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.OpportunityID,
		event.EventType,
		event.Payload,
		event.Published,
		event.CreatedAt,
	).Error
}

func (r *repo) checkNotLastCustomer(ctx context.Context, conn *gorm.DB, opportunityID snowflake.ID) error {
	count, err := r.CountCustomers(ctx, conn, opportunityID)
	if err != nil {
		return err
	}
	if count <= 1 {
		return &domain.ConstraintError{
			Invariant: domain.InvariantCustomerNonOrphan,
			Message:   "an opportunity must keep at least one customer participant",
		}
	}
	return nil
}

func (r *repo) checkCapability(ctx context.Context, conn *gorm.DB, p *domain.Participant) error {
	if r.registry == nil {
		return errors.New("capability registry is required")
	}
	ok, err := r.registry.CanTakeRole(ctx, conn, p.OrganizationID, p.Role)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.ConstraintError{
			Invariant: domain.InvariantRoleCapability,
			Message:   fmt.Sprintf("organization %s is not registered as %s", p.OrganizationID, p.Role),
		}
	}
	return nil
}

// classify turns driver constraint failures into *domain.ConstraintError.
func classify(err error, p domain.Participant) error {
	if err == nil {
		return nil
	}
	v, ok := db.ClassifyViolation(err)
	if !ok {
		return err
	}

	name := strings.ToLower(v.Constraint)
	switch v.Kind {
	case db.ViolationUnique:
		if primaryPerRole(name) {
			return &domain.ConstraintError{
				Invariant:  domain.InvariantPrimaryPerRole,
				Constraint: v.Constraint,
				Message:    fmt.Sprintf("only one primary %s allowed per opportunity", p.Role),
			}
		}
		return &domain.ConstraintError{
			Invariant:  domain.InvariantUniqueness,
			Constraint: v.Constraint,
			Message:    fmt.Sprintf("organization %s already participates as %s", p.OrganizationID, p.Role),
		}
	case db.ViolationCheck:
		if strings.Contains(name, "commission") {
			return &domain.ConstraintError{
				Invariant:  domain.InvariantCommissionBounds,
				Constraint: v.Constraint,
				Message:    "commission rate must be between 0 and 1",
			}
		}
		return &domain.ConstraintError{
			Constraint: v.Constraint,
			Message:    fmt.Sprintf("participant rejected by %s", v.Constraint),
		}
	case db.ViolationForeignKey:
		return fmt.Errorf("participant references a missing record: %w", domain.ErrNotFound)
	}
	return err
}

// primaryPerRole recognises the partial unique index by name (postgres, mysql) or by
// its column list (sqlite reports columns, not index names).
func primaryPerRole(constraint string) bool {
	if strings.Contains(constraint, "primary_per_role") {
		return true
	}
	return strings.Contains(constraint, "opportunity_participants.role") &&
		!strings.Contains(constraint, "organization_id")
}
