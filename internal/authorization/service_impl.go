package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/dealroster/internal/callercontext"
	opportunitydomain "github.com/smallbiznis/dealroster/internal/opportunity/domain"
	organizationdomain "github.com/smallbiznis/dealroster/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const ObjectOpportunity = "opportunity"

const (
	ActionOpportunityCreate = "opportunity.create"
	ActionParticipantsView  = "participants.view"
	ActionParticipantsWrite = "participants.write"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	Orgs     organizationdomain.Repository
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	orgs     organizationdomain.Repository

	// mu holds a grouping in place until the check that installed it has been enforced.
	mu sync.Mutex
}

// NewEnforcer loads stored policies and adds the built-in roster policies. Auto-save is
// switched off afterwards: groupings are rebuilt from organization_members on every
// check and never written back through the adapter.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(false)
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Gate {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		orgs:     p.Orgs,
	}
}

func (s *ServiceImpl) CanAccessOpportunity(ctx context.Context, db *gorm.DB, caller callercontext.Caller, opp opportunitydomain.Opportunity, action string) error {
	if caller.ID == 0 {
		return ErrInvalidActor
	}
	if caller.IsAdmin {
		return nil
	}
	if opp.CreatedBy != 0 && opp.CreatedBy == caller.ID {
		return nil
	}
	if err := s.authorize(ctx, db, caller.ID, opp.OwnerOrgID, action); err != nil {
		s.log.Info("roster access denied",
			zap.String("caller_id", caller.ID.String()),
			zap.String("opportunity_id", opp.ID.String()),
			zap.String("action", action),
		)
		return err
	}
	return nil
}

func (s *ServiceImpl) CanCreateIn(ctx context.Context, db *gorm.DB, caller callercontext.Caller, orgID snowflake.ID) error {
	if caller.ID == 0 {
		return ErrInvalidActor
	}
	if caller.IsAdmin {
		return nil
	}
	return s.authorize(ctx, db, caller.ID, orgID, ActionOpportunityCreate)
}

func (s *ServiceImpl) authorize(ctx context.Context, db *gorm.DB, userID, orgID snowflake.ID, action string) error {
	if orgID == 0 {
		return ErrForbidden
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrForbidden
	}

	role, err := s.orgs.MemberRole(ctx, db, orgID, userID)
	if err != nil {
		return err
	}
	if role == "" {
		return ErrForbidden
	}

	subject := fmt.Sprintf("user:%s", userID)
	roleName := fmt.Sprintf("role:%s", strings.ToLower(role))
	domain := fmt.Sprintf("org:%s", orgID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, ObjectOpportunity, action)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}

// ensureGrouping makes roleName the only role of subject in domain.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
				return fmt.Errorf("remove stale grouping %v: %w", rule, err)
			}
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Viewer permissions (read-only)
		{"role:viewer", ObjectOpportunity, ActionParticipantsView},

		// Member permissions
		{"role:member", ObjectOpportunity, ActionParticipantsView},
		{"role:member", ObjectOpportunity, ActionParticipantsWrite},
		{"role:member", ObjectOpportunity, ActionOpportunityCreate},

		// Admin permissions
		{"role:admin", ObjectOpportunity, ActionParticipantsView},
		{"role:admin", ObjectOpportunity, ActionParticipantsWrite},
		{"role:admin", ObjectOpportunity, ActionOpportunityCreate},

		// Owner permissions
		{"role:owner", ObjectOpportunity, ActionParticipantsView},
		{"role:owner", ObjectOpportunity, ActionParticipantsWrite},
		{"role:owner", ObjectOpportunity, ActionOpportunityCreate},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
