package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealroster/internal/capability/domain"
	"github.com/smallbiznis/dealroster/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Repo  domain.Repository
	Clock clock.Clock `optional:"true"`
}

type Registry struct {
	log   *zap.Logger
	repo  domain.Repository
	clock clock.Clock
}

func New(p Params) domain.Registry {
	c := p.Clock
	if c == nil {
		c = clock.New()
	}
	return &Registry{
		log:   p.Log.Named("capability.registry"),
		repo:  p.Repo,
		clock: c,
	}
}

func (r *Registry) HasCapability(ctx context.Context, db *gorm.DB, orgID snowflake.ID, capability string) (bool, error) {
	role, ok := domain.NormalizeCapability(capability)
	if !ok {
		return false, nil
	}
	if role == domain.CapabilityCustomer {
		return true, nil
	}
	if orgID == 0 {
		return false, nil
	}
	return r.repo.HasRole(ctx, db, orgID, role)
}

func (r *Registry) CanTakeRole(ctx context.Context, db *gorm.DB, orgID snowflake.ID, participantRole string) (bool, error) {
	capability, required := domain.RequiredCapability(participantRole)
	if !required {
		return true, nil
	}
	ok, err := r.HasCapability(ctx, db, orgID, capability)
	if err != nil {
		return false, err
	}
	if !ok {
		r.log.Debug("capability missing",
			zap.String("organization_id", orgID.String()),
			zap.String("capability", capability),
		)
	}
	return ok, nil
}

func (r *Registry) ListCapabilities(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]string, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	return r.repo.ListRoles(ctx, db, orgID)
}

// Grant registers a capability. Granting an existing capability is a no-op.
func (r *Registry) Grant(ctx context.Context, db *gorm.DB, orgID snowflake.ID, capability string) error {
	if orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	role, ok := domain.NormalizeCapability(capability)
	if !ok {
		return domain.ErrInvalidCapability
	}
	return r.repo.Grant(ctx, db, domain.OrganizationRole{
		OrgID:     orgID,
		Role:      role,
		CreatedAt: r.clock.Now(),
	})
}
