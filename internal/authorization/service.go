package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealroster/internal/callercontext"
	opportunitydomain "github.com/smallbiznis/dealroster/internal/opportunity/domain"
	"gorm.io/gorm"
)

// Gate decides whether a caller may touch an opportunity's roster. Checks read
// membership through db so they see the state of the surrounding transaction.
type Gate interface {
	CanAccessOpportunity(ctx context.Context, db *gorm.DB, caller callercontext.Caller, opp opportunitydomain.Opportunity, action string) error
	// CanCreateIn reports whether the caller may create opportunities owned by orgID.
	CanCreateIn(ctx context.Context, db *gorm.DB, caller callercontext.Caller, orgID snowflake.ID) error
}

var (
	ErrInvalidActor = errors.New("invalid_actor")
	ErrForbidden    = errors.New("forbidden")
)
