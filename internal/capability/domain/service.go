package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Registry answers which business roles an organization may hold. Every call takes the
// caller's *gorm.DB so the lookup runs inside the surrounding unit of work.
type Registry interface {
	HasCapability(ctx context.Context, db *gorm.DB, orgID snowflake.ID, capability string) (bool, error)
	// CanTakeRole reports whether the organization may participate in participantRole.
	CanTakeRole(ctx context.Context, db *gorm.DB, orgID snowflake.ID, participantRole string) (bool, error)
	ListCapabilities(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]string, error)
	Grant(ctx context.Context, db *gorm.DB, orgID snowflake.ID, capability string) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidCapability   = errors.New("invalid_capability")
)
