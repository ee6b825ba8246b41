package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Organization, error)
	// FindLiveByIDs returns the non-deleted organizations among ids, keyed by id.
	FindLiveByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]Organization, error)
	// MemberRole returns the caller's membership role in orgID, or "" when not a member.
	MemberRole(ctx context.Context, db *gorm.DB, orgID, userID snowflake.ID) (string, error)
}
