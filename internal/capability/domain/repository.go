package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	HasRole(ctx context.Context, db *gorm.DB, orgID snowflake.ID, role string) (bool, error)
	ListRoles(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]string, error)
	Grant(ctx context.Context, db *gorm.DB, role OrganizationRole) error
}
