package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealroster/internal/capability/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) HasRole(ctx context.Context, db *gorm.DB, orgID snowflake.ID, role string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM organization_roles WHERE org_id = ? AND role = ?`,
		orgID,
		role,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) ListRoles(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]string, error) {
	var roles []string
	err := db.WithContext(ctx).Raw(
		`SELECT role FROM organization_roles WHERE org_id = ? ORDER BY role ASC`,
		orgID,
	).Scan(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *repo) Grant(ctx context.Context, db *gorm.DB, role domain.OrganizationRole) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&role).Error
}
