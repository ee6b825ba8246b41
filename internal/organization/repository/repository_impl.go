package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealroster/internal/organization/domain"
	"gorm.io/gorm"
)

type repository struct{}

func NewRepository() domain.Repository {
	return &repository{}
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, deleted_at, created_at, updated_at
		 FROM organizations WHERE id = ?`,
		id,
	).Scan(&org).Error
	if err != nil {
		return nil, err
	}
	if org.ID == 0 {
		return nil, nil
	}
	return &org, nil
}

func (r *repository) FindLiveByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]domain.Organization, error) {
	out := make(map[snowflake.ID]domain.Organization, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var orgs []domain.Organization
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, deleted_at, created_at, updated_at
		 FROM organizations WHERE id IN ? AND deleted_at IS NULL`,
		ids,
	).Scan(&orgs).Error
	if err != nil {
		return nil, err
	}
	for _, org := range orgs {
		out[org.ID] = org
	}
	return out, nil
}

func (r *repository) MemberRole(ctx context.Context, db *gorm.DB, orgID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT role
		 FROM organization_members
		 WHERE org_id = ? AND user_id = ?
		 LIMIT 1`,
		orgID,
		userID,
	).Scan(&row).Error
	if err != nil {
		return "", err
	}
	return strings.ToUpper(strings.TrimSpace(row.Role)), nil
}
