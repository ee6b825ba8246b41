package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealroster/internal/opportunity/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, opp *domain.Opportunity) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO opportunities (id, name, owner_org_id, created_by, stage, amount_cents, deleted_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		opp.ID,
		opp.Name,
		opp.OwnerOrgID,
		opp.CreatedBy,
		opp.Stage,
		opp.AmountCents,
		opp.DeletedAt,
		opp.CreatedAt,
		opp.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Opportunity, error) {
	var opp domain.Opportunity
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, owner_org_id, created_by, stage, amount_cents, deleted_at, created_at, updated_at
		 FROM opportunities WHERE id = ?`,
		id,
	).Scan(&opp).Error
	if err != nil {
		return nil, err
	}
	if opp.ID == 0 {
		return nil, nil
	}
	return &opp, nil
}

func (r *repo) FindForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Opportunity, error) {
	var opps []domain.Opportunity
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&opps).Error
	if err != nil {
		return nil, err
	}
	if len(opps) == 0 {
		return nil, nil
	}
	return &opps[0], nil
}

func (r *repo) Touch(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE opportunities SET updated_at = ? WHERE id = ?`,
		at.UTC(),
		id,
	).Error
}
