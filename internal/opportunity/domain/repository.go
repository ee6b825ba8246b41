package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, opp *Opportunity) error
	// FindByID returns the opportunity including soft-deleted rows, or nil when absent.
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Opportunity, error)
	// FindForUpdate is FindByID holding a row lock until the transaction ends.
	FindForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Opportunity, error)
	// Touch sets updated_at to at.
	Touch(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}
