package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the participant store. Mutations enforce the roster invariants and
// report refusals as *ConstraintError. Callers hold the opportunity row lock.
type Repository interface {
	ListByOpportunity(ctx context.Context, db *gorm.DB, opportunityID snowflake.ID) ([]Participant, error)
	ListViews(ctx context.Context, db *gorm.DB, opportunityID snowflake.ID) ([]ParticipantView, error)
	FindByKey(ctx context.Context, db *gorm.DB, opportunityID snowflake.ID, key Key) (*Participant, error)
	CountCustomers(ctx context.Context, db *gorm.DB, opportunityID snowflake.ID) (int64, error)
	Insert(ctx context.Context, db *gorm.DB, p *Participant) error
	Update(ctx context.Context, db *gorm.DB, p *Participant) error
	Delete(ctx context.Context, db *gorm.DB, p Participant) error
	InsertEvent(ctx context.Context, db *gorm.DB, event *RosterEvent) error
}
