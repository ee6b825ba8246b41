// Package domain contains the opportunity record the roster engine references.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
)

const DefaultStage = "prospecting"

// Opportunity is a prospective sale owned by an organization.
type Opportunity struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	OwnerOrgID  snowflake.ID `gorm:"column:owner_org_id;not null;index" json:"owner_org_id"`
	CreatedBy   snowflake.ID `gorm:"column:created_by;not null" json:"created_by"`
	Stage       string       `gorm:"type:text;not null" json:"stage"`
	AmountCents *int64       `gorm:"column:amount_cents" json:"amount_cents,omitempty"`
	DeletedAt   *time.Time   `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Opportunity) TableName() string { return "opportunities" }

func (o Opportunity) Live() bool { return o.DeletedAt == nil }

// Slug is a URL-friendly rendering of the name.
func (o Opportunity) Slug() string { return slug.Make(o.Name) }

// SameDraft reports whether other carries the same caller-supplied fields.
func (o Opportunity) SameDraft(other Opportunity) bool {
	if strings.TrimSpace(o.Name) != strings.TrimSpace(other.Name) ||
		o.OwnerOrgID != other.OwnerOrgID ||
		normalizeStage(o.Stage) != normalizeStage(other.Stage) {
		return false
	}
	switch {
	case o.AmountCents == nil && other.AmountCents == nil:
		return true
	case o.AmountCents == nil || other.AmountCents == nil:
		return false
	default:
		return *o.AmountCents == *other.AmountCents
	}
}

// NormalizeStage lowercases stage and falls back to DefaultStage.
func NormalizeStage(stage string) string { return normalizeStage(stage) }

func normalizeStage(stage string) string {
	stage = strings.ToLower(strings.TrimSpace(stage))
	if stage == "" {
		return DefaultStage
	}
	return stage
}
