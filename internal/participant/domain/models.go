// Package domain defines participant rosters: the organizations engaged in an opportunity,
// the role each plays and the commercial terms attached.
package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	RoleCustomer    = "customer"
	RolePrincipal   = "principal"
	RoleDistributor = "distributor"
	RolePartner     = "partner"
)

// Roles lists the participant vocabulary in default presentation order.
var Roles = []string{RoleCustomer, RolePrincipal, RoleDistributor, RolePartner}

// NormalizeRole lowercases role and reports whether it is in the participant vocabulary.
func NormalizeRole(role string) (string, bool) {
	role = strings.ToLower(strings.TrimSpace(role))
	for _, r := range Roles {
		if r == role {
			return role, true
		}
	}
	return role, false
}

// Participant is one organization's involvement in one opportunity.
type Participant struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	OpportunityID  snowflake.ID `gorm:"column:opportunity_id;not null;uniqueIndex:ux_participants_opp_org_role,priority:1" json:"opportunityId"`
	OrganizationID snowflake.ID `gorm:"column:organization_id;not null;uniqueIndex:ux_participants_opp_org_role,priority:2" json:"organizationId"`
	Role           string       `gorm:"type:text;not null;uniqueIndex:ux_participants_opp_org_role,priority:3" json:"role"`
	IsPrimary      bool         `gorm:"column:is_primary;not null;default:false" json:"isPrimary"`
	CommissionRate *float64     `gorm:"column:commission_rate" json:"commissionRate,omitempty"`
	Territory      *string      `gorm:"type:text" json:"territory,omitempty"`
	Notes          *string      `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt      time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updatedAt"`
	CreatedBy      snowflake.ID `gorm:"column:created_by;not null" json:"createdBy"`
	UpdatedBy      snowflake.ID `gorm:"column:updated_by;not null" json:"updatedBy"`
}

// TableName sets the database table name.
func (Participant) TableName() string { return "opportunity_participants" }

// Key identifies a participant within its opportunity.
type Key struct {
	OrganizationID snowflake.ID
	Role           string
}

func (p Participant) Key() Key {
	return Key{OrganizationID: p.OrganizationID, Role: p.Role}
}

// SameTerms reports whether the mutable fields of p and row are equal.
func (p Participant) SameTerms(row Row) bool {
	return p.IsPrimary == row.IsPrimary &&
		equalFloat(p.CommissionRate, row.CommissionRate) &&
		equalString(p.Territory, row.Territory) &&
		equalString(p.Notes, row.Notes)
}

// Row is a validated participant input, normalized and ready to persist.
type Row struct {
	OrganizationID snowflake.ID
	Role           string
	IsPrimary      bool
	CommissionRate *float64
	Territory      *string
	Notes          *string
}

func (r Row) Key() Key {
	return Key{OrganizationID: r.OrganizationID, Role: r.Role}
}

// Input is a participant as submitted by a caller. Commission is kept raw so that
// numbers, numeric strings and malformed values can be told apart.
type Input struct {
	OrganizationID snowflake.ID    `json:"organizationId"`
	Role           string          `json:"role"`
	IsPrimary      bool            `json:"isPrimary"`
	CommissionRate json.RawMessage `json:"commissionRate,omitempty"`
	Territory      *string         `json:"territory,omitempty"`
	Notes          *string         `json:"notes,omitempty"`

	// InvalidOrganizationID holds the submitted organizationId when it could not be read
	// as an id. OrganizationID is zero in that case.
	InvalidOrganizationID string `json:"-"`
}

// ParticipantView is a participant enriched with its organization's name.
type ParticipantView struct {
	Participant
	OrganizationName string `gorm:"column:organization_name" json:"organizationName"`
}

// RosterEvent is an outbox record written when a roster changes.
type RosterEvent struct {
	ID            snowflake.ID   `gorm:"primaryKey" json:"id"`
	OpportunityID snowflake.ID   `gorm:"column:opportunity_id;not null;index" json:"opportunityId"`
	EventType     string         `gorm:"type:text;not null" json:"eventType"`
	Payload       datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	Published     bool           `gorm:"not null;default:false" json:"published"`
	CreatedAt     time.Time      `gorm:"not null" json:"createdAt"`
}

// TableName sets the database table name.
func (RosterEvent) TableName() string { return "roster_events" }

const (
	EventOpportunityCreated = "opportunity.created"
	EventRosterChanged      = "roster.changed"
)

func equalFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
