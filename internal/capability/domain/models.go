// Package domain contains the organization capability vocabulary and its persistence model.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	CapabilityPrincipal   = "principal"
	CapabilityDistributor = "distributor"
	CapabilityCustomer    = "customer"
	CapabilityProspect    = "prospect"
	CapabilityVendor      = "vendor"
)

// OrganizationRole grants an organization a business capability.
type OrganizationRole struct {
	OrgID     snowflake.ID `gorm:"primaryKey;column:org_id" json:"organization_id"`
	Role      string       `gorm:"primaryKey;type:text" json:"role"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (OrganizationRole) TableName() string { return "organization_roles" }

// NormalizeCapability lowercases a capability name and reports whether it is in the vocabulary.
func NormalizeCapability(value string) (string, bool) {
	role := strings.ToLower(strings.TrimSpace(value))
	switch role {
	case CapabilityPrincipal, CapabilityDistributor, CapabilityCustomer, CapabilityProspect, CapabilityVendor:
		return role, true
	default:
		return role, false
	}
}

// RequiredCapability returns the capability an organization must hold to take a participant role.
// Customer and partner need none: every organization may buy, and the capability vocabulary has
// no partner entry to hold.
func RequiredCapability(participantRole string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(participantRole)) {
	case "principal":
		return CapabilityPrincipal, true
	case "distributor":
		return CapabilityDistributor, true
	default:
		return "", false
	}
}
