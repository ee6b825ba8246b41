package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateWithParticipants(ctx context.Context, req CreateRequest) (*CreateResponse, error)
	SyncParticipants(ctx context.Context, req SyncRequest) (*SyncResult, error)
	GetOpportunityWithParticipants(ctx context.Context, opportunityID snowflake.ID) (*OpportunityView, error)
	ValidateParticipants(ctx context.Context, inputs []Input) (*ValidationResult, error)
	BulkSync(ctx context.Context, reqs []SyncRequest) (*BulkResult, error)
}

// OpportunityDraft is the caller-supplied part of an opportunity. ID is the
// idempotency key; a zero ID lets the service pick one.
type OpportunityDraft struct {
	ID          snowflake.ID `json:"id"`
	Name        string       `json:"name"`
	OwnerOrgID  snowflake.ID `json:"ownerOrgId"`
	Stage       string       `json:"stage,omitempty"`
	AmountCents *int64       `json:"amountCents,omitempty"`
}

type CreateRequest struct {
	Opportunity  OpportunityDraft `json:"opportunity"`
	Participants []Input          `json:"participants"`
}

type CreateResponse struct {
	OpportunityID snowflake.ID `json:"opportunityId"`
	Created       bool         `json:"created"`
	Upserted      int          `json:"upserted"`
	Total         int          `json:"total"`
}

type SyncRequest struct {
	OpportunityID snowflake.ID `json:"opportunityId"`
	Participants  []Input      `json:"participants"`

	// Problem is set when the request as submitted could not be read. The sync is
	// rejected with it as a validation error.
	Problem string `json:"-"`
}

type SyncResult struct {
	Upserted int `json:"upserted"`
	Deleted  int `json:"deleted"`
	Total    int `json:"total"`
}

type OrganizationSummary struct {
	ID   snowflake.ID `json:"id"`
	Name string       `json:"name"`
}

type OpportunityView struct {
	ID           snowflake.ID        `json:"id"`
	Name         string              `json:"name"`
	Slug         string              `json:"slug"`
	Stage        string              `json:"stage"`
	AmountCents  *int64              `json:"amountCents,omitempty"`
	CreatedBy    snowflake.ID        `json:"createdBy"`
	Owner        OrganizationSummary `json:"owner"`
	Participants []ParticipantView   `json:"participants"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

type Summary struct {
	Total         int            `json:"total"`
	RoleCounts    map[string]int `json:"roleCounts"`
	PrimaryCounts map[string]int `json:"primaryCounts"`
	CustomerCount int            `json:"customerCount"`
}

type ValidationResult struct {
	Valid   bool     `json:"valid"`
	Errors  []string `json:"errors"`
	Summary Summary  `json:"summary"`
	// Rows holds the normalized participants when Valid.
	Rows []Row `json:"-"`
}

type ErrorDetail struct {
	Type      string   `json:"type"`
	Message   string   `json:"message"`
	Errors    []string `json:"errors,omitempty"`
	Invariant string   `json:"invariant,omitempty"`
}

type BulkItemResult struct {
	Index         int          `json:"index"`
	OpportunityID snowflake.ID `json:"opportunityId"`
	Success       bool         `json:"success"`
	Result        *SyncResult  `json:"result,omitempty"`
	Error         *ErrorDetail `json:"error,omitempty"`
}

type BulkResult struct {
	Items     []BulkItemResult `json:"items"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}
