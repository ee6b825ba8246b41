// Package validator checks a proposed participant batch without touching the roster.
// Every problem in the batch is reported, not only the first.
package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealroster/internal/participant/domain"
)

// OrganizationLookup resolves which organization ids refer to live organizations.
type OrganizationLookup interface {
	LiveOrganizations(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]struct{}, error)
}

// Validate checks inputs. A nil lookup treats every organization as live. The error
// return is reserved for lookup failures; rule violations land in Result.Errors.
func Validate(ctx context.Context, lookup OrganizationLookup, inputs []domain.Input) (*domain.ValidationResult, error) {
	result := &domain.ValidationResult{
		Errors: []string{},
		Summary: domain.Summary{
			Total:         len(inputs),
			RoleCounts:    map[string]int{},
			PrimaryCounts: map[string]int{},
		},
	}

	live, err := liveSet(ctx, lookup, inputs)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.Row, 0, len(inputs))
	seen := make(map[domain.Key]int, len(inputs))
	for i, in := range inputs {
		n := i + 1

		missing := false
		switch {
		case in.InvalidOrganizationID != "":
			result.Errors = append(result.Errors, fmt.Sprintf(
				"row %d: organizationId %q is not a valid id", n, in.InvalidOrganizationID))
			missing = true
		case in.OrganizationID == 0:
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: organizationId is required", n))
			missing = true
		}
		if strings.TrimSpace(in.Role) == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: role is required", n))
			missing = true
		}
		if missing {
			continue
		}

		role, ok := domain.NormalizeRole(in.Role)
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"row %d: role %q is not one of %s", n, in.Role, strings.Join(domain.Roles, ", ")))
			continue
		}

		if live != nil {
			if _, ok := live[in.OrganizationID]; !ok {
				result.Errors = append(result.Errors, fmt.Sprintf(
					"row %d: organization %s does not exist", n, in.OrganizationID))
			}
		}

		result.Summary.RoleCounts[role]++
		if in.IsPrimary {
			result.Summary.PrimaryCounts[role]++
		}

		key := domain.Key{OrganizationID: in.OrganizationID, Role: role}
		if first, dup := seen[key]; dup {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"row %d: organization %s already listed as %s in row %d", n, in.OrganizationID, role, first))
		} else {
			seen[key] = n
		}

		rate, msg := parseCommission(in.CommissionRate)
		if msg != "" {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %s", n, msg))
		}

		rows = append(rows, domain.Row{
			OrganizationID: in.OrganizationID,
			Role:           role,
			IsPrimary:      in.IsPrimary,
			CommissionRate: rate,
			Territory:      trimmed(in.Territory),
			Notes:          trimmed(in.Notes),
		})
	}

	result.Summary.CustomerCount = result.Summary.RoleCounts[domain.RoleCustomer]
	if result.Summary.CustomerCount == 0 {
		result.Errors = append(result.Errors, "at least one customer participant is required")
	}
	for _, role := range domain.Roles {
		if result.Summary.PrimaryCounts[role] > 1 {
			result.Errors = append(result.Errors, fmt.Sprintf("only one primary %s allowed", role))
		}
	}

	result.Valid = len(result.Errors) == 0
	if result.Valid {
		result.Rows = rows
	}
	return result, nil
}

// parseCommission accepts a JSON number or numeric string. It returns an error
// message for malformed or out-of-range values.
func parseCommission(raw json.RawMessage) (*float64, string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ""
	}

	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, "commissionRate is not a number"
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, ""
		}
	} else {
		text = string(raw)
	}

	rate, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, "commissionRate is not a number"
	}
	if rate < 0 || rate > 1 {
		return nil, fmt.Sprintf("commissionRate %s must be between 0 and 1", text)
	}
	return &rate, ""
}

func liveSet(ctx context.Context, lookup OrganizationLookup, inputs []domain.Input) (map[snowflake.ID]struct{}, error) {
	if lookup == nil {
		return nil, nil
	}
	ids := make([]snowflake.ID, 0, len(inputs))
	seen := make(map[snowflake.ID]struct{}, len(inputs))
	for _, in := range inputs {
		if in.OrganizationID == 0 {
			continue
		}
		if _, ok := seen[in.OrganizationID]; ok {
			continue
		}
		seen[in.OrganizationID] = struct{}{}
		ids = append(ids, in.OrganizationID)
	}
	live, err := lookup.LiveOrganizations(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup organizations: %w", err)
	}
	if live == nil {
		live = map[snowflake.ID]struct{}{}
	}
	return live, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
