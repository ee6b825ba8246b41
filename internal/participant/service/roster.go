package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealroster/internal/callercontext"
	"github.com/smallbiznis/dealroster/internal/participant/domain"
	"gorm.io/gorm"
)

type changes struct {
	inserted int
	updated  int
	deleted  int
	total    int
}

func (c changes) upserted() int { return c.inserted + c.updated }

func (c changes) any() bool { return c.inserted+c.updated+c.deleted > 0 }

// applyRows writes rows over existing. When replace is set, existing participants missing
// from rows are deleted. Writes run in an order that never trips the primary-per-role
// index or the last-customer guard on the way to a valid final state:
//  1. delete dropped non-customer rows
//  2. demote rows losing their primary flag, including dropped customers
//  3. update changed rows and insert new ones
//  4. delete dropped customer rows
//
// Rows whose terms are unchanged are not written.
func (s *Service) applyRows(ctx context.Context, tx *gorm.DB, opportunityID snowflake.ID, caller callercontext.Caller, existing []domain.Participant, rows []domain.Row, replace bool) (changes, error) {
	now := s.clock.Now()
	result := changes{total: len(existing)}

	current := make(map[domain.Key]domain.Participant, len(existing))
	for _, p := range existing {
		current[p.Key()] = p
	}
	desired := make(map[domain.Key]struct{}, len(rows))
	for _, row := range rows {
		desired[row.Key()] = struct{}{}
	}

	var droppedOthers, droppedCustomers []domain.Participant
	if replace {
		for _, p := range existing {
			if _, keep := desired[p.Key()]; keep {
				continue
			}
			if p.Role == domain.RoleCustomer {
				droppedCustomers = append(droppedCustomers, p)
			} else {
				droppedOthers = append(droppedOthers, p)
			}
		}
	}

	for _, p := range droppedOthers {
		if err := s.repo.Delete(ctx, tx, p); err != nil {
			return result, err
		}
		result.deleted++
	}

	written := make(map[domain.Key]struct{}, len(rows))
	for _, row := range rows {
		cur, ok := current[row.Key()]
		if !ok || !cur.IsPrimary || row.IsPrimary {
			continue
		}
		if err := s.repo.Update(ctx, tx, withRow(cur, row, caller, now)); err != nil {
			return result, err
		}
		written[row.Key()] = struct{}{}
		result.updated++
	}
	for _, p := range droppedCustomers {
		if !p.IsPrimary {
			continue
		}
		demoted := p
		demoted.IsPrimary = false
		demoted.UpdatedAt = now
		demoted.UpdatedBy = caller.ID
		if err := s.repo.Update(ctx, tx, &demoted); err != nil {
			return result, err
		}
	}

	for _, row := range rows {
		if _, done := written[row.Key()]; done {
			continue
		}
		if cur, ok := current[row.Key()]; ok {
			if cur.SameTerms(row) {
				continue
			}
			if err := s.repo.Update(ctx, tx, withRow(cur, row, caller, now)); err != nil {
				return result, err
			}
			result.updated++
			continue
		}

		p := &domain.Participant{
			ID:             s.genID.Generate(),
			OpportunityID:  opportunityID,
			OrganizationID: row.OrganizationID,
			Role:           row.Role,
			IsPrimary:      row.IsPrimary,
			CommissionRate: row.CommissionRate,
			Territory:      row.Territory,
			Notes:          row.Notes,
			CreatedAt:      now,
			UpdatedAt:      now,
			CreatedBy:      caller.ID,
			UpdatedBy:      caller.ID,
		}
		if err := s.repo.Insert(ctx, tx, p); err != nil {
			return result, err
		}
		result.inserted++
	}

	for _, p := range droppedCustomers {
		if err := s.repo.Delete(ctx, tx, p); err != nil {
			return result, err
		}
		result.deleted++
	}

	result.total = len(existing) + result.inserted - result.deleted
	return result, nil
}

func withRow(cur domain.Participant, row domain.Row, caller callercontext.Caller, now time.Time) *domain.Participant {
	p := cur
	p.IsPrimary = row.IsPrimary
	p.CommissionRate = row.CommissionRate
	p.Territory = row.Territory
	p.Notes = row.Notes
	p.UpdatedAt = now
	p.UpdatedBy = caller.ID
	return &p
}

// sortParticipants orders by role priority, then primary first, then organization name,
// then id. Roles missing from priority sort after listed ones, alphabetically.
func sortParticipants(views []domain.ParticipantView, priority []string) {
	rank := make(map[string]int, len(priority))
	for i, role := range priority {
		role = strings.ToLower(strings.TrimSpace(role))
		if _, dup := rank[role]; !dup {
			rank[role] = i
		}
	}
	rankOf := func(role string) int {
		if r, ok := rank[role]; ok {
			return r
		}
		return len(priority)
	}

	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if ra, rb := rankOf(a.Role), rankOf(b.Role); ra != rb {
			return ra < rb
		}
		if a.Role != b.Role {
			return a.Role < b.Role
		}
		if a.IsPrimary != b.IsPrimary {
			return a.IsPrimary
		}
		if na, nb := strings.ToLower(a.OrganizationName), strings.ToLower(b.OrganizationName); na != nb {
			return na < nb
		}
		return a.ID < b.ID
	})
}
