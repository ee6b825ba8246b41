// Package seed loads reference organizations, capabilities and memberships owned by the
// entity-CRUD layer. It backs local setups, rosterctl and package tests.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Fixture describes reference data to ensure exists. Applying the same fixture twice is a no-op.
type Fixture struct {
	Organizations []Organization `yaml:"organizations" json:"organizations"`
	Opportunities []Opportunity  `yaml:"opportunities" json:"opportunities"`
}

type Organization struct {
	ID           snowflake.ID `yaml:"id" json:"id"`
	Name         string       `yaml:"name" json:"name"`
	Deleted      bool         `yaml:"deleted" json:"deleted"`
	Capabilities []string     `yaml:"capabilities" json:"capabilities"`
	Members      []Member     `yaml:"members" json:"members"`
}

type Member struct {
	UserID snowflake.ID `yaml:"user_id" json:"user_id"`
	Role   string       `yaml:"role" json:"role"`
}

type Opportunity struct {
	ID          snowflake.ID `yaml:"id" json:"id"`
	Name        string       `yaml:"name" json:"name"`
	OwnerOrgID  snowflake.ID `yaml:"owner_org_id" json:"owner_org_id"`
	CreatedBy   snowflake.ID `yaml:"created_by" json:"created_by"`
	Stage       string       `yaml:"stage" json:"stage"`
	AmountCents *int64       `yaml:"amount_cents" json:"amount_cents"`
	Deleted     bool         `yaml:"deleted" json:"deleted"`
}

// Apply ensures every record of the fixture exists in one transaction.
func Apply(ctx context.Context, db *gorm.DB, node *snowflake.Node, fixture Fixture) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id generator is required")
	}

	now := time.Now().UTC()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, org := range fixture.Organizations {
			if err := ensureOrganization(ctx, tx, node, org, now); err != nil {
				return fmt.Errorf("seed organization %s: %w", org.ID, err)
			}
		}
		for _, opp := range fixture.Opportunities {
			if err := ensureOpportunity(ctx, tx, opp, now); err != nil {
				return fmt.Errorf("seed opportunity %s: %w", opp.ID, err)
			}
		}
		return nil
	})
}

func ensureOrganization(ctx context.Context, tx *gorm.DB, node *snowflake.Node, org Organization, now time.Time) error {
	if org.ID == 0 || strings.TrimSpace(org.Name) == "" {
		return errors.New("organization id and name are required")
	}

	var deletedAt *time.Time
	if org.Deleted {
		deletedAt = &now
	}
	err := tx.WithContext(ctx).Exec(
		insertIfAbsent(tx, "organizations", []string{"id", "name", "deleted_at", "created_at", "updated_at"}, "id"),
		org.ID, strings.TrimSpace(org.Name), deletedAt, now, now).Error
	if err != nil {
		return err
	}

	for _, capability := range org.Capabilities {
		err := tx.WithContext(ctx).Exec(
			insertIfAbsent(tx, "organization_roles", []string{"org_id", "role", "created_at"}, "org_id", "role"),
			org.ID, strings.ToLower(strings.TrimSpace(capability)), now).Error
		if err != nil {
			return err
		}
	}

	for _, m := range org.Members {
		err := tx.WithContext(ctx).Exec(
			insertIfAbsent(tx, "organization_members", []string{"id", "org_id", "user_id", "role", "created_at"}, "org_id", "user_id"),
			node.Generate(), org.ID, m.UserID, strings.ToUpper(strings.TrimSpace(m.Role)), now).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureOpportunity(ctx context.Context, tx *gorm.DB, opp Opportunity, now time.Time) error {
	if opp.ID == 0 || opp.OwnerOrgID == 0 || strings.TrimSpace(opp.Name) == "" {
		return errors.New("opportunity id, name and owner are required")
	}
	stage := strings.TrimSpace(opp.Stage)
	if stage == "" {
		stage = "prospecting"
	}

	var deletedAt *time.Time
	if opp.Deleted {
		deletedAt = &now
	}
	return tx.WithContext(ctx).Exec(
		insertIfAbsent(tx, "opportunities",
			[]string{"id", "name", "owner_org_id", "created_by", "stage", "amount_cents", "deleted_at", "created_at", "updated_at"}, "id"),
		opp.ID, strings.TrimSpace(opp.Name), opp.OwnerOrgID, opp.CreatedBy, stage, opp.AmountCents, deletedAt, now, now).Error
}

// insertIfAbsent renders an INSERT that leaves an existing row with the same conflict key
// untouched. mysql has no ON CONFLICT, so a self-assignment on duplicate key stands in.
func insertIfAbsent(tx *gorm.DB, table string, columns []string, conflict ...string) string {
	return insertIfAbsentSQL(tx.Dialector.Name(), table, columns, conflict)
}

func insertIfAbsentSQL(dialect, table string, columns, conflict []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders)
	if dialect == "mysql" {
		return fmt.Sprintf("%s ON DUPLICATE KEY UPDATE %s = %s", stmt, conflict[0], conflict[0])
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO NOTHING", stmt, strings.Join(conflict, ", "))
}
