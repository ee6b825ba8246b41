// Package testutil wires in-memory databases and reference data for package tests.
package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealroster/internal/migration"
	"github.com/smallbiznis/dealroster/internal/seed"
	"github.com/smallbiznis/dealroster/pkg/db"
	"gorm.io/gorm"
)

// NewDB returns an isolated sqlite database with the roster schema applied.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := migration.ApplySQLite(conn); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

var (
	nodeOnce sync.Once
	node     *snowflake.Node
	nodeErr  error
)

// Node returns a process-wide id generator so ids stay unique across helpers.
func Node(t testing.TB) *snowflake.Node {
	t.Helper()

	nodeOnce.Do(func() {
		node, nodeErr = snowflake.NewNode(1)
	})
	if nodeErr != nil {
		t.Fatalf("snowflake node: %v", nodeErr)
	}
	return node
}

// Seed applies fixture and fails the test on error.
func Seed(t testing.TB, conn *gorm.DB, fixture seed.Fixture) {
	t.Helper()

	if err := seed.Apply(context.Background(), conn, Node(t), fixture); err != nil {
		t.Fatalf("seed: %v", err)
	}
}
