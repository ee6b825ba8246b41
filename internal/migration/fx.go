package migration

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/dealroster/internal/config"
	"github.com/smallbiznis/dealroster/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.RunMigrations {
			log.Info("migrations disabled")
			return nil
		}
		return Apply(conn, cfg.Database.Type)
	}),
)

// Apply brings the schema up to date for the given database type.
func Apply(conn *gorm.DB, dbType string) error {
	switch strings.ToLower(strings.TrimSpace(dbType)) {
	case db.TypePostgres:
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	case db.TypeMySQL:
		return ApplyMySQL(conn)
	case db.TypeSQLite:
		return ApplySQLite(conn)
	default:
		return fmt.Errorf("no migrations shipped for database type %q", dbType)
	}
}
