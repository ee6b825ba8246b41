package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealroster/internal/authorization"
	"github.com/smallbiznis/dealroster/internal/callercontext"
	capabilityrepository "github.com/smallbiznis/dealroster/internal/capability/repository"
	capabilityservice "github.com/smallbiznis/dealroster/internal/capability/service"
	"github.com/smallbiznis/dealroster/internal/config"
	"github.com/smallbiznis/dealroster/internal/logger"
	"github.com/smallbiznis/dealroster/internal/migration"
	opportunityrepository "github.com/smallbiznis/dealroster/internal/opportunity/repository"
	organizationrepository "github.com/smallbiznis/dealroster/internal/organization/repository"
	participantdomain "github.com/smallbiznis/dealroster/internal/participant/domain"
	participantrepository "github.com/smallbiznis/dealroster/internal/participant/repository"
	participantservice "github.com/smallbiznis/dealroster/internal/participant/service"
	"github.com/smallbiznis/dealroster/internal/rosterlock"
	"github.com/smallbiznis/dealroster/pkg/db"
	"gorm.io/gorm"
)

// engine is the roster stack wired by hand, without the fx graph of the API server.
type engine struct {
	cfg    config.Config
	db     *gorm.DB
	node   *snowflake.Node
	roster participantdomain.Service
	close  func()
}

func openEngine(opts *RootOptions) (*engine, error) {
	cfg := config.Load()

	log, err := logger.New(opts.LogLevel, "console")
	if err != nil {
		return nil, err
	}

	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	closers := []func(){func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		_ = log.Sync()
	}

	if !opts.SkipSetup {
		if err := migration.Apply(conn, cfg.Database.Type); err != nil {
			closeAll()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}

	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		closeAll()
		return nil, err
	}

	rosterCfg, err := config.NewRosterConfigHolder(cfg, log)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("load roster config: %w", err)
	}

	redisClient := rosterlock.Dial(cfg)
	if redisClient != nil {
		closers = append(closers, func() { _ = redisClient.Close() })
	}

	enforcer, err := authorization.NewEnforcer(conn)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("load authorization policies: %w", err)
	}

	orgs := organizationrepository.NewRepository()
	registry := capabilityservice.New(capabilityservice.Params{Log: log, Repo: capabilityrepository.Provide()})
	roster := participantservice.New(participantservice.Params{
		DB:            conn,
		Log:           log,
		GenID:         node,
		Repo:          participantrepository.Provide(participantrepository.Params{Registry: registry}),
		Opportunities: opportunityrepository.Provide(),
		Organizations: orgs,
		Gate:          authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer, Orgs: orgs}),
		Roster:        rosterCfg,
		Locker:        rosterlock.NewLocker(redisClient),
	})

	return &engine{
		cfg:    cfg,
		db:     conn,
		node:   node,
		roster: roster,
		close:  closeAll,
	}, nil
}

// callerContext attributes roster operations to the --caller-id flag.
func callerContext(ctx context.Context, opts *RootOptions) (context.Context, error) {
	if opts.CallerID <= 0 {
		return nil, errors.New("--caller-id is required")
	}
	return callercontext.WithCaller(ctx, callercontext.Caller{
		ID:      snowflake.ID(opts.CallerID),
		IsAdmin: opts.Admin,
	}), nil
}
