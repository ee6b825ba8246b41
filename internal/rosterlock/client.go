package rosterlock

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/dealroster/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Dial returns a client for the configured redis, or nil when REDIS_ADDR is empty.
func Dial(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func NewClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	client := Dial(cfg)
	if client == nil {
		log.Info("redis not configured, roster lock disabled")
		return nil
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}
