package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// RosterConfig tunes the participant engine without a redeploy.
type RosterConfig struct {
	// RolePriority orders participants in read views. It must open with leadingRoles;
	// roles not listed sort last.
	RolePriority []string      `mapstructure:"rolePriority"`
	BulkMaxItems int           `mapstructure:"bulkMaxItems"`
	LockTTL      time.Duration `mapstructure:"lockTTL"`
}

// leadingRoles is the presentation order read views guarantee to consumers.
var leadingRoles = []string{"customer", "principal", "distributor"}

func DefaultRosterConfig() RosterConfig {
	return RosterConfig{
		RolePriority: []string{"customer", "principal", "distributor", "partner"},
		BulkMaxItems: 500,
		LockTTL:      30 * time.Second,
	}
}

type RosterConfigHolder struct {
	current atomic.Value // holds RosterConfig
}

// NewStaticRosterConfigHolder serves a fixed config, mostly for tests and the CLI.
func NewStaticRosterConfigHolder(cfg RosterConfig) *RosterConfigHolder {
	holder := &RosterConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewRosterConfigHolder(appCfg Config, log *zap.Logger) (*RosterConfigHolder, error) {
	v := viper.New()

	if path := strings.TrimSpace(appCfg.RosterConfigPath); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("roster")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/dealroster")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("DEALROSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultRosterConfig()
	v.SetDefault("roster.rolePriority", defaults.RolePriority)
	v.SetDefault("roster.bulkMaxItems", defaults.BulkMaxItems)
	v.SetDefault("roster.lockTTL", defaults.LockTTL)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg RosterConfig
	if err := v.UnmarshalKey("roster", &cfg); err != nil {
		return nil, err
	}
	cfg = normalizeRosterConfig(cfg)
	if err := validateRosterConfig(cfg); err != nil {
		return nil, err
	}

	holder := &RosterConfigHolder{}
	holder.current.Store(cfg)

	if !fileLoaded {
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RosterConfig
		if err := v.UnmarshalKey("roster", &updated); err != nil {
			log.Warn("roster config reload failed", zap.Error(err))
			return
		}
		updated = normalizeRosterConfig(updated)
		if err := validateRosterConfig(updated); err != nil {
			log.Warn("invalid roster config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("roster config reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *RosterConfigHolder) Get() RosterConfig {
	return h.current.Load().(RosterConfig)
}

func normalizeRosterConfig(cfg RosterConfig) RosterConfig {
	roles := make([]string, 0, len(cfg.RolePriority))
	for _, role := range cfg.RolePriority {
		roles = append(roles, strings.ToLower(strings.TrimSpace(role)))
	}
	cfg.RolePriority = roles
	return cfg
}

func validateRosterConfig(cfg RosterConfig) error {
	if len(cfg.RolePriority) < len(leadingRoles) {
		return fmt.Errorf("roster.rolePriority must start with %s", strings.Join(leadingRoles, ", "))
	}
	for i, role := range leadingRoles {
		if cfg.RolePriority[i] != role {
			return fmt.Errorf("roster.rolePriority must start with %s, got %q at position %d",
				strings.Join(leadingRoles, ", "), cfg.RolePriority[i], i+1)
		}
	}
	seen := make(map[string]struct{}, len(cfg.RolePriority))
	for _, role := range cfg.RolePriority {
		if role == "" {
			return errors.New("roster.rolePriority cannot contain empty roles")
		}
		if _, dup := seen[role]; dup {
			return fmt.Errorf("roster.rolePriority lists %q twice", role)
		}
		seen[role] = struct{}{}
	}
	if cfg.BulkMaxItems <= 0 {
		return errors.New("roster.bulkMaxItems must be positive")
	}
	if cfg.LockTTL <= 0 {
		return errors.New("roster.lockTTL must be positive")
	}
	return nil
}
