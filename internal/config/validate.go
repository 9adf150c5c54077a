package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for errors.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if cfg.Server.MetricsPort < 0 || cfg.Server.MetricsPort > 65535 {
		errs = append(errs, "server.metricsPort must be between 0 and 65535")
	}

	if cfg.Server.MetricsPort != 0 && cfg.Server.MetricsPort == cfg.Server.Port {
		errs = append(errs, "server.metricsPort must differ from server.port")
	}

	validDrivers := map[string]bool{"sqlite": true, "leveldb": true}
	if !validDrivers[cfg.Database.Driver] {
		errs = append(errs, fmt.Sprintf("database.driver must be sqlite or leveldb (got %q)", cfg.Database.Driver))
	}

	if cfg.Database.Driver == "sqlite" && cfg.Database.SQLite.Path == "" {
		errs = append(errs, "database.sqlite.path is required when driver is sqlite")
	}

	if cfg.Database.Driver == "leveldb" && cfg.Database.LevelDB.Path == "" {
		errs = append(errs, "database.leveldb.path is required when driver is leveldb")
	}

	if cfg.Tail.DefaultLimit <= 0 {
		errs = append(errs, "tail.defaultLimit must be positive")
	}

	if cfg.Tail.MaxLimit < cfg.Tail.DefaultLimit {
		errs = append(errs, "tail.maxLimit must be at least tail.defaultLimit")
	}

	if cfg.RateLimit.Enabled && cfg.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, "rateLimit.requestsPerMinute must be positive when rate limiting is enabled")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

	if cfg.Notify.Enabled {
		if !validLevels[strings.ToLower(cfg.Notify.MinLevel)] {
			errs = append(errs, fmt.Sprintf("notify.minLevel must be debug, info, warn, or error (got %q)", cfg.Notify.MinLevel))
		}
		if cfg.Notify.Slack.BotToken != "" && cfg.Notify.Slack.DefaultChannel == "" {
			errs = append(errs, "notify.slack.defaultChannel is required when a bot token is set")
		}
	}

	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("logging.level must be debug, info, warn, or error (got %q)", cfg.Logging.Level))
	}

	if cfg.Logging.Format != "json" && cfg.Logging.Format != "text" {
		errs = append(errs, fmt.Sprintf("logging.format must be json or text (got %q)", cfg.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
