// Package config loads the operational tunables that sit outside the CLI
// surface: retry budgets, the optional scan-root jail, and log verbosity.
package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds the env-configured knobs an installation sets once, as
// opposed to the per-invocation flags in cmd/index.
type Config struct {
	// ScanRoot, if set, jails the -p GIT_DIR argument: the resolved path
	// must land inside it. Unset means no jail, matching a single-operator
	// deployment that already trusts its own invocation.
	ScanRoot string `env:"BUSHI_SCAN_ROOT"`

	RetryAttempts uint          `env:"BUSHI_RETRY_ATTEMPTS, default=5"`
	RetryDelay    time.Duration `env:"BUSHI_RETRY_DELAY, default=10ms"`

	// LogLevel is loaded but not applied anywhere: every logger the log
	// package creates runs at debug level regardless of this value.
	LogLevel string `env:"BUSHI_LOG_LEVEL, default=info"`
}

// Load populates Config from the environment, applying defaults for
// anything unset.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
