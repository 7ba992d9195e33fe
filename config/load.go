package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// ASYNCFYNE_UPDATE_INTERVAL_MS or ASYNCFYNE_LOG_LEVEL.
const EnvPrefix = "ASYNCFYNE"

var defaults = map[string]any{
	"update_interval_ms":  1000,
	"per_task_timeout_ms": 0,
	"overrun_policy":      "skip",
	"command_timeout_ms":  0,
	"cycle_interval_ms":   10,
	"shutdown_grace_ms":   2000,
	"log.level":           "info",
	"log.development":     false,
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		UpdateIntervalMS: defaults["update_interval_ms"].(int),
		PerTaskTimeoutMS: defaults["per_task_timeout_ms"].(int),
		OverrunPolicy:    defaults["overrun_policy"].(string),
		CommandTimeoutMS: defaults["command_timeout_ms"].(int),
		CycleIntervalMS:  defaults["cycle_interval_ms"].(int),
		ShutdownGraceMS:  defaults["shutdown_grace_ms"].(int),
		Log: LogConfig{
			Level:       defaults["log.level"].(string),
			Development: defaults["log.development"].(bool),
		},
	}
}

// Load reads configuration from defaults, then the file at path if path is
// not empty, then the environment. Later sources win.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.OverrunPolicy = strings.ToLower(strings.TrimSpace(cfg.OverrunPolicy))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field against its validate tag.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
