// Package config loads the scheduler and demo settings from defaults, an
// optional config file and ASYNCFYNE_ environment variables.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	// UpdateIntervalMS applies to update tasks registered without an interval.
	UpdateIntervalMS int `mapstructure:"update_interval_ms" validate:"gt=0"`
	// PerTaskTimeoutMS bounds every update invocation. Zero derives the
	// timeout from each task's interval.
	PerTaskTimeoutMS int    `mapstructure:"per_task_timeout_ms" validate:"gte=0"`
	OverrunPolicy    string `mapstructure:"overrun_policy" validate:"oneof=skip queue"`
	// CommandTimeoutMS bounds every command. Zero leaves commands unbounded.
	CommandTimeoutMS int `mapstructure:"command_timeout_ms" validate:"gte=0"`
	CycleIntervalMS  int `mapstructure:"cycle_interval_ms" validate:"gt=0"`
	ShutdownGraceMS  int `mapstructure:"shutdown_grace_ms" validate:"gt=0"`

	Log LogConfig `mapstructure:"log"`
}

// LogConfig contains the logger settings.
type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

func (c *Config) UpdateInterval() time.Duration { return ms(c.UpdateIntervalMS) }

func (c *Config) PerTaskTimeout() time.Duration { return ms(c.PerTaskTimeoutMS) }

func (c *Config) CommandTimeout() time.Duration { return ms(c.CommandTimeoutMS) }

func (c *Config) CycleInterval() time.Duration { return ms(c.CycleIntervalMS) }

func (c *Config) ShutdownGrace() time.Duration { return ms(c.ShutdownGraceMS) }

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
