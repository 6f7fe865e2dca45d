// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

// Package logging provides the zerolog-based logging used across the
// service manager, the CLI and the service plugins.
//
// A single global logger is configured once at process start:
//
//	logging.Init(logging.Config{Level: "info", Format: "console"})
//	logging.Info().Uint8("service", id).Msg("service added to manager")
//
// When Config.File is set, output is rotated with lumberjack so the
// manager daemon can run detached without growing an unbounded log.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes file:line of the call site.
	Caller bool `koanf:"caller"`

	// File, when non-empty, routes output to a rotating log file
	// instead of stderr.
	File string `koanf:"file"`

	// MaxSizeMB caps a log file before rotation. Zero means 50.
	MaxSizeMB int `koanf:"max_size_mb"`

	// MaxBackups is the number of rotated files kept. Zero means 3.
	MaxBackups int `koanf:"max_backups"`

	// Output overrides the destination writer. Takes precedence over
	// File. Used by tests.
	Output io.Writer `koanf:"-"`
}

var (
	log zerolog.Logger

	mu sync.RWMutex
)

//nolint:gochecknoinits // logging must work before main calls Init
func init() {
	initLogger(Config{Level: "info", Format: "console"})
}

// Init configures the global logger. Safe to call more than once.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	initLogger(cfg)
}

func initLogger(cfg Config) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if out == nil {
		if cfg.File != "" {
			maxSize := cfg.MaxSizeMB
			if maxSize == 0 {
				maxSize = 50
			}
			maxBackups := cfg.MaxBackups
			if maxBackups == 0 {
				maxBackups = 3
			}
			out = &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    maxSize,
				MaxBackups: maxBackups,
			}
		} else {
			out = os.Stderr
		}
	}

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	log = ctx.Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// With creates a child logger context with extra fields.
//
//	mgrLog := logging.With().Str("component", "manager").Logger()
func With() zerolog.Context {
	mu.RLock()
	defer mu.RUnlock()
	return log.With()
}

// Debug starts a debug-level event.
func Debug() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Debug()
}

// Info starts an info-level event.
func Info() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Info()
}

// Warn starts a warn-level event.
func Warn() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Warn()
}

// Error starts an error-level event.
func Error() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Error()
}

// Fatal starts a fatal-level event; the terminating Msg call exits the
// process.
func Fatal() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Fatal()
}
