// Package logging configures log/slog output for the record store.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/guyvdb/recstore/config"

	"github.com/lmittmann/tint"
)

type Options struct {
	Level   slog.Level
	NoColor bool
	// TimeFormat defaults to time.Kitchen.
	TimeFormat string
}

// New returns a logger writing colored, human readable lines to w.
func New(w io.Writer, opts Options) *slog.Logger {
	if opts.TimeFormat == "" {
		opts.TimeFormat = time.Kitchen
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      opts.Level,
		NoColor:    opts.NoColor,
		TimeFormat: opts.TimeFormat,
	}))
}

// Setup installs a logger for cfg as the slog default and returns it.
func Setup(w io.Writer, cfg config.Logging) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}

	logger := New(w, Options{Level: level, NoColor: cfg.NoColor})
	slog.SetDefault(logger)
	return logger, nil
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level '%s'", s)
}
