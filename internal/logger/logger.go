package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"github.com/tuncerburak97/munzi/internal/config"
)

// New builds the root logger. Format "console" writes human readable lines,
// anything else writes JSON.
func New(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Init installs the root logger as the zerolog global and as the
// fallback for zerolog.Ctx lookups on contexts without a logger.
func Init(cfg config.LogConfig) zerolog.Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	l := New(cfg, os.Stdout)
	log.Logger = l
	zerolog.DefaultContextLogger = &log.Logger
	return l
}
