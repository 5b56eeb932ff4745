package logger

import (
	"log/slog"

	"github.com/x1labs/x1-rpc-proxy/internal/util"
	"github.com/x1labs/x1-rpc-proxy/theme"
)

// StyledLogger wraps slog.Logger with theme-aware formatting for the
// endpoint-heavy log lines the discovery and forwarding paths emit.
type StyledLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	InfoWithCount(msg string, count int, args ...any)
	InfoWithEndpoint(msg string, endpoint string, args ...any)
	WarnWithEndpoint(msg string, endpoint string, args ...any)
	ErrorWithEndpoint(msg string, endpoint string, args ...any)

	InfoNodeActive(msg string, endpoint string, args ...any)
	WarnNodeInactive(msg string, endpoint string, args ...any)
}

// NewWithTheme builds the slog logger plus a StyledLogger view of it.
// Pretty styling only when the terminal supports it; plain otherwise so
// log files and pipes don't fill up with ANSI noise.
func NewWithTheme(cfg *Config) (*slog.Logger, StyledLogger, func(), error) {
	logInstance, cleanup, err := New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	appTheme := theme.GetTheme(cfg.Theme)

	var styled StyledLogger
	if util.ShouldUseColors() {
		styled = NewPrettyStyledLogger(logInstance, appTheme)
	} else {
		styled = NewPlainStyledLogger(logInstance)
	}

	return logInstance, styled, cleanup, nil
}
