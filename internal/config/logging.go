package config

import (
	"context"
	"io"
	"log/slog"
)

// NewLogger returns the text logger used for diagnostics. Verbose settings
// enable debug records.
func NewLogger(w io.Writer, s *Settings) *slog.Logger {
	level := slog.LevelInfo
	if s != nil && s.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Log logs the resolved file-processing settings
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved file-processing settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.DebugContext(ctx, "Config: field", "value", s.Field)
	logger.DebugContext(ctx, "Config: uuid_version", "value", s.UUIDVersion)
	logger.DebugContext(ctx, "Config: indent", "value", s.Indent)
	logger.DebugContext(ctx, "Config: lock_timeout", "value", s.LockTimeout)
	if s.DryRun {
		logger.InfoContext(ctx, "Config: dry_run", "value", true)
	}
	if s.Strict {
		logger.DebugContext(ctx, "Config: strict", "value", true)
	}
}

// LogServe logs the resolved server settings, skipping irrelevant ones
func LogServe(s *Settings) {
	LogServeWithLogger(s, slog.Default())
}

// LogServeWithLogger logs the resolved server settings using the provided logger
func LogServeWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: field", "value", s.Field)
	logger.InfoContext(ctx, "Config: uuid_version", "value", s.UUIDVersion)
	logger.InfoContext(ctx, "Config: serve.transport", "value", s.Serve.Transport)
	logger.InfoContext(ctx, "Config: serve.root", "value", s.Serve.Root)
	if s.Serve.Transport == TransportSSE {
		logger.InfoContext(ctx, "Config: serve.host", "value", s.Serve.Host)
		logger.InfoContext(ctx, "Config: serve.port", "value", s.Serve.Port)
		logger.InfoContext(ctx, "Config: serve.auth", "value", AuthSettingsLogValue(s.Serve.Auth))
	}
}

// AuthSettingsLogValue returns a slog.Value for AuthSettings with masked data
func AuthSettingsLogValue(s AuthSettings) slog.Value {
	attrs := []slog.Attr{slog.String("type", s.Type)}
	switch s.Type {
	case AuthTypeBasic:
		attrs = append(attrs,
			slog.String("username", s.Basic.Username),
			slog.String("password", "****"),
		)
	case AuthTypeAPIKey:
		attrs = append(attrs, slog.Int("api_keys", len(s.APIKeys)))
	}
	return slog.GroupValue(attrs...)
}
