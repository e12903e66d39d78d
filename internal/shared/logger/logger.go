package logger

import (
	"io"
	"log/slog"
	"os"

	"colony-server/internal/shared/config"
)

func Init() {
	if config.GlobalConfig == nil {
		panic("config must be initialized before logger")
	}

	slog.SetDefault(New(os.Stdout, config.GlobalConfig.Logging))

	logger := slog.With("component", "logger")
	logger.Debug("Logger initialized",
		"level", config.GlobalConfig.Logging.Level,
		"json_format", config.GlobalConfig.Logging.JSONFormat(),
		"environment", config.GlobalConfig.Server.Environment,
	)
}

// New builds a logger writing to w using the configured level and format.
func New(w io.Writer, logConfig config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(logConfig.Level),
	}

	var handler slog.Handler
	if logConfig.JSONFormat() {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func parseLogLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
