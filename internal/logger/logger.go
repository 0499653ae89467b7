package logger

import (
	"io"
	"log/slog"
	"os"

	"eduagent-knowledge/internal/config"
)

var Logger *slog.Logger

// InitLogger initializes structured logging based on configuration
func InitLogger(cfg *config.Config) {
	Logger = New(os.Stdout, cfg.GinMode == "debug")
	Logger.Info("Structured logging initialized", "service", cfg.ServiceName, "debug", cfg.GinMode == "debug")
}

// New builds a JSON logger; debug adds source locations and lowers the level
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	}))
}

// ForDocument scopes log lines to one ingestion run
func ForDocument(documentID, source string) *slog.Logger {
	if Logger == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return Logger.With("document_id", documentID, "source", source)
}

func Info(msg string, args ...any) {
	if Logger != nil {
		Logger.Info(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if Logger != nil {
		Logger.Error(msg, args...)
	}
}

func Debug(msg string, args ...any) {
	if Logger != nil {
		Logger.Debug(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if Logger != nil {
		Logger.Warn(msg, args...)
	}
}
