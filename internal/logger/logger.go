package logger

import (
	"io"
	"log/slog"
	"os"

	"docchat-platform/internal/config"
)

var Logger *slog.Logger

// New builds a JSON logger writing to w. Debug mode lowers the level and
// records source locations.
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

// InitLogger initializes structured logging based on configuration
func InitLogger(cfg *config.Config) {
	debug := cfg.GinMode == "debug"
	Logger = New(os.Stdout, debug)
	slog.SetDefault(Logger)

	Logger.Info("Structured logging initialized", "debug", debug)
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
