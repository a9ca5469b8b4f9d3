// Package logger holds the process-wide structured logger. Output always goes
// to a size-rotated file; stderr is added in debug mode.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/julianstephens/habitlink/internal/constants"
)

// Logger is nil until Init runs. The helpers below drop messages until then.
var Logger *log.Logger

var discard = log.New(io.Discard)

type Config struct {
	Debug     bool
	ConfigDir string
	// Level is a charmbracelet/log level name. Empty means info, or debug
	// when Debug is set.
	Level string
	// Format is "text" (default), "logfmt" or "json".
	Format string
}

const (
	logFileMaxSizeMB = 10
	logFileBackups   = 3
	logFileMaxAgeDay = 28
)

func Init(cfg Config) error {
	level, err := resolveLevel(cfg)
	if err != nil {
		return err
	}
	formatter, err := resolveFormatter(cfg.Format)
	if err != nil {
		return err
	}

	logDir := filepath.Join(cfg.ConfigDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	var out io.Writer = &lumberjack.Logger{
		Filename:   filepath.Join(logDir, constants.AppName+".log"),
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: logFileBackups,
		MaxAge:     logFileMaxAgeDay,
		Compress:   true,
	}
	if cfg.Debug {
		out = io.MultiWriter(os.Stderr, out)
	}

	Logger = log.NewWithOptions(out, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          constants.AppName,
		Formatter:       formatter,
	})
	return nil
}

func resolveLevel(cfg Config) (log.Level, error) {
	if cfg.Level == "" {
		if cfg.Debug {
			return log.DebugLevel, nil
		}
		return log.InfoLevel, nil
	}
	level, err := log.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	return level, nil
}

func resolveFormatter(name string) (log.Formatter, error) {
	switch strings.ToLower(name) {
	case "", "text":
		return log.TextFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	}
	return 0, fmt.Errorf("invalid log format %q (want text, logfmt or json)", name)
}

// With returns a child logger that adds keyvals to every line. Before Init it
// returns a logger that discards everything.
func With(keyvals ...interface{}) *log.Logger {
	if Logger == nil {
		return discard
	}
	return Logger.With(keyvals...)
}

func Debug(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

func Info(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

func Warn(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

func Error(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}
