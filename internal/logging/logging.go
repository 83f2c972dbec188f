// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	logFilePermissions = 0600
	logDirPermissions  = 0700
)

// ParseLevel maps a level name to a slog level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DailyFileName is the log file name for the given day.
func DailyFileName(t time.Time) string {
	return "lockpass-" + t.Format(time.DateOnly) + ".log"
}

// Setup installs a text handler as the default logger. A path that names a
// directory, or ends in a separator, gets a per-day file inside it. Any other
// non-empty path is the log file itself. An empty path logs to stderr. The
// returned closer releases the log file.
func Setup(level, path string) (io.Closer, error) {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer = io.NopCloser(nil)
	)

	if path != "" {
		if isDir(path) {
			path = filepath.Join(path, DailyFileName(time.Now()))
		}
		if err := os.MkdirAll(filepath.Dir(path), logDirPermissions); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w, closer = f, f
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	slog.SetDefault(slog.New(handler))
	return closer, nil
}

func isDir(path string) bool {
	if strings.HasSuffix(path, string(filepath.Separator)) {
		return true
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
