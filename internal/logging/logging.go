// Package logging sets up the client's per-user log file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// FileName returns the log file name for userID.
func FileName(userID string) string {
	return "client_" + userID + "_log.txt"
}

// Open returns a JSON logger appending to dir/client_<userID>_log.txt, tagged
// with the user id, and a function closing the file.
//
// Failing to create the directory or file is not fatal: a one-line
// diagnostic goes to diag and the returned logger discards everything.
func Open(dir, userID string, level slog.Level, diag io.Writer) (*slog.Logger, func() error) {
	noop := func() error { return nil }

	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(diag, "logging disabled: create log directory %s: %v\n", dir, err)
		return slog.New(slog.DiscardHandler), noop
	}

	path := filepath.Join(dir, FileName(userID))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(diag, "logging disabled: open log file %s: %v\n", path, err)
		return slog.New(slog.DiscardHandler), noop
	}

	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: level,
	})).With("user", userID)
	return logger, f.Close
}
