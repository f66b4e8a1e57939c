// Package logging builds the slog.Logger used by the daemon and CLI,
// rotating the daemon's append-only server.log.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewDaemonLogger writes JSON records to logPath (rotated) and, for
// visibility during foreground runs, to stderr.
func NewDaemonLogger(logPath string, debug bool) *slog.Logger {
	fileLogger := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	writer := io.MultiWriter(os.Stderr, fileLogger)

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level}))
}

// NewCLILogger is the lightweight logger short-lived CLI invocations use;
// it never touches server.log, which is single-owner to the daemon.
func NewCLILogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
