// Package qlog is the kernel-wide structured logger. It thinly wraps
// zerolog so every component logs through the same sink without each
// package re-deriving its own logger.
package qlog

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Logger()
)

// SetOutput redirects the kernel log stream. A production boot wires
// this to the ShareSpace log byte-stream; tests
// commonly wire it to a bytes.Buffer.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log = zerolog.New(w).With().Timestamp().Logger()
}

// SetLevel sets the minimum zerolog level the kernel log emits. It
// takes a zerolog level directly; nothing in this package reads
// config.LogLevel or config.DebugLevel.
func SetLevel(level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	log = log.Level(level)
}

func logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Component returns a child logger tagged with the emitting subsystem,
// mirroring how the original kernel prefixes its print! call sites by
// module (task, mm, uring, ...).
func Component(name string) zerolog.Logger {
	return logger().With().Str("component", name).Logger()
}

func Debug() *zerolog.Event { return logger().Debug() }
func Info() *zerolog.Event  { return logger().Info() }
func Warn() *zerolog.Event  { return logger().Warn() }
func Error() *zerolog.Event { return logger().Error() }
