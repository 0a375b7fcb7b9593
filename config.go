package slotmap

import (
	"io"
	"log/slog"
)

// Config defines configurable SlotMap options.
type Config struct {
	OffHeap bool
	Logger  *slog.Logger

	onDrop any // func(V), checked against the map's V in New
}

// WithOffHeap places the slot buffer in anonymous memory obtained from
// the operating system instead of the Go heap. The buffer is invisible to
// the garbage collector, so V must not contain pointers; New fails with
// ErrPointerValue otherwise. Call Free to return the memory promptly.
func WithOffHeap() func(*Config) {
	return func(c *Config) {
		c.OffHeap = true
	}
}

// OnDrop registers fn to be called once for every live value when the map
// is cleared or freed. Values handed back by Insert or Remove have left
// the map and are not passed to fn.
//
// The type of fn must match the map's value type, or New returns
// ErrInvalidOption.
func OnDrop[V any](fn func(V)) func(*Config) {
	return func(c *Config) {
		c.onDrop = fn
	}
}

// WithLogger configures structured logging of allocation and release
// events. Nothing is logged on the access path.
func WithLogger(logger *slog.Logger) func(*Config) {
	return func(c *Config) {
		c.Logger = logger
	}
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
