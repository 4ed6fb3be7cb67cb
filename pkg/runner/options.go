package runner

import (
	"log/slog"
	"time"
)

// DefaultFrameInterval approximates a 30 fps render loop.
const DefaultFrameInterval = 33 * time.Millisecond

// DefaultSessionID is used when no session ID is configured.
const DefaultSessionID = "local"

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithSessionID sets the session driven by the loop.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithFrameInterval sets the time between two frames.
func WithFrameInterval(d time.Duration) Option {
	return func(r *Runner) {
		r.FrameInterval = d
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithMaxFrames stops the loop after n frames. Zero means unbounded.
func WithMaxFrames(n int) Option {
	return func(r *Runner) {
		r.MaxFrames = n
	}
}
