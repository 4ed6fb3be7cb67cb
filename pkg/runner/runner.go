package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/anchorsync/internal/logging"
	"github.com/aretw0/anchorsync/pkg/domain"
)

// Controller is the part of anchorsync.Controller the loop drives.
type Controller interface {
	Tick(ctx context.Context, sessionID string, input *domain.TouchInput) (*domain.Session, error)
	SubmitIdentifier(ctx context.Context, sessionID, identifier string) (*domain.Session, error)
}

// Runner handles the frame loop of an anchor session using provided IO.
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on stdin/stdout.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	SessionID     string
	FrameInterval time.Duration
	MaxFrames     int

	controller Controller
}

// NewRunner creates a Runner for the given controller.
func NewRunner(controller Controller, opts ...Option) *Runner {
	r := &Runner{
		controller:    controller,
		SessionID:     DefaultSessionID,
		FrameInterval: DefaultFrameInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	return r
}

// Run executes frames until quit, cancellation, MaxFrames, or exhausted input.
// Once the input is exhausted the loop keeps polling until no operation is in flight.
// It returns the last observed session.
func (r *Runner) Run(ctx context.Context) (*domain.Session, error) {
	if r.controller == nil {
		return nil, errors.New("runner requires a controller")
	}

	ticker := time.NewTicker(r.FrameInterval)
	defer ticker.Stop()

	var (
		last     *domain.Session
		draining bool
	)

	for frame := 1; ; frame++ {
		cmd, ok, err := r.next(draining)
		switch {
		case errors.Is(err, io.EOF):
			r.Logger.Debug("Input exhausted, draining", "session_id", r.SessionID)
			draining = true
		case err != nil:
			return last, fmt.Errorf("input error: %w", err)
		}

		if ok && cmd.Type == CommandQuit {
			return last, nil
		}

		next, err := r.step(ctx, cmd, ok)
		if err != nil {
			if ctx.Err() != nil {
				return last, nil
			}
			return last, err
		}

		if last == nil || domain.Diff(last, next) != nil {
			if err := r.Handler.Output(ctx, next); err != nil {
				return next, fmt.Errorf("output error: %w", err)
			}
		}
		last = next

		if draining && !last.Mode.InProgress() {
			return last, nil
		}
		if r.MaxFrames > 0 && frame >= r.MaxFrames {
			return last, nil
		}

		select {
		case <-ctx.Done():
			return last, nil
		case <-ticker.C:
		}
	}
}

func (r *Runner) next(draining bool) (Command, bool, error) {
	if draining {
		return Command{}, false, nil
	}
	return r.Handler.Next()
}

// step runs one frame. A submission is handled before the frame's poll tick,
// like a UI event delivered ahead of the frame update.
func (r *Runner) step(ctx context.Context, cmd Command, ok bool) (*domain.Session, error) {
	var touch *domain.TouchInput
	if ok {
		r.Logger.Debug("Command received", "session_id", r.SessionID, "type", cmd.Type)
		switch cmd.Type {
		case CommandSubmit:
			if _, err := r.controller.SubmitIdentifier(ctx, r.SessionID, cmd.Identifier); err != nil {
				return nil, fmt.Errorf("submit error: %w", err)
			}
		case CommandTouch:
			touch = cmd.Touch
		}
	}

	s, err := r.controller.Tick(ctx, r.SessionID, touch)
	if err != nil {
		return nil, fmt.Errorf("tick error: %w", err)
	}
	return s, nil
}
