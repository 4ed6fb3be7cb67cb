package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/anchorsync"
	"github.com/aretw0/anchorsync/internal/presentation/tui"
	"github.com/aretw0/anchorsync/pkg/domain"
	"github.com/aretw0/anchorsync/pkg/runner"
)

// RunOptions contains the configuration of the run command.
type RunOptions struct {
	SessionID string
	JSON      bool
	Fresh     bool
	Quiet     bool
	MaxFrames int
	In        io.Reader
	Out       io.Writer
}

// Run drives one session from line commands until quit or end of input.
func Run(ctx context.Context, env *Environment, opts RunOptions) (*domain.Session, error) {
	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = env.Config.Session
	}

	if opts.Fresh {
		if err := env.Controller.Reset(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("failed to reset session: %w", err)
		}
	}

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(opts.In, opts.Out)
	} else {
		if !opts.Quiet {
			tui.PrintBanner(opts.Out, anchorsync.Version)
		}
		handler = runner.NewTextHandler(opts.In, opts.Out,
			runner.WithTextHandlerRenderer(tui.NewStatusRenderer()),
		)
	}

	start, err := env.Controller.Start(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	env.Logger.Info("Session active", "session_id", sessionID, "mode", start.Mode)
	if !opts.Quiet {
		_ = handler.SystemOutput(ctx, fmt.Sprintf("Session '%s' active. Commands: tap [x y z], tap-miss, tap-ui, id <identifier>, quit", sessionID))
	}

	r := runner.NewRunner(env.Controller,
		runner.WithSessionID(sessionID),
		runner.WithFrameInterval(env.Config.Runner.FrameInterval),
		runner.WithInputHandler(handler),
		runner.WithLogger(env.Logger),
		runner.WithMaxFrames(opts.MaxFrames),
	)

	final, err := r.Run(ctx)
	if err != nil {
		return final, err
	}
	if final != nil {
		env.Logger.Info("Session stopped", "session_id", sessionID, "mode", final.Mode, "cycles", final.Cycles)
	}
	return final, nil
}
