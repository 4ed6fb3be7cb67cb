package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/anchorsync/internal/presentation/graph"
	"github.com/aretw0/anchorsync/internal/presentation/tui"
	"github.com/aretw0/anchorsync/pkg/domain"
)

// ListSessions prints stored session IDs.
func ListSessions(ctx context.Context, env *Environment, w io.Writer) error {
	ids, err := env.Controller.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("error listing sessions: %w", err)
	}

	if len(ids) == 0 {
		fmt.Fprintln(w, "No active sessions found.")
		return nil
	}

	fmt.Fprintln(w, "Active Sessions:")
	for _, id := range ids {
		fmt.Fprintln(w, "- "+id)
	}
	return nil
}

// InspectSession prints a session as JSON or as rendered markdown.
func InspectSession(ctx context.Context, env *Environment, w io.Writer, sessionID string, asJSON bool) error {
	s, err := env.Controller.Session(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("error loading session '%s': %w", sessionID, err)
	}

	if asJSON {
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling session: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	out, err := tui.NewRenderer()(tui.SessionMarkdown(s))
	if err != nil {
		return fmt.Errorf("error rendering session: %w", err)
	}
	fmt.Fprint(w, out)
	return nil
}

// RemoveSessions deletes each session, reporting per ID. Missing sessions are not an error.
func RemoveSessions(ctx context.Context, env *Environment, w io.Writer, ids []string) error {
	var errs []error
	for _, id := range ids {
		if err := env.Controller.Reset(ctx, id); err != nil {
			fmt.Fprintf(w, "Error removing session '%s': %v\n", id, err)
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(w, "Session '%s' removed.\n", id)
	}
	return errors.Join(errs...)
}

// GraphSession prints the session cycle as a Mermaid diagram.
// Without a session ID the bare cycle is printed.
func GraphSession(ctx context.Context, env *Environment, w io.Writer, sessionID string) error {
	var s *domain.Session
	if sessionID != "" {
		var err error
		s, err = env.Controller.Session(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("error loading session '%s': %w", sessionID, err)
		}
	}
	fmt.Fprintln(w, graph.GenerateMermaid(s))
	return nil
}
