package tui

import (
	"strings"

	"github.com/aretw0/anchorsync/pkg/domain"
	"github.com/muesli/termenv"
)

// Status colors by outcome.
const (
	colorIdle    = "#94a3b8"
	colorPending = "#facc15"
	colorSuccess = "#4ade80"
	colorFailure = "#f87171"
)

// NewStatusRenderer colors status lines for the frame loop.
// It matches runner.StatusRenderer.
func NewStatusRenderer() func(*domain.Session) string {
	p := termenv.ColorProfile()
	return func(s *domain.Session) string {
		return termenv.String(s.Status).Foreground(p.Color(statusColor(s))).String()
	}
}

func statusColor(s *domain.Session) string {
	switch {
	case strings.HasSuffix(s.Status, "!"):
		return colorFailure
	case strings.HasSuffix(s.Status, domain.AnchorSuccess.String()):
		return colorSuccess
	case s.Mode.InProgress():
		return colorPending
	case s.Mode == domain.ModeAwaitingResolveTrigger:
		// The status is the hosted identifier.
		return colorSuccess
	}
	return colorIdle
}
