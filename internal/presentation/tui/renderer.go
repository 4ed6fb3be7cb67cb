package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/anchorsync/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// If the terminal renderer cannot be built, markdown is returned as is.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// SessionMarkdown describes a session for `anchorctl session inspect`.
func SessionMarkdown(s *domain.Session) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Session `%s`\n\n", s.ID)
	fmt.Fprintf(&sb, "> %s\n\n", s.Status)
	sb.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Mode | %s |\n", s.Mode)
	fmt.Fprintf(&sb, "| Pending anchor | %s |\n", orDash(string(s.PendingAnchor)))
	fmt.Fprintf(&sb, "| Last anchor ID | %s |\n", orDash(s.LastAnchorID))
	fmt.Fprintf(&sb, "| Completed cycles | %d |\n", s.Cycles)
	updated := "-"
	if !s.UpdatedAt.IsZero() {
		updated = s.UpdatedAt.Format(time.RFC3339)
	}
	fmt.Fprintf(&sb, "| Updated | %s |\n", updated)
	return sb.String()
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return "`" + v + "`"
}
