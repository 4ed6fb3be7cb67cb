package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/anchorsync/pkg/domain"
)

// edge is one transition of the session cycle.
type edge struct {
	from, to domain.Mode
	label    string
	failure  bool
}

var cycle = []edge{
	{domain.ModeAwaitingHostTrigger, domain.ModeHostingInProgress, "touch on plane", false},
	{domain.ModeHostingInProgress, domain.ModeAwaitingResolveTrigger, "Success / spawn hosted", false},
	{domain.ModeHostingInProgress, domain.ModeAwaitingHostTrigger, "Failure", true},
	{domain.ModeAwaitingResolveTrigger, domain.ModeResolvingInProgress, "touch", false},
	{domain.ModeAwaitingResolveTrigger, domain.ModeAwaitingHostTrigger, "Resolve Failed!", true},
	{domain.ModeResolvingInProgress, domain.ModeAwaitingHostTrigger, "Success / spawn resolved", false},
	{domain.ModeResolvingInProgress, domain.ModeAwaitingHostTrigger, "Failure", true},
}

// GenerateMermaid produces a Mermaid state diagram of the session cycle.
// Failure edges are drawn dotted. If s is non-nil its mode is highlighted
// and its status is attached as a note.
func GenerateMermaid(s *domain.Session) string {
	var sb strings.Builder
	sb.WriteString("stateDiagram-v2\n")
	sb.WriteString(fmt.Sprintf("    [*] --> %s\n", domain.ModeAwaitingHostTrigger))

	for _, e := range cycle {
		label := e.label
		if e.failure {
			label = "⚠ " + label
		}
		sb.WriteString(fmt.Sprintf("    %s --> %s: %s\n", e.from, e.to, label))
	}
	sb.WriteString(fmt.Sprintf("    note right of %s: submit identifier (from any mode)\n", domain.ModeResolvingInProgress))

	if s == nil || !s.Mode.Valid() {
		return sb.String()
	}

	sb.WriteString("    classDef current fill:#f472b6,stroke:#333,stroke-width:2px\n")
	sb.WriteString(fmt.Sprintf("    class %s current\n", s.Mode))
	if s.Status != "" {
		sb.WriteString(fmt.Sprintf("    note left of %s: %s\n", s.Mode, sanitizeNote(s.Status)))
	}
	return sb.String()
}

// sanitizeNote keeps a status on one line and strips characters Mermaid treats as syntax.
func sanitizeNote(text string) string {
	r := strings.NewReplacer("\n", " ", "\r", " ", ":", " ", ";", ",", "\"", "'")
	return r.Replace(text)
}
