package runtime

import (
	"github.com/aretw0/anchorsync/pkg/domain"
)

// Status texts reported when a provider operation could not be created or failed remotely.
const (
	StatusCreateFailed  = "Create Failed!"
	StatusHostFailed    = "Host Failed!"
	StatusResolveFailed = "Resolve Failed!"
)

// statusUnavailable is appended to the mode while the provider cannot be polled.
const statusUnavailable = "Unavailable"

// renderAwaiting describes a session waiting for a trigger.
// The resolve trigger shows the identifier that the next touch will resolve.
func renderAwaiting(s *domain.Session) string {
	if s.Mode == domain.ModeAwaitingResolveTrigger {
		return s.LastAnchorID
	}
	return s.Mode.String()
}

// renderPolling describes a session polling an operation.
func renderPolling(mode domain.Mode, state string) string {
	return mode.String() + " - " + state
}
