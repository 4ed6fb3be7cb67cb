package domain

import "time"

// Mode defines the current phase of an anchor session.
type Mode string

const (
	ModeAwaitingHostTrigger    Mode = "AwaitingHostTrigger"    // Wait for a touch to begin hosting
	ModeHostingInProgress      Mode = "HostingInProgress"      // Poll the hosting operation
	ModeAwaitingResolveTrigger Mode = "AwaitingResolveTrigger" // Wait for a touch to begin resolving
	ModeResolvingInProgress    Mode = "ResolvingInProgress"    // Poll the resolving operation
)

// Modes lists every mode in cycle order.
var Modes = []Mode{
	ModeAwaitingHostTrigger,
	ModeHostingInProgress,
	ModeAwaitingResolveTrigger,
	ModeResolvingInProgress,
}

// InProgress reports whether the mode owns an outstanding provider operation.
func (m Mode) InProgress() bool {
	return m == ModeHostingInProgress || m == ModeResolvingInProgress
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	for _, known := range Modes {
		if m == known {
			return true
		}
	}
	return false
}

func (m Mode) String() string {
	return string(m)
}

// Handle is an opaque reference to an in-flight provider operation.
// The zero value means "no operation".
type Handle string

// Session represents the current snapshot of an anchor session.
type Session struct {
	// ID identifies the session in stores and adapters.
	ID string `json:"id"`

	// Mode is the current phase.
	Mode Mode `json:"mode"`

	// PendingAnchor is the provider handle owned while Mode is *InProgress.
	PendingAnchor Handle `json:"pending_anchor,omitempty"`

	// LastAnchorID is the identifier produced by hosting (or supplied for resolving).
	LastAnchorID string `json:"last_anchor_id,omitempty"`

	// Status is the human-readable view of the session. Never read back into logic.
	Status string `json:"status"`

	// Cycles counts completed host→resolve round trips.
	Cycles int `json:"cycles"`

	// UpdatedAt is stamped by the runtime on every transition.
	UpdatedAt time.Time `json:"updated_at"`

	// Sealed carries the encrypted snapshot when the session is stored as an envelope.
	Sealed string `json:"sealed,omitempty"`
}

// NewSession creates a clean session waiting for a host trigger.
func NewSession(id string) *Session {
	return &Session{
		ID:     id,
		Mode:   ModeAwaitingHostTrigger,
		Status: ModeAwaitingHostTrigger.String(),
	}
}

// Snapshot returns a copy of the session.
func (s *Session) Snapshot() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Consistent reports whether the pending handle agrees with the mode.
func (s *Session) Consistent() bool {
	return (s.PendingAnchor != "") == s.Mode.InProgress()
}
