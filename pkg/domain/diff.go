package domain

// SessionDiff represents the changes between two session snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type SessionDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	Mode          *Mode   `json:"mode,omitempty"`
	PendingAnchor *Handle `json:"pending_anchor,omitempty"`
	LastAnchorID  *string `json:"last_anchor_id,omitempty"`
	Status        *string `json:"status,omitempty"`
}

// Diff calculates the difference between oldSession and newSession.
// If oldSession is nil, it returns a diff representing the entire newSession (initial load).
// It returns nil when nothing changed.
func Diff(oldSession, newSession *Session) *SessionDiff {
	if newSession == nil {
		return nil
	}

	diff := &SessionDiff{SessionID: newSession.ID}

	if oldSession == nil || oldSession.Mode != newSession.Mode {
		diff.Mode = &newSession.Mode
	}
	// Empty values are meaningful here ("handle released"), so compare instead of omitting.
	if oldSession == nil || oldSession.PendingAnchor != newSession.PendingAnchor {
		diff.PendingAnchor = &newSession.PendingAnchor
	}
	if oldSession == nil || oldSession.LastAnchorID != newSession.LastAnchorID {
		diff.LastAnchorID = &newSession.LastAnchorID
	}
	if oldSession == nil || oldSession.Status != newSession.Status {
		diff.Status = &newSession.Status
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return d.Mode == nil &&
		d.PendingAnchor == nil &&
		d.LastAnchorID == nil &&
		d.Status == nil
}
