package runtime

import (
	"fmt"

	"github.com/aretw0/anchorsync/pkg/domain"
)

// ValidateSession checks that a snapshot can be driven by the engine.
// Snapshots come from stores and adapters, so they are not trusted.
func ValidateSession(s *domain.Session) error {
	if s == nil {
		return fmt.Errorf("%w: nil session", domain.ErrInconsistentSession)
	}
	if !s.Mode.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownMode, s.Mode)
	}
	if !s.Consistent() {
		return fmt.Errorf("%w: mode %s with pending anchor %q", domain.ErrInconsistentSession, s.Mode, s.PendingAnchor)
	}
	return nil
}
