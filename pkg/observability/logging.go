package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/anchorsync/pkg/domain"
)

// LoggingHooks logs every lifecycle event at Info (Warn for failures).
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.InfoContext(ctx, "session_transition",
				"session_id", e.SessionID,
				"from", e.From,
				"to", e.To,
			)
		},
		OnArtifact: func(ctx context.Context, e *domain.ArtifactEvent) {
			logger.InfoContext(ctx, "artifact_attached",
				"session_id", e.SessionID,
				"kind", e.Kind,
				"anchor", e.Anchor,
				"anchor_id", e.AnchorID,
			)
		},
		OnFailure: func(ctx context.Context, e *domain.FailureEvent) {
			logger.WarnContext(ctx, "anchor_failure",
				"session_id", e.SessionID,
				"mode", e.Mode,
				"err", e.Err,
			)
		},
	}
}
