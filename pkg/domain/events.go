package domain

import (
	"context"
	"time"
)

// ArtifactKind names the visual artifact attached to a completed anchor.
type ArtifactKind string

const (
	ArtifactHosted   ArtifactKind = "hosted"
	ArtifactResolved ArtifactKind = "resolved"
)

// EffectType defines the category of a side effect requested by a transition.
type EffectType string

const (
	// EffectSpawnArtifact asks the host to instantiate one artifact as a child of the anchor.
	EffectSpawnArtifact EffectType = "spawn_artifact"

	// EffectReleaseHandle reports that the session gave up ownership of a pending handle,
	// either because its operation finished or because a submission preempted it.
	EffectReleaseHandle EffectType = "release_handle"
)

// Effect is a side effect that the runtime requests the host to perform.
type Effect struct {
	Type     EffectType   `json:"type"`
	Artifact ArtifactKind `json:"artifact,omitempty"`
	Anchor   Handle       `json:"anchor"`
	AnchorID string       `json:"anchor_id,omitempty"`
}

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventTransition EventType = "transition"
	EventArtifact   EventType = "artifact"
	EventFailure    EventType = "failure"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// TransitionEvent represents a mode change.
type TransitionEvent struct {
	EventBase
	From Mode `json:"from"`
	To   Mode `json:"to"`
}

// ArtifactEvent represents an artifact attached to a completed anchor.
type ArtifactEvent struct {
	EventBase
	Kind     ArtifactKind `json:"kind"`
	Anchor   Handle       `json:"anchor"`
	AnchorID string       `json:"anchor_id,omitempty"`
}

// FailureEvent represents a recovered provider failure, or an artifact that could not be spawned.
type FailureEvent struct {
	EventBase
	Mode Mode   `json:"mode"`
	Err  string `json:"err"`
}

// LifecycleHooks defines callbacks for controller observability.
type LifecycleHooks struct {
	OnTransition func(context.Context, *TransitionEvent)
	OnArtifact   func(context.Context, *ArtifactEvent)
	OnFailure    func(context.Context, *FailureEvent)
	// OnDiff receives the changes of every committed transition that changed the session.
	OnDiff func(context.Context, *SessionDiff)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTransition: chain(h.OnTransition, other.OnTransition),
		OnArtifact:   chain(h.OnArtifact, other.OnArtifact),
		OnFailure:    chain(h.OnFailure, other.OnFailure),
		OnDiff:       chain(h.OnDiff, other.OnDiff),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
