package ports

import (
	"context"

	"github.com/aretw0/anchorsync/pkg/domain"
)

// AnchorProvider is the cloud anchor capability the controller drives.
// Begin* calls are fire-and-forget: completion is only observed through PollState.
type AnchorProvider interface {
	// BeginHosting publishes a local anchor at pose.
	// Returns an error wrapping domain.ErrHostFailure if no operation could be created.
	BeginHosting(ctx context.Context, pose domain.Pose) (domain.Handle, error)

	// PollState reports the state of an operation without blocking.
	PollState(ctx context.Context, handle domain.Handle) (domain.AnchorState, error)

	// BeginResolving retrieves a previously hosted anchor by identifier.
	// Returns an error wrapping domain.ErrResolveFailure if no operation could be created.
	BeginResolving(ctx context.Context, identifier string) (domain.Handle, error)

	// CompletedAnchorID returns the cloud identifier of a successful operation.
	// Returns domain.ErrNotCompleted before Success.
	CompletedAnchorID(ctx context.Context, handle domain.Handle) (string, error)
}

// HandleReleaser is optionally implemented by providers that can drop an abandoned operation.
type HandleReleaser interface {
	Release(ctx context.Context, handle domain.Handle) error
}

// ArtifactSpawner instantiates the visual artifact attached as a child of a completed anchor.
type ArtifactSpawner interface {
	Spawn(ctx context.Context, kind domain.ArtifactKind, anchor domain.Handle) error
}
