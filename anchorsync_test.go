package anchorsync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/anchorsync"
	"github.com/aretw0/anchorsync/internal/testutils"
	"github.com/aretw0/anchorsync/pkg/adapters/memory"
	"github.com/aretw0/anchorsync/pkg/adapters/simulated"
	"github.com/aretw0/anchorsync/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "id" + string(rune('0'+n))
	}
}

func touchAt(x float64) *domain.TouchInput {
	pose := domain.Pose{Position: domain.Vector3{X: x}, Rotation: domain.IdentityRotation}
	return &domain.TouchInput{Began: true, Pose: &pose}
}

func TestController_FullCycle(t *testing.T) {
	provider := simulated.New(simulated.Options{HostLatency: 1, ResolveLatency: 1},
		simulated.WithIDGenerator(sequentialIDs()))
	spawner := &testutils.RecordingSpawner{}

	var transitions []string
	ctrl, err := anchorsync.New(provider,
		anchorsync.WithSpawner(spawner),
		anchorsync.WithLifecycleHooks(domain.LifecycleHooks{
			OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
				transitions = append(transitions, e.From.String()+">"+e.To.String())
			},
		}),
	)
	require.NoError(t, err)

	ctx := context.Background()
	const id = "device"

	s, err := ctrl.Tick(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAwaitingHostTrigger, s.Mode)
	assert.Equal(t, "AwaitingHostTrigger", s.Status)

	s, err = ctrl.Tick(ctx, id, touchAt(1))
	require.NoError(t, err)
	assert.Equal(t, domain.ModeHostingInProgress, s.Mode)
	assert.Equal(t, domain.Handle("host-id1"), s.PendingAnchor)

	s, err = ctrl.Tick(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, "HostingInProgress - Pending", s.Status)

	s, err = ctrl.Tick(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAwaitingResolveTrigger, s.Mode)
	assert.Equal(t, "id2", s.LastAnchorID)
	assert.Empty(t, s.PendingAnchor)

	// Idle frame renders the identifier.
	s, err = ctrl.Tick(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, "id2", s.Status)

	s, err = ctrl.Tick(ctx, id, &domain.TouchInput{Began: true})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeResolvingInProgress, s.Mode)
	assert.Empty(t, s.LastAnchorID)

	for s.Mode == domain.ModeResolvingInProgress {
		s, err = ctrl.Tick(ctx, id, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, domain.ModeAwaitingHostTrigger, s.Mode)
	assert.Equal(t, 1, s.Cycles)

	assert.Equal(t, []testutils.Spawned{
		{Kind: domain.ArtifactHosted, Anchor: "host-id1"},
		{Kind: domain.ArtifactResolved, Anchor: "resolve-id3"},
	}, spawner.Artifacts())

	assert.Equal(t, []string{
		"AwaitingHostTrigger>HostingInProgress",
		"HostingInProgress>AwaitingResolveTrigger",
		"AwaitingResolveTrigger>ResolvingInProgress",
		"ResolvingInProgress>AwaitingHostTrigger",
	}, transitions)

	assert.Zero(t, provider.Outstanding(), "completed operations must be released")

	stored, err := ctrl.Session(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, s, stored)
}

// flakyStore fails every Save while down is set.
type flakyStore struct {
	*memory.Store
	down bool
}

func (f *flakyStore) Save(ctx context.Context, sessionID string, s *domain.Session) error {
	if f.down {
		return errors.New("disk full")
	}
	return f.Store.Save(ctx, sessionID, s)
}

func TestController_FailedSaveDefersEffects(t *testing.T) {
	provider := simulated.New(simulated.Options{}, simulated.WithIDGenerator(sequentialIDs()))
	spawner := &testutils.RecordingSpawner{}
	store := &flakyStore{Store: memory.NewStore()}

	var artifacts int
	ctrl, err := anchorsync.New(provider,
		anchorsync.WithStore(store),
		anchorsync.WithSpawner(spawner),
		anchorsync.WithLifecycleHooks(domain.LifecycleHooks{
			OnArtifact: func(context.Context, *domain.ArtifactEvent) { artifacts++ },
		}),
	)
	require.NoError(t, err)

	ctx := context.Background()
	s, err := ctrl.Tick(ctx, "s", touchAt(0))
	require.NoError(t, err)
	require.Equal(t, domain.ModeHostingInProgress, s.Mode)

	store.down = true
	s, err = ctrl.Tick(ctx, "s", nil)
	assert.ErrorContains(t, err, "disk full")
	assert.Nil(t, s)
	assert.Empty(t, spawner.Artifacts(), "no artifact before the transition is saved")
	assert.Zero(t, artifacts)
	assert.Equal(t, 1, provider.Outstanding(), "handle kept until the transition is saved")

	stored, err := ctrl.Session(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeHostingInProgress, stored.Mode)

	store.down = false
	s, err = ctrl.Tick(ctx, "s", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAwaitingResolveTrigger, s.Mode)
	assert.Equal(t, "HostingInProgress - Success", s.Status)
	assert.Equal(t, "id2", s.LastAnchorID)
	assert.Len(t, spawner.Artifacts(), 1)
	assert.Equal(t, 1, artifacts)
	assert.Zero(t, provider.Outstanding())
}

func TestController_SpawnFailureIsReported(t *testing.T) {
	provider := simulated.New(simulated.Options{})
	spawner := &testutils.RecordingSpawner{Err: errors.New("no scene")}

	var failures []*domain.FailureEvent
	ctrl, err := anchorsync.New(provider,
		anchorsync.WithSpawner(spawner),
		anchorsync.WithLifecycleHooks(domain.LifecycleHooks{
			OnFailure: func(_ context.Context, e *domain.FailureEvent) {
				failures = append(failures, e)
			},
		}),
	)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = ctrl.Tick(ctx, "s", touchAt(0))
	require.NoError(t, err)

	s, err := ctrl.Tick(ctx, "s", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAwaitingResolveTrigger, s.Mode)

	require.Len(t, failures, 1)
	assert.Equal(t, domain.ModeHostingInProgress, failures[0].Mode)
	assert.Contains(t, failures[0].Err, "failed to spawn hosted artifact")
	assert.Contains(t, failures[0].Err, "no scene")
}

func TestController_DiffHook(t *testing.T) {
	var diffs []*domain.SessionDiff
	ctrl, err := anchorsync.New(simulated.New(simulated.DefaultOptions()),
		anchorsync.WithLifecycleHooks(domain.LifecycleHooks{
			OnDiff: func(_ context.Context, d *domain.SessionDiff) {
				diffs = append(diffs, d)
			},
		}),
	)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = ctrl.Tick(ctx, "s", nil)
	require.NoError(t, err)
	assert.Empty(t, diffs, "idle tick on a fresh session changes nothing")

	_, err = ctrl.Tick(ctx, "s", touchAt(0))
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	require.NotNil(t, diffs[0].Mode)
	assert.Equal(t, domain.ModeHostingInProgress, *diffs[0].Mode)
	assert.Equal(t, "s", diffs[0].SessionID)
}

func TestController_TouchOverUIIsIgnored(t *testing.T) {
	ctrl, err := anchorsync.New(simulated.New(simulated.DefaultOptions()))
	require.NoError(t, err)

	in := touchAt(0)
	in.OverUI = true

	s, err := ctrl.Tick(context.Background(), "s", in)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAwaitingHostTrigger, s.Mode)
}

func TestController_SubmitPreemptsAndReleases(t *testing.T) {
	provider := simulated.New(simulated.Options{HostLatency: 10}, simulated.WithIDGenerator(sequentialIDs()))
	ctrl, err := anchorsync.New(provider)
	require.NoError(t, err)

	ctx := context.Background()
	s, err := ctrl.Tick(ctx, "s", touchAt(0))
	require.NoError(t, err)
	require.Equal(t, domain.ModeHostingInProgress, s.Mode)
	require.Equal(t, 1, provider.Outstanding())

	s, err = ctrl.SubmitIdentifier(ctx, "s", "cloud-42")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeResolvingInProgress, s.Mode)
	assert.NotEqual(t, domain.Handle("host-id1"), s.PendingAnchor)
	assert.Equal(t, 1, provider.Outstanding(), "hosting operation must be released on preemption")
}

func TestController_ResolveUnknownIdentifierFails(t *testing.T) {
	provider := simulated.New(simulated.Options{})
	var failures []*domain.FailureEvent
	ctrl, err := anchorsync.New(provider, anchorsync.WithLifecycleHooks(domain.LifecycleHooks{
		OnFailure: func(_ context.Context, e *domain.FailureEvent) {
			failures = append(failures, e)
		},
	}))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = ctrl.SubmitIdentifier(ctx, "s", "nope")
	require.NoError(t, err)

	s, err := ctrl.Tick(ctx, "s", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAwaitingHostTrigger, s.Mode)
	assert.Equal(t, "Resolve Failed!", s.Status)

	require.Len(t, failures, 1)
	assert.Equal(t, domain.ModeResolvingInProgress, failures[0].Mode)
	assert.Equal(t, "s", failures[0].SessionID)
}

func TestController_CreateFailedStaysPut(t *testing.T) {
	ctrl, err := anchorsync.New(simulated.New(simulated.Options{FailHosting: true}))
	require.NoError(t, err)

	s, err := ctrl.Tick(context.Background(), "s", touchAt(0))
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAwaitingHostTrigger, s.Mode)
	assert.Equal(t, "Create Failed!", s.Status)
}

func TestController_Reset(t *testing.T) {
	provider := simulated.New(simulated.Options{HostLatency: 5})
	ctrl, err := anchorsync.New(provider)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = ctrl.Tick(ctx, "s", touchAt(0))
	require.NoError(t, err)
	require.Equal(t, 1, provider.Outstanding())

	require.NoError(t, ctrl.Reset(ctx, "s"))
	assert.Zero(t, provider.Outstanding())

	_, err = ctrl.Session(ctx, "s")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// Resetting an unknown session is a no-op.
	assert.NoError(t, ctrl.Reset(ctx, "ghost"))
}

func TestController_StartAndList(t *testing.T) {
	ctrl, err := anchorsync.New(simulated.New(simulated.DefaultOptions()))
	require.NoError(t, err)

	ctx := context.Background()
	s, err := ctrl.Start(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAwaitingHostTrigger, s.Mode)

	_, err = ctrl.Start(ctx, "a")
	require.NoError(t, err)

	ids, err := ctrl.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestController_ClockStampsTransitions(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ctrl, err := anchorsync.New(simulated.New(simulated.DefaultOptions()),
		anchorsync.WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	s, err := ctrl.Tick(context.Background(), "s", touchAt(0))
	require.NoError(t, err)
	assert.Equal(t, fixed, s.UpdatedAt)
}

func TestNew_RequiresProvider(t *testing.T) {
	_, err := anchorsync.New(nil)
	assert.Error(t, err)
}
