package runtime_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/aretw0/anchorsync/internal/logging"
	"github.com/aretw0/anchorsync/internal/runtime"
	"github.com/aretw0/anchorsync/internal/testutils"
	"github.com/aretw0/anchorsync/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPose = domain.Pose{
	Position: domain.Vector3{X: 0.1, Y: 0, Z: -1.2},
	Rotation: domain.IdentityRotation,
}

func touchWithPose() *domain.TouchInput {
	p := testPose
	return &domain.TouchInput{Began: true, Pose: &p}
}

func touch() *domain.TouchInput {
	return &domain.TouchInput{Began: true}
}

func spawns(res *runtime.Result) []domain.Effect {
	var out []domain.Effect
	for _, eff := range res.Effects {
		if eff.Type == domain.EffectSpawnArtifact {
			out = append(out, eff)
		}
	}
	return out
}

func tick(t *testing.T, eng *runtime.Engine, s *domain.Session, in *domain.TouchInput) *runtime.Result {
	t.Helper()
	res, err := eng.Tick(context.Background(), s, in)
	require.NoError(t, err)
	require.True(t, res.Session.Consistent(), "pending anchor must agree with mode %s", res.Session.Mode)
	return res
}

func TestEngine_HostingStarts(t *testing.T) {
	provider := testutils.NewFakeProvider()
	provider.HostHandles = []domain.Handle{"H1"}
	eng := runtime.NewEngine(provider)

	res := tick(t, eng, domain.NewSession("s1"), touchWithPose())

	assert.Equal(t, domain.ModeHostingInProgress, res.Session.Mode)
	assert.Equal(t, domain.Handle("H1"), res.Session.PendingAnchor)
	assert.Equal(t, "HostingInProgress - Pending", res.Session.Status)
	assert.NoError(t, res.Failure)
	assert.Empty(t, res.Effects)
}

func TestEngine_AwaitingHostIgnoresStaleTouches(t *testing.T) {
	provider := testutils.NewFakeProvider()
	provider.HostHandles = []domain.Handle{"H1"}
	eng := runtime.NewEngine(provider)
	p := testPose

	inputs := []*domain.TouchInput{
		nil,
		{Began: false, Pose: &p},
		{Began: true, OverUI: true, Pose: &p},
		{Began: true}, // raycast missed
	}
	s := domain.NewSession("s1")
	for _, in := range inputs {
		res := tick(t, eng, s, in)
		assert.Equal(t, domain.ModeAwaitingHostTrigger, res.Session.Mode)
		assert.Equal(t, "AwaitingHostTrigger", res.Session.Status)
		s = res.Session
	}
	assert.Empty(t, provider.CallLog(), "no provider call without a fresh posed touch")
}

func TestEngine_HostingFailureStaysAndRetries(t *testing.T) {
	provider := testutils.NewFakeProvider()
	provider.HostErr = errors.New("sdk returned null")
	eng := runtime.NewEngine(provider)

	res := tick(t, eng, domain.NewSession("s1"), touchWithPose())

	assert.Equal(t, domain.ModeAwaitingHostTrigger, res.Session.Mode)
	assert.Empty(t, res.Session.PendingAnchor)
	assert.Equal(t, runtime.StatusCreateFailed, res.Session.Status)
	assert.ErrorIs(t, res.Failure, domain.ErrHostFailure)
	assert.Empty(t, res.Effects)

	// Next touch retries.
	provider.HostErr = nil
	provider.HostHandles = []domain.Handle{"H2"}
	res = tick(t, eng, res.Session, touchWithPose())
	assert.Equal(t, domain.ModeHostingInProgress, res.Session.Mode)
	assert.Equal(t, domain.Handle("H2"), res.Session.PendingAnchor)
}

func TestEngine_FullCycle(t *testing.T) {
	provider := testutils.NewFakeProvider()
	provider.HostHandles = []domain.Handle{"H1"}
	provider.ResolveHandles = []domain.Handle{"R1"}
	provider.States["H1"] = []domain.AnchorState{domain.AnchorPending, domain.AnchorPending, domain.AnchorSuccess}
	provider.States["R1"] = []domain.AnchorState{domain.AnchorPending, domain.AnchorSuccess}
	provider.IDs["H1"] = "abc123"
	eng := runtime.NewEngine(provider)

	var effects []domain.Effect
	s := domain.NewSession("s1")

	// Host trigger.
	res := tick(t, eng, s, touchWithPose())
	require.Equal(t, domain.ModeHostingInProgress, res.Session.Mode)
	s = res.Session

	// Pending polls leave the mode unchanged.
	for i := 0; i < 2; i++ {
		res = tick(t, eng, s, nil)
		assert.Equal(t, domain.ModeHostingInProgress, res.Session.Mode)
		assert.Equal(t, domain.Handle("H1"), res.Session.PendingAnchor)
		assert.Equal(t, "HostingInProgress - Pending", res.Session.Status)
		s = res.Session
	}

	// Hosting completes.
	res = tick(t, eng, s, nil)
	assert.Equal(t, domain.ModeAwaitingResolveTrigger, res.Session.Mode)
	assert.Equal(t, "abc123", res.Session.LastAnchorID)
	assert.Empty(t, res.Session.PendingAnchor)
	assert.Equal(t, "HostingInProgress - Success", res.Session.Status)
	effects = append(effects, spawns(res)...)
	s = res.Session

	// Awaiting resolve shows the identifier.
	res = tick(t, eng, s, nil)
	assert.Equal(t, "abc123", res.Session.Status)
	s = res.Session

	// Resolve trigger.
	res = tick(t, eng, s, touch())
	assert.Equal(t, domain.ModeResolvingInProgress, res.Session.Mode)
	assert.Equal(t, domain.Handle("R1"), res.Session.PendingAnchor)
	assert.Empty(t, res.Session.LastAnchorID, "identifier cleared before resolving")
	s = res.Session

	res = tick(t, eng, s, nil)
	assert.Equal(t, domain.ModeResolvingInProgress, res.Session.Mode)
	s = res.Session

	res = tick(t, eng, s, nil)
	assert.Equal(t, domain.ModeAwaitingHostTrigger, res.Session.Mode)
	assert.Empty(t, res.Session.PendingAnchor)
	assert.Equal(t, 1, res.Session.Cycles)
	effects = append(effects, spawns(res)...)

	require.Len(t, effects, 2)
	assert.Equal(t, domain.ArtifactHosted, effects[0].Artifact)
	assert.Equal(t, domain.Handle("H1"), effects[0].Anchor)
	assert.Equal(t, "abc123", effects[0].AnchorID)
	assert.Equal(t, domain.ArtifactResolved, effects[1].Artifact)
	assert.Equal(t, domain.Handle("R1"), effects[1].Anchor)

	assert.Contains(t, provider.CallLog(), "BeginResolving:abc123")
}

func TestEngine_ResolveTriggerFailure(t *testing.T) {
	provider := testutils.NewFakeProvider()
	provider.ResolveErr = errors.New("no network")
	eng := runtime.NewEngine(provider)

	s := &domain.Session{ID: "s1", Mode: domain.ModeAwaitingResolveTrigger, LastAnchorID: "abc123"}
	res := tick(t, eng, s, touch())

	assert.Equal(t, domain.ModeAwaitingHostTrigger, res.Session.Mode)
	assert.Empty(t, res.Session.LastAnchorID)
	assert.Equal(t, runtime.StatusResolveFailed, res.Session.Status)
	assert.ErrorIs(t, res.Failure, domain.ErrResolveFailure)
}

func TestEngine_ResolveTriggerIgnoresUITouch(t *testing.T) {
	provider := testutils.NewFakeProvider()
	eng := runtime.NewEngine(provider)

	s := &domain.Session{ID: "s1", Mode: domain.ModeAwaitingResolveTrigger, LastAnchorID: "abc123"}
	res := tick(t, eng, s, &domain.TouchInput{Began: true, OverUI: true})

	assert.Equal(t, domain.ModeAwaitingResolveTrigger, res.Session.Mode)
	assert.Equal(t, "abc123", res.Session.LastAnchorID)
	assert.Empty(t, provider.CallLog())
}

func TestEngine_PollFailureReturnsToHostTrigger(t *testing.T) {
	tests := []struct {
		name       string
		mode       domain.Mode
		wantStatus string
		wantErr    error
	}{
		{"hosting", domain.ModeHostingInProgress, runtime.StatusHostFailed, domain.ErrHostFailure},
		{"resolving", domain.ModeResolvingInProgress, runtime.StatusResolveFailed, domain.ErrResolveFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := testutils.NewFakeProvider()
			provider.States["P"] = []domain.AnchorState{domain.AnchorFailure}
			eng := runtime.NewEngine(provider)

			s := &domain.Session{ID: "s1", Mode: tt.mode, PendingAnchor: "P"}
			res := tick(t, eng, s, nil)

			assert.Equal(t, domain.ModeAwaitingHostTrigger, res.Session.Mode)
			assert.Empty(t, res.Session.PendingAnchor)
			assert.Equal(t, tt.wantStatus, res.Session.Status)
			assert.ErrorIs(t, res.Failure, tt.wantErr)
			assert.Empty(t, spawns(res))
			require.Len(t, res.Effects, 1)
			assert.Equal(t, domain.Effect{Type: domain.EffectReleaseHandle, Anchor: "P"}, res.Effects[0])
		})
	}
}

func TestEngine_PollErrorRetries(t *testing.T) {
	provider := testutils.NewFakeProvider()
	provider.PollErr = errors.New("timeout")
	eng := runtime.NewEngine(provider)

	s := &domain.Session{ID: "s1", Mode: domain.ModeHostingInProgress, PendingAnchor: "H1"}
	res := tick(t, eng, s, nil)

	assert.Equal(t, domain.ModeHostingInProgress, res.Session.Mode)
	assert.Equal(t, domain.Handle("H1"), res.Session.PendingAnchor)
	assert.Equal(t, "HostingInProgress - Unavailable", res.Session.Status)
	assert.NoError(t, res.Failure)
}

func TestEngine_PollUnknownHandleAborts(t *testing.T) {
	provider := testutils.NewFakeProvider()
	provider.PollErr = domain.ErrUnknownHandle
	eng := runtime.NewEngine(provider)

	s := &domain.Session{ID: "s1", Mode: domain.ModeResolvingInProgress, PendingAnchor: "R1"}
	res := tick(t, eng, s, nil)

	assert.Equal(t, domain.ModeAwaitingHostTrigger, res.Session.Mode)
	assert.ErrorIs(t, res.Failure, domain.ErrResolveFailure)
}

func TestEngine_ResolvedWithoutIdentifierIsLogged(t *testing.T) {
	provider := testutils.NewFakeProvider()
	provider.States["R1"] = []domain.AnchorState{domain.AnchorSuccess}

	var logs bytes.Buffer
	eng := runtime.NewEngine(provider, runtime.WithLogger(logging.NewWithWriter(&logs, slog.LevelDebug)))

	s := &domain.Session{ID: "s1", Mode: domain.ModeResolvingInProgress, PendingAnchor: "R1"}
	res := tick(t, eng, s, nil)

	assert.Equal(t, domain.ModeAwaitingHostTrigger, res.Session.Mode)
	require.Len(t, spawns(res), 1)
	assert.Empty(t, spawns(res)[0].AnchorID)
	assert.Contains(t, logs.String(), "Resolved anchor has no identifier")
	assert.Contains(t, logs.String(), domain.ErrNotCompleted.Error())
}

func TestEngine_SubmitPreemptsHosting(t *testing.T) {
	provider := testutils.NewFakeProvider()
	provider.ResolveHandles = []domain.Handle{"H2"}
	eng := runtime.NewEngine(provider)

	s := &domain.Session{ID: "s1", Mode: domain.ModeHostingInProgress, PendingAnchor: "H1"}
	res, err := eng.Submit(context.Background(), s, "abc123")
	require.NoError(t, err)

	assert.Equal(t, domain.ModeResolvingInProgress, res.Session.Mode)
	assert.Equal(t, domain.Handle("H2"), res.Session.PendingAnchor)
	require.Len(t, res.Effects, 1)
	assert.Equal(t, domain.EffectReleaseHandle, res.Effects[0].Type)
	assert.Equal(t, domain.Handle("H1"), res.Effects[0].Anchor)

	// Snapshot passed in is untouched.
	assert.Equal(t, domain.Handle("H1"), s.PendingAnchor)
}

func TestEngine_SubmitFailureForcesHostTrigger(t *testing.T) {
	provider := testutils.NewFakeProvider()
	provider.ResolveErr = errors.New("invalid id")
	eng := runtime.NewEngine(provider)

	s := &domain.Session{ID: "s1", Mode: domain.ModeHostingInProgress, PendingAnchor: "H1"}
	res, err := eng.Submit(context.Background(), s, "bogus")
	require.NoError(t, err)

	assert.Equal(t, domain.ModeAwaitingHostTrigger, res.Session.Mode)
	assert.Empty(t, res.Session.PendingAnchor)
	assert.Equal(t, runtime.StatusResolveFailed, res.Session.Status)
	assert.ErrorIs(t, res.Failure, domain.ErrResolveFailure)
}

func TestEngine_SubmitFromEveryMode(t *testing.T) {
	starts := []*domain.Session{
		{ID: "s", Mode: domain.ModeAwaitingHostTrigger},
		{ID: "s", Mode: domain.ModeHostingInProgress, PendingAnchor: "H"},
		{ID: "s", Mode: domain.ModeAwaitingResolveTrigger, LastAnchorID: "old"},
		{ID: "s", Mode: domain.ModeResolvingInProgress, PendingAnchor: "R"},
	}
	for _, s := range starts {
		t.Run(s.Mode.String(), func(t *testing.T) {
			provider := testutils.NewFakeProvider()
			provider.ResolveHandles = []domain.Handle{"NEW"}
			eng := runtime.NewEngine(provider)

			res, err := eng.Submit(context.Background(), s, "abc123")
			require.NoError(t, err)
			assert.Equal(t, domain.ModeResolvingInProgress, res.Session.Mode)
			assert.Equal(t, domain.Handle("NEW"), res.Session.PendingAnchor)
			assert.Empty(t, res.Session.LastAnchorID)
			assert.Equal(t, []string{"BeginResolving:abc123"}, provider.CallLog())
		})
	}
}

func TestEngine_RejectsInvalidSnapshots(t *testing.T) {
	eng := runtime.NewEngine(testutils.NewFakeProvider())
	ctx := context.Background()

	_, err := eng.Tick(ctx, &domain.Session{ID: "s", Mode: "Flying"}, nil)
	assert.ErrorIs(t, err, domain.ErrUnknownMode)

	_, err = eng.Tick(ctx, &domain.Session{ID: "s", Mode: domain.ModeHostingInProgress}, nil)
	assert.ErrorIs(t, err, domain.ErrInconsistentSession)

	_, err = eng.Submit(ctx, nil, "abc")
	assert.ErrorIs(t, err, domain.ErrInconsistentSession)
}

func TestEngine_CancelledContext(t *testing.T) {
	provider := testutils.NewFakeProvider()
	eng := runtime.NewEngine(provider)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Tick(ctx, domain.NewSession("s"), touchWithPose())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, provider.CallLog())
}

func TestEngine_StampsTransitions(t *testing.T) {
	provider := testutils.NewFakeProvider()
	provider.HostHandles = []domain.Handle{"H1"}
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	eng := runtime.NewEngine(provider, runtime.WithClock(func() time.Time { return fixed }))

	res := tick(t, eng, domain.NewSession("s"), nil)
	assert.True(t, res.Session.UpdatedAt.IsZero(), "idle ticks do not stamp")

	res = tick(t, eng, res.Session, touchWithPose())
	assert.Equal(t, fixed, res.Session.UpdatedAt)
}

// TestEngine_RandomWalkKeepsInvariants drives the engine with random stimuli and
// provider outcomes and checks that at most one operation is ever outstanding.
func TestEngine_RandomWalkKeepsInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	provider := &randomProvider{rng: rng}
	eng := runtime.NewEngine(provider)
	s := domain.NewSession("walk")

	for i := 0; i < 2000; i++ {
		var res *runtime.Result
		var err error
		switch rng.Intn(6) {
		case 0:
			res, err = eng.Submit(context.Background(), s, "abc")
		case 1, 2:
			res, err = eng.Tick(context.Background(), s, touchWithPose())
		default:
			res, err = eng.Tick(context.Background(), s, nil)
		}
		require.NoError(t, err)
		require.True(t, res.Session.Consistent(), "step %d: mode %s pending %q", i, res.Session.Mode, res.Session.PendingAnchor)

		require.LessOrEqual(t, len(spawns(res)), 1)
		s = res.Session
	}
}

type randomProvider struct {
	rng *rand.Rand
	n   int
}

func (p *randomProvider) next() domain.Handle {
	p.n++
	return domain.Handle("h" + string(rune('a'+p.n%26)))
}

func (p *randomProvider) BeginHosting(ctx context.Context, pose domain.Pose) (domain.Handle, error) {
	if p.rng.Intn(4) == 0 {
		return "", domain.ErrHostFailure
	}
	return p.next(), nil
}

func (p *randomProvider) PollState(ctx context.Context, handle domain.Handle) (domain.AnchorState, error) {
	switch p.rng.Intn(5) {
	case 0:
		return domain.AnchorSuccess, nil
	case 1:
		return domain.AnchorFailure, nil
	case 2:
		return "", errors.New("flaky")
	}
	return domain.AnchorPending, nil
}

func (p *randomProvider) BeginResolving(ctx context.Context, identifier string) (domain.Handle, error) {
	if p.rng.Intn(4) == 0 {
		return "", domain.ErrResolveFailure
	}
	return p.next(), nil
}

func (p *randomProvider) CompletedAnchorID(ctx context.Context, handle domain.Handle) (string, error) {
	return "id-" + string(handle), nil
}
