package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/anchorsync/pkg/domain"
)

// FakeProvider is a scripted ports.AnchorProvider for deterministic tests.
// Begin* calls hand out handles from the queues; PollState walks the per-handle
// script and repeats its last entry.
type FakeProvider struct {
	mu sync.Mutex

	HostHandles    []domain.Handle
	ResolveHandles []domain.Handle
	HostErr        error
	ResolveErr     error
	PollErr        error

	States map[domain.Handle][]domain.AnchorState
	IDs    map[domain.Handle]string

	Calls    []string
	Released []domain.Handle
}

// NewFakeProvider creates an empty script.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		States: make(map[domain.Handle][]domain.AnchorState),
		IDs:    make(map[domain.Handle]string),
	}
}

func (f *FakeProvider) BeginHosting(ctx context.Context, pose domain.Pose) (domain.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "BeginHosting")
	if f.HostErr != nil {
		return "", f.HostErr
	}
	if len(f.HostHandles) == 0 {
		return "", fmt.Errorf("%w: no scripted hosting handle", domain.ErrHostFailure)
	}
	h := f.HostHandles[0]
	f.HostHandles = f.HostHandles[1:]
	return h, nil
}

func (f *FakeProvider) PollState(ctx context.Context, handle domain.Handle) (domain.AnchorState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "PollState:"+string(handle))
	if f.PollErr != nil {
		return "", f.PollErr
	}
	script, ok := f.States[handle]
	if !ok || len(script) == 0 {
		return domain.AnchorPending, nil
	}
	state := script[0]
	if len(script) > 1 {
		f.States[handle] = script[1:]
	}
	return state, nil
}

func (f *FakeProvider) BeginResolving(ctx context.Context, identifier string) (domain.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "BeginResolving:"+identifier)
	if f.ResolveErr != nil {
		return "", f.ResolveErr
	}
	if len(f.ResolveHandles) == 0 {
		return "", fmt.Errorf("%w: no scripted resolving handle", domain.ErrResolveFailure)
	}
	h := f.ResolveHandles[0]
	f.ResolveHandles = f.ResolveHandles[1:]
	return h, nil
}

func (f *FakeProvider) CompletedAnchorID(ctx context.Context, handle domain.Handle) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.IDs[handle]
	if !ok {
		return "", domain.ErrNotCompleted
	}
	return id, nil
}

// Release implements ports.HandleReleaser.
func (f *FakeProvider) Release(ctx context.Context, handle domain.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Released = append(f.Released, handle)
	return nil
}

// CallLog returns a copy of the recorded calls.
func (f *FakeProvider) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

// Spawned records one artifact instantiation.
type Spawned struct {
	Kind   domain.ArtifactKind
	Anchor domain.Handle
}

// RecordingSpawner is a ports.ArtifactSpawner that remembers what it instantiated.
type RecordingSpawner struct {
	mu      sync.Mutex
	Spawned []Spawned
	Err     error
}

func (r *RecordingSpawner) Spawn(ctx context.Context, kind domain.ArtifactKind, anchor domain.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Spawned = append(r.Spawned, Spawned{Kind: kind, Anchor: anchor})
	return nil
}

// Artifacts returns a copy of the spawned artifacts.
func (r *RecordingSpawner) Artifacts() []Spawned {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Spawned(nil), r.Spawned...)
}
