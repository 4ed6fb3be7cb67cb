// Package simulated provides an in-process stand-in for a cloud anchor service.
// Operations complete after a configured number of polls, which makes the
// controller usable from the CLI and deterministic in tests.
package simulated

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/anchorsync/pkg/domain"
	"github.com/google/uuid"
)

// Options tune the simulated service. Field tags match the provider.options config block.
type Options struct {
	// HostLatency is the number of Pending polls before a hosting operation succeeds.
	HostLatency int `mapstructure:"host_latency" yaml:"host_latency"`

	// ResolveLatency is the number of Pending polls before a resolving operation completes.
	ResolveLatency int `mapstructure:"resolve_latency" yaml:"resolve_latency"`

	// FailHosting makes every BeginHosting call fail.
	FailHosting bool `mapstructure:"fail_hosting" yaml:"fail_hosting"`

	// FailResolving makes every BeginResolving call fail.
	FailResolving bool `mapstructure:"fail_resolving" yaml:"fail_resolving"`
}

// DefaultOptions mirror a fast network: a few frames per operation.
func DefaultOptions() Options {
	return Options{
		HostLatency:    3,
		ResolveLatency: 2,
	}
}

type opKind int

const (
	opHost opKind = iota
	opResolve
)

type operation struct {
	kind      opKind
	remaining int
	anchorID  string
	pose      domain.Pose
	state     domain.AnchorState
}

// Provider implements ports.AnchorProvider and ports.HandleReleaser in memory.
// Safe for concurrent use.
type Provider struct {
	opts Options

	mu     sync.Mutex
	ops    map[domain.Handle]*operation
	hosted map[string]domain.Pose
	newID  func() string
}

// Option configures the Provider.
type Option func(*Provider)

// WithIDGenerator replaces the uuid generator used for handles and cloud identifiers.
func WithIDGenerator(gen func() string) Option {
	return func(p *Provider) {
		p.newID = gen
	}
}

// New creates a simulated provider.
func New(opts Options, options ...Option) *Provider {
	p := &Provider{
		opts:   opts,
		ops:    make(map[domain.Handle]*operation),
		hosted: make(map[string]domain.Pose),
		newID:  uuid.NewString,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// BeginHosting starts publishing an anchor at pose.
func (p *Provider) BeginHosting(ctx context.Context, pose domain.Pose) (domain.Handle, error) {
	if p.opts.FailHosting {
		return "", fmt.Errorf("%w: hosting disabled", domain.ErrHostFailure)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	handle := domain.Handle("host-" + p.newID())
	p.ops[handle] = &operation{
		kind:      opHost,
		remaining: p.opts.HostLatency,
		anchorID:  p.newID(),
		pose:      pose,
		state:     domain.AnchorPending,
	}
	return handle, nil
}

// BeginResolving starts retrieving the anchor hosted under identifier.
// Unknown identifiers are accepted and fail when the operation completes, like a real service.
func (p *Provider) BeginResolving(ctx context.Context, identifier string) (domain.Handle, error) {
	if p.opts.FailResolving {
		return "", fmt.Errorf("%w: resolving disabled", domain.ErrResolveFailure)
	}
	if identifier == "" {
		return "", fmt.Errorf("%w: empty identifier", domain.ErrResolveFailure)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	handle := domain.Handle("resolve-" + p.newID())
	p.ops[handle] = &operation{
		kind:      opResolve,
		remaining: p.opts.ResolveLatency,
		anchorID:  identifier,
		state:     domain.AnchorPending,
	}
	return handle, nil
}

// PollState advances the operation by one poll.
func (p *Provider) PollState(ctx context.Context, handle domain.Handle) (domain.AnchorState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	op, ok := p.ops[handle]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownHandle, handle)
	}
	if op.state != domain.AnchorPending {
		return op.state, nil
	}
	if op.remaining > 0 {
		op.remaining--
		return domain.AnchorPending, nil
	}

	switch op.kind {
	case opHost:
		p.hosted[op.anchorID] = op.pose
		op.state = domain.AnchorSuccess
	case opResolve:
		pose, known := p.hosted[op.anchorID]
		if !known {
			op.state = domain.AnchorFailure
			break
		}
		op.pose = pose
		op.state = domain.AnchorSuccess
	}
	return op.state, nil
}

// CompletedAnchorID returns the cloud identifier of a successful operation.
func (p *Provider) CompletedAnchorID(ctx context.Context, handle domain.Handle) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	op, ok := p.ops[handle]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownHandle, handle)
	}
	if op.state != domain.AnchorSuccess {
		return "", domain.ErrNotCompleted
	}
	return op.anchorID, nil
}

// Release forgets an operation. Hosted anchors stay resolvable.
func (p *Provider) Release(ctx context.Context, handle domain.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.ops, handle)
	return nil
}

// Hosted returns the pose an identifier was hosted at.
func (p *Provider) Hosted(identifier string) (domain.Pose, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pose, ok := p.hosted[identifier]
	return pose, ok
}

// Outstanding returns the number of operations not yet released.
func (p *Provider) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ops)
}
