package anchorsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/anchorsync/internal/logging"
	"github.com/aretw0/anchorsync/internal/runtime"
	"github.com/aretw0/anchorsync/pkg/adapters/artifact"
	"github.com/aretw0/anchorsync/pkg/adapters/memory"
	"github.com/aretw0/anchorsync/pkg/domain"
	"github.com/aretw0/anchorsync/pkg/ports"
	"github.com/aretw0/anchorsync/pkg/session"
)

// Controller is the high-level entry point of the library.
// It loads a session, runs one transition, persists the next snapshot and then
// applies the resulting effects (artifacts, handle releases, hooks), all under
// the session lock.
type Controller struct {
	engine   *runtime.Engine
	provider ports.AnchorProvider
	sessions *session.Manager
	spawner  ports.ArtifactSpawner
	hooks    domain.LifecycleHooks
	logger   *slog.Logger

	store  ports.SessionStore
	locker ports.DistributedLocker
	now    func() time.Time
}

// Option defines a functional option for configuring the Controller.
type Option func(*Controller)

// WithStore sets the session store (default: in-memory).
func WithStore(store ports.SessionStore) Option {
	return func(c *Controller) {
		c.store = store
	}
}

// WithLocker enables distributed session locking across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(c *Controller) {
		c.locker = locker
	}
}

// WithSpawner sets where artifacts are instantiated (default: discarded).
func WithSpawner(spawner ports.ArtifactSpawner) Option {
	return func(c *Controller) {
		c.spawner = spawner
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = c.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithClock overrides the time source for transitions and events.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New creates a Controller driving the given provider.
func New(provider ports.AnchorProvider, opts ...Option) (*Controller, error) {
	if provider == nil {
		return nil, errors.New("anchor provider is required")
	}

	c := &Controller{
		provider: provider,
		spawner:  artifact.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	if c.store == nil {
		c.store = memory.NewStore()
	}

	sessionOpts := []session.Option{session.WithLogger(c.logger)}
	if c.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(c.locker))
	}
	c.sessions = session.NewManager(c.store, sessionOpts...)

	c.engine = runtime.NewEngine(provider,
		runtime.WithLogger(c.logger),
		runtime.WithClock(c.now),
	)
	return c, nil
}

// Tick advances the session by one poll cycle. input is nil when no touch occurred.
// Unknown sessions start in AwaitingHostTrigger.
func (c *Controller) Tick(ctx context.Context, sessionID string, input *domain.TouchInput) (*domain.Session, error) {
	return c.transition(ctx, sessionID, func(ctx context.Context, s *domain.Session) (*runtime.Result, error) {
		return c.engine.Tick(ctx, s, input)
	})
}

// SubmitIdentifier starts resolving identifier, preempting whatever the session was doing.
func (c *Controller) SubmitIdentifier(ctx context.Context, sessionID, identifier string) (*domain.Session, error) {
	return c.transition(ctx, sessionID, func(ctx context.Context, s *domain.Session) (*runtime.Result, error) {
		return c.engine.Submit(ctx, s, identifier)
	})
}

// transition runs step under the session lock and applies its effects once the
// next snapshot is saved. A failed save leaves both the store and the provider
// untouched, so the same transition is computed again on the next call.
func (c *Controller) transition(ctx context.Context, sessionID string, step func(context.Context, *domain.Session) (*runtime.Result, error)) (*domain.Session, error) {
	var (
		prev *domain.Session
		res  *runtime.Result
	)
	return c.sessions.Update(ctx, sessionID,
		func(ctx context.Context, s *domain.Session) (*domain.Session, error) {
			r, err := step(ctx, s)
			if err != nil {
				return nil, err
			}
			prev, res = s, r
			return r.Session, nil
		},
		func(ctx context.Context, _ *domain.Session) {
			c.apply(ctx, prev, res)
		},
	)
}

// Session returns the stored snapshot, or domain.ErrSessionNotFound.
func (c *Controller) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	return c.sessions.Load(ctx, sessionID)
}

// Start returns the stored snapshot, creating a fresh session if needed.
func (c *Controller) Start(ctx context.Context, sessionID string) (*domain.Session, error) {
	return c.sessions.LoadOrStart(ctx, sessionID)
}

// Sessions lists stored session IDs.
func (c *Controller) Sessions(ctx context.Context) ([]string, error) {
	return c.sessions.List(ctx)
}

// Reset deletes a session, releasing its outstanding operation if any.
func (c *Controller) Reset(ctx context.Context, sessionID string) error {
	return c.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		s, err := c.store.Load(ctx, sessionID)
		if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return err
		}
		if s != nil && s.PendingAnchor != "" {
			c.release(ctx, sessionID, s.PendingAnchor)
		}
		return c.store.Delete(ctx, sessionID)
	})
}

// apply performs the effects of a committed transition and fires hooks.
// Effect failures are logged and reported through OnFailure: the transition itself already happened.
func (c *Controller) apply(ctx context.Context, prev *domain.Session, res *runtime.Result) {
	next := res.Session
	now := c.now()

	for _, eff := range res.Effects {
		switch eff.Type {
		case domain.EffectSpawnArtifact:
			if err := c.spawner.Spawn(ctx, eff.Artifact, eff.Anchor); err != nil {
				c.logger.Warn("Failed to spawn artifact",
					"session_id", next.ID,
					"kind", eff.Artifact,
					"anchor", eff.Anchor,
					"err", err,
				)
				c.fail(ctx, next.ID, prev.Mode, now, fmt.Errorf("failed to spawn %s artifact: %w", eff.Artifact, err))
				continue
			}
			if c.hooks.OnArtifact != nil {
				c.hooks.OnArtifact(ctx, &domain.ArtifactEvent{
					EventBase: domain.EventBase{Timestamp: now, Type: domain.EventArtifact, SessionID: next.ID},
					Kind:      eff.Artifact,
					Anchor:    eff.Anchor,
					AnchorID:  eff.AnchorID,
				})
			}
		case domain.EffectReleaseHandle:
			c.release(ctx, next.ID, eff.Anchor)
		}
	}

	if res.Failure != nil {
		c.fail(ctx, next.ID, prev.Mode, now, res.Failure)
	}

	if prev.Mode != next.Mode && c.hooks.OnTransition != nil {
		c.hooks.OnTransition(ctx, &domain.TransitionEvent{
			EventBase: domain.EventBase{Timestamp: now, Type: domain.EventTransition, SessionID: next.ID},
			From:      prev.Mode,
			To:        next.Mode,
		})
	}

	if c.hooks.OnDiff != nil {
		if diff := domain.Diff(prev, next); diff != nil {
			c.hooks.OnDiff(ctx, diff)
		}
	}
}

func (c *Controller) fail(ctx context.Context, sessionID string, mode domain.Mode, now time.Time, err error) {
	if c.hooks.OnFailure == nil {
		return
	}
	c.hooks.OnFailure(ctx, &domain.FailureEvent{
		EventBase: domain.EventBase{Timestamp: now, Type: domain.EventFailure, SessionID: sessionID},
		Mode:      mode,
		Err:       err.Error(),
	})
}

func (c *Controller) release(ctx context.Context, sessionID string, handle domain.Handle) {
	r, ok := c.provider.(ports.HandleReleaser)
	if !ok {
		return
	}
	if err := r.Release(ctx, handle); err != nil {
		c.logger.Warn("Failed to release anchor handle",
			"session_id", sessionID,
			"anchor", handle,
			"err", err,
		)
	}
}
