package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/anchorsync/internal/logging"
	"github.com/aretw0/anchorsync/pkg/domain"
	"github.com/aretw0/anchorsync/pkg/ports"
)

// Engine is the anchor session state machine.
// It holds no session state: every call takes a snapshot and returns the next one,
// so the host binding (frame loop, HTTP, MCP) owns where sessions live.
type Engine struct {
	provider ports.AnchorProvider
	logger   *slog.Logger
	now      func() time.Time
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source used to stamp transitions.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine that drives the given provider.
func NewEngine(provider ports.AnchorProvider, opts ...EngineOption) *Engine {
	e := &Engine{
		provider: provider,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of a single transition.
type Result struct {
	// Session is the next snapshot. The input snapshot is never mutated.
	Session *domain.Session

	// Effects are the side effects the host must apply, in order.
	Effects []domain.Effect

	// Failure is the provider failure recovered during this transition, if any.
	// It wraps domain.ErrHostFailure or domain.ErrResolveFailure.
	Failure error
}

// Tick advances the session by one poll cycle. input may be nil when no touch occurred.
// Provider failures are recovered into the session status; only invalid snapshots
// and cancelled contexts are returned as errors.
func (e *Engine) Tick(ctx context.Context, s *domain.Session, input *domain.TouchInput) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateSession(s); err != nil {
		return nil, err
	}

	res := &Result{Session: s.Snapshot()}

	switch s.Mode {
	case domain.ModeAwaitingHostTrigger:
		e.awaitHostTrigger(ctx, res, input)
	case domain.ModeHostingInProgress:
		e.pollHosting(ctx, res)
	case domain.ModeAwaitingResolveTrigger:
		e.awaitResolveTrigger(ctx, res, input)
	case domain.ModeResolvingInProgress:
		e.pollResolving(ctx, res)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMode, s.Mode)
	}

	e.stamp(s, res)
	return res, nil
}

// Submit starts resolving identifier from any mode, preempting an outstanding operation.
func (e *Engine) Submit(ctx context.Context, s *domain.Session, identifier string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateSession(s); err != nil {
		return nil, err
	}

	res := &Result{Session: s.Snapshot()}
	next := res.Session
	next.LastAnchorID = ""

	if abandoned := next.PendingAnchor; abandoned != "" {
		e.logger.Debug("Preempting outstanding operation",
			"session_id", next.ID,
			"mode", next.Mode,
			"anchor", abandoned,
		)
		release(res, abandoned)
	}

	handle, err := e.provider.BeginResolving(ctx, identifier)
	if err == nil && handle == "" {
		err = errors.New("provider returned an empty handle")
	}
	if err != nil {
		res.Failure = asFailure(domain.ErrResolveFailure, err)
		next.Mode = domain.ModeAwaitingHostTrigger
		next.Status = StatusResolveFailed
		e.stamp(s, res)
		return res, nil
	}

	next.PendingAnchor = handle
	next.Mode = domain.ModeResolvingInProgress
	next.Status = renderPolling(next.Mode, domain.AnchorPending.String())
	e.stamp(s, res)
	return res, nil
}

func (e *Engine) awaitHostTrigger(ctx context.Context, res *Result, input *domain.TouchInput) {
	next := res.Session
	next.Status = renderAwaiting(next)

	if !input.HasPose() {
		return
	}

	next.LastAnchorID = ""
	handle, err := e.provider.BeginHosting(ctx, *input.Pose)
	if err == nil && handle == "" {
		err = errors.New("provider returned an empty handle")
	}
	if err != nil {
		// Stay put: the next touch retries.
		res.Failure = asFailure(domain.ErrHostFailure, err)
		next.Status = StatusCreateFailed
		return
	}

	next.PendingAnchor = handle
	next.Mode = domain.ModeHostingInProgress
	next.Status = renderPolling(next.Mode, domain.AnchorPending.String())
}

func (e *Engine) pollHosting(ctx context.Context, res *Result) {
	next := res.Session
	handle := next.PendingAnchor

	state, ok := e.poll(ctx, res)
	if !ok {
		return
	}

	switch state {
	case domain.AnchorSuccess:
		id, err := e.provider.CompletedAnchorID(ctx, handle)
		if err != nil {
			e.abort(res, domain.ErrHostFailure, err, StatusHostFailed)
			return
		}
		res.Effects = append(res.Effects, domain.Effect{
			Type:     domain.EffectSpawnArtifact,
			Artifact: domain.ArtifactHosted,
			Anchor:   handle,
			AnchorID: id,
		})
		next.LastAnchorID = id
		release(res, handle)
		next.Mode = domain.ModeAwaitingResolveTrigger
	case domain.AnchorFailure:
		e.abort(res, domain.ErrHostFailure, errors.New("provider reported failure"), StatusHostFailed)
	}
}

func (e *Engine) awaitResolveTrigger(ctx context.Context, res *Result, input *domain.TouchInput) {
	next := res.Session
	next.Status = renderAwaiting(next)

	if !input.Fresh() {
		return
	}

	identifier := next.LastAnchorID
	next.LastAnchorID = ""

	handle, err := e.provider.BeginResolving(ctx, identifier)
	if err == nil && handle == "" {
		err = errors.New("provider returned an empty handle")
	}
	if err != nil {
		res.Failure = asFailure(domain.ErrResolveFailure, err)
		next.Mode = domain.ModeAwaitingHostTrigger
		next.Status = StatusResolveFailed
		return
	}

	next.PendingAnchor = handle
	next.Mode = domain.ModeResolvingInProgress
	next.Status = renderPolling(next.Mode, domain.AnchorPending.String())
}

func (e *Engine) pollResolving(ctx context.Context, res *Result) {
	next := res.Session
	handle := next.PendingAnchor

	state, ok := e.poll(ctx, res)
	if !ok {
		return
	}

	switch state {
	case domain.AnchorSuccess:
		// Resolved anchors keep the identifier they were resolved from, if the provider knows it.
		id, err := e.provider.CompletedAnchorID(ctx, handle)
		if err != nil {
			e.logger.Debug("Resolved anchor has no identifier",
				"session_id", next.ID,
				"anchor", handle,
				"err", err,
			)
		}
		res.Effects = append(res.Effects, domain.Effect{
			Type:     domain.EffectSpawnArtifact,
			Artifact: domain.ArtifactResolved,
			Anchor:   handle,
			AnchorID: id,
		})
		release(res, handle)
		next.Mode = domain.ModeAwaitingHostTrigger
		next.Cycles++
	case domain.AnchorFailure:
		e.abort(res, domain.ErrResolveFailure, errors.New("provider reported failure"), StatusResolveFailed)
	}
}

// poll queries the pending operation and writes the polling status.
// It returns false when the provider could not be reached; the session then retries next cycle.
func (e *Engine) poll(ctx context.Context, res *Result) (domain.AnchorState, bool) {
	next := res.Session

	state, err := e.provider.PollState(ctx, next.PendingAnchor)
	if errors.Is(err, domain.ErrUnknownHandle) {
		// The provider forgot the operation (e.g. it restarted); nothing left to poll.
		return domain.AnchorFailure, true
	}
	if err != nil {
		e.logger.Warn("Failed to poll anchor operation",
			"session_id", next.ID,
			"anchor", next.PendingAnchor,
			"err", err,
		)
		next.Status = renderPolling(next.Mode, statusUnavailable)
		return "", false
	}

	next.Status = renderPolling(next.Mode, state.String())
	return state, true
}

// abort drops the pending operation and returns to the host trigger.
func (e *Engine) abort(res *Result, kind, cause error, status string) {
	next := res.Session
	res.Failure = asFailure(kind, cause)
	release(res, next.PendingAnchor)
	next.LastAnchorID = ""
	next.Mode = domain.ModeAwaitingHostTrigger
	next.Status = status
}

// release gives up ownership of the pending handle.
func release(res *Result, handle domain.Handle) {
	res.Session.PendingAnchor = ""
	res.Effects = append(res.Effects, domain.Effect{
		Type:   domain.EffectReleaseHandle,
		Anchor: handle,
	})
}

func (e *Engine) stamp(prev *domain.Session, res *Result) {
	next := res.Session
	if prev.Mode != next.Mode {
		e.logger.Debug("Session transition",
			"session_id", next.ID,
			"from", prev.Mode,
			"to", next.Mode,
		)
	}
	if res.Failure != nil {
		e.logger.Warn("Recovered anchor failure",
			"session_id", next.ID,
			"mode", prev.Mode,
			"err", res.Failure,
		)
	}
	if prev.Mode != next.Mode || res.Failure != nil || len(res.Effects) > 0 {
		next.UpdatedAt = e.now()
	}
}

// asFailure makes sure a recovered provider error matches kind under errors.Is.
func asFailure(kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
