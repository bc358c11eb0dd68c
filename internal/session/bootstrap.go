// Package session owns the single source of truth for "who is the current
// user". It reconciles the remote auth-event stream with an eagerly issued
// manual session fetch, derives the displayable user from the identity and
// its profile row, and publishes the result to the view layer.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/doease/doease/internal/backend"
	"github.com/doease/doease/internal/config"
	"github.com/doease/doease/internal/domain"
	"go.uber.org/zap"
)

// subscriberBuffer is the per-subscriber channel depth. Slow subscribers
// miss intermediate snapshots rather than blocking the bootstrap.
const subscriberBuffer = 16

// Bootstrap runs the startup auth sequence and keeps the published state in
// sync with auth events afterwards. All fields are guarded by mu; the
// mounted flag makes callbacks that land after Close no-ops.
type Bootstrap struct {
	api        backend.API
	logger     *zap.Logger
	guard      time.Duration
	lastChance time.Duration
	metrics    *metrics

	mu                  sync.Mutex
	mounted             bool
	initialLoadComplete bool
	snap                Snapshot
	unsubscribe         func()
	guardTimer          *time.Timer
	subscribers         map[int]chan Snapshot
	nextSubID           int
	startedAt           time.Time
}

// New builds a bootstrap over the facade. Call Start to begin resolving.
func New(api backend.API, cfg config.BootstrapConfig, logger *zap.Logger) *Bootstrap {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bootstrap{
		api:         api,
		logger:      logger,
		guard:       cfg.GuardTimeout.Duration,
		lastChance:  cfg.LastChanceTimeout.Duration,
		metrics:     newMetrics(logger),
		snap:        Snapshot{Loading: true, IsConfigured: true},
		subscribers: make(map[int]chan Snapshot),
	}
}

// NewUnconfigured builds the terminal misconfiguration state: already
// resolved, never loading, carrying the remediation text. Start is a no-op.
func NewUnconfigured(cfgErr *config.ConfigurationError, logger *zap.Logger) *Bootstrap {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Error("backend configuration invalid, bootstrap disabled", zap.String("reason", cfgErr.Reason))
	return &Bootstrap{
		logger: logger,
		snap: Snapshot{
			Loading:            false,
			IsConfigured:       false,
			ConfigurationError: cfgErr.Error(),
		},
		subscribers: make(map[int]chan Snapshot),
	}
}

// Start registers the auth-event subscription, issues the manual session
// fetch immediately (the two race; first writer resolves), and arms the
// guard timer. Calling Start twice or on an unconfigured bootstrap is a
// no-op.
func (b *Bootstrap) Start() {
	b.mu.Lock()
	if b.mounted || !b.snap.IsConfigured {
		b.mu.Unlock()
		return
	}
	b.mounted = true
	b.startedAt = time.Now()
	b.guardTimer = time.AfterFunc(b.guard, b.guardFired)
	b.mu.Unlock()

	b.unsubscribe = b.api.SubscribeAuthEvents(b.handleEvent)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), b.guard+b.lastChance)
		defer cancel()

		sess, err := b.api.GetSession(ctx)
		if err != nil {
			b.logger.Warn("manual session fetch failed", zap.Error(err))
			b.mu.Lock()
			resolved := b.initialLoadComplete
			b.mu.Unlock()
			if !resolved {
				// Nothing better to offer; resolve signed-out rather than
				// hold the view in loading.
				b.applySession(nil)
			}
			return
		}
		b.applySession(sess)
	}()
}

// Close tears the bootstrap down: late callbacks become no-ops, the guard
// timer and the event subscription are cancelled, and subscriber channels
// are closed.
func (b *Bootstrap) Close() {
	b.mu.Lock()
	b.mounted = false
	if b.guardTimer != nil {
		b.guardTimer.Stop()
		b.guardTimer = nil
	}
	unsubscribe := b.unsubscribe
	b.unsubscribe = nil
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Snapshot returns the current published state.
func (b *Bootstrap) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap
}

// Subscribe returns a channel of state snapshots and its disposer. The
// current snapshot is delivered first. Snapshots are coalesced for slow
// consumers.
func (b *Bootstrap) Subscribe() (<-chan Snapshot, func()) {
	b.mu.Lock()
	ch := make(chan Snapshot, subscriberBuffer)
	id := b.nextSubID
	b.nextSubID++
	b.subscribers[id] = ch
	ch <- b.snap
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		if existing, ok := b.subscribers[id]; ok {
			close(existing)
			delete(b.subscribers, id)
		}
		b.mu.Unlock()
	}
}

// SignOut signs out remotely and clears the published state. The returned
// error reports remote revocation trouble; local state is cleared either
// way.
func (b *Bootstrap) SignOut(ctx context.Context) error {
	b.mu.Lock()
	configured := b.snap.IsConfigured
	b.mu.Unlock()
	if !configured {
		return nil
	}

	err := b.api.SignOut(ctx)
	b.clearSignedOut()
	return err
}

// RefreshUserProfile re-derives the display user from the remote identity
// and profile row. Errors are absorbed into the fallback derivation, never
// returned: the contract is that the published state always settles.
func (b *Bootstrap) RefreshUserProfile(ctx context.Context) {
	b.mu.Lock()
	if !b.snap.IsConfigured {
		b.snap.CurrentUser = nil
		snap := b.snap
		b.mu.Unlock()
		b.notify(snap)
		return
	}
	b.mu.Unlock()

	user := b.lookupUser(ctx)

	b.mu.Lock()
	if !b.mounted {
		b.mu.Unlock()
		return
	}
	b.snap.CurrentUser = user
	snap := b.snap
	b.mu.Unlock()
	b.notify(snap)
}

// lookupUser resolves the current display user: remote identity plus
// profile when reachable, session-derived fallback otherwise, nil when
// signed out.
func (b *Bootstrap) lookupUser(ctx context.Context) *domain.DisplayUser {
	identity, err := b.api.GetIdentity(ctx)
	if err != nil {
		b.logger.Warn("identity lookup failed, falling back to session identity", zap.Error(err))
	}
	if identity == nil {
		sess, serr := b.api.GetSession(ctx)
		if serr != nil {
			b.logger.Warn("session fetch for fallback user failed", zap.Error(serr))
			return nil
		}
		if sess.Identity() == nil {
			return nil
		}
		return domain.FallbackUser(sess.Identity())
	}
	return b.deriveUser(ctx, identity)
}

// deriveUser merges identity and profile. Any profile failure, transient or
// not, takes the mandatory fallback path so a live session never renders as
// "no user".
func (b *Bootstrap) deriveUser(ctx context.Context, identity *domain.AuthIdentity) *domain.DisplayUser {
	profile, err := b.api.GetProfile(ctx, identity.ID)
	if err != nil {
		if !errors.Is(err, backend.ErrNotFound) {
			b.logger.Warn("profile fetch failed, using defaults",
				zap.String("user_id", identity.ID),
				zap.Error(err))
		}
		return domain.FallbackUser(identity)
	}
	return domain.MergeProfile(identity, profile)
}

// handleEvent is the auth-event subscription callback.
func (b *Bootstrap) handleEvent(event domain.AuthEvent, sess *domain.Session) {
	b.mu.Lock()
	if !b.mounted {
		b.mu.Unlock()
		return
	}
	resolved := b.initialLoadComplete
	b.mu.Unlock()

	switch event {
	case domain.InitialSession:
		b.applySession(sess)

	case domain.SignedIn, domain.TokenRefreshed:
		if resolved {
			b.setLoading(true)
		}
		b.applySession(sess)
		if resolved {
			b.setLoading(false)
		}

	case domain.UserUpdated:
		b.applySession(sess)

	case domain.SignedOut:
		b.clearSignedOut()
	}
}

// applySession publishes sess, derives the display user, and performs the
// INIT to RESOLVED transition if it has not happened yet. Later arrivals
// update content only; they never toggle the initial loading flag back
// (first-writer-wins).
func (b *Bootstrap) applySession(sess *domain.Session) {
	b.mu.Lock()
	if !b.mounted {
		b.mu.Unlock()
		return
	}
	b.snap.Session = sess
	b.mu.Unlock()

	var user *domain.DisplayUser
	if identity := sess.Identity(); identity != nil {
		user = b.deriveUser(context.Background(), identity)
	}

	b.mu.Lock()
	if !b.mounted {
		b.mu.Unlock()
		return
	}
	b.snap.CurrentUser = user
	b.completeInitialLocked("session")
	snap := b.snap
	b.mu.Unlock()
	b.notify(snap)
}

// clearSignedOut moves to the signed-out state: session and user cleared,
// loading false. Also counts as a resolution when it arrives first.
func (b *Bootstrap) clearSignedOut() {
	b.mu.Lock()
	if !b.mounted {
		b.mu.Unlock()
		return
	}
	b.snap.Session = nil
	b.snap.CurrentUser = nil
	b.snap.Loading = false
	b.completeInitialLocked("signed_out")
	snap := b.snap
	b.mu.Unlock()
	b.notify(snap)
}

// guardFired is the bounded-wait path: neither the event stream nor the
// manual fetch resolved in time. One last-chance fetch decides the state;
// failing that, resolve signed-out. Logged as a recoverable anomaly, never
// surfaced.
func (b *Bootstrap) guardFired() {
	b.mu.Lock()
	if !b.mounted || b.initialLoadComplete {
		b.mu.Unlock()
		return
	}
	waited := time.Since(b.startedAt)
	b.mu.Unlock()

	b.logger.Warn("bootstrap guard expired before any auth source resolved",
		zap.Duration("waited", waited))
	b.metrics.guardExpired(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), b.lastChance)
	defer cancel()

	sess, err := b.api.GetSession(ctx)
	if err != nil {
		b.logger.Warn("last-chance session fetch failed, resolving signed-out", zap.Error(err))
		sess = nil
	}
	b.applySession(sess)
}

// completeInitialLocked flips loading false and marks the initial load
// complete exactly once. Caller holds b.mu.
func (b *Bootstrap) completeInitialLocked(source string) {
	if b.initialLoadComplete {
		return
	}
	b.initialLoadComplete = true
	b.snap.Loading = false
	if b.guardTimer != nil {
		b.guardTimer.Stop()
		b.guardTimer = nil
	}
	b.metrics.resolved(context.Background(), source, time.Since(b.startedAt))
	b.logger.Info("auth bootstrap resolved",
		zap.String("source", source),
		zap.Bool("signed_in", b.snap.CurrentUser != nil),
		zap.Duration("took", time.Since(b.startedAt)))
}

// setLoading pulses the loading flag for post-resolution updates.
func (b *Bootstrap) setLoading(loading bool) {
	b.mu.Lock()
	if !b.mounted {
		b.mu.Unlock()
		return
	}
	b.snap.Loading = loading
	snap := b.snap
	b.mu.Unlock()
	b.notify(snap)
}

// notify fans a snapshot out to subscribers without blocking: when a
// subscriber's buffer is full the oldest pending snapshot is dropped.
func (b *Bootstrap) notify(snap Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
