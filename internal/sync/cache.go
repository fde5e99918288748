// ABOUTME: Generic auth-scoped cache that mirrors one table for the signed-in user.
// ABOUTME: Results fetched under a previous session are discarded before any write.
package sync

import (
	"context"
	"errors"
	gosync "sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harperreed/healthcal/internal/apperr"
	"github.com/harperreed/healthcal/internal/logging"
	"github.com/harperreed/healthcal/internal/store"
)

// ErrStale is returned when a fetch finished after the session it was
// started for ended. Its result was not applied.
var ErrStale = errors.New("sync: session changed before fetch completed")

// Phase is the lifecycle position of a cache.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseError   Phase = "error"
)

// State is a snapshot of a cache. Data keeps the last good value while a
// refetch is Loading.
type State[T any] struct {
	Data    T
	Loading bool
	Loaded  bool
	Err     error
}

// Phase derives the lifecycle phase from the snapshot.
func (s State[T]) Phase() Phase {
	switch {
	case s.Loading:
		return PhaseLoading
	case s.Err != nil:
		return PhaseError
	case s.Loaded:
		return PhaseReady
	default:
		return PhaseIdle
	}
}

// Option configures a cache.
type Option func(*cacheOptions)

type cacheOptions struct {
	logger *log.Logger
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *log.Logger) Option {
	return func(o *cacheOptions) { o.logger = l }
}

type cache[T any] struct {
	name   string
	store  store.Store
	table  store.Table
	fetch  func(context.Context) (T, error)
	clone  func(T) T
	logger *log.Logger

	mu         gosync.Mutex
	state      State[T]
	userID     uuid.UUID
	epoch      uint64
	version    uint64
	sessCtx    context.Context
	cancel     context.CancelFunc
	authSub    store.Subscription
	feedSub    store.Subscription
	listeners  map[int]func(State[T])
	nextID     int
	refreshing bool
	pending    bool
	closed     bool
	wg         gosync.WaitGroup
}

func newCache[T any](name string, st store.Store, table store.Table, fetch func(context.Context) (T, error), clone func(T) T, opts []Option) *cache[T] {
	o := cacheOptions{logger: logging.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &cache[T]{
		name:      name,
		store:     st,
		table:     table,
		fetch:     fetch,
		clone:     clone,
		logger:    o.logger.With("cache", name),
		sessCtx:   ctx,
		cancel:    cancel,
		listeners: map[int]func(State[T]){},
	}
}

// start subscribes to auth changes and loads data for the current user.
func (c *cache[T]) start(ctx context.Context) error {
	c.mu.Lock()
	if c.authSub == nil {
		c.authSub = c.store.OnAuthStateChange(c.handleAuth)
	}
	c.mu.Unlock()

	user, err := c.store.CurrentUser(ctx)
	if err != nil {
		return apperr.From(err)
	}
	if user == nil {
		return nil
	}
	c.bind(user.ID)
	return c.refresh(ctx)
}

func (c *cache[T]) handleAuth(ev store.AuthEvent) {
	switch ev.Type {
	case store.SignedOut:
		c.bind(uuid.Nil)
	case store.SignedIn, store.PasswordRecovery, store.UserUpdated:
		if ev.Session == nil {
			return
		}
		c.mu.Lock()
		same := c.userID == ev.Session.User.ID
		c.mu.Unlock()
		if !same {
			c.bind(ev.Session.User.ID)
		} else if ev.Type == store.UserUpdated {
			return
		}
		c.scheduleRefresh()
	}
}

// bind attributes the cache to uid, or to nobody for uuid.Nil. Any previous
// session is cancelled and its data cleared.
func (c *cache[T]) bind(uid uuid.UUID) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.epoch++
	c.sessCtx, c.cancel = context.WithCancel(context.Background())
	c.userID = uid
	c.state = State[T]{}
	old := c.feedSub
	c.feedSub = nil
	if uid != uuid.Nil {
		c.feedSub = c.store.Subscribe(c.table, uid, func(store.Change) { c.scheduleRefresh() })
	}
	snap := c.snapshotLocked()
	listeners := c.listenersLocked()
	c.mu.Unlock()

	if old != nil {
		old.Unsubscribe()
	}
	c.logger.Debug("session bound", "user", uid)
	notify(listeners, snap)
}

// refresh fetches the full table and replaces the cached data.
func (c *cache[T]) refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.userID == uuid.Nil {
		c.mu.Unlock()
		return apperr.AuthRequired()
	}
	epoch, uid, sessCtx, version := c.epoch, c.userID, c.sessCtx, c.version
	c.state.Loading = true
	snap := c.snapshotLocked()
	listeners := c.listenersLocked()
	c.mu.Unlock()
	notify(listeners, snap)

	fctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(sessCtx, cancel)
	data, err := c.fetch(fctx)
	stop()
	cancel()

	c.mu.Lock()
	if c.epoch != epoch || c.userID != uid {
		c.mu.Unlock()
		c.logger.Debug("discarding stale fetch", "user", uid)
		return ErrStale
	}
	c.state.Loading = false
	followUp := false
	if err != nil {
		c.state.Err = apperr.From(err)
	} else {
		c.state.Data = data
		c.state.Loaded = true
		c.state.Err = nil
		// A mutation landed while fetching; data may predate it.
		followUp = c.version != version
	}
	snap = c.snapshotLocked()
	listeners = c.listenersLocked()
	c.mu.Unlock()

	notify(listeners, snap)
	if followUp {
		c.logger.Debug("refetching after local mutation")
		c.scheduleRefresh()
	}
	if err != nil {
		return apperr.From(err)
	}
	return nil
}

// scheduleRefresh runs refresh in the background, coalescing requests that
// arrive while one is already running.
func (c *cache[T]) scheduleRefresh() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.refreshing {
		c.pending = true
		c.mu.Unlock()
		return
	}
	c.refreshing = true
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		for {
			if err := c.refresh(context.Background()); err != nil && !errors.Is(err, ErrStale) {
				c.logger.Warn("refresh failed", "err", err)
			}
			c.mu.Lock()
			if !c.pending || c.closed {
				c.refreshing = false
				c.pending = false
				c.mu.Unlock()
				return
			}
			c.pending = false
			c.mu.Unlock()
		}
	}()
}

// mutate runs op and, if the session is unchanged, folds its result into the
// cached data with apply.
func mutate[T, R any](ctx context.Context, c *cache[T], op func(context.Context) (R, error), apply func(T, R) T) (R, error) {
	c.mu.Lock()
	epoch, uid := c.epoch, c.userID
	c.mu.Unlock()

	res, err := op(ctx)

	c.mu.Lock()
	if c.epoch != epoch || c.userID != uid {
		c.mu.Unlock()
		return res, err
	}
	if err != nil {
		c.state.Err = apperr.From(err)
	} else {
		c.state.Data = apply(c.state.Data, res)
		c.state.Err = nil
		c.version++
	}
	snap := c.snapshotLocked()
	listeners := c.listenersLocked()
	c.mu.Unlock()

	notify(listeners, snap)
	return res, err
}

func (c *cache[T]) snapshot() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *cache[T]) snapshotLocked() State[T] {
	s := c.state
	s.Data = c.clone(s.Data)
	return s
}

func (c *cache[T]) listenersLocked() []func(State[T]) {
	out := make([]func(State[T]), 0, len(c.listeners))
	for i := 0; i < c.nextID; i++ {
		if fn, ok := c.listeners[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func notify[T any](listeners []func(State[T]), s State[T]) {
	for _, fn := range listeners {
		fn(s)
	}
}

func (c *cache[T]) onChange(fn func(State[T])) store.Subscription {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return &listener{remove: func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}}
}

func (c *cache[T]) currentUser() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// close drops every subscription and waits for background refreshes.
func (c *cache[T]) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancel()
	c.epoch++
	authSub, feedSub := c.authSub, c.feedSub
	c.authSub, c.feedSub = nil, nil
	c.listeners = map[int]func(State[T]){}
	c.mu.Unlock()

	if authSub != nil {
		authSub.Unsubscribe()
	}
	if feedSub != nil {
		feedSub.Unsubscribe()
	}
	c.wg.Wait()
}

type listener struct {
	once   gosync.Once
	remove func()
}

func (l *listener) Unsubscribe() {
	l.once.Do(l.remove)
}
