package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Syncer interface {
	Collection() string
	HasCachedData(ctx context.Context) (bool, error)
	LastSuccessAt(ctx context.Context) (time.Time, bool, error)
	Sync(ctx context.Context) error
}

type EventType string

const (
	EventSyncStarted EventType = "sync_started"
	EventSyncOK      EventType = "sync_ok"
	EventSyncFailed  EventType = "sync_failed"
)

type Event struct {
	Type       EventType
	Collection string
	At         time.Time
	Err        error
	// RetryIn is set on failures when a backoff retry has been scheduled.
	RetryIn time.Duration
}

type Config struct {
	StaleTTL     time.Duration
	PollInterval time.Duration
	// Backoff lists retry delays after a failed sync. Empty means a failure
	// waits for the next poll or a manual refresh.
	Backoff []time.Duration
	Logger  *zap.Logger
}

// Engine keeps the watched collection fresh: it syncs on entry when the cache
// is empty or stale, then on every poll tick and manual refresh.
type Engine struct {
	cfg     Config
	log     *zap.Logger
	syncer  map[string]Syncer
	onEvent func(Event)

	mu     sync.Mutex
	active *activeRun
}

type activeRun struct {
	collection string
	cancel     context.CancelFunc
	manual     chan struct{}
	done       chan struct{}
}

func New(cfg Config, syncers []Syncer, onEvent func(Event)) (*Engine, error) {
	if cfg.StaleTTL <= 0 {
		cfg.StaleTTL = time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Minute
	}
	for _, d := range cfg.Backoff {
		if d <= 0 {
			return nil, fmt.Errorf("backoff delay must be positive, got %s", d)
		}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	registry := make(map[string]Syncer, len(syncers))
	for _, s := range syncers {
		if s == nil {
			continue
		}
		collection := s.Collection()
		if collection == "" {
			return nil, errors.New("syncer has empty collection")
		}
		if _, exists := registry[collection]; exists {
			return nil, fmt.Errorf("duplicate syncer for collection %q", collection)
		}
		registry[collection] = s
	}
	if len(registry) == 0 {
		return nil, errors.New("at least one syncer is required")
	}

	return &Engine{cfg: cfg, log: log, syncer: registry, onEvent: onEvent}, nil
}

// EnterView starts watching collection, replacing any active watch.
func (e *Engine) EnterView(ctx context.Context, collection string) error {
	e.mu.Lock()
	s, ok := e.syncer[collection]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("no syncer for collection %q", collection)
	}

	previous := e.active
	runCtx, cancel := context.WithCancel(ctx)
	state := &activeRun{
		collection: collection,
		cancel:     cancel,
		manual:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	e.active = state
	e.mu.Unlock()

	if previous != nil {
		previous.cancel()
		<-previous.done
	}

	go e.runLoop(runCtx, state, s)
	return nil
}

// LeaveView stops the active watch and waits for its loop to exit.
func (e *Engine) LeaveView() {
	e.mu.Lock()
	state := e.active
	e.active = nil
	e.mu.Unlock()

	if state != nil {
		state.cancel()
		<-state.done
	}
}

func (e *Engine) ManualRefresh(collection string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil {
		return errors.New("no active view")
	}
	if e.active.collection != collection {
		return fmt.Errorf("active view is %q, not %q", e.active.collection, collection)
	}

	select {
	case e.active.manual <- struct{}{}:
	default:
	}
	return nil
}

func (e *Engine) ActiveCollection() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return ""
	}
	return e.active.collection
}

func (e *Engine) runLoop(ctx context.Context, state *activeRun, s Syncer) {
	defer close(state.done)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	r := retrier{backoff: e.cfg.Backoff}
	defer r.stop()

	shouldSyncNow, err := e.shouldSyncOnEnter(ctx, s)
	if err != nil {
		e.log.Warn("check cache freshness", zap.String("collection", s.Collection()), zap.Error(err))
		e.emit(Event{Type: EventSyncFailed, Collection: s.Collection(), At: time.Now().UTC(), Err: err})
	}
	if shouldSyncNow {
		e.attemptSync(ctx, s, &r)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-state.manual:
			r.stop()
			e.attemptSync(ctx, s, &r)
		case <-ticker.C:
			if r.pending() {
				continue
			}
			e.attemptSync(ctx, s, &r)
		case <-r.c:
			r.fired()
			e.attemptSync(ctx, s, &r)
		}
	}
}

// retrier walks the backoff schedule, repeating its last step.
type retrier struct {
	backoff []time.Duration
	index   int
	timer   *time.Timer
	c       <-chan time.Time
}

func (r *retrier) schedule() (time.Duration, bool) {
	r.stop()
	if len(r.backoff) == 0 {
		return 0, false
	}
	delay := r.backoff[r.index]
	if r.index < len(r.backoff)-1 {
		r.index++
	}
	r.timer = time.NewTimer(delay)
	r.c = r.timer.C
	return delay, true
}

func (r *retrier) pending() bool { return r.c != nil }

func (r *retrier) fired() {
	r.timer = nil
	r.c = nil
}

func (r *retrier) stop() {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.fired()
}

func (r *retrier) reset() {
	r.stop()
	r.index = 0
}

func (e *Engine) shouldSyncOnEnter(ctx context.Context, s Syncer) (bool, error) {
	hasData, err := s.HasCachedData(ctx)
	if err != nil {
		return false, err
	}
	if !hasData {
		return true, nil
	}

	lastSuccess, ok, err := s.LastSuccessAt(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return time.Since(lastSuccess) > e.cfg.StaleTTL, nil
}

func (e *Engine) attemptSync(ctx context.Context, s Syncer, r *retrier) {
	collection := s.Collection()
	e.emit(Event{Type: EventSyncStarted, Collection: collection, At: time.Now().UTC()})

	started := time.Now()
	err := s.Sync(ctx)
	if err == nil {
		r.reset()
		e.log.Info("sync ok", zap.String("collection", collection), zap.Duration("took", time.Since(started)))
		e.emit(Event{Type: EventSyncOK, Collection: collection, At: time.Now().UTC()})
		return
	}
	if ctx.Err() != nil {
		return
	}

	retryIn, _ := r.schedule()
	e.log.Warn("sync failed",
		zap.String("collection", collection),
		zap.Duration("retry_in", retryIn),
		zap.Error(err),
	)
	e.emit(Event{Type: EventSyncFailed, Collection: collection, At: time.Now().UTC(), Err: err, RetryIn: retryIn})
}

func (e *Engine) emit(evt Event) {
	if e.onEvent == nil {
		return
	}
	e.onEvent(evt)
}
