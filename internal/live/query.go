// Package live turns repository reads into current-value streams that
// re-evaluate whenever a committed write touches one of their tables.
package live

import (
	"context"
	"errors"
	"sync"

	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/invalidation"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/metrics"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/records"
	"go.uber.org/zap"
)

// Snapshot is one evaluation of a query. Err is set when the read failed; the
// stream keeps watching and retries on the next change.
type Snapshot[T any] struct {
	Value    T
	Err      error
	Sequence uint64
}

// FetchFunc evaluates the query. It must honor ctx.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Config describes a live query.
type Config[T any] struct {
	Name    string
	Bus     *invalidation.Bus
	Tables  []string
	Fetch   FetchFunc[T]
	Logger  *zap.Logger
	Metrics *metrics.Collectors
}

// Query couples a read to the tables it depends on.
type Query[T any] struct {
	name    string
	bus     *invalidation.Bus
	tables  []string
	fetch   FetchFunc[T]
	logger  *zap.Logger
	metrics *metrics.Collectors
}

var (
	errMissingBus   = errors.New("live: bus is required")
	errMissingFetch = errors.New("live: fetch function is required")
	errNoTables     = errors.New("live: at least one table is required")
)

// New validates cfg and builds a query.
func New[T any](cfg Config[T]) (*Query[T], error) {
	switch {
	case cfg.Bus == nil:
		return nil, errMissingBus
	case cfg.Fetch == nil:
		return nil, errMissingFetch
	case len(cfg.Tables) == 0:
		return nil, errNoTables
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Query[T]{
		name:    cfg.Name,
		bus:     cfg.Bus,
		tables:  append([]string(nil), cfg.Tables...),
		fetch:   cfg.Fetch,
		logger:  logger,
		metrics: cfg.Metrics,
	}, nil
}

// Name identifies the query in logs and metrics.
func (q *Query[T]) Name() string {
	return q.name
}

// Get evaluates the query once.
func (q *Query[T]) Get(ctx context.Context) (T, error) {
	return q.fetch(ctx)
}

// Subscribe starts a stream. The first snapshot is the result of an
// evaluation that starts after the subscription is registered, so no commit
// between registration and first read is missed. Later snapshots follow
// commits on the query's tables; a burst of commits during one evaluation is
// folded into a single re-evaluation. The stream ends when ctx is done or
// Close is called.
func (q *Query[T]) Subscribe(ctx context.Context) *Stream[T] {
	streamCtx, cancel := context.WithCancel(ctx)
	signals, release := q.bus.Watch(streamCtx, q.tables...)

	stream := &Stream[T]{
		updates: make(chan Snapshot[T], 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go q.run(streamCtx, stream, signals, release)
	return stream
}

func (q *Query[T]) run(ctx context.Context, stream *Stream[T], signals <-chan struct{}, release func()) {
	defer close(stream.done)
	defer close(stream.updates)
	defer release()

	var sequence uint64
	for {
		value, err := q.fetch(ctx)
		if ctx.Err() != nil || records.KindOf(err) == records.KindCanceled {
			return
		}
		q.metrics.LiveRefreshed(q.name, err != nil)
		if err != nil {
			q.logger.Warn("live query refresh failed", zap.String("query", q.name), zap.Error(err))
		}
		sequence++
		stream.publish(Snapshot[T]{Value: value, Err: err, Sequence: sequence})

		select {
		case <-ctx.Done():
			return
		case <-signals:
		}
	}
}

// Stream is a running subscription. Updates delivers snapshots; an unread
// snapshot is replaced by a newer one, so a slow reader always sees the
// latest value and nothing queues up.
type Stream[T any] struct {
	updates chan Snapshot[T]
	cancel  context.CancelFunc
	done    chan struct{}

	mu      sync.RWMutex
	latest  Snapshot[T]
	hasData bool
}

// Updates returns the snapshot channel. It is closed when the stream ends.
func (s *Stream[T]) Updates() <-chan Snapshot[T] {
	return s.updates
}

// Current returns the most recent snapshot and whether one exists yet.
func (s *Stream[T]) Current() (Snapshot[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.hasData
}

// Close stops the stream and waits until its in-flight read is released.
func (s *Stream[T]) Close() {
	s.cancel()
	<-s.done
}

// Done is closed once the stream has stopped.
func (s *Stream[T]) Done() <-chan struct{} {
	return s.done
}

func (s *Stream[T]) publish(snapshot Snapshot[T]) {
	s.mu.Lock()
	s.latest = snapshot
	s.hasData = true
	s.mu.Unlock()

	for {
		select {
		case s.updates <- snapshot:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}
