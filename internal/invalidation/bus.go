// Package invalidation fans out "table changed" signals to in-process
// observers after a write transaction commits.
package invalidation

import (
	"context"
	"sync"

	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/metrics"
)

// Notification reports the tables written by one committed transaction.
// Sequence increases by one per published commit.
type Notification struct {
	Sequence uint64
	Tables   []string
}

// Bus is a single-process publish/subscribe keyed by table name.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int64]*subscriber
	nextID      int64

	// publishMu orders deliveries by commit.
	publishMu sync.Mutex
	sequence  uint64

	metrics *metrics.Collectors
}

type subscriber struct {
	id       int64
	tables   map[string]struct{}
	callback func(Notification)
}

// NewBus constructs an empty bus. collectors may be nil.
func NewBus(collectors *metrics.Collectors) *Bus {
	return &Bus{
		subscribers: make(map[int64]*subscriber),
		metrics:     collectors,
	}
}

// Subscribe registers callback for any commit that writes one of tables. The
// callback runs on the publishing goroutine and must not block or write to the
// store. The returned function unregisters the subscriber and is idempotent.
func (b *Bus) Subscribe(tables []string, callback func(Notification)) func() {
	if len(tables) == 0 || callback == nil {
		return func() {}
	}
	watched := make(map[string]struct{}, len(tables))
	for _, table := range tables {
		watched[table] = struct{}{}
	}

	b.mu.Lock()
	b.nextID++
	entry := &subscriber{id: b.nextID, tables: watched, callback: callback}
	b.subscribers[entry.id] = entry
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, entry.id)
			b.mu.Unlock()
		})
	}
}

// Watch returns a channel that receives a signal after every commit touching
// one of tables. Signals coalesce: a burst of commits that lands before the
// reader drains the channel yields a single pending signal. The subscription
// ends when ctx is done or the returned cleanup is called.
func (b *Bus) Watch(ctx context.Context, tables ...string) (<-chan struct{}, func()) {
	signals := make(chan struct{}, 1)
	cleanup := b.Subscribe(tables, func(Notification) {
		select {
		case signals <- struct{}{}:
		default:
		}
	})
	stop := make(chan struct{})
	var once sync.Once
	release := func() {
		once.Do(func() {
			cleanup()
			close(stop)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			release()
		case <-stop:
		}
	}()
	return signals, release
}

// Publish delivers one notification for a committed transaction that wrote
// tables. Duplicate table names are collapsed.
func (b *Bus) Publish(tables ...string) {
	if len(tables) == 0 {
		return
	}
	unique := dedupe(tables)

	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	b.sequence++
	notification := Notification{Sequence: b.sequence, Tables: unique}
	for _, table := range unique {
		b.metrics.TableInvalidated(table)
	}

	b.mu.RLock()
	targets := make([]*subscriber, 0, len(b.subscribers))
	for _, entry := range b.subscribers {
		if entry.intersects(unique) {
			targets = append(targets, entry)
		}
	}
	b.mu.RUnlock()

	for _, entry := range targets {
		entry.callback(notification)
	}
}

// SubscriberCount reports the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (s *subscriber) intersects(tables []string) bool {
	for _, table := range tables {
		if _, ok := s.tables[table]; ok {
			return true
		}
	}
	return false
}

func dedupe(tables []string) []string {
	seen := make(map[string]struct{}, len(tables))
	unique := make([]string, 0, len(tables))
	for _, table := range tables {
		if table == "" {
			continue
		}
		if _, ok := seen[table]; ok {
			continue
		}
		seen[table] = struct{}{}
		unique = append(unique, table)
	}
	return unique
}
