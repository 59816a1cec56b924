package protection

import (
	"sync"
	"time"
)

// ClaimState is the result of Registry.Claim.
type ClaimState int

const (
	// Absent means no entry exists yet.
	Absent ClaimState = iota
	// Claimed means the entry was removed and returned to the caller.
	Claimed
	// Consumed means the id was claimed earlier and is tombstoned.
	Consumed
)

func (s ClaimState) String() string {
	switch s {
	case Absent:
		return "absent"
	case Claimed:
		return "claimed"
	case Consumed:
		return "consumed"
	default:
		return "unknown"
	}
}

// Registry is a concurrent map from correlation id to per-request state.
//
// Ids removed with Take are remembered as consumed (tombstoned) until purged,
// so late polls can be told the response is gone rather than made to wait.
// Every change closes the channel returned by Changed, waking all waiters at
// once; each waiter re-checks only its own id.
type Registry[T any] struct {
	mu       sync.Mutex
	entries  map[string]registryEntry[T]
	consumed map[string]time.Time
	changed  chan struct{}
	now      func() time.Time
}

type registryEntry[T any] struct {
	value  T
	stored time.Time
}

// NewRegistry returns an empty registry. A nil clock uses time.Now.
func NewRegistry[T any](now func() time.Time) *Registry[T] {
	if now == nil {
		now = time.Now
	}
	return &Registry[T]{
		entries:  make(map[string]registryEntry[T]),
		consumed: make(map[string]time.Time),
		changed:  make(chan struct{}),
		now:      now,
	}
}

// Now returns the registry's clock reading.
func (r *Registry[T]) Now() time.Time {
	return r.now()
}

// GetOrCreate returns the entry for id, creating it when absent. visit, if
// non-nil, runs under the registry lock so it is atomic with the lookup. The
// boolean is false, and nothing is created, when id is tombstoned.
func (r *Registry[T]) GetOrCreate(id string, create func() T, visit func(T)) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, gone := r.consumed[id]; gone {
		var zero T
		return zero, false
	}
	e, ok := r.entries[id]
	if !ok {
		e = registryEntry[T]{value: create(), stored: r.now()}
		r.entries[id] = e
		r.broadcastLocked()
	}
	if visit != nil {
		visit(e.value)
	}
	return e.value, true
}

// Get returns the entry for id.
func (r *Registry[T]) Get(id string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return e.value, ok
}

// Put stores v under id, replacing any previous entry, and wakes waiters.
func (r *Registry[T]) Put(id string, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = registryEntry[T]{value: v, stored: r.now()}
	r.broadcastLocked()
}

// Claim atomically removes and returns the entry for id, tombstoning the id.
// When the entry is absent, the returned channel is closed on the next change
// to the registry.
func (r *Registry[T]) Claim(id string) (T, ClaimState, <-chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	if _, gone := r.consumed[id]; gone {
		return zero, Consumed, nil
	}
	e, ok := r.entries[id]
	if !ok {
		return zero, Absent, r.changed
	}
	delete(r.entries, id)
	r.consumed[id] = r.now()
	r.broadcastLocked()
	return e.value, Claimed, nil
}

// Take removes the entry for id and tombstones the id when match reports
// true. A nil match accepts any entry.
func (r *Registry[T]) Take(id string, match func(T) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || (match != nil && !match(e.value)) {
		return false
	}
	delete(r.entries, id)
	r.consumed[id] = r.now()
	r.broadcastLocked()
	return true
}

// RemoveIf removes the entry for id without tombstoning it when pred reports
// true. pred runs under the registry lock.
func (r *Registry[T]) RemoveIf(id string, pred func(T) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || !pred(e.value) {
		return false
	}
	delete(r.entries, id)
	r.broadcastLocked()
	return true
}

// Consumed reports whether id is tombstoned.
func (r *Registry[T]) Consumed(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.consumed[id]
	return ok
}

// Changed returns a channel closed on the next change to the registry.
func (r *Registry[T]) Changed() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changed
}

// Purge removes entries stored before cutoff for which evictable reports true
// (nil evicts all), and tombstones recorded before cutoff.
func (r *Registry[T]) Purge(cutoff time.Time, evictable func(T) bool) (entries, tombstones int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.entries {
		if e.stored.Before(cutoff) && (evictable == nil || evictable(e.value)) {
			delete(r.entries, id)
			entries++
		}
	}
	for id, at := range r.consumed {
		if at.Before(cutoff) {
			delete(r.consumed, id)
			tombstones++
		}
	}
	if entries > 0 {
		r.broadcastLocked()
	}
	return entries, tombstones
}

// Len returns the number of live entries.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Tombstones returns the number of remembered consumed ids.
func (r *Registry[T]) Tombstones() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.consumed)
}

func (r *Registry[T]) broadcastLocked() {
	close(r.changed)
	r.changed = make(chan struct{})
}
