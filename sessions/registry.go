// Package sessions keeps the server-side editor and tester instances owned
// by operator tabs, and tears them down when they are closed or abandoned.
package sessions

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"channel-console/metrics"
)

// Closer is implemented by anything a registry can tear down.
type Closer interface {
	Close()
}

type entry[T Closer] struct {
	item     T
	lastUsed time.Time
}

// Registry maps session ids to live sessions of one kind.
type Registry[T Closer] struct {
	kind  string
	now   func() time.Time
	mu    sync.Mutex
	items map[string]*entry[T]
}

// New creates an empty registry. kind labels the active-session gauge.
func New[T Closer](kind string) *Registry[T] {
	return &Registry[T]{
		kind:  kind,
		now:   time.Now,
		items: make(map[string]*entry[T]),
	}
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// Put registers item under id.
func (r *Registry[T]) Put(id string, item T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.items[id]; ok {
		old.item.Close()
	} else {
		metrics.ActiveSessions.WithLabelValues(r.kind).Inc()
	}
	r.items[id] = &entry[T]{item: item, lastUsed: r.now()}
}

// Get returns the session and marks it as used.
func (r *Registry[T]) Get(id string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	e.lastUsed = r.now()
	return e.item, true
}

// Remove closes and forgets the session. It reports whether it existed.
func (r *Registry[T]) Remove(id string) bool {
	r.mu.Lock()
	e, ok := r.items[id]
	if ok {
		delete(r.items, id)
		metrics.ActiveSessions.WithLabelValues(r.kind).Dec()
	}
	r.mu.Unlock()

	if ok {
		e.item.Close()
	}
	return ok
}

// Sweep closes every session idle for longer than maxIdle and returns how
// many were removed.
func (r *Registry[T]) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var expired []T
	for id, e := range r.items {
		if e.lastUsed.Before(cutoff) {
			expired = append(expired, e.item)
			delete(r.items, id)
		}
	}
	if len(expired) > 0 {
		metrics.ActiveSessions.WithLabelValues(r.kind).Sub(float64(len(expired)))
	}
	r.mu.Unlock()

	for _, item := range expired {
		item.Close()
	}
	return len(expired)
}

func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
