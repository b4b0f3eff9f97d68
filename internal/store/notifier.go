package store

import (
	"sync"
	"sync/atomic"
)

// Names reported in Event.Store
const (
	NameSession  = "session"
	NameGeo      = "geo"
	NameSchedule = "schedule"
	NameTrips    = "trips"
	NameRequests = "requests"
)

// Event is delivered to subscribers after every change to a store.
// Snapshot is a copy and is safe to keep.
type Event struct {
	Store    string `json:"store"`
	Snapshot any    `json:"snapshot"`
}

// Listener receives store events
type Listener func(Event)

type notifier struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
}

// Subscribe registers fn for change events and returns a function that
// removes it again.
func (n *notifier) Subscribe(fn Listener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.listeners == nil {
		n.listeners = make(map[int]Listener)
	}
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, id)
	}
}

// notify must be called without holding the store lock
func (n *notifier) notify(ev Event) {
	n.mu.Lock()
	fns := make([]Listener, 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Generation hands out increasing numbers for one logical resource so that
// only the newest response for it is applied.
type Generation struct {
	n atomic.Uint64
}

// Next starts a new generation and returns its number
func (g *Generation) Next() uint64 {
	return g.n.Add(1)
}

// IsCurrent reports whether n is still the newest generation
func (g *Generation) IsCurrent(n uint64) bool {
	return g.n.Load() == n
}
