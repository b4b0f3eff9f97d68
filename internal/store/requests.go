package store

import (
	"sync"

	"github.com/karpool/karpool-client/internal/domain/request"
)

// RequestsSnapshot is the published state of the join-request store
type RequestsSnapshot struct {
	TripID   int64                 `json:"tripId"`
	Requests []request.JoinRequest `json:"requests"`
	Joined   []int64               `json:"joined"`
	Started  []int64               `json:"started"`
}

// Requests mirrors the join requests of the trip on screen plus the two
// per-trip UI flags: "join requested" for passengers and "trip started"
// for drivers.
type Requests struct {
	notifier

	ListGen Generation

	mu      sync.RWMutex
	tripID  int64
	items   []request.JoinRequest
	settled map[int64]request.Status
	// last issued and last applied mutation per request
	issued  map[int64]uint64
	applied map[int64]uint64
	joined  map[int64]bool
	started map[int64]bool
}

// NewRequests creates an empty store
func NewRequests() *Requests {
	return &Requests{
		settled: make(map[int64]request.Status),
		issued:  make(map[int64]uint64),
		applied: make(map[int64]uint64),
		joined:  make(map[int64]bool),
		started: make(map[int64]bool),
	}
}

// Replace installs the fetched list for tripID if gen is still current.
// Requests with an unknown status are dropped. Requests already settled
// locally keep their settled state: an accepted request stays accepted and
// a rejected one stays hidden.
func (r *Requests) Replace(gen uint64, tripID int64, items []request.JoinRequest) bool {
	if !r.ListGen.IsCurrent(gen) {
		return false
	}

	r.update(func() {
		list := make([]request.JoinRequest, 0, len(items))
		for _, it := range items {
			if it.TripID == 0 {
				it.TripID = tripID
			}
			if it.Status == "" {
				it.Status = request.StatusPending
			}
			if !it.Status.IsValid() {
				continue
			}
			if it.Status.IsTerminal() && r.settled[it.ID] != request.StatusRejected {
				r.settled[it.ID] = it.Status
			}
			switch r.settled[it.ID] {
			case request.StatusRejected:
				continue
			case request.StatusAccepted:
				it.Status = request.StatusAccepted
			}
			list = append(list, it)
		}
		r.tripID = tripID
		r.items = list
	})
	return true
}

// Get returns the visible request with id
func (r *Requests) Get(id int64) (request.JoinRequest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, it := range r.items {
		if it.ID == id {
			return it, true
		}
	}
	return request.JoinRequest{}, false
}

// Items returns the visible requests
func (r *Requests) Items() []request.JoinRequest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]request.JoinRequest(nil), r.items...)
}

// TripID returns the trip the list belongs to
func (r *Requests) TripID() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tripID
}

// BeginMutation starts a new mutation on request id and returns its
// sequence number. A successful response is applied only when no newer
// mutation on the same request has been applied already; failed
// mutations are simply never applied and supersede nothing.
func (r *Requests) BeginMutation(id int64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.issued[id]++
	return r.issued[id]
}

// staleLocked reports whether a mutation newer than seq was applied
func (r *Requests) staleLocked(id int64, seq uint64) bool {
	return seq <= r.applied[id]
}

// MarkAccepted applies a confirmed accept. It returns false when seq is
// stale or the request is no longer pending.
func (r *Requests) MarkAccepted(id int64, seq uint64) bool {
	applied := false
	r.update(func() {
		if r.staleLocked(id, seq) || r.settled[id] == request.StatusRejected {
			return
		}
		r.applied[id] = seq
		r.settled[id] = request.StatusAccepted
		for i := range r.items {
			if r.items[i].ID == id {
				r.items[i].Status = request.StatusAccepted
				applied = true
			}
		}
	})
	return applied
}

// Remove applies a confirmed reject by hiding the request for good
func (r *Requests) Remove(id int64, seq uint64) bool {
	applied := false
	r.update(func() {
		if r.staleLocked(id, seq) || r.settled[id] == request.StatusAccepted {
			return
		}
		r.applied[id] = seq
		r.settled[id] = request.StatusRejected
		for i := range r.items {
			if r.items[i].ID == id {
				r.items = append(r.items[:i:i], r.items[i+1:]...)
				applied = true
				break
			}
		}
	})
	return applied
}

// HasAccepted reports whether tripID has at least one accepted passenger
func (r *Requests) HasAccepted(tripID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, it := range r.items {
		if it.TripID == tripID && it.Status == request.StatusAccepted {
			return true
		}
	}
	return false
}

// MarkJoined records a successful join request for tripID
func (r *Requests) MarkJoined(tripID int64) {
	r.update(func() { r.joined[tripID] = true })
}

// Joined reports whether the passenger already requested tripID
func (r *Requests) Joined(tripID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.joined[tripID]
}

// SetStarted flips the "trip started" flag for tripID
func (r *Requests) SetStarted(tripID int64, started bool) {
	r.update(func() {
		if started {
			r.started[tripID] = true
		} else {
			delete(r.started, tripID)
		}
	})
}

// Started reports the "trip started" flag for tripID
func (r *Requests) Started(tripID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.started[tripID]
}

// Reset forgets everything, used at logout and role switch
func (r *Requests) Reset() {
	r.ListGen.Next()
	r.update(func() {
		r.tripID = 0
		r.items = nil
		clear(r.settled)
		clear(r.issued)
		clear(r.applied)
		clear(r.joined)
		clear(r.started)
	})
}

// Snapshot returns the current state
func (r *Requests) Snapshot() RequestsSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Requests) update(fn func()) {
	r.mu.Lock()
	fn()
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.notify(Event{Store: NameRequests, Snapshot: snap})
}

func (r *Requests) snapshotLocked() RequestsSnapshot {
	snap := RequestsSnapshot{
		TripID:   r.tripID,
		Requests: append([]request.JoinRequest{}, r.items...),
		Joined:   []int64{},
		Started:  []int64{},
	}
	for id := range r.joined {
		snap.Joined = append(snap.Joined, id)
	}
	for id := range r.started {
		snap.Started = append(snap.Started, id)
	}
	return snap
}
