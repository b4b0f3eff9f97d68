package store

import (
	"sync"

	"github.com/karpool/karpool-client/internal/domain/trip"
	apperrors "github.com/karpool/karpool-client/pkg/errors"
)

// EmptyTripsMessage is shown when a search returns no trips
const EmptyTripsMessage = "No trips found for the selected route and time."

// TripsView is the published state of the listing store
type TripsView struct {
	Trips        []trip.Trip `json:"trips"`
	Upcoming     []trip.Trip `json:"upcoming"`
	Selected     *trip.Trip  `json:"selected,omitempty"`
	Searched     bool        `json:"searched"`
	EmptyMessage string      `json:"emptyMessage,omitempty"`
}

// Trips holds search results, the driver's upcoming trips and the single
// selected trip shared by the detail and review views.
type Trips struct {
	notifier

	SearchGen   Generation
	UpcomingGen Generation

	mu       sync.RWMutex
	results  []trip.Trip
	upcoming []trip.Trip
	searched bool
	selected *trip.Trip
	// furthest status seen per trip id
	statuses map[int64]trip.Status
}

// NewTrips creates an empty listing
func NewTrips() *Trips {
	return &Trips{statuses: make(map[int64]trip.Status)}
}

// ReplaceResults installs search results for generation gen. It returns
// false when a newer search has started since.
func (s *Trips) ReplaceResults(gen uint64, trips []trip.Trip) bool {
	if !s.SearchGen.IsCurrent(gen) {
		return false
	}
	s.update(func() {
		s.results = s.reconcileLocked(trips)
		s.searched = true
	})
	return true
}

// ReplaceUpcoming installs the driver's upcoming trips for generation gen
func (s *Trips) ReplaceUpcoming(gen uint64, trips []trip.Trip) bool {
	if !s.UpcomingGen.IsCurrent(gen) {
		return false
	}
	s.update(func() { s.upcoming = s.reconcileLocked(trips) })
	return true
}

// Results returns the last search results
func (s *Trips) Results() []trip.Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]trip.Trip(nil), s.results...)
}

// Upcoming returns the driver's upcoming trips
func (s *Trips) Upcoming() []trip.Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]trip.Trip(nil), s.upcoming...)
}

// Select makes the listed trip with id the selected one
func (s *Trips) Select(id int64) (trip.Trip, error) {
	s.mu.Lock()
	t, ok := s.findLocked(id)
	if !ok {
		s.mu.Unlock()
		return trip.Trip{}, apperrors.ErrTripNotFound
	}
	s.selected = &t
	view := s.viewLocked()
	s.mu.Unlock()

	s.notify(Event{Store: NameTrips, Snapshot: view})
	return t, nil
}

// SelectTrip stores t as the selected trip, replacing any previous one
func (s *Trips) SelectTrip(t trip.Trip) {
	s.update(func() {
		t.Normalize()
		t.Status = s.observeLocked(t.ID, t.Status)
		s.selected = &t
	})
}

// Selected returns the selected trip
func (s *Trips) Selected() (trip.Trip, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.selected == nil {
		return trip.Trip{}, false
	}
	return *s.selected, true
}

// Find returns the trip with id from the listings or the selection
func (s *Trips) Find(id int64) (trip.Trip, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.findLocked(id); ok {
		return t, true
	}
	if s.selected != nil && s.selected.ID == id {
		return *s.selected, true
	}
	return trip.Trip{}, false
}

// Advance moves the listed or selected trip with id to next. It fails
// with trip.ErrTripNotFound when the trip is not known locally and with
// trip.ErrStatusRegression when next is not the following status.
func (s *Trips) Advance(id int64, next trip.Status) error {
	s.mu.Lock()
	cur, ok := s.findLocked(id)
	if !ok && s.selected != nil && s.selected.ID == id {
		cur, ok = *s.selected, true
	}
	if !ok {
		s.mu.Unlock()
		return trip.ErrTripNotFound
	}
	if !cur.Status.CanTransition(next) {
		s.mu.Unlock()
		return trip.ErrStatusRegression
	}

	s.observeLocked(id, next)
	for _, list := range [][]trip.Trip{s.results, s.upcoming} {
		for i := range list {
			if list[i].ID == id {
				list[i].Status = next
			}
		}
	}
	if s.selected != nil && s.selected.ID == id {
		s.selected.Status = next
	}
	view := s.viewLocked()
	s.mu.Unlock()

	s.notify(Event{Store: NameTrips, Snapshot: view})
	return nil
}

// Reset drops results and the selection
func (s *Trips) Reset() {
	s.SearchGen.Next()
	s.UpcomingGen.Next()
	s.update(func() {
		s.results = nil
		s.upcoming = nil
		s.searched = false
		s.selected = nil
	})
}

// View returns the current listing state
func (s *Trips) View() TripsView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewLocked()
}

// reconcileLocked drops trips that fail validation and keeps every status
// at least as far along as any status already observed for the same trip.
func (s *Trips) reconcileLocked(trips []trip.Trip) []trip.Trip {
	out := make([]trip.Trip, 0, len(trips))
	for _, t := range trips {
		t.Normalize()
		if t.Validate() != nil {
			continue
		}
		t.Status = s.observeLocked(t.ID, t.Status)
		out = append(out, t)
	}
	if s.selected != nil {
		for _, t := range out {
			if t.ID == s.selected.ID {
				s.selected.Status = t.Status
			}
		}
	}
	return out
}

func (s *Trips) observeLocked(id int64, status trip.Status) trip.Status {
	latest := status
	if prev, ok := s.statuses[id]; ok {
		latest = trip.Latest(prev, status)
	}
	s.statuses[id] = latest
	return latest
}

func (s *Trips) findLocked(id int64) (trip.Trip, bool) {
	for _, t := range s.results {
		if t.ID == id {
			return t, true
		}
	}
	for _, t := range s.upcoming {
		if t.ID == id {
			return t, true
		}
	}
	return trip.Trip{}, false
}

func (s *Trips) update(fn func()) {
	s.mu.Lock()
	fn()
	view := s.viewLocked()
	s.mu.Unlock()

	s.notify(Event{Store: NameTrips, Snapshot: view})
}

func (s *Trips) viewLocked() TripsView {
	view := TripsView{
		Trips:    append([]trip.Trip{}, s.results...),
		Upcoming: append([]trip.Trip{}, s.upcoming...),
		Searched: s.searched,
	}
	if s.selected != nil {
		sel := *s.selected
		view.Selected = &sel
	}
	if s.searched && len(s.results) == 0 {
		view.EmptyMessage = EmptyTripsMessage
	}
	return view
}
