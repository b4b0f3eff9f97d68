package store

import (
	"sort"
	"sync"
	"time"

	"github.com/karpool/karpool-client/internal/domain/user"
	apperrors "github.com/karpool/karpool-client/pkg/errors"
)

// Formats used for dates and times on the wire
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ScheduleSnapshot is the published state of the date/time store
type ScheduleSnapshot struct {
	Dates []string `json:"dates"`
	Time  string   `json:"time"`
}

// Schedule accumulates selected calendar dates and one time of day.
// Passengers hold at most one date; drivers may hold many.
type Schedule struct {
	notifier

	mode func() user.Role
	now  func() time.Time

	mu    sync.RWMutex
	dates map[string]bool
	at    time.Time
}

// NewSchedule creates an empty schedule. mode reports the active role at
// toggle time; now is the clock used by Reset.
func NewSchedule(mode func() user.Role, now func() time.Time) *Schedule {
	if now == nil {
		now = time.Now
	}
	return &Schedule{
		mode:  mode,
		now:   now,
		dates: make(map[string]bool),
		at:    now(),
	}
}

// Toggle flips isoDate according to the active role
func (s *Schedule) Toggle(isoDate string) error {
	if _, err := time.Parse(DateLayout, isoDate); err != nil {
		return apperrors.ErrInvalidDate
	}

	s.update(func() {
		if s.dates[isoDate] {
			delete(s.dates, isoDate)
			return
		}
		if s.mode() != user.RoleDriver {
			clear(s.dates)
		}
		s.dates[isoDate] = true
	})
	return nil
}

// SetTime overwrites the time of day
func (s *Schedule) SetTime(t time.Time) {
	s.update(func() { s.at = t })
}

// Dates returns the selected dates in ascending order
func (s *Schedule) Dates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.datesLocked()
}

// Time returns the selected time of day
func (s *Schedule) Time() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.at
}

// Reset clears all dates and sets the time to now
func (s *Schedule) Reset() {
	s.update(func() {
		clear(s.dates)
		s.at = s.now()
	})
}

// Snapshot returns the current state
func (s *Schedule) Snapshot() ScheduleSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Schedule) datesLocked() []string {
	dates := make([]string, 0, len(s.dates))
	for d := range s.dates {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

func (s *Schedule) update(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(Event{Store: NameSchedule, Snapshot: snap})
}

func (s *Schedule) snapshotLocked() ScheduleSnapshot {
	return ScheduleSnapshot{
		Dates: s.datesLocked(),
		Time:  s.at.Format(TimeLayout),
	}
}
