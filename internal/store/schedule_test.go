package store

import (
	"testing"
	"time"

	"github.com/karpool/karpool-client/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedRole(r user.Role) func() user.Role {
	return func() user.Role { return r }
}

// TestSchedule_PassengerHoldsOneDate tests that a passenger never has more
// than one date selected
func TestSchedule_PassengerHoldsOneDate(t *testing.T) {
	s := NewSchedule(fixedRole(user.RolePassenger), nil)

	sequence := []string{"2026-10-20", "2026-10-21", "2026-10-21", "2026-10-22", "2026-10-20"}
	for _, d := range sequence {
		require.NoError(t, s.Toggle(d))
		assert.LessOrEqual(t, len(s.Dates()), 1, "after toggling %s", d)
	}
	assert.Equal(t, []string{"2026-10-20"}, s.Dates())

	require.NoError(t, s.Toggle("2026-10-20"))
	assert.Empty(t, s.Dates(), "toggling the selected date clears it")
}

// TestSchedule_DriverTogglesIndependently tests that a driver toggle only
// touches the toggled date
func TestSchedule_DriverTogglesIndependently(t *testing.T) {
	s := NewSchedule(fixedRole(user.RoleDriver), nil)

	for _, d := range []string{"2026-10-22", "2026-10-20", "2026-10-21"} {
		require.NoError(t, s.Toggle(d))
	}
	assert.Equal(t, []string{"2026-10-20", "2026-10-21", "2026-10-22"}, s.Dates())

	require.NoError(t, s.Toggle("2026-10-21"))
	assert.Equal(t, []string{"2026-10-20", "2026-10-22"}, s.Dates())

	require.NoError(t, s.Toggle("2026-10-23"))
	assert.Equal(t, []string{"2026-10-20", "2026-10-22", "2026-10-23"}, s.Dates())
}

func TestSchedule_RejectsInvalidDate(t *testing.T) {
	s := NewSchedule(fixedRole(user.RoleDriver), nil)

	for _, d := range []string{"", "20-10-2026", "2026-13-01", "tomorrow"} {
		assert.Error(t, s.Toggle(d), d)
	}
	assert.Empty(t, s.Dates())
}

func TestSchedule_ResetUsesClock(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	s := NewSchedule(fixedRole(user.RoleDriver), func() time.Time { return now })

	require.NoError(t, s.Toggle("2026-10-20"))
	s.SetTime(time.Date(2026, 10, 18, 17, 45, 0, 0, time.UTC))
	assert.Equal(t, "17:45", s.Snapshot().Time)

	now = now.Add(time.Hour)
	s.Reset()

	snap := s.Snapshot()
	assert.Empty(t, snap.Dates)
	assert.Equal(t, "10:30", snap.Time)
}

func TestSchedule_RoleIsReadAtToggleTime(t *testing.T) {
	role := user.RoleDriver
	s := NewSchedule(func() user.Role { return role }, nil)

	require.NoError(t, s.Toggle("2026-10-20"))
	require.NoError(t, s.Toggle("2026-10-21"))
	assert.Len(t, s.Dates(), 2)

	role = user.RolePassenger
	require.NoError(t, s.Toggle("2026-10-25"))
	assert.Equal(t, []string{"2026-10-25"}, s.Dates())
}
