package store

import (
	"testing"

	"github.com/karpool/karpool-client/internal/domain/trip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrips_EmptyResultShowsEmptyState(t *testing.T) {
	s := NewTrips()
	assert.Empty(t, s.View().EmptyMessage, "no empty state before any search")

	gen := s.SearchGen.Next()
	require.True(t, s.ReplaceResults(gen, nil))

	view := s.View()
	assert.Empty(t, view.Trips)
	assert.True(t, view.Searched)
	assert.Equal(t, EmptyTripsMessage, view.EmptyMessage)
}

// TestTrips_OnlyLatestSearchWrites tests that a slow earlier search cannot
// overwrite a newer one
func TestTrips_OnlyLatestSearchWrites(t *testing.T) {
	s := NewTrips()

	slow := s.SearchGen.Next()
	fast := s.SearchGen.Next()

	require.True(t, s.ReplaceResults(fast, []trip.Trip{{ID: 2}}))
	assert.False(t, s.ReplaceResults(slow, []trip.Trip{{ID: 1}}))

	results := s.Results()
	require.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].ID)
}

func TestTrips_StatusNeverMovesBackward(t *testing.T) {
	s := NewTrips()

	gen := s.SearchGen.Next()
	s.ReplaceResults(gen, []trip.Trip{{ID: 1, Status: trip.StatusOngoing}})

	gen = s.SearchGen.Next()
	s.ReplaceResults(gen, []trip.Trip{{ID: 1, Status: trip.StatusUpcoming}, {ID: 2}})

	results := s.Results()
	require.Len(t, results, 2)
	assert.Equal(t, trip.StatusOngoing, results[0].Status)
	assert.Equal(t, trip.StatusUpcoming, results[1].Status, "missing status reads as upcoming")

	gen = s.UpcomingGen.Next()
	s.ReplaceUpcoming(gen, []trip.Trip{{ID: 1, Status: trip.StatusCompleted}})
	gen = s.SearchGen.Next()
	s.ReplaceResults(gen, []trip.Trip{{ID: 1, Status: trip.StatusOngoing}})
	assert.Equal(t, trip.StatusCompleted, s.Results()[0].Status)

	found, ok := s.Find(1)
	require.True(t, ok)
	assert.Equal(t, trip.StatusCompleted, found.Status)
}

func TestTrips_SelectOverwrites(t *testing.T) {
	s := NewTrips()
	gen := s.SearchGen.Next()
	s.ReplaceResults(gen, []trip.Trip{{ID: 1, Price: 300}, {ID: 2, Price: 450}})

	_, ok := s.Selected()
	assert.False(t, ok)

	_, err := s.Select(1)
	require.NoError(t, err)
	sel, err := s.Select(2)
	require.NoError(t, err)
	assert.Equal(t, 450.0, sel.Price)

	got, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, int64(2), got.ID)

	_, err = s.Select(99)
	assert.Error(t, err)

	s.SelectTrip(trip.Trip{ID: 7})
	got, _ = s.Selected()
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, trip.StatusUpcoming, got.Status)
}

// TestTrips_InvalidTripsAreDropped tests that overbooked trips and unknown
// statuses never reach the listing
func TestTrips_InvalidTripsAreDropped(t *testing.T) {
	s := NewTrips()

	gen := s.SearchGen.Next()
	require.True(t, s.ReplaceResults(gen, []trip.Trip{
		{ID: 1, TotalSeats: 2, NumberOfPassengers: 5, Status: trip.StatusUpcoming},
		{ID: 2, TotalSeats: 4, Status: trip.Status("teleported")},
		{ID: 3, TotalSeats: 4, NumberOfPassengers: 4},
	}))

	results := s.Results()
	require.Len(t, results, 1)
	assert.Equal(t, int64(3), results[0].ID)
	assert.Zero(t, results[0].SeatsLeft())

	_, ok := s.Find(1)
	assert.False(t, ok)
}

func TestTrips_Advance(t *testing.T) {
	s := NewTrips()
	gen := s.SearchGen.Next()
	s.ReplaceResults(gen, []trip.Trip{{ID: 1, TotalSeats: 3}})
	_, err := s.Select(1)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Advance(1, trip.StatusCompleted), trip.ErrStatusRegression)
	require.NoError(t, s.Advance(1, trip.StatusOngoing))
	assert.Equal(t, trip.StatusOngoing, s.Results()[0].Status)
	sel, _ := s.Selected()
	assert.Equal(t, trip.StatusOngoing, sel.Status)

	assert.ErrorIs(t, s.Advance(1, trip.StatusUpcoming), trip.ErrStatusRegression)
	assert.ErrorIs(t, s.Advance(99, trip.StatusOngoing), trip.ErrTripNotFound)

	// a later refresh with an older status keeps the advanced one
	gen = s.SearchGen.Next()
	s.ReplaceResults(gen, []trip.Trip{{ID: 1, TotalSeats: 3, Status: trip.StatusUpcoming}})
	assert.Equal(t, trip.StatusOngoing, s.Results()[0].Status)
}
