package search

import (
	"context"
	"time"

	"github.com/karpool/karpool-client/internal/backend"
	"github.com/karpool/karpool-client/internal/domain/geo"
	"github.com/karpool/karpool-client/internal/domain/trip"
	"github.com/karpool/karpool-client/internal/domain/user"
	"github.com/karpool/karpool-client/internal/service/prompt"
	"github.com/karpool/karpool-client/internal/store"
	apperrors "github.com/karpool/karpool-client/pkg/errors"
	"github.com/karpool/karpool-client/pkg/logger"
	"github.com/karpool/karpool-client/pkg/monitoring"
)

// Backend is the part of the backend API used for listing and publishing trips
type Backend interface {
	SearchTrips(ctx context.Context, criteria backend.SearchCriteria) ([]trip.Trip, error)
	CreateTrip(ctx context.Context, req backend.CreateTripRequest) error
	UpcomingTrips(ctx context.Context) ([]trip.Trip, error)
}

// Criteria is one trip search
type Criteria struct {
	Origin      geo.Coordinate
	Destination geo.Coordinate
	Date        string
	Time        string
}

// PublishInput holds the trip details a driver enters before publishing
type PublishInput struct {
	Stops int
	Price float64
	Seats int
}

// Service turns the current selection into trip searches and publishes
// driver trips
type Service struct {
	backend  Backend
	session  *store.Session
	geo      *store.Geo
	schedule *store.Schedule
	trips    *store.Trips
	alerts   prompt.Alerter
	nrApp    *monitoring.NewRelicApp
	logger   *logger.Logger
}

// NewService creates a new search service
func NewService(
	backend Backend,
	session *store.Session,
	geoStore *store.Geo,
	schedule *store.Schedule,
	trips *store.Trips,
	alerts prompt.Alerter,
	nrApp *monitoring.NewRelicApp,
	log *logger.Logger,
) *Service {
	if nrApp == nil {
		nrApp = monitoring.Disabled()
	}
	return &Service{
		backend:  backend,
		session:  session,
		geo:      geoStore,
		schedule: schedule,
		trips:    trips,
		alerts:   alerts,
		nrApp:    nrApp,
		logger:   log.Named("search"),
	}
}

// Search replaces the listing with the trips matching c. An empty result
// is not an error; on failure the previous listing stays.
func (s *Service) Search(ctx context.Context, c Criteria) error {
	if err := validate(c); err != nil {
		prompt.Report(ctx, s.alerts, s.logger, err, "")
		return err
	}

	gen := s.trips.SearchGen.Next()
	start := time.Now()

	results, err := s.backend.SearchTrips(ctx, backend.SearchCriteria{
		LocationMarker:    c.Origin,
		DestinationMarker: c.Destination,
		Time:              c.Time,
		Date:              c.Date,
	})
	if err != nil {
		if !s.trips.SearchGen.IsCurrent(gen) {
			s.stale(gen)
			return err
		}
		prompt.Report(ctx, s.alerts, s.logger, err, "Failed to fetch trips. Please try again.")
		return err
	}

	if !s.trips.ReplaceResults(gen, results) {
		s.stale(gen)
		return nil
	}

	elapsed := time.Since(start)
	s.nrApp.RecordSearch(len(results), elapsed)
	s.logger.Info("Trip search completed",
		logger.String("date", c.Date),
		logger.String("time", c.Time),
		logger.Int("results", len(results)),
		logger.Duration("elapsed", elapsed),
	)
	return nil
}

// stale drops the outcome of a search that a newer one has replaced
func (s *Service) stale(gen uint64) {
	monitoring.StaleResponsesTotal.WithLabelValues("search").Inc()
	s.nrApp.RecordStaleResponse("search")
	s.logger.Debug("Discarded stale search outcome", logger.Uint64("generation", gen))
}

// SearchFromSelection searches with the stored origin, destination, date
// and time. Exactly one date must be selected.
func (s *Service) SearchFromSelection(ctx context.Context) error {
	dates := s.schedule.Dates()
	switch {
	case len(dates) == 0:
		prompt.Report(ctx, s.alerts, s.logger, apperrors.ErrNoDateSelected, "")
		return apperrors.ErrNoDateSelected
	case len(dates) > 1:
		prompt.Report(ctx, s.alerts, s.logger, apperrors.ErrTooManyDates, "")
		return apperrors.ErrTooManyDates
	}

	origin, _ := s.geo.Origin()
	destination, _ := s.geo.Destination()

	return s.Search(ctx, Criteria{
		Origin:      origin,
		Destination: destination,
		Date:        dates[0],
		Time:        s.schedule.Time().Format(store.TimeLayout),
	})
}

// Select makes the listed trip with id the selected trip
func (s *Service) Select(id int64) (trip.Trip, error) {
	return s.trips.Select(id)
}

// SelectTrip makes t the selected trip
func (s *Service) SelectTrip(t trip.Trip) {
	s.trips.SelectTrip(t)
}

// Publish creates one trip per selected date from the current selection
func (s *Service) Publish(ctx context.Context, in PublishInput) error {
	req, err := s.publishRequest(in)
	if err != nil {
		prompt.Report(ctx, s.alerts, s.logger, err, "")
		return err
	}

	if err := s.backend.CreateTrip(ctx, req); err != nil {
		prompt.Report(ctx, s.alerts, s.logger, err, "Failed to publish the trip. Please try again.")
		return err
	}

	s.nrApp.RecordTripPublished(len(req.Dates), req.Seats, req.Price)
	s.logger.Info("Trips published",
		logger.Int("dates", len(req.Dates)),
		logger.Int("seats", req.Seats),
		logger.Float64("price", req.Price),
	)
	prompt.Info(ctx, s.alerts, "Success", "Your trip has been published!")
	return nil
}

func (s *Service) publishRequest(in PublishInput) (backend.CreateTripRequest, error) {
	if s.session.Role() != user.RoleDriver {
		return backend.CreateTripRequest{}, apperrors.ErrDriverOnly
	}
	u, ok := s.session.User()
	if !ok {
		return backend.CreateTripRequest{}, apperrors.ErrNotLoggedIn
	}
	if u.VehicleID == nil {
		return backend.CreateTripRequest{}, apperrors.ErrDriverProfileRequired
	}
	if in.Seats <= 0 || in.Price < 0 || in.Stops < 0 {
		return backend.CreateTripRequest{}, apperrors.ErrInvalidTripDetails
	}

	dates := s.schedule.Dates()
	if len(dates) == 0 {
		return backend.CreateTripRequest{}, apperrors.ErrNoDateSelected
	}

	origin, originName := s.geo.Origin()
	destination, destinationName := s.geo.Destination()

	return backend.CreateTripRequest{
		UserID:            u.ID,
		VehicleID:         *u.VehicleID,
		Time:              s.schedule.Time().Format(store.TimeLayout),
		Dates:             dates,
		Stops:             in.Stops,
		Price:             in.Price,
		Seats:             in.Seats,
		LocationMarker:    origin,
		DestinationMarker: destination,
		SourceName:        originName,
		DestinationName:   destinationName,
	}, nil
}

// LoadUpcoming refreshes the driver's upcoming trips
func (s *Service) LoadUpcoming(ctx context.Context) error {
	if s.session.Role() != user.RoleDriver {
		prompt.Report(ctx, s.alerts, s.logger, apperrors.ErrDriverOnly, "")
		return apperrors.ErrDriverOnly
	}

	gen := s.trips.UpcomingGen.Next()
	trips, err := s.backend.UpcomingTrips(ctx)
	if err != nil {
		prompt.Report(ctx, s.alerts, s.logger, err, "Failed to load your upcoming trips.")
		return err
	}

	if !s.trips.ReplaceUpcoming(gen, trips) {
		monitoring.StaleResponsesTotal.WithLabelValues("upcoming").Inc()
		return nil
	}
	s.logger.Debug("Upcoming trips loaded", logger.Int("count", len(trips)))
	return nil
}

func validate(c Criteria) error {
	if c.Origin.Validate() != nil || c.Destination.Validate() != nil {
		return apperrors.ErrInvalidCoordinates
	}
	if _, err := time.Parse(store.DateLayout, c.Date); err != nil {
		return apperrors.ErrInvalidDate
	}
	if _, err := time.Parse(store.TimeLayout, c.Time); err != nil {
		return apperrors.BadRequest("Time must use the HH:MM format", err)
	}
	return nil
}
