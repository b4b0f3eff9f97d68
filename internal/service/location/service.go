package location

import (
	"context"
	"strings"

	"github.com/karpool/karpool-client/internal/domain/geo"
	"github.com/karpool/karpool-client/internal/service/prompt"
	"github.com/karpool/karpool-client/internal/store"
	apperrors "github.com/karpool/karpool-client/pkg/errors"
	"github.com/karpool/karpool-client/pkg/logger"
	"github.com/karpool/karpool-client/pkg/maps"
	"github.com/karpool/karpool-client/pkg/monitoring"
)

// Backend is the bookmark part of the backend API
type Backend interface {
	Bookmarks(ctx context.Context) ([]geo.Bookmark, error)
	CreateBookmark(ctx context.Context, b geo.Bookmark) error
	DeleteBookmark(ctx context.Context, name string) error
}

// Service drives the geo selection store from geocoding, routing and the
// user's saved bookmarks
type Service struct {
	backend  Backend
	geocoder maps.Geocoder
	router   maps.Router
	geo      *store.Geo
	alerts   prompt.Alerter
	logger   *logger.Logger
}

// NewService creates a new location service
func NewService(backend Backend, geocoder maps.Geocoder, router maps.Router, geoStore *store.Geo, alerts prompt.Alerter, log *logger.Logger) *Service {
	return &Service{
		backend:  backend,
		geocoder: geocoder,
		router:   router,
		geo:      geoStore,
		alerts:   alerts,
		logger:   log.Named("location"),
	}
}

// SearchPlaces geocodes query and stores the candidates. Only the latest
// search is kept.
func (s *Service) SearchPlaces(ctx context.Context, query string) ([]geo.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		prompt.Report(ctx, s.alerts, s.logger, apperrors.ErrEmptyQuery, "")
		return nil, apperrors.ErrEmptyQuery
	}

	gen := s.geo.PlacesGen.Next()
	results, err := s.geocoder.Search(ctx, query)
	if err != nil {
		err = apperrors.Transport(err)
		if !s.geo.PlacesGen.IsCurrent(gen) {
			s.stale("places")
			return nil, err
		}
		prompt.Report(ctx, s.alerts, s.logger, err, "Something went wrong while fetching the locations.")
		return nil, err
	}

	places := make([]geo.Place, len(results))
	for i, r := range results {
		places[i] = toPlace(r)
	}

	if !s.geo.SetPlaces(gen, places) {
		s.stale("places")
		return s.geo.Places(), nil
	}
	return places, nil
}

// SelectPlace applies a geocoding candidate to the active target
func (s *Service) SelectPlace(p geo.Place) error {
	if err := s.geo.SetCoordinate(p.Coordinates); err != nil {
		return err
	}
	s.geo.SetName(p.Name)
	return nil
}

// PinLocation moves the active target to c, as after a map tap or marker
// drag, and names it from a reverse lookup when one succeeds
func (s *Service) PinLocation(ctx context.Context, c geo.Coordinate) error {
	if err := s.geo.SetCoordinate(c); err != nil {
		return err
	}
	target := s.geo.Target()

	place, err := s.geocoder.Reverse(ctx, maps.LatLng{Lat: c.Latitude, Lng: c.Longitude})
	if err != nil {
		s.logger.Debug("Reverse lookup failed", logger.Err(err))
		return nil
	}

	// The user may have moved on while the lookup ran
	snap := s.geo.Snapshot()
	current := snap.Origin
	if target == geo.TargetDestination {
		current = snap.Destination
	}
	if snap.Target != target || current != c {
		s.stale("reverse")
		return nil
	}
	s.geo.SetName(place.Name)
	return nil
}

// FetchRoute computes the walking route between origin and destination.
// Failures are logged and leave the previous route.
func (s *Service) FetchRoute(ctx context.Context) ([]geo.Coordinate, error) {
	origin, _ := s.geo.Origin()
	destination, _ := s.geo.Destination()

	gen := s.geo.RouteGen.Next()
	route, err := s.router.WalkingRoute(ctx, toLatLng(origin), toLatLng(destination))
	if err != nil {
		s.logger.Error("Error fetching the route", logger.Err(err))
		return nil, apperrors.Transport(err)
	}

	points := make([]geo.Coordinate, len(route.Points))
	for i, p := range route.Points {
		points[i] = geo.Coordinate{Latitude: p.Lat, Longitude: p.Lng}
	}

	if !s.geo.SetRoute(gen, points) {
		s.stale("route")
		return s.geo.Route(), nil
	}
	s.logger.Debug("Route loaded",
		logger.Int("points", len(points)),
		logger.Float64("distance_m", route.DistanceMeters),
	)
	return points, nil
}

// SyncBookmarks replaces local bookmarks with the server's
func (s *Service) SyncBookmarks(ctx context.Context) error {
	gen := s.geo.BookmarksGen.Next()
	list, err := s.backend.Bookmarks(ctx)
	if err != nil {
		if !s.geo.BookmarksGen.IsCurrent(gen) {
			s.stale("bookmarks")
			return err
		}
		prompt.Report(ctx, s.alerts, s.logger, err, "Failed to load your bookmarks.")
		return err
	}
	if !s.geo.ReplaceBookmarks(gen, list) {
		s.stale("bookmarks")
	}
	return nil
}

// AddBookmark saves b. A name that already exists is left as it is.
func (s *Service) AddBookmark(ctx context.Context, b geo.Bookmark) error {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return apperrors.BadRequest("Bookmark name is required", nil)
	}
	if err := b.Coordinates.Validate(); err != nil {
		return apperrors.ErrInvalidCoordinates
	}
	for _, existing := range s.geo.Bookmarks() {
		if existing.Name == b.Name {
			return nil
		}
	}

	if err := s.backend.CreateBookmark(ctx, b); err != nil {
		prompt.Report(ctx, s.alerts, s.logger, err, "Failed to save the bookmark.")
		return err
	}
	s.geo.AddBookmark(b)
	return nil
}

// RemoveBookmark deletes the bookmark with exactly name
func (s *Service) RemoveBookmark(ctx context.Context, name string) error {
	found := false
	for _, existing := range s.geo.Bookmarks() {
		if existing.Name == name {
			found = true
			break
		}
	}
	if !found {
		return apperrors.ErrBookmarkMissing
	}

	if err := s.backend.DeleteBookmark(ctx, name); err != nil {
		prompt.Report(ctx, s.alerts, s.logger, err, "Failed to delete the bookmark.")
		return err
	}
	s.geo.RemoveBookmark(name)
	return nil
}

// SelectBookmark applies a saved bookmark to the active target
func (s *Service) SelectBookmark(name string) error {
	return s.geo.SelectBookmark(name)
}

func (s *Service) stale(resource string) {
	monitoring.StaleResponsesTotal.WithLabelValues(resource).Inc()
	s.logger.Debug("Discarded stale response", logger.String("resource", resource))
}

func toPlace(p maps.Place) geo.Place {
	return geo.Place{
		Name:        p.Name,
		DisplayName: p.DisplayName,
		Coordinates: geo.Coordinate{Latitude: p.Location.Lat, Longitude: p.Location.Lng},
	}
}

func toLatLng(c geo.Coordinate) maps.LatLng {
	return maps.LatLng{Lat: c.Latitude, Lng: c.Longitude}
}
