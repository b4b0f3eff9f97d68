package store

import (
	"sync"

	"github.com/karpool/karpool-client/internal/domain/geo"
	apperrors "github.com/karpool/karpool-client/pkg/errors"
)

// GeoSnapshot is the published state of the geo selection store
type GeoSnapshot struct {
	Target          geo.Target       `json:"target"`
	Origin          geo.Coordinate   `json:"origin"`
	Destination     geo.Coordinate   `json:"destination"`
	OriginName      string           `json:"originName"`
	DestinationName string           `json:"destinationName"`
	FitMarkers      bool             `json:"fitMarkers"`
	Bookmarks       []geo.Bookmark   `json:"bookmarks"`
	Places          []geo.Place      `json:"places"`
	Route           []geo.Coordinate `json:"route"`
}

// Geo is the origin/destination working set plus everything derived from
// it: bookmarks, geocoding candidates and the walking route.
type Geo struct {
	notifier

	// Generations for the three remote resources mirrored here
	PlacesGen    Generation
	RouteGen     Generation
	BookmarksGen Generation

	mu           sync.RWMutex
	defaultPoint geo.Coordinate
	target       geo.Target
	points       [2]geo.Coordinate
	names        [2]string
	fit          bool
	bookmarks    []geo.Bookmark
	places       []geo.Place
	route        []geo.Coordinate
}

// NewGeo creates a selection with both points at def
func NewGeo(def geo.Coordinate) *Geo {
	g := &Geo{defaultPoint: def}
	g.resetLocked()
	return g
}

// SetTarget chooses which point the next input edits
func (g *Geo) SetTarget(t geo.Target) error {
	if !t.IsValid() {
		return apperrors.ErrInvalidTarget
	}
	g.update(func() { g.target = t })
	return nil
}

// Target returns the active target
func (g *Geo) Target() geo.Target {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.target
}

// SetCoordinate overwrites the active point and asks the map to re-fit
func (g *Geo) SetCoordinate(c geo.Coordinate) error {
	if err := c.Validate(); err != nil {
		return apperrors.ErrInvalidCoordinates
	}
	g.update(func() {
		g.points[g.target] = c
		g.fit = true
	})
	return nil
}

// SetName overwrites the active point's label and leaves the coordinate alone
func (g *Geo) SetName(name string) {
	g.update(func() { g.names[g.target] = name })
}

// Origin returns the origin point and its label
func (g *Geo) Origin() (geo.Coordinate, string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.points[geo.TargetOrigin], g.names[geo.TargetOrigin]
}

// Destination returns the destination point and its label
func (g *Geo) Destination() (geo.Coordinate, string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.points[geo.TargetDestination], g.names[geo.TargetDestination]
}

// ConsumeFit returns whether markers need re-fitting and clears the flag
func (g *Geo) ConsumeFit() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	fit := g.fit
	g.fit = false
	return fit
}

// AddBookmark appends b unless a bookmark with the same name exists.
// It returns false when nothing changed.
func (g *Geo) AddBookmark(b geo.Bookmark) bool {
	g.mu.Lock()
	if g.indexLocked(b.Name) >= 0 {
		g.mu.Unlock()
		return false
	}
	g.bookmarks = append(g.bookmarks, b)
	snap := g.snapshotLocked()
	g.mu.Unlock()

	g.notify(Event{Store: NameGeo, Snapshot: snap})
	return true
}

// RemoveBookmark deletes the bookmark with exactly this name
func (g *Geo) RemoveBookmark(name string) bool {
	g.mu.Lock()
	i := g.indexLocked(name)
	if i < 0 {
		g.mu.Unlock()
		return false
	}
	g.bookmarks = append(g.bookmarks[:i:i], g.bookmarks[i+1:]...)
	snap := g.snapshotLocked()
	g.mu.Unlock()

	g.notify(Event{Store: NameGeo, Snapshot: snap})
	return true
}

// SelectBookmark applies the named bookmark to the active target
func (g *Geo) SelectBookmark(name string) error {
	g.mu.Lock()
	i := g.indexLocked(name)
	if i < 0 {
		g.mu.Unlock()
		return apperrors.ErrBookmarkMissing
	}
	b := g.bookmarks[i]
	g.points[g.target] = b.Coordinates
	g.names[g.target] = b.Name
	g.fit = true
	snap := g.snapshotLocked()
	g.mu.Unlock()

	g.notify(Event{Store: NameGeo, Snapshot: snap})
	return nil
}

// Bookmarks returns the saved bookmarks in insertion order
func (g *Geo) Bookmarks() []geo.Bookmark {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]geo.Bookmark(nil), g.bookmarks...)
}

// ReplaceBookmarks installs the server's bookmark list if gen is still
// current. Duplicate names keep their first occurrence.
func (g *Geo) ReplaceBookmarks(gen uint64, list []geo.Bookmark) bool {
	if !g.BookmarksGen.IsCurrent(gen) {
		return false
	}

	seen := make(map[string]bool, len(list))
	unique := make([]geo.Bookmark, 0, len(list))
	for _, b := range list {
		if seen[b.Name] {
			continue
		}
		seen[b.Name] = true
		unique = append(unique, b)
	}

	g.update(func() { g.bookmarks = unique })
	return true
}

// SetPlaces stores geocoding candidates for generation gen
func (g *Geo) SetPlaces(gen uint64, places []geo.Place) bool {
	if !g.PlacesGen.IsCurrent(gen) {
		return false
	}
	g.update(func() { g.places = append([]geo.Place(nil), places...) })
	return true
}

// Places returns the last geocoding candidates
func (g *Geo) Places() []geo.Place {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]geo.Place(nil), g.places...)
}

// SetRoute stores the route polyline for generation gen
func (g *Geo) SetRoute(gen uint64, points []geo.Coordinate) bool {
	if !g.RouteGen.IsCurrent(gen) {
		return false
	}
	g.update(func() { g.route = append([]geo.Coordinate(nil), points...) })
	return true
}

// Route returns the last route polyline
func (g *Geo) Route() []geo.Coordinate {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]geo.Coordinate(nil), g.route...)
}

// Reset returns both points to the default and drops derived data.
// Bookmarks belong to the user and survive a reset.
func (g *Geo) Reset() {
	g.PlacesGen.Next()
	g.RouteGen.Next()
	g.update(g.resetLocked)
}

// Clear resets the selection and also forgets bookmarks, used at logout
func (g *Geo) Clear() {
	g.BookmarksGen.Next()
	g.PlacesGen.Next()
	g.RouteGen.Next()
	g.update(func() {
		g.resetLocked()
		g.bookmarks = nil
	})
}

// Snapshot returns the current state
func (g *Geo) Snapshot() GeoSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshotLocked()
}

func (g *Geo) resetLocked() {
	g.target = geo.TargetOrigin
	g.points = [2]geo.Coordinate{g.defaultPoint, g.defaultPoint}
	g.names = [2]string{}
	g.fit = true
	g.places = nil
	g.route = nil
}

func (g *Geo) indexLocked(name string) int {
	for i, b := range g.bookmarks {
		if b.Name == name {
			return i
		}
	}
	return -1
}

func (g *Geo) update(fn func()) {
	g.mu.Lock()
	fn()
	snap := g.snapshotLocked()
	g.mu.Unlock()

	g.notify(Event{Store: NameGeo, Snapshot: snap})
}

func (g *Geo) snapshotLocked() GeoSnapshot {
	return GeoSnapshot{
		Target:          g.target,
		Origin:          g.points[geo.TargetOrigin],
		Destination:     g.points[geo.TargetDestination],
		OriginName:      g.names[geo.TargetOrigin],
		DestinationName: g.names[geo.TargetDestination],
		FitMarkers:      g.fit,
		Bookmarks:       append([]geo.Bookmark(nil), g.bookmarks...),
		Places:          append([]geo.Place(nil), g.places...),
		Route:           append([]geo.Coordinate(nil), g.route...),
	}
}
