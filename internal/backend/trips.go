package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/karpool/karpool-client/internal/domain/geo"
	"github.com/karpool/karpool-client/internal/domain/trip"
	"github.com/karpool/karpool-client/pkg/logger"
)

// SearchCriteria is the body of a trip search
type SearchCriteria struct {
	LocationMarker    geo.Coordinate `json:"locationMarker"`
	DestinationMarker geo.Coordinate `json:"destinationMarker"`
	Time              string         `json:"time"`
	Date              string         `json:"date"`
}

// CreateTripRequest is the body a driver sends to publish trips, one per date
type CreateTripRequest struct {
	UserID            int64          `json:"userID"`
	VehicleID         int64          `json:"vehicleID"`
	Time              string         `json:"time"`
	Dates             []string       `json:"dates"`
	Stops             int            `json:"stops"`
	Price             float64        `json:"price"`
	Seats             int            `json:"seats"`
	LocationMarker    geo.Coordinate `json:"locationMarker"`
	DestinationMarker geo.Coordinate `json:"destinationMarker"`
	SourceName        string         `json:"sourceName"`
	DestinationName   string         `json:"destinationName"`
}

// SearchTrips returns trips matching criteria. No match is an empty list.
func (c *Client) SearchTrips(ctx context.Context, criteria SearchCriteria) ([]trip.Trip, error) {
	body, err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     "/passenger/getTrips",
		endpoint: "/passenger/getTrips",
		auth:     true,
		body:     criteria,
	})
	if err != nil {
		return nil, err
	}
	trips, err := decodeList[trip.Trip](body, "trips", "upcomingTrips")
	if err != nil {
		return nil, err
	}
	return c.validTrips(trips), nil
}

// CreateTrip publishes a trip for every date in req
func (c *Client) CreateTrip(ctx context.Context, req CreateTripRequest) error {
	return c.doJSON(ctx, call{
		method:   http.MethodPost,
		path:     "/driver/createTrip",
		endpoint: "/driver/createTrip",
		auth:     true,
		body:     req,
	}, nil)
}

// UpcomingTrips returns the logged-in driver's upcoming trips
func (c *Client) UpcomingTrips(ctx context.Context) ([]trip.Trip, error) {
	body, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "/driver/trips/upcoming",
		endpoint: "/driver/trips/upcoming",
		auth:     true,
	})
	if err != nil {
		return nil, err
	}
	trips, err := decodeList[trip.Trip](body, "upcomingTrips", "trips")
	if err != nil {
		return nil, err
	}
	return c.validTrips(trips), nil
}

// validTrips normalizes trips and drops those that are overbooked or carry
// an unknown status.
func (c *Client) validTrips(trips []trip.Trip) []trip.Trip {
	out := make([]trip.Trip, 0, len(trips))
	for _, t := range trips {
		t.Normalize()
		if err := t.Validate(); err != nil {
			c.log.Warn("Dropping invalid trip",
				logger.Int64("trip_id", t.ID),
				logger.String("status", string(t.Status)),
				logger.Int("passengers", t.NumberOfPassengers),
				logger.Int("seats", t.TotalSeats),
				logger.Err(err),
			)
			continue
		}
		out = append(out, t)
	}
	return out
}

// StartTrip marks the trip as ongoing
func (c *Client) StartTrip(ctx context.Context, tripID int64) error {
	return c.doJSON(ctx, call{
		method:   http.MethodPost,
		path:     fmt.Sprintf("/driver/trips/%d/start", tripID),
		endpoint: "/driver/trips/:id/start",
		auth:     true,
	}, nil)
}

// CompleteTrip marks the trip as completed
func (c *Client) CompleteTrip(ctx context.Context, tripID int64) error {
	return c.doJSON(ctx, call{
		method:   http.MethodPost,
		path:     fmt.Sprintf("/driver/trips/%d/complete", tripID),
		endpoint: "/driver/trips/:id/complete",
		auth:     true,
	}, nil)
}
