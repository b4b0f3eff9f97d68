package trip

import (
	"errors"

	"github.com/karpool/karpool-client/internal/domain/geo"
)

// Status represents trip status
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
)

// Trip is one published ride offering as returned by the backend
type Trip struct {
	ID                  int64          `json:"tripid"`
	DriverID            int64          `json:"driverid"`
	VehicleID           int64          `json:"vehicleid"`
	StartLocation       geo.Coordinate `json:"startlocation"`
	DestinationLocation geo.Coordinate `json:"destinationlocation"`
	SourceName          string         `json:"sourcename,omitempty"`
	DestinationName     string         `json:"destinationname,omitempty"`
	Date                string         `json:"tripdate"`
	Time                string         `json:"triptime"`
	TotalSeats          int            `json:"totalseats"`
	NumberOfPassengers  int            `json:"numberofpassengers"`
	NumberOfStops       int            `json:"numberofstops"`
	Price               float64        `json:"price"`
	Status              Status         `json:"status"`
	Distance            string         `json:"distance,omitempty"`
	EstimatedTime       string         `json:"estimatedTime,omitempty"`

	// Denormalized driver and vehicle display fields
	DriverName     string  `json:"username"`
	OverallRating  float64 `json:"overallrating"`
	ProfilePhoto   *string `json:"profile_photo"`
	VehicleName    string  `json:"vehiclename"`
	VehicleColor   string  `json:"vehiclecolor"`
	VehicleNumber  string  `json:"vehiclenumber"`
	VehicleAverage float64 `json:"vehicleaverage"`
}

var (
	ErrTripNotFound     = errors.New("trip not found")
	ErrOverbooked       = errors.New("trip has more passengers than seats")
	ErrUnknownStatus    = errors.New("unknown trip status")
	ErrStatusRegression = errors.New("trip status cannot move backward")
)

// IsValid validates the status
func (s Status) IsValid() bool {
	switch s {
	case StatusUpcoming, StatusOngoing, StatusCompleted:
		return true
	}
	return false
}

// rank orders statuses along the only allowed direction
func (s Status) rank() int {
	switch s {
	case StatusOngoing:
		return 1
	case StatusCompleted:
		return 2
	}
	return 0
}

// CanTransition reports whether next is a forward move from s
func (s Status) CanTransition(next Status) bool {
	return next.IsValid() && next.rank() == s.rank()+1
}

// Latest returns whichever of the two statuses is further along
func Latest(a, b Status) Status {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// Normalize fills defaults the backend sometimes omits
func (t *Trip) Normalize() {
	if t.Status == "" {
		t.Status = StatusUpcoming
	}
}

// Validate checks the trip invariants
func (t *Trip) Validate() error {
	if !t.Status.IsValid() {
		return ErrUnknownStatus
	}
	if t.NumberOfPassengers > t.TotalSeats {
		return ErrOverbooked
	}
	return nil
}

// SeatsLeft returns the number of free seats
func (t *Trip) SeatsLeft() int {
	if left := t.TotalSeats - t.NumberOfPassengers; left > 0 {
		return left
	}
	return 0
}

// CanStart checks if trip can be started
func (t *Trip) CanStart() bool {
	return t.Status == StatusUpcoming
}

// CanComplete checks if trip can be completed
func (t *Trip) CanComplete() bool {
	return t.Status == StatusOngoing
}
