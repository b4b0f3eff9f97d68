package dto

import (
	"github.com/karpool/karpool-client/internal/domain/geo"
	"github.com/karpool/karpool-client/internal/domain/trip"
)

// LoginRequest represents an email/password login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignupRequest represents a new account
type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// OTPRequest represents an OTP check after signup
type OTPRequest struct {
	Phone string `json:"phone" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

// SwitchRoleRequest represents a role switch
type SwitchRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=driver passenger"`
}

// ConfirmRequest carries the user's answer to a confirmation dialog
type ConfirmRequest struct {
	Confirm bool `json:"confirm"`
}

// InterestsRequest replaces the profile interests
type InterestsRequest struct {
	Interests []string `json:"interests"`
}

// VehicleRequest replaces the vehicle details
type VehicleRequest struct {
	Email          string `json:"email"`
	PhoneNumber    string `json:"phoneNumber"`
	VehicleName    string `json:"vehicleName" binding:"required"`
	VehicleColor   string `json:"vehicleColor"`
	ModelYear      string `json:"modelYear"`
	VehicleNumber  string `json:"vehicleNumber" binding:"required"`
	VehicleAverage string `json:"vehicleAverage"`
}

// TargetRequest selects which marker map input edits. 0 is the origin and
// 1 the destination.
type TargetRequest struct {
	Target *int `json:"target" binding:"required"`
}

// CoordinateRequest moves the active marker
type CoordinateRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// Coordinate returns the request as a domain coordinate
func (r CoordinateRequest) Coordinate() geo.Coordinate {
	return geo.Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude}
}

// NameRequest names the active marker
type NameRequest struct {
	Name string `json:"name"`
}

// PlaceSearchRequest searches for places by free text
type PlaceSearchRequest struct {
	Query string `json:"query"`
}

// BookmarkRequest saves a named place
type BookmarkRequest struct {
	Name        string         `json:"name" binding:"required"`
	Coordinates geo.Coordinate `json:"coordinates"`
}

// DateRequest toggles a travel date
type DateRequest struct {
	Date string `json:"date" binding:"required"`
}

// TimeRequest sets the time of day, as HH:mm
type TimeRequest struct {
	Time string `json:"time" binding:"required"`
}

// SearchRequest searches trips with explicit criteria. Missing fields are
// taken from the current selection.
type SearchRequest struct {
	LocationMarker    *geo.Coordinate `json:"locationMarker"`
	DestinationMarker *geo.Coordinate `json:"destinationMarker"`
	Date              string          `json:"date"`
	Time              string          `json:"time"`
}

// SelectTripRequest selects a trip, either by id from the listing or by
// value from another screen
type SelectTripRequest struct {
	TripID *int64     `json:"tripId"`
	Trip   *trip.Trip `json:"trip"`
}

// PublishRequest publishes a driver trip for the selected dates
type PublishRequest struct {
	Stops int     `json:"stops"`
	Price float64 `json:"price"`
	Seats int     `json:"seats"`
}

// JoinRequest asks to join a trip. PassengerID defaults to the session user.
type JoinRequest struct {
	PassengerID int64 `json:"passengerId"`
}

// OpenChatRequest opens the chat with another user
type OpenChatRequest struct {
	With string `json:"with" binding:"required"`
}

// ChatMessageRequest sends a chat message
type ChatMessageRequest struct {
	Text string `json:"text"`
}
