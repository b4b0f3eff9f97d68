package user

// Role is the active capability mode of the current user
type Role string

const (
	RoleDriver    Role = "driver"
	RolePassenger Role = "passenger"
)

// IsValid validates the role
func (r Role) IsValid() bool {
	switch r {
	case RoleDriver, RolePassenger:
		return true
	}
	return false
}

// User is the profile returned by the backend at login
type User struct {
	ID           int64  `json:"userid"`
	Name         string `json:"username"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	DriverID     *int64 `json:"driverid,omitempty"`
	VehicleID    *int64 `json:"vehicleid,omitempty"`
	ProfilePhoto string `json:"profile_photo,omitempty"`
}

// CanDrive returns true if the user has registered driver details
func (u *User) CanDrive() bool {
	return u != nil && u.DriverID != nil
}
