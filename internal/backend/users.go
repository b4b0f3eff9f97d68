package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/karpool/karpool-client/internal/domain/geo"
	"github.com/karpool/karpool-client/internal/domain/user"
)

// AuthResponse is returned by login and OTP validation
type AuthResponse struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

// SignupRequest is the body of a signup
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// VehicleUpdate is the body of a vehicle details update
type VehicleUpdate struct {
	Email          string `json:"email"`
	PhoneNumber    string `json:"phoneNumber"`
	UserID         int64  `json:"userID"`
	VehicleName    string `json:"vehicleName"`
	VehicleColor   string `json:"vehicleColor"`
	ModelYear      string `json:"modelYear"`
	VehicleNumber  string `json:"vehicleNumber"`
	VehicleAverage string `json:"vehicleAverage"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type otpBody struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.doJSON(ctx, call{
		method:   http.MethodPost,
		path:     "/user/login",
		endpoint: "/user/login",
		body:     loginBody{Email: email, Password: password},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup registers a user. The account is usable after OTP validation.
func (c *Client) Signup(ctx context.Context, req SignupRequest) error {
	return c.doJSON(ctx, call{
		method:   http.MethodPost,
		path:     "/user/signup",
		endpoint: "/user/signup",
		body:     req,
	}, nil)
}

// ValidateOTP confirms the code sent to phone and returns a bearer token
func (c *Client) ValidateOTP(ctx context.Context, phone, otp string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.doJSON(ctx, call{
		method:   http.MethodPost,
		path:     "/user/validateOtp",
		endpoint: "/user/validateOtp",
		body:     otpBody{Phone: phone, OTP: otp},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes the account for good
func (c *Client) DeleteUser(ctx context.Context, userID int64) error {
	return c.doJSON(ctx, call{
		method:   http.MethodDelete,
		path:     fmt.Sprintf("/user/%d", userID),
		endpoint: "/user/:id",
		auth:     true,
	}, nil)
}

// UpdateInterests replaces the user's profile interests
func (c *Client) UpdateInterests(ctx context.Context, userID int64, interests []string) error {
	return c.doJSON(ctx, call{
		method:   http.MethodPatch,
		path:     fmt.Sprintf("/user/%d/interests", userID),
		endpoint: "/user/:id/interests",
		auth:     true,
		body:     map[string][]string{"interests": interests},
	}, nil)
}

// UpdateVehicle replaces the driver's vehicle details
func (c *Client) UpdateVehicle(ctx context.Context, vehicleID int64, req VehicleUpdate) error {
	return c.doJSON(ctx, call{
		method:   http.MethodPut,
		path:     fmt.Sprintf("/driver/vehicle/%d", vehicleID),
		endpoint: "/driver/vehicle/:id",
		auth:     true,
		body:     req,
	}, nil)
}

// Bookmarks returns the user's saved places
func (c *Client) Bookmarks(ctx context.Context) ([]geo.Bookmark, error) {
	body, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "/user/bookmark/all",
		endpoint: "/user/bookmark/all",
		auth:     true,
	})
	if err != nil {
		return nil, err
	}
	return decodeList[geo.Bookmark](body, "bookmarks")
}

// CreateBookmark saves a named place
func (c *Client) CreateBookmark(ctx context.Context, b geo.Bookmark) error {
	return c.doJSON(ctx, call{
		method:   http.MethodPost,
		path:     "/user/bookmark/create",
		endpoint: "/user/bookmark/create",
		auth:     true,
		body:     b,
	}, nil)
}

// DeleteBookmark removes the saved place with name
func (c *Client) DeleteBookmark(ctx context.Context, name string) error {
	return c.doJSON(ctx, call{
		method:   http.MethodPost,
		path:     "/user/bookmark/delete",
		endpoint: "/user/bookmark/delete",
		auth:     true,
		body:     map[string]string{"name": name},
	}, nil)
}
