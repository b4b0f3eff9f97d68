package auth

import (
	"context"
	"strings"

	"github.com/karpool/karpool-client/internal/backend"
	"github.com/karpool/karpool-client/internal/domain/user"
	"github.com/karpool/karpool-client/internal/service/prompt"
	"github.com/karpool/karpool-client/internal/store"
	apperrors "github.com/karpool/karpool-client/pkg/errors"
	"github.com/karpool/karpool-client/pkg/logger"
	"github.com/karpool/karpool-client/pkg/monitoring"
	"github.com/karpool/karpool-client/pkg/session"
)

// DeleteAccountQuestion is asked before the account is removed
const DeleteAccountQuestion = "Are you sure you want to delete your profile?"

// Backend is the account part of the backend API
type Backend interface {
	Login(ctx context.Context, email, password string) (*backend.AuthResponse, error)
	Signup(ctx context.Context, req backend.SignupRequest) error
	ValidateOTP(ctx context.Context, phone, otp string) (*backend.AuthResponse, error)
	DeleteUser(ctx context.Context, userID int64) error
	UpdateInterests(ctx context.Context, userID int64, interests []string) error
	UpdateVehicle(ctx context.Context, vehicleID int64, req backend.VehicleUpdate) error
}

// Stores groups the state that is reset when the user or role changes
type Stores struct {
	Session  *store.Session
	Geo      *store.Geo
	Schedule *store.Schedule
	Trips    *store.Trips
	Requests *store.Requests
}

// Service handles login, signup, logout and role switching
type Service struct {
	backend Backend
	tokens  session.TokenStore
	stores  Stores
	alerts  prompt.Alerter
	confirm prompt.Confirmer
	nrApp   *monitoring.NewRelicApp
	logger  *logger.Logger
}

// NewService creates a new auth service
func NewService(
	backend Backend,
	tokens session.TokenStore,
	stores Stores,
	alerts prompt.Alerter,
	confirm prompt.Confirmer,
	nrApp *monitoring.NewRelicApp,
	log *logger.Logger,
) *Service {
	if nrApp == nil {
		nrApp = monitoring.Disabled()
	}
	return &Service{
		backend: backend,
		tokens:  tokens,
		stores:  stores,
		alerts:  alerts,
		confirm: confirm,
		nrApp:   nrApp,
		logger:  log.Named("auth"),
	}
}

// Login signs in with email and password
func (s *Service) Login(ctx context.Context, email, password string) (user.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		err := apperrors.BadRequest("Email and password are required", nil)
		prompt.Report(ctx, s.alerts, s.logger, err, "")
		return user.User{}, err
	}

	resp, err := s.backend.Login(ctx, email, password)
	if err != nil {
		prompt.Report(ctx, s.alerts, s.logger, err, "Login failed. Please check your credentials.")
		return user.User{}, err
	}
	return s.establish(ctx, resp)
}

// Signup registers a new account. The user logs in after validating the
// OTP sent to their phone.
func (s *Service) Signup(ctx context.Context, req backend.SignupRequest) error {
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" ||
		strings.TrimSpace(req.Phone) == "" || req.Password == "" {
		err := apperrors.BadRequest("All fields are required", nil)
		prompt.Report(ctx, s.alerts, s.logger, err, "")
		return err
	}

	if err := s.backend.Signup(ctx, req); err != nil {
		prompt.Report(ctx, s.alerts, s.logger, err, "Signup failed. Please try again.")
		return err
	}
	s.logger.Info("Signup submitted", logger.String("email", req.Email))
	return nil
}

// ValidateOTP completes signup and starts a session
func (s *Service) ValidateOTP(ctx context.Context, phone, otp string) (user.User, error) {
	if strings.TrimSpace(otp) == "" {
		err := apperrors.BadRequest("Please enter the OTP", nil)
		prompt.Report(ctx, s.alerts, s.logger, err, "")
		return user.User{}, err
	}

	resp, err := s.backend.ValidateOTP(ctx, phone, otp)
	if err != nil {
		prompt.Report(ctx, s.alerts, s.logger, err, "Invalid OTP. Please try again.")
		return user.User{}, err
	}
	return s.establish(ctx, resp)
}

// Restore resumes a session from a persisted token. It reports false when
// there is nothing to restore.
func (s *Service) Restore(ctx context.Context) (bool, error) {
	token, err := s.tokens.Load(ctx)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to load token")
	}
	if token == "" {
		return false, nil
	}

	claims, err := session.ParseClaims(token)
	if err != nil {
		s.logger.Warn("Discarding unreadable token", logger.Err(err))
		return false, s.tokens.Clear(ctx)
	}

	s.stores.Session.SetUser(user.User{
		ID:       claims.UserID,
		Email:    claims.Email,
		DriverID: claims.DriverID,
	})
	s.logger.Info("Session restored", logger.Int64("user_id", claims.UserID))
	return true, nil
}

// Logout forgets the token and all user state. Selections return to their
// defaults.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.tokens.Clear(ctx); err != nil {
		s.logger.Error("Failed to clear token", logger.Err(err))
		return apperrors.Wrap(err, "failed to clear token")
	}

	s.stores.Session.Clear()
	s.stores.Schedule.Reset()
	s.stores.Geo.Clear()
	s.stores.Trips.Reset()
	s.stores.Requests.Reset()

	s.logger.Info("Logged out")
	return nil
}

// SwitchRole changes between driver and passenger mode and resets the
// selections made in the previous mode
func (s *Service) SwitchRole(ctx context.Context, role user.Role) error {
	if err := s.stores.Session.SetRole(role); err != nil {
		prompt.Report(ctx, s.alerts, s.logger, err, "")
		return err
	}

	s.stores.Schedule.Reset()
	s.stores.Geo.Reset()
	s.stores.Trips.Reset()
	s.stores.Requests.Reset()

	s.logger.Info("Role switched", logger.String("role", string(role)))
	return nil
}

// DeleteAccount removes the account after confirmation and logs out
func (s *Service) DeleteAccount(ctx context.Context) error {
	u, ok := s.stores.Session.User()
	if !ok {
		return apperrors.ErrNotLoggedIn
	}
	if !s.confirm.Confirm(ctx, DeleteAccountQuestion) {
		return apperrors.ErrNotConfirmed
	}

	if err := s.backend.DeleteUser(ctx, u.ID); err != nil {
		prompt.Report(ctx, s.alerts, s.logger, err, "Failed to delete profile. Please try again.")
		return err
	}

	s.nrApp.RecordCustomEvent("AccountDeleted", map[string]interface{}{"user_id": u.ID})
	return s.Logout(ctx)
}

// UpdateInterests replaces the profile interests
func (s *Service) UpdateInterests(ctx context.Context, interests []string) error {
	u, ok := s.stores.Session.User()
	if !ok {
		return apperrors.ErrNotLoggedIn
	}

	cleaned := make([]string, 0, len(interests))
	for _, i := range interests {
		if i = strings.TrimSpace(i); i != "" {
			cleaned = append(cleaned, i)
		}
	}

	if err := s.backend.UpdateInterests(ctx, u.ID, cleaned); err != nil {
		prompt.Report(ctx, s.alerts, s.logger, err, "Failed to update interests. Please try again.")
		return err
	}
	prompt.Info(ctx, s.alerts, "Success", "Your interests have been updated!")
	return nil
}

// UpdateVehicle replaces the driver's vehicle details
func (s *Service) UpdateVehicle(ctx context.Context, req backend.VehicleUpdate) error {
	u, ok := s.stores.Session.User()
	if !ok {
		return apperrors.ErrNotLoggedIn
	}
	if u.VehicleID == nil {
		return apperrors.ErrDriverProfileRequired
	}
	req.UserID = u.ID

	if err := s.backend.UpdateVehicle(ctx, *u.VehicleID, req); err != nil {
		prompt.Report(ctx, s.alerts, s.logger, err, "Failed to update vehicle details. Please try again.")
		return err
	}
	prompt.Info(ctx, s.alerts, "Success", "Your vehicle details have been updated!")
	return nil
}

// establish persists the token and fills identity fields the response
// body left out from the token claims
func (s *Service) establish(ctx context.Context, resp *backend.AuthResponse) (user.User, error) {
	if resp.Token == "" {
		err := apperrors.Decode(apperrors.ErrMissingCredentials)
		prompt.Report(ctx, s.alerts, s.logger, err, "Login failed. Please try again.")
		return user.User{}, err
	}

	if err := s.tokens.Save(ctx, resp.Token); err != nil {
		s.logger.Error("Failed to persist token", logger.Err(err))
		return user.User{}, apperrors.Wrap(err, "failed to persist token")
	}

	u := resp.User
	if claims, err := session.ParseClaims(resp.Token); err != nil {
		s.logger.Warn("Token claims unreadable", logger.Err(err))
	} else {
		if u.ID == 0 {
			u.ID = claims.UserID
		}
		if u.DriverID == nil {
			u.DriverID = claims.DriverID
		}
		if u.Email == "" {
			u.Email = claims.Email
		}
	}

	s.stores.Session.SetUser(u)
	s.nrApp.RecordCustomEvent("UserLoggedIn", map[string]interface{}{
		"user_id":   u.ID,
		"can_drive": u.CanDrive(),
	})
	s.logger.Info("Logged in", logger.Int64("user_id", u.ID))
	return u, nil
}
