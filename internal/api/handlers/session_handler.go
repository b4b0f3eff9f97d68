package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/karpool/karpool-client/internal/api/dto"
	"github.com/karpool/karpool-client/internal/backend"
	"github.com/karpool/karpool-client/internal/domain/user"
	"github.com/karpool/karpool-client/internal/service/prompt"
)

// GetSession handles GET /v1/session
func (h *Handlers) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.Session.Snapshot())
}

// Login handles POST /v1/session/login
func (h *Handlers) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	u, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "role": h.Session.Role()})
}

// Signup handles POST /v1/session/signup
func (h *Handlers) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if !h.bindJSON(c, &req) {
		return
	}

	err := h.Auth.Signup(c.Request.Context(), backend.SignupRequest{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "otp_sent"})
}

// ValidateOTP handles POST /v1/session/otp
func (h *Handlers) ValidateOTP(c *gin.Context) {
	var req dto.OTPRequest
	if !h.bindJSON(c, &req) {
		return
	}

	u, err := h.Auth.ValidateOTP(c.Request.Context(), req.Phone, req.OTP)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "role": h.Session.Role()})
}

// Logout handles POST /v1/session/logout
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.Auth.Logout(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SwitchRole handles PUT /v1/session/role
func (h *Handlers) SwitchRole(c *gin.Context) {
	var req dto.SwitchRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.Auth.SwitchRole(c.Request.Context(), user.Role(req.Role)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Session.Snapshot())
}

// DeleteAccount handles DELETE /v1/session/account
func (h *Handlers) DeleteAccount(c *gin.Context) {
	var req dto.ConfirmRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	ctx := prompt.WithConfirmation(c.Request.Context(), req.Confirm)
	if err := h.Auth.DeleteAccount(ctx); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateInterests handles PUT /v1/session/interests
func (h *Handlers) UpdateInterests(c *gin.Context) {
	var req dto.InterestsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.Auth.UpdateInterests(c.Request.Context(), req.Interests); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateVehicle handles PUT /v1/session/vehicle
func (h *Handlers) UpdateVehicle(c *gin.Context) {
	var req dto.VehicleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	err := h.Auth.UpdateVehicle(c.Request.Context(), backend.VehicleUpdate{
		Email:          req.Email,
		PhoneNumber:    req.PhoneNumber,
		VehicleName:    req.VehicleName,
		VehicleColor:   req.VehicleColor,
		ModelYear:      req.ModelYear,
		VehicleNumber:  req.VehicleNumber,
		VehicleAverage: req.VehicleAverage,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
