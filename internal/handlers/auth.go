package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jharmon96/inkwell/internal/middleware"
	"github.com/jharmon96/inkwell/internal/models"
	"github.com/jharmon96/inkwell/internal/services"
	"github.com/jharmon96/inkwell/pkg/errors"
	"github.com/jharmon96/inkwell/pkg/response"
)

// AuthHandler exposes the account lifecycle and login flows over HTTP.
type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func userPayload(user *models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"is_active":  user.IsActive,
		"is_staff":   user.IsStaff,
	}
}

// POST /api/users/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.auth.Register(requestContext(c), services.RegisterInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusCreated,
		"Registration successful. A one-time passcode has been sent to your email.",
		gin.H{"user": userPayload(user)},
	)
}

type activateRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// POST /api/users/activate
func (h *AuthHandler) Activate(c *gin.Context) {
	var req activateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.auth.Activate(requestContext(c), req.Email, req.OTP)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK,
		"Account activated successfully.",
		gin.H{"user": userPayload(user)},
	)
}

type resendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// POST /api/users/resend-otp
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req resendOTPRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.ResendOTP(requestContext(c), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK,
		"A new one-time passcode has been sent to your email.", nil)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
}

// POST /api/users/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, user, err := h.auth.Login(requestContext(c), req.Email, req.Password, req.OTP)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"tokens": tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
		"user":   userPayload(user),
	})
}

type googleLoginRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
}

// POST /api/users/google-login
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req googleLoginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, user, err := h.auth.GoogleLogin(requestContext(c), req.AccessToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"tokens": tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
		"user":   userPayload(user),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, err := h.auth.Refresh(requestContext(c), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"tokens": tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
	})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	user, err := h.auth.GetUser(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": userPayload(user)})
}
