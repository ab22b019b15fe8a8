package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formdesk/backend/internal/model"
	"github.com/formdesk/backend/internal/service"
	"github.com/formdesk/backend/internal/token"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register godoc
// @Summary Register a new user
// @Description Sign up when ALLOW_SIGNUP is true. Only admins may create admin accounts.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "Login ID, password, optional role and profile"
// @Success 201 {object} model.AuthResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session, err := h.svc.Register(c.Request.Context(), req, GetAuthUser(c))
	if err != nil {
		writeAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, session.RefreshToken)
	c.JSON(http.StatusCreated, model.AuthResponse{
		AccessToken: session.AccessToken,
		ExpiresIn:   session.ExpiresIn,
		Subject:     session.User.LoginID,
		Role:        session.User.Role,
	})
}

// Login godoc
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Login ID and password"
// @Success 200 {object} model.AuthResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session, err := h.svc.Login(c.Request.Context(), req.LoginID, req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, session.RefreshToken)
	c.JSON(http.StatusOK, model.AuthResponse{
		AccessToken: session.AccessToken,
		ExpiresIn:   session.ExpiresIn,
		Subject:     session.User.LoginID,
		Role:        session.User.Role,
	})
}

// ChangePassword godoc
// @Summary Change the caller's password
// @Description Requires re-proof of the old password.
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.ChangePasswordRequest true "Old and new password"
// @Success 200 {object} model.StatusResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req model.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), user.LoginID, req.OldPassword, req.NewPassword); err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.StatusResponse{Status: "password_changed"})
}

// DeleteUser godoc
// @Summary Delete a user
// @Description Admins may delete anyone; others only themselves. Idempotent.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Param login_id path string true "Login ID"
// @Success 200 {object} model.StatusResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/users/{login_id} [delete]
func (h *AuthHandler) DeleteUser(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	loginID := c.Param("login_id")
	if user.Role != model.RoleAdmin && user.LoginID != loginID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), loginID); err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.StatusResponse{Status: "deleted"})
}

// Refresh godoc
// @Summary Refresh access token
// @Description Uses refresh token cookie (formdesk_refresh).
// @Tags auth
// @Produce json
// @Success 200 {object} model.AuthResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, _ := c.Cookie(h.svc.CookieConfig().Name)
	session, err := h.svc.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, session.RefreshToken)
	c.JSON(http.StatusOK, model.AuthResponse{
		AccessToken: session.AccessToken,
		ExpiresIn:   session.ExpiresIn,
		Subject:     session.User.LoginID,
		Role:        session.User.Role,
	})
}

// Logout godoc
// @Summary Logout
// @Description Revokes the refresh token (if present) and clears the cookie. The access token stays valid until expiry.
// @Tags auth
// @Produce json
// @Success 200 {object} model.AuthLogoutResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, _ := c.Cookie(h.svc.CookieConfig().Name)
	_ = h.svc.Logout(c.Request.Context(), refreshToken)
	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, model.AuthLogoutResponse{Status: "logged_out"})
}

// Config godoc
// @Summary Get auth config
// @Tags auth
// @Produce json
// @Success 200 {object} model.AuthConfigResponse
// @Router /api/v1/auth/config [get]
func (h *AuthHandler) Config(c *gin.Context) {
	c.JSON(http.StatusOK, model.AuthConfigResponse{
		AllowSignup: h.svc.AllowSignup(),
	})
}

// Me godoc
// @Summary Get current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.AuthMeResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	record, err := h.svc.Me(c.Request.Context(), user.LoginID)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.AuthMeResponse{
		UserID:  record.ID,
		LoginID: record.LoginID,
		Role:    record.Role,
	})
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, tok string) {
	cfg := h.svc.CookieConfig()
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(cfg.Name, tok, cfg.MaxAge, cfg.Path, cfg.Domain, cfg.Secure, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	cfg := h.svc.CookieConfig()
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(cfg.Name, "", -1, cfg.Path, cfg.Domain, cfg.Secure, true)
}

func writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, token.ErrMissingToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
	case errors.Is(err, token.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}
