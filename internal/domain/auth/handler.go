package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dosehub/dosehub/internal/platform/httperr"
	"github.com/dosehub/dosehub/internal/platform/token"
)

// Cookie names shared with the web client. Both cookies are http-only; the
// access token itself travels in the response body and the Authorization
// header.
const (
	registrationCookie = "registrationToken"
	refreshCookie      = "refreshToken"
)

type Handler struct {
	svc    *Service
	tokens *token.Service
}

func NewHandler(svc *Service, tokens *token.Service) *Handler {
	return &Handler{svc: svc, tokens: tokens}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/auth")
	g.POST("/registration-step-1", h.RegistrationStep1)
	g.POST("/registration-step-2", h.RegistrationStep2)
	g.POST("/registration-step-3", h.RegistrationStep3)
	g.POST("/registration-avatar", h.RegistrationAvatar)
	g.POST("/resend-confirmation-code", h.ResendConfirmationCode)
	g.POST("/login", h.Login)
	g.POST("/google-login", h.GoogleLogin)
	g.POST("/refresh-token", h.Refresh)
	g.POST("/forgotpassword", h.ForgotPassword)
	g.POST("/resetpassword", h.ResetPassword)
	g.POST("/logout", h.Logout, RequireAuth(h.tokens))
}

func setCookie(c echo.Context, name, value string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Expires:  expires,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func clearCookie(c echo.Context, name string) {
	setCookie(c, name, "", time.Unix(0, 0))
}

func cookieValue(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (h *Handler) RegistrationStep1(c echo.Context) error {
	var req RegistrationStep1Request
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid request body")
	}
	result, err := h.svc.RegistrationStep1(c.Request().Context(), req)
	if err != nil {
		return err
	}
	setCookie(c, registrationCookie, result.Token, result.ExpiresAt)
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) RegistrationStep2(c echo.Context) error {
	var req RegistrationStep2Request
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid request body")
	}
	if err := h.svc.RegistrationStep2(c.Request().Context(), req, cookieValue(c, registrationCookie)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RegistrationAvatar(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return httperr.BadRequest("file is required")
	}
	src, err := file.Open()
	if err != nil {
		return httperr.Internal("could not read the uploaded file").WithCause(err)
	}
	defer src.Close()

	meta, err := h.svc.AttachRegistrationAvatar(c.Request().Context(), cookieValue(c, registrationCookie),
		file.Filename, file.Header.Get("Content-Type"), src)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, meta)
}

func (h *Handler) ResendConfirmationCode(c echo.Context) error {
	if err := h.svc.ResendConfirmationCode(c.Request().Context(), cookieValue(c, registrationCookie)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RegistrationStep3(c echo.Context) error {
	var req RegistrationStep3Request
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid request body")
	}
	if err := h.svc.RegistrationStep3(c.Request().Context(), req, cookieValue(c, registrationCookie)); err != nil {
		return err
	}
	clearCookie(c, registrationCookie)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid request body")
	}
	session, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	setCookie(c, refreshCookie, session.RefreshToken, session.RefreshExpiresAt)
	return c.JSON(http.StatusOK, session.Auth)
}

func (h *Handler) GoogleLogin(c echo.Context) error {
	var req GoogleLoginRequest
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid request body")
	}
	session, err := h.svc.GoogleLogin(c.Request().Context(), req)
	if err != nil {
		return err
	}
	setCookie(c, refreshCookie, session.RefreshToken, session.RefreshExpiresAt)
	return c.JSON(http.StatusOK, session.Auth)
}

func (h *Handler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid request body")
	}
	session, err := h.svc.Refresh(c.Request().Context(), req.AccessToken, cookieValue(c, refreshCookie))
	if err != nil {
		return err
	}
	setCookie(c, refreshCookie, session.RefreshToken, session.RefreshExpiresAt)
	return c.JSON(http.StatusOK, session.Auth)
}

func (h *Handler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid request body")
	}
	if err := h.svc.ForgotPassword(c.Request().Context(), req); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid request body")
	}
	if err := h.svc.ResetPassword(c.Request().Context(), req); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Logout(c echo.Context) error {
	claims := CurrentClaims(c)
	if claims == nil {
		return httperr.Unauthorized("missing access token")
	}
	if err := h.svc.Logout(c.Request().Context(), claims.UserID, claims.DeviceID); err != nil {
		return err
	}
	clearCookie(c, refreshCookie)
	return c.NoContent(http.StatusNoContent)
}
