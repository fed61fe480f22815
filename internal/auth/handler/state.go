package handler

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Amitphadol/Babylon-login-app/internal/logger"
	"github.com/Amitphadol/Babylon-login-app/internal/utils"
)

const (
	csrfCookieName         = "__Host-csrf"
	csrfInsecureCookieName = "csrf"
	csrfFieldName          = "csrf_token"
	csrfTTL                = 12 * time.Hour
)

func (h *Handler) csrfCookie() string {
	if h.secureCookies {
		return csrfCookieName
	}
	return csrfInsecureCookieName
}

// issueCSRF returns the form token for this browser, minting and setting a
// new one when none exists yet.
func (h *Handler) issueCSRF(c *gin.Context) (string, error) {
	if cookie, err := c.Request.Cookie(h.csrfCookie()); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	token, err := utils.RandomString(32)
	if err != nil {
		return "", err
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.csrfCookie(),
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(csrfTTL.Seconds()),
	})

	return token, nil
}

// validateCSRF checks the double-submit token of a form post and answers
// 403 when it does not match.
func (h *Handler) validateCSRF(c *gin.Context) bool {
	formToken := c.PostForm(csrfFieldName)

	cookie, err := c.Request.Cookie(h.csrfCookie())
	if err == nil && formToken != "" &&
		subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(formToken)) == 1 {
		return true
	}

	logger.Warn("csrf token mismatch", map[string]any{
		"path": c.Request.URL.Path,
		"ip":   c.ClientIP(),
	})
	c.JSON(http.StatusForbidden, gin.H{
		"error": "invalid csrf token",
	})
	c.Abort()
	return false
}
