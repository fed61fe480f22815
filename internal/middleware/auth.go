package middleware

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/Amitphadol/Babylon-login-app/internal/logger"
	"github.com/Amitphadol/Babylon-login-app/internal/session"
)

// unexported, collision-proof context key
type deviceIDContextKeyType struct{}

var deviceIDKey = deviceIDContextKeyType{}

// DeviceIDFromContext extracts the device ID attached by DeviceMiddleware.
func DeviceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(deviceIDKey).(string)
	return id, ok && id != ""
}

// WithDeviceID returns ctx carrying id. Used by tests and background work
// that acts on behalf of a device.
func WithDeviceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, deviceIDKey, id)
}

// DeviceMiddleware makes sure every browser carries a device cookie. The
// device ID keys the provider session, so all tabs of one browser share
// sign-in state.
type DeviceMiddleware struct {
	Cookie session.CookieOptions
	TTL    time.Duration
	now    func() time.Time
}

func NewDeviceMiddleware(cookie session.CookieOptions, ttl time.Duration) *DeviceMiddleware {
	return &DeviceMiddleware{
		Cookie: cookie,
		TTL:    ttl,
		now:    time.Now,
	}
}

func (d *DeviceMiddleware) AttachDevice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Reuse a well-formed cookie
		deviceID := session.ReadCookie(r, d.Cookie)

		// 2. Otherwise mint a fresh device
		if !validDeviceID(deviceID) {
			id, err := session.GenerateID()
			if err != nil {
				logger.Error("failed to generate device id", map[string]any{
					"error": err,
				})
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			deviceID = id
		}

		// 3. Slide the cookie expiry
		session.SetCookie(w, deviceID, d.now().Add(d.TTL), d.Cookie)

		// 4. Continue with the device attached
		next.ServeHTTP(w, r.WithContext(WithDeviceID(r.Context(), deviceID)))
	})
}

// validDeviceID accepts only IDs shaped like session.GenerateID output, so
// client-chosen cookie values never reach Redis keys.
func validDeviceID(id string) bool {
	if len(id) != 43 {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(id)
	return err == nil && len(raw) == 32
}
