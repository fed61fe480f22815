package session

import (
	"net/http"
	"time"
)

const (
	// CookieName carries the device ID. The __Host- prefix pins it to the
	// exact origin and requires Secure.
	CookieName = "__Host-session"
	// InsecureCookieName is used for plain-HTTP development setups.
	InsecureCookieName = "session"
)

// CookieOptions describes the device cookie. The cookie is always
// HttpOnly; Path defaults to "/" and SameSite to Lax.
type CookieOptions struct {
	Path     string
	Secure   bool
	SameSite http.SameSite
	Domain   string // dropped for __Host- cookies
}

// Name returns the cookie name matching the Secure setting.
func (o CookieOptions) Name() string {
	if o.Secure {
		return CookieName
	}
	return InsecureCookieName
}

func (o CookieOptions) cookie(value string) *http.Cookie {
	c := &http.Cookie{
		Name:     o.Name(),
		Value:    value,
		Path:     o.Path,
		Domain:   o.Domain,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if c.SameSite == 0 {
		c.SameSite = http.SameSiteLaxMode
	}
	if o.Secure {
		c.Domain = ""
	}
	return c
}

// SetCookie hands the device ID to the browser until expiresAt.
func SetCookie(w http.ResponseWriter, deviceID string, expiresAt time.Time, opts CookieOptions) {
	c := opts.cookie(deviceID)
	c.Expires = expiresAt
	http.SetCookie(w, c)
}

// ReadCookie returns the device ID carried by r, or "".
func ReadCookie(r *http.Request, opts CookieOptions) string {
	c, err := r.Cookie(opts.Name())
	if err != nil {
		return ""
	}
	return c.Value
}
