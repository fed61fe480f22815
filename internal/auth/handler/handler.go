package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Amitphadol/Babylon-login-app/internal/auth/provider"
	"github.com/Amitphadol/Babylon-login-app/internal/logger"
	"github.com/Amitphadol/Babylon-login-app/internal/middleware"
	"github.com/Amitphadol/Babylon-login-app/internal/nav"
	"github.com/Amitphadol/Babylon-login-app/internal/observer"
)

const heartbeatInterval = 15 * time.Second

type Handler struct {
	clients        *provider.Factory
	secureCookies  bool
	observeTimeout time.Duration
	heartbeat      time.Duration
}

func NewHandler(
	clients *provider.Factory,
	secureCookies bool,
	observeTimeout time.Duration,
) *Handler {
	return &Handler{
		clients:        clients,
		secureCookies:  secureCookies,
		observeTimeout: observeTimeout,
		heartbeat:      heartbeatInterval,
	}
}

// RegisterRoutes installs the templates and the page routes. The device
// middleware must already be in the chain.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.SetHTMLTemplate(Templates())

	r.GET(nav.EntryPath, h.entry)
	r.POST(nav.EntryPath, h.submit)
	r.POST("/mode", h.switchMode)

	r.GET(nav.LandingPath, h.home)
	r.POST(nav.LandingPath+"/logout", h.logout)
	r.GET(nav.LandingPath+"/events", h.events)

	for _, route := range r.Routes() {
		logger.Debug("route registered", map[string]any{
			"method": route.Method,
			"path":   route.Path,
		})
	}
}

// client returns the provider client of the requesting device.
func (h *Handler) client(c *gin.Context) (*provider.Client, bool) {
	deviceID, ok := middleware.DeviceIDFromContext(c.Request.Context())
	if !ok {
		logger.Error("request without device id", map[string]any{
			"path": c.Request.URL.Path,
		})
		c.AbortWithStatus(http.StatusInternalServerError)
		return nil, false
	}
	return h.clients.Client(deviceID), true
}

// observe mounts a session observer for the request, waits for the first
// session notification and returns the resulting view together with the
// navigation it asked for, if any.
func (h *Handler) observe(c *gin.Context, p observer.Provider, zone observer.Zone) (observer.View, string) {
	rec := &nav.Recorder{}
	obs := observer.New(p, rec, observer.WithZone(zone))
	obs.Mount()
	defer obs.Unmount()

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.observeTimeout)
	defer cancel()

	view, err := obs.Wait(ctx)
	if err != nil {
		logger.Warn("session state not observed in time", map[string]any{
			"path":    c.Request.URL.Path,
			"timeout": h.observeTimeout.String(),
		})
	}

	target, _ := rec.Target()
	return view, target
}
