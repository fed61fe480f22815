package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Amitphadol/Babylon-login-app/internal/logger"
	"github.com/Amitphadol/Babylon-login-app/internal/nav"
	"github.com/Amitphadol/Babylon-login-app/internal/observer"
)

// loadingRefresh is how long the loading placeholder waits before the
// browser asks again.
const loadingRefresh = 2 * time.Second

func (h *Handler) home(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	view, target := h.observe(c, client, observer.ZoneAuthenticated)
	if target != "" {
		c.Redirect(http.StatusSeeOther, target)
		return
	}

	if view.Loading || view.Identity == nil {
		c.HTML(http.StatusOK, "loading.html", gin.H{
			"RefreshSeconds": int(loadingRefresh.Seconds()),
		})
		return
	}

	token, err := h.issueCSRF(c)
	if err != nil {
		logger.Error("failed to issue csrf token", map[string]any{
			"error": err,
		})
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.HTML(http.StatusOK, "home.html", newHomeView(*view.Identity, token))
}

// logout signs the device out. A failed sign-out leaves the user on the
// landing page.
func (h *Handler) logout(c *gin.Context) {
	if !h.validateCSRF(c) {
		return
	}

	client, ok := h.client(c)
	if !ok {
		return
	}

	rec := &nav.Recorder{}
	observer.New(client, rec).Logout(c.Request.Context())

	target, ok := rec.Target()
	if !ok {
		target = nav.LandingPath
	}
	c.Redirect(http.StatusSeeOther, target)
}

type streamEvent struct {
	name string
	data any
}

// events streams session changes of the device to an open landing page.
// The stream ends after a navigate event.
func (h *Handler) events(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	queue := make(chan streamEvent, 8)
	emit := func(ev streamEvent) {
		select {
		case queue <- ev:
		case <-ctx.Done():
		}
	}

	obs := observer.New(
		client,
		nav.Func(func(path string) {
			emit(streamEvent{name: "navigate", data: path})
		}),
		observer.WithOnChange(func(v observer.View) {
			emit(streamEvent{name: "session", data: newSessionEvent(v)})
		}),
	)
	obs.Mount()
	defer obs.Unmount()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev := <-queue:
			c.SSEvent(ev.name, ev.data)
			return ev.name != "navigate"
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case <-ctx.Done():
			return false
		}
	})
}
