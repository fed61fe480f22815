package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Amitphadol/Babylon-login-app/internal/authform"
	"github.com/Amitphadol/Babylon-login-app/internal/logger"
	"github.com/Amitphadol/Babylon-login-app/internal/nav"
	"github.com/Amitphadol/Babylon-login-app/internal/observer"
)

type entryForm struct {
	Mode     string `form:"mode"`
	Next     string `form:"next"`
	FullName string `form:"full_name"`
	Email    string `form:"email"`
	Password string `form:"password"`
}

// entry serves the sign-in / register page. Devices that already have a
// session are sent on to the landing page.
func (h *Handler) entry(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	if _, target := h.observe(c, client, observer.ZoneAnonymous); target != "" {
		c.Redirect(http.StatusSeeOther, target)
		return
	}

	form := authform.New(client, &nav.Recorder{}, authform.ParseMode(c.Query("mode")))
	h.renderEntry(c, http.StatusOK, form.State())
}

func (h *Handler) submit(c *gin.Context) {
	if !h.validateCSRF(c) {
		return
	}

	client, ok := h.client(c)
	if !ok {
		return
	}

	var req entryForm
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	rec := &nav.Recorder{}
	form := authform.New(client, rec, authform.ParseMode(req.Mode))
	form.SetFullName(req.FullName)
	form.SetEmail(req.Email)
	form.SetPassword(req.Password)

	form.Submit(c.Request.Context())

	if target, ok := rec.Target(); ok {
		c.Redirect(http.StatusSeeOther, target)
		return
	}

	state := form.State()
	logger.Debug("auth form not accepted", map[string]any{
		"mode":  string(state.Mode),
		"error": state.ErrorMessage,
	})
	h.renderEntry(c, http.StatusUnprocessableEntity, state)
}

// switchMode toggles between sign-in and register. Whatever was typed is
// discarded.
func (h *Handler) switchMode(c *gin.Context) {
	if !h.validateCSRF(c) {
		return
	}

	client, ok := h.client(c)
	if !ok {
		return
	}

	var req entryForm
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	form := authform.New(client, &nav.Recorder{}, authform.ParseMode(req.Mode))
	form.SetFullName(req.FullName)
	form.SetEmail(req.Email)
	form.SetPassword(req.Password)
	form.SwitchMode(authform.ParseMode(req.Next))

	h.renderEntry(c, http.StatusOK, form.State())
}

func (h *Handler) renderEntry(c *gin.Context, status int, state authform.State) {
	token, err := h.issueCSRF(c)
	if err != nil {
		logger.Error("failed to issue csrf token", map[string]any{
			"error": err,
		})
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.HTML(status, "entry.html", newEntryView(state, token))
}
