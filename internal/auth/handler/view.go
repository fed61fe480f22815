package handler

import (
	"strings"
	"unicode/utf8"

	"github.com/Amitphadol/Babylon-login-app/internal/auth"
	"github.com/Amitphadol/Babylon-login-app/internal/authform"
	"github.com/Amitphadol/Babylon-login-app/internal/observer"
)

const fallbackDisplayName = "User"

type entryView struct {
	Mode              string
	OtherMode         string
	Register          bool
	FullName          string
	Email             string
	ErrorMessage      string
	Submitting        bool
	MinPasswordLength int
	CSRFToken         string
}

// newEntryView renders form state. The password is never echoed back.
func newEntryView(s authform.State, csrfToken string) entryView {
	other := authform.ModeRegister
	if s.Mode == authform.ModeRegister {
		other = authform.ModeSignIn
	}

	return entryView{
		Mode:              string(s.Mode),
		OtherMode:         string(other),
		Register:          s.Mode == authform.ModeRegister,
		FullName:          s.FullName,
		Email:             s.Email,
		ErrorMessage:      s.ErrorMessage,
		Submitting:        s.IsSubmitting,
		MinPasswordLength: authform.MinPasswordLength,
		CSRFToken:         csrfToken,
	}
}

type homeView struct {
	DisplayName string
	Initials    string
	Email       string
	UID         string
	CSRFToken   string
}

func newHomeView(id auth.Identity, csrfToken string) homeView {
	name := displayName(id)
	return homeView{
		DisplayName: name,
		Initials:    initials(name),
		Email:       id.Email,
		UID:         id.UID,
		CSRFToken:   csrfToken,
	}
}

func displayName(id auth.Identity) string {
	if id.DisplayName == "" {
		return fallbackDisplayName
	}
	return id.DisplayName
}

// initials takes the first letter of each space separated word, keeps at
// most two and upper-cases them.
func initials(name string) string {
	var out []rune
	for _, word := range strings.Split(name, " ") {
		if word == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(word)
		out = append(out, r)
		if len(out) == 2 {
			break
		}
	}
	return strings.ToUpper(string(out))
}

// sessionEvent is the payload of the "session" stream event.
type sessionEvent struct {
	Status      string `json:"status"`
	UID         string `json:"uid,omitempty"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Initials    string `json:"initials,omitempty"`
}

func newSessionEvent(v observer.View) sessionEvent {
	ev := sessionEvent{Status: v.Status.String()}
	if v.Identity != nil {
		name := displayName(*v.Identity)
		ev.UID = v.Identity.UID
		ev.Email = v.Identity.Email
		ev.DisplayName = name
		ev.Initials = initials(name)
	}
	return ev
}
