package auth

// Identity is the read-only projection of an authenticated user as reported
// by the identity provider. A nil *Identity means "no session".
type Identity struct {
	UID           string `json:"uid"`                    // provider-scoped opaque identifier
	Email         string `json:"email,omitempty"`        // empty when the provider has none
	DisplayName   string `json:"display_name,omitempty"` // empty until a profile update sets it
	Provider      string `json:"provider,omitempty"`     // backend that issued the identity
	EmailVerified bool   `json:"email_verified,omitempty"`
}

// ProfileUpdate carries the profile fields a caller may change.
type ProfileUpdate struct {
	DisplayName string
}

// SameSession reports whether a and b describe the same session state:
// both absent, or both present with the same UID.
func SameSession(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UID == b.UID
}
