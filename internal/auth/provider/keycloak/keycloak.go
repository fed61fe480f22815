package keycloak

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/Amitphadol/Babylon-login-app/internal/auth"
	"github.com/Amitphadol/Babylon-login-app/internal/auth/provider"
	"github.com/Amitphadol/Babylon-login-app/internal/logger"
)

const backendName = "keycloak"

// Backend signs users in against a Keycloak realm with the OAuth2 resource
// owner password grant and verifies the returned ID token. Accounts are
// managed in Keycloak itself, so registration and profile edits are not
// available through this backend.
type Backend struct {
	oauthConfig   *oauth2.Config
	verifier      *oidc.IDTokenVerifier
	endSessionURL string
	client        *http.Client
}

var _ provider.Backend = (*Backend)(nil)

// Config holds the realm client settings.
type Config struct {
	// Issuer is the realm issuer URL, e.g.
	// http://localhost:8081/realms/babylon
	Issuer       string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

// New initializes a Keycloak backend using OIDC discovery.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Issuer == "" || cfg.ClientID == "" {
		return nil, errors.New("keycloak config missing required fields")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	ctx = oidc.ClientContext(ctx, client)

	oidcProvider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init keycloak oidc provider: %w", err)
	}

	var meta struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := oidcProvider.Claims(&meta); err != nil {
		return nil, fmt.Errorf("keycloak discovery document unreadable: %w", err)
	}

	return &Backend{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oidcProvider.Endpoint(),
			Scopes: []string{
				oidc.ScopeOpenID,
				"email",
				"profile",
			},
		},
		verifier: oidcProvider.Verifier(&oidc.Config{
			ClientID: cfg.ClientID,
		}),
		endSessionURL: meta.EndSessionEndpoint,
		client:        client,
	}, nil
}

// Name returns the backend identifier used by the registry.
func (b *Backend) Name() string {
	return backendName
}

func (b *Backend) SignUp(context.Context, string, string) (*provider.Account, error) {
	return nil, auth.NewError(auth.CodeOperationNotAllowed, errors.New("keycloak accounts are created in the realm"))
}

func (b *Backend) SignIn(ctx context.Context, email, password string) (*provider.Account, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.client)

	token, err := b.oauthConfig.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		return nil, mapTokenError(err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, auth.NewError(auth.CodeInternal, errors.New("keycloak did not return id_token"))
	}

	idToken, err := b.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		logger.Error("keycloak id_token verification failed", map[string]any{
			"error": err,
		})
		return nil, auth.NewError(auth.CodeInternal, err)
	}

	var claims struct {
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, auth.NewError(auth.CodeInternal, fmt.Errorf("keycloak id_token claims parse failed: %w", err))
	}
	if claims.Subject == "" {
		return nil, auth.NewError(auth.CodeInternal, errors.New("keycloak id_token missing subject"))
	}

	logger.Info("keycloak oidc verified", map[string]any{
		"issuer":         idToken.Issuer,
		"email_present":  claims.Email != "",
		"email_verified": claims.EmailVerified,
		"expiry_unix":    idToken.Expiry.Unix(),
	})

	return &provider.Account{
		Identity: auth.Identity{
			UID:           claims.Subject,
			Email:         claims.Email,
			DisplayName:   claims.Name,
			Provider:      backendName,
			EmailVerified: claims.EmailVerified,
		},
		Token: token.RefreshToken,
	}, nil
}

func (b *Backend) UpdateProfile(context.Context, provider.Account, auth.ProfileUpdate) (*auth.Identity, error) {
	return nil, auth.NewError(auth.CodeOperationNotAllowed, errors.New("keycloak profiles are managed in the realm"))
}

// SignOut ends the Keycloak SSO session behind the refresh token.
func (b *Backend) SignOut(ctx context.Context, acct provider.Account) error {
	if b.endSessionURL == "" || acct.Token == "" {
		return nil
	}

	form := url.Values{
		"client_id":     {b.oauthConfig.ClientID},
		"refresh_token": {acct.Token},
	}
	if b.oauthConfig.ClientSecret != "" {
		form.Set("client_secret", b.oauthConfig.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endSessionURL, strings.NewReader(form.Encode()))
	if err != nil {
		return auth.NewError(auth.CodeInternal, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := b.client.Do(req)
	if err != nil {
		return auth.NewError(auth.CodeNetworkRequestFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return auth.NewError(auth.CodeInternal, fmt.Errorf("keycloak logout: status %d", res.StatusCode))
	}
	return nil
}

func mapTokenError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return auth.NewError(auth.CodeNetworkRequestFailed, err)
	}

	switch re.ErrorCode {
	case "invalid_grant":
		if strings.Contains(strings.ToLower(re.ErrorDescription), "disabled") {
			return auth.NewError(auth.CodeUserDisabled, err)
		}
		return auth.NewError(auth.CodeInvalidCredential, err)
	case "unauthorized_client", "unsupported_grant_type":
		return auth.NewError(auth.CodeOperationNotAllowed, err)
	}

	if re.Response != nil && re.Response.StatusCode == http.StatusTooManyRequests {
		return auth.NewError(auth.CodeTooManyRequests, err)
	}

	logger.Error("keycloak token exchange failed", map[string]any{
		"error": err,
	})
	return auth.NewError(auth.CodeInternal, err)
}
