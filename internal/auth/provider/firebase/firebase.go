// Package firebase is an identity backend for Firebase Authentication,
// talking to the Identity Toolkit REST API with an API key.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/Amitphadol/Babylon-login-app/internal/auth"
	"github.com/Amitphadol/Babylon-login-app/internal/auth/provider"
	"github.com/Amitphadol/Babylon-login-app/internal/logger"
)

const (
	backendName = "firebase"

	DefaultEndpoint = "https://identitytoolkit.googleapis.com/v1"

	// Firebase ID tokens are signed by this Google service account.
	jwksURL      = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
	issuerPrefix = "https://securetoken.google.com/"

	codeTokenExpired = "auth/user-token-expired"
)

// errorCodes maps Identity Toolkit error messages to provider codes.
var errorCodes = map[string]string{
	"EMAIL_EXISTS":                auth.CodeEmailAlreadyInUse,
	"OPERATION_NOT_ALLOWED":       auth.CodeOperationNotAllowed,
	"PASSWORD_LOGIN_DISABLED":     auth.CodeOperationNotAllowed,
	"TOO_MANY_ATTEMPTS_TRY_LATER": auth.CodeTooManyRequests,
	"EMAIL_NOT_FOUND":             auth.CodeUserNotFound,
	"USER_NOT_FOUND":              auth.CodeUserNotFound,
	"INVALID_PASSWORD":            auth.CodeWrongPassword,
	"INVALID_LOGIN_CREDENTIALS":   auth.CodeInvalidCredential,
	"USER_DISABLED":               auth.CodeUserDisabled,
	"INVALID_EMAIL":               auth.CodeInvalidEmail,
	"MISSING_EMAIL":               auth.CodeInvalidEmail,
	"WEAK_PASSWORD":               auth.CodeWeakPassword,
	"INVALID_ID_TOKEN":            codeTokenExpired,
	"TOKEN_EXPIRED":               codeTokenExpired,
}

type Config struct {
	APIKey string
	// ProjectID enables ID token verification when set.
	ProjectID  string
	Endpoint   string
	HTTPClient *http.Client
}

type Backend struct {
	apiKey   string
	endpoint string
	client   *http.Client
	verifier *oidc.IDTokenVerifier
}

var _ provider.Backend = (*Backend)(nil)

func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("firebase config missing api key")
	}

	b := &Backend{
		apiKey:   cfg.APIKey,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		client:   cfg.HTTPClient,
	}
	if b.endpoint == "" {
		b.endpoint = DefaultEndpoint
	}
	if b.client == nil {
		b.client = &http.Client{Timeout: 10 * time.Second}
	}

	if cfg.ProjectID != "" {
		keySet := oidc.NewRemoteKeySet(oidc.ClientContext(ctx, b.client), jwksURL)
		b.verifier = oidc.NewVerifier(issuerPrefix+cfg.ProjectID, keySet, &oidc.Config{
			ClientID: cfg.ProjectID,
		})
	}

	return b, nil
}

func (b *Backend) Name() string {
	return backendName
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type accountResponse struct {
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IDToken     string `json:"idToken"`
}

type updateRequest struct {
	IDToken           string `json:"idToken"`
	DisplayName       string `json:"displayName"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (b *Backend) SignUp(ctx context.Context, email, password string) (*provider.Account, error) {
	return b.passwordCall(ctx, "accounts:signUp", email, password)
}

func (b *Backend) SignIn(ctx context.Context, email, password string) (*provider.Account, error) {
	return b.passwordCall(ctx, "accounts:signInWithPassword", email, password)
}

func (b *Backend) passwordCall(ctx context.Context, method, email, password string) (*provider.Account, error) {
	var resp accountResponse
	err := b.call(ctx, method, passwordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	identity, err := b.identity(ctx, resp)
	if err != nil {
		return nil, err
	}

	return &provider.Account{Identity: identity, Token: resp.IDToken}, nil
}

func (b *Backend) UpdateProfile(ctx context.Context, acct provider.Account, update auth.ProfileUpdate) (*auth.Identity, error) {
	var resp accountResponse
	err := b.call(ctx, "accounts:update", updateRequest{
		IDToken:     acct.Token,
		DisplayName: update.DisplayName,
	}, &resp)
	if err != nil {
		return nil, err
	}

	identity := acct.Identity
	identity.DisplayName = resp.DisplayName
	if resp.Email != "" {
		identity.Email = resp.Email
	}
	return &identity, nil
}

// SignOut is a no-op: Firebase ID tokens expire on their own and the REST
// API has no per-token revocation.
func (b *Backend) SignOut(context.Context, provider.Account) error {
	return nil
}

// identity builds the identity from a sign-in response, verifying the ID
// token when a verifier is configured.
func (b *Backend) identity(ctx context.Context, resp accountResponse) (auth.Identity, error) {
	identity := auth.Identity{
		UID:         resp.LocalID,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		Provider:    backendName,
	}

	if b.verifier == nil {
		return identity, nil
	}

	token, err := b.verifier.Verify(ctx, resp.IDToken)
	if err != nil {
		return auth.Identity{}, auth.NewError(auth.CodeInternal, fmt.Errorf("firebase id_token verification failed: %w", err))
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := token.Claims(&claims); err != nil {
		return auth.Identity{}, auth.NewError(auth.CodeInternal, fmt.Errorf("firebase id_token claims parse failed: %w", err))
	}
	if token.Subject != resp.LocalID {
		return auth.Identity{}, auth.NewError(auth.CodeInternal, errors.New("firebase id_token subject mismatch"))
	}

	identity.EmailVerified = claims.EmailVerified
	return identity, nil
}

func (b *Backend) call(ctx context.Context, method string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return auth.NewError(auth.CodeInternal, err)
	}

	u := b.endpoint + "/" + method + "?key=" + url.QueryEscape(b.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return auth.NewError(auth.CodeInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := b.client.Do(req)
	if err != nil {
		return auth.NewError(auth.CodeNetworkRequestFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var e errorResponse
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return auth.NewError(auth.CodeInternal, fmt.Errorf("firebase %s: status %d", method, res.StatusCode))
		}
		return mapError(method, e.Error.Message)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return auth.NewError(auth.CodeInternal, fmt.Errorf("firebase %s: decode response: %w", method, err))
	}
	return nil
}

// mapError converts an Identity Toolkit message such as
// "WEAK_PASSWORD : Password should be at least 6 characters" into an
// *auth.Error.
func mapError(method, message string) error {
	key, _, _ := strings.Cut(message, " ")
	code, ok := errorCodes[key]
	if !ok {
		code = auth.CodeInternal
	}

	logger.Warn("firebase request rejected", map[string]any{
		"method":  method,
		"message": message,
	})

	return auth.NewError(code, fmt.Errorf("firebase %s: %s", method, message))
}
