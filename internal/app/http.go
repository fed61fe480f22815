package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Amitphadol/Babylon-login-app/internal/auth/credentials"
	"github.com/Amitphadol/Babylon-login-app/internal/auth/handler"
	"github.com/Amitphadol/Babylon-login-app/internal/auth/provider"
	"github.com/Amitphadol/Babylon-login-app/internal/auth/provider/firebase"
	"github.com/Amitphadol/Babylon-login-app/internal/auth/provider/keycloak"
	"github.com/Amitphadol/Babylon-login-app/internal/config"
	"github.com/Amitphadol/Babylon-login-app/internal/logger"
	"github.com/Amitphadol/Babylon-login-app/internal/middleware"
	"github.com/Amitphadol/Babylon-login-app/internal/session"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	registry, err := setupBackends(ctx, cfg, infra)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	backend, err := registry.Get(cfg.AuthBackend)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	sessionStore := session.NewRedisStore(infra.Redis.Client)

	var sessionFeed session.Feed
	switch cfg.SessionFeed {
	case config.FeedMemory:
		sessionFeed = session.NewMemoryFeed()
	default:
		sessionFeed = session.NewRedisFeed(infra.Redis.Client)
	}

	clients := provider.NewFactory(backend, sessionStore, sessionFeed, cfg.SessionTTL)

	authHandler := handler.NewHandler(
		clients,
		cfg.CookieSecure,
		cfg.ObserveTimeout,
	)

	deviceMiddleware := middleware.NewDeviceMiddleware(
		session.CookieOptions{
			Secure:   cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		},
		cfg.SessionTTL,
	)

	logger.Info("identity backend selected", map[string]any{
		"backend": backend.Name(),
		"feed":    cfg.SessionFeed,
	})

	// ----------------------------
	// Router
	// ----------------------------

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.GinRequestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Pages (device cookie required)
	// ----------------------------

	// Routes registered after this Use get the device middleware; /health
	// above does not.
	router.Use(middleware.GinAttachDevice(deviceMiddleware))
	authHandler.RegisterRoutes(router)

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, infra.Close, nil
}

// setupBackends builds every backend that has configuration and registers
// it by name.
func setupBackends(ctx context.Context, cfg config.Config, infra *Infra) (*provider.Registry, error) {
	var backends []provider.Backend

	if infra.DB != nil {
		backends = append(backends, credentials.NewService(infra.DB))
	}

	if cfg.FirebaseAPIKey != "" {
		fb, err := firebase.New(ctx, firebase.Config{
			APIKey:    cfg.FirebaseAPIKey,
			ProjectID: cfg.FirebaseProjectID,
			Endpoint:  cfg.FirebaseEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("firebase backend: %w", err)
		}
		backends = append(backends, fb)
	}

	if cfg.KeycloakIssuer != "" {
		kc, err := keycloak.New(ctx, keycloak.Config{
			Issuer:       cfg.KeycloakIssuer,
			ClientID:     cfg.KeycloakClientID,
			ClientSecret: cfg.KeycloakClientSecret,
		})
		if err != nil {
			return nil, fmt.Errorf("keycloak backend: %w", err)
		}
		backends = append(backends, kc)
	}

	return provider.NewRegistry(backends...), nil
}
