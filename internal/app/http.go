package app

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"mococa-backend/internal/auth/handler"
	"mococa-backend/internal/auth/provider"
	"mococa-backend/internal/auth/provider/discord"
	"mococa-backend/internal/auth/provider/github"
	"mococa-backend/internal/auth/provider/google"
	"mococa-backend/internal/auth/resolver"
	"mococa-backend/internal/config"
	"mococa-backend/internal/logger"
	"mococa-backend/internal/middleware"
	"mococa-backend/internal/notify"
	"mococa-backend/internal/payment"
	"mococa-backend/internal/payment/mercadopago"
	"mococa-backend/internal/session"
)

// deps are the long-lived pieces the App keeps beyond routing.
type deps struct {
	tracker  *payment.Tracker
	notifier *notify.Dispatcher
}

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, *deps, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	sessionStore := session.NewRedisStore(infra.Redis.Client)
	identityResolver := resolver.NewDBResolver(infra.DB)

	var sink notify.Sink = notify.NoopSink{}
	if cfg.DiscordWebhookURL != "" {
		sink = notify.NewDiscordWebhook(cfg.DiscordWebhookURL)
	}
	notifier := notify.NewDispatcher(sink, 64)

	registry, err := buildProviderRegistry(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	var tracker *payment.Tracker
	if cfg.MercadoPagoAccessToken != "" {
		mpClient, err := mercadopago.New(cfg.MercadoPagoAccessToken)
		if err != nil {
			return nil, nil, nil, err
		}
		tracker = payment.NewTracker(infra.Redis.Client, mpClient)
	}

	authHandler := handler.NewHandler(
		registry,
		sessionStore,
		identityResolver,
		notifier,
	)

	gate := middleware.NewGate(sessionStore)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())

	// ----------------------------
	// Public Routes
	// ----------------------------

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Protected API Routes
	// ----------------------------

	api := router.Group("/api")
	api.Use(gate.RequireAuth())

	api.GET("/me", func(c *gin.Context) {
		ident, _ := middleware.IdentityFrom(c)
		c.JSON(200, gin.H{
			"user_id": ident.UserID,
			"role":    ident.Role,
			"status":  ident.Status,
		})
	})

	payments := api.Group("/payments")
	payments.Use(gate.RequireActive())

	payments.POST("", func(c *gin.Context) {
		if tracker == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "payments not configured",
			})
			return
		}

		var req struct {
			Amount int64 `json:"amount"` // cents
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
			return
		}

		charge, err := tracker.CreatePayment(c.Request.Context(), req.Amount)
		if err != nil {
			logger.Error("payment creation failed", map[string]any{
				"error": err.Error(),
			})
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment creation failed"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":     charge.ID,
			"code":   charge.Code,
			"qr":     charge.QR,
			"status": charge.Status,
		})
	})

	admin := api.Group("/admin")
	admin.Use(gate.RequireAdmin())

	admin.POST("/payments/poll", func(c *gin.Context) {
		if tracker == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "payments not configured",
			})
			return
		}

		result, err := tracker.Poll(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "poll failed"})
			return
		}

		c.JSON(200, gin.H{
			"successes": len(result.Successes),
			"failures":  len(result.Failures),
		})
	})

	// ----------------------------
	// Cleanup
	// ----------------------------

	cleanup := func() error {
		return infra.DB.Close()
	}

	return router, &deps{tracker: tracker, notifier: notifier}, cleanup, nil
}

// buildProviderRegistry registers only the providers whose credentials
// are present; an unconfigured provider fails at lookup time, not here.
func buildProviderRegistry(ctx context.Context, cfg config.Config) (*provider.Registry, error) {

	var providers []provider.OAuthProvider

	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		p, err := google.New(
			ctx,
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL,
		)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	if cfg.GitHubClientID != "" && cfg.GitHubClientSecret != "" {
		p, err := github.New(
			cfg.GitHubClientID,
			cfg.GitHubClientSecret,
			cfg.GitHubRedirectURL,
		)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	if cfg.DiscordClientID != "" && cfg.DiscordClientSecret != "" {
		p, err := discord.New(
			cfg.DiscordClientID,
			cfg.DiscordClientSecret,
			cfg.DiscordRedirectURL,
		)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	if len(providers) == 0 {
		logger.Warn("no oauth providers configured", nil)
	}

	return provider.NewRegistry(providers...), nil
}
