package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mococa-backend/internal/auth/provider"
	"mococa-backend/internal/auth/resolver"
	"mococa-backend/internal/fault"
	"mococa-backend/internal/logger"
	"mococa-backend/internal/notify"
	"mococa-backend/internal/session"
)

type Handler struct {
	providers    *provider.Registry
	sessionStore session.Store
	resolver     resolver.Resolver
	notifier     notify.Notifier
}

func NewHandler(
	registry *provider.Registry,
	sessionStore session.Store,
	resolver resolver.Resolver,
	notifier notify.Notifier,
) *Handler {
	return &Handler{
		providers:    registry,
		sessionStore: sessionStore,
		resolver:     resolver,
		notifier:     notifier,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/oauth/login/:provider", h.login)
	r.GET("/oauth/callback/:provider", h.callback)
	r.POST("/auth/logout", h.logout)
}

func (h *Handler) login(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(fault.KindOf(err).HTTPStatus(), gin.H{
			"error": err.Error(),
		})
		return
	}

	state := generateState(c)
	codeChallenge := generatePKCE(c)

	authURL := p.AuthCodeURL(state, codeChallenge)
	c.Redirect(http.StatusFound, authURL)
}

func (h *Handler) callback(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(fault.KindOf(err).HTTPStatus(), gin.H{
			"error": err.Error(),
		})
		return
	}

	if !validateState(c) {
		stateErr := fault.New(fault.KindInvalidState, "invalid state")
		c.JSON(stateErr.Kind.HTTPStatus(), gin.H{
			"error": stateErr.Error(),
		})
		return
	}

	// Providers report user-denied consent and similar conditions here.
	// That is not an authentication failure worth a 4xx page.
	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oauth callback returned error", map[string]any{
			"provider": providerName,
			"error":    errParam,
			"desc":     c.Query("error_description"),
		})
		c.Redirect(http.StatusFound, "/login")
		return
	}

	code := c.Query("code")
	if code == "" {
		logger.Error("oauth callback missing code and error", nil)
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	codeVerifier := getPKCEVerifier(c)
	if codeVerifier == "" {
		verifierErr := fault.New(fault.KindMissingVerifier, "missing pkce verifier")
		c.JSON(verifierErr.Kind.HTTPStatus(), gin.H{
			"error": verifierErr.Error(),
		})
		return
	}

	profile, err := p.ExchangeCode(
		c.Request.Context(),
		code,
		codeVerifier,
	)
	if err != nil {
		logger.Warn("oauth exchange failed", map[string]any{
			"provider": providerName,
			"error":    err.Error(),
		})
		c.JSON(fault.KindOf(err).HTTPStatus(), gin.H{
			"error": "authentication failed",
		})
		return
	}

	account, err := h.resolver.Resolve(c.Request.Context(), profile)
	if err != nil {
		logger.Error("user resolution failed", map[string]any{
			"provider": providerName,
			"error":    err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to resolve user",
		})
		return
	}

	if account.Created {
		h.notifier.Notify(notify.Event{
			Title:   "New registration",
			Message: fmt.Sprintf("%s signed up via %s", profile.Name, providerName),
		})
	}

	sessionID, err := h.sessionStore.Create(
		c.Request.Context(),
		account.UserID,
		account.Role,
		account.Status,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to persist session",
		})
		return
	}

	logger.Info("login succeeded", map[string]any{
		"provider": providerName,
		"user_id":  account.UserID,
		"ip":       c.ClientIP(),
	})

	c.Data(http.StatusOK, "text/html; charset=utf-8", bridgePage(sessionID))
}

func (h *Handler) logout(c *gin.Context) {
	token := bearerToken(c)
	if token != "" {
		// best-effort; deleting an absent session is fine
		_ = h.sessionStore.Delete(c.Request.Context(), token)
	}

	c.Status(http.StatusNoContent)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return token
}

// bridgePage hands the bearer token back to the window that opened the
// popup flow. Tokens are hex plus a fixed prefix, so direct interpolation
// is safe.
func bridgePage(sessionID string) []byte {
	const page = `<!DOCTYPE html>
<html>
<body>
<script>
  if (window.opener) {
    window.opener.postMessage({ token: %q }, window.location.origin);
    window.close();
  } else {
    localStorage.setItem("session_token", %q);
    window.location.replace("/");
  }
</script>
</body>
</html>`
	return []byte(fmt.Sprintf(page, sessionID, sessionID))
}
