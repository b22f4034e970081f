package handler

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// The two handshake secrets live in short-lived cookies scoped to the
// caller, so concurrent logins from different browsers cannot collide.
// A second attempt from the same browser overwrites the first, which
// simply invalidates the earlier attempt.
const (
	stateCookieName = "__oauth_state"
	pkceCookieName  = "__oauth_pkce"
	handshakeTTL    = 5 * time.Minute
)

func setHandshakeCookie(c *gin.Context, name, value string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(handshakeTTL.Seconds()),
	})
}

func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// generateState issues a fresh CSRF nonce and binds it to the caller.
func generateState(c *gin.Context) string {
	state := randomSecret()
	setHandshakeCookie(c, stateCookieName, state)
	return state
}

// generatePKCE issues a fresh code verifier, binds it to the caller, and
// returns the S256 challenge sent to the provider.
func generatePKCE(c *gin.Context) (challenge string) {
	verifier := randomSecret()

	hash := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(hash[:])

	setHandshakeCookie(c, pkceCookieName, verifier)

	return challenge
}

// validateState compares the callback state against the one issued for
// this caller. An exact match is required; an expired cookie fails too.
func validateState(c *gin.Context) bool {
	stateQuery := c.Query("state")
	if stateQuery == "" {
		return false
	}

	cookie, err := c.Request.Cookie(stateCookieName)
	if err != nil {
		return false
	}

	return cookie.Value == stateQuery
}

func getPKCEVerifier(c *gin.Context) string {
	cookie, err := c.Request.Cookie(pkceCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
