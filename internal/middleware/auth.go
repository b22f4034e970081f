package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mococa-backend/internal/session"
)

const identityKey = "mococa/identity"

// Identity is what authenticated routes see of the caller.
type Identity struct {
	UserID    string
	Role      session.Role
	Status    session.Status
	SessionID string
}

// IdentityFrom extracts the authenticated identity placed by RequireAuth.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	ident, ok := v.(Identity)
	return ident, ok
}

// Gate enforces access policies derived from the session. Each check is
// one SessionStore read at most; everything else is pure derivation.
type Gate struct {
	store session.Store
}

func NewGate(store session.Store) *Gate {
	return &Gate{store: store}
}

// RequireAuth resolves the bearer token to a session. Banned users are
// rejected here, before any route logic, regardless of role. A successful
// pass slides the session expiry forward.
func (g *Gate) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortUnauthenticated(c)
			return
		}

		sess, err := g.store.Get(c.Request.Context(), token)
		if err != nil || sess == nil {
			abortUnauthenticated(c)
			return
		}

		if sess.Status == session.StatusBanned {
			abortForbidden(c)
			return
		}

		// sliding expiration; a failed refresh only shortens the session
		_ = g.store.Refresh(c.Request.Context(), token)

		c.Set(identityKey, Identity{
			UserID:    sess.UserID,
			Role:      sess.Role,
			Status:    sess.Status,
			SessionID: sess.SessionID,
		})

		c.Next()
	}
}

// RequireActive re-reads the session rather than trusting the identity
// cached by RequireAuth, so a deactivation takes effect immediately.
// Banned blocks everything at RequireAuth; inactive blocks only routes
// behind this layer.
func (g *Gate) RequireActive() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := IdentityFrom(c)
		if !ok {
			abortUnauthenticated(c)
			return
		}

		sess, err := g.store.Get(c.Request.Context(), ident.SessionID)
		if err != nil || sess == nil {
			abortUnauthenticated(c)
			return
		}

		if sess.Status == session.StatusInactive {
			abortForbidden(c)
			return
		}

		c.Next()
	}
}

func (g *Gate) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := IdentityFrom(c)
		if !ok {
			abortUnauthenticated(c)
			return
		}

		if ident.Role != session.RoleAdmin {
			abortForbidden(c)
			return
		}

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return token
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
}

func abortForbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
}
