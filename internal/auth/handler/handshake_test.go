package handler

import (
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestGeneratePKCEChallengeMatchesVerifier(t *testing.T) {
	c, w := testContext()

	challenge := generatePKCE(c)

	var verifier string
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == pkceCookieName {
			verifier = cookie.Value
		}
	}
	require.NotEmpty(t, verifier)

	hash := sha256.Sum256([]byte(verifier))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(hash[:]), challenge)
}

func TestHandshakeCookieAttributes(t *testing.T) {
	c, w := testContext()

	generateState(c)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	cookie := cookies[0]
	assert.Equal(t, stateCookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, int(handshakeTTL.Seconds()), cookie.MaxAge)
}

func TestValidateState(t *testing.T) {
	gin.SetMode(gin.TestMode)

	run := func(query string, cookie *http.Cookie) bool {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/cb?"+query, nil)
		if cookie != nil {
			c.Request.AddCookie(cookie)
		}
		return validateState(c)
	}

	assert.True(t, run("state=abc", &http.Cookie{Name: stateCookieName, Value: "abc"}))
	assert.False(t, run("state=abc", &http.Cookie{Name: stateCookieName, Value: "xyz"}))
	assert.False(t, run("state=abc", nil))
	assert.False(t, run("", &http.Cookie{Name: stateCookieName, Value: "abc"}))
}

func TestRandomSecretsDiffer(t *testing.T) {
	assert.NotEqual(t, randomSecret(), randomSecret())
}
