package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mococa-backend/internal/auth"
	"mococa-backend/internal/auth/provider"
	"mococa-backend/internal/auth/resolver"
	"mococa-backend/internal/notify"
	"mococa-backend/internal/session"
)

type fakeProvider struct {
	profile     *auth.Profile
	exchangeErr error
	gotCode     string
	gotVerifier string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) AuthCodeURL(state, codeChallenge string) string {
	return "https://provider.example.com/authorize?state=" + state +
		"&code_challenge=" + codeChallenge
}

func (f *fakeProvider) ExchangeCode(
	_ context.Context,
	code string,
	codeVerifier string,
) (*auth.Profile, error) {
	f.gotCode = code
	f.gotVerifier = codeVerifier
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.profile, nil
}

type fakeResolver struct {
	account *resolver.Account
	err     error
}

func (f *fakeResolver) Resolve(_ context.Context, _ *auth.Profile) (*resolver.Account, error) {
	return f.account, f.err
}

type recordingNotifier struct {
	events []notify.Event
}

func (r *recordingNotifier) Notify(ev notify.Event) {
	r.events = append(r.events, ev)
}

type harness struct {
	router   *gin.Engine
	provider *fakeProvider
	resolver *fakeResolver
	notifier *recordingNotifier
	store    session.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := &harness{
		provider: &fakeProvider{
			profile: &auth.Profile{
				ID:       "prov-1",
				Name:     "Test User",
				Email:    "test@example.com",
				Provider: "fake",
			},
		},
		resolver: &fakeResolver{
			account: &resolver.Account{
				UserID: "user-1",
				Role:   session.RoleUser,
				Status: session.StatusActive,
			},
		},
		notifier: &recordingNotifier{},
		store:    session.NewRedisStore(client),
	}

	gin.SetMode(gin.TestMode)
	h.router = gin.New()

	handler := NewHandler(
		provider.NewRegistry(h.provider),
		h.store,
		h.resolver,
		h.notifier,
	)
	handler.RegisterRoutes(h.router)

	return h
}

func callback(h *harness, query string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/oauth/callback/fake?"+query, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func TestLoginRedirectsToProvider(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/oauth/login/fake", nil)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "https://provider.example.com/authorize"))

	// both handshake cookies issued
	cookies := w.Result().Cookies()
	names := make(map[string]bool)
	for _, c := range cookies {
		names[c.Name] = true
		assert.True(t, c.HttpOnly, c.Name)
	}
	assert.True(t, names[stateCookieName])
	assert.True(t, names[pkceCookieName])
}

func TestLoginUnknownProvider(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/oauth/login/cognito", nil)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCallbackStateMismatch(t *testing.T) {
	h := newHarness(t)

	// code is valid, state is not: must fail regardless
	w := callback(h, "code=good-code&state=attacker",
		&http.Cookie{Name: stateCookieName, Value: "issued"},
		&http.Cookie{Name: pkceCookieName, Value: "verifier"},
	)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid state")
	assert.Empty(t, h.provider.gotCode)
}

func TestCallbackMissingStateCookie(t *testing.T) {
	h := newHarness(t)

	w := callback(h, "code=good-code&state=issued",
		&http.Cookie{Name: pkceCookieName, Value: "verifier"},
	)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCallbackMissingVerifier(t *testing.T) {
	h := newHarness(t)

	w := callback(h, "code=good-code&state=issued",
		&http.Cookie{Name: stateCookieName, Value: "issued"},
	)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing pkce verifier")
}

func TestCallbackProviderError(t *testing.T) {
	h := newHarness(t)

	w := callback(h, "state=issued&error=access_denied",
		&http.Cookie{Name: stateCookieName, Value: "issued"},
	)

	// user-denied consent redirects back to login, not an error page
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestCallbackSuccessCreatesSession(t *testing.T) {
	h := newHarness(t)

	w := callback(h, "code=good-code&state=issued",
		&http.Cookie{Name: stateCookieName, Value: "issued"},
		&http.Cookie{Name: pkceCookieName, Value: "the-verifier"},
	)

	require.Equal(t, http.StatusOK, w.Code)

	// code and verifier forwarded to the provider exchange
	assert.Equal(t, "good-code", h.provider.gotCode)
	assert.Equal(t, "the-verifier", h.provider.gotVerifier)

	// bridge page carries a real session token
	body := w.Body.String()
	idx := strings.Index(body, session.IDPrefix)
	require.GreaterOrEqual(t, idx, 0)
	token := body[idx : idx+len(session.IDPrefix)+32]

	sess, err := h.store.Get(context.Background(), token)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, session.RoleUser, sess.Role)

	// existing user, no registration notification
	assert.Empty(t, h.notifier.events)
}

func TestCallbackNewUserNotifies(t *testing.T) {
	h := newHarness(t)
	h.resolver.account.Created = true

	w := callback(h, "code=good-code&state=issued",
		&http.Cookie{Name: stateCookieName, Value: "issued"},
		&http.Cookie{Name: pkceCookieName, Value: "the-verifier"},
	)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, h.notifier.events, 1)
	assert.Equal(t, "New registration", h.notifier.events[0].Title)
}

func TestCallbackExchangeFailure(t *testing.T) {
	h := newHarness(t)
	h.provider.exchangeErr = errors.New("token endpoint unavailable")

	w := callback(h, "code=good-code&state=issued",
		&http.Cookie{Name: stateCookieName, Value: "issued"},
		&http.Cookie{Name: pkceCookieName, Value: "the-verifier"},
	)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "authentication failed")
}

func TestLogoutDeletesSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	token, err := h.store.Create(ctx, "user-1", session.RoleUser, session.StatusActive)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)

	sess, err := h.store.Get(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestLogoutWithoutTokenIsIdempotent(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
