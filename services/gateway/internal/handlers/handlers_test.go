package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securepulse/securepulse/pkg/auth"
	"github.com/securepulse/securepulse/pkg/stub"
	"github.com/securepulse/securepulse/services/gateway/internal/proxy"
)

// recordingUpstream stands in for a proxied service.
type recordingUpstream struct {
	name   string
	hits   int
	path   string
	userID string
	header http.Header
	claims *auth.Claims
}

func (u *recordingUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.hits++
	u.path = r.URL.Path
	u.userID = r.Header.Get("X-User-ID")
	u.header = r.Header.Clone()
	u.claims, _ = ClaimsFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(u.name))
}

type fixture struct {
	router    http.Handler
	issuer    *auth.Issuer
	upstreams map[string]*recordingUpstream
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	issuer, err := auth.NewIssuer(auth.IssuerConfig{Secret: "test-secret", AccessTTL: 15 * time.Minute, RefreshTTL: time.Hour})
	require.NoError(t, err)

	ups := map[string]*recordingUpstream{}
	for _, n := range []string{"auth", "inventory", "soc", "ai", "reports"} {
		ups[n] = &recordingUpstream{name: n}
	}
	h := New(issuer, Upstreams{
		Auth:      ups["auth"],
		Inventory: ups["inventory"],
		SOC:       ups["soc"],
		AI:        ups["ai"],
		Reports:   ups["reports"],
	})
	h.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return &fixture{router: h.Routes(), issuer: issuer, upstreams: ups}
}

func (f *fixture) do(method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "active", body["status"])
	assert.Equal(t, "2026-03-01T09:00:00Z", body["timestamp"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestAuthRoutesAreOpen(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/auth/login", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.upstreams["auth"].hits)
	assert.Equal(t, "/api/auth/login", f.upstreams["auth"].path)
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/api/inventory/items", "/api/soc/alerts/poll", "/api/ai/x", "/api/reports"} {
		rec := f.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"), path)
	}
	for _, u := range f.upstreams {
		assert.Zero(t, u.hits, u.name)
	}
}

func TestProtectedRoutesRejectBadTokens(t *testing.T) {
	f := newFixture(t)
	id := auth.Identity{Email: "a@x.com", UserID: 3, Role: "user"}

	refresh, err := f.issuer.IssueRefresh(id)
	require.NoError(t, err)

	other, err := auth.NewIssuer(auth.IssuerConfig{Secret: "other", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.NoError(t, err)
	foreign, err := other.IssueAccess(id, 0)
	require.NoError(t, err)

	for name, tok := range map[string]string{"garbage": "not.a.jwt", "refresh": refresh, "foreign": foreign} {
		rec := f.do(http.MethodGet, "/api/inventory/items", tok)
		assert.Equal(t, http.StatusForbidden, rec.Code, name)
	}
	assert.Zero(t, f.upstreams["inventory"].hits)
}

func TestProtectedRoutesForwardWithValidToken(t *testing.T) {
	f := newFixture(t)
	token, err := f.issuer.IssueAccess(auth.Identity{Email: "a@x.com", UserID: 3, Role: "user"}, 0)
	require.NoError(t, err)

	rec := f.do(http.MethodPost, "/api/soc/alerts/poll", token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "soc", rec.Body.String())
	up := f.upstreams["soc"]
	assert.Equal(t, "/api/soc/alerts/poll", up.path)
	assert.Equal(t, "3", up.userID)
	require.NotNil(t, up.claims)
	assert.Equal(t, "a@x.com", up.claims.Subject)
}

func TestRecovererReturnsJSON(t *testing.T) {
	issuer, err := auth.NewIssuer(auth.IssuerConfig{Secret: "s", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.NoError(t, err)
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	h := New(issuer, Upstreams{Auth: panicking, Inventory: panicking, SOC: panicking, AI: panicking, Reports: panicking})

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestForgedIdentityHeadersAreStripped(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set("X-User-ID", "1")
	req.Header.Set("X-User-Role", "admin")
	req.Header.Set("X-User-Email", "root@x.com")
	f.router.ServeHTTP(httptest.NewRecorder(), req)

	up := f.upstreams["auth"]
	require.Equal(t, 1, up.hits)
	assert.Empty(t, up.header.Get("X-User-ID"))
	assert.Empty(t, up.header.Get("X-User-Role"))
	assert.Empty(t, up.header.Get("X-User-Email"))

	token, err := f.issuer.IssueAccess(auth.Identity{Email: "a@x.com", UserID: 3, Role: "user"}, 0)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/reports/daily", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-User-Role", "admin")
	req.Header.Set("X-User-Tenant", "other")
	f.router.ServeHTTP(httptest.NewRecorder(), req)

	up = f.upstreams["reports"]
	require.Equal(t, 1, up.hits)
	assert.Equal(t, "user", up.header.Get("X-User-Role"))
	assert.Empty(t, up.header.Get("X-User-Tenant"))
}

func TestProxiedResponsesCarrySingleCORSOrigin(t *testing.T) {
	upstream := httptest.NewServer(stub.Routes("auth", "Auth"))
	defer upstream.Close()

	issuer, err := auth.NewIssuer(auth.IssuerConfig{Secret: "s", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.NoError(t, err)
	p := proxy.NewServiceProxy("auth", upstream.URL, time.Second)
	router := New(issuer, Upstreams{Auth: p, Inventory: p, SOC: p, AI: p, Reports: p}).Routes()

	req := httptest.NewRequest(http.MethodGet, "/api/auth/x", nil)
	req.Header.Set("Origin", "http://app.local")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, []string{"http://app.local"}, rec.Header().Values("Access-Control-Allow-Origin"))
	assert.Equal(t, []string{"true"}, rec.Header().Values("Access-Control-Allow-Credentials"))
	assert.Len(t, rec.Header().Values("X-Request-ID"), 1)
}
