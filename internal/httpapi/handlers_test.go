package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"ldtt.org/internal/auth"
)

// memAccounts is an in-memory auth.AccountStore keyed by email.
type memAccounts struct {
	mu      sync.Mutex
	byEmail map[string]*auth.Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byEmail: make(map[string]*auth.Account)}
}

func (s *memAccounts) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byEmail[email]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return a, nil
}

func (s *memAccounts) FindBySubject(ctx context.Context, subject string) (*auth.Account, error) {
	return s.FindByEmail(ctx, subject)
}

func (s *memAccounts) Create(ctx context.Context, account *auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[account.Email]; ok {
		return auth.ErrAlreadyExists
	}
	if account.ID == "" {
		account.ID = "acc-" + account.Username
	}
	s.byEmail[account.Email] = account
	return nil
}

type memDenylist struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

func newMemDenylist() *memDenylist {
	return &memDenylist{ids: make(map[string]time.Time)}
}

func (m *memDenylist) Contains(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ids[id]
	return ok, nil
}

func (m *memDenylist) Insert(ctx context.Context, token auth.InvalidatedToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[token.ID] = token.ExpiryTime
	return nil
}

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	revoked := newMemDenylist()
	codec, err := auth.NewCodec(auth.CodecConfig{
		Secret:              []byte(strings.Repeat("0123456789abcdef", 4)),
		ValidDuration:       time.Hour,
		RefreshableDuration: 10 * time.Hour,
	}, revoked)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	svc, err := auth.NewService(newMemAccounts(), revoked, codec)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	api := New(ReadyProbe{}, "test", svc)
	api.rateBurst = 100
	api.ratePerSec = 100

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func (c *apiClient) register(email, password string) {
	c.t.Helper()
	resp := c.post("/v1/auth/register", map[string]any{
		"email":            email,
		"password":         password,
		"confirm_password": password,
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("unexpected register status: %d", resp.StatusCode)
	}
}

func (c *apiClient) obtainToken(email, password string) string {
	c.t.Helper()
	resp := c.post("/v1/auth/token", map[string]any{
		"email":    email,
		"password": password,
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("unexpected token status: %d", resp.StatusCode)
	}
	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode token response: %v", err)
	}
	if payload.Token == "" {
		c.t.Fatalf("empty token issued")
	}
	return payload.Token
}

func (c *apiClient) introspect(token string) bool {
	c.t.Helper()
	resp := c.post("/v1/auth/introspect", map[string]any{"token": token}, nil)
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("unexpected introspect status: %d", resp.StatusCode)
	}
	return decode[introspectResponse](c.t, resp).Valid
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestTokenLifecycleFlow(t *testing.T) {
	c := newTestAPI(t)

	c.register("alice@ldtt.org", "long enough password")
	token := c.obtainToken("alice@ldtt.org", "long enough password")

	if !c.introspect(token) {
		t.Fatal("expected fresh token to introspect valid")
	}

	resp := c.get("/v1/accounts/me", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected me status: %d", resp.StatusCode)
	}
	me := decode[accountResponse](t, resp)
	if me.Email != "alice@ldtt.org" || me.Username != "alice" {
		t.Fatalf("unexpected account: %+v", me)
	}
	if len(me.Roles) != 1 || me.Roles[0] != "USER" {
		t.Fatalf("unexpected roles: %v", me.Roles)
	}

	resp = c.post("/v1/auth/logout", map[string]any{"token": token}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("unexpected logout status: %d", resp.StatusCode)
	}

	if c.introspect(token) {
		t.Fatal("expected revoked token to introspect invalid")
	}

	resp = c.get("/v1/accounts/me", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestTokenRejectsBadCredentials(t *testing.T) {
	c := newTestAPI(t)
	c.register("alice@ldtt.org", "long enough password")

	resp := c.post("/v1/auth/token", map[string]any{
		"email":    "alice@ldtt.org",
		"password": "wrong",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", resp.StatusCode)
	}

	resp = c.post("/v1/auth/token", map[string]any{
		"email":    "nobody@ldtt.org",
		"password": "whatever",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown email, got %d", resp.StatusCode)
	}

	resp = c.post("/v1/auth/token", map[string]any{"email": "alice@ldtt.org"}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing password, got %d", resp.StatusCode)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	c := newTestAPI(t)
	c.register("alice@ldtt.org", "long enough password")
	old := c.obtainToken("alice@ldtt.org", "long enough password")

	resp := c.post("/v1/auth/refresh", map[string]any{"token": old}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected refresh status: %d", resp.StatusCode)
	}
	fresh := decode[tokenResponse](t, resp)
	if fresh.Token == "" || fresh.Token == old {
		t.Fatalf("expected a rotated token")
	}

	if c.introspect(old) {
		t.Fatal("expected old token to be revoked after refresh")
	}
	if !c.introspect(fresh.Token) {
		t.Fatal("expected refreshed token to be valid")
	}

	resp = c.post("/v1/auth/refresh", map[string]any{"token": "garbage"}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage refresh, got %d", resp.StatusCode)
	}
}

func TestRegisterValidation(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/auth/register", map[string]any{
		"email":            "bob@ldtt.org",
		"password":         "long enough password",
		"confirm_password": "different",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for password mismatch, got %d", resp.StatusCode)
	}

	resp = c.post("/v1/auth/register", map[string]any{
		"email":            "not-an-email",
		"password":         "long enough password",
		"confirm_password": "long enough password",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid email, got %d", resp.StatusCode)
	}

	c.register("bob@ldtt.org", "long enough password")
	resp = c.post("/v1/auth/register", map[string]any{
		"email":            "bob@ldtt.org",
		"password":         "long enough password",
		"confirm_password": "long enough password",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", resp.StatusCode)
	}
}

func TestAccountMeRequiresBearer(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/v1/accounts/me", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["error"] == "" {
		t.Fatalf("expected error message, got %v", body)
	}
	if rid, _ := body["request_id"].(string); rid == "" {
		t.Fatalf("expected request_id in error body, got %v", body)
	}

	resp = c.get("/v1/accounts/me", nil, map[string]string{
		"Authorization": "Bearer not.a.token",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", resp.StatusCode)
	}
}

func TestUnknownPathNeedsAuth(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/nope", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthenticated unknown path, got %d", resp.StatusCode)
	}

	c.register("alice@ldtt.org", "long enough password")
	token := c.obtainToken("alice@ldtt.org", "long enough password")
	resp = c.get("/nope", nil, map[string]string{"Authorization": "Bearer " + token})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for authenticated unknown path, got %d", resp.StatusCode)
	}
}

func TestHealthReadyInfo(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/healthz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected healthz status: %d", resp.StatusCode)
	}
	health := decode[map[string]any](t, resp)
	if health["status"] != "ok" || health["service"] != serviceName {
		t.Fatalf("unexpected healthz body: %v", health)
	}

	resp = c.get("/readyz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected readyz status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.get("/v1/info", nil, nil)
	info := decode[map[string]any](t, resp)
	if info["name"] != serviceName || info["version"] != "test" {
		t.Fatalf("unexpected info body: %v", info)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/v1/auth/token", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
	if allow := resp.Header.Get("Allow"); allow != http.MethodPost {
		t.Fatalf("unexpected Allow header: %q", allow)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/auth/introspect", map[string]any{
		"token":   "x",
		"unknown": true,
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", resp.StatusCode)
	}

	resp = c.post("/v1/auth/token", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty body, got %d", resp.StatusCode)
	}
}
