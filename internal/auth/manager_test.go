package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/hasura-intercom/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return &config.Config{
		AppUsername:     "alice",
		AppPasswordHash: string(hash),
		AppRoles:        "admin,user",
		TokenSecret:     "test-secret",
		TokenTTLMinutes: 5,
	}
}

func newRouter(m *Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	Register(router, m)
	return router
}

func doJSON(router *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v body=%s", err, rec.Body.String())
	}
	return payload
}

const validLogin = `{"provider":"username","data":{"username":"alice","password":"secret1"}}`

func TestLoginSuccess(t *testing.T) {
	m := NewManager(testConfig(t))
	router := newRouter(m)

	rec := doJSON(router, http.MethodPost, "/v1/login", validLogin, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	payload := decode(t, rec)
	if payload["hasura_id"] != UserID("alice") {
		t.Fatalf("unexpected hasura_id: %v", payload["hasura_id"])
	}
	roles, _ := payload["hasura_roles"].([]any)
	if len(roles) != 2 || roles[0] != "admin" {
		t.Fatalf("unexpected roles: %v", payload["hasura_roles"])
	}

	token, _ := payload["auth_token"].(string)
	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.Subject != UserID("alice") || claims.ID == "" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	router := newRouter(NewManager(testConfig(t)))

	body := `{"provider":"username","data":{"username":"alice","password":"wrong-pass"}}`
	rec := doJSON(router, http.MethodPost, "/v1/login", body, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if code := decode(t, rec)["code"]; code != CodeInvalidCredentials {
		t.Fatalf("unexpected code: %v", code)
	}

	body = `{"provider":"username","data":{"username":"bob","password":"secret1"}}`
	rec = doJSON(router, http.MethodPost, "/v1/login", body, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user should be rejected, status=%d", rec.Code)
	}
}

func TestLoginInvalidRequest(t *testing.T) {
	router := newRouter(NewManager(testConfig(t)))

	cases := []struct {
		name string
		body string
		code string
	}{
		{"malformed", `not-json`, CodeInvalidRequest},
		{"missing password", `{"provider":"username","data":{"username":"alice"}}`, CodeInvalidRequest},
		{"unknown provider", `{"provider":"email","data":{"username":"alice","password":"secret1"}}`, CodeInvalidProvider},
	}
	for _, tc := range cases {
		rec := doJSON(router, http.MethodPost, "/v1/login", tc.body, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: unexpected status: %d", tc.name, rec.Code)
		}
		if code := decode(t, rec)["code"]; code != tc.code {
			t.Fatalf("%s: unexpected code: %v", tc.name, code)
		}
	}
}

func TestLoginMisconfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.TokenSecret = ""
	router := newRouter(NewManager(cfg))

	rec := doJSON(router, http.MethodPost, "/v1/login", validLogin, "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if code := decode(t, rec)["code"]; code != CodeServerMisconfigured {
		t.Fatalf("unexpected code: %v", code)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	m := NewManager(testConfig(t))
	router := newRouter(m)

	token, _, err := m.IssueToken("alice")
	if err != nil {
		t.Fatalf("IssueToken returned error: %v", err)
	}

	rec := doJSON(router, http.MethodPost, "/v1/user/logout", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	if msg, _ := decode(t, rec)["message"].(string); msg == "" {
		t.Fatal("expected logout message")
	}

	rec = doJSON(router, http.MethodPost, "/v1/user/logout", "", token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token should be rejected, status=%d", rec.Code)
	}
	payload := decode(t, rec)
	if payload["code"] != CodeInvalidToken || payload["message"] == "" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestLogoutRequiresBearerToken(t *testing.T) {
	router := newRouter(NewManager(testConfig(t)))

	rec := doJSON(router, http.MethodPost, "/v1/user/logout", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	rec = doJSON(router, http.MethodPost, "/v1/user/logout", "", "not-a-jwt")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status for garbage token: %d", rec.Code)
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	m := NewManager(testConfig(t))
	other := testConfig(t)
	other.TokenSecret = "another-secret"
	token, _, err := NewManager(other).IssueToken("alice")
	if err != nil {
		t.Fatalf("IssueToken returned error: %v", err)
	}
	if _, err := m.ParseToken(token); err == nil {
		t.Fatal("expected signature verification to fail")
	}
}

func TestHealth(t *testing.T) {
	router := newRouter(NewManager(testConfig(t)))
	rec := doJSON(router, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != "ok" {
		t.Fatalf("unexpected health response: %d %s", rec.Code, rec.Body.String())
	}
}
