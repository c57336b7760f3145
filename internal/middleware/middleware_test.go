package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := UserIDFromContext(r.Context())
		w.Write([]byte(uid))
	})
}

func TestWithAuthAndRequireAuth(t *testing.T) {
	j := NewJWT("s3cret")
	tok, err := j.SignToken("u1", "alice", time.Hour)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	h := j.WithAuth(RequireAuth(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/ask", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Body.String() != "u1" {
		t.Fatalf("want 200 u1, got %d %q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ask", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 without token, got %d", rr.Code)
	}
}

func TestTokenFromOtherSecretIsIgnored(t *testing.T) {
	tok, _ := NewJWT("other").SignToken("u1", "alice", time.Hour)
	h := NewJWT("s3cret").WithAuth(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Body.String() != "" {
		t.Fatalf("expected anonymous request, got user %q", rr.Body.String())
	}
}

func TestExpiredTokenIsIgnored(t *testing.T) {
	j := NewJWT("s3cret")
	tok, _ := j.SignToken("u1", "alice", -time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	j.WithAuth(RequireAuth(okHandler())).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 for expired token, got %d", rr.Code)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example.com/"})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/scrapedquestions/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("want 204 preflight, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("unexpected allow origin %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("origin should not be allowed, got %q", got)
	}
}

func TestHeaderMiddlewares(t *testing.T) {
	rr := httptest.NewRecorder()
	SecureHeaders(NoStore(okHandler())).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff")
	}
	if rr.Header().Get("Cache-Control") == "" {
		t.Fatalf("missing cache-control")
	}
}
