package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimitMiddleware(t *testing.T) {
	store := newLimiterStore(1, 2)
	handler := rateLimitMiddleware(store, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	status := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/v1/accounts", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// Burst of 2, then the bucket is empty.
	if got := status("10.0.0.1:1234"); got != http.StatusOK {
		t.Fatalf("first request: %d", got)
	}
	if got := status("10.0.0.1:1234"); got != http.StatusOK {
		t.Fatalf("second request: %d", got)
	}
	if got := status("10.0.0.1:1234"); got != http.StatusTooManyRequests {
		t.Fatalf("third request: %d, want 429", got)
	}

	// Another client has its own bucket.
	if got := status("10.0.0.2:1234"); got != http.StatusOK {
		t.Fatalf("other client: %d", got)
	}
}
