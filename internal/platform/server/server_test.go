package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/brwallet/pix-wallet-go/internal/platform/audit"
	"github.com/brwallet/pix-wallet-go/internal/platform/auth"
	"github.com/brwallet/pix-wallet-go/internal/platform/clock"
	"github.com/brwallet/pix-wallet-go/internal/platform/server"
	"github.com/brwallet/pix-wallet-go/internal/platform/store/memory"
	"github.com/brwallet/pix-wallet-go/internal/platform/wallet"
)

var apiStart = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type apiFixture struct {
	ts    *httptest.Server
	clk   *clock.Manual
	token string
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()

	clk := clock.NewManual(apiStart)
	store := memory.NewStore()
	trail := audit.NewTrail()
	engine := wallet.NewEngine(store, store, nil, trail, clk)
	accounts := wallet.NewAccounts(store, trail, clk)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	signer := auth.NewSigner("test-secret", time.Hour, clk)
	authSvc := auth.NewService(signer, auth.NewMemoryBlacklist(clk),
		[]auth.Credential{{UserID: "u-1", Email: "admin@example.com", PasswordHash: string(hash)}}, clk)

	srv := server.New(accounts, engine, authSvc,
		server.WithMetrics(server.NewMetrics(prometheus.NewRegistry())))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	f := &apiFixture{ts: ts, clk: clk}
	f.token = f.login(t, "admin@example.com", "s3cret")
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, withToken bool) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, f.ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withToken {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode %s %s response: %v", method, path, err)
	}
	return resp, decoded
}

func (f *apiFixture) login(t *testing.T, email, password string) string {
	t.Helper()
	resp, body := f.do(t, http.MethodPost, "/v1/login", map[string]string{
		"email": email, "password": password,
	}, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %v", resp.StatusCode, body)
	}
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatalf("no access_token in %v", body)
	}
	return token
}

func (f *apiFixture) createAccount(t *testing.T, name, balance string) string {
	t.Helper()
	resp, body := f.do(t, http.MethodPost, "/v1/accounts", map[string]any{
		"name": name, "balance": balance,
	}, true)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create account status %d: %v", resp.StatusCode, body)
	}
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatalf("no id in %v", body)
	}
	return id
}

func TestRoutesRequireToken(t *testing.T) {
	f := newAPI(t)

	resp, body := f.do(t, http.MethodGet, "/v1/accounts", nil, false)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.StatusCode)
	}
	if body["error_code"] != "TOKEN_NOT_PROVIDED" {
		t.Fatalf("error_code = %v", body["error_code"])
	}

	req, _ := http.NewRequest(http.MethodGet, f.ts.URL+"/v1/accounts", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	raw, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer raw.Body.Close()
	if raw.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token status %d, want 401", raw.StatusCode)
	}
}

func TestHealthzIsPublic(t *testing.T) {
	f := newAPI(t)
	resp, body := f.do(t, http.MethodGet, "/healthz", nil, false)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("healthz: %d %v", resp.StatusCode, body)
	}
}

func TestAccountLifecycleOverHTTP(t *testing.T) {
	f := newAPI(t)
	id := f.createAccount(t, "Maria Silva", "100.00")

	resp, body := f.do(t, http.MethodGet, "/v1/accounts/"+id, nil, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status %d: %v", resp.StatusCode, body)
	}
	if body["balance"] != "100.00" || body["name"] != "Maria Silva" {
		t.Fatalf("account body = %v", body)
	}

	resp, body = f.do(t, http.MethodPut, "/v1/accounts/"+id, map[string]any{"name": "Maria Oliveira"}, true)
	if resp.StatusCode != http.StatusOK || body["name"] != "Maria Oliveira" {
		t.Fatalf("update: %d %v", resp.StatusCode, body)
	}

	resp, body = f.do(t, http.MethodDelete, "/v1/accounts/"+id, nil, true)
	if resp.StatusCode != http.StatusOK || body["deleted_at"] == nil {
		t.Fatalf("delete: %d %v", resp.StatusCode, body)
	}

	resp, body = f.do(t, http.MethodGet, "/v1/accounts/"+id, nil, true)
	if resp.StatusCode != http.StatusNotFound || body["error_code"] != "ACCOUNT_NOT_FOUND" {
		t.Fatalf("get after delete: %d %v", resp.StatusCode, body)
	}
}

func TestImmediateWithdrawOverHTTP(t *testing.T) {
	f := newAPI(t)
	id := f.createAccount(t, "Maria Silva", "100.00")

	resp, body := f.do(t, http.MethodPost, "/v1/accounts/"+id+"/withdraws", map[string]any{
		"method": "PIX",
		"amount": "25.00",
		"pix":    map[string]string{"type": "email", "key": "payee@example.com"},
	}, true)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("withdraw status %d: %v", resp.StatusCode, body)
	}
	if body["state"] != "done" || body["amount"] != "25.00" {
		t.Fatalf("withdraw body = %v", body)
	}

	_, account := f.do(t, http.MethodGet, "/v1/accounts/"+id, nil, true)
	if account["balance"] != "75.00" {
		t.Fatalf("balance after withdraw = %v", account["balance"])
	}
}

func TestInsufficientBalanceOverHTTP(t *testing.T) {
	f := newAPI(t)
	id := f.createAccount(t, "Maria Silva", "10.00")

	resp, body := f.do(t, http.MethodPost, "/v1/accounts/"+id+"/withdraws", map[string]any{
		"method": "PIX",
		"amount": "50.00",
		"pix":    map[string]string{"type": "email", "key": "payee@example.com"},
	}, true)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status %d, want 409", resp.StatusCode)
	}
	if body["error_code"] != "INSUFFICIENT_BALANCE" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
	details, _ := body["details"].(map[string]any)
	if details["current_balance"] != "10.00" {
		t.Fatalf("details = %v", details)
	}
}

func TestScheduledWithdrawWarningOverHTTP(t *testing.T) {
	f := newAPI(t)
	id := f.createAccount(t, "Maria Silva", "10.00")

	schedule := apiStart.Add(24 * time.Hour).Format(time.RFC3339)
	resp, body := f.do(t, http.MethodPost, "/v1/accounts/"+id+"/withdraws", map[string]any{
		"method":   "PIX",
		"amount":   "50.00",
		"pix":      map[string]string{"type": "email", "key": "payee@example.com"},
		"schedule": schedule,
	}, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200 for warned scheduling", resp.StatusCode)
	}
	if body["state"] != "pending" {
		t.Fatalf("state = %v", body["state"])
	}
	warning, _ := body["warning"].(map[string]any)
	if warning["error_code"] != "POSSIBLE_INSUFFICIENT_BALANCE" {
		t.Fatalf("warning = %v", body["warning"])
	}
}

func TestValidationErrorsOverHTTP(t *testing.T) {
	f := newAPI(t)
	id := f.createAccount(t, "Maria Silva", "100.00")

	resp, body := f.do(t, http.MethodPost, "/v1/accounts/"+id+"/withdraws", map[string]any{
		"method": "PIX",
	}, true)
	if resp.StatusCode != http.StatusBadRequest || body["error_code"] != "REQUIRED_FIELD_MISSING" {
		t.Fatalf("missing fields: %d %v", resp.StatusCode, body)
	}

	resp, body = f.do(t, http.MethodPost, "/v1/accounts/"+id+"/withdraws", map[string]any{
		"method": "PIX",
		"amount": "10.123",
		"pix":    map[string]string{"type": "email", "key": "payee@example.com"},
	}, true)
	if resp.StatusCode != http.StatusBadRequest || body["error_code"] != "INVALID_DATA_TYPE" {
		t.Fatalf("sub-cent amount: %d %v", resp.StatusCode, body)
	}
}

func TestWithdrawListingOverHTTP(t *testing.T) {
	f := newAPI(t)
	id := f.createAccount(t, "Maria Silva", "100.00")

	for i := 0; i < 3; i++ {
		resp, body := f.do(t, http.MethodPost, "/v1/accounts/"+id+"/withdraws", map[string]any{
			"method": "PIX",
			"amount": "1.00",
			"pix":    map[string]string{"type": "email", "key": "payee@example.com"},
		}, true)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("seed withdraw: %d %v", resp.StatusCode, body)
		}
	}

	resp, body := f.do(t, http.MethodGet, "/v1/accounts/"+id+"/withdraws?page=1&limit=2", nil, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %v", resp.StatusCode, body)
	}
	data, _ := body["data"].([]any)
	if len(data) != 2 || body["total"] != float64(3) || body["last_page"] != float64(2) {
		t.Fatalf("page = %v", body)
	}
}

func TestLogoutRevokesSessionOverHTTP(t *testing.T) {
	f := newAPI(t)

	resp, _ := f.do(t, http.MethodPost, "/v1/logout", nil, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status %d", resp.StatusCode)
	}

	resp, body := f.do(t, http.MethodGet, "/v1/accounts", nil, true)
	if resp.StatusCode != http.StatusUnauthorized || body["error_code"] != "TOKEN_VALIDATION_ERROR" {
		t.Fatalf("revoked token: %d %v", resp.StatusCode, body)
	}
}

func TestLoginErrorsOverHTTP(t *testing.T) {
	f := newAPI(t)

	resp, body := f.do(t, http.MethodPost, "/v1/login", map[string]string{"email": "admin@example.com"}, false)
	if resp.StatusCode != http.StatusUnprocessableEntity || body["error_code"] != "LOGIN_VALIDATION_ERROR" {
		t.Fatalf("missing password: %d %v", resp.StatusCode, body)
	}

	resp, body = f.do(t, http.MethodPost, "/v1/login", map[string]string{
		"email": "admin@example.com", "password": "wrong",
	}, false)
	if resp.StatusCode != http.StatusUnauthorized || body["error_code"] != "LOGIN_UNAUTHORIZED" {
		t.Fatalf("bad credentials: %d %v", resp.StatusCode, body)
	}
}
