package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"fina/internal/core"
	"fina/internal/ledger"
	"fina/internal/middleware/ratelimit"
	"fina/internal/storage/memory"
)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	svc := ledger.NewService(memory.New(), ledger.WithBcryptCost(bcrypt.MinCost))
	srv := NewServer(":0", svc, nil, opts...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body=%s)", v, err, rr.Body.String())
	}
	return v
}

func register(t *testing.T, srv *Server, username string) core.User {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"email":"%s@example.com","password":"correct-horse","currency":"USD"}`, username, username)
	rr := do(t, srv, http.MethodPost, "/api/users", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register status=%d body=%s", rr.Code, rr.Body.String())
	}
	return decode[core.User](t, rr)
}

func walletByName(t *testing.T, srv *Server, userID int64, name string) core.Wallet {
	t.Helper()
	rr := do(t, srv, http.MethodGet, fmt.Sprintf("/api/users/%d/wallets", userID), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list wallets status=%d", rr.Code)
	}
	for _, w := range decode[[]core.Wallet](t, rr) {
		if w.Name == name {
			return w
		}
	}
	t.Fatalf("wallet %q not found", name)
	return core.Wallet{}
}

func firstCategory(t *testing.T, srv *Server, userID int64, typ string) core.Category {
	t.Helper()
	rr := do(t, srv, http.MethodGet, fmt.Sprintf("/api/users/%d/categories?type=%s", userID, typ), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list categories status=%d", rr.Code)
	}
	cats := decode[[]core.Category](t, rr)
	if len(cats) == 0 {
		t.Fatalf("no %s categories", typ)
	}
	return cats[0]
}

func TestHealthReadyAndMetrics(t *testing.T) {
	srv := newTestServer(t, WithReadyCheck("store", func(ctx context.Context) error { return nil }))

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("%s content-type=%q", path, ct)
		}
	}

	rr := do(t, srv, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "fina_http_requests_total") {
		t.Fatalf("metrics status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestReadyReportsFailedCheck(t *testing.T) {
	srv := newTestServer(t, WithReadyCheck("store", func(ctx context.Context) error { return errors.New("db locked") }))

	rr := do(t, srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "db locked") {
		t.Fatalf("body missing check error: %s", rr.Body.String())
	}
}

func TestLedgerFlow(t *testing.T) {
	srv := newTestServer(t)
	user := register(t, srv, "alice")
	base := fmt.Sprintf("/api/users/%d", user.ID)

	cash := walletByName(t, srv, user.ID, "Cash")
	rr := do(t, srv, http.MethodPut, fmt.Sprintf("%s/wallets/%d", base, cash.ID),
		`{"name":"Cash","description":"Money in hand","initial_balance":100}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update wallet status=%d body=%s", rr.Code, rr.Body.String())
	}

	food := firstCategory(t, srv, user.ID, "expense")
	rr = do(t, srv, http.MethodPost, base+"/transactions", fmt.Sprintf(
		`{"wallet_id":%d,"category_id":%d,"transaction_type_id":1,"amount":30,"description":"groceries","transaction_date":"2024-01-05"}`,
		cash.ID, food.ID))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create transaction status=%d body=%s", rr.Code, rr.Body.String())
	}
	if tx := decode[core.Transaction](t, rr); tx.Amount.Cents != -3000 {
		t.Fatalf("expense amount=%d, want -3000", tx.Amount.Cents)
	}

	rr = do(t, srv, http.MethodGet, base+"/balances", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("balances status=%d", rr.Code)
	}
	if b := decode[core.Balances](t, rr); b.AvailableAssets.Cents != 7000 {
		t.Fatalf("available=%d, want 7000", b.AvailableAssets.Cents)
	}

	rr = do(t, srv, http.MethodPost, base+"/transfers", fmt.Sprintf(
		`{"transaction_type_id":3,"source_wallet_id":%d,"destination":"Bank Account","amount":40,"direction":"outgoing","transaction_date":"2024-01-06"}`,
		cash.ID))
	if rr.Code != http.StatusCreated {
		t.Fatalf("transfer status=%d body=%s", rr.Code, rr.Body.String())
	}
	pair := decode[pairResponse](t, rr)
	if len(pair.Legs) != 2 || pair.PairID == "" {
		t.Fatalf("unexpected pair response: %+v", pair)
	}
	if pair.Legs[0].Amount.Cents != -pair.Legs[1].Amount.Cents {
		t.Fatalf("legs are not opposite: %d %d", pair.Legs[0].Amount.Cents, pair.Legs[1].Amount.Cents)
	}

	rr = do(t, srv, http.MethodGet, base+"/balances", "")
	if b := decode[core.Balances](t, rr); b.AvailableAssets.Cents != 7000 {
		t.Fatalf("transfer changed total: available=%d", b.AvailableAssets.Cents)
	}

	rr = do(t, srv, http.MethodGet, base+"/report?from=2024-01-01&to=2024-01-31", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("report status=%d body=%s", rr.Code, rr.Body.String())
	}
	report := decode[core.Report](t, rr)
	if report.Expense.Cents != 3000 {
		t.Fatalf("report expense=%d, want 3000", report.Expense.Cents)
	}
	if len(report.ExpenseSparkline) != 31 {
		t.Fatalf("sparkline length=%d, want 31", len(report.ExpenseSparkline))
	}

	rr = do(t, srv, http.MethodGet, base+"/cashflow?from=2024-01-01&to=2024-01-10", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("cashflow status=%d body=%s", rr.Code, rr.Body.String())
	}
	series := decode[core.CashflowSeries](t, rr)
	if series.OpeningBalance.Cents != 10000 || len(series.Points) != 10 {
		t.Fatalf("cashflow opening=%d points=%d", series.OpeningBalance.Cents, len(series.Points))
	}
	if last := series.Points[len(series.Points)-1]; last.Balance.Cents != 7000 {
		t.Fatalf("cashflow closing balance=%d, want 7000", last.Balance.Cents)
	}

	rr = do(t, srv, http.MethodGet, base+"/transactions?page=1", "")
	page := decode[ledger.TransactionPage](t, rr)
	if page.Total != 3 {
		t.Fatalf("transactions total=%d, want 3", page.Total)
	}

	rr = do(t, srv, http.MethodDelete, fmt.Sprintf("%s/wallets/%d", base, cash.ID), "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("delete without cascade status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodDelete, fmt.Sprintf("%s/wallets/%d?cascade=1", base, cash.ID), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("cascade delete status=%d body=%s", rr.Code, rr.Body.String())
	}
	if res := decode[deleteResult](t, rr); len(res.DeletedTransactions) != 3 {
		t.Fatalf("cascade removed %d transactions, want 3", len(res.DeletedTransactions))
	}
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)
	user := register(t, srv, "bob")
	base := fmt.Sprintf("/api/users/%d", user.ID)
	cash := walletByName(t, srv, user.ID, "Cash")
	salary := firstCategory(t, srv, user.ID, "income")

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:   "expense with income category",
			method: http.MethodPost, path: base + "/transactions",
			body:       fmt.Sprintf(`{"wallet_id":%d,"category_id":%d,"transaction_type_id":1,"amount":5,"transaction_date":"2024-02-01"}`, cash.ID, salary.ID),
			wantStatus: http.StatusUnprocessableEntity, wantCode: "invalid_category",
		},
		{
			name:   "bad amount",
			method: http.MethodPost, path: base + "/transactions",
			body:       fmt.Sprintf(`{"wallet_id":%d,"category_id":%d,"transaction_type_id":2,"amount":"lots","transaction_date":"2024-02-01"}`, cash.ID, salary.ID),
			wantStatus: http.StatusUnprocessableEntity, wantCode: "validation",
		},
		{
			name:   "malformed body",
			method: http.MethodPost, path: base + "/wallets",
			body:       `{"name":`,
			wantStatus: http.StatusBadRequest, wantCode: "bad_request",
		},
		{
			name:   "unknown field",
			method: http.MethodPost, path: base + "/wallets",
			body:       `{"name":"x","colour":"red"}`,
			wantStatus: http.StatusBadRequest, wantCode: "bad_request",
		},
		{
			name:   "duplicate user",
			method: http.MethodPost, path: "/api/users",
			body:       `{"username":"bob","email":"other@example.com","password":"correct-horse"}`,
			wantStatus: http.StatusConflict, wantCode: "duplicate",
		},
		{
			name:   "unknown user",
			method: http.MethodGet, path: "/api/users/9999/balances",
			wantStatus: http.StatusNotFound, wantCode: "not_found",
		},
		{
			name:   "non-numeric id",
			method: http.MethodGet, path: "/api/users/abc/balances",
			wantStatus: http.StatusBadRequest, wantCode: "bad_request",
		},
		{
			name:   "inverted report window",
			method: http.MethodGet, path: base + "/report?from=2024-03-01&to=2024-01-01",
			wantStatus: http.StatusUnprocessableEntity, wantCode: "validation",
		},
		{
			name:   "cash flow window over ten years",
			method: http.MethodGet, path: base + "/cashflow?from=1000-01-01&to=9999-12-31",
			wantStatus: http.StatusUnprocessableEntity, wantCode: "validation",
		},
		{
			name:   "transfer to same wallet",
			method: http.MethodPost, path: base + "/transfers",
			body:       fmt.Sprintf(`{"transaction_type_id":3,"source_wallet_id":%d,"destination":"Cash","amount":1,"direction":"out","transaction_date":"2024-02-01"}`, cash.ID),
			wantStatus: http.StatusUnprocessableEntity, wantCode: "validation",
		},
		{
			name:   "wrong password",
			method: http.MethodPost, path: "/api/auth/verify",
			body:       `{"username":"bob","password":"nope-nope"}`,
			wantStatus: http.StatusUnauthorized, wantCode: "invalid_credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.path, tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d, want %d (body=%s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			body := decode[ErrorBody](t, rr)
			if body.Code != tt.wantCode {
				t.Fatalf("code=%q, want %q", body.Code, tt.wantCode)
			}
			if body.RequestID == "" {
				t.Fatalf("error body missing request id")
			}
		})
	}
}

func TestErrorStatusPairCreationWins(t *testing.T) {
	err := &core.PairCreationError{PairID: "p", Err: &core.NotFoundError{Entity: "wallet", ID: 1}}
	if status, code := errorStatus(err); status != http.StatusInternalServerError || code != "pair_creation" {
		t.Fatalf("got %d %q", status, code)
	}
}

func TestRateLimitAppliesToWritesOnly(t *testing.T) {
	srv := newTestServer(t, WithRateLimit(ratelimit.Config{RequestsPerMinute: 2}))

	for i := 0; i < 3; i++ {
		rr := do(t, srv, http.MethodGet, "/healthz", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("read %d limited: status=%d", i, rr.Code)
		}
	}

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = do(t, srv, http.MethodPost, "/api/users", `{}`)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third write status=%d, want 429", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After")
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "client-123")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != "client-123" {
		t.Fatalf("request id=%q", got)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff")
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("missing no-store")
	}

	rr = do(t, srv, http.MethodGet, "/healthz?q=<script>", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("suspicious request status=%d", rr.Code)
	}
}
