package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kharcha/internal/core"
	"kharcha/internal/identity"
	"kharcha/internal/ledger/memory"
	"kharcha/internal/log"
	"kharcha/internal/services"
)

const testSecret = "s3cret"

type testEnv struct {
	srv   *Server
	store *memory.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	srv := NewServer(Options{
		Addr:          ":0",
		Ledger:        services.NewLedgerService(store, nil, false),
		Reports:       services.NewReportService(store, services.ReportOptions{DefaultColor: "#94a3b8"}),
		Resolver:      identity.NewResolver(store),
		Syncer:        identity.NewSyncer(store),
		WebhookSecret: testSecret,
		Logger:        log.New(log.Config{Output: io.Discard}),
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: store}
}

func (e *testEnv) provision(t *testing.T, external string) core.User {
	t.Helper()
	u, err := e.store.UpsertUserByExternalID(context.Background(), core.User{ExternalID: external})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	return u
}

func (e *testEnv) do(t *testing.T, method, path, externalID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if externalID != "" {
		req.Header.Set(UserIDHeader, externalID)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK || decode[map[string]any](t, rr)["status"] != "ok" {
		t.Fatalf("healthz: %d %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers missing")
	}

	rr = env.do(t, http.MethodGet, "/metrics", "", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "http_requests_total 1") {
		t.Fatalf("metrics: %d %s", rr.Code, rr.Body.String())
	}
}

func TestIdentityErrors(t *testing.T) {
	env := newTestEnv(t)

	if rr := env.do(t, http.MethodGet, "/api/dashboard", "", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/api/dashboard", "ghost", nil); rr.Code != http.StatusForbidden {
		t.Fatalf("unprovisioned: %d", rr.Code)
	}
}

func TestCreateTransactionAndReports(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "ext-a")

	rr := env.do(t, http.MethodPost, "/api/categories", "ext-a", map[string]string{"name": "Food", "color_hex": "#ff0000"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create category: %d %s", rr.Code, rr.Body.String())
	}
	food := decode[categoryDTO](t, rr)

	for _, body := range []map[string]any{
		{"amount": "100.50", "payment_method": "CASH", "spending_date": "2025-03-01", "category_id": food.ID},
		{"amount": 250.25, "payment_method": "UPI_PHONE", "spending_date": "2025-03-15", "contact_identifier": "9876543210"},
		{"amount": "49.25", "payment_method": "upi_qr", "spending_date": "2025-03-31", "qr_payload": "upi://pay?pa=shop@okaxis&pn=Shop"},
	} {
		rr := env.do(t, http.MethodPost, "/api/transactions", "ext-a", body)
		if rr.Code != http.StatusCreated {
			t.Fatalf("create transaction: %d %s", rr.Code, rr.Body.String())
		}
		got := decode[transactionDTO](t, rr)
		if got.PaymentMethod == string(core.UPIQR) && (got.ContactIdentifier != "shop@okaxis" || !strings.Contains(got.PaymentLink, "pa=shop%40okaxis")) {
			t.Fatalf("QR payee not extracted: %+v", got)
		}
		if got.PaymentMethod == string(core.Cash) && got.PaymentLink != "" {
			t.Fatalf("cash must not carry a payment link: %+v", got)
		}
	}

	rr = env.do(t, http.MethodGet, "/api/spending?month=2025-03", "ext-a", nil)
	if s := decode[spendingDTO](t, rr); rr.Code != http.StatusOK || s.Total != "400.00" {
		t.Fatalf("spending: %d %+v", rr.Code, s)
	}

	rr = env.do(t, http.MethodGet, "/api/spending/categories?month=2025-03&limit=1", "ext-a", nil)
	rows := decode[[]categorySpendingDTO](t, rr)
	if len(rows) != 1 || rows[0].Name != core.UncategorizedLabel || rows[0].Amount != "299.50" || rows[0].ColorHex != core.PaletteColor(0) {
		t.Fatalf("category ranking: %+v", rows)
	}

	rr = env.do(t, http.MethodGet, "/api/dashboard?month=2025-03", "ext-a", nil)
	d := decode[dashboardDTO](t, rr)
	if d.Total != "400.00" || len(d.ByCategory) != 2 || len(d.Recent) != 1 || d.Budget.Configured || d.Budget.Budget != nil {
		t.Fatalf("dashboard: %+v", d)
	}

	rr = env.do(t, http.MethodGet, "/api/transactions?month=2025-03&category=", "ext-a", nil)
	if txs := decode[[]transactionDTO](t, rr); len(txs) != 2 {
		t.Fatalf("uncategorized filter: %+v", txs)
	}
	rr = env.do(t, http.MethodGet, "/api/transactions/recent?method=CASH", "ext-a", nil)
	if txs := decode[[]transactionDTO](t, rr); len(txs) != 1 || txs[0].Amount != "100.50" {
		t.Fatalf("recent cash: %+v", txs)
	}
}

func TestBudgetStatus(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "ext-a")

	rr := env.do(t, http.MethodPost, "/api/transactions", "ext-a", map[string]any{
		"amount": "1200", "payment_method": "CASH", "spending_date": "2025-04-10",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	for i := 0; i < 2; i++ {
		rr = env.do(t, http.MethodPut, "/api/budgets/monthly", "ext-a", map[string]any{"month": "2025-04", "amount": "1000"})
		if rr.Code != http.StatusOK {
			t.Fatalf("upsert budget: %d %s", rr.Code, rr.Body.String())
		}
	}
	if n := env.store.BudgetCount(); n != 1 {
		t.Fatalf("budget rows = %d, want 1", n)
	}

	rr = env.do(t, http.MethodGet, "/api/budgets/status?month=2025-04", "ext-a", nil)
	st := decode[budgetStatusesDTO](t, rr)
	m := st.Monthly
	if !m.Configured || m.Budget == nil || *m.Budget != "1000.00" || m.Overspent != "200.00" || m.Remaining != "0.00" || m.PercentConsumed != 100 {
		t.Fatalf("monthly status: %+v", m)
	}
}

func TestForeignMutationsAffectNothing(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "ext-a")
	env.provision(t, "ext-b")

	rr := env.do(t, http.MethodPost, "/api/transactions", "ext-b", map[string]any{
		"amount": "10", "payment_method": "CASH", "spending_date": "2025-01-05",
	})
	tx := decode[transactionDTO](t, rr)

	rr = env.do(t, http.MethodDelete, "/api/transactions/"+tx.ID, "ext-a", nil)
	if rr.Code != http.StatusOK || decode[affectedResponse](t, rr).Affected != 0 {
		t.Fatalf("foreign delete: %d %s", rr.Code, rr.Body.String())
	}
	rr = env.do(t, http.MethodPatch, "/api/transactions/"+tx.ID, "ext-a", map[string]any{"amount": "1"})
	if rr.Code != http.StatusOK || decode[affectedResponse](t, rr).Affected != 0 {
		t.Fatalf("foreign update: %d %s", rr.Code, rr.Body.String())
	}
	rr = env.do(t, http.MethodDelete, "/api/transactions/"+tx.ID, "ext-b", nil)
	if decode[affectedResponse](t, rr).Affected != 1 {
		t.Fatalf("owner delete: %s", rr.Body.String())
	}
}

func TestValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "ext-a")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"bad month", http.MethodGet, "/api/spending?month=2025-13", nil},
		{"bad limit", http.MethodGet, "/api/spending/categories?limit=-1", nil},
		{"bad method", http.MethodGet, "/api/transactions/recent?method=CHEQUE", nil},
		{"malformed body", http.MethodPost, "/api/transactions", "{"},
		{"unknown field", http.MethodPost, "/api/categories", `{"name":"x","colour":"#fff"}`},
		{"zero amount", http.MethodPost, "/api/transactions", map[string]any{"amount": "0", "payment_method": "CASH", "spending_date": "2025-01-01"}},
		{"upi without contact", http.MethodPost, "/api/transactions", map[string]any{"amount": "5", "payment_method": "UPI_PHONE", "spending_date": "2025-01-01"}},
		{"bad date", http.MethodPost, "/api/transactions", map[string]any{"amount": "5", "payment_method": "CASH", "spending_date": "01/01/2025"}},
		{"foreign category", http.MethodPost, "/api/transactions", map[string]any{"amount": "5", "payment_method": "CASH", "spending_date": "2025-01-01", "category_id": "nope"}},
		{"bad color", http.MethodPost, "/api/categories", map[string]string{"name": "Bills", "color_hex": "red"}},
		{"budget month", http.MethodPut, "/api/budgets/monthly", map[string]any{"month": "2025-4", "amount": "10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, tt.method, tt.path, "ext-a", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (%s)", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestIdentityWebhook(t *testing.T) {
	env := newTestEnv(t)
	payload := `{"type":"user.created","object":"event","data":{"id":"ext-new","email_addresses":[{"email_address":"new@example.com"}],"first_name":"Asha"}}`

	req := httptest.NewRequest(http.MethodPost, "/webhooks/identity", strings.NewReader(payload))
	req.Header.Set(WebhookSecretHeader, "wrong")
	rr := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/webhooks/identity", strings.NewReader(payload))
	req.Header.Set(WebhookSecretHeader, testSecret)
	rr = httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("webhook: %d %s", rr.Code, rr.Body.String())
	}

	if rr := env.do(t, http.MethodGet, "/api/categories", "ext-new", nil); rr.Code != http.StatusOK {
		t.Fatalf("provisioned user rejected: %d", rr.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrUnauthorized, http.StatusUnauthorized},
		{core.ErrUserNotProvisioned, http.StatusForbidden},
		{core.ErrInvalidMonthKey, http.StatusBadRequest},
		{core.ErrMissingContact, http.StatusBadRequest},
		{errMalformedBody, http.StatusBadRequest},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
