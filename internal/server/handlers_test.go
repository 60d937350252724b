package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kmadira/ledgerstream/internal/domain"
	"github.com/kmadira/ledgerstream/internal/ledger"
)

type stubPublisher struct {
	published []domain.Transaction
	err       error
}

func (s *stubPublisher) Publish(_ context.Context, tx domain.Transaction) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, tx)
	return nil
}

type stubSummarizer struct {
	snap domain.SummarySnapshot
	err  error
}

func (s *stubSummarizer) GetSummary(context.Context) (domain.SummarySnapshot, error) {
	return s.snap, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(store ledger.Store, pub *stubPublisher, sum *stubSummarizer) http.Handler {
	handlers := NewAPIHandlers(testLogger(), store, pub, sum)
	return NewRouter(testLogger(), RouterDependencies{API: handlers})
}

func TestCreateTransaction(t *testing.T) {
	store := ledger.NewMemoryStore()
	pub := &stubPublisher{}
	router := newTestRouter(store, pub, &stubSummarizer{})

	body := `{"type":"credit","amount":10.50,"status":"successful","payee":"USR-1","recipient":"USR-2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created domain.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected an assigned id")
	}
	if created.Amount != 1050 {
		t.Fatalf("expected 1050 cents, got %d", created.Amount)
	}

	if len(pub.published) != 1 {
		t.Fatalf("expected exactly one published event, got %d", len(pub.published))
	}
	if pub.published[0].ID != created.ID {
		t.Fatalf("published event id %d does not match created id %d", pub.published[0].ID, created.ID)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad kind", `{"type":"wire","amount":10,"status":"pending","payee":"a","recipient":"b"}`},
		{"bad amount", `{"type":"credit","amount":-5,"status":"pending","payee":"a","recipient":"b"}`},
		{"bad status", `{"type":"credit","amount":10,"status":"done","payee":"a","recipient":"b"}`},
		{"same parties", `{"type":"credit","amount":10,"status":"pending","payee":"a","recipient":"a"}`},
		{"missing parties", `{"type":"credit","amount":10,"status":"pending"}`},
		{"not json", `plainly not json`},
		{"sub-cent amount", `{"type":"credit","amount":10.505,"status":"pending","payee":"a","recipient":"b"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := ledger.NewMemoryStore()
			pub := &stubPublisher{}
			router := newTestRouter(store, pub, &stubSummarizer{})

			req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}
			if count, _ := store.CountAll(context.Background()); count != 0 {
				t.Fatal("invalid transaction must not be stored")
			}
			if len(pub.published) != 0 {
				t.Fatal("invalid transaction must not be published")
			}
		})
	}
}

func TestCreateTransactionSurvivesPublishFailure(t *testing.T) {
	store := ledger.NewMemoryStore()
	pub := &stubPublisher{err: domain.ErrBrokerUnavailable}
	router := newTestRouter(store, pub, &stubSummarizer{})

	body := `{"type":"debit","amount":"25.00","status":"pending","payee":"USR-1","recipient":"USR-2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// The commit already happened; a dead broker must not fail the request.
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 despite publish failure, got %d", rec.Code)
	}
	if count, _ := store.CountAll(context.Background()); count != 1 {
		t.Fatalf("expected the transaction to be stored, count=%d", count)
	}
}

func TestGetTransaction(t *testing.T) {
	store := ledger.NewMemoryStore()
	created, err := store.InsertTransaction(context.Background(), domain.Transaction{
		Kind:      domain.KindCredit,
		Amount:    100,
		Status:    domain.StatusSuccessful,
		Payee:     "USR-1",
		Recipient: "USR-2",
		CreatedAt: time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	router := newTestRouter(store, &stubPublisher{}, &stubSummarizer{})

	req := httptest.NewRequest(http.MethodGet, "/api/transactions/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var got domain.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("expected id %d, got %d", created.ID, got.ID)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/transactions/999", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	store := ledger.NewMemoryStore()
	base := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)
	for i, status := range []domain.Status{domain.StatusSuccessful, domain.StatusFailed, domain.StatusFailed} {
		if _, err := store.InsertTransaction(context.Background(), domain.Transaction{
			Kind:      domain.KindCredit,
			Amount:    100,
			Status:    status,
			Payee:     "USR-1",
			Recipient: "USR-2",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	router := newTestRouter(store, &stubPublisher{}, &stubSummarizer{})

	req := httptest.NewRequest(http.MethodGet, "/api/transactions?status=failed", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var txs []domain.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &txs); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 failed transactions, got %d", len(txs))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/transactions?startDate=2026-03-15T09:00:00Z", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for startDate without endDate, got %d", rec.Code)
	}
}

func TestListTransactionsEndDateIsInclusive(t *testing.T) {
	store := ledger.NewMemoryStore()
	boundary := time.Date(2026, time.March, 15, 9, 2, 0, 0, time.UTC)
	for _, offset := range []time.Duration{0, time.Minute, 2 * time.Minute, 3 * time.Minute} {
		if _, err := store.InsertTransaction(context.Background(), domain.Transaction{
			Kind:      domain.KindCredit,
			Amount:    100,
			Status:    domain.StatusSuccessful,
			Payee:     "USR-1",
			Recipient: "USR-2",
			CreatedAt: boundary.Add(offset - 2*time.Minute),
		}); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	router := newTestRouter(store, &stubPublisher{}, &stubSummarizer{})

	// The row stamped exactly at endDate must be returned; the later one not.
	req := httptest.NewRequest(http.MethodGet,
		"/api/transactions?startDate=2026-03-15T09:00:00Z&endDate=2026-03-15T09:02:00Z", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var txs []domain.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &txs); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions through the inclusive endDate, got %d", len(txs))
	}
	for _, tx := range txs {
		if tx.CreatedAt.After(boundary) {
			t.Fatalf("transaction %d past endDate included: %s", tx.ID, tx.CreatedAt)
		}
	}
}

func TestGetSummary(t *testing.T) {
	snap := domain.SummarySnapshot{
		TotalVolume:   3,
		AverageAmount: 2000,
		StatusCount: map[domain.Status]int64{
			domain.StatusSuccessful: 2,
			domain.StatusPending:    1,
			domain.StatusFailed:     0,
		},
		Last30DaysCount:  make([]int64, domain.SummaryWindowDays),
		Last30DaysAmount: make([]domain.Cents, domain.SummaryWindowDays),
	}
	router := newTestRouter(ledger.NewMemoryStore(), &stubPublisher{}, &stubSummarizer{snap: snap})

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	for _, field := range []string{
		"totalVolume", "averageAmount", "statusCount",
		"dailyVolume", "dailyTotalAmount", "monthlyVolume", "monthlyTotalAmount",
		"last30DaysCount", "last30DaysAmount",
	} {
		if _, ok := payload[field]; !ok {
			t.Fatalf("summary response missing field %q", field)
		}
	}

	var counts []int64
	if err := json.Unmarshal(payload["last30DaysCount"], &counts); err != nil {
		t.Fatalf("decode window failed: %v", err)
	}
	if len(counts) != 30 {
		t.Fatalf("expected 30 window entries, got %d", len(counts))
	}
}

func TestGetSummaryFailure(t *testing.T) {
	router := newTestRouter(ledger.NewMemoryStore(), &stubPublisher{}, &stubSummarizer{err: domain.ErrAggregationFailed})

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}

func TestAuthMiddlewareGatesAPI(t *testing.T) {
	handlers := NewAPIHandlers(testLogger(), ledger.NewMemoryStore(), &stubPublisher{}, &stubSummarizer{})
	router := NewRouter(testLogger(), RouterDependencies{
		API: handlers,
		Authenticate: func(r *http.Request) error {
			if r.Header.Get("Authorization") != "Bearer good" {
				return errors.New("bad credential")
			}
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 with credential, got %d", rec.Code)
	}
}

func TestHealthzDegraded(t *testing.T) {
	store := ledger.NewMemoryStore().WithError(errors.New("disk gone"))
	router := NewRouter(testLogger(), RouterDependencies{
		Health: CoreHealthService{Store: store},
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}
