package ledger

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T) (*chi.Mux, *memoryLedgerRepo) {
	t.Helper()
	repo := newMemoryLedgerRepo(1, 2, 3)
	handler := NewHandler(newDiscardLogger(), NewService(repo, testConventions(), nil))
	router := chi.NewRouter()
	handler.MountRoutes(router)
	return router, repo
}

func TestPostJournalRejectsMalformedDate(t *testing.T) {
	router, repo := newTestRouter(t)

	body := `{"date":"not-a-date","entries":[{"account_id":1,"debit":500},{"account_id":2,"credit":500}]}`
	req := httptest.NewRequest(http.MethodPost, "/vouchers/journal", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, repo.logs)
}

func TestPostJournalAcceptsDateOnlyFormat(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{"date":"2024-03-10","entries":[{"account_id":1,"debit":500},{"account_id":2,"credit":500}]}`
	req := httptest.NewRequest(http.MethodPost, "/vouchers/journal", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), "JV20240310001")
}

func TestTrialBalanceRejectsMalformedRange(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/reports/trial-balance?from=yesterday", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
