package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markjakearzadon/esewa-gobackend.git/internal/handlers"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/middleware"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/models"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/services"
)

type memStore struct {
	mu   sync.Mutex
	docs map[string]models.Transaction
}

func (m *memStore) Put(ctx context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[tx.TransactionID] = *tx
	return nil
}

func newTestRouter(token string) (http.Handler, *memStore) {
	store := &memStore{docs: make(map[string]models.Transaction)}
	r := New(Deps{
		Esewa:         handlers.NewEsewaHandler(services.NewTransactionService(store)),
		Health:        handlers.NewHealthHandler(nil),
		RateLimiter:   middleware.NewRateLimiter(nil, 10, 0),
		CallbackToken: token,
	})
	return r, store
}

func TestRouter_Routes(t *testing.T) {
	r, store := newTestRouter("")

	req := httptest.NewRequest(http.MethodPost, "/esewa/success", bytes.NewBufferString(`{"transaction_id":"T1","user_id":"U1","amount":100}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, store.docs, "T1")

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "OK", rr.Body.String())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "esewa_callbacks_total")

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_CallbacksArePostOnly(t *testing.T) {
	r, _ := newTestRouter("")

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/esewa/success", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRouter_FareRouteOnlyWhenConfigured(t *testing.T) {
	r, _ := newTestRouter("")

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/rfid/tap", bytes.NewBufferString(`{"uid":"1"}`)))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_CallbackTokenEnforced(t *testing.T) {
	r, store := newTestRouter("s3cret")
	body := `{"transaction_id":"T1","user_id":"U1"}`

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/esewa/failure", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Empty(t, store.docs)

	req := httptest.NewRequest(http.MethodPost, "/esewa/failure", bytes.NewBufferString(body))
	req.Header.Set(middleware.CallbackTokenHeader, "s3cret")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var got map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, map[string]string{"message": "Payment failed", "transaction_id": "T1"}, got)
}
