package middleware_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/corebank/ledgersvc/internal/adapter/http/middleware"
	"github.com/corebank/ledgersvc/internal/usecase/mocks"
)

func idempotencyHandler(calls *int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(body))
	})
}

func TestIdempotencyFirstCallStoresResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockIdempotencyStore(ctrl)
	ttl := time.Minute

	store.EXPECT().
		CheckAndSet(gomock.Any(), "req-1", gomock.Nil(), ttl).
		Return(false, nil, nil)

	var stored []byte
	store.EXPECT().
		Update(gomock.Any(), "req-1", gomock.Any(), ttl).
		DoAndReturn(func(ctx context.Context, key string, response []byte, d time.Duration) error {
			stored = response
			return nil
		})

	var calls int
	wrapped := middleware.NewIdempotencyMiddleware(store, ttl).Wrap(idempotencyHandler(&calls, `{"id":"txn-1"}`))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader("{}"))
	req.Header.Set(middleware.IdempotencyKeyHeader, "req-1")
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if string(stored) != `{"id":"txn-1"}` {
		t.Errorf("stored response = %q", stored)
	}
}

func TestIdempotencyReplayServesStoredResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockIdempotencyStore(ctrl)
	ttl := time.Minute

	store.EXPECT().
		CheckAndSet(gomock.Any(), "req-1", gomock.Nil(), ttl).
		Return(true, []byte(`{"id":"txn-1"}`), nil)

	var calls int
	wrapped := middleware.NewIdempotencyMiddleware(store, ttl).Wrap(idempotencyHandler(&calls, "unreachable"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader("{}"))
	req.Header.Set(middleware.IdempotencyKeyHeader, "req-1")
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	if calls != 0 {
		t.Fatal("replayed request must not reach the handler")
	}
	if rec.Header().Get("X-Idempotency-Replay") != "true" {
		t.Error("expected replay header")
	}

	body, _ := io.ReadAll(rec.Body)
	if string(body) != `{"id":"txn-1"}` {
		t.Errorf("body = %q, want stored response", body)
	}
}

func TestIdempotencyStoreFailureRejectsRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockIdempotencyStore(ctrl)

	store.EXPECT().
		CheckAndSet(gomock.Any(), "req-1", gomock.Nil(), gomock.Any()).
		Return(false, nil, io.ErrUnexpectedEOF)

	var calls int
	wrapped := middleware.NewIdempotencyMiddleware(store, 0).Wrap(idempotencyHandler(&calls, "unreachable"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader("{}"))
	req.Header.Set(middleware.IdempotencyKeyHeader, "req-1")
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	if calls != 0 {
		t.Fatal("request must not reach the handler when the store fails")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestIdempotencyBypassesReadsAndMissingKeys(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockIdempotencyStore(ctrl)

	var calls int
	wrapped := middleware.NewIdempotencyMiddleware(store, time.Minute).Wrap(idempotencyHandler(&calls, "ok"))

	// GET with a key and POST without one both skip the store entirely.
	get := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/txn-1", nil)
	get.Header.Set(middleware.IdempotencyKeyHeader, "req-1")
	wrapped.ServeHTTP(httptest.NewRecorder(), get)

	post := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader("{}"))
	wrapped.ServeHTTP(httptest.NewRecorder(), post)

	if calls != 2 {
		t.Fatalf("handler calls = %d, want 2", calls)
	}
}
