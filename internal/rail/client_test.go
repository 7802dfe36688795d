package rail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRail struct {
	mu              sync.Mutex
	tokenCalls      int32
	transferCalls   int32
	idempotencyKeys []string
	lastBody        map[string]any
	failFirst       int32
	transferStatus  int
}

func (f *fakeRail) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/transfers", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&f.transferCalls, 1)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		f.mu.Lock()
		f.idempotencyKeys = append(f.idempotencyKeys, r.Header.Get("Idempotency-Key"))
		f.lastBody = nil
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
		f.mu.Unlock()

		if n <= f.failFirst {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if f.transferStatus != 0 {
			w.WriteHeader(f.transferStatus)
			_, _ = w.Write([]byte(`{"code":"ValidationError"}`))
			return
		}
		w.Header().Set("Location", "https://rail.test/transfers/tr-abc")
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/transfers/tr-abc", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["status"] != "cancelled" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/transfers/tr-done", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"InvalidResourceState"}`))
	})
	return mux
}

func newTestClient(url string) Client {
	return New(Config{
		BaseURL:         url,
		ClientID:        "client",
		ClientSecret:    "secret",
		Timeout:         2 * time.Second,
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
	})
}

func TestClient_CreateTransfer(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		fake := &fakeRail{}
		srv := httptest.NewServer(fake.handler(t))
		defer srv.Close()

		ref, err := newTestClient(srv.URL).CreateTransfer(context.Background(), "fs-src", "fs-dst", decimal.RequireFromString("25.5"))
		require.NoError(t, err)
		assert.Equal(t, "tr-abc", ref)

		links := fake.lastBody["_links"].(map[string]any)
		assert.Equal(t, srv.URL+"/funding-sources/fs-src", links["source"].(map[string]any)["href"])
		assert.Equal(t, srv.URL+"/funding-sources/fs-dst", links["destination"].(map[string]any)["href"])
		amount := fake.lastBody["amount"].(map[string]any)
		assert.Equal(t, "25.50", amount["value"])
		assert.Equal(t, "USD", amount["currency"])
	})

	t.Run("RetriesTransientWithSameIdempotencyKey", func(t *testing.T) {
		fake := &fakeRail{failFirst: 2}
		srv := httptest.NewServer(fake.handler(t))
		defer srv.Close()

		ref, err := newTestClient(srv.URL).CreateTransfer(context.Background(), "a", "b", decimal.NewFromInt(10))
		require.NoError(t, err)
		assert.Equal(t, "tr-abc", ref)
		assert.Equal(t, int32(3), atomic.LoadInt32(&fake.transferCalls))
		require.Len(t, fake.idempotencyKeys, 3)
		assert.NotEmpty(t, fake.idempotencyKeys[0])
		assert.Equal(t, fake.idempotencyKeys[0], fake.idempotencyKeys[1])
		assert.Equal(t, fake.idempotencyKeys[0], fake.idempotencyKeys[2])
		assert.Equal(t, int32(1), atomic.LoadInt32(&fake.tokenCalls), "token is cached across attempts")
	})

	t.Run("GivesUpAfterMaxRetries", func(t *testing.T) {
		fake := &fakeRail{failFirst: 100}
		srv := httptest.NewServer(fake.handler(t))
		defer srv.Close()

		_, err := newTestClient(srv.URL).CreateTransfer(context.Background(), "a", "b", decimal.NewFromInt(10))
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
		assert.Equal(t, int32(4), atomic.LoadInt32(&fake.transferCalls))
	})

	t.Run("ClientErrorIsPermanent", func(t *testing.T) {
		fake := &fakeRail{transferStatus: http.StatusBadRequest}
		srv := httptest.NewServer(fake.handler(t))
		defer srv.Close()

		_, err := newTestClient(srv.URL).CreateTransfer(context.Background(), "a", "b", decimal.NewFromInt(10))
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
		assert.False(t, statusErr.Temporary())
		assert.Equal(t, int32(1), atomic.LoadInt32(&fake.transferCalls))
	})
}

func TestClient_CancelTransfer(t *testing.T) {
	fake := &fakeRail{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()
	c := newTestClient(srv.URL)

	t.Run("Success", func(t *testing.T) {
		assert.NoError(t, c.CancelTransfer(context.Background(), "tr-abc"))
	})

	t.Run("AlreadyProcessed", func(t *testing.T) {
		err := c.CancelTransfer(context.Background(), "tr-done")
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusConflict, statusErr.StatusCode)
	})
}

func TestClient_TokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateTransfer(context.Background(), "a", "b", decimal.NewFromInt(1))
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestLastSegment(t *testing.T) {
	assert.Equal(t, "abc", lastSegment("https://api.rail.test/transfers/abc"))
	assert.Equal(t, "abc", lastSegment("https://api.rail.test/transfers/abc/"))
	assert.Equal(t, "abc", lastSegment("abc"))
	assert.Equal(t, "", lastSegment(""))
}
