package connector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(t *testing.T, url string) *HTTPSink {
	t.Helper()
	sink, err := NewHTTPSink(HTTPSinkConfig{
		URL:          url,
		MaxRetries:   3,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	return sink
}

func TestDeliverSendsIdempotencyKey(t *testing.T) {
	var gotKey, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := newTestSink(t, srv.URL)
	err := sink.Deliver(context.Background(), "run-1", "msg-1", []byte(`{"ok":true}`))
	require.NoError(t, err)
	assert.Equal(t, "run-1-msg-1", gotKey)
	assert.Equal(t, `{"ok":true}`, gotBody)
}

func TestDeliverRetriesTransientWithSameKey(t *testing.T) {
	var mu sync.Mutex
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		n := len(keys)
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := newTestSink(t, srv.URL)
	err := sink.Deliver(context.Background(), "run-1", "msg-1", []byte(`{}`))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, keys, 3)
	for _, k := range keys {
		assert.Equal(t, "run-1-msg-1", k)
	}
}

func TestDeliverNonRetryableRejection(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	sink := newTestSink(t, srv.URL)
	err := sink.Deliver(context.Background(), "run-1", "msg-1", []byte(`{}`))
	assert.True(t, errdefs.IsNonRetryable(err))
	assert.Equal(t, 1, calls)
}

func TestDeliverExhaustedRetriesIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sink := newTestSink(t, srv.URL)
	err := sink.Deliver(context.Background(), "run-1", "msg-1", []byte(`{}`))
	assert.True(t, errdefs.IsTransient(err))
}
