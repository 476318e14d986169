package connectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(retries int) *Fetcher {
	return NewFetcher(NewHTTPClient(2*time.Second), retries, 5*time.Millisecond)
}

func TestGetBytesSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "world-monitor")
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	body, err := newTestFetcher(0).GetBytes(context.Background(), "test", server.URL, "application/json")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(body))
}

func TestGetBytesRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	body, err := newTestFetcher(2).GetBytes(context.Background(), "test", server.URL, "")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetBytesHTTPStatusKind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestFetcher(1).GetBytes(context.Background(), "test", server.URL, "")
	var connErr *ConnectorError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, KindHTTPStatus, connErr.Kind)
	assert.Equal(t, "test", connErr.Source)
}

func TestGetBytesRateLimitedNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestFetcher(3).GetBytes(context.Background(), "test", server.URL, "")
	var connErr *ConnectorError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, KindRateLimited, connErr.Kind)
	assert.Equal(t, int32(1), calls.Load(), "429 must short-circuit the retry loop")
}

func TestGetBytesTimeoutKind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestFetcher(0).GetBytes(ctx, "test", server.URL, "")
	var connErr *ConnectorError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, KindTimeout, connErr.Kind)
}

func TestGetJSONParseKind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	var out map[string]any
	err := newTestFetcher(0).GetJSON(context.Background(), "test", server.URL, &out)
	var connErr *ConnectorError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, KindParse, connErr.Kind)
}
