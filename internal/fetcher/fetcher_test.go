package fetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, maxAttempts int) (*Client, *[]time.Duration) {
	t.Helper()

	var sleeps []time.Duration
	c := New(Options{
		UserAgent:   "test-agent",
		MaxAttempts: maxAttempts,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return c, &sleeps
}

func TestFetchParsesDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept"))
		w.Write([]byte(`<html><head><title>HUUM DROP 4.5 | Bathing Brands</title></head><body><h1>HUUM DROP 4.5</h1></body></html>`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, 3)
	doc, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "HUUM DROP 4.5", doc.Find("h1").Text())
}

func TestFetchRetriesWithExponentialBackoff(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`<html><body><h1>ok</h1></body></html>`))
	}))
	defer srv.Close()

	c, sleeps := newTestClient(t, 3)
	doc, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", doc.Find("h1").Text())
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *sleeps)
}

func TestFetchExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, 3)
	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, srv.URL, fe.URL)
	assert.Equal(t, 3, fe.Attempts)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchNotFoundIsAttemptFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c, _ := newTestClient(t, 2)
	_, err := c.Fetch(context.Background(), srv.URL)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe.Err.Error(), "404")
}

func TestFetchHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Options{MaxAttempts: 3}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fetch(ctx, srv.URL)
	require.Error(t, err)

	var fe *FetchError
	if !errors.As(err, &fe) {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
