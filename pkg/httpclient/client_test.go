package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookerybooks/bookery/pkg/errcodes"
)

func TestGet(t *testing.T) {
	t.Run("returns body on success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "bookery/dev", r.Header.Get("User-Agent"))
			w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		c := New(Options{RetryDelay: time.Millisecond})
		body, err := c.Get(context.Background(), srv.URL, nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(body))
	})

	t.Run("encodes query parameters", func(t *testing.T) {
		var gotQuery url.Values
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c := New(Options{RetryDelay: time.Millisecond})
		_, err := c.Get(context.Background(), srv.URL, url.Values{
			"title": {"The Templar Legacy"},
			"limit": {"5"},
		})
		require.NoError(t, err)
		assert.Equal(t, "The Templar Legacy", gotQuery.Get("title"))
		assert.Equal(t, "5", gotQuery.Get("limit"))
	})

	t.Run("retries transient failures", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		c := New(Options{MaxRetries: 3, RetryDelay: time.Millisecond})
		body, err := c.Get(context.Background(), srv.URL, nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(body))
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("non-retryable status fails immediately", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		c := New(Options{MaxRetries: 3, RetryDelay: time.Millisecond})
		_, err := c.Get(context.Background(), srv.URL, nil)
		require.Error(t, err)
		assert.True(t, errcodes.IsKind(err, errcodes.KindFetch))
		assert.Contains(t, err.Error(), "HTTP 404 from")
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("exhausted retries report attempt count", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := New(Options{MaxRetries: 1, RetryDelay: time.Millisecond})
		_, err := c.Get(context.Background(), srv.URL, nil)
		require.Error(t, err)
		assert.True(t, errcodes.IsKind(err, errcodes.KindFetch))
		assert.Contains(t, err.Error(), "HTTP 500 from")
		assert.Contains(t, err.Error(), "after 2 attempts")
	})

	t.Run("network failure is a fetch error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		c := New(Options{RetryDelay: time.Millisecond})
		_, err := c.Get(context.Background(), srv.URL, nil)
		require.Error(t, err)
		assert.True(t, errcodes.IsKind(err, errcodes.KindFetch))
		assert.Contains(t, err.Error(), "Request failed:")
	})

	t.Run("cancelled context is a fetch error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := New(Options{RetryDelay: time.Millisecond})
		_, err := c.Get(ctx, srv.URL, nil)
		require.Error(t, err)
		assert.True(t, errcodes.IsKind(err, errcodes.KindFetch))
	})
}
