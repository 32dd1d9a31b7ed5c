package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leilao-scraper/utils"
)

func testSession() *Session {
	return NewSession(SessionConfig{
		MaxRetries:    3,
		RetryDelay:    time.Millisecond,
		RateLimitWait: time.Millisecond,
		Timeout:       2 * time.Second,
		Logger:        utils.Discard(),
	})
}

func TestGetJSONRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"ok": true}`)
	}))
	defer srv.Close()

	var out struct{ OK bool }
	err := testSession().GetJSON(context.Background(), srv.URL, nil, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGetJSONGivesUpAfterBudget(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, strings.Repeat("slow down ", 100))
	}))
	defer srv.Close()

	err := testSession().GetJSON(context.Background(), srv.URL, nil, &struct{}{})
	require.Error(t, err)
	assert.EqualValues(t, 3, calls.Load())

	var he *HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusTooManyRequests, he.StatusCode)
	assert.LessOrEqual(t, len(he.Body), maxErrorBody)
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	err := testSession().GetJSON(context.Background(), srv.URL, nil, &struct{}{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := testSession().GetJSON(context.Background(), srv.URL, nil, &struct{}{})
	assert.ErrorIs(t, err, utils.ErrPermanent)
	assert.EqualValues(t, 1, calls.Load())
}

func TestPostJSONSendsBodyAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Contains(t, r.Header.Get("Accept-Language"), "pt-BR")
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 200, body["from"])
		_, _ = io.WriteString(w, `{"results": [1, 2]}`)
	}))
	defer srv.Close()

	var out struct{ Results []int }
	err := testSession().PostJSON(context.Background(), srv.URL, map[string]int{"from": 200}, &out)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, out.Results)
}

func TestBrotliBodyIsDecoded(t *testing.T) {
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	_, _ = bw.Write([]byte(`{"offers": ["a"]}`))
	require.NoError(t, bw.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept-Encoding"), "br")
		w.Header().Set("Content-Encoding", "br")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	var out struct{ Offers []string }
	require.NoError(t, testSession().GetJSON(context.Background(), srv.URL, nil, &out))
	assert.Equal(t, []string{"a"}, out.Offers)
}

func TestCookiesPersistAcrossRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			return
		}
		c, err := r.Cookie("session")
		if err != nil || c.Value != "abc" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	s := testSession()
	s.Warmup(context.Background(), srv.URL+"/")
	assert.NoError(t, s.GetJSON(context.Background(), srv.URL+"/api", url.Values{"page": {"1"}}, &struct{}{}))
}

func TestRateLimiterSpacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	s := NewSession(SessionConfig{RateLimit: 50 * time.Millisecond, Logger: utils.Discard()})
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.GetJSON(context.Background(), srv.URL, nil, nil))
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 7*time.Second, retryAfter("7"))
	assert.Equal(t, time.Duration(0), retryAfter(""))
	assert.Equal(t, time.Duration(0), retryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}

func TestToHTTPCookiesFiltersForeignDomains(t *testing.T) {
	in := []*network.Cookie{
		{Name: "a", Value: "1", Domain: ".sodresantoro.com.br", Path: "/", Expires: 1893456000},
		{Name: "b", Value: "2", Domain: "www.sodresantoro.com.br", Path: "/"},
		{Name: "c", Value: "3", Domain: ".google.com", Path: "/"},
	}
	out := toHTTPCookies(in, "www.sodresantoro.com.br")

	require.Len(t, out, 2)
	assert.Equal(t, "sodresantoro.com.br", out[0].Domain)
	assert.Equal(t, int64(1893456000), out[0].Expires.Unix())
	assert.True(t, out[1].Expires.IsZero())
}

func TestFindChromeBinaryPrefersConfigured(t *testing.T) {
	assert.Equal(t, "/opt/chrome", findChromeBinary("/opt/chrome"))
}
