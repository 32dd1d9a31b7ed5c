// Package scraper holds the fetch layer shared by all auction providers: an
// injected Session owning cookies, request spacing and the retry budget.
package scraper

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"leilao-scraper/models"
	"leilao-scraper/utils"
)

const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxErrorBody   = 200
	defaultBackoff = 20 * time.Second
)

// ErrNotFound is returned for 404 responses. Paginated providers treat it as
// the end of a listing, not as a failure.
var ErrNotFound = errors.New("not found")

// HTTPError is a non-2xx response. Body is truncated for logging.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode >= 500
}

// Provider fetches the raw payloads of one auction site for a category.
// A provider returns whatever it collected before an error, together with
// that error.
type Provider interface {
	Source() models.Source
	Fetch(ctx context.Context, cat models.Category) ([]models.RawPayload, error)
}

// SessionConfig configures a Session.
type SessionConfig struct {
	RateLimit  time.Duration // minimum spacing between requests
	MaxRetries int
	RetryDelay time.Duration // linear backoff step
	// RateLimitWait is the pause after a 429 without Retry-After.
	RateLimitWait time.Duration
	Timeout       time.Duration
	Logger        *utils.Logger
	Transport     http.RoundTripper
}

// Session is the scoped fetch context of one provider: cookie jar, rate
// limiter and retry budget. It is safe for concurrent use but is meant to be
// owned by a single provider.
type Session struct {
	client  *http.Client
	limiter *rate.Limiter
	retry   *utils.RetryConfig
	logger  *utils.Logger
	header  http.Header
}

// NewSession creates a Session with its own cookie jar.
func NewSession(cfg SessionConfig) *Session {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Every(cfg.RateLimit)
	}
	if cfg.RateLimitWait <= 0 {
		cfg.RateLimitWait = defaultBackoff
	}
	if cfg.Logger == nil {
		cfg.Logger = utils.Discard()
	}

	header := make(http.Header)
	header.Set("User-Agent", userAgent)
	header.Set("Accept", "application/json, text/plain, */*")
	header.Set("Accept-Language", "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7")
	header.Set("Accept-Encoding", "gzip, br")

	rateLimitWait := cfg.RateLimitWait
	return &Session{
		client: &http.Client{
			Jar:       jar,
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		limiter: rate.NewLimiter(limit, 1),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryDelay,
			Logger:      cfg.Logger,
			Wait: func(err error) time.Duration {
				var he *HTTPError
				if !errors.As(err, &he) {
					return 0
				}
				if he.RetryAfter > 0 {
					return he.RetryAfter
				}
				if he.StatusCode == http.StatusTooManyRequests {
					return rateLimitWait
				}
				return 0
			},
		},
		logger: cfg.Logger,
		header: header,
	}
}

// Jar exposes the cookie jar so a browser warm-up can seed it.
func (s *Session) Jar() http.CookieJar {
	return s.client.Jar
}

// Warmup visits pages to collect session cookies. Failures are logged only:
// many endpoints answer without cookies.
func (s *Session) Warmup(ctx context.Context, pages ...string) {
	for _, page := range pages {
		err := s.send(ctx, http.MethodGet, page, nil, nil)
		if err != nil {
			s.logger.Warn("[session] Warm-up of %s failed: %v", page, err)
			continue
		}
		if u, err := url.Parse(page); err == nil {
			s.logger.Debug("[session] %d cookies for %s", len(s.client.Jar.Cookies(u)), u.Host)
		}
	}
}

// GetJSON fetches rawURL with query and decodes the JSON body into out.
func (s *Session) GetJSON(ctx context.Context, rawURL string, query url.Values, out any) error {
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL += sep + query.Encode()
	}
	return s.retry.Do(ctx, "GET "+rawURL, func() error {
		return s.send(ctx, http.MethodGet, rawURL, nil, out)
	})
}

// PostJSON sends body as JSON and decodes the JSON response into out.
func (s *Session) PostJSON(ctx context.Context, rawURL string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return s.retry.Do(ctx, "POST "+rawURL, func() error {
		return s.send(ctx, http.MethodPost, rawURL, payload, out)
	})
}

// send performs a single attempt. Errors that must not be retried are
// wrapped with utils.Permanent.
func (s *Session) send(ctx context.Context, method, rawURL string, payload []byte, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return utils.Permanent(err)
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return utils.Permanent(err)
	}
	for k, v := range s.header {
		req.Header[k] = v
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return utils.Permanent(ctx.Err())
		}
		return err
	}
	defer resp.Body.Close()

	reader, err := decodedBody(resp)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, reader)
		return utils.Permanent(fmt.Errorf("%s %s: %w", method, rawURL, ErrNotFound))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(reader, maxErrorBody))
		he := &HTTPError{
			Method:     method,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
		}
		if !he.Retryable() {
			return utils.Permanent(he)
		}
		return he
	}

	if out == nil {
		_, err = io.Copy(io.Discard, reader)
		return err
	}
	if err := json.NewDecoder(reader).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

// decodedBody unwraps gzip and brotli bodies. Setting Accept-Encoding
// ourselves disables the transport's transparent gzip handling.
func decodedBody(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		return brotli.NewReader(resp.Body), nil
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		return zr, nil
	default:
		return resp.Body, nil
	}
}

// retryAfter parses the delay-seconds form of Retry-After.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
