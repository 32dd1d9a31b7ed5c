package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"leilao-scraper/utils"
)

// BrowserWarmup loads each page in headless Chrome and copies the cookies it
// ends up with into the session jar. Some providers only answer API calls
// that carry cookies set by their anti-bot JavaScript.
func BrowserWarmup(ctx context.Context, s *Session, chromeBin string, logger *utils.Logger, pages ...string) error {
	bin := findChromeBinary(chromeBin)
	logger.Info("[browser] Using browser binary: %s", bin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(userAgent),
	)
	if bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	var failed []string
	for _, page := range pages {
		n, err := copyCookies(allocCtx, s, page)
		if err != nil {
			logger.Warn("[browser] Warm-up of %s failed: %v", page, err)
			failed = append(failed, page)
			continue
		}
		logger.Info("[browser] %d cookies captured from %s", n, page)
	}

	if len(failed) == len(pages) && len(pages) > 0 {
		return fmt.Errorf("browser warm-up failed for all %d pages", len(pages))
	}
	return nil
}

func copyCookies(allocCtx context.Context, s *Session, page string) (int, error) {
	u, err := url.Parse(page)
	if err != nil {
		return 0, err
	}

	// Suppress chromedp log noise
	ctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, 60*time.Second)
	defer cancelTimeout()

	var cookies []*network.Cookie
	err = chromedp.Run(ctx,
		chromedp.Navigate(page),
		chromedp.Sleep(3*time.Second),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("chromedp: %w", err)
	}

	jarCookies := toHTTPCookies(cookies, u.Hostname())
	s.Jar().SetCookies(u, jarCookies)
	return len(jarCookies), nil
}

// toHTTPCookies keeps the cookies that belong to host or one of its parent
// domains; the jar would drop the others anyway.
func toHTTPCookies(in []*network.Cookie, host string) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(in))
	for _, c := range in {
		domain := strings.TrimPrefix(c.Domain, ".")
		if domain != "" && host != domain && !strings.HasSuffix(host, "."+domain) {
			continue
		}
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   domain,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		if c.Expires > 0 {
			hc.Expires = time.Unix(int64(c.Expires), 0)
		}
		out = append(out, hc)
	}
	return out
}

// findChromeBinary locates a Chrome/Chromium binary, preferring the
// configured one.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
