package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"leilao-scraper/models"
	"leilao-scraper/utils"
)

const maxDiagnostic = 200

// RESTUpserter upserts listings through a PostgREST endpoint (Supabase).
type RESTUpserter struct {
	baseURL string
	key     string
	schema  string
	opts    Options
	client  *http.Client
	logger  *utils.Logger
	now     func() time.Time
}

// NewRESTUpserter creates a client for baseURL (without trailing slash).
// Per-batch deadlines come from opts.Timeout, not from the http.Client.
func NewRESTUpserter(baseURL, key, schema string, opts Options, logger *utils.Logger) *RESTUpserter {
	return &RESTUpserter{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		schema:  schema,
		opts:    opts.withDefaults(),
		client:  &http.Client{},
		logger:  logger,
		now:     time.Now,
	}
}

// Upsert sends listings in batches. A failed batch (timeout, transport error,
// unexpected status) counts all of its records as errors and the remaining
// batches are still attempted.
func (r *RESTUpserter) Upsert(ctx context.Context, table string, listings []*models.Listing) (models.UpsertResult, error) {
	var res models.UpsertResult

	ready, skipped := prepare(listings, r.now())
	res.Skipped = skipped
	if skipped > 0 {
		r.logger.Warn("[store] %d listings without source/external_id not sent", skipped)
	}

	all := batches(ready, r.opts.BatchSize)
	for i, batch := range all {
		if i > 0 {
			if err := utils.Pause(ctx, r.opts.BatchDelay); err != nil {
				for _, rest := range all[i:] {
					res.Errors += len(rest)
				}
				return res, fmt.Errorf("upsert %s interrupted: %w", table, err)
			}
		}

		out, err := r.sendBatch(ctx, table, batch)
		if err != nil {
			r.logger.Error("[store] %s batch %d/%d (%d records): %v", table, i+1, len(all), len(batch), err)
			res.Errors += len(batch)
			continue
		}
		res.Add(out)
		r.logger.Info("[store] %s batch %d/%d: +%d inserted, ~%d updated", table, i+1, len(all), out.Inserted, out.Updated)
	}
	return res, nil
}

func (r *RESTUpserter) sendBatch(ctx context.Context, table string, batch []*models.Listing) (models.UpsertResult, error) {
	body, err := json.Marshal(toRows(batch))
	if err != nil {
		return models.UpsertResult{}, fmt.Errorf("encode batch: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/rest/v1/%s?on_conflict=source,external_id", r.baseURL, table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return models.UpsertResult{}, err
	}
	r.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Profile", r.schema)
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.UpsertResult{}, fmt.Errorf("timeout after %s", r.opts.Timeout)
		}
		return models.UpsertResult{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		_, _ = io.Copy(io.Discard, resp.Body)
		return models.UpsertResult{Updated: len(batch)}, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		_, _ = io.Copy(io.Discard, resp.Body)
		return models.UpsertResult{Inserted: len(batch)}, nil
	default:
		return models.UpsertResult{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, diagnostic(resp.Body))
	}
}

// Count returns the exact number of rows in table.
func (r *RESTUpserter) Count(ctx context.Context, table string) (int, error) {
	url := fmt.Sprintf("%s/rest/v1/%s?select=external_id&limit=1", r.baseURL, table)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	r.setHeaders(req)
	req.Header.Set("Prefer", "count=exact")

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("count %s: HTTP %d: %s", table, resp.StatusCode, diagnostic(resp.Body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return parseContentRange(resp.Header.Get("Content-Range"))
}

// Ping checks that the REST endpoint accepts the configured key.
func (r *RESTUpserter) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/rest/v1/", nil)
	if err != nil {
		return err
	}
	r.setHeaders(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping: HTTP %d: %s", resp.StatusCode, diagnostic(resp.Body))
	}
	return nil
}

func (r *RESTUpserter) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

func (r *RESTUpserter) setHeaders(req *http.Request) {
	req.Header.Set("apikey", r.key)
	req.Header.Set("Authorization", "Bearer "+r.key)
	req.Header.Set("Accept-Profile", r.schema)
}

func diagnostic(body io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(body, maxDiagnostic))
	return strings.TrimSpace(string(b))
}

// parseContentRange reads the total from "0-0/1234" or "*/0".
func parseContentRange(h string) (int, error) {
	i := strings.LastIndex(h, "/")
	if i < 0 {
		return 0, fmt.Errorf("unexpected Content-Range %q", h)
	}
	n, err := strconv.Atoi(h[i+1:])
	if err != nil {
		return 0, fmt.Errorf("unexpected Content-Range %q", h)
	}
	return n, nil
}
