package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"leilao-scraper/models"
	"leilao-scraper/utils"
)

// PostgresUpserter upserts listings directly into PostgreSQL.
type PostgresUpserter struct {
	db     *sql.DB
	schema string
	opts   Options
	logger *utils.Logger
	now    func() time.Time

	mu       sync.Mutex
	migrated map[string]bool
}

// NewPostgresUpserter opens a connection to PostgreSQL and waits for it to
// accept connections. Tables are created on first use.
func NewPostgresUpserter(dsn, schema string, opts Options, logger *utils.Logger) (*PostgresUpserter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	return &PostgresUpserter{
		db:       db,
		schema:   schema,
		opts:     opts.withDefaults(),
		logger:   logger,
		now:      time.Now,
		migrated: make(map[string]bool),
	}, nil
}

func (pw *PostgresUpserter) qualified(table string) string {
	if pw.schema == "" {
		return pq.QuoteIdentifier(table)
	}
	return pq.QuoteIdentifier(pw.schema) + "." + pq.QuoteIdentifier(table)
}

func (pw *PostgresUpserter) migrate(ctx context.Context, table string) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	if pw.migrated[table] {
		return nil
	}

	if pw.schema != "" {
		if _, err := pw.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+pq.QuoteIdentifier(pw.schema)); err != nil {
			return err
		}
	}
	if _, err := pw.db.ExecContext(ctx, createTableSQL(pw.qualified(table), table)); err != nil {
		return err
	}
	pw.migrated[table] = true
	return nil
}

func createTableSQL(qualified, table string) string {
	idx := func(col string) string {
		return pq.QuoteIdentifier("idx_" + table + "_" + col)
	}
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id                  BIGSERIAL PRIMARY KEY,
			source              VARCHAR(50)   NOT NULL,
			external_id         TEXT          NOT NULL,
			title               VARCHAR(255)  NOT NULL,
			normalized_title    TEXT          NOT NULL DEFAULT '',
			value               NUMERIC(14,2),
			value_text          TEXT,
			city                TEXT,
			state               CHAR(2),
			address             TEXT,
			auction_date        TIMESTAMPTZ,
			days_remaining      INTEGER,
			auction_type        TEXT          NOT NULL DEFAULT '',
			auction_name        TEXT,
			store_name          TEXT,
			lot_number          TEXT,
			description         TEXT,
			description_preview VARCHAR(255),
			total_visits        INTEGER       NOT NULL DEFAULT 0,
			total_bids          INTEGER       NOT NULL DEFAULT 0,
			total_bidders       INTEGER       NOT NULL DEFAULT 0,
			link                TEXT,
			metadata            JSONB         NOT NULL DEFAULT '{}',
			is_active           BOOLEAN       NOT NULL DEFAULT TRUE,
			last_scraped_at     TIMESTAMPTZ,
			created_at          TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
			UNIQUE (source, external_id)
		);

		CREATE INDEX IF NOT EXISTS %[2]s ON %[1]s(state);
		CREATE INDEX IF NOT EXISTS %[3]s ON %[1]s(auction_date);
		CREATE INDEX IF NOT EXISTS %[4]s ON %[1]s(value);
	`, qualified, idx("state"), idx("auction_date"), idx("value"))
}

// Upsert writes listings in batches, one transaction per batch. A failed
// batch is rolled back and counted as errors; later batches still run.
func (pw *PostgresUpserter) Upsert(ctx context.Context, table string, listings []*models.Listing) (models.UpsertResult, error) {
	var res models.UpsertResult

	ready, skipped := prepare(listings, pw.now())
	res.Skipped = skipped
	if skipped > 0 {
		pw.logger.Warn("[store] %d listings without source/external_id not sent", skipped)
	}
	if len(ready) == 0 {
		return res, nil
	}

	if err := pw.migrate(ctx, table); err != nil {
		res.Errors = len(ready)
		return res, fmt.Errorf("postgres: migrate %s: %w", table, err)
	}

	all := batches(ready, pw.opts.BatchSize)
	for i, batch := range all {
		if i > 0 {
			if err := utils.Pause(ctx, pw.opts.BatchDelay); err != nil {
				for _, rest := range all[i:] {
					res.Errors += len(rest)
				}
				return res, fmt.Errorf("upsert %s interrupted: %w", table, err)
			}
		}

		out, err := pw.upsertBatch(ctx, table, batch)
		if err != nil {
			pw.logger.Error("[store] %s batch %d/%d (%d records): %v", table, i+1, len(all), len(batch), err)
			res.Errors += len(batch)
			continue
		}
		res.Add(out)
	}
	return res, nil
}

func (pw *PostgresUpserter) upsertBatch(ctx context.Context, table string, batch []*models.Listing) (models.UpsertResult, error) {
	ctx, cancel := context.WithTimeout(ctx, pw.opts.Timeout)
	defer cancel()

	query, args, err := buildUpsert(pw.qualified(table), batch)
	if err != nil {
		return models.UpsertResult{}, err
	}

	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return models.UpsertResult{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return models.UpsertResult{}, err
	}

	var out models.UpsertResult
	for rows.Next() {
		var inserted bool
		if err := rows.Scan(&inserted); err != nil {
			rows.Close()
			return models.UpsertResult{}, fmt.Errorf("scan: %w", err)
		}
		if inserted {
			out.Inserted++
		} else {
			out.Updated++
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.UpsertResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.UpsertResult{}, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

// buildUpsert renders a multi-row INSERT … ON CONFLICT DO UPDATE. The
// RETURNING clause tells inserted rows (xmax = 0) from updated ones.
func buildUpsert(qualified string, batch []*models.Listing) (string, []any, error) {
	n := len(columns)
	valueStrings := make([]string, 0, len(batch))
	args := make([]any, 0, len(batch)*n)

	for i, l := range batch {
		r := toRow(l)
		if r.Metadata == nil {
			r.Metadata = map[string]any{}
		}
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return "", nil, fmt.Errorf("encode metadata of %s: %w", r.ExternalID, err)
		}

		ph := make([]string, n)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", i*n+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")

		args = append(args,
			r.Source, r.ExternalID, r.Title, r.NormalizedTitle, r.Value, r.ValueText,
			r.City, r.State, r.Address, r.AuctionDate, r.DaysRemaining, r.AuctionType,
			r.AuctionName, r.StoreName, r.LotNumber, r.Description, r.DescriptionPreview,
			r.TotalVisits, r.TotalBids, r.TotalBidders, r.Link, string(meta), r.IsActive,
			r.LastScrapedAt,
		)
	}

	updates := make([]string, 0, n-2)
	for _, c := range columns[2:] {
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES %s
		ON CONFLICT (source, external_id) DO UPDATE SET %s
		RETURNING (xmax = 0) AS inserted
	`, qualified, strings.Join(columns, ", "), strings.Join(valueStrings, ","), strings.Join(updates, ", "))

	return query, args, nil
}

// Count returns the number of rows in table.
func (pw *PostgresUpserter) Count(ctx context.Context, table string) (int, error) {
	var n int
	err := pw.db.QueryRowContext(ctx, "SELECT count(*) FROM "+pw.qualified(table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count %s: %w", table, err)
	}
	return n, nil
}

func (pw *PostgresUpserter) Ping(ctx context.Context) error {
	return pw.db.PingContext(ctx)
}

func (pw *PostgresUpserter) Close() error {
	return pw.db.Close()
}
