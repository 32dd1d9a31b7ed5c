package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"leilao-scraper/config"
	"leilao-scraper/models"
	"leilao-scraper/services"
	"leilao-scraper/storage"
	"leilao-scraper/utils"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "leilao-scraper",
		Short:        "Collect auction listings from Brazilian auction sites",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newCheckCmd(), newScheduleCmd(), newNormalizeCmd())
	return root
}

// setup loads configuration and a logger at the configured level.
func setup() (*config.Config, *utils.Logger) {
	cfg := config.Load()
	logger := utils.NewLogger()
	logger.SetLevel(utils.ParseLevel(cfg.LogLevel))
	return cfg, logger
}

type runOptions struct {
	category   string
	source     string
	skipUpload bool
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape, normalize and upload one or more categories",
		Long: `Fetches listings from the selected providers, drops invalid and test items,
normalizes titles, removes duplicates, writes a JSON snapshot and upserts the
result into the configured store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, logger := setup()
			return runOnce(ctx, cmd, cfg, logger, opts)
		},
	}
	cmd.Flags().StringVar(&opts.category, "category", "veiculos", "category to scrape (veiculos, tecnologia, bens_consumo, eletrodomesticos or all)")
	cmd.Flags().StringVar(&opts.source, "source", "all", "provider to scrape (all, sodre, megaleiloes, superbid)")
	cmd.Flags().BoolVar(&opts.skipUpload, "skip-upload", false, "write the JSON snapshot only")
	return cmd
}

func runOnce(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *utils.Logger, opts runOptions) error {
	cats, err := parseCategories(opts.category)
	if err != nil {
		return err
	}
	sources, err := parseSources(opts.source)
	if err != nil {
		return err
	}

	var store storage.Upserter
	if !opts.skipUpload {
		if err := cfg.Validate(); err != nil {
			logger.Error("Configuration error: %v", err)
			return err
		}
		store, err = openStore(cfg, logger)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer store.Close()
	}

	runner := &services.Runner{
		Logger:      logger,
		Providers:   buildProviders(ctx, cfg, logger, sources),
		Writer:      storage.NewJSONWriter(cfg.OutputDir),
		Store:       store,
		Concurrency: cfg.MaxConcurrency,
	}

	summaries := services.NewSummaryService(logger)
	for _, cat := range cats {
		logger.Info("=== %s: sources %v ===", cat.Name, sources)
		sum, err := runner.Run(ctx, cat, sources)
		if err != nil {
			return err
		}
		summaries.Print(cmd.OutOrStdout(), sum)
	}
	return nil
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify store connectivity and print row counts per table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := setup()
			if err := cfg.Validate(); err != nil {
				logger.Error("Configuration error: %v", err)
				return err
			}

			store, err := openStore(cfg, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if err := store.Ping(ctx); err != nil {
				return fmt.Errorf("store unreachable: %w", err)
			}
			cmd.Printf("Store (%s) reachable\n", cfg.StoreBackend)

			var errs []error
			for _, cat := range models.AllCategories {
				n, err := store.Count(ctx, cat.Table)
				if err != nil {
					cmd.Printf("  %-18s error: %v\n", cat.Table, err)
					errs = append(errs, err)
					continue
				}
				cmd.Printf("  %-18s %d rows\n", cat.Table, n)
			}
			return errors.Join(errs...)
		},
	}
}

func newScheduleCmd() *cobra.Command {
	var (
		spec string
		opts = runOptions{category: "all", source: "all"}
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run every category on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, logger := setup()
			if spec == "" {
				spec = cfg.ScheduleCron
			}
			if !opts.skipUpload {
				if err := cfg.Validate(); err != nil {
					logger.Error("Configuration error: %v", err)
					return err
				}
			}

			// overlapping ticks are skipped rather than queued
			var running sync.Mutex
			job := func() {
				if !running.TryLock() {
					logger.Warn("[scheduler] Previous run still in progress, skipping tick")
					return
				}
				defer running.Unlock()

				logger.Info("[scheduler] Run started")
				if err := runOnce(ctx, cmd, cfg, logger, opts); err != nil {
					logger.Error("[scheduler] Run failed: %v", err)
				}
				logger.Info("[scheduler] Run complete")
			}

			c := cron.New()
			if _, err := c.AddFunc(spec, job); err != nil {
				return fmt.Errorf("cron.AddFunc: %w", err)
			}
			c.Start()
			logger.Info("[scheduler] Cron started, spec: %s", spec)

			go job()

			<-ctx.Done()
			<-c.Stop().Done()
			running.Lock()
			logger.Info("[scheduler] Cron stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&spec, "cron", "", "cron spec (default SCHEDULE_CRON or \"0 */6 * * *\")")
	cmd.Flags().StringVar(&opts.category, "category", opts.category, "categories to scrape")
	cmd.Flags().StringVar(&opts.source, "source", opts.source, "providers to scrape")
	cmd.Flags().BoolVar(&opts.skipUpload, "skip-upload", false, "write JSON snapshots only")
	return cmd
}

func newNormalizeCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "normalize <title>...",
		Short: "Print the normalized form of listing titles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := models.LookupCategory(category)
			if err != nil {
				return err
			}
			n := services.NewTitleNormalizer(cat)
			for _, title := range args {
				cmd.Printf("%-50q → %s\n", title, n.Normalize(title, nil))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "veiculos", "category whose brand list is used")
	return cmd
}
