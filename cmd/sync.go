package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/luz-active/catalog-cli/internal/bulk"
	"github.com/luz-active/catalog-cli/internal/identity"
	"github.com/luz-active/catalog-cli/internal/model"
	"github.com/luz-active/catalog-cli/internal/reconcile"
	"github.com/luz-active/catalog-cli/internal/scrape"
	"github.com/luz-active/catalog-cli/internal/skiplog"
	"github.com/luz-active/catalog-cli/internal/source"
	"github.com/luz-active/catalog-cli/pkg/shopify"
)

var syncDryRun bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Scrape the source site and push the catalog to Shopify",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		run, err := st.CreateRun(ctx, model.RunKindSync)
		if err != nil {
			return eris.Wrap(err, "record run")
		}

		summary, syncErr := runSync(ctx)

		status := model.RunStatusComplete
		if syncErr != nil {
			status = model.RunStatusFailed
		}
		if err := st.CompleteRun(ctx, run.ID, status, summary); err != nil {
			zap.L().Error("record run completion failed", zap.Error(err))
		}
		if syncErr != nil {
			return syncErr
		}

		printSyncSummary(summary)
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "write the batch file but do not upload or mutate")
	rootCmd.AddCommand(syncCmd)
}

func runSync(ctx context.Context) (*model.RunSummary, error) {
	log := zap.L().Named("sync")

	site, err := source.Load(cfg.Source.File)
	if err != nil {
		return nil, eris.Wrap(err, "load source definition")
	}

	skip, err := skiplog.Open(cfg.Sync.SkipLogFile)
	if err != nil {
		return nil, eris.Wrap(err, "open skip log")
	}
	defer skip.Close() //nolint:errcheck

	scraper := scrape.New(site, cfg.Source, skip)
	records, scrapeStats, err := scraper.Run(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "scrape")
	}

	records, collisions := reconcile.Dedupe(records)

	client, err := initShopify()
	if err != nil {
		return nil, err
	}

	ids := identity.Load(cfg.Sync.IdentityFile)
	log.Info("identity store loaded", zap.Int("known", ids.Len()))

	rec := reconcile.New(client, client)
	plan, stats := rec.Classify(ctx, records, ids)

	summary := &model.RunSummary{
		Scraped:    len(records),
		Creates:    len(plan.Creates),
		Updates:    len(plan.Updates),
		Skipped:    scrapeStats.Skipped + stats.LookupSkipped,
		Duplicates: collisions,
	}

	if !syncDryRun {
		rec.DeleteAbsent(ctx, plan.Absent, &stats)
		summary.Deletions = stats.DeletesSucceeded
		summary.Failed = stats.DeletesFailed
	}

	if err := writeBatch(site, plan); err != nil {
		return summary, err
	}

	if syncDryRun {
		log.Info("dry run, skipping upload", zap.String("batch_file", cfg.Sync.BatchFile))
		return summary, nil
	}

	if len(plan.Creates)+len(plan.Updates) > 0 {
		op, err := submitBatch(ctx, client)
		if err != nil {
			return summary, err
		}
		summary.BulkJobID = op.ID
	} else {
		log.Info("no creates or updates, skipping bulk submission")
	}

	snapshot := reconcile.IdentitySnapshot(records, time.Now().UTC())
	if err := ids.Replace(snapshot); err != nil {
		return summary, eris.Wrap(err, "write identity store")
	}

	return summary, nil
}

// writeBatch encodes the plan into the JSONL batch file.
func writeBatch(site *source.Site, plan *reconcile.Plan) error {
	f, err := os.Create(cfg.Sync.BatchFile)
	if err != nil {
		return eris.Wrap(err, "create batch file")
	}
	defer f.Close() //nolint:errcheck

	enc := &bulk.Encoder{
		LocationID: cfg.Shopify.LocationID,
		BaseTags:   site.BaseTags,
		ImageLabel: site.ImageLabel,
	}
	if err := enc.Encode(f, plan.Updates, plan.Creates); err != nil {
		return eris.Wrap(err, "encode batch")
	}
	return f.Sync()
}

// submitBatch uploads the batch file and starts the bulk mutation once the
// store's single bulk-job slot is free.
func submitBatch(ctx context.Context, client shopify.Client) (*shopify.BulkOperation, error) {
	name := filepath.Base(cfg.Sync.BatchFile)

	target, err := client.CreateStagedUpload(ctx, name)
	if err != nil {
		return nil, eris.Wrap(err, "create staged upload")
	}

	f, err := os.Open(cfg.Sync.BatchFile)
	if err != nil {
		return nil, eris.Wrap(err, "open batch file")
	}
	defer f.Close() //nolint:errcheck

	key, err := client.UploadBatch(ctx, target, name, f)
	if err != nil {
		return nil, eris.Wrap(err, "upload batch")
	}

	gate := bulk.NewGate(client, cfg.Sync.PollInterval())
	if err := gate.AwaitSlot(ctx); err != nil {
		return nil, err
	}

	op, err := gate.Submit(ctx, key)
	if err != nil {
		return nil, err
	}

	zap.L().Info("bulk mutation submitted",
		zap.String("id", op.ID),
		zap.String("status", string(op.Status)))
	return op, nil
}

func printSyncSummary(s *model.RunSummary) {
	p := message.NewPrinter(language.English)
	p.Printf("Scraped:    %d\n", s.Scraped)
	p.Printf("Creates:    %d\n", s.Creates)
	p.Printf("Updates:    %d\n", s.Updates)
	p.Printf("Deletions:  %d\n", s.Deletions)
	p.Printf("Skipped:    %d\n", s.Skipped)
	p.Printf("Duplicates: %d\n", s.Duplicates)
	if s.Failed > 0 {
		p.Printf("Failed:     %d\n", s.Failed)
	}
	if s.BulkJobID != "" {
		p.Printf("Bulk job:   %s\n", s.BulkJobID)
	}
}
