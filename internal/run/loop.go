// Package run drives one scrape to completion: pagination, per-item
// extraction, dedup and export.
package run

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"leadgrab/internal/config"
	"leadgrab/internal/dedup"
	"leadgrab/internal/driver"
	"leadgrab/internal/export"
	"leadgrab/internal/extract"
	"leadgrab/internal/lead"
	"leadgrab/internal/paginate"
	"leadgrab/internal/store"
)

// Summary reports what a run did.
type Summary struct {
	RunID        string
	PagesVisited int
	Accepted     int
	Duplicates   int
	Partial      int
	Failed       int // items with every field unreadable
	Skipped      int // unusable leads and withheld partials
}

// Loop owns the dedup ledger and the pagination cursors for the lifetime of
// one scrape run. Leads are handed to the sink immediately on acceptance so
// memory stays bounded on very large directories.
type Loop struct {
	cfg       *config.Config
	drv       driver.Driver
	extractor *extract.Extractor
	ledger    *dedup.Ledger
	sink      export.Sink
	archive   *store.Store // optional
	logger    *slog.Logger

	summary Summary
}

// New assembles a loop. The archive may be nil.
func New(cfg *config.Config, drv driver.Driver, sink export.Sink, archive *store.Store, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		cfg:       cfg,
		drv:       drv,
		extractor: extract.New(cfg.Fields, logger),
		ledger:    dedup.NewLedger(),
		sink:      sink,
		archive:   archive,
		logger:    logger,
		summary:   Summary{RunID: uuid.NewString()},
	}
}

// Run scrapes every start URL and finalizes the sink on every exit path, so
// partial progress is never silently lost. The returned summary is valid
// even when an error is returned.
func (l *Loop) Run(ctx context.Context) (Summary, error) {
	runErr := l.run(ctx)

	if err := l.sink.Finalize(); err != nil {
		if runErr == nil {
			runErr = err
		} else {
			l.logger.Error("finalize failed after run error", "err", err)
		}
	}

	l.logger.Info("run complete",
		"run_id", l.summary.RunID,
		"pages_visited", l.summary.PagesVisited,
		"accepted", l.summary.Accepted,
		"duplicates", l.summary.Duplicates,
		"partial", l.summary.Partial,
		"failed", l.summary.Failed,
		"skipped", l.summary.Skipped)
	return l.summary, runErr
}

func (l *Loop) run(ctx context.Context) error {
	if l.archive != nil {
		keys, err := l.archive.IdentityKeys(ctx)
		if err != nil {
			return err
		}
		l.ledger.Preload(keys)
		l.logger.Info("ledger seeded from archive", "known_leads", len(keys))
	}

	for i, startURL := range l.cfg.StartURLs {
		if i > 0 {
			if err := pause(ctx, l.cfg.BetweenURLsPause()); err != nil {
				return err
			}
		}
		strategy, err := paginate.ForConfig(l.drv, l.cfg, startURL, l.logger)
		if err != nil {
			return err
		}
		if err := l.scrapeSource(ctx, startURL, strategy); err != nil {
			return err
		}
	}
	return nil
}

// pause is the polite delay between start URLs; cancellation cuts it short.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// scrapeSource runs the extraction loop for one start URL. The absolute
// page budget applies independently of the strategy's own signal, so a
// misconfigured selector cannot cause a runaway loop.
func (l *Loop) scrapeSource(ctx context.Context, startURL string, strategy paginate.Strategy) error {
	pages := 0
	for strategy.HasMore() && pages < l.cfg.PageBudget() {
		if err := ctx.Err(); err != nil {
			return err
		}

		items, err := strategy.FetchNext(ctx)
		if err != nil {
			return err
		}
		pages++
		l.summary.PagesVisited++

		pageURL := l.drv.URL()
		if pageURL == "" {
			pageURL = startURL
		}
		l.logger.Info("page fetched", "url", pageURL, "page", pages, "items", len(items))

		keys, err := l.processBatch(ctx, items, pageURL)
		if err != nil {
			return err
		}
		// Empty batches still advance the strategy so stall and empty-page
		// counters move.
		strategy.Advance(paginate.SignatureOf(keys))
	}
	return nil
}

// processBatch extracts, filters, dedups and forwards one batch of items.
// It returns the identity keys of every readable item on the page; the
// strategy hashes those for stall detection.
func (l *Loop) processBatch(ctx context.Context, items []driver.Item, sourceURL string) ([]string, error) {
	keys := make([]string, 0, len(items))
	for _, item := range items {
		// Cancellation lands between items, never mid-extraction, so the
		// sink stays flush-safe.
		if err := ctx.Err(); err != nil {
			return keys, err
		}

		result, err := l.extractor.Extract(item, sourceURL)
		if err != nil {
			if errors.Is(err, extract.ErrUnreadableItem) {
				l.summary.Failed++
				continue
			}
			return keys, err
		}
		keys = append(keys, lead.IdentityKey(&result.Lead))

		if result.Partial() {
			l.summary.Partial++
			if !*l.cfg.ExportPartial {
				l.summary.Skipped++
				continue
			}
		}
		if !l.cfg.Usability.Usable(&result.Lead) {
			l.summary.Skipped++
			continue
		}
		if !l.ledger.Accept(&result.Lead) {
			l.summary.Duplicates++
			continue
		}

		if err := l.sink.Append(&result.Lead, result.Missing); err != nil {
			return keys, err
		}
		if l.archive != nil {
			if _, err := l.archive.Insert(ctx, l.summary.RunID, &result.Lead, result.Missing); err != nil {
				l.logger.Warn("archive insert failed", "company", result.Lead.CompanyName, "err", err)
			}
		}
		l.summary.Accepted++
	}
	return keys, nil
}
