package paginate

import (
	"context"
	"log/slog"
	"time"

	"leadgrab/internal/config"
	"leadgrab/internal/driver"
)

// URLTemplate paginates by substituting a monotonically increasing page
// index into a URL template. The index only moves forward, so no page is
// ever fetched twice in one run.
type URLTemplate struct {
	drv          driver.Driver
	itemSelector string
	template     string
	next         int // next page index to fetch
	last         int // inclusive upper bound from max_pages
	maxEmpty     int
	pause        time.Duration
	logger       *slog.Logger

	emptyStreak int
}

// NewURLTemplate builds the URL-template strategy from the config.
func NewURLTemplate(drv driver.Driver, cfg *config.Config, logger *slog.Logger) *URLTemplate {
	start := cfg.Pagination.StartPage
	return &URLTemplate{
		drv:          drv,
		itemSelector: cfg.ItemSelector,
		template:     cfg.Pagination.URLTemplate,
		next:         start,
		last:         start + cfg.Pagination.MaxPages - 1,
		maxEmpty:     cfg.Pagination.MaxConsecutiveEmptyPages,
		pause:        cfg.Pagination.Pause(),
		logger:       logger,
	}
}

// HasMore reports whether another page index should be fetched: the index
// is within max_pages and the run has not hit the consecutive-empty-page
// tolerance.
func (s *URLTemplate) HasMore() bool {
	return s.next <= s.last && s.emptyStreak < s.maxEmpty
}

// FetchNext navigates to the next page index and queries its items. A
// navigation timeout or failed query yields an empty batch, which feeds the
// empty-page counter instead of killing the run.
func (s *URLTemplate) FetchNext(ctx context.Context) ([]driver.Item, error) {
	url := config.PageURL(s.template, s.next)
	s.next++

	if err := s.drv.Navigate(ctx, url); err != nil {
		s.logger.Warn("page navigation failed, treating as empty", "url", url, "err", err)
		return nil, nil
	}
	sleep(ctx, s.pause)

	items, err := s.drv.Items(ctx, s.itemSelector)
	if err != nil {
		s.logger.Warn("item query failed, treating page as empty", "url", url, "err", err)
		return nil, nil
	}
	return items, nil
}

// Advance updates the consecutive zero-yield counter. Sparse directories
// may have gap pages, so a single empty page does not stop the scan.
func (s *URLTemplate) Advance(sig Signature) {
	if sig.Count == 0 {
		s.emptyStreak++
	} else {
		s.emptyStreak = 0
	}
}
