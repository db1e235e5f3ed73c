package paginate

import (
	"context"
	"log/slog"
	"time"

	"leadgrab/internal/config"
	"leadgrab/internal/driver"
)

// ClickNext paginates by activating a "next" control until it disappears,
// is disabled, or activating it stops producing new content. With an empty
// next selector the advance step degenerates to a scroll-to-bottom, which
// covers directories that lazy-load on scroll.
type ClickNext struct {
	drv          driver.Driver
	itemSelector string
	nextSelector string // empty means scroll advance
	startURL     string
	pause        time.Duration
	maxSteps     int
	stallLimit   int
	logger       *slog.Logger

	started   bool
	exhausted bool
	steps     int
	prevSig   Signature
	havePrev  bool
	stall     int
}

// NewClickNext builds the click-next strategy for one start URL.
func NewClickNext(drv driver.Driver, cfg *config.Config, startURL string, logger *slog.Logger) *ClickNext {
	return &ClickNext{
		drv:          drv,
		itemSelector: cfg.ItemSelector,
		nextSelector: cfg.Pagination.NextButtonSelector,
		startURL:     startURL,
		pause:        cfg.Pagination.Pause(),
		maxSteps:     cfg.Pagination.MaxPages,
		stallLimit:   1,
		logger:       logger,
	}
}

// NewInfiniteScroll builds the scroll-advance degenerate of click-next.
func NewInfiniteScroll(drv driver.Driver, cfg *config.Config, startURL string, logger *slog.Logger) *ClickNext {
	return &ClickNext{
		drv:          drv,
		itemSelector: cfg.ItemSelector,
		nextSelector: "",
		startURL:     startURL,
		pause:        cfg.Scroll.Pause(),
		maxSteps:     cfg.Scroll.MaxScrolls,
		stallLimit:   cfg.Scroll.StopAfterUnchanged,
		logger:       logger,
	}
}

// HasMore reports whether another batch may be available.
func (s *ClickNext) HasMore() bool {
	return !s.exhausted && s.steps < s.maxSteps
}

// FetchNext loads the initial page on the first call; afterwards it
// activates the next control (or scrolls) and waits, bounded, for the item
// set to change before re-querying. Timeouts yield an empty batch.
func (s *ClickNext) FetchNext(ctx context.Context) ([]driver.Item, error) {
	if s.exhausted {
		return nil, nil
	}
	s.steps++

	if !s.started {
		s.started = true
		if err := s.drv.Navigate(ctx, s.startURL); err != nil {
			s.logger.Warn("navigation failed, treating page as empty", "url", s.startURL, "err", err)
			s.exhausted = true
			return nil, nil
		}
		sleep(ctx, s.pause)
		return s.queryItems(ctx)
	}

	before := s.drv.ItemsSignature(ctx, s.itemSelector)

	if s.nextSelector != "" {
		clicked, err := s.drv.ClickNext(ctx, s.nextSelector)
		if err != nil {
			s.logger.Warn("next control activation failed", "selector", s.nextSelector, "err", err)
			s.exhausted = true
			return nil, nil
		}
		if !clicked {
			s.logger.Info("next control absent or disabled, pagination exhausted")
			s.exhausted = true
			return nil, nil
		}
	} else {
		if err := s.drv.ScrollBottom(ctx); err != nil {
			s.logger.Warn("scroll failed", "err", err)
			s.exhausted = true
			return nil, nil
		}
	}

	if !s.drv.WaitItemChange(ctx, s.itemSelector, before, s.waitBudget()) {
		s.logger.Debug("item set unchanged after advance", "selector", s.itemSelector)
	}
	return s.queryItems(ctx)
}

// Advance compares the processed batch's signature with the previous page.
// Identical consecutive pages count toward the stall limit; reaching it
// transitions the strategy to exhausted so a "next" control that never
// disables cannot loop forever.
func (s *ClickNext) Advance(sig Signature) {
	if s.havePrev && sig.Equal(s.prevSig) {
		s.stall++
		if s.stall >= s.stallLimit {
			s.logger.Info("pagination stalled, no new content", "repeats", s.stall)
			s.exhausted = true
		}
	} else {
		s.stall = 0
	}
	s.prevSig = sig
	s.havePrev = true
}

func (s *ClickNext) queryItems(ctx context.Context) ([]driver.Item, error) {
	items, err := s.drv.Items(ctx, s.itemSelector)
	if err != nil {
		s.logger.Warn("item query failed, treating page as empty", "selector", s.itemSelector, "err", err)
		return nil, nil
	}
	return items, nil
}

// waitBudget bounds the wait-for-content step; at least the configured
// pause, but long enough for slow re-renders.
func (s *ClickNext) waitBudget() time.Duration {
	if s.pause < 2*time.Second {
		return 2 * time.Second
	}
	return s.pause
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
