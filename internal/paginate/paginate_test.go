package paginate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadgrab/internal/config"
	"leadgrab/internal/driver"
)

type fakeItem struct{ name string }

func (f *fakeItem) Text(string) (string, error)              { return f.name, nil }
func (f *fakeItem) Attribute(string, string) (string, error) { return "", nil }
func (f *fakeItem) HTML() (string, error)                    { return "", nil }

func items(names ...string) []driver.Item {
	out := make([]driver.Item, 0, len(names))
	for _, n := range names {
		out = append(out, &fakeItem{name: n})
	}
	return out
}

// fakeDriver serves item batches per URL (url-template mode) or per click
// position (click-next mode).
type fakeDriver struct {
	pages     map[string][]driver.Item
	batches   [][]driver.Item
	pos       int
	navigated []string
	clicks    int
	scrolls   int
	navErr    error
}

func (d *fakeDriver) Navigate(_ context.Context, url string) error {
	d.navigated = append(d.navigated, url)
	if d.navErr != nil {
		return d.navErr
	}
	d.pos = 0
	return nil
}

func (d *fakeDriver) Items(_ context.Context, _ string) ([]driver.Item, error) {
	if d.pages != nil {
		return d.pages[d.navigated[len(d.navigated)-1]], nil
	}
	if d.pos < len(d.batches) {
		return d.batches[d.pos], nil
	}
	return nil, nil
}

func (d *fakeDriver) ClickNext(context.Context, string) (bool, error) {
	d.clicks++
	if d.pos+1 < len(d.batches) {
		d.pos++
		return true, nil
	}
	return false, nil
}

func (d *fakeDriver) ScrollBottom(context.Context) error {
	d.scrolls++
	if d.pos+1 < len(d.batches) {
		d.pos++
	}
	return nil
}

func (d *fakeDriver) WaitItemChange(context.Context, string, driver.ItemsSignature, time.Duration) bool {
	return true
}

func (d *fakeDriver) ItemsSignature(ctx context.Context, sel string) driver.ItemsSignature {
	batch, _ := d.Items(ctx, sel)
	return driver.ItemsSignature{Count: len(batch)}
}

func (d *fakeDriver) HTML(context.Context) (string, error) { return "", nil }
func (d *fakeDriver) URL() string                          { return "" }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func urlTemplateConfig(maxPages, maxEmpty int) *config.Config {
	cfg := &config.Config{
		StartURLs:    []string{"https://x.test/p=1"},
		ItemSelector: ".card",
		Fields:       map[string]config.FieldSpec{"company_name": {{Selector: ".name"}}},
		Pagination: config.Pagination{
			Mode:                     config.ModeURLTemplate,
			URLTemplate:              "https://x.test/p={page}",
			MaxPages:                 maxPages,
			MaxConsecutiveEmptyPages: maxEmpty,
			PauseMs:                  1,
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func clickNextConfig() *config.Config {
	cfg := &config.Config{
		StartURLs:    []string{"https://x.test/members"},
		ItemSelector: ".card",
		Fields:       map[string]config.FieldSpec{"company_name": {{Selector: ".name"}}},
		Pagination: config.Pagination{
			Mode:               config.ModeClickNext,
			NextButtonSelector: "a.next",
			MaxPages:           10,
			PauseMs:            1,
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// drain runs a strategy the way the loop does and returns the batches, with
// signatures derived from item names.
func drain(t *testing.T, s Strategy) [][]driver.Item {
	t.Helper()
	var out [][]driver.Item
	for i := 0; s.HasMore(); i++ {
		require.Less(t, i, 100, "strategy failed to terminate")
		batch, err := s.FetchNext(context.Background())
		require.NoError(t, err)
		out = append(out, batch)

		keys := make([]string, 0, len(batch))
		for _, it := range batch {
			name, _ := it.Text("")
			keys = append(keys, name)
		}
		s.Advance(SignatureOf(keys))
	}
	return out
}

func TestSignatureOf(t *testing.T) {
	a := SignatureOf([]string{"x", "y"})
	b := SignatureOf([]string{"x", "y"})
	c := SignatureOf([]string{"y", "x"})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c), "order matters")
	assert.Equal(t, 2, a.Count)
}

func TestURLTemplateNeverRepeatsAPageIndex(t *testing.T) {
	drv := &fakeDriver{pages: map[string][]driver.Item{
		"https://x.test/p=1": items("a"),
		"https://x.test/p=2": items("b"),
		"https://x.test/p=3": items("c"),
	}}
	s := NewURLTemplate(drv, urlTemplateConfig(3, 2), discard())

	drain(t, s)

	seen := map[string]int{}
	for _, u := range drv.navigated {
		seen[u]++
	}
	for u, n := range seen {
		assert.Equal(t, 1, n, "page %s fetched %d times", u, n)
	}
	assert.Equal(t, []string{"https://x.test/p=1", "https://x.test/p=2", "https://x.test/p=3"}, drv.navigated)
}

func TestURLTemplateStopsAtMaxPages(t *testing.T) {
	drv := &fakeDriver{pages: map[string][]driver.Item{
		"https://x.test/p=1": items("a", "b"),
	}}
	s := NewURLTemplate(drv, urlTemplateConfig(2, 5), discard())

	batches := drain(t, s)

	assert.Len(t, batches, 2)
	assert.Len(t, drv.navigated, 2, "does not fetch page 3")
}

func TestURLTemplateStopsAfterConsecutiveEmptyPages(t *testing.T) {
	drv := &fakeDriver{pages: map[string][]driver.Item{
		"https://x.test/p=1": items("a"),
		// pages 2+ are empty
	}}
	s := NewURLTemplate(drv, urlTemplateConfig(50, 1), discard())

	drain(t, s)

	assert.Equal(t, []string{"https://x.test/p=1", "https://x.test/p=2"}, drv.navigated,
		"stops after one empty page, never fetches page 3")
}

func TestURLTemplateEmptyStreakResets(t *testing.T) {
	drv := &fakeDriver{pages: map[string][]driver.Item{
		"https://x.test/p=1": items("a"),
		"https://x.test/p=3": items("b"), // gap page at index 2
	}}
	s := NewURLTemplate(drv, urlTemplateConfig(50, 2), discard())

	drain(t, s)

	// Page 2 is empty but tolerated; pages 4 and 5 exhaust the streak.
	assert.Len(t, drv.navigated, 5)
}

func TestURLTemplateNavigationFailureIsEmptyYield(t *testing.T) {
	drv := &fakeDriver{
		pages:  map[string][]driver.Item{},
		navErr: errors.New("timeout"),
	}
	s := NewURLTemplate(drv, urlTemplateConfig(50, 2), discard())

	batches := drain(t, s)

	for _, b := range batches {
		assert.Empty(t, b)
	}
	assert.Len(t, drv.navigated, 2, "empty-page tolerance bounds the scan")
}

func TestClickNextWalksUntilControlGone(t *testing.T) {
	drv := &fakeDriver{batches: [][]driver.Item{
		items("a", "b"),
		items("c"),
	}}
	s := NewClickNext(drv, clickNextConfig(), "https://x.test/members", discard())

	batches := drain(t, s)

	require.Len(t, batches, 3, "two content pages plus the exhausting click")
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 1)
	assert.Empty(t, batches[2])
	assert.Equal(t, 2, drv.clicks)
}

func TestClickNextExhaustsOnStall(t *testing.T) {
	same := items("a", "b")
	drv := &fakeDriver{batches: [][]driver.Item{same, same, same, same}}
	s := NewClickNext(drv, clickNextConfig(), "https://x.test/members", discard())

	batches := drain(t, s)

	// First page, then one identical page; the stall detector exhausts the
	// strategy within one extra step.
	assert.LessOrEqual(t, len(batches), 3)
	assert.False(t, s.HasMore())
}

func TestClickNextNavigationFailure(t *testing.T) {
	drv := &fakeDriver{navErr: errors.New("timeout")}
	s := NewClickNext(drv, clickNextConfig(), "https://x.test/members", discard())

	batch, err := s.FetchNext(context.Background())
	require.NoError(t, err, "timeouts are empty yields, not run failures")
	assert.Empty(t, batch)
	assert.False(t, s.HasMore())
}

func TestInfiniteScrollStallsAfterUnchanged(t *testing.T) {
	cfg := clickNextConfig()
	cfg.Pagination.Mode = config.ModeInfiniteScroll
	cfg.Scroll = config.Scroll{MaxScrolls: 50, PauseMs: 1, StopAfterUnchanged: 3}

	drv := &fakeDriver{batches: [][]driver.Item{items("a")}}
	s := NewInfiniteScroll(drv, cfg, "https://x.test/members", discard())

	batches := drain(t, s)

	// One real page, then stop_after_unchanged scrolls yielding the same
	// item set.
	assert.LessOrEqual(t, len(batches), 1+cfg.Scroll.StopAfterUnchanged+1)
	assert.False(t, s.HasMore())
}

func TestForConfigSelectsStrategy(t *testing.T) {
	drv := &fakeDriver{}

	for _, tt := range []struct {
		mode string
		want string
	}{
		{config.ModeClickNext, "*paginate.ClickNext"},
		{config.ModeInfiniteScroll, "*paginate.ClickNext"},
		{config.ModeURLTemplate, "*paginate.URLTemplate"},
	} {
		cfg := clickNextConfig()
		cfg.Pagination.Mode = tt.mode
		cfg.Pagination.URLTemplate = "https://x.test/p={page}"
		s, err := ForConfig(drv, cfg, "https://x.test", discard())
		require.NoError(t, err)
		assert.Equal(t, tt.want, fmt.Sprintf("%T", s))
	}

	cfg := clickNextConfig()
	cfg.Pagination.Mode = "teleport"
	_, err := ForConfig(drv, cfg, "https://x.test", discard())
	assert.Error(t, err)
}
