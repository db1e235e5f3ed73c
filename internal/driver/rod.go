package driver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
)

// Rod implements Driver on top of a live rod page. All protocol calls run
// under the configured per-call timeout so a stuck page degrades into an
// empty yield instead of hanging the run.
type Rod struct {
	page    *rod.Page
	timeout time.Duration
}

// NewRod wraps a rod page with a per-call timeout.
func NewRod(page *rod.Page, timeout time.Duration) *Rod {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Rod{page: page, timeout: timeout}
}

func (r *Rod) bounded(ctx context.Context) *rod.Page {
	return r.page.Context(ctx).Timeout(r.timeout)
}

// Navigate loads url and waits for the load event.
func (r *Rod) Navigate(ctx context.Context, url string) error {
	p := r.bounded(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for page load: %w", err)
	}
	return nil
}

// Items returns the ordered handles matching selector on the current page.
func (r *Rod) Items(ctx context.Context, selector string) ([]Item, error) {
	elements, err := r.bounded(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query items %q: %w", selector, err)
	}
	items := make([]Item, 0, len(elements))
	for _, el := range elements {
		items = append(items, &rodItem{el: el, timeout: r.timeout})
	}
	return items, nil
}

// ClickNext activates the first visible, enabled control matching selector.
// Disabled and hidden controls count as absent so the click-next strategy
// can transition to exhausted.
func (r *Rod) ClickNext(ctx context.Context, selector string) (bool, error) {
	js := fmt.Sprintf(`() => {
        const els = document.querySelectorAll(%q);
        for (const el of els) {
            const style = window.getComputedStyle(el);
            if (style.display === 'none' || style.visibility === 'hidden') continue;
            if (el.disabled) continue;
            if (el.getAttribute('aria-disabled') === 'true') continue;
            if (el.classList.contains('disabled')) continue;
            el.click();
            return true;
        }
        return false;
    }`, selector)

	result, err := r.bounded(ctx).Eval(js)
	if err != nil {
		return false, fmt.Errorf("failed to activate next control %q: %w", selector, err)
	}
	return r.page.MustObjectToJSON(result).Bool(), nil
}

// ScrollBottom scrolls the window to the bottom of the document.
func (r *Rod) ScrollBottom(ctx context.Context) error {
	_, err := r.bounded(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	if err != nil {
		return fmt.Errorf("failed to scroll: %w", err)
	}
	return nil
}

// ItemsSignature snapshots the visible item set: match count plus the first
// item's leading text.
func (r *Rod) ItemsSignature(ctx context.Context, selector string) ItemsSignature {
	js := fmt.Sprintf(`() => {
        const els = document.querySelectorAll(%q);
        const first = els.length > 0 ? els[0].innerText.slice(0, 120) : '';
        return {count: els.length, first: first};
    }`, selector)

	result, err := r.bounded(ctx).Eval(js)
	if err != nil {
		return ItemsSignature{}
	}
	var sig struct {
		Count int    `json:"count"`
		First string `json:"first"`
	}
	if err := r.page.MustObjectToJSON(result).Unmarshal(&sig); err != nil {
		return ItemsSignature{}
	}
	return ItemsSignature{Count: sig.Count, First: strings.TrimSpace(sig.First)}
}

// WaitItemChange polls until the item set differs from prev or the timeout
// expires.
func (r *Rod) WaitItemChange(ctx context.Context, selector string, prev ItemsSignature, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(500 * time.Millisecond):
		}
		if !r.ItemsSignature(ctx, selector).Equal(prev) {
			return true
		}
	}
	return false
}

// HTML returns the rendered page markup.
func (r *Rod) HTML(ctx context.Context) (string, error) {
	result, err := r.bounded(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("failed to get page HTML: %w", err)
	}
	return r.page.MustObjectToJSON(result).String(), nil
}

// URL returns the current page URL.
func (r *Rod) URL() string {
	info, err := r.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

type rodItem struct {
	el      *rod.Element
	timeout time.Duration
}

// Text returns the trimmed text of the first child match, "" when absent.
func (i *rodItem) Text(selector string) (string, error) {
	has, child, err := i.el.Timeout(i.timeout).Has(selector)
	if err != nil {
		return "", fmt.Errorf("failed to query %q: %w", selector, err)
	}
	if !has {
		return "", nil
	}
	text, err := child.Text()
	if err != nil {
		return "", fmt.Errorf("failed to read text of %q: %w", selector, err)
	}
	return strings.TrimSpace(text), nil
}

// Attribute returns the named attribute of the first child match, "" when
// the selector or attribute is absent.
func (i *rodItem) Attribute(selector, name string) (string, error) {
	has, child, err := i.el.Timeout(i.timeout).Has(selector)
	if err != nil {
		return "", fmt.Errorf("failed to query %q: %w", selector, err)
	}
	if !has {
		return "", nil
	}
	value, err := child.Attribute(name)
	if err != nil {
		return "", fmt.Errorf("failed to read attribute %q of %q: %w", name, selector, err)
	}
	if value == nil {
		return "", nil
	}
	return strings.TrimSpace(*value), nil
}

// HTML returns the item's outer HTML.
func (i *rodItem) HTML() (string, error) {
	return i.el.Timeout(i.timeout).HTML()
}
