// Package driver abstracts the rendered page so the extraction loop,
// pagination strategies and field extractor never touch the browser
// protocol directly. Every call is bounded by a per-call timeout; a timeout
// surfaces as an absent value or empty batch, not as a run-killing error.
package driver

import (
	"context"
	"time"
)

// Item is a handle to one directory entry's markup on a listing page. It is
// only valid for the lifetime of that page; a stale handle makes its
// methods return errors, which the extractor records as missing fields.
type Item interface {
	// Text returns the trimmed inner text of the first match of selector
	// inside the item, or "" when the selector matches nothing.
	Text(selector string) (string, error)

	// Attribute returns the named attribute of the first match of selector
	// inside the item, or "" when the selector or attribute is absent.
	Attribute(selector, name string) (string, error)

	// HTML returns the item's outer HTML.
	HTML() (string, error)
}

// Driver is the page-driver capability consumed by the core: navigation,
// item queries, next-control activation, scrolling and bounded waits.
type Driver interface {
	// Navigate loads url and waits for the page load event.
	Navigate(ctx context.Context, url string) error

	// Items queries the current page and returns the ordered item handles
	// matching selector. An empty result is not an error.
	Items(ctx context.Context, selector string) ([]Item, error)

	// ClickNext activates the first visible, enabled element matching
	// selector. It returns false when no such control exists, which the
	// click-next strategy treats as exhaustion.
	ClickNext(ctx context.Context, selector string) (bool, error)

	// ScrollBottom scrolls the page to the bottom to trigger lazy loading.
	ScrollBottom(ctx context.Context) error

	// WaitItemChange polls until the item set under selector differs from
	// the given previous signature (count plus first-item marker) or the
	// timeout expires. It reports whether a change was observed.
	WaitItemChange(ctx context.Context, selector string, prev ItemsSignature, timeout time.Duration) bool

	// ItemsSignature returns a cheap marker of the current item set, used
	// by WaitItemChange callers to snapshot the page before advancing.
	ItemsSignature(ctx context.Context, selector string) ItemsSignature

	// HTML returns the rendered page markup.
	HTML(ctx context.Context) (string, error)

	// URL returns the current page URL.
	URL() string
}

// ItemsSignature is a cheap fingerprint of the visible item set: how many
// items match and the text of the first one. Enough to notice that a page
// re-rendered after a click or scroll without hashing every item.
type ItemsSignature struct {
	Count int
	First string
}

// Equal reports whether two signatures describe the same item set.
func (s ItemsSignature) Equal(o ItemsSignature) bool {
	return s.Count == o.Count && s.First == o.First
}
