// Package paginate decides when another page or batch of directory items is
// available and fetches it. Two strategies share one interface: click-next
// (including its infinite-scroll degenerate) and URL-template.
package paginate

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"

	"leadgrab/internal/config"
	"leadgrab/internal/driver"
)

// Strategy drives page acquisition for one start URL. The extraction loop
// calls FetchNext while HasMore holds, and Advance after processing each
// batch so the strategy can update its stall and empty-page counters.
type Strategy interface {
	HasMore() bool

	// FetchNext returns the next ordered batch of item handles. The batch
	// may be empty; driver timeouts surface as empty batches, never as
	// indefinite blocking.
	FetchNext(ctx context.Context) ([]driver.Item, error)

	// Advance feeds back the signature of the batch the loop just
	// processed.
	Advance(sig Signature)
}

// Signature is a structural hash of one page's extracted identity keys. It
// is what click-next stall detection compares across pages, keeping memory
// bounded instead of retaining full records.
type Signature struct {
	Count int
	Hash  uint64
}

// SignatureOf hashes a page's identity keys in order.
func SignatureOf(keys []string) Signature {
	h := fnv.New64a()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0x1f})
	}
	return Signature{Count: len(keys), Hash: h.Sum64()}
}

// Equal reports whether two page signatures match.
func (s Signature) Equal(o Signature) bool {
	return s.Count == o.Count && s.Hash == o.Hash
}

// ForConfig builds the strategy selected by the config's pagination mode
// for one start URL.
func ForConfig(drv driver.Driver, cfg *config.Config, startURL string, logger *slog.Logger) (Strategy, error) {
	switch cfg.Pagination.Mode {
	case config.ModeClickNext:
		return NewClickNext(drv, cfg, startURL, logger), nil
	case config.ModeInfiniteScroll:
		return NewInfiniteScroll(drv, cfg, startURL, logger), nil
	case config.ModeURLTemplate:
		return NewURLTemplate(drv, cfg, logger), nil
	}
	return nil, fmt.Errorf("unknown pagination mode %q", cfg.Pagination.Mode)
}
