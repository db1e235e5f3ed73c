// Package extract turns one item handle into a lead record using the
// configured field→selector mapping.
package extract

import (
	"errors"
	"log/slog"
	"strings"

	"leadgrab/internal/config"
	"leadgrab/internal/driver"
	"leadgrab/internal/lead"
)

// ErrUnreadableItem is returned when every configured field of an item is
// missing, so the orchestrator can count fully failed items separately from
// partial ones.
var ErrUnreadableItem = errors.New("item unreadable: all fields missing")

// Extractor extracts lead fields from item handles.
type Extractor struct {
	fields map[string]config.FieldSpec
	logger *slog.Logger
}

// New creates an extractor for the given field map.
func New(fields map[string]config.FieldSpec, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{fields: fields, logger: logger}
}

// Extract reads every configured field from the item. Fallback chains are
// evaluated left to right and the first non-empty value wins. A driver
// error on one field (stale element, detached node) records that field as
// missing without aborting the rest. When every field comes back empty the
// item is reported as unreadable.
func (e *Extractor) Extract(item driver.Item, sourceURL string) (lead.Result, error) {
	result := lead.Result{Lead: lead.Lead{SourceURL: sourceURL}}

	// Canonical order keeps Missing deterministic across runs.
	for _, name := range lead.DefaultColumns {
		spec, ok := e.fields[name]
		if !ok {
			continue
		}
		value := e.extractField(item, name, spec)
		if value == "" {
			result.Missing = append(result.Missing, name)
			continue
		}
		result.Lead.Set(name, value)
	}

	if len(result.Missing) == len(e.fields) {
		return lead.Result{}, ErrUnreadableItem
	}
	return result, nil
}

func (e *Extractor) extractField(item driver.Item, name string, spec config.FieldSpec) string {
	for _, sel := range spec {
		var value string
		var err error
		if sel.Attr != "" {
			value, err = item.Attribute(sel.Selector, sel.Attr)
			value = cleanAttribute(sel.Attr, value)
		} else {
			value, err = item.Text(sel.Selector)
		}
		if err != nil {
			// Stale or detached nodes fail a single selector, not the item.
			e.logger.Debug("selector failed", "field", name, "selector", sel.Selector, "err", err)
			continue
		}
		if value = lead.Normalize(value); value != "" {
			return value
		}
	}
	return ""
}

// cleanAttribute strips scheme prefixes that leak into attribute values,
// such as mailto: on href-mapped email fields.
func cleanAttribute(attr, value string) string {
	if attr == "href" && strings.HasPrefix(value, "mailto:") {
		return strings.TrimPrefix(value, "mailto:")
	}
	return value
}
