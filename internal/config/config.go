package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"leadgrab/internal/lead"
)

// Pagination modes.
const (
	ModeClickNext      = "click_next"
	ModeURLTemplate    = "url_template"
	ModeInfiniteScroll = "infinite_scroll"
)

// PagePlaceholder must appear in url_template; it is replaced with the
// current page index.
const PagePlaceholder = "{page}"

// Duration wraps time.Duration so YAML values like "30s" parse with
// time.ParseDuration. Bare integers are taken as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var secs int64
	if err := node.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// D returns the wrapped time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// Selector addresses one value inside an item: a CSS selector and an
// optional attribute to read instead of the element text.
type Selector struct {
	Selector string `yaml:"selector"`
	Attr     string `yaml:"attr,omitempty"`
}

// FieldSpec is an ordered fallback chain of selectors for one field,
// evaluated left to right with first non-empty value winning.
//
// YAML accepts three shapes:
//
//	company_name: ".name"
//	email: { selector: "a.mail", attr: "href" }
//	website: [{ selector: "a.site", attr: "href" }, ".url"]
type FieldSpec []Selector

// UnmarshalYAML implements the string/object/list forms above.
func (f *FieldSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var sel string
		if err := node.Decode(&sel); err != nil {
			return err
		}
		*f = FieldSpec{{Selector: sel}}
		return nil
	case yaml.MappingNode:
		var sel Selector
		if err := node.Decode(&sel); err != nil {
			return err
		}
		*f = FieldSpec{sel}
		return nil
	case yaml.SequenceNode:
		var chain []yaml.Node
		if err := node.Decode(&chain); err != nil {
			return err
		}
		out := make(FieldSpec, 0, len(chain))
		for i := range chain {
			var link FieldSpec
			if err := link.UnmarshalYAML(&chain[i]); err != nil {
				return err
			}
			out = append(out, link...)
		}
		*f = out
		return nil
	}
	return fmt.Errorf("field selector must be a string, mapping or list (line %d)", node.Line)
}

// Pagination holds the mode and its parameters. Only the parameters of the
// configured mode are consulted.
type Pagination struct {
	Mode                     string `yaml:"mode"`
	NextButtonSelector       string `yaml:"next_button_selector,omitempty"`
	URLTemplate              string `yaml:"url_template,omitempty"`
	StartPage                int    `yaml:"start_page,omitempty"`
	MaxPages                 int    `yaml:"max_pages,omitempty"`
	MaxConsecutiveEmptyPages int    `yaml:"max_consecutive_empty_pages,omitempty"`
	PauseMs                  int    `yaml:"pause_ms,omitempty"`
}

// Scroll tunes the infinite-scroll advance step.
type Scroll struct {
	MaxScrolls         int `yaml:"max_scrolls,omitempty"`
	PauseMs            int `yaml:"pause_ms,omitempty"`
	StopAfterUnchanged int `yaml:"stop_after_unchanged,omitempty"`
}

// Config is the resolved scrape configuration. It is loaded once before the
// run starts and read-only thereafter.
type Config struct {
	StartURLs          []string             `yaml:"start_urls"`
	ItemSelector       string               `yaml:"item_selector"`
	Fields             map[string]FieldSpec `yaml:"fields"`
	Columns            []string             `yaml:"columns,omitempty"`
	Pagination         Pagination           `yaml:"pagination"`
	Scroll             Scroll               `yaml:"scroll,omitempty"`
	Usability          lead.UsabilityPolicy `yaml:"usability,omitempty"`
	BetweenURLsPauseMs int                  `yaml:"between_urls_pause_ms,omitempty"`
	ExportPartial      *bool                `yaml:"export_partial,omitempty"`
	OutputFile         string               `yaml:"output_file,omitempty"`
	ArchiveDB          string               `yaml:"archive_db,omitempty"`
	Timeout            Duration             `yaml:"timeout,omitempty"`
	Headful            bool                 `yaml:"headful,omitempty"`
	Proxy              string               `yaml:"proxy,omitempty"`
}

// Load reads and parses a YAML config file, applies defaults and validates
// it. Any error here is fatal before the loop starts.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset options with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Pagination.Mode == "" {
		c.Pagination.Mode = ModeInfiniteScroll
	}
	if c.Pagination.StartPage <= 0 {
		c.Pagination.StartPage = 1
	}
	if c.Pagination.MaxPages <= 0 {
		c.Pagination.MaxPages = 50
	}
	if c.Pagination.MaxConsecutiveEmptyPages <= 0 {
		c.Pagination.MaxConsecutiveEmptyPages = 2
	}
	if c.Pagination.PauseMs <= 0 {
		c.Pagination.PauseMs = 1500
	}
	if c.Scroll.MaxScrolls <= 0 {
		c.Scroll.MaxScrolls = 50
	}
	if c.Scroll.PauseMs <= 0 {
		c.Scroll.PauseMs = 1200
	}
	if c.Scroll.StopAfterUnchanged <= 0 {
		c.Scroll.StopAfterUnchanged = 3
	}
	if c.Usability == "" {
		c.Usability = lead.UsabilityLenient
	}
	if c.BetweenURLsPauseMs <= 0 {
		c.BetweenURLsPauseMs = 1000
	}
	if c.ExportPartial == nil {
		t := true
		c.ExportPartial = &t
	}
	if c.OutputFile == "" {
		c.OutputFile = "leads.csv"
	}
	if c.Timeout <= 0 {
		c.Timeout = Duration(30 * time.Second)
	}
	if len(c.Columns) == 0 {
		c.Columns = append([]string{}, lead.DefaultColumns...)
	}
}

// Validate checks the config for the errors that must surface before a run
// starts rather than mid-loop.
func (c *Config) Validate() error {
	if len(c.StartURLs) == 0 {
		return fmt.Errorf("config: start_urls must list at least one URL")
	}
	for _, u := range c.StartURLs {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("config: start_urls contains an empty URL")
		}
	}
	if strings.TrimSpace(c.ItemSelector) == "" {
		return fmt.Errorf("config: item_selector is required")
	}
	if len(c.Fields) == 0 {
		return fmt.Errorf("config: fields must map at least one field to a selector")
	}
	for name, spec := range c.Fields {
		if !lead.KnownField(name) {
			return fmt.Errorf("config: unknown field %q (known: %s)", name, strings.Join(lead.DefaultColumns, ", "))
		}
		if len(spec) == 0 {
			return fmt.Errorf("config: field %q has an empty selector chain", name)
		}
		for _, sel := range spec {
			if strings.TrimSpace(sel.Selector) == "" {
				return fmt.Errorf("config: field %q has an empty selector", name)
			}
		}
	}
	for _, col := range c.Columns {
		if !lead.KnownField(col) && col != "source_url" {
			return fmt.Errorf("config: unknown column %q", col)
		}
	}

	switch c.Pagination.Mode {
	case ModeClickNext:
		if strings.TrimSpace(c.Pagination.NextButtonSelector) == "" {
			return fmt.Errorf("config: pagination.next_button_selector is required for mode %s", ModeClickNext)
		}
	case ModeURLTemplate:
		if !strings.Contains(c.Pagination.URLTemplate, PagePlaceholder) {
			return fmt.Errorf("config: pagination.url_template must contain the %s placeholder", PagePlaceholder)
		}
	case ModeInfiniteScroll:
		// Scroll advance needs no selector.
	default:
		return fmt.Errorf("config: unknown pagination mode %q", c.Pagination.Mode)
	}

	switch c.Usability {
	case lead.UsabilityLenient, lead.UsabilityStrict:
	default:
		return fmt.Errorf("config: usability must be %q or %q", lead.UsabilityLenient, lead.UsabilityStrict)
	}
	return nil
}

// Pause returns the between-pages pause as a duration.
func (p *Pagination) Pause() time.Duration {
	return time.Duration(p.PauseMs) * time.Millisecond
}

// Pause returns the between-scrolls pause as a duration.
func (s *Scroll) Pause() time.Duration {
	return time.Duration(s.PauseMs) * time.Millisecond
}

// BetweenURLsPause returns the polite pause between start URLs.
func (c *Config) BetweenURLsPause() time.Duration {
	return time.Duration(c.BetweenURLsPauseMs) * time.Millisecond
}

// PageBudget is the absolute cap on batches fetched from one source. The
// infinite-scroll strategy budgets in scroll steps rather than pages, so
// the cap tracks whichever limit the active mode is configured with.
func (c *Config) PageBudget() int {
	if c.Pagination.Mode == ModeInfiniteScroll {
		return c.Scroll.MaxScrolls
	}
	return c.Pagination.MaxPages
}

// PageURL substitutes the page index into a URL template.
func PageURL(template string, page int) string {
	return strings.ReplaceAll(template, PagePlaceholder, fmt.Sprintf("%d", page))
}
