package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadgrab/internal/lead"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFull(t *testing.T) {
	path := writeConfig(t, `
start_urls:
  - "https://dir.example.com/members"
item_selector: ".member-card"
fields:
  company_name: ".name"
  email: { selector: "a.mail", attr: "href" }
  website:
    - { selector: "a.site", attr: "href" }
    - ".url"
pagination:
  mode: url_template
  url_template: "https://dir.example.com/members?page={page}"
  max_pages: 3
usability: strict
output_file: out/leads.xlsx
timeout: 10s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://dir.example.com/members"}, cfg.StartURLs)
	assert.Equal(t, ".member-card", cfg.ItemSelector)
	assert.Equal(t, FieldSpec{{Selector: ".name"}}, cfg.Fields["company_name"])
	assert.Equal(t, FieldSpec{{Selector: "a.mail", Attr: "href"}}, cfg.Fields["email"])
	assert.Equal(t, FieldSpec{
		{Selector: "a.site", Attr: "href"},
		{Selector: ".url"},
	}, cfg.Fields["website"])
	assert.Equal(t, ModeURLTemplate, cfg.Pagination.Mode)
	assert.Equal(t, 3, cfg.Pagination.MaxPages)
	assert.Equal(t, lead.UsabilityStrict, cfg.Usability)
	assert.Equal(t, 10*time.Second, cfg.Timeout.D())
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
start_urls: ["https://x.test"]
item_selector: ".card"
fields:
  company_name: ".name"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ModeInfiniteScroll, cfg.Pagination.Mode)
	assert.Equal(t, 1, cfg.Pagination.StartPage)
	assert.Equal(t, 50, cfg.Pagination.MaxPages)
	assert.Equal(t, 2, cfg.Pagination.MaxConsecutiveEmptyPages)
	assert.Equal(t, 50, cfg.Scroll.MaxScrolls)
	assert.Equal(t, 3, cfg.Scroll.StopAfterUnchanged)
	assert.Equal(t, lead.UsabilityLenient, cfg.Usability)
	require.NotNil(t, cfg.ExportPartial)
	assert.True(t, *cfg.ExportPartial)
	assert.Equal(t, "leads.csv", cfg.OutputFile)
	assert.Equal(t, 30*time.Second, cfg.Timeout.D())
	assert.Equal(t, lead.DefaultColumns, cfg.Columns)
	assert.Equal(t, time.Second, cfg.BetweenURLsPause())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no start urls",
			yaml: `
item_selector: ".card"
fields: {company_name: ".name"}
`,
			want: "start_urls",
		},
		{
			name: "missing item selector",
			yaml: `
start_urls: ["https://x.test"]
fields: {company_name: ".name"}
`,
			want: "item_selector",
		},
		{
			name: "no fields",
			yaml: `
start_urls: ["https://x.test"]
item_selector: ".card"
`,
			want: "fields",
		},
		{
			name: "unknown field",
			yaml: `
start_urls: ["https://x.test"]
item_selector: ".card"
fields: {rating: ".stars"}
`,
			want: `unknown field "rating"`,
		},
		{
			name: "click_next without selector",
			yaml: `
start_urls: ["https://x.test"]
item_selector: ".card"
fields: {company_name: ".name"}
pagination: {mode: click_next}
`,
			want: "next_button_selector",
		},
		{
			name: "url_template without placeholder",
			yaml: `
start_urls: ["https://x.test"]
item_selector: ".card"
fields: {company_name: ".name"}
pagination: {mode: url_template, url_template: "https://x.test/p/1"}
`,
			want: "{page}",
		},
		{
			name: "unknown mode",
			yaml: `
start_urls: ["https://x.test"]
item_selector: ".card"
fields: {company_name: ".name"}
pagination: {mode: teleport}
`,
			want: "unknown pagination mode",
		},
		{
			name: "bad usability",
			yaml: `
start_urls: ["https://x.test"]
item_selector: ".card"
fields: {company_name: ".name"}
usability: relaxed
`,
			want: "usability",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDurationAcceptsSeconds(t *testing.T) {
	path := writeConfig(t, `
start_urls: ["https://x.test"]
item_selector: ".card"
fields: {company_name: ".name"}
timeout: 15
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.Timeout.D())
}

func TestPageURL(t *testing.T) {
	assert.Equal(t, "https://x.test/p=7", PageURL("https://x.test/p={page}", 7))
}

func TestPageBudgetFollowsMode(t *testing.T) {
	cfg := &Config{
		Pagination: Pagination{Mode: ModeURLTemplate, MaxPages: 10},
		Scroll:     Scroll{MaxScrolls: 80},
	}
	assert.Equal(t, 10, cfg.PageBudget())

	cfg.Pagination.Mode = ModeInfiniteScroll
	assert.Equal(t, 80, cfg.PageBudget(), "scroll mode budgets in scroll steps")
}
