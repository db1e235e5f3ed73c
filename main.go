package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"leadgrab/internal/browser"
	"leadgrab/internal/config"
	"leadgrab/internal/driver"
	"leadgrab/internal/export"
	"leadgrab/internal/inspect"
	"leadgrab/internal/run"
	"leadgrab/internal/store"
)

var version = "dev"

var (
	configPath string
	outputFile string
	maxPages   int
	showUI     bool
	proxyURL   string
	debug      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "leadgrab",
		Short:   "Extract lead records from paginated directory sites",
		Version: version,
		Long: `leadgrab drives a real browser over directory-style listing pages,
extracts structured lead records (company name, address, email, website,
phone, country) using configurable CSS selectors, deduplicates them across
pages and exports the result to a CSV or XLSX file.

Pagination is config-driven: a "next" control, a URL template with a {page}
placeholder, or infinite scroll.`,
		Example: `  # Scrape a directory described by a YAML config
  leadgrab --config members.yaml

  # Override the output file and page limit from the command line
  leadgrab --config members.yaml -o leads.xlsx --max-pages 10

  # Render a page as markdown to discover selectors
  leadgrab inspect https://dir.example.com/members`,
		RunE:         runScrape,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML scrape config (required)")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path, overrides config output_file")
	rootCmd.Flags().IntVar(&maxPages, "max-pages", 0, "Max pages to paginate, overrides config")
	rootCmd.Flags().BoolVar(&showUI, "showui", false, "Show browser UI (disable headless mode)")
	rootCmd.Flags().StringVarP(&proxyURL, "proxy", "p", os.Getenv("LEADGRAB_PROXY"), "Proxy URL, defaults to LEADGRAB_PROXY env var")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logs")
	rootCmd.MarkFlagRequired("config")

	inspectCmd := &cobra.Command{
		Use:   "inspect [URL]",
		Short: "Render a page and dump it as markdown for selector authoring",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	inspectCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write markdown to file instead of stdout")
	inspectCmd.Flags().BoolVar(&showUI, "showui", false, "Show browser UI (disable headless mode)")
	inspectCmd.Flags().StringVarP(&proxyURL, "proxy", "p", os.Getenv("LEADGRAB_PROXY"), "Proxy URL")
	rootCmd.AddCommand(inspectCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runScrape(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if outputFile != "" {
		cfg.OutputFile = outputFile
	}
	if maxPages > 0 {
		cfg.Pagination.MaxPages = maxPages
	}
	if showUI {
		cfg.Headful = true
	}
	if proxyURL != "" {
		cfg.Proxy = proxyURL
	}

	if dir := filepath.Dir(cfg.OutputFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	sink, err := export.Open(cfg.OutputFile, cfg.Columns)
	if err != nil {
		return err
	}

	var archive *store.Store
	if cfg.ArchiveDB != "" {
		archive, err = store.Open(cfg.ArchiveDB)
		if err != nil {
			return err
		}
		defer archive.Close()
	}

	b, err := browser.New(browser.Config{ProxyURL: cfg.Proxy, Headless: !cfg.Headful})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer b.Close()

	page, err := b.NewPage()
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	// Interrupts cancel between items and pages; the loop still finalizes
	// the sink so accepted leads reach the output file.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := run.New(cfg, driver.NewRod(page, cfg.Timeout.D()), sink, archive, logger)
	summary, err := loop.Run(ctx)
	if err != nil {
		return fmt.Errorf("scrape failed after %d accepted leads: %w", summary.Accepted, err)
	}

	fmt.Fprintf(os.Stderr, "Output written to: %s\n", cfg.OutputFile)
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	url := normalizeURL(args[0])

	b, err := browser.New(browser.Config{ProxyURL: proxyURL, Headless: !showUI})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer b.Close()

	page, err := b.NewPage()
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	markdown, err := inspect.Dump(cmd.Context(), driver.NewRod(page, 0), url)
	if err != nil {
		return fmt.Errorf("failed to inspect page: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
			return fmt.Errorf("failed to write to file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Output written to: %s\n", outputFile)
		return nil
	}
	fmt.Println(markdown)
	return nil
}

// normalizeURL adds http:// when the URL has no scheme.
func normalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return rawURL
	}
	lower := strings.ToLower(rawURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "http://" + rawURL
	}
	return rawURL
}
