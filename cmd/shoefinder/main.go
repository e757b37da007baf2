package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/iishyfishyy/shoefinder/internal/catalog"
	"github.com/iishyfishyy/shoefinder/internal/config"
	"github.com/iishyfishyy/shoefinder/internal/history"
	"github.com/iishyfishyy/shoefinder/internal/ranking"
	"github.com/iishyfishyy/shoefinder/internal/server"
	"github.com/iishyfishyy/shoefinder/internal/ui"

	"github.com/spf13/cobra"
)

var (
	// version is set by goreleaser at build time
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// CLI flags
	debug       bool
	configPath  string
	forceImport bool
	topK        int
	workers     int
	whereExpr   string
	openBest    bool
	copyBest    bool
	colorLimit  int
	serveAddr   string
	historySize int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "shoefinder",
		Short:         "Find visually similar shoes in an image catalog",
		Long:          "shoefinder ranks catalog images by color, texture and shape similarity to a query image",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file (default ~/.shoefinder/config.yaml)")

	configureCmd := &cobra.Command{
		Use:   "configure",
		Short: "Configure the catalog store, ranking defaults, server and viewer",
		Args:  cobra.NoArgs,
		RunE:  runConfigure,
	}

	importCmd := &cobra.Command{
		Use:   "import DIR",
		Short: "Import item files (*.yaml, *.yml, *.json) into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	importCmd.Flags().BoolVarP(&forceImport, "force", "f", false, "Clear the catalog and import everything again")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog items",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}

	rankCmd := &cobra.Command{
		Use:   "rank QUERY_FILE",
		Short: "Rank catalog items by weighted histogram similarity to a query",
		Args:  cobra.ExactArgs(1),
		RunE:  runRank,
	}
	rankCmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results (default from config)")
	rankCmd.Flags().IntVar(&workers, "workers", 0, "Score with this many goroutines (default from config)")
	rankCmd.Flags().StringVarP(&whereExpr, "where", "w", "", "CEL filter over item.id and item.meta")
	rankCmd.Flags().BoolVar(&openBest, "open", false, "Open the best match in the viewer")
	rankCmd.Flags().BoolVar(&copyBest, "copy", false, "Copy the best match id to the clipboard")

	rankColorsCmd := &cobra.Command{
		Use:   "rank-colors QUERY_FILE",
		Short: "Rank catalog items by dominant color dissimilarity to a query",
		Args:  cobra.ExactArgs(1),
		RunE:  runRankColors,
	}
	rankColorsCmd.Flags().IntVarP(&colorLimit, "limit", "n", 0, "Show at most this many items (0 shows all)")
	rankColorsCmd.Flags().StringVarP(&whereExpr, "where", "w", "", "CEL filter over item.id and item.meta")
	rankColorsCmd.Flags().BoolVar(&openBest, "open", false, "Open the best match in the viewer")
	rankColorsCmd.Flags().BoolVar(&copyBest, "copy", false, "Copy the best match id to the clipboard")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ranking HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent ranking runs",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVarP(&historySize, "limit", "n", 10, "Number of runs to show")

	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(rankColorsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.ShowError(err.Error())
		stop()
		os.Exit(1)
	}
}

// resolveConfigPath returns the --config flag or the default location
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

// loadConfig reads the config file, falling back to defaults when none exists
func loadConfig() (*config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}

	if debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Config: loading from %s\n", path)
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg == nil {
		if debug {
			fmt.Fprintf(os.Stderr, "[DEBUG] Config: no config file, using defaults\n")
		}
		cfg = config.Default()
	}
	return cfg, nil
}

func storeOptions(cfg *config.Config) catalog.Options {
	return catalog.Options{
		Backend:     cfg.Store.Backend,
		SQLitePath:  cfg.Store.SQLitePath,
		RedisAddr:   cfg.Store.Redis.Addr,
		RedisDB:     cfg.Store.Redis.DB,
		RedisPrefix: cfg.Store.Redis.Prefix,
	}
}

// openStore connects to the configured catalog store
func openStore(ctx context.Context, cfg *config.Config) (catalog.Store, error) {
	if debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Catalog: opening %s store\n", cfg.Store.Backend)
	}
	store, err := catalog.Open(ctx, storeOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	if cfg.Store.Backend == config.BackendMemory {
		ui.ShowWarning("Using the in-memory store; the catalog is empty and is not persisted")
	}
	return store, nil
}

// warnIfEmpty reports an empty catalog and returns true if it is
func warnIfEmpty(ctx context.Context, store catalog.Store) bool {
	n, err := store.Count(ctx)
	if err != nil || n > 0 {
		return false
	}
	ui.ShowWarning(fmt.Sprintf("%v: run 'shoefinder import DIR' first", ranking.ErrEmptyCatalog))
	return true
}

// runImport imports a directory of item files
func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dir := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ui.ShowSection("Importing Catalog")
	if forceImport {
		ui.ShowInfo("Force import (--force flag): clearing the catalog first")
	}

	manager := catalog.NewManagerWithDebug(store, debug)
	report, err := manager.Import(ctx, dir, forceImport)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", dir, err)
	}

	if report.UpToDate {
		ui.ShowSuccess("Catalog is up to date")
		return nil
	}

	ui.ShowSuccess(fmt.Sprintf("Imported %d items (%.1fs)", report.Imported, report.Duration.Seconds()))
	if report.Removed > 0 {
		ui.ShowInfo(fmt.Sprintf("Removed %d items whose files are gone", report.Removed))
	}
	if len(report.Failed) > 0 {
		ui.ShowWarning(fmt.Sprintf("%d files could not be imported:", len(report.Failed)))
		for _, f := range report.Failed {
			fmt.Printf("  • %v\n", &f)
		}
	}

	return nil
}

// runList lists the catalog
func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	items, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}

	if len(items) == 0 {
		warnIfEmpty(ctx, store)
		return nil
	}

	ui.ShowSection(fmt.Sprintf("Catalog (%d items)", len(items)))
	gray := color.New(color.FgHiBlack)
	for _, it := range items {
		fmt.Printf("  • %s", it.ID)
		gray.Printf("  rgb=%d lbp=%d hog=%d colors=%d", len(it.Features.Red), len(it.Features.LBP), len(it.Features.HOG), len(it.Colors))
		if len(it.Meta) > 0 {
			gray.Printf("  %s", formatMeta(it.Meta))
		}
		fmt.Println()
	}

	return nil
}

func formatMeta(meta map[string]interface{}) string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, meta[k])
	}
	return strings.Join(parts, " ")
}

// runServe starts the HTTP API
func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := server.New(store, server.Options{
		TopK:      cfg.Ranking.TopK,
		Workers:   cfg.Ranking.Workers,
		RateLimit: cfg.Server.RateLimit,
		Burst:     cfg.Server.Burst,
		AccessLog: true,
		Debug:     debug,
	})

	ui.ShowSuccess(fmt.Sprintf("shoefinder API listening on %s (%s store)", addr, cfg.Store.Backend))
	if err := srv.Run(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server failed: %w", err)
	}
	ui.ShowInfo("Server stopped")
	return nil
}

// runHistory prints recent ranking runs
func runHistory(cmd *cobra.Command, args []string) error {
	hist, err := history.Load()
	if err != nil {
		return err
	}

	entries := hist.Recent(historySize)
	if len(entries) == 0 {
		ui.ShowInfo("No ranking runs recorded yet")
		return nil
	}

	ui.ShowSection("Recent Rankings")
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	for _, e := range entries {
		cyan.Printf("%s  %-10s  %s", e.Timestamp.Format("2006-01-02 15:04"), e.Mode, e.Query)
		if e.Filter != "" {
			gray.Printf("  where %s", e.Filter)
		}
		fmt.Println()

		for i, r := range e.Results {
			if i == 3 {
				gray.Printf("      … %d more\n", len(e.Results)-3)
				break
			}
			fmt.Printf("      %d. %s (%s)\n", i+1, r.ItemID, ui.FormatScore(r.Score))
		}
		if e.Opened != "" {
			gray.Printf("      opened %s\n", e.Opened)
		}
	}

	return nil
}
