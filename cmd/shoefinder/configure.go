package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/iishyfishyy/shoefinder/internal/catalog"
	"github.com/iishyfishyy/shoefinder/internal/config"
	"github.com/iishyfishyy/shoefinder/internal/executor"
	"github.com/iishyfishyy/shoefinder/internal/ui"

	"github.com/spf13/cobra"
)

// ConfigStatus represents the current state of the configuration
type ConfigStatus struct {
	HasConfig      bool
	Backend        string
	StoreReachable bool
	StoreError     string
	ItemCount      int
	LastUpdate     time.Time
	ConfigPath     string
}

// analyzeCurrentConfig examines the configuration and the catalog it points at
func analyzeCurrentConfig(ctx context.Context) (*ConfigStatus, *config.Config, error) {
	status := &ConfigStatus{}

	path, err := resolveConfigPath()
	if err != nil {
		return nil, nil, err
	}
	status.ConfigPath = path

	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg == nil {
		status.HasConfig = false
		return status, nil, nil
	}

	status.HasConfig = true
	status.Backend = cfg.Store.Backend

	// Memory stores start empty, nothing to inspect
	if cfg.Store.Backend == config.BackendMemory {
		status.StoreReachable = true
		return status, cfg, nil
	}

	store, err := catalog.Open(ctx, storeOptions(cfg))
	if err != nil {
		status.StoreError = err.Error()
		return status, cfg, nil
	}
	defer store.Close()

	status.StoreReachable = true
	items, err := store.List(ctx)
	if err != nil {
		status.StoreError = err.Error()
		return status, cfg, nil
	}
	status.ItemCount = len(items)
	for _, it := range items {
		if it.UpdatedAt.After(status.LastUpdate) {
			status.LastUpdate = it.UpdatedAt
		}
	}

	return status, cfg, nil
}

// runInitialSetup performs first-time setup
func runInitialSetup(path string) error {
	ui.ShowInfo("No configuration found. Let's set up shoefinder.\n")

	cfg := config.Default()

	if err := promptStore(cfg); err != nil {
		return err
	}

	fmt.Println()
	if err := promptRanking(cfg); err != nil {
		return err
	}

	if err := saveConfig(cfg, path); err != nil {
		return err
	}

	ui.ShowInfo("\nYou're all set! Import a catalog with: shoefinder import DIR")
	return nil
}

// displayConfigStatus shows a summary of current configuration
func displayConfigStatus(status *ConfigStatus) {
	fmt.Println()
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	fmt.Print("  Store: ")
	if status.StoreReachable {
		green.Printf("%s ✓\n", status.Backend)
	} else {
		red.Printf("%s ✗ (%s)\n", status.Backend, status.StoreError)
	}

	fmt.Print("  Catalog: ")
	switch {
	case status.Backend == config.BackendMemory:
		gray.Println("In memory, filled through the API")
	case status.ItemCount > 0:
		green.Printf("%d items (updated %s ago)\n", status.ItemCount, formatDuration(status.LastUpdate))
	default:
		gray.Println("Empty")
	}

	fmt.Println()
}

// configureStoreMenu changes where the catalog lives
func configureStoreMenu(cfg *config.Config, path string) error {
	ui.ShowSection("Catalog Store")
	fmt.Println()
	ui.ShowInfo(fmt.Sprintf("Current: %s", cfg.Store.Backend))
	fmt.Println()

	if err := promptStore(cfg); err != nil {
		return err
	}
	return saveConfig(cfg, path)
}

func promptStore(cfg *config.Config) error {
	backend, err := ui.PromptBackend(cfg.Store.Backend)
	if err != nil {
		return err
	}
	cfg.Store.Backend = backend

	switch backend {
	case config.BackendSQLite:
		p, err := ui.PromptInput("SQLite database path:", cfg.Store.SQLitePath, true)
		if err != nil {
			return err
		}
		cfg.Store.SQLitePath = p
	case config.BackendRedis:
		addr, err := ui.PromptInput("Redis address:", cfg.Store.Redis.Addr, true)
		if err != nil {
			return err
		}
		db, err := promptInt("Redis database:", cfg.Store.Redis.DB)
		if err != nil {
			return err
		}
		prefix, err := ui.PromptInput("Key prefix:", cfg.Store.Redis.Prefix, false)
		if err != nil {
			return err
		}
		cfg.Store.Redis = config.RedisConfig{Addr: addr, DB: db, Prefix: prefix}
	case config.BackendMemory:
		ui.ShowWarning("The memory store is only useful with 'shoefinder serve'")
	}

	return nil
}

// configureRankingMenu changes the ranking defaults
func configureRankingMenu(cfg *config.Config, path string) error {
	ui.ShowSection("Ranking Defaults")
	if err := promptRanking(cfg); err != nil {
		return err
	}
	return saveConfig(cfg, path)
}

func promptRanking(cfg *config.Config) error {
	k, err := promptInt("Number of similarity results:", cfg.Ranking.TopK)
	if err != nil {
		return err
	}
	w, err := promptInt("Scoring goroutines (0 or 1 scores sequentially):", cfg.Ranking.Workers)
	if err != nil {
		return err
	}
	cfg.Ranking.TopK = k
	cfg.Ranking.Workers = w
	return nil
}

// configureServerMenu changes the HTTP API settings
func configureServerMenu(cfg *config.Config, path string) error {
	ui.ShowSection("HTTP Server")

	addr, err := ui.PromptInput("Listen address:", cfg.Server.Addr, true)
	if err != nil {
		return err
	}

	limit, err := ui.PromptInput("Requests per second (0 disables limiting):", strconv.FormatFloat(cfg.Server.RateLimit, 'f', -1, 64), true)
	if err != nil {
		return err
	}
	rps, err := strconv.ParseFloat(limit, 64)
	if err != nil {
		return fmt.Errorf("invalid rate %q: %w", limit, err)
	}

	cfg.Server.Addr = addr
	cfg.Server.RateLimit = rps
	if rps > 0 {
		burst, err := promptInt("Burst size:", cfg.Server.Burst)
		if err != nil {
			return err
		}
		cfg.Server.Burst = burst
	}

	return saveConfig(cfg, path)
}

// configureViewerMenu changes the image viewer command
func configureViewerMenu(cfg *config.Config, path string) error {
	ui.ShowSection("Image Viewer")
	fmt.Println()
	ui.ShowInfo(fmt.Sprintf("Use %s where the image path goes. Leave empty for the system default.", executor.PathPlaceholder))

	def := cfg.Viewer.Command
	if def == "" {
		def = executor.DefaultViewerCommand()
	}
	command, err := ui.PromptInput("Viewer command:", def, false)
	if err != nil {
		return err
	}
	if command == executor.DefaultViewerCommand() {
		command = ""
	}
	cfg.Viewer.Command = command

	return saveConfig(cfg, path)
}

// viewCurrentConfiguration displays the full configuration
func viewCurrentConfiguration(status *ConfigStatus, cfg *config.Config) {
	ui.ShowSection("Current Configuration")

	fmt.Println()

	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Println("Store:")
	fmt.Printf("  Backend: %s\n", cfg.Store.Backend)
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		fmt.Printf("  Path: %s\n", cfg.Store.SQLitePath)
	case config.BackendRedis:
		fmt.Printf("  Address: %s (db %d, prefix %q)\n", cfg.Store.Redis.Addr, cfg.Store.Redis.DB, cfg.Store.Redis.Prefix)
	}
	fmt.Printf("  Items: %d\n", status.ItemCount)
	fmt.Println()

	cyan.Println("Ranking:")
	fmt.Printf("  Top K: %d\n", cfg.Ranking.TopK)
	fmt.Printf("  Workers: %d\n", cfg.Ranking.Workers)
	fmt.Println()

	cyan.Println("Server:")
	fmt.Printf("  Address: %s\n", cfg.Server.Addr)
	if cfg.Server.RateLimit > 0 {
		fmt.Printf("  Rate limit: %g/s (burst %d)\n", cfg.Server.RateLimit, cfg.Server.Burst)
	} else {
		fmt.Println("  Rate limit: off")
	}
	fmt.Println()

	cyan.Println("Viewer:")
	if cfg.Viewer.Command != "" {
		fmt.Printf("  Command: %s\n", cfg.Viewer.Command)
	} else {
		fmt.Printf("  Command: %s (default)\n", executor.DefaultViewerCommand())
	}
	fmt.Println()

	fmt.Printf("Configuration file: %s\n", status.ConfigPath)
	fmt.Println()

	fmt.Println("Press Enter to return to menu...")
	fmt.Scanln()
}

func runConfigure(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ui.ShowSection("Shoefinder Configuration")

	if !ui.IsInteractive() {
		return fmt.Errorf("configure needs an interactive terminal; edit the config file instead")
	}

	status, cfg, err := analyzeCurrentConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to analyze configuration: %w", err)
	}

	if !status.HasConfig {
		return runInitialSetup(status.ConfigPath)
	}

	for {
		displayConfigStatus(status)

		options := []string{
			"Catalog Store",
			"Ranking Defaults",
			"HTTP Server",
			"Image Viewer",
			"View Current Configuration",
			"Exit",
		}

		selected, err := ui.ShowMenu("What would you like to configure?", options)
		if err != nil {
			return err
		}

		switch selected {
		case 0:
			err = configureStoreMenu(cfg, status.ConfigPath)
		case 1:
			err = configureRankingMenu(cfg, status.ConfigPath)
		case 2:
			err = configureServerMenu(cfg, status.ConfigPath)
		case 3:
			err = configureViewerMenu(cfg, status.ConfigPath)
		case 4:
			viewCurrentConfiguration(status, cfg)
		case 5:
			ui.ShowInfo("Configuration menu closed")
			return nil
		}
		if err != nil {
			ui.ShowError(fmt.Sprintf("%s failed: %v", options[selected], err))
		}

		// Re-analyze after changes
		status, cfg, err = analyzeCurrentConfig(ctx)
		if err != nil {
			return fmt.Errorf("failed to reload configuration: %w", err)
		}
	}
}

func saveConfig(cfg *config.Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveTo(cfg, path); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	ui.ShowSuccess(fmt.Sprintf("Configuration saved to %s", path))
	return nil
}

func promptInt(message string, def int) (int, error) {
	s, err := ui.PromptInput(message, strconv.Itoa(def), true)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return n, nil
}

func formatDuration(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return "less than a minute"
	} else if duration < time.Hour {
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	} else if duration < 24*time.Hour {
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(duration.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
