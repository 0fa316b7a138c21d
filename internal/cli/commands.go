package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tradelens/tradelens/internal/analysis"
	"github.com/tradelens/tradelens/internal/config"
	"github.com/tradelens/tradelens/internal/debug"
	"github.com/tradelens/tradelens/internal/server"
	"github.com/tradelens/tradelens/internal/storage"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "tradelens",
		Short: "TradeLens - stock trend and news sentiment insight",
		Long: `TradeLens pulls intraday prices and recent news for a stock symbol,
scores the news with a sentiment lexicon, and turns both into a
Buy/Sell/Hold call. Run 'serve' for the web UI or 'analyze' from the terminal.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debugFlag, _ := cmd.Flags().GetBool("debug"); debugFlag {
				cfg.Debug = true
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractiveMode(cfg)
		},
	}

	rootCmd.AddCommand(newServeCmd(cfg))
	rootCmd.AddCommand(newAnalyzeCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(cfg))

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")

	return rootCmd
}

// newServeCmd creates the serve command
func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the TradeLens web server",
		Long: `Start the login-gated web UI. Analyses run on demand per symbol and
results are kept in the local history database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.HTTPAddr = addr
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (overrides HTTP_ADDR)")

	return cmd
}

func runServe(cfg *config.Config) error {
	// The served config lives in a managed file under the data dir; the env
	// seeds it on first run and explicitly exported variables always win.
	mgr, err := config.NewManager(
		config.WithConfigDir(cfg.DataDir),
		config.WithInitialConfig(cfg),
	)
	if err != nil {
		return fmt.Errorf("init config manager: %w", err)
	}
	effective := mgr.Get()
	effective.ApplyEnvOverrides()
	cfg = &effective

	store, err := storage.NewStore(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AdminUser != "" && cfg.AdminPassword != "" {
		if err := store.UpsertUser(ctx, cfg.AdminUser, cfg.AdminPassword); err != nil {
			return fmt.Errorf("seed admin user: %w", err)
		}
	} else {
		log.Println("ADMIN_PASSWORD not set, no login will succeed until a user exists")
	}

	if cfg.EinoDebugEnabled {
		if err := debug.NewEinoDebugger(cfg).Initialize(); err != nil {
			log.Printf("eino debug init failed: %v", err)
		}
	}

	svc, err := analysis.NewServiceFromConfig(cfg, store)
	if err != nil {
		return fmt.Errorf("build analysis service: %w", err)
	}

	srv, err := server.NewServer(cfg, svc, store)
	if err != nil {
		return fmt.Errorf("build web server: %w", err)
	}

	// Edits to the config file rebuild the provider stack without a restart.
	err = mgr.Watch(ctx, func(updated config.Config) {
		updated.ApplyEnvOverrides()
		next, err := analysis.NewServiceFromConfig(&updated, store)
		if err != nil {
			log.Printf("config reloaded but provider rebuild failed: %v", err)
			return
		}
		srv.SetAnalyzer(next)
		log.Printf("configuration reloaded from %s", mgr.Path())
	})
	if err != nil {
		log.Printf("config watch unavailable: %v", err)
	}

	return srv.Start(ctx)
}

// newAnalyzeCmd creates the analyze command
func newAnalyzeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [SYMBOL]",
		Short: "Run a one-off analysis for a stock symbol",
		Long: `Fetch prices and news for a symbol and print the resulting call.
Example: tradelens analyze AAPL`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := ""
			if len(args) > 0 {
				symbol = args[0]
			} else {
				s, err := PromptForSymbol()
				if err != nil {
					return err
				}
				symbol = s
			}
			return runAnalyzeCommand(cfg, symbol)
		},
	}
}

// runAnalyzeCommand executes one analysis and renders it to the terminal.
func runAnalyzeCommand(cfg *config.Config, symbol string) error {
	ctx := context.Background()

	// History persistence is best effort in CLI mode.
	var store *storage.Store
	if s, err := storage.NewStore(cfg.DatabasePath); err != nil {
		log.Printf("history database unavailable: %v", err)
	} else {
		store = s
		defer store.Close()
	}

	svc, err := analysis.NewServiceFromConfig(cfg, store)
	if err != nil {
		return fmt.Errorf("build analysis service: %w", err)
	}

	result, err := svc.Analyze(ctx, symbol, DisplayProgress)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	fmt.Println(RenderResult(result))
	return nil
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("TradeLens v1.0.0")
			fmt.Println("Stock trend and news sentiment insight")
		},
	}
}

// newConfigCmd creates the config command
func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "Inspect and validate TradeLens configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration (secrets masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := json.MarshalIndent(cfg.Redacted(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cfg)
		},
	})

	return configCmd
}

// validateConfig validates the configuration and reports what will degrade.
func validateConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("directory validation failed: %w", err)
	}

	var warnings []string
	if cfg.MarketProvider == "alphavantage" && cfg.AlphaVantageAPIKey == "" {
		warnings = append(warnings, "ALPHA_VANTAGE_API_KEY not set, falling back to Yahoo Finance")
	}
	if cfg.SerperAPIKey == "" {
		warnings = append(warnings, "SERPER_API_KEY not set, news comes from the Google News scraper")
	}
	if cfg.AgentsEnabled && cfg.LLMAPIKey() == "" {
		warnings = append(warnings, fmt.Sprintf("no API key for LLM provider %q, agent crew disabled", cfg.LLMProvider))
	}
	if cfg.AdminPassword == "" {
		warnings = append(warnings, "ADMIN_PASSWORD not set, the web UI will have no seeded login")
	}

	if len(warnings) == 0 {
		DisplaySuccess("Configuration is valid.")
		return nil
	}
	DisplaySuccess("Configuration is valid, with warnings:")
	for _, w := range warnings {
		DisplayInfo("  • " + w)
	}
	return nil
}

// runInteractiveMode loops prompting for symbols and printing results.
func runInteractiveMode(cfg *config.Config) error {
	DisplayWelcomeBanner()

	var store *storage.Store
	if s, err := storage.NewStore(cfg.DatabasePath); err != nil {
		log.Printf("history database unavailable: %v", err)
	} else {
		store = s
		defer store.Close()
	}

	svc, err := analysis.NewServiceFromConfig(cfg, store)
	if err != nil {
		return fmt.Errorf("build analysis service: %w", err)
	}

	ctx := context.Background()
	for {
		symbol, err := PromptForSymbol()
		if err != nil {
			// survey returns an error on Ctrl-C
			return nil
		}

		result, err := svc.Analyze(ctx, symbol, DisplayProgress)
		if err != nil {
			DisplayError(err)
		} else {
			fmt.Println(RenderResult(result))
		}

		again, err := PromptContinue()
		if err != nil || !again {
			return nil
		}
	}
}
