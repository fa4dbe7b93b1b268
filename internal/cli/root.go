package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/manumarlats408/stocks/internal/backend"
	"github.com/manumarlats408/stocks/internal/config"
	"github.com/manumarlats408/stocks/internal/logging"
	"github.com/manumarlats408/stocks/internal/portfolio"
	"github.com/manumarlats408/stocks/internal/quotes"
	"github.com/manumarlats408/stocks/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-08-31"
)

// App holds the application dependencies.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Backend    *backend.Client
	Provider   quotes.Provider
	Recorder   store.Recorder
	Controller *portfolio.Controller

	backendErr  error
	providerErr error
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	client, err := backend.New(cfg.Backend.URL, cfg.Backend.AnonKey, cfg.Backend.SessionFile, logger)
	if err != nil {
		app.backendErr = err
		logger.Debug().Err(err).Msg("Backend client unavailable")
	} else {
		app.Backend = client
		logger.Debug().Msg("Backend client initialized")
	}

	provider, err := quotes.NewTwelveDataClient(cfg.Quotes.BaseURL, cfg.Quotes.APIKey, logger)
	if err != nil {
		app.providerErr = err
		logger.Debug().Err(err).Msg("Quote provider unavailable")
	} else {
		app.Provider = provider
		logger.Debug().Msg("Quote provider initialized")
	}

	recorder, err := store.NewSQLiteRecorder(cfg.Store.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize snapshot store, history will be unavailable")
		app.Recorder = store.NewNoopRecorder()
	} else {
		app.Recorder = recorder
		logger.Debug().Str("path", cfg.Store.Path).Msg("Snapshot store initialized")
	}

	if app.Backend != nil && app.Provider != nil {
		app.Controller = portfolio.NewController(app.Backend, app.Provider, app.Recorder, logger)
	}

	rootCmd := &cobra.Command{
		Use:   "stocks",
		Short: "Personal stock portfolio tracker",
		Long: `Stocks is a personal portfolio tracker for US equities.

It keeps your holdings and price alerts in a hosted backend, fetches live
quotes from Twelve Data, and values your portfolio from the terminal.

Use 'stocks help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/stocks)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addAuthCommands(rootCmd, app)
	addHoldingCommands(rootCmd, app)
	addAlertCommands(rootCmd, app)
	addQuoteCommands(rootCmd, app)
	addExportCommands(rootCmd, app)

	return rootCmd
}

// requireController verifies the app is fully configured, printing setup
// guidance when it is not.
func (app *App) requireController(output *Output) error {
	if app.Controller != nil {
		return nil
	}
	output.Warning("Setup required before this command can run:")
	if app.backendErr != nil {
		output.Printf("  backend:  %v\n", app.backendErr)
		output.Dim("  set SUPABASE_URL and SUPABASE_ANON_KEY, or [backend] in config.toml")
	}
	if app.providerErr != nil {
		output.Printf("  quotes:   %v\n", app.providerErr)
		output.Dim("  set TWELVE_DATA_API_KEY, or [quotes] api_key in config.toml")
	}
	return fmt.Errorf("missing configuration")
}

// loadController ensures holdings and alerts are loaded for the session.
func (app *App) loadController(cmd *cobra.Command, output *Output) error {
	if err := app.requireController(output); err != nil {
		return err
	}
	return app.Controller.Load(cmd.Context())
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("stocks v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Quote Provider")
	output.Printf("  Base URL:     %s\n", cfg.Quotes.BaseURL)
	output.Printf("  API Key:      %s\n", maskSecret(cfg.Quotes.APIKey))
	output.Println()

	output.Bold("Backend")
	output.Printf("  URL:          %s\n", cfg.Backend.URL)
	output.Printf("  Anon Key:     %s\n", maskSecret(cfg.Backend.AnonKey))
	output.Printf("  Session File: %s\n", cfg.Backend.SessionFile)
	output.Println()

	output.Bold("Local Store")
	output.Printf("  Path:         %s\n", cfg.Store.Path)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:        %s\n", cfg.Logging.Level)
	output.Printf("  File:         %s\n", cfg.Logging.FilePath)
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
