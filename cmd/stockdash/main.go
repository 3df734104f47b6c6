package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/greg-hellings/stockdash/pkg/config"
	"github.com/greg-hellings/stockdash/pkg/dashboard"
	consolefmt "github.com/greg-hellings/stockdash/pkg/dashboard/format"
	"github.com/greg-hellings/stockdash/pkg/gateway"
	"github.com/greg-hellings/stockdash/pkg/store"
)

// build-time override (e.g. -ldflags "-X main.version=1.2.3")
var version = "dev"

// Global (root-level) flag variables
var (
	flagConfig  string
	flagBaseURL string
	flagTimeout time.Duration
	flagNoColor bool
	flagVerbose bool
	flagDebug   bool
)

func main() {
	root := newRootCmd()
	root.SilenceUsage = true
	root.SilenceErrors = true

	if err := root.Execute(); err != nil {
		// If Execute() returns an error, logging may or may not be initialized yet.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root Cobra command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stockdash",
		Short: "Inventory dashboard CLI",
		Long: strings.TrimSpace(`
stockdash - terminal dashboard for the inventory backend

Lists inventory with demand and risk figures, shows revenue and quantity
charts, and lets you create, edit and delete records or ingest a receipt
through the backend's OCR endpoint. Run 'stockdash shell' for an interactive
session that keeps the dashboard state between commands.`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initLogging()
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to a YAML or TOML config file")
	cmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "Backend URL (overrides config; default "+config.DefaultBaseURL+")")
	cmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "Per-request timeout (overrides config; 0 = none)")
	cmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable ANSI colors")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose (info) logging")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging (overrides --verbose)")
	cmd.Version = version

	// Add subcommands
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newChartsCmd())
	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newInsightsCmd())
	cmd.AddCommand(newShellCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// newVersionCmd prints version info (simple helper).
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stockdash version: %s\n", version)
		},
	}
}

func initLogging() {
	var level slog.Level
	switch {
	case flagDebug:
		level = slog.LevelDebug
	case flagVerbose:
		level = slog.LevelInfo
	default:
		level = slog.LevelWarn
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging initialized", "level", level.String())
}

// loadConfig reads the config file when given and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.LoadFromFile(flagConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.Backend.BaseURL = flagBaseURL
	}
	if flags.Changed("timeout") {
		cfg.Backend.Timeout = flagTimeout.String()
	}
	if flagNoColor {
		cfg.Console.NoColor = true
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Info("Configuration loaded",
		"configFile", flagConfig,
		"baseURL", cfg.Backend.BaseURL,
		"timeout", cfg.Backend.TimeoutDuration().String())
	return cfg, nil
}

// app bundles what every subcommand needs.
type app struct {
	cfg       *config.Config
	client    *gateway.HTTPClient
	dash      *dashboard.Dashboard
	formatter *consolefmt.ConsoleFormatter
	out       io.Writer
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	client, err := gateway.NewHTTPClient(gateway.Config{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.Backend.TimeoutDuration(),
		UserAgent: "stockdash/" + version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	formatter := consolefmt.NewConsoleFormatter()
	formatter.EnableColors = !cfg.Console.NoColor
	formatter.MaxItemColWidth = cfg.Console.ItemColWidth

	return &app{
		cfg:       cfg,
		client:    client,
		dash:      dashboard.New(client, client.BaseURL()),
		formatter: formatter,
		out:       cmd.OutOrStdout(),
	}, nil
}

// refresh loads the store. A failed chart half is tolerated unless
// needCharts is set; a failed inventory half always fails.
func (a *app) refresh(ctx context.Context, needCharts bool) error {
	err := a.dash.Refresh(ctx)
	if err == nil {
		return nil
	}
	var refreshErr *store.RefreshError
	if errors.As(err, &refreshErr) && refreshErr.Inventory == nil && !needCharts {
		slog.Warn("Chart data unavailable", "error", refreshErr.Charts)
		return nil
	}
	return fmt.Errorf("cannot connect to backend at %s: %w", a.dash.BaseURL(), err)
}

// printStatus writes the current status line.
func (a *app) printStatus() error {
	return a.formatter.RenderStatus(a.dash.Status().Current(), a.out)
}
