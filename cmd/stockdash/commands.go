package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/greg-hellings/stockdash/pkg/dashboard"
	consolefmt "github.com/greg-hellings/stockdash/pkg/dashboard/format"
	"github.com/greg-hellings/stockdash/pkg/session"
)

// list command flags
type listFlags struct {
	search       string
	outputFormat string
}

var lsFlags listFlags

func newListCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "list",
		Short: "Show inventory with summary and risk assessment",
		Long: strings.TrimSpace(`
Show the current inventory. The summary always covers every item; --search
narrows the table to items whose name contains the query (case-insensitive).

Formats:
  console (default) - adaptive terminal table
  json              - the matching records as returned by the backend

Examples:
  stockdash list
  stockdash list --search rice
  stockdash list --format json
`),
		Args: cobra.NoArgs,
		RunE: runList,
	}
	c.Flags().StringVarP(&lsFlags.search, "search", "s", "", "Only show items whose name contains this text")
	c.Flags().StringVarP(&lsFlags.outputFormat, "format", "f", "console", "Output format: console|json")
	return c
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	if err := a.refresh(cmd.Context(), false); err != nil {
		return err
	}
	a.dash.SetSearch(lsFlags.search)
	v := a.dash.View()

	switch strings.ToLower(lsFlags.outputFormat) {
	case "console":
		if err := a.formatter.RenderDashboard(v, a.out); err != nil {
			return fmt.Errorf("failed to render console output: %w", err)
		}
	case "json":
		if err := consolefmt.RenderJSON(v.Filtered, a.out); err != nil {
			return fmt.Errorf("failed to render JSON output: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format: %s", lsFlags.outputFormat)
	}
	return nil
}

func newChartsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "charts",
		Short: "Show revenue per item and each item's share of total quantity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if err := a.refresh(cmd.Context(), true); err != nil {
				return err
			}
			return a.formatter.RenderCharts(a.dash.View().Charts, a.out)
		},
	}
}

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <item> <quantity> <price>",
		Short: "Create an inventory record",
		Long: strings.TrimSpace(`
Create an inventory record. Quantity and price are sent as typed; the backend
validates them and computes the total, demand probability and risk.

Example:
  stockdash create "Basmati Rice" 10 2.50
`),
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			err = a.dash.CreateRecord(cmd.Context(), args[0], args[1], args[2])
			if perr := a.printStatus(); perr != nil {
				return perr
			}
			return err
		},
	}
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <item> <quantity> <price>",
		Short: "Replace the quantity and unit price of an existing record",
		Long: strings.TrimSpace(`
Replace the quantity and unit price of an existing record. The item must be
present in the current inventory. Quantity must be an integer and price a
decimal number; both are checked before anything is sent.

Example:
  stockdash update "Basmati Rice" 20 2.75
`),
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if err := a.refresh(cmd.Context(), false); err != nil {
				return err
			}
			if err := a.dash.StartEdit(args[0]); err != nil {
				return err
			}
			if err := a.dash.UpdateDraft(session.FieldQuantity, args[1]); err != nil {
				return err
			}
			if err := a.dash.UpdateDraft(session.FieldPrice, args[2]); err != nil {
				return err
			}
			err = a.dash.CommitEdit(cmd.Context())
			if perr := a.printStatus(); perr != nil {
				return perr
			}
			return err
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <item>",
		Short: "Delete an inventory record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			err = a.dash.Delete(cmd.Context(), args[0])
			if perr := a.printStatus(); perr != nil {
				return perr
			}
			return err
		},
	}
}

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <receipt-file>",
		Short: "Send a receipt image to the backend for OCR ingestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			return a.upload(cmd.Context(), args[0])
		},
	}
}

func (a *app) upload(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open receipt: %w", err)
	}
	defer f.Close()

	_, err = a.dash.UploadReceipt(ctx, filepath.Base(path), f)
	if perr := a.printStatus(); perr != nil {
		return perr
	}
	return err
}

// insights command flags
var insightsWatch bool

func newInsightsCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "insights",
		Short: "Show sales highlights",
		Long: strings.TrimSpace(`
Show the backend's sales highlights. With --watch the panel is reloaded every
insights.poll_interval (default 5m) until interrupted.
`),
		Args: cobra.NoArgs,
		RunE: runInsights,
	}
	c.Flags().BoolVarP(&insightsWatch, "watch", "w", false, "Keep reloading until interrupted")
	return c
}

func runInsights(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	poller := dashboard.NewInsightsPoller(a.client, a.cfg.Insights.Interval())

	if !insightsWatch {
		v := poller.Fetch(cmd.Context())
		if err := a.formatter.RenderInsights(v, a.out); err != nil {
			return err
		}
		if v.Error != "" {
			return errors.New(v.Error)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poller.OnUpdate(func(v dashboard.InsightsView) {
		fmt.Fprintf(a.out, "\n[%s]\n", v.UpdatedAt.Format("15:04:05"))
		if err := a.formatter.RenderInsights(v, a.out); err != nil {
			slog.Warn("Rendering insights failed", "error", err)
		}
	})
	poller.Start(ctx)
	<-ctx.Done()
	poller.Stop()
	return nil
}
