// Package format provides console rendering for the inventory dashboard.
// It adapts column widths to the terminal and supports color and truncation.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"

	"github.com/greg-hellings/stockdash/pkg/dashboard"
	"github.com/greg-hellings/stockdash/pkg/inventory"
	"github.com/greg-hellings/stockdash/pkg/view"
)

// ConsoleFormatter renders dashboard views as terminal tables.
type ConsoleFormatter struct {
	// MaxItemColWidth constrains the item name column. If 0, a width is
	// derived from the terminal width.
	MaxItemColWidth int

	// BarWidth is the widest revenue bar in cells. If 0, 30 is used.
	BarWidth int

	// EnableColors toggles ANSI color output for risk labels and status.
	EnableColors bool
}

// NewConsoleFormatter creates a formatter with sensible defaults.
func NewConsoleFormatter() *ConsoleFormatter {
	return &ConsoleFormatter{EnableColors: true}
}

// RenderDashboard writes the summary, search line, inventory table and status.
func (f *ConsoleFormatter) RenderDashboard(v dashboard.View, w io.Writer) error {
	if v.Summary.Count > 0 {
		if err := f.renderSummary(v.Summary, w); err != nil {
			return err
		}
	}
	if v.Search != "" {
		if _, err := fmt.Fprintf(w, "Search: %q  %d Item(s)\n", v.Search, v.MatchCount); err != nil {
			return fmt.Errorf("failed writing search line: %w", err)
		}
	}
	if err := f.RenderInventory(v.Filtered, v.Edit.Target, v.Edit.DraftQuantity, v.Edit.DraftPrice, w); err != nil {
		return err
	}
	return f.RenderStatus(v.Status, w)
}

// RenderInventory writes the inventory table. When editingItem is non-empty
// that row shows the staged draft values in place of quantity and price.
func (f *ConsoleFormatter) RenderInventory(records []inventory.Record, editingItem, draftQty, draftPrice string, w io.Writer) error {
	if len(records) == 0 {
		if _, err := fmt.Fprintln(w, "No inventory items."); err != nil {
			return fmt.Errorf("failed writing empty inventory line: %w", err)
		}
		return nil
	}

	tw := newTable(w)
	tw.AppendHeader(table.Row{"Stock Item", "Quantity", "Unit Price", "Total Price", "Demand Prob.", "Risk Assessment"})
	if cfg := f.inventoryColumns(records, w); cfg != nil {
		tw.SetColumnConfigs(cfg)
	}

	for _, r := range records {
		name := r.ItemName
		qty := fmt.Sprintf("%d", r.Quantity)
		price := "$" + r.Price.StringFixed(2)
		if editingItem != "" && r.ItemName == editingItem {
			name = "✎ " + name
			qty = f.color("["+draftQty+"]", text.FgCyan)
			price = f.color("[$"+draftPrice+"]", text.FgCyan)
		}
		tw.AppendRow(table.Row{
			name,
			qty,
			price,
			"$" + r.TotalPrice.StringFixed(2),
			fmt.Sprintf("%.1f%%", r.DemandProbability*100),
			f.riskCell(r.InventoryRisk),
		})
	}

	tw.Render()
	return nil
}

// RenderStatus writes the status line.
func (f *ConsoleFormatter) RenderStatus(msg string, w io.Writer) error {
	c := text.FgGreen
	if strings.HasPrefix(msg, "Error") {
		c = text.FgRed
	}
	if _, err := fmt.Fprintf(w, "\nStatus: %s\n", f.color(msg, c)); err != nil {
		return fmt.Errorf("failed writing status line: %w", err)
	}
	return nil
}

func (f *ConsoleFormatter) renderSummary(s view.Summary, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Items in Stock: %d   Total Quantity: %d   Total Value: $%s\n\n",
		s.Count, s.TotalQuantity, s.TotalValue.StringFixed(2)); err != nil {
		return fmt.Errorf("failed writing summary: %w", err)
	}
	return nil
}

// RenderCharts writes the revenue bar chart followed by the quantity share table.
func (f *ConsoleFormatter) RenderCharts(rows []view.ChartRow, w io.Writer) error {
	if len(rows) == 0 {
		if _, err := fmt.Fprintln(w, "No chart data."); err != nil {
			return fmt.Errorf("failed writing empty chart line: %w", err)
		}
		return nil
	}

	width := f.BarWidth
	if width <= 0 {
		width = 30
	}
	maxRevenue := view.MaxRevenue(rows)

	bars := newTable(w)
	bars.SetTitle("Revenue by Item")
	bars.AppendHeader(table.Row{"Item", "Revenue", ""})
	for _, r := range rows {
		bar := strings.Repeat("█", view.BarLength(r.Revenue, maxRevenue, width))
		bars.AppendRow(table.Row{r.Name, "$" + r.Revenue.StringFixed(2), f.color(bar, text.FgBlue)})
	}
	bars.Render()

	if _, err := fmt.Fprintln(w); err != nil {
		return fmt.Errorf("failed writing chart spacer newline: %w", err)
	}

	shares := newTable(w)
	shares.SetTitle("Quantity Share")
	shares.AppendHeader(table.Row{"Item", "Quantity", "Share"})
	for _, r := range rows {
		shares.AppendRow(table.Row{r.Name, r.Quantity, fmt.Sprintf("%.1f%%", r.Share*100)})
	}
	shares.Render()
	return nil
}

// RenderInsights writes the insights panel.
func (f *ConsoleFormatter) RenderInsights(v dashboard.InsightsView, w io.Writer) error {
	switch {
	case v.Loading:
		if _, err := fmt.Fprintln(w, "Loading business insights..."); err != nil {
			return fmt.Errorf("failed writing insights loading line: %w", err)
		}
		return nil
	case v.Error != "":
		if _, err := fmt.Fprintln(w, f.color(v.Error, text.FgRed)); err != nil {
			return fmt.Errorf("failed writing insights error: %w", err)
		}
		return nil
	}

	if _, err := fmt.Fprintln(w, "Sales Highlights"); err != nil {
		return fmt.Errorf("failed writing insights header: %w", err)
	}
	if s := v.Summary; s != nil {
		if _, err := fmt.Fprintf(w, "  %d Products   $%s Total Revenue   %d Units Sold\n",
			s.TotalItems, s.TotalRevenue.StringFixed(2), s.TotalQuantity); err != nil {
			return fmt.Errorf("failed writing insights summary: %w", err)
		}
	}
	if len(v.Insights) == 0 {
		return nil
	}

	tw := newTable(w)
	tw.Style().Options.SeparateRows = true
	for _, in := range v.Insights {
		tw.AppendRow(table.Row{f.color(in.Title, text.Bold), in.Description})
	}
	tw.Render()
	return nil
}

// RenderJSON writes records as indented JSON in the backend's field names.
func RenderJSON(records []inventory.Record, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed encoding records: %w", err)
	}
	return nil
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateRows = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.DrawBorder = true
	return tw
}

func (f *ConsoleFormatter) riskCell(risk inventory.RiskLevel) string {
	switch risk.StyleClass() {
	case string(inventory.RiskHigh):
		return f.color(string(risk), text.FgRed)
	case string(inventory.RiskMedium):
		return f.color(string(risk), text.FgYellow)
	case string(inventory.RiskLow):
		return f.color(string(risk), text.FgGreen)
	default:
		return string(risk)
	}
}

// inventoryColumns bounds the item column so the table fits the terminal.
func (f *ConsoleFormatter) inventoryColumns(records []inventory.Record, w io.Writer) []table.ColumnConfig {
	itemWidth := f.MaxItemColWidth
	if itemWidth <= 0 {
		termWidth := detectTerminalWidth(w)
		if termWidth <= 0 {
			return nil
		}
		if termWidth < 80 {
			termWidth = 80
		}
		// the five numeric columns need roughly 60 cells with padding
		itemWidth = termWidth - 60
		// two extra cells for the edit marker
		if longest := longestName(records) + 2; longest < itemWidth {
			itemWidth = longest
		}
		if itemWidth < 12 {
			itemWidth = 12
		}
	}
	return []table.ColumnConfig{{
		Number:      1,
		WidthMax:    itemWidth,
		WidthMin:    minInt(10, itemWidth),
		Transformer: truncTransformer(itemWidth),
	}}
}

func longestName(records []inventory.Record) int {
	n := 0
	for _, r := range records {
		if l := utf8.RuneCountInString(r.ItemName); l > n {
			n = l
		}
	}
	return n
}

// detectTerminalWidth attempts to get terminal width if writer is a file (stdout/stderr).
func detectTerminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			return width
		}
	}
	return -1
}

// truncTransformer returns a text.Transformer to ellipsize overly wide cells.
func truncTransformer(max int) text.Transformer {
	return func(val interface{}) string {
		return truncateRunes(fmt.Sprint(val), max)
	}
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	var b strings.Builder
	count := 0
	for _, r := range s {
		if count >= max-1 {
			break
		}
		b.WriteRune(r)
		count++
	}
	b.WriteRune('…')
	return b.String()
}

func (f *ConsoleFormatter) color(s string, c text.Color) string {
	if !f.EnableColors {
		return s
	}
	return text.Colors{c}.Sprint(s)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
