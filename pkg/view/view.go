// Package view derives what the dashboard displays from a store snapshot.
// Every function is pure: inputs are never modified and results are rebuilt
// on each call.
package view

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/greg-hellings/stockdash/pkg/inventory"
)

// Summary holds the totals shown above the inventory table.
type Summary struct {
	Count         int
	TotalQuantity int
	TotalValue    decimal.Decimal
}

// ChartRow is one bar of the revenue chart and one slice of the quantity pie.
type ChartRow struct {
	Name     string
	Revenue  decimal.Decimal
	Quantity int
	// Share is Quantity divided by the sum of all quantities, in [0,1].
	Share float64
}

// Filter returns the records whose item name contains query, ignoring case.
// An empty query returns every record in the original order.
func Filter(records []inventory.Record, query string) []inventory.Record {
	out := make([]inventory.Record, 0, len(records))
	if query == "" {
		return append(out, records...)
	}
	needle := strings.ToLower(query)
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.ItemName), needle) {
			out = append(out, r)
		}
	}
	return out
}

// Summarize totals records. TotalValue adds up the server's total_price as
// sent, never quantity × price.
func Summarize(records []inventory.Record) Summary {
	s := Summary{Count: len(records), TotalValue: decimal.Zero}
	for _, r := range records {
		s.TotalQuantity += r.Quantity
		s.TotalValue = s.TotalValue.Add(r.TotalPrice)
	}
	return s
}

// GroupForCharts passes the aggregates through in order and computes each
// row's share of the total quantity.
func GroupForCharts(aggregates []inventory.ChartAggregate) []ChartRow {
	total := 0
	for _, a := range aggregates {
		total += a.Quantity
	}

	rows := make([]ChartRow, 0, len(aggregates))
	for _, a := range aggregates {
		row := ChartRow{Name: a.Name, Revenue: a.Revenue, Quantity: a.Quantity}
		if total > 0 {
			row.Share = float64(a.Quantity) / float64(total)
		}
		rows = append(rows, row)
	}
	return rows
}

// MaxRevenue returns the largest revenue among rows, or zero.
func MaxRevenue(rows []ChartRow) decimal.Decimal {
	maxRev := decimal.Zero
	for _, r := range rows {
		if r.Revenue.GreaterThan(maxRev) {
			maxRev = r.Revenue
		}
	}
	return maxRev
}

// BarLength scales value against maxValue onto width cells. Positive values
// always get at least one cell so they stay visible next to the largest bar.
func BarLength(value, maxValue decimal.Decimal, width int) int {
	if width <= 0 || !maxValue.IsPositive() || !value.IsPositive() {
		return 0
	}
	n := int(value.Div(maxValue).Mul(decimal.NewFromInt(int64(width))).Round(0).IntPart())
	if n < 1 {
		n = 1
	}
	if n > width {
		n = width
	}
	return n
}
