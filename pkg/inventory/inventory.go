// Package inventory defines the records exchanged with the inventory backend:
// stock records enriched with server-side analytics, chart aggregates and
// sales insights. Values here are plain copies of what the server sent; the
// client never derives or corrects server-owned fields.
package inventory

import (
	"github.com/shopspring/decimal"
)

// RiskLevel is the server-assigned inventory risk label. The vocabulary is
// owned by the backend, so unknown values are kept verbatim.
type RiskLevel string

const (
	// RiskLow marks items with comfortable stock relative to demand.
	RiskLow RiskLevel = "low"
	// RiskMedium marks items that should be watched.
	RiskMedium RiskLevel = "medium"
	// RiskHigh marks items likely to run out.
	RiskHigh RiskLevel = "high"
)

// StyleClass returns the display class for the label, or "" when the label
// is outside the known set and should render unstyled.
func (r RiskLevel) StyleClass() string {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return string(r)
	default:
		return ""
	}
}

// Record is one inventory row as returned by the analytics endpoint.
// ItemName is the identity key and is case-sensitive.
type Record struct {
	ItemName          string          `json:"item_name"`
	Quantity          int             `json:"quantity"`
	Price             decimal.Decimal `json:"price"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	DemandProbability float64         `json:"demand_probability"`
	InventoryRisk     RiskLevel       `json:"inventory_risk"`
}

// ChartAggregate is one row of the chart-data endpoint. Name is expected to
// match a Record.ItemName but nothing enforces it.
type ChartAggregate struct {
	Name     string          `json:"name"`
	Revenue  decimal.Decimal `json:"revenue"`
	Quantity int             `json:"quantity"`
}

// SalesInsight is a single headline produced by the backend.
type SalesInsight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// InsightsSummary holds the totals shown above the insight cards.
type InsightsSummary struct {
	TotalItems    int             `json:"total_items"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalQuantity int             `json:"total_quantity"`
}

// SalesInsights is the payload of the sales-insights endpoint.
type SalesInsights struct {
	Insights []SalesInsight   `json:"insights"`
	Summary  *InsightsSummary `json:"summary"`
}

// Names returns the item names of records in order.
func Names(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ItemName)
	}
	return out
}

// Contains reports whether records holds an entry keyed by itemName.
func Contains(records []Record, itemName string) bool {
	for _, r := range records {
		if r.ItemName == itemName {
			return true
		}
	}
	return false
}
