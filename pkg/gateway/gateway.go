// Package gateway provides the typed client for the inventory backend's
// HTTP/JSON API. It owns no state: every method maps to exactly one network
// call and reports failures as *Error values classified by Kind so callers
// can tell what failed and why without inspecting transport details.
package gateway

import (
	"context"
	"io"
	"time"

	"github.com/greg-hellings/stockdash/pkg/inventory"
)

// Client defines the operations offered by the inventory backend.
// Implementations never retry; a failure is reported once and the caller
// decides whether to trigger the operation again.
type Client interface {
	// ListInventory retrieves the current inventory records in server order
	// Returns:
	//   - Records as sent by the server
	//   - *Error of KindConnection on transport failure, non-2xx status or an
	//     undecodable body
	ListInventory(ctx context.Context) ([]inventory.Record, error)

	// ListChartAggregates retrieves the chart-ready revenue/quantity rows
	// Failure semantics match ListInventory.
	ListChartAggregates(ctx context.Context) ([]inventory.ChartAggregate, error)

	// CreateRecord submits a manually entered record
	// Parameters:
	//   - itemName, quantity, price: values as typed by the operator; all three
	//     must be non-blank or KindValidation is returned without a network call
	// Returns:
	//   - *Error of KindServerRejected for non-2xx, KindConnection on transport failure
	CreateRecord(ctx context.Context, itemName, quantity, price string) error

	// UpdateRecord replaces quantity and unit price of an existing record
	// Parameters:
	//   - itemName: key of the record to update
	//   - quantity: staged value, parsed as an integer
	//   - price: staged value, parsed as a decimal
	// Returns:
	//   - *Error of KindValidation for blank values, KindParse for non-numeric
	//     values (both without a network call), otherwise as CreateRecord
	UpdateRecord(ctx context.Context, itemName, quantity, price string) error

	// DeleteRecord removes a record by key
	// Returns:
	//   - *Error of KindServerRejected or KindConnection
	DeleteRecord(ctx context.Context, itemName string) error

	// UploadReceipt sends a receipt image for OCR ingestion
	// Parameters:
	//   - filename: name reported in the multipart part
	//   - content: image bytes
	// Returns:
	//   - Label of the item the backend detected
	//   - *Error of KindOCRUnavailable on transport failure or unreadable reply,
	//     KindServerRejected for non-2xx
	UploadReceipt(ctx context.Context, filename string, content io.Reader) (string, error)

	// GetSalesInsights retrieves the insights panel payload
	// Failure semantics match ListInventory.
	GetSalesInsights(ctx context.Context) (*inventory.SalesInsights, error)
}

// Config holds the settings needed to reach the backend
type Config struct {
	// BaseURL is the scheme://host[:port][/prefix] the API paths are joined to
	BaseURL string

	// Timeout bounds each request. Zero keeps the transport default.
	Timeout time.Duration

	// UserAgent is sent with every request when set
	UserAgent string
}

// API paths of the backend contract.
const (
	pathInventory     = "/dashboard/analytics/"
	pathChartData     = "/dashboard/chart-data/"
	pathSalesInsights = "/dashboard/sales-insights/"
	pathUploadReceipt = "/upload-receipt/"
	pathCreateOrder   = "/create-order/"
	pathUpdateItem    = "/update-item/"
	pathDeleteOrder   = "/orders/"
)
