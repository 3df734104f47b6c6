// Package status keeps the single operator-facing status line. There is no
// history: every Set replaces the previous message.
package status

import (
	"fmt"
	"log/slog"
	"sync"
)

// Fixed operator messages.
const (
	Ready          = "Ready to scan receipts..."
	ReadingReceipt = "AI is reading receipt..."
	OCROffline     = "Error: OCR Engine Offline"
	UploadFailed   = "Error: receipt upload failed"
	FillAllFields  = "Please fill in all fields"
	CreateFailed   = "Error creating item"
	UpdateFailed   = "Error updating item"
	NotNumeric     = "Error: quantity and price must be numeric"
	Deleted        = "Item deleted successfully"
	DeleteFailed   = "Error deleting item"
	NotEditing     = "No item is being edited"
)

// Detected reports the item label the OCR step returned.
func Detected(item string) string {
	return fmt.Sprintf("Detected: %s", item)
}

// Created reports a successful manual create.
func Created(item string) string {
	return fmt.Sprintf("Item %q created successfully", item)
}

// Updated reports a successful edit commit.
func Updated(item string) string {
	return fmt.Sprintf("Item %q updated successfully", item)
}

// CannotConnect reports a failed refresh.
func CannotConnect(baseURL string) string {
	return "Error: Cannot connect to backend at " + baseURL
}

// Reporter holds the current message. It is safe for concurrent use.
type Reporter struct {
	mu       sync.RWMutex
	current  string
	onChange func(string)
}

// NewReporter returns a reporter showing Ready.
func NewReporter() *Reporter {
	return &Reporter{current: Ready}
}

// OnChange registers fn to be called after every Set.
func (r *Reporter) OnChange(fn func(string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// Set replaces the current message.
func (r *Reporter) Set(msg string) {
	r.mu.Lock()
	r.current = msg
	fn := r.onChange
	r.mu.Unlock()

	slog.Info("Status updated", "status", msg)
	if fn != nil {
		fn(msg)
	}
}

// Current returns the newest message.
func (r *Reporter) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}
