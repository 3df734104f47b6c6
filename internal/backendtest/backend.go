// Package backendtest provides an in-memory implementation of the inventory
// backend's HTTP contract for tests. It computes the server-owned fields
// (total price, demand probability, risk label) with simple deterministic
// rules and lets tests force failures per route.
package backendtest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/greg-hellings/stockdash/pkg/inventory"
)

// Route identifies one endpoint of the contract.
type Route string

const (
	RouteInventory Route = "inventory"
	RouteCharts    Route = "charts"
	RouteInsights  Route = "insights"
	RouteUpload    Route = "upload"
	RouteCreate    Route = "create"
	RouteUpdate    Route = "update"
	RouteDelete    Route = "delete"
)

type item struct {
	name     string
	quantity int
	price    decimal.Decimal
}

// Backend is a fake inventory server. The zero value is not usable; call New.
type Backend struct {
	mu     sync.Mutex
	items  []item
	forced map[Route]int
	calls  map[Route]int
	bodies map[Route][]byte
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{
		forced: make(map[Route]int),
		calls:  make(map[Route]int),
		bodies: make(map[Route][]byte),
	}
}

// Seed adds an item; price must be a valid decimal literal.
func (b *Backend) Seed(name string, quantity int, price string) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, item{name: name, quantity: quantity, price: decimal.RequireFromString(price)})
	return b
}

// FailWith makes every request to route answer with status until Recover is called.
func (b *Backend) FailWith(route Route, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forced[route] = status
}

// Recover clears a forced failure.
func (b *Backend) Recover(route Route) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.forced, route)
}

// Calls returns how many requests reached route.
func (b *Backend) Calls(route Route) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// LastBody returns the raw body of the most recent request to route.
func (b *Backend) LastBody(route Route) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.bodies[route]...)
}

// Records returns the records the analytics endpoint would currently serve.
func (b *Backend) Records() []inventory.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recordsLocked()
}

// Handler returns the chi router serving the contract.
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/dashboard/analytics/", b.route(RouteInventory, b.listInventory))
	r.Get("/dashboard/chart-data/", b.route(RouteCharts, b.listCharts))
	r.Get("/dashboard/sales-insights/", b.route(RouteInsights, b.salesInsights))
	r.Post("/upload-receipt/", b.route(RouteUpload, b.uploadReceipt))
	r.Post("/create-order/", b.route(RouteCreate, b.createOrder))
	r.Put("/update-item/{item_name}", b.route(RouteUpdate, b.updateItem))
	r.Delete("/orders/{item_name}", b.route(RouteDelete, b.deleteOrder))
	return r
}

// Server starts an httptest server closed when t finishes.
func (b *Backend) Server(t testing.TB) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func (b *Backend) route(name Route, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[name]++
		status, forced := b.forced[name]
		b.mu.Unlock()

		if forced {
			writeJSON(w, status, map[string]string{"detail": "forced failure"})
			return
		}
		h(w, r)
	}
}

func (b *Backend) recordsLocked() []inventory.Record {
	out := make([]inventory.Record, 0, len(b.items))
	for _, it := range b.items {
		out = append(out, inventory.Record{
			ItemName:          it.name,
			Quantity:          it.quantity,
			Price:             it.price,
			TotalPrice:        it.price.Mul(decimal.NewFromInt(int64(it.quantity))),
			DemandProbability: 10.0 / float64(it.quantity+10),
			InventoryRisk:     riskFor(it.quantity),
		})
	}
	return out
}

func riskFor(quantity int) inventory.RiskLevel {
	switch {
	case quantity < 5:
		return inventory.RiskHigh
	case quantity < 20:
		return inventory.RiskMedium
	default:
		return inventory.RiskLow
	}
}

func (b *Backend) indexLocked(name string) int {
	for i, it := range b.items {
		if it.name == name {
			return i
		}
	}
	return -1
}

func (b *Backend) listInventory(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	records := b.recordsLocked()
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, records)
}

func (b *Backend) listCharts(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	records := b.recordsLocked()
	b.mu.Unlock()

	rows := make([]inventory.ChartAggregate, 0, len(records))
	for _, rec := range records {
		rows = append(rows, inventory.ChartAggregate{
			Name:     rec.ItemName,
			Revenue:  rec.TotalPrice,
			Quantity: rec.Quantity,
		})
	}
	writeJSON(w, http.StatusOK, rows)
}

func (b *Backend) salesInsights(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	records := b.recordsLocked()
	b.mu.Unlock()

	summary := inventory.InsightsSummary{TotalItems: len(records)}
	insights := []inventory.SalesInsight{}
	var top *inventory.Record
	lowStock := 0
	for i := range records {
		rec := &records[i]
		summary.TotalRevenue = summary.TotalRevenue.Add(rec.TotalPrice)
		summary.TotalQuantity += rec.Quantity
		if top == nil || rec.TotalPrice.GreaterThan(top.TotalPrice) {
			top = rec
		}
		if rec.InventoryRisk == inventory.RiskHigh {
			lowStock++
		}
	}
	if top != nil {
		insights = append(insights, inventory.SalesInsight{
			Title:       "Top Seller",
			Description: fmt.Sprintf("%s leads with $%s in revenue", top.ItemName, top.TotalPrice.StringFixed(2)),
		})
	}
	if lowStock > 0 {
		insights = append(insights, inventory.SalesInsight{
			Title:       "Restock Soon",
			Description: fmt.Sprintf("%d item(s) are at high inventory risk", lowStock),
		})
	}

	writeJSON(w, http.StatusOK, inventory.SalesInsights{Insights: insights, Summary: &summary})
}

type orderRequest struct {
	ItemName string      `json:"item_name"`
	Quantity json.Number `json:"quantity"`
	Price    json.Number `json:"price"`
}

func (b *Backend) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !b.decode(w, r, RouteCreate, &req) {
		return
	}
	it, err := parseItem(req.ItemName, req.Quantity.String(), req.Price.String())
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.indexLocked(it.name) >= 0 {
		writeJSON(w, http.StatusConflict, map[string]string{"detail": "item already exists"})
		return
	}
	b.items = append(b.items, it)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "Order Created",
		"item":       it.name,
		"total_cost": it.price.Mul(decimal.NewFromInt(int64(it.quantity))),
	})
}

func (b *Backend) updateItem(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "item_name"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad item name"})
		return
	}
	var req orderRequest
	if !b.decode(w, r, RouteUpdate, &req) {
		return
	}
	it, err := parseItem(name, req.Quantity.String(), req.Price.String())
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.indexLocked(name)
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "item not found"})
		return
	}
	b.items[idx] = it
	writeJSON(w, http.StatusOK, map[string]string{"status": "Item Updated"})
}

func (b *Backend) deleteOrder(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "item_name"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad item name"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.indexLocked(name)
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "item not found"})
		return
	}
	b.items = append(b.items[:idx], b.items[idx+1:]...)
	writeJSON(w, http.StatusOK, map[string]string{"status": "Item Deleted"})
}

// uploadReceipt reads "name,quantity,price" lines from the uploaded file in
// place of real OCR and upserts each parsed line.
func (b *Backend) uploadReceipt(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "file part is required"})
		return
	}
	defer file.Close()

	var parsed []item
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ",")
		if len(fields) != 3 {
			continue
		}
		it, err := parseItem(fields[0], fields[1], fields[2])
		if err != nil {
			continue
		}
		parsed = append(parsed, it)
	}
	if len(parsed) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "no item detected"})
		return
	}

	b.mu.Lock()
	for _, it := range parsed {
		if idx := b.indexLocked(it.name); idx >= 0 {
			b.items[idx] = it
		} else {
			b.items = append(b.items, it)
		}
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"detected_item": parsed[0].name})
}

func (b *Backend) decode(w http.ResponseWriter, r *http.Request, route Route, out any) bool {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid JSON"})
		return false
	}
	b.mu.Lock()
	b.bodies[route] = append([]byte(nil), raw...)
	b.mu.Unlock()

	if err := json.Unmarshal(raw, out); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return false
	}
	return true
}

func parseItem(name, quantity, price string) (item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return item{}, fmt.Errorf("item_name is required")
	}
	qty, err := strconv.Atoi(strings.TrimSpace(quantity))
	if err != nil || qty < 0 {
		return item{}, fmt.Errorf("quantity must be a non-negative integer")
	}
	p, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil || p.IsNegative() {
		return item{}, fmt.Errorf("price must be a non-negative number")
	}
	return item{name: name, quantity: qty, price: p}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
