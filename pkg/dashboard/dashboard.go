// Package dashboard composes the gateway, store, edit session and status line
// into the operator actions of the inventory dashboard. Every action reports
// its outcome through exactly one status message (followed by the connection
// message when the follow-up refresh fails) and returns the error for callers
// that need it, such as the CLI exit status.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/greg-hellings/stockdash/pkg/gateway"
	"github.com/greg-hellings/stockdash/pkg/inventory"
	"github.com/greg-hellings/stockdash/pkg/session"
	"github.com/greg-hellings/stockdash/pkg/status"
	"github.com/greg-hellings/stockdash/pkg/store"
	"github.com/greg-hellings/stockdash/pkg/view"
)

// CreateField names an input of the manual create form.
type CreateField string

const (
	CreateItemName CreateField = "item_name"
	CreateQuantity CreateField = "quantity"
	CreatePrice    CreateField = "price"
)

// ErrUnknownCreateField is returned by SetCreateField for unknown inputs.
var ErrUnknownCreateField = errors.New("unknown create form field")

// CreateForm holds the create inputs exactly as typed.
type CreateForm struct {
	ItemName string
	Quantity string
	Price    string
}

// ViewState is the UI-local state that is not derived from the server.
type ViewState struct {
	Search string
	Create CreateForm
	Edit   session.State
	Status string
}

// View is a render-ready snapshot of the dashboard.
type View struct {
	Search string
	// Filtered holds the records matching Search, in server order.
	Filtered   []inventory.Record
	MatchCount int
	// Summary covers every record regardless of Search.
	Summary   view.Summary
	Charts    []view.ChartRow
	Create    CreateForm
	Edit      session.State
	Status    string
	UpdatedAt time.Time
}

// Dashboard is safe for concurrent use.
type Dashboard struct {
	client  gateway.Client
	baseURL string

	store      *store.Store
	controller *session.Controller
	status     *status.Reporter

	mu     sync.Mutex
	search string
	create CreateForm
}

// New wires a dashboard around client. baseURL is only used in the
// connection failure message.
func New(client gateway.Client, baseURL string) *Dashboard {
	st := store.New(client)
	d := &Dashboard{
		client:     client,
		baseURL:    baseURL,
		store:      st,
		controller: session.NewController(client, st),
		status:     status.NewReporter(),
	}
	st.Subscribe(func(records []inventory.Record) {
		d.controller.Reconcile(records)
	})
	return d
}

// Status exposes the status line, e.g. to subscribe to changes.
func (d *Dashboard) Status() *status.Reporter {
	return d.status
}

// Store exposes the server projection.
func (d *Dashboard) Store() *store.Store {
	return d.store
}

// BaseURL returns the backend address the dashboard reports in connection errors.
func (d *Dashboard) BaseURL() string {
	return d.baseURL
}

// State returns a copy of the UI-local state.
func (d *Dashboard) State() ViewState {
	d.mu.Lock()
	vs := ViewState{Search: d.search, Create: d.create}
	d.mu.Unlock()
	vs.Edit = d.controller.State()
	vs.Status = d.status.Current()
	return vs
}

// Refresh reloads the store. On failure the status shows the backend address.
func (d *Dashboard) Refresh(ctx context.Context) error {
	if err := d.store.Refresh(ctx); err != nil {
		d.status.Set(status.CannotConnect(d.baseURL))
		return err
	}
	return nil
}

// SetSearch sets the filter query. It performs no network call.
func (d *Dashboard) SetSearch(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.search = query
}

// ClearSearch resets the filter query.
func (d *Dashboard) ClearSearch() {
	d.SetSearch("")
}

// SetCreateField stores one create form input as typed.
func (d *Dashboard) SetCreateField(field CreateField, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch field {
	case CreateItemName:
		d.create.ItemName = value
	case CreateQuantity:
		d.create.Quantity = value
	case CreatePrice:
		d.create.Price = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCreateField, field)
	}
	return nil
}

// SubmitCreate sends the create form and clears it on success. A failed
// submission keeps the inputs so the operator can correct them.
func (d *Dashboard) SubmitCreate(ctx context.Context) error {
	d.mu.Lock()
	form := d.create
	d.mu.Unlock()

	err := d.CreateRecord(ctx, form.ItemName, form.Quantity, form.Price)
	if err != nil && !errors.Is(err, ErrRefreshAfterChange) {
		return err
	}

	d.mu.Lock()
	if d.create == form {
		d.create = CreateForm{}
	}
	d.mu.Unlock()
	return err
}

// CreateRecord creates a record from raw operator input and refreshes.
func (d *Dashboard) CreateRecord(ctx context.Context, itemName, quantity, price string) error {
	if err := d.client.CreateRecord(ctx, itemName, quantity, price); err != nil {
		if gateway.IsKind(err, gateway.KindValidation) {
			d.status.Set(status.FillAllFields)
		} else {
			d.status.Set(status.CreateFailed)
		}
		return err
	}
	d.status.Set(status.Created(itemName))
	return d.refreshAfterMutation(ctx)
}

// StartEdit opens the edit session on the record named itemName in the
// current snapshot.
func (d *Dashboard) StartEdit(itemName string) error {
	rec, ok := d.store.Lookup(itemName)
	if !ok {
		return fmt.Errorf("%w: %q", store.ErrNotFound, itemName)
	}
	d.controller.StartEdit(rec)
	return nil
}

// UpdateDraft stages a value in the open edit session.
func (d *Dashboard) UpdateDraft(field session.Field, value string) error {
	err := d.controller.UpdateDraft(field, value)
	if errors.Is(err, session.ErrNotEditing) {
		d.status.Set(status.NotEditing)
	}
	return err
}

// CommitEdit sends the open edit session.
func (d *Dashboard) CommitEdit(ctx context.Context) error {
	target := d.controller.State().Target

	err := d.controller.Commit(ctx)
	switch {
	case err == nil:
		d.status.Set(status.Updated(target))
	case errors.Is(err, session.ErrRefreshAfterCommit):
		d.status.Set(status.Updated(target))
		d.status.Set(status.CannotConnect(d.baseURL))
	case errors.Is(err, session.ErrNotEditing):
		d.status.Set(status.NotEditing)
	case gateway.IsKind(err, gateway.KindValidation):
		d.status.Set(status.FillAllFields)
	case gateway.IsKind(err, gateway.KindParse):
		d.status.Set(status.NotNumeric)
	default:
		d.status.Set(status.UpdateFailed)
	}
	return err
}

// CancelEdit discards the open edit session.
func (d *Dashboard) CancelEdit() {
	d.controller.Cancel()
}

// Delete removes a record. A failed delete leaves the snapshot untouched.
func (d *Dashboard) Delete(ctx context.Context, itemName string) error {
	if err := d.client.DeleteRecord(ctx, itemName); err != nil {
		d.status.Set(status.DeleteFailed)
		return err
	}
	d.status.Set(status.Deleted)
	return d.refreshAfterMutation(ctx)
}

// UploadReceipt sends a receipt for OCR and refreshes once the backend has
// ingested it.
func (d *Dashboard) UploadReceipt(ctx context.Context, filename string, content io.Reader) (string, error) {
	d.status.Set(status.ReadingReceipt)

	detected, err := d.client.UploadReceipt(ctx, filename, content)
	if err != nil {
		if gateway.IsKind(err, gateway.KindOCRUnavailable) {
			d.status.Set(status.OCROffline)
		} else {
			d.status.Set(status.UploadFailed)
		}
		return "", err
	}
	d.status.Set(status.Detected(detected))
	return detected, d.refreshAfterMutation(ctx)
}

// View builds a render-ready snapshot.
func (d *Dashboard) View() View {
	d.mu.Lock()
	search, form := d.search, d.create
	d.mu.Unlock()

	snap := d.store.Snapshot()
	filtered := view.Filter(snap.Records, search)
	return View{
		Search:     search,
		Filtered:   filtered,
		MatchCount: len(filtered),
		Summary:    view.Summarize(snap.Records),
		Charts:     view.GroupForCharts(snap.Charts),
		Create:     form,
		Edit:       d.controller.State(),
		Status:     d.status.Current(),
		UpdatedAt:  snap.RecordsUpdatedAt,
	}
}

// ErrRefreshAfterChange wraps a refresh failure that followed an accepted change.
var ErrRefreshAfterChange = errors.New("change saved but refresh failed")

func (d *Dashboard) refreshAfterMutation(ctx context.Context) error {
	if err := d.Refresh(ctx); err != nil {
		slog.Warn("Refresh after change failed", "error", err)
		return fmt.Errorf("%w: %w", ErrRefreshAfterChange, err)
	}
	return nil
}
