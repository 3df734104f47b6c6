package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/greg-hellings/stockdash/internal/backendtest"
	"github.com/greg-hellings/stockdash/pkg/gateway"
	"github.com/greg-hellings/stockdash/pkg/inventory"
	"github.com/greg-hellings/stockdash/pkg/session"
	"github.com/greg-hellings/stockdash/pkg/status"
	"github.com/greg-hellings/stockdash/pkg/store"
)

// newDashboard starts a fake backend and returns a refreshed dashboard on it.
func newDashboard(t *testing.T, backend *backendtest.Backend) (*Dashboard, *gateway.HTTPClient) {
	t.Helper()
	srv := backend.Server(t)
	client, err := gateway.NewHTTPClient(gateway.Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	d := New(client, client.BaseURL())
	if err := d.Refresh(context.Background()); err != nil {
		t.Fatalf("initial refresh: %v", err)
	}
	return d, client
}

func TestDashboard_EditCommitRoundTrip(t *testing.T) {
	backend := backendtest.New().Seed("Rice", 10, "2.50").Seed("Olive Oil", 4, "8.00")
	d, _ := newDashboard(t, backend)
	ctx := context.Background()

	before := d.View().Summary.TotalValue

	if err := d.StartEdit("Rice"); err != nil {
		t.Fatalf("StartEdit: %v", err)
	}
	if err := d.UpdateDraft(session.FieldQuantity, "20"); err != nil {
		t.Fatalf("UpdateDraft: %v", err)
	}
	if err := d.CommitEdit(ctx); err != nil {
		t.Fatalf("CommitEdit: %v", err)
	}

	v := d.View()
	if v.Edit.Editing {
		t.Error("edit session should be closed after a successful commit")
	}
	if v.Status != status.Updated("Rice") {
		t.Errorf("unexpected status %q", v.Status)
	}
	rec, ok := d.Store().Lookup("Rice")
	if !ok || rec.Quantity != 20 {
		t.Fatalf("store should hold the refreshed record, got %+v", rec)
	}
	if diff := v.Summary.TotalValue.Sub(before); !diff.Equal(decimal.RequireFromString("25.00")) {
		t.Errorf("expected total value to grow by 25.00, grew by %s", diff)
	}
}

func TestDashboard_CommitFailuresMapToStatus(t *testing.T) {
	tests := []struct {
		name       string
		quantity   string
		price      string
		failUpdate bool
		wantKind   gateway.Kind
		wantStatus string
	}{
		{name: "blank", quantity: "", price: "2.50", wantKind: gateway.KindValidation, wantStatus: status.FillAllFields},
		{name: "non-numeric", quantity: "ten", price: "2.50", wantKind: gateway.KindParse, wantStatus: status.NotNumeric},
		{name: "server error", quantity: "5", price: "2.50", failUpdate: true, wantKind: gateway.KindServerRejected, wantStatus: status.UpdateFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := backendtest.New().Seed("Rice", 10, "2.50")
			if tt.failUpdate {
				backend.FailWith(backendtest.RouteUpdate, http.StatusInternalServerError)
			}
			d, _ := newDashboard(t, backend)

			_ = d.StartEdit("Rice")
			_ = d.UpdateDraft(session.FieldQuantity, tt.quantity)
			_ = d.UpdateDraft(session.FieldPrice, tt.price)

			err := d.CommitEdit(context.Background())
			if !gateway.IsKind(err, tt.wantKind) {
				t.Fatalf("expected %s, got %v", tt.wantKind, err)
			}
			v := d.View()
			if v.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", v.Status, tt.wantStatus)
			}
			if !v.Edit.IsEditing("Rice") || v.Edit.DraftQuantity != tt.quantity {
				t.Errorf("drafts should survive a failed commit, got %+v", v.Edit)
			}
		})
	}
}

func TestDashboard_CommitRefreshFailure(t *testing.T) {
	backend := backendtest.New().Seed("Rice", 10, "2.50")
	d, _ := newDashboard(t, backend)

	_ = d.StartEdit("Rice")
	backend.FailWith(backendtest.RouteInventory, http.StatusBadGateway)

	err := d.CommitEdit(context.Background())
	if !errors.Is(err, session.ErrRefreshAfterCommit) {
		t.Fatalf("expected refresh failure after commit, got %v", err)
	}
	if got := d.Status().Current(); got != status.CannotConnect(d.BaseURL()) {
		t.Errorf("connection message should be the newest status, got %q", got)
	}
}

func TestDashboard_DeleteMissingItem(t *testing.T) {
	backend := backendtest.New().Seed("Rice", 10, "2.50")
	d, _ := newDashboard(t, backend)
	before := d.Store().Records()
	inventoryCalls := backend.Calls(backendtest.RouteInventory)

	err := d.Delete(context.Background(), "Sugar")
	if !gateway.IsKind(err, gateway.KindServerRejected) {
		t.Fatalf("expected server rejection, got %v", err)
	}
	if d.Status().Current() != status.DeleteFailed {
		t.Errorf("unexpected status %q", d.Status().Current())
	}
	if backend.Calls(backendtest.RouteInventory) != inventoryCalls {
		t.Error("a failed delete must not refresh")
	}
	if got := d.Store().Records(); len(got) != len(before) || got[0].ItemName != "Rice" {
		t.Errorf("snapshot should be unchanged, got %v", inventory.Names(got))
	}
}

func TestDashboard_DeleteClearsDanglingSession(t *testing.T) {
	backend := backendtest.New().Seed("Rice", 10, "2.50").Seed("Olive Oil", 4, "8.00")
	d, _ := newDashboard(t, backend)

	if err := d.StartEdit("Rice"); err != nil {
		t.Fatal(err)
	}
	if err := d.Delete(context.Background(), "Rice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	v := d.View()
	if v.Edit.Editing {
		t.Errorf("session on a deleted item should be cleared, got %+v", v.Edit)
	}
	if v.Status != status.Deleted {
		t.Errorf("unexpected status %q", v.Status)
	}
	if err := d.CommitEdit(context.Background()); !errors.Is(err, session.ErrNotEditing) {
		t.Errorf("commit after clear should report not editing, got %v", err)
	}
}

func TestDashboard_StartEditUnknownItem(t *testing.T) {
	d, _ := newDashboard(t, backendtest.New().Seed("Rice", 10, "2.50"))
	if err := d.StartEdit("Sugar"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if d.View().Edit.Editing {
		t.Error("no session should be opened")
	}
}

func TestDashboard_SubmitCreate(t *testing.T) {
	backend := backendtest.New()
	d, _ := newDashboard(t, backend)
	ctx := context.Background()

	_ = d.SetCreateField(CreateItemName, "Lentils")
	_ = d.SetCreateField(CreateQuantity, "12")
	if err := d.SubmitCreate(ctx); !gateway.IsKind(err, gateway.KindValidation) {
		t.Fatalf("expected validation error for missing price, got %v", err)
	}
	if d.Status().Current() != status.FillAllFields {
		t.Errorf("unexpected status %q", d.Status().Current())
	}
	if backend.Calls(backendtest.RouteCreate) != 0 {
		t.Error("blank fields must not reach the server")
	}
	if d.State().Create.ItemName != "Lentils" {
		t.Error("form should be kept after a rejected submit")
	}

	_ = d.SetCreateField(CreatePrice, "1.75")
	if err := d.SubmitCreate(ctx); err != nil {
		t.Fatalf("SubmitCreate: %v", err)
	}
	if d.State().Create != (CreateForm{}) {
		t.Errorf("form should be cleared, got %+v", d.State().Create)
	}
	if d.Status().Current() != status.Created("Lentils") {
		t.Errorf("unexpected status %q", d.Status().Current())
	}
	if _, ok := d.Store().Lookup("Lentils"); !ok {
		t.Error("created item should appear after refresh")
	}

	if err := d.SetCreateField("colour", "red"); !errors.Is(err, ErrUnknownCreateField) {
		t.Errorf("expected ErrUnknownCreateField, got %v", err)
	}
}

func TestDashboard_CreateDuplicateIsRejected(t *testing.T) {
	d, _ := newDashboard(t, backendtest.New().Seed("Rice", 10, "2.50"))
	err := d.CreateRecord(context.Background(), "Rice", "1", "1")
	if !gateway.IsKind(err, gateway.KindServerRejected) {
		t.Fatalf("expected server rejection, got %v", err)
	}
	if d.Status().Current() != status.CreateFailed {
		t.Errorf("unexpected status %q", d.Status().Current())
	}
}

func TestDashboard_UploadReceipt(t *testing.T) {
	backend := backendtest.New()
	d, _ := newDashboard(t, backend)

	var seen []string
	d.Status().OnChange(func(msg string) { seen = append(seen, msg) })

	item, err := d.UploadReceipt(context.Background(), "receipt.txt", strings.NewReader("Flour,3,4.20\n"))
	if err != nil {
		t.Fatalf("UploadReceipt: %v", err)
	}
	if item != "Flour" {
		t.Errorf("detected %q, want Flour", item)
	}
	if len(seen) != 2 || seen[0] != status.ReadingReceipt || seen[1] != status.Detected("Flour") {
		t.Errorf("unexpected status sequence %v", seen)
	}
	if _, ok := d.Store().Lookup("Flour"); !ok {
		t.Error("uploaded item should appear after refresh")
	}
}

func TestDashboard_UploadReceiptRejected(t *testing.T) {
	backend := backendtest.New()
	backend.FailWith(backendtest.RouteUpload, http.StatusServiceUnavailable)
	d, _ := newDashboard(t, backend)

	_, err := d.UploadReceipt(context.Background(), "receipt.png", strings.NewReader("\x89PNG"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if d.Status().Current() != status.UploadFailed {
		t.Errorf("unexpected status %q", d.Status().Current())
	}
}

func TestDashboard_RefreshFailureKeepsSnapshot(t *testing.T) {
	backend := backendtest.New().Seed("Rice", 10, "2.50")
	d, _ := newDashboard(t, backend)

	backend.FailWith(backendtest.RouteInventory, http.StatusInternalServerError)
	err := d.Refresh(context.Background())

	var refreshErr *store.RefreshError
	if !errors.As(err, &refreshErr) || refreshErr.Inventory == nil || refreshErr.Charts != nil {
		t.Fatalf("expected inventory-only refresh error, got %v", err)
	}
	if d.Status().Current() != status.CannotConnect(d.BaseURL()) {
		t.Errorf("unexpected status %q", d.Status().Current())
	}
	if len(d.Store().Records()) != 1 {
		t.Error("previous records should be kept")
	}
}

func TestDashboard_ViewFiltersButSummarizesAll(t *testing.T) {
	backend := backendtest.New().
		Seed("Basmati Rice", 10, "2.50").
		Seed("Olive Oil", 4, "8.00").
		Seed("Brown Rice", 2, "3.00")
	d, _ := newDashboard(t, backend)

	d.SetSearch("rice")
	v := d.View()
	if v.MatchCount != 2 || len(v.Filtered) != 2 {
		t.Errorf("expected 2 matches, got %d", v.MatchCount)
	}
	if v.Summary.Count != 3 {
		t.Errorf("summary should cover every record, got %d", v.Summary.Count)
	}
	if len(v.Charts) != 3 {
		t.Errorf("expected 3 chart rows, got %d", len(v.Charts))
	}

	d.ClearSearch()
	if d.View().MatchCount != 3 {
		t.Error("clearing the search should show every record")
	}
}
