package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/greg-hellings/stockdash/internal/backendtest"
	"github.com/greg-hellings/stockdash/pkg/dashboard"
	"github.com/greg-hellings/stockdash/pkg/status"
)

func seededBackend(t *testing.T) (*backendtest.Backend, string) {
	t.Helper()
	backend := backendtest.New().
		Seed("Basmati Rice", 10, "2.50").
		Seed("Olive Oil", 4, "8.00")
	return backend, backend.Server(t).URL
}

func TestCLIVersion(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"version"})
	output, err := executeCommand(root)
	if err != nil {
		t.Fatalf("command returned error: %v", err)
	}
	expectContains(t, output, "stockdash version: dev", "version line missing")
}

func TestCLIListConsole(t *testing.T) {
	_, url := seededBackend(t)

	root := newRootCmd()
	root.SetArgs([]string{"--base-url", url, "--no-color", "list"})
	output, err := executeCommand(root)
	if err != nil {
		t.Fatalf("command returned error: %v\nOutput: %s", err, output)
	}

	expectContains(t, output, "Basmati Rice", "record missing")
	expectContains(t, output, "Olive Oil", "record missing")
	expectContains(t, output, "Items in Stock: 2", "summary missing")
	expectContains(t, output, "Total Value: $57.00", "summary value missing")
	expectContains(t, output, "Status: "+status.Ready, "status line missing")
}

func TestCLIListSearchJSON(t *testing.T) {
	_, url := seededBackend(t)

	root := newRootCmd()
	root.SetArgs([]string{"--base-url", url, "list", "--search", "RICE", "--format", "json"})
	output, err := executeCommand(root)
	if err != nil {
		t.Fatalf("command returned error: %v\nOutput: %s", err, output)
	}

	var parsed []struct {
		ItemName      string `json:"item_name"`
		Quantity      int    `json:"quantity"`
		InventoryRisk string `json:"inventory_risk"`
	}
	if err := json.Unmarshal([]byte(output), &parsed); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if len(parsed) != 1 || parsed[0].ItemName != "Basmati Rice" || parsed[0].Quantity != 10 {
		t.Errorf("unexpected records: %+v", parsed)
	}
}

func TestCLIListUnsupportedFormat(t *testing.T) {
	_, url := seededBackend(t)

	root := newRootCmd()
	root.SetArgs([]string{"--base-url", url, "list", "--format", "xml"})
	if _, err := executeCommand(root); err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("expected unsupported format error, got %v", err)
	}
}

func TestCLIListBackendDown(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"--base-url", "http://127.0.0.1:1", "--timeout", "2s", "list"})
	_, err := executeCommand(root)
	if err == nil || !strings.Contains(err.Error(), "cannot connect to backend at http://127.0.0.1:1") {
		t.Errorf("expected connection error, got %v", err)
	}
}

func TestCLICreateUpdateDeleteRoundTrip(t *testing.T) {
	backend, url := seededBackend(t)

	root := newRootCmd()
	root.SetArgs([]string{"--base-url", url, "--no-color", "create", "Red Lentils", "12", "1.75"})
	output, err := executeCommand(root)
	if err != nil {
		t.Fatalf("create returned error: %v\nOutput: %s", err, output)
	}
	expectContains(t, output, status.Created("Red Lentils"), "create status missing")

	root = newRootCmd()
	root.SetArgs([]string{"--base-url", url, "--no-color", "update", "Red Lentils", "20", "1.80"})
	output, err = executeCommand(root)
	if err != nil {
		t.Fatalf("update returned error: %v\nOutput: %s", err, output)
	}
	expectContains(t, output, status.Updated("Red Lentils"), "update status missing")

	found := false
	for _, rec := range backend.Records() {
		if rec.ItemName == "Red Lentils" {
			found = true
			if rec.Quantity != 20 || rec.Price.StringFixed(2) != "1.80" {
				t.Errorf("backend not updated: %+v", rec)
			}
		}
	}
	if !found {
		t.Fatal("created record missing from backend")
	}

	root = newRootCmd()
	root.SetArgs([]string{"--base-url", url, "--no-color", "delete", "Red Lentils"})
	output, err = executeCommand(root)
	if err != nil {
		t.Fatalf("delete returned error: %v\nOutput: %s", err, output)
	}
	expectContains(t, output, status.Deleted, "delete status missing")
	if len(backend.Records()) != 2 {
		t.Errorf("expected 2 records after delete, got %d", len(backend.Records()))
	}
}

func TestCLIUpdateRejectsNonNumericBeforeSending(t *testing.T) {
	backend, url := seededBackend(t)

	root := newRootCmd()
	root.SetArgs([]string{"--base-url", url, "--no-color", "update", "Olive Oil", "lots", "8"})
	output, err := executeCommand(root)
	if err == nil {
		t.Fatalf("expected error, got success. Output: %s", output)
	}
	expectContains(t, output, status.NotNumeric, "numeric status missing")
	if backend.Calls(backendtest.RouteUpdate) != 0 {
		t.Error("a non-numeric draft must not reach the server")
	}
}

func TestCLIUpdateUnknownItem(t *testing.T) {
	_, url := seededBackend(t)

	root := newRootCmd()
	root.SetArgs([]string{"--base-url", url, "update", "Sugar", "1", "1"})
	if _, err := executeCommand(root); err == nil || !strings.Contains(err.Error(), "Sugar") {
		t.Errorf("expected not-found error naming the item, got %v", err)
	}
}

func TestCLIDeleteMissingItem(t *testing.T) {
	_, url := seededBackend(t)

	root := newRootCmd()
	root.SetArgs([]string{"--base-url", url, "--no-color", "delete", "Sugar"})
	output, err := executeCommand(root)
	if err == nil {
		t.Fatal("expected delete of a missing item to fail")
	}
	expectContains(t, output, status.DeleteFailed, "delete failure status missing")
}

func TestCLIUpload(t *testing.T) {
	backend, url := seededBackend(t)

	receipt := filepath.Join(t.TempDir(), "receipt.txt")
	if err := os.WriteFile(receipt, []byte("Flour,3,4.20\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	root := newRootCmd()
	root.SetArgs([]string{"--base-url", url, "--no-color", "upload", receipt})
	output, err := executeCommand(root)
	if err != nil {
		t.Fatalf("upload returned error: %v\nOutput: %s", err, output)
	}
	expectContains(t, output, status.Detected("Flour"), "detected status missing")
	if len(backend.Records()) != 3 {
		t.Errorf("expected uploaded item to be ingested, got %d records", len(backend.Records()))
	}
}

func TestCLIChartsAndInsights(t *testing.T) {
	_, url := seededBackend(t)

	root := newRootCmd()
	root.SetArgs([]string{"--base-url", url, "--no-color", "charts"})
	output, err := executeCommand(root)
	if err != nil {
		t.Fatalf("charts returned error: %v\nOutput: %s", err, output)
	}
	expectContains(t, output, "Revenue by Item", "bar chart missing")
	expectContains(t, output, "Quantity Share", "share table missing")

	root = newRootCmd()
	root.SetArgs([]string{"--base-url", url, "--no-color", "insights"})
	output, err = executeCommand(root)
	if err != nil {
		t.Fatalf("insights returned error: %v\nOutput: %s", err, output)
	}
	expectContains(t, output, "Sales Highlights", "insights header missing")
	expectContains(t, output, "Top Seller", "insight card missing")
	expectContains(t, output, "Restock Soon", "low stock insight missing")
}

func TestCLIInsightsFailure(t *testing.T) {
	backend, url := seededBackend(t)
	backend.FailWith(backendtest.RouteInsights, 500)

	root := newRootCmd()
	root.SetArgs([]string{"--base-url", url, "--no-color", "insights"})
	output, err := executeCommand(root)
	if err == nil {
		t.Fatal("expected insights failure to be reported")
	}
	expectContains(t, output, dashboard.InsightsErrorMessage, "insights error message missing")
}

func TestCLIConfigFile(t *testing.T) {
	_, url := seededBackend(t)
	cfgPath := writeTempConfig(t, "stockdash.toml", `
[backend]
base_url = "`+url+`"
timeout = "5s"

[console]
no_color = true
`)

	root := newRootCmd()
	root.SetArgs([]string{"--config", cfgPath, "list"})
	output, err := executeCommand(root)
	if err != nil {
		t.Fatalf("command returned error: %v\nOutput: %s", err, output)
	}
	expectContains(t, output, "Olive Oil", "record missing")
	if strings.Contains(output, "\x1b[") {
		t.Error("no_color from the config file was not applied")
	}
}

func TestCLIInvalidConfig(t *testing.T) {
	cfgPath := writeTempConfig(t, "config.yaml", `
backend:
  base_url: "not a url"
`)
	root := newRootCmd()
	root.SetArgs([]string{"--config", cfgPath, "list"})
	if _, err := executeCommand(root); err == nil || !strings.Contains(err.Error(), "base_url") {
		t.Errorf("expected base_url validation error, got %v", err)
	}
}

func TestCLIShellSession(t *testing.T) {
	backend, url := seededBackend(t)

	root := newRootCmd()
	root.SetIn(strings.NewReader(strings.Join([]string{
		"search oil",
		"edit Olive Oil",
		"set quantity 9",
		"commit",
		"form item_name Green Tea",
		"form quantity 5",
		"form price 3.25",
		"submit",
		"bogus",
		"quit",
	}, "\n") + "\n"))
	root.SetArgs([]string{"--base-url", url, "--no-color", "shell"})

	output, err := executeCommand(root)
	if err != nil {
		t.Fatalf("shell returned error: %v\nOutput: %s", err, output)
	}
	expectContains(t, output, "[4]", "seeded draft should be shown while editing")
	expectContains(t, output, status.Updated("Olive Oil"), "commit status missing")
	expectContains(t, output, status.Created("Green Tea"), "create status missing")

	var qty int
	for _, rec := range backend.Records() {
		if rec.ItemName == "Olive Oil" {
			qty = rec.Quantity
		}
	}
	if qty != 9 {
		t.Errorf("expected Olive Oil quantity 9, got %d", qty)
	}
	if len(backend.Records()) != 3 {
		t.Errorf("expected submitted form to create a record, got %d records", len(backend.Records()))
	}
}

// Helper: write temp config file
func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

// Helper: execute a Cobra command capturing its output
func executeCommand(root *cobra.Command) (string, error) {
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.Execute()
	return out.String(), err
}

// Helper: minimal contains assertion
func expectContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Fatalf("%s: expected %q to contain %q", msg, s, substr)
	}
}
