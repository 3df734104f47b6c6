package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/shopspring/decimal"

	"github.com/greg-hellings/stockdash/pkg/inventory"
)

// HTTPClient implements the Client interface over the backend's REST API
type HTTPClient struct {
	client  *http.Client
	baseURL string
	config  Config
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the backend at config.BaseURL.
// The URL must be absolute http or https. A pooled transport from
// go-cleanhttp is used so the client does not share state with
// http.DefaultClient.
func NewHTTPClient(config Config) (*HTTPClient, error) {
	base, err := normalizeBaseURL(config.BaseURL)
	if err != nil {
		return nil, err
	}

	client := cleanhttp.DefaultPooledClient()
	if config.Timeout > 0 {
		client.Timeout = config.Timeout
	}

	return &HTTPClient{
		client:  client,
		baseURL: base,
		config:  config,
	}, nil
}

// BaseURL returns the normalized backend URL the client talks to
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("backend base URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid backend base URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("backend base URL must be an absolute http(s) URL, got %q", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// ListInventory retrieves all inventory records
func (c *HTTPClient) ListInventory(ctx context.Context) ([]inventory.Record, error) {
	var records []inventory.Record
	if err := c.getJSON(ctx, "listInventory", pathInventory, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []inventory.Record{}
	}
	return records, nil
}

// ListChartAggregates retrieves the chart data rows
func (c *HTTPClient) ListChartAggregates(ctx context.Context) ([]inventory.ChartAggregate, error) {
	var rows []inventory.ChartAggregate
	if err := c.getJSON(ctx, "listChartAggregates", pathChartData, &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []inventory.ChartAggregate{}
	}
	return rows, nil
}

// GetSalesInsights retrieves the insights panel payload
func (c *HTTPClient) GetSalesInsights(ctx context.Context) (*inventory.SalesInsights, error) {
	var out inventory.SalesInsights
	if err := c.getJSON(ctx, "getSalesInsights", pathSalesInsights, &out); err != nil {
		return nil, err
	}
	if out.Insights == nil {
		out.Insights = []inventory.SalesInsight{}
	}
	return &out, nil
}

type createRequest struct {
	ItemName string `json:"item_name"`
	Quantity string `json:"quantity"`
	Price    string `json:"price"`
}

// CreateRecord submits a new record with the values as entered
func (c *HTTPClient) CreateRecord(ctx context.Context, itemName, quantity, price string) error {
	const op = "createRecord"
	if isBlank(itemName) || isBlank(quantity) || isBlank(price) {
		return newError(op, KindValidation, 0, ErrBlankField)
	}
	return c.send(ctx, op, http.MethodPost, pathCreateOrder, createRequest{
		ItemName: itemName,
		Quantity: quantity,
		Price:    price,
	})
}

type updateRequest struct {
	Quantity int         `json:"quantity"`
	Price    json.Number `json:"price"`
}

// UpdateRecord parses the staged values and sends them for itemName
func (c *HTTPClient) UpdateRecord(ctx context.Context, itemName, quantity, price string) error {
	const op = "updateRecord"
	if isBlank(itemName) || isBlank(quantity) || isBlank(price) {
		return newError(op, KindValidation, 0, ErrBlankField)
	}

	qty, err := strconv.Atoi(strings.TrimSpace(quantity))
	if err != nil {
		return newError(op, KindParse, 0, fmt.Errorf("quantity %q is not an integer: %w", quantity, err))
	}
	unitPrice, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil {
		return newError(op, KindParse, 0, fmt.Errorf("price %q is not a number: %w", price, err))
	}

	return c.send(ctx, op, http.MethodPut, pathUpdateItem+url.PathEscape(itemName), updateRequest{
		Quantity: qty,
		Price:    json.Number(unitPrice.String()),
	})
}

// DeleteRecord removes itemName on the server
func (c *HTTPClient) DeleteRecord(ctx context.Context, itemName string) error {
	const op = "deleteRecord"
	if isBlank(itemName) {
		return newError(op, KindValidation, 0, ErrBlankField)
	}
	return c.send(ctx, op, http.MethodDelete, pathDeleteOrder+url.PathEscape(itemName), nil)
}

type uploadResponse struct {
	DetectedItem string `json:"detected_item"`
}

// UploadReceipt posts the receipt as a multipart "file" part
func (c *HTTPClient) UploadReceipt(ctx context.Context, filename string, content io.Reader) (string, error) {
	const op = "uploadReceipt"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", newError(op, KindOCRUnavailable, 0, fmt.Errorf("failed to build upload: %w", err))
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", newError(op, KindOCRUnavailable, 0, fmt.Errorf("failed to read receipt: %w", err))
	}
	if err := mw.Close(); err != nil {
		return "", newError(op, KindOCRUnavailable, 0, fmt.Errorf("failed to build upload: %w", err))
	}

	resp, err := c.do(ctx, op, http.MethodPost, pathUploadReceipt, &buf, mw.FormDataContentType())
	if err != nil {
		return "", newError(op, KindOCRUnavailable, 0, err)
	}
	defer closeBody(resp)

	if !isSuccess(resp.StatusCode) {
		return "", newError(op, KindServerRejected, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", newError(op, KindOCRUnavailable, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	return out.DetectedItem, nil
}

// getJSON fetches path and decodes the body into out. Every failure on the
// read endpoints is reported as KindConnection.
func (c *HTTPClient) getJSON(ctx context.Context, op, path string, out any) error {
	resp, err := c.do(ctx, op, http.MethodGet, path, nil, "")
	if err != nil {
		return newError(op, KindConnection, 0, err)
	}
	defer closeBody(resp)

	if !isSuccess(resp.StatusCode) {
		return newError(op, KindConnection, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return newError(op, KindConnection, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// send issues a mutating request whose response body is ignored
func (c *HTTPClient) send(ctx context.Context, op, method, path string, payload any) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return newError(op, KindParse, 0, fmt.Errorf("failed to encode request: %w", err))
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, op, method, path, body, contentType)
	if err != nil {
		return newError(op, KindConnection, 0, err)
	}
	defer closeBody(resp)

	if !isSuccess(resp.StatusCode) {
		return newError(op, KindServerRejected, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	slog.Debug("Backend request",
		"op", op,
		"method", method,
		"path", path,
		"requestID", requestID)

	resp, err := c.client.Do(req)
	if err != nil {
		slog.Debug("Backend request failed", "op", op, "requestID", requestID, "error", err)
		return nil, err
	}

	slog.Debug("Backend response",
		"op", op,
		"status", resp.StatusCode,
		"requestID", requestID)
	return resp, nil
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	if err := resp.Body.Close(); err != nil {
		slog.Debug("Failed to close response body", "error", err)
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
