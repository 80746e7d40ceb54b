package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"payment-reconciler/internal/models"
)

// Client performs the idempotent status lookup against the payments
// backend. The call is a plain GET by order identifier and is safe to
// retry; it is the only backend interface the reconciler consumes.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a status lookup client for the given backend base
// URL.
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
	}
}

// FetchStatus retrieves the raw status report for an order. Transport
// failures, non-success responses and malformed bodies all surface as
// errors; the caller treats them as transient.
func (c *Client) FetchStatus(ctx context.Context, orderID string) (*models.RawStatusReport, error) {
	endpoint := fmt.Sprintf("%s/payments/status/%s", c.baseURL, url.PathEscape(orderID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status lookup request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch status for order %s: %w", orderID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("status lookup returned server error: %d", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status lookup returned error: %d", resp.StatusCode)
	}

	var report models.RawStatusReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode status report for order %s: %w", orderID, err)
	}

	return &report, nil
}
