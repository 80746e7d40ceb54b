package reconciler

import (
	"net/url"
	"strconv"

	"payment-reconciler/internal/models"
	"payment-reconciler/internal/status"
)

// Gateways disagree on parameter naming, and several integrations went
// live with different spellings. Every alias seen in production, in
// preference order.
var collectIDParams = []string{
	"providerCollectId",
	"EdvironCollectRequestId",
	"collect_request_id",
	"collect_id",
	"provider_collect_id",
	"order_id",
	"custom_order_id",
}

var amountParams = []string{"amount", "am"}

// Redirect is what the browser carried back from the gateway: any
// subset of identifier, status, capture status and amount.
type Redirect struct {
	OrderID       string
	Status        string
	CaptureStatus string
	Amount        float64
}

// HasStatus reports whether the gateway supplied a status string.
func (r Redirect) HasStatus() bool {
	return r.Status != ""
}

// NormalizedStatus maps the redirect's status pair onto the canonical
// lattice.
func (r Redirect) NormalizedStatus() models.CanonicalStatus {
	return status.Normalize(r.Status, r.CaptureStatus)
}

// ParseRedirect extracts a Redirect from gateway-supplied query
// parameters. Every field is optional here; identifier resolution
// against the resume cache happens later.
func ParseRedirect(query url.Values) Redirect {
	redirect := Redirect{
		Status:        query.Get("status"),
		CaptureStatus: query.Get("capture_status"),
	}

	for _, param := range collectIDParams {
		if v := query.Get(param); v != "" {
			redirect.OrderID = v
			break
		}
	}

	for _, param := range amountParams {
		v := query.Get(param)
		if v == "" {
			continue
		}
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			redirect.Amount = parsed
			break
		}
	}

	return redirect
}
