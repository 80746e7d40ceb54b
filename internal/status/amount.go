package status

import (
	"encoding/json"
	"math"
	"net/url"
	"strconv"

	"payment-reconciler/internal/models"
)

// paymentDetails is the nested blob some lookup responses carry. The
// alias order here intentionally differs from the top-level order; it
// mirrors what the gateway integrations actually send.
type paymentDetails struct {
	Amount            any    `json:"amount"`
	TransactionAmount any    `json:"transaction_amount"`
	OrderAmount       any    `json:"order_amount"`
	OrderAmountCamel  any    `json:"orderAmount"`
	Am                any    `json:"am"`
	CollectRequestURL string `json:"collect_request_url"`
}

// ResolveAmount extracts a trustworthy amount from a status report,
// short-circuiting at the first finite value strictly greater than
// zero. Search order: direct report fields, the payment_details blob
// (which may itself be a JSON string), an amount parameter on the
// embedded collect request URL, then the caller-supplied fallbacks.
// Returns 0 when nothing resolves; callers treat 0 as unresolved, never
// as a free payment.
func ResolveAmount(report *models.RawStatusReport, fallbacks []float64) float64 {
	if report != nil {
		candidates := []any{
			report.Amount,
			report.TransactionAmount,
			report.OrderAmountCamel,
			report.OrderAmount,
			report.Am,
		}
		for _, c := range candidates {
			if v, ok := positiveNumber(c); ok {
				return v
			}
		}

		if details := parseDetails(report.PaymentDetails); details != nil {
			nested := []any{
				details.Amount,
				details.TransactionAmount,
				details.OrderAmount,
				details.OrderAmountCamel,
				details.Am,
			}
			for _, c := range nested {
				if v, ok := positiveNumber(c); ok {
					return v
				}
			}

			if v, ok := amountFromURL(details.CollectRequestURL); ok {
				return v
			}
		}
	}

	for _, f := range fallbacks {
		if v, ok := positiveNumber(f); ok {
			return v
		}
	}

	return 0
}

// parseDetails decodes the payment_details blob. A blob that is a JSON
// string gets one more decode pass. Any parse failure means absent.
func parseDetails(raw json.RawMessage) *paymentDetails {
	if len(raw) == 0 {
		return nil
	}

	var details paymentDetails
	if err := json.Unmarshal(raw, &details); err == nil {
		return &details
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil
	}
	if err := json.Unmarshal([]byte(encoded), &details); err != nil {
		return nil
	}
	return &details
}

func amountFromURL(rawURL string) (float64, bool) {
	if rawURL == "" {
		return 0, false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0, false
	}
	return positiveNumber(parsed.Query().Get("amount"))
}

// positiveNumber accepts JSON numbers, numeric strings and Go numeric
// types, and admits only finite values strictly greater than zero.
func positiveNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		if n == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}
