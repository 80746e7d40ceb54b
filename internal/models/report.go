package models

import "encoding/json"

// RawStatusReport is the untyped payload returned by the status-lookup
// endpoint. Different gateway integrations populate different subsets of
// these fields, and amounts arrive as JSON numbers or numeric strings,
// so the amount aliases are left untyped for the resolver to interpret.
type RawStatusReport struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	GatewayStatus string `json:"gateway_status"`
	CaptureStatus string `json:"capture_status"`

	Amount            any `json:"amount"`
	TransactionAmount any `json:"transaction_amount"`
	OrderAmountCamel  any `json:"orderAmount"`
	OrderAmount       any `json:"order_amount"`
	Am                any `json:"am"`

	CustomOrderID      string `json:"custom_order_id"`
	CustomOrderIDCamel string `json:"customOrderId"`

	PaymentMode      string `json:"payment_mode"`
	PaymentModeCamel string `json:"paymentMode"`
	PaymentMethod    string `json:"payment_method"`

	// PaymentDetails may be a JSON object or a JSON-encoded string
	// containing one. Kept raw; the amount resolver parses it lazily.
	PaymentDetails json.RawMessage `json:"payment_details"`
}

// PrimaryStatus returns the first populated status alias.
func (r *RawStatusReport) PrimaryStatus() string {
	if r.Status != "" {
		return r.Status
	}
	if r.PaymentStatus != "" {
		return r.PaymentStatus
	}
	return r.GatewayStatus
}

// ConfirmedOrderID returns the server-assigned custom order id, if any.
func (r *RawStatusReport) ConfirmedOrderID() string {
	if r.CustomOrderID != "" {
		return r.CustomOrderID
	}
	return r.CustomOrderIDCamel
}

// ResolvedPaymentMode returns the first populated payment-mode alias.
func (r *RawStatusReport) ResolvedPaymentMode() string {
	if r.PaymentMode != "" {
		return r.PaymentMode
	}
	if r.PaymentModeCamel != "" {
		return r.PaymentModeCamel
	}
	return r.PaymentMethod
}
