package models

import "time"

// StudentInfo is fee-payer metadata carried on the resume record. It is
// stored and displayed, never interpreted by the reconciler.
type StudentInfo struct {
	Name    string `json:"name"`
	ID      string `json:"id"`
	Email   string `json:"email"`
	Class   string `json:"class,omitempty"`
	Section string `json:"section,omitempty"`
}

// ResumeRecord is written once by the payment-creation flow, keyed by
// the provider collect id, and read back after the browser returns from
// the external gateway. It lets status tracking resume when the
// redirect loses its query parameters.
type ResumeRecord struct {
	ProviderCollectID string      `json:"providerCollectId"`
	ServerOrderID     string      `json:"serverOrderId,omitempty"`
	CustomOrderID     string      `json:"customOrderId,omitempty"`
	Amount            float64     `json:"amount"`
	FeeType           string      `json:"feeType,omitempty"`
	Gateway           string      `json:"gateway,omitempty"`
	Student           StudentInfo `json:"studentInfo"`
	CreatedAt         time.Time   `json:"createdAt"`
}
