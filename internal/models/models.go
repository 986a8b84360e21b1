package models

import "time"

// Order is the storefront order document as this flow sees it. The commerce
// backend owns the full shape; only the payment fields are written here.
type Order struct {
	// ID must never contain an underscore: the transaction UUID embeds it as
	// the prefix before the first "_" and parsing would become ambiguous.
	ID            string         `json:"id"`
	CustomerName  string         `json:"customer_name,omitempty"`
	TotalPrice    float64        `json:"total_price"`
	IsPaid        bool           `json:"is_paid"`
	PaidAt        *time.Time     `json:"paid_at,omitempty"`
	PaymentResult *PaymentResult `json:"payment_result,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// PaymentResult records the outcome of a successful gateway verification.
// Written once; never partially updated.
type PaymentResult struct {
	TransactionCode string    `json:"transaction_code"`
	Status          string    `json:"status"`
	UpdateTime      time.Time `json:"update_time"`
	// PayerEmail is always empty: the eSewa callback payload does not carry it.
	PayerEmail string `json:"payer_email"`
}

// InitiateRequest is the client request to start a payment.
type InitiateRequest struct {
	OrderID string  `json:"orderId"`
	Amount  float64 `json:"amount"`
}

// VerifyRequest carries the base64 payload the gateway handed back to the client.
type VerifyRequest struct {
	EncodedData string `json:"encodedData"`
}
