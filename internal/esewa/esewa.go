// Package esewa implements the eSewa payment gateway signature contract:
// HMAC-SHA256 signing of the initiation request and verification of the
// signed callback payload the gateway redirects back with.
package esewa

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The gateway defines a fixed canonical field order for each direction, and
// the two orders differ. Both are part of the wire contract: reorder either
// one and the signatures stop matching.
const (
	// SignedFieldNames is the declared field list for the initiation request.
	// Canonical message: total_amount=<amt>,transaction_uuid=<txn>,product_code=<code>
	SignedFieldNames = "total_amount,transaction_uuid,product_code"

	// Callback canonical message, in the order the gateway signs it:
	// transaction_code=,status=,total_amount=,transaction_uuid=,product_code=,signed_field_names=
	callbackFieldOrder = "transaction_code,status,total_amount,transaction_uuid,product_code,signed_field_names"
)

// StatusComplete is the only gateway status that counts as a finished payment.
const StatusComplete = "COMPLETE"

var (
	ErrMalformedPayload         = errors.New("malformed gateway payload")
	ErrPaymentIncomplete        = errors.New("payment not completed by gateway")
	ErrSignatureMismatch        = errors.New("gateway signature mismatch")
	ErrMalformedTransactionUUID = errors.New("malformed transaction uuid")
)

// Config carries the gateway credentials and redirect targets. The secret is
// mandatory; there is no test fallback.
type Config struct {
	SecretKey   string
	ProductCode string
	SuccessURL  string
	FailureURL  string
}

// Client signs initiation requests and verifies callback payloads. It holds
// no mutable state and is safe for concurrent use.
type Client struct {
	cfg Config
}

func New(cfg Config) (*Client, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("esewa: secret key is required")
	}
	if cfg.ProductCode == "" {
		return nil, errors.New("esewa: product code is required")
	}
	return &Client{cfg: cfg}, nil
}

// PaymentRequest is everything the client needs to redirect the user to the
// gateway's payment form.
type PaymentRequest struct {
	Signature        string  `json:"signature"`
	SignedFieldNames string  `json:"signed_field_names"`
	TransactionUUID  string  `json:"transaction_uuid"`
	ProductCode      string  `json:"product_code"`
	TotalAmount      float64 `json:"total_amount"`
	SuccessURL       string  `json:"success_url"`
	FailureURL       string  `json:"failure_url"`
}

// CallbackPayload is the decoded JSON body of the base64 blob the gateway
// redirects back with after payment.
type CallbackPayload struct {
	TransactionCode  string `json:"transaction_code"`
	Status           string `json:"status"`
	TotalAmount      string `json:"total_amount"`
	TransactionUUID  string `json:"transaction_uuid"`
	ProductCode      string `json:"product_code"`
	SignedFieldNames string `json:"signed_field_names"`
	Signature        string `json:"signature"`
}

// Sign computes base64(HMAC-SHA256(secret, message)). Pure function of the
// secret and the message.
func (c *Client) Sign(message string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.SecretKey))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// NewTransactionUUID composes a transaction identifier for one payment
// attempt: the order id, an underscore, and the current epoch milliseconds.
// Two attempts for the same order within one millisecond collide; callers
// enforce underscore-free order ids so the prefix stays recoverable.
func NewTransactionUUID(orderID string) string {
	return orderID + "_" + strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// ParseTransactionUUID recovers the order id encoded as the prefix before the
// first underscore of a transaction identifier.
func ParseTransactionUUID(txn string) (string, error) {
	orderID, rest, found := strings.Cut(txn, "_")
	if !found || orderID == "" || rest == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedTransactionUUID, txn)
	}
	return orderID, nil
}

// FormatAmount renders an amount the way it is embedded in the canonical
// message: the shortest decimal representation that round-trips.
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

// BuildPaymentRequest prepares the signed redirect fields for one payment
// attempt. No side effects: the order is untouched until verification.
func (c *Client) BuildPaymentRequest(orderID string, amount float64) PaymentRequest {
	txn := NewTransactionUUID(orderID)
	message := fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s",
		FormatAmount(amount), txn, c.cfg.ProductCode)

	return PaymentRequest{
		Signature:        c.Sign(message),
		SignedFieldNames: SignedFieldNames,
		TransactionUUID:  txn,
		ProductCode:      c.cfg.ProductCode,
		TotalAmount:      amount,
		SuccessURL:       c.cfg.SuccessURL,
		FailureURL:       c.cfg.FailureURL,
	}
}

// canonicalCallbackMessage rebuilds the string the gateway signed, from the
// payload's own fields, values verbatim.
func canonicalCallbackMessage(p *CallbackPayload) string {
	return fmt.Sprintf("transaction_code=%s,status=%s,total_amount=%s,transaction_uuid=%s,product_code=%s,signed_field_names=%s",
		p.TransactionCode, p.Status, p.TotalAmount, p.TransactionUUID, p.ProductCode, p.SignedFieldNames)
}

// VerifyCallback decodes and authenticates a gateway callback. Checks run in
// a fixed order, each terminal: decode, status gate, signature. It never
// touches storage; the caller mutates the order only after this returns nil
// error.
func (c *Client) VerifyCallback(encoded string) (*CallbackPayload, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var payload CallbackPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.TransactionUUID == "" || payload.Signature == "" || payload.Status == "" {
		return nil, fmt.Errorf("%w: missing required fields", ErrMalformedPayload)
	}

	if payload.Status != StatusComplete {
		return nil, fmt.Errorf("%w: status %q", ErrPaymentIncomplete, payload.Status)
	}

	expected := c.Sign(canonicalCallbackMessage(&payload))
	if !hmac.Equal([]byte(expected), []byte(payload.Signature)) {
		return nil, ErrSignatureMismatch
	}

	return &payload, nil
}
