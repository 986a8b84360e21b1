package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/amiryogi/bivanhandicraft-sub001/internal/esewa"
	"github.com/amiryogi/bivanhandicraft-sub001/internal/logger"
	"github.com/amiryogi/bivanhandicraft-sub001/internal/metrics"
	"github.com/amiryogi/bivanhandicraft-sub001/internal/models"
	"github.com/amiryogi/bivanhandicraft-sub001/internal/storage"
	"github.com/amiryogi/bivanhandicraft-sub001/internal/validation"
)

// OrderStore is the slice of the storage layer the payment handlers touch.
// MarkPaid carries the whole verify-side mutation, lookup included.
type OrderStore interface {
	MarkPaid(ctx context.Context, id string, res models.PaymentResult) (*models.Order, error)
}

// Handler serves the payment endpoints. Store and gateway client are injected
// at construction; handlers keep no state of their own.
type Handler struct {
	store   OrderStore
	gateway *esewa.Client
}

func New(store OrderStore, gateway *esewa.Client) *Handler {
	return &Handler{store: store, gateway: gateway}
}

// Initiate signs a payment initiation request. No persistence: the order is
// untouched until the gateway calls back through Verify.
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.NewString()
	r.Body = http.MaxBytesReader(w, r.Body, 10*1024)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("failed to read initiate request body", map[string]interface{}{
			"error":      err.Error(),
			"request_id": requestID,
		})
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var req models.InitiateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		logger.Error("failed to unmarshal initiate request", map[string]interface{}{
			"error":      err.Error(),
			"request_id": requestID,
		})
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validation.ValidateInitiateRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payment := h.gateway.BuildPaymentRequest(req.OrderID, req.Amount)
	metrics.PaymentInitiationsTotal.Inc()

	logger.Info("payment initiation signed", map[string]interface{}{
		"request_id":       requestID,
		"order_id":         req.OrderID,
		"transaction_uuid": payment.TransactionUUID,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(payment)
}

// Verify authenticates a gateway callback and marks the order paid. Every
// check runs before the single order mutation, so a failed request never
// leaves a partial write behind.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.NewString()
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("failed to read verify request body", map[string]interface{}{
			"error":      err.Error(),
			"request_id": requestID,
		})
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var req models.VerifyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		logger.Error("failed to unmarshal verify request", map[string]interface{}{
			"error":      err.Error(),
			"request_id": requestID,
		})
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validation.ValidateVerifyRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payload, err := h.gateway.VerifyCallback(req.EncodedData)
	if err != nil {
		h.verifyFailed(w, requestID, "", err)
		return
	}

	orderID, err := esewa.ParseTransactionUUID(payload.TransactionUUID)
	if err != nil {
		h.verifyFailed(w, requestID, "", err)
		return
	}

	now := time.Now().UTC()
	order, err := h.store.MarkPaid(r.Context(), orderID, models.PaymentResult{
		TransactionCode: payload.TransactionCode,
		Status:          payload.Status,
		UpdateTime:      now,
		PayerEmail:      "", // not present in the eSewa callback payload
	})
	if err != nil {
		h.verifyFailed(w, requestID, orderID, err)
		return
	}

	metrics.PaymentVerificationsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	metrics.PaymentVerificationDuration.Observe(time.Since(start).Seconds())

	logger.Info("payment verified", map[string]interface{}{
		"request_id":       requestID,
		"order_id":         orderID,
		"transaction_uuid": payload.TransactionUUID,
		"transaction_code": payload.TransactionCode,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(order)
}

// verifyFailed maps the error taxonomy to HTTP statuses and metric outcomes.
func (h *Handler) verifyFailed(w http.ResponseWriter, requestID, orderID string, err error) {
	fields := map[string]interface{}{
		"error":      err.Error(),
		"request_id": requestID,
	}
	if orderID != "" {
		fields["order_id"] = orderID
	}

	switch {
	case errors.Is(err, esewa.ErrMalformedPayload),
		errors.Is(err, esewa.ErrMalformedTransactionUUID):
		logger.Error("rejected malformed gateway payload", fields)
		metrics.PaymentVerificationsTotal.WithLabelValues(metrics.OutcomeMalformedPayload).Inc()
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, esewa.ErrPaymentIncomplete):
		logger.Info("gateway reported incomplete payment", fields)
		metrics.PaymentVerificationsTotal.WithLabelValues(metrics.OutcomeIncomplete).Inc()
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, esewa.ErrSignatureMismatch):
		// Possible tampering or a secret mismatch between us and the gateway.
		logger.Warn("gateway signature mismatch", fields)
		metrics.PaymentVerificationsTotal.WithLabelValues(metrics.OutcomeSignatureMismatch).Inc()
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, storage.ErrNotFound):
		logger.Error("order not found for verified payment", fields)
		metrics.PaymentVerificationsTotal.WithLabelValues(metrics.OutcomeOrderNotFound).Inc()
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, storage.ErrAlreadyPaid):
		logger.Warn("order already paid under a different transaction", fields)
		metrics.PaymentVerificationsTotal.WithLabelValues(metrics.OutcomeAlreadyPaid).Inc()
		writeError(w, http.StatusConflict, err.Error())

	default:
		logger.Error("payment verification failed", fields)
		metrics.PaymentVerificationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// Health returns service health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
