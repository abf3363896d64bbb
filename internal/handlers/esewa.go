package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/markjakearzadon/esewa-gobackend.git/internal/logger"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/metrics"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/models"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/services"
)

const (
	msgPaymentSuccessful  = "Payment successful"
	msgPaymentFailed      = "Payment failed"
	errInvalidPaymentData = "Invalid payment data"
	errInvalidFailureData = "Invalid failure data"
	errRecordFailed       = "Failed to record transaction"
)

type TransactionRecorder interface {
	RecordSuccess(ctx context.Context, cb services.SuccessCallback) (*models.Transaction, error)
	RecordFailure(ctx context.Context, cb services.FailureCallback) (*models.Transaction, error)
}

type EsewaHandler struct {
	service TransactionRecorder
}

func NewEsewaHandler(service TransactionRecorder) *EsewaHandler {
	return &EsewaHandler{service: service}
}

type callbackResponse struct {
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id"`
}

// Success handles POST /esewa/success
func (h *EsewaHandler) Success(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(w, r)
	if err != nil {
		logger.Warn("unreadable success callback", "error", err)
		metrics.Callbacks.WithLabelValues("success", metrics.OutcomeInvalid).Inc()
		writeError(w, http.StatusBadRequest, errInvalidPaymentData)
		return
	}

	tx, err := h.service.RecordSuccess(r.Context(), services.SuccessCallback{
		TransactionID: stringField(payload, "transaction_id"),
		UserID:        stringField(payload, "user_id"),
		Amount:        numberField(payload, "amount"),
	})
	if err != nil {
		h.fail(w, "success", stringField(payload, "transaction_id"), err, errInvalidPaymentData)
		return
	}

	metrics.Callbacks.WithLabelValues("success", metrics.OutcomeOK).Inc()
	logger.Info("payment recorded", "transaction_id", tx.TransactionID, "user_id", tx.UserID, "status", tx.Status)
	writeJSON(w, http.StatusOK, callbackResponse{Message: msgPaymentSuccessful, TransactionID: tx.TransactionID})
}

// Failure handles POST /esewa/failure
func (h *EsewaHandler) Failure(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(w, r)
	if err != nil {
		logger.Warn("unreadable failure callback", "error", err)
		metrics.Callbacks.WithLabelValues("failure", metrics.OutcomeInvalid).Inc()
		writeError(w, http.StatusBadRequest, errInvalidFailureData)
		return
	}

	tx, err := h.service.RecordFailure(r.Context(), services.FailureCallback{
		TransactionID: stringField(payload, "transaction_id"),
		UserID:        stringField(payload, "user_id"),
	})
	if err != nil {
		h.fail(w, "failure", stringField(payload, "transaction_id"), err, errInvalidFailureData)
		return
	}

	metrics.Callbacks.WithLabelValues("failure", metrics.OutcomeOK).Inc()
	logger.Info("payment recorded", "transaction_id", tx.TransactionID, "user_id", tx.UserID, "status", tx.Status)
	writeJSON(w, http.StatusOK, callbackResponse{Message: msgPaymentFailed, TransactionID: tx.TransactionID})
}

func (h *EsewaHandler) fail(w http.ResponseWriter, endpoint, transactionID string, err error, invalidMsg string) {
	if errors.Is(err, services.ErrMissingField) {
		logger.Warn("rejected callback", "endpoint", endpoint, "error", err)
		metrics.Callbacks.WithLabelValues(endpoint, metrics.OutcomeInvalid).Inc()
		writeError(w, http.StatusBadRequest, invalidMsg)
		return
	}

	logger.Error("failed to record transaction", "endpoint", endpoint, "transaction_id", transactionID, "error", err)
	metrics.Callbacks.WithLabelValues(endpoint, metrics.OutcomeError).Inc()
	writeError(w, http.StatusInternalServerError, errRecordFailed)
}
