package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/markjakearzadon/esewa-gobackend.git/internal/logger"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/metrics"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/models"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/services"
)

type FareHandler struct {
	service services.TapProcessor
}

func NewFareHandler(service services.TapProcessor) *FareHandler {
	return &FareHandler{service: service}
}

type tapResponse struct {
	Message    string  `json:"message"`
	UID        string  `json:"uid"`
	FareAmount float64 `json:"fare_amount"`
}

// Tap handles POST /rfid/tap
func (h *FareHandler) Tap(w http.ResponseWriter, r *http.Request) {
	var ev models.TapEvent
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(&ev); err != nil {
		metrics.Fares.WithLabelValues(metrics.OutcomeInvalid).Inc()
		writeError(w, http.StatusBadRequest, "Invalid tap data")
		return
	}

	fare, err := h.service.ProcessTap(r.Context(), ev)
	switch {
	case err == nil:
		metrics.Fares.WithLabelValues(metrics.OutcomeOK).Inc()
		writeJSON(w, http.StatusOK, tapResponse{Message: "Fare processed", UID: ev.UID, FareAmount: fare})
	case errors.Is(err, services.ErrInvalidTap):
		metrics.Fares.WithLabelValues(metrics.OutcomeInvalid).Inc()
		writeError(w, http.StatusBadRequest, "Invalid tap data")
	case errors.Is(err, services.ErrUserNotFound):
		metrics.Fares.WithLabelValues("user_not_found").Inc()
		writeError(w, http.StatusNotFound, "User not found for RFID UID: "+ev.UID)
	case errors.Is(err, services.ErrInsufficientBalance):
		metrics.Fares.WithLabelValues("insufficient_balance").Inc()
		writeError(w, http.StatusPaymentRequired, "Insufficient balance for user with RFID UID: "+ev.UID)
	default:
		logger.Error("tap failed", "uid", ev.UID, "error", err)
		metrics.Fares.WithLabelValues(metrics.OutcomeError).Inc()
		writeError(w, http.StatusInternalServerError, "Failed to process fare")
	}
}
