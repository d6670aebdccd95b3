package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mihaimyh/gopremium/pkg/premium"
)

const maxUserIDLen = 255

// Handler provides HTTP endpoints for entitlement inspection
type Handler struct {
	config Config
}

// GetStatus returns a JSON view of the user's premium entitlement.
// A user without a record is reported with status "none" rather than 404.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userID := h.config.GetUserID(r)
	if userID == "" {
		h.handleError(w, r, fmt.Errorf("user ID not found"), http.StatusUnauthorized)
		return
	}
	if len(userID) > maxUserIDLen {
		h.handleError(w, r, fmt.Errorf("invalid user ID format"), http.StatusBadRequest)
		return
	}

	start := time.Now()
	ent, err := h.config.Storage.GetEntitlement(r.Context(), userID)
	if err != nil && !errors.Is(err, premium.ErrEntitlementNotFound) {
		h.config.Metrics.RecordStorageOperation("status_lookup", time.Since(start), err)
		h.handleError(w, r, fmt.Errorf("failed to get entitlement: %w", err), http.StatusInternalServerError)
		return
	}
	h.config.Metrics.RecordStorageOperation("status_lookup", time.Since(start), nil)

	response := StatusResponse{
		UserID: userID,
		Status: string(premium.StatusAt(ent, h.config.Now())),
	}
	if ent != nil {
		response.IsPremiumUser = ent.IsPremiumUser
		response.PremiumExpiryDate = ent.PremiumExpiryDate
		response.CurrentPlan = ent.CurrentPlan
		response.LastPaymentRef = ent.LastPaymentRef
		response.LastPaymentDate = ent.LastPaymentDate
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// Response already sent
		return
	}
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	if h.config.OnError != nil {
		h.config.OnError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	errorResponse := map[string]string{
		"error": err.Error(),
	}
	if encodeErr := json.NewEncoder(w).Encode(errorResponse); encodeErr != nil {
		_ = encodeErr
	}
}
