package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/domain"
)

type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type reservationPayload struct {
	ReservationID string     `json:"reservation_id"`
	CampaignID    string     `json:"campaign_id"`
	ProductID     string     `json:"product_id"`
	BuyerID       string     `json:"buyer_id"`
	Quantity      int        `json:"quantity"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	ExpiredAt     *time.Time `json:"expired_at,omitempty"`
}

func reservationResponse(r domain.Reservation) reservationPayload {
	return reservationPayload{
		ReservationID: r.ReservationID.String(),
		CampaignID:    r.CampaignID.String(),
		ProductID:     r.ProductID.String(),
		BuyerID:       r.BuyerID,
		Quantity:      r.Quantity,
		Status:        string(r.Status),
		CreatedAt:     r.CreatedAt,
		ExpiresAt:     r.ExpiresAt,
		CompletedAt:   r.CompletedAt,
		ExpiredAt:     r.ExpiredAt,
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{
		"status":  "success",
		"message": message,
	})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, apiError{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}
