package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/application"
)

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	var req application.ReserveRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "reserve", err)
		return
	}

	reservation, err := h.service.Reserve(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "reserve", err)
		return
	}
	writeSuccess(w, http.StatusCreated, reservationResponse(reservation))
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	reservationID, err := uuid.Parse(chi.URLParam(r, "reservation_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "confirm", err)
		return
	}

	reservation, err := h.service.Confirm(r.Context(), reservationID)
	if err != nil {
		writeMappedError(r.Context(), w, "confirm", err)
		return
	}
	writeSuccess(w, http.StatusOK, reservationResponse(reservation))
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	reservationID, err := uuid.Parse(chi.URLParam(r, "reservation_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "release", err)
		return
	}

	if err := h.service.Release(r.Context(), reservationID); err != nil {
		writeMappedError(r.Context(), w, "release", err)
		return
	}
	writeMessage(w, http.StatusOK, "released")
}

func (h *Handler) getCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "campaign_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "get_campaign", err)
		return
	}

	view, err := h.service.GetCampaign(r.Context(), campaignID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_campaign", err)
		return
	}
	writeSuccess(w, http.StatusOK, view)
}

func (h *Handler) availableStock(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "campaign_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "available_stock", err)
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "product_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "available_stock", err)
		return
	}

	available, err := h.service.AvailableStock(r.Context(), campaignID, productID)
	if err != nil {
		writeMappedError(r.Context(), w, "available_stock", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"campaign_id":     campaignID,
		"product_id":      productID,
		"available_stock": available,
	})
}
