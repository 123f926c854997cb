package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/domain"
)

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

func writeMappedError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	status, code, msg := mapDomainError(err)
	logHTTPOperationError(ctx, operation, status, code, msg, err)
	writeError(w, status, code, msg)
}

func writeValidationError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	code := "VALIDATION_ERROR"
	msg := err.Error()
	logHTTPOperationError(ctx, operation, http.StatusBadRequest, code, msg, err)
	writeError(w, http.StatusBadRequest, code, msg)
}

func mapDomainError(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, domain.ErrCampaignNotFound):
		return http.StatusNotFound, "CAMPAIGN_NOT_FOUND", "campaign not found"
	case errors.Is(err, domain.ErrProductNotInCampaign):
		return http.StatusNotFound, "PRODUCT_NOT_IN_CAMPAIGN", "product not in campaign"
	case errors.Is(err, domain.ErrReservationNotFound):
		return http.StatusNotFound, "RESERVATION_NOT_FOUND", "reservation not found"
	case errors.Is(err, domain.ErrCampaignNotStarted):
		return http.StatusForbidden, "CAMPAIGN_NOT_STARTED", "campaign has not started"
	case errors.Is(err, domain.ErrCampaignEnded):
		return http.StatusGone, "CAMPAIGN_ENDED", "campaign has ended"
	case errors.Is(err, domain.ErrEarlyAccessRestricted):
		return http.StatusForbidden, "EARLY_ACCESS_RESTRICTED", err.Error()
	case errors.Is(err, domain.ErrUserLimitExceeded):
		return http.StatusConflict, "USER_LIMIT_EXCEEDED", "per-buyer purchase limit exceeded"
	case errors.Is(err, domain.ErrSoldOut):
		return http.StatusConflict, "SOLD_OUT", "sold out"
	case errors.Is(err, domain.ErrReservationAlreadyProcessed):
		return http.StatusConflict, "RESERVATION_ALREADY_PROCESSED", "reservation already processed"
	case errors.Is(err, domain.ErrLedgerUnavailable):
		return http.StatusServiceUnavailable, "LEDGER_UNAVAILABLE", "stock ledger unavailable"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}
