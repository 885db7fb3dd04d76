package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lmarchetti/stagepass-backend/api/responses"
	"github.com/lmarchetti/stagepass-backend/api/validators"
	"github.com/lmarchetti/stagepass-backend/internal/payments"
	"github.com/lmarchetti/stagepass-backend/pkg/enums"
	pkgerrors "github.com/lmarchetti/stagepass-backend/pkg/errors"
	"github.com/lmarchetti/stagepass-backend/pkg/logger"
)

type paymentStatusBody struct {
	Status        string  `json:"status" validate:"required"`
	TransactionID *string `json:"transaction_id,omitempty"`
}

// AdminBookingPaymentStatus lets support staff correct a booking's payment
// state when the provider never delivered (or misdelivered) a webhook. It
// runs through the same lifecycle checks as the webhook path.
func AdminBookingPaymentStatus(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		bookingID, err := validators.PathUUID(chi.URLParam(r, "bookingID"), "bookingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body paymentStatusBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParsePaymentStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status"))
			return
		}

		if err := svc.HandleUpdate(r.Context(), payments.UpdateInput{
			BookingID:     bookingID,
			Status:        status,
			TransactionID: body.TransactionID,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"booking_id":     bookingID,
			"payment_status": status,
		})
	}
}
