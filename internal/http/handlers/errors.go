package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/rentalhub/rentalhub-be/internal/booking"
	"github.com/rentalhub/rentalhub-be/internal/http/respond"
	"github.com/rentalhub/rentalhub-be/internal/settlement"
	"github.com/rentalhub/rentalhub-be/internal/storage"
)

// writeDomainError maps domain errors onto the API envelope. Anything
// unrecognized is logged and surfaced as a generic 500 with no internal
// detail.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, booking.ErrForbidden):
		respond.Error(w, http.StatusForbidden, "not authorized for this resource")
	case errors.Is(err, booking.ErrAlreadyCancelled):
		respond.Error(w, http.StatusConflict, "booking is already cancelled")
	case errors.Is(err, booking.ErrInvalidTransition):
		respond.Error(w, http.StatusConflict, "operation not allowed in the booking's current state")
	case errors.Is(err, booking.ErrValidation):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, settlement.ErrSignatureMismatch):
		// Distinct message so clients and ops can alert on fraud attempts.
		respond.Error(w, http.StatusBadRequest, "invalid payment signature (fake payment attempt)")
	case errors.Is(err, settlement.ErrProviderRejected):
		respond.Error(w, http.StatusBadRequest, "payment failed or invalid")
	case errors.Is(err, settlement.ErrDuplicatePayment):
		respond.Error(w, http.StatusConflict, "payment already recorded")
	default:
		log.Printf("%s: %v", op, err)
		respond.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
