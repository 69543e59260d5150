package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rentalhub/rentalhub-be/internal/booking"
	"github.com/rentalhub/rentalhub-be/internal/http/respond"
	"github.com/rentalhub/rentalhub-be/internal/middleware"
	"github.com/rentalhub/rentalhub-be/internal/models"
	"github.com/rentalhub/rentalhub-be/internal/models/dto"
)

// BookingHandler exposes the booking lifecycle over HTTP.
type BookingHandler struct {
	lifecycle *booking.Service
}

// NewBookingHandler constructs the handler.
func NewBookingHandler(lifecycle *booking.Service) *BookingHandler {
	return &BookingHandler{lifecycle: lifecycle}
}

// Register attaches booking routes to the mux behind the auth protector.
func (h *BookingHandler) Register(mux *http.ServeMux, protect middleware.Protector) {
	mux.HandleFunc("POST /api/bookings", protect(h.handleCreate))
	mux.HandleFunc("GET /api/bookings", protect(h.handleList))
	mux.HandleFunc("PUT /api/bookings/{id}/status", protect(h.handleUpdateStatus))
	mux.HandleFunc("PUT /api/bookings/{id}/deposit", protect(h.handleUpdateDeposit))
	mux.HandleFunc("POST /api/bookings/{id}/pay", protect(h.handlePayDeposit))
	mux.HandleFunc("PUT /api/bookings/{id}/cancel", protect(h.handleCancel))
}

func (h *BookingHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	var req dto.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	visitDate, err := time.Parse(time.RFC3339, req.VisitDate)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "visitDate must be RFC 3339")
		return
	}

	created, err := h.lifecycle.Create(r.Context(), actor, booking.CreateInput{
		PropertyID: req.PropertyID,
		VisitDate:  visitDate,
		Message:    req.Message,
	})
	if err != nil {
		writeDomainError(w, "create booking", err)
		return
	}
	respond.JSON(w, http.StatusCreated, "booking created", created)
}

func (h *BookingHandler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	bookings, err := h.lifecycle.List(r.Context(), actor)
	if err != nil {
		writeDomainError(w, "list bookings", err)
		return
	}
	respond.JSON(w, http.StatusOK, "bookings", bookings)
}

func (h *BookingHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	var req dto.UpdateBookingStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	updated, err := h.lifecycle.UpdateStatus(r.Context(), actor, id, models.BookingStatus(req.Status))
	if err != nil {
		writeDomainError(w, "update booking status", err)
		return
	}
	respond.JSON(w, http.StatusOK, "booking updated", updated)
}

func (h *BookingHandler) handleUpdateDeposit(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	var req dto.UpdateDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	updated, err := h.lifecycle.UpdateDeposit(r.Context(), actor, id, booking.UpdateDepositInput{
		DepositStatus: models.DepositStatus(req.DepositStatus),
		DepositAmount: req.DepositAmount,
	})
	if err != nil {
		writeDomainError(w, "update deposit status", err)
		return
	}
	respond.JSON(w, http.StatusOK, "deposit updated", updated)
}

func (h *BookingHandler) handlePayDeposit(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	var req dto.PayDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	payment, updated, err := h.lifecycle.PayDeposit(r.Context(), actor, id, paymentMethodFrom(req.PaymentMethod))
	if err != nil {
		writeDomainError(w, "pay deposit", err)
		return
	}
	respond.JSON(w, http.StatusOK, "payment recorded, awaiting final confirmation", map[string]any{
		"booking":       updated,
		"transactionId": payment.TransactionID,
	})
}

func (h *BookingHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	// The reason is optional; a bodyless cancel is fine.
	var req dto.CancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	updated, err := h.lifecycle.Cancel(r.Context(), actor, id, req.Reason)
	if err != nil {
		writeDomainError(w, "cancel booking", err)
		return
	}
	respond.JSON(w, http.StatusOK, "booking cancelled successfully", updated)
}

func bookingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid booking id")
		return 0, false
	}
	return id, true
}

// paymentMethodFrom maps the free-text method the client sends for the
// simulated payment flow onto the closed method set.
func paymentMethodFrom(raw string) models.PaymentMethod {
	switch {
	case raw == "":
		return models.PaymentCard
	case containsFold(raw, "upi"):
		return models.PaymentUPI
	case containsFold(raw, "net banking"), containsFold(raw, "netbanking"):
		return models.PaymentNetBanking
	case containsFold(raw, "cash"):
		return models.PaymentCash
	default:
		return models.PaymentCard
	}
}

// containsFold reports whether s contains substr case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
