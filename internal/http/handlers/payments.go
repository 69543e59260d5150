package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rentalhub/rentalhub-be/internal/http/respond"
	"github.com/rentalhub/rentalhub-be/internal/middleware"
	"github.com/rentalhub/rentalhub-be/internal/models"
	"github.com/rentalhub/rentalhub-be/internal/models/dto"
	"github.com/rentalhub/rentalhub-be/internal/settlement"
	"github.com/rentalhub/rentalhub-be/internal/storage"
)

// PaymentHandler exposes the provider order/intent endpoints and the
// settlement callbacks.
type PaymentHandler struct {
	verifier *settlement.Verifier
	payments storage.PaymentStore
}

// NewPaymentHandler constructs the handler.
func NewPaymentHandler(verifier *settlement.Verifier, payments storage.PaymentStore) *PaymentHandler {
	return &PaymentHandler{verifier: verifier, payments: payments}
}

// Register attaches payment routes to the mux behind the auth protector.
func (h *PaymentHandler) Register(mux *http.ServeMux, protect middleware.Protector) {
	mux.HandleFunc("POST /api/payments/razorpay/order", protect(h.handleRazorpayOrder))
	mux.HandleFunc("POST /api/payments/razorpay/verify", protect(h.handleRazorpayVerify))
	mux.HandleFunc("POST /api/payments/stripe/create-intent", protect(h.handleStripeIntent))
	mux.HandleFunc("POST /api/payments/stripe/verify", protect(h.handleStripeVerify))
	mux.HandleFunc("GET /api/payments/my", protect(h.handleMyPayments))
}

func (h *PaymentHandler) handleRazorpayOrder(w http.ResponseWriter, r *http.Request) {
	var req dto.RazorpayOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount <= 0 || req.BookingID == 0 {
		respond.Error(w, http.StatusBadRequest, "amount and bookingId are required")
		return
	}
	order, err := h.verifier.CreateOrder(r.Context(), req.Amount, req.BookingID)
	if err != nil {
		writeDomainError(w, "create razorpay order", err)
		return
	}
	respond.JSON(w, http.StatusOK, "order created", order)
}

func (h *PaymentHandler) handleRazorpayVerify(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	var req dto.RazorpayVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	payment, booking, err := h.verifier.VerifyRazorpay(r.Context(), actor, settlement.RazorpayAssertion{
		OrderID:   strings.TrimSpace(req.OrderID),
		PaymentID: strings.TrimSpace(req.PaymentID),
		Signature: strings.TrimSpace(req.Signature),
		BookingID: req.BookingID,
		Amount:    req.Amount,
	})
	if err != nil {
		writeDomainError(w, "verify razorpay payment", err)
		return
	}
	respond.JSON(w, http.StatusOK, "payment verified successfully", map[string]any{
		"booking":       booking,
		"transactionId": payment.TransactionID,
	})
}

func (h *PaymentHandler) handleStripeIntent(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	var req dto.StripeIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount <= 0 || req.BookingID == 0 {
		respond.Error(w, http.StatusBadRequest, "amount and bookingId are required")
		return
	}
	intent, err := h.verifier.CreateIntent(r.Context(), actor, req.Amount, req.BookingID)
	if err != nil {
		writeDomainError(w, "create stripe intent", err)
		return
	}
	respond.JSON(w, http.StatusOK, "intent created", map[string]string{"clientSecret": intent.ClientSecret})
}

func (h *PaymentHandler) handleStripeVerify(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	var req dto.StripeVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	payment, booking, err := h.verifier.VerifyStripe(r.Context(), actor, strings.TrimSpace(req.PaymentIntentID), req.BookingID)
	if err != nil {
		writeDomainError(w, "verify stripe payment", err)
		return
	}
	respond.JSON(w, http.StatusOK, "stripe payment verified", map[string]any{
		"booking":       booking,
		"transactionId": payment.TransactionID,
	})
}

func (h *PaymentHandler) handleMyPayments(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	if actor.Role != models.RoleTenant {
		respond.Error(w, http.StatusForbidden, "only tenants have payment history")
		return
	}
	payments, err := h.payments.ListPaymentsByTenant(r.Context(), actor.ID)
	if err != nil {
		writeDomainError(w, "list payments", err)
		return
	}
	respond.JSON(w, http.StatusOK, "payments", payments)
}
