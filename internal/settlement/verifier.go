// Package settlement validates externally-asserted payment completion and,
// on success, records the payment and advances the booking. A rejection is a
// terminal answer to that assertion and never mutates state.
package settlement

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/google/uuid"
	"github.com/rentalhub/rentalhub-be/internal/booking"
	"github.com/rentalhub/rentalhub-be/internal/models"
	"github.com/rentalhub/rentalhub-be/internal/notify"
	"github.com/rentalhub/rentalhub-be/internal/storage"
)

// ErrSignatureMismatch indicates the supplied signature did not match the
// recomputed one. Treated as a fraud attempt, not a retryable failure.
var ErrSignatureMismatch = errors.New("invalid payment signature")

// ErrProviderRejected indicates the provider did not report terminal success
// for the referenced payment, or its metadata named a different booking.
var ErrProviderRejected = errors.New("provider payment not confirmed")

// ErrDuplicatePayment indicates a successful payment already exists for the
// provider transaction id.
var ErrDuplicatePayment = errors.New("payment already recorded")

// Verifier runs both provider strategies. Both converge on the same
// transactional payment-success write: payment row plus the booking's
// approved -> paid_confirm_pending transition.
type Verifier struct {
	bookings storage.BookingStore
	payments storage.PaymentStore
	events   notify.Emitter

	orders  OrderClient
	intents IntentClient

	razorpaySecret string
	devMode        bool
}

// NewVerifier wires the settlement verifier. devMode bypasses signature
// verification and must only be set when no real Razorpay credentials are
// configured.
func NewVerifier(bookings storage.BookingStore, payments storage.PaymentStore, events notify.Emitter, orders OrderClient, intents IntentClient, razorpaySecret string, devMode bool) *Verifier {
	return &Verifier{
		bookings:       bookings,
		payments:       payments,
		events:         events,
		orders:         orders,
		intents:        intents,
		razorpaySecret: razorpaySecret,
		devMode:        devMode,
	}
}

// RazorpayAssertion is the client-supplied callback for the signature
// strategy.
type RazorpayAssertion struct {
	OrderID   string
	PaymentID string
	Signature string
	BookingID int64
	Amount    int64
}

// VerifyRazorpay recomputes HMAC-SHA256(order_id + "|" + payment_id) with the
// shared secret and compares constant-time against the supplied signature.
func (v *Verifier) VerifyRazorpay(ctx context.Context, actor models.Actor, in RazorpayAssertion) (models.DepositPayment, models.Booking, error) {
	if in.OrderID == "" || in.PaymentID == "" || in.BookingID == 0 {
		return models.DepositPayment{}, models.Booking{}, fmt.Errorf("%w: order id, payment id, and booking id are required", booking.ErrValidation)
	}

	if v.devMode {
		log.Printf("settlement: DEV MODE, auto-accepting razorpay assertion for booking %d", in.BookingID)
	} else {
		mac := hmac.New(sha256.New, []byte(v.razorpaySecret))
		mac.Write([]byte(in.OrderID + "|" + in.PaymentID))
		expected := hex.EncodeToString(mac.Sum(nil))
		if !hmac.Equal([]byte(expected), []byte(in.Signature)) {
			return models.DepositPayment{}, models.Booking{}, ErrSignatureMismatch
		}
	}

	return v.accept(ctx, actor, in.BookingID, in.Amount, models.PaymentUPI, in.PaymentID)
}

// VerifyStripe re-fetches the payment intent from the provider and accepts
// only terminal success whose metadata names the expected booking, defending
// against cross-booking replay.
func (v *Verifier) VerifyStripe(ctx context.Context, actor models.Actor, paymentIntentID string, bookingID int64) (models.DepositPayment, models.Booking, error) {
	if paymentIntentID == "" || bookingID == 0 {
		return models.DepositPayment{}, models.Booking{}, fmt.Errorf("%w: payment intent id and booking id are required", booking.ErrValidation)
	}

	intent, err := v.intents.GetIntent(ctx, paymentIntentID)
	if err != nil {
		return models.DepositPayment{}, models.Booking{}, fmt.Errorf("retrieve payment intent: %w", err)
	}
	if intent.Status != IntentSucceeded || intent.Metadata["bookingId"] != strconv.FormatInt(bookingID, 10) {
		return models.DepositPayment{}, models.Booking{}, ErrProviderRejected
	}

	// Provider amounts are in the smallest currency unit.
	return v.accept(ctx, actor, bookingID, intent.Amount/100, models.PaymentCard, paymentIntentID)
}

// accept runs the shared success path: authorization, idempotency guard, and
// the transactional payment-success write. Both strategies funnel through it
// so the duplicate-transaction guard applies to each.
func (v *Verifier) accept(ctx context.Context, actor models.Actor, bookingID, amount int64, method models.PaymentMethod, transactionID string) (models.DepositPayment, models.Booking, error) {
	b, err := v.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return models.DepositPayment{}, models.Booking{}, err
	}
	if !booking.CanPayDeposit(actor, b) {
		return models.DepositPayment{}, models.Booking{}, booking.ErrForbidden
	}

	if existing, err := v.payments.FindPaymentByTransactionID(ctx, transactionID); err == nil && existing.Status == models.PaymentSuccess {
		return models.DepositPayment{}, models.Booking{}, ErrDuplicatePayment
	} else if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return models.DepositPayment{}, models.Booking{}, err
	}

	payment := models.DepositPayment{
		BookingID:     b.ID,
		TenantID:      actor.ID,
		Amount:        amount,
		Currency:      "INR",
		Method:        method,
		TransactionID: transactionID,
		Status:        models.PaymentSuccess,
	}
	saved, updated, err := v.payments.RecordDepositPayment(ctx, payment, models.BookingApproved, models.BookingPaidConfirmPending)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			return models.DepositPayment{}, models.Booking{}, ErrDuplicatePayment
		case errors.Is(err, storage.ErrStaleState):
			return models.DepositPayment{}, models.Booking{}, booking.ErrInvalidTransition
		}
		return models.DepositPayment{}, models.Booking{}, err
	}

	v.events.Emit(notify.Event{Kind: notify.EventInvoice, BookingID: updated.ID, PaymentID: saved.ID})
	return saved, updated, nil
}

// CreateOrder opens a provider order for the signature strategy. In dev mode
// a mock order is returned instead of calling out.
func (v *Verifier) CreateOrder(ctx context.Context, amount, bookingID int64) (Order, error) {
	receipt := fmt.Sprintf("receipt_%d", bookingID)
	if v.devMode {
		log.Printf("settlement: DEV MODE, mock razorpay order for booking %d", bookingID)
		return Order{
			ID:       "order_DEV" + uuid.NewString(),
			Amount:   amount * 100,
			Currency: "INR",
			Receipt:  receipt,
			Status:   "created",
		}, nil
	}
	return v.orders.CreateOrder(ctx, amount*100, "INR", receipt)
}

// CreateIntent opens a provider payment intent for the status-lookup
// strategy, tagging it with the booking and tenant it settles.
func (v *Verifier) CreateIntent(ctx context.Context, actor models.Actor, amount, bookingID int64) (Intent, error) {
	metadata := map[string]string{
		"bookingId": strconv.FormatInt(bookingID, 10),
		"userId":    strconv.FormatInt(actor.ID, 10),
	}
	return v.intents.CreateIntent(ctx, amount*100, "inr", metadata)
}
