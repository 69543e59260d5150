// Package booking owns the visit-booking state machine and the authorization
// rules around it.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rentalhub/rentalhub-be/internal/models"
	"github.com/rentalhub/rentalhub-be/internal/notify"
	"github.com/rentalhub/rentalhub-be/internal/storage"
)

// ErrForbidden indicates the actor may not perform the operation.
var ErrForbidden = errors.New("not authorized")

// ErrInvalidTransition indicates the booking is not in a state the operation
// can run against.
var ErrInvalidTransition = errors.New("invalid booking transition")

// ErrAlreadyCancelled indicates a cancel on an already-cancelled booking.
var ErrAlreadyCancelled = errors.New("booking is already cancelled")

// ErrValidation indicates malformed operation input.
var ErrValidation = errors.New("invalid input")

// Service runs the booking lifecycle: creation, approval, deposit payment,
// reconciliation, cancellation. Notification events are emitted after the
// store write succeeds and never affect the outcome.
type Service struct {
	bookings   storage.BookingStore
	properties storage.PropertyStore
	payments   storage.PaymentStore
	events     notify.Emitter
}

// NewService wires the lifecycle service.
func NewService(bookings storage.BookingStore, properties storage.PropertyStore, payments storage.PaymentStore, events notify.Emitter) *Service {
	return &Service{bookings: bookings, properties: properties, payments: payments, events: events}
}

// CreateInput carries a tenant's visit request.
type CreateInput struct {
	PropertyID int64
	VisitDate  time.Time
	Message    string
}

// Create files a visit request. The booking snapshots the property's deposit
// and the tenant's hired broker at creation time.
func (s *Service) Create(ctx context.Context, actor models.Actor, in CreateInput) (models.Booking, error) {
	if actor.Role != models.RoleTenant {
		return models.Booking{}, ErrForbidden
	}
	if in.PropertyID == 0 || in.VisitDate.IsZero() {
		return models.Booking{}, fmt.Errorf("%w: propertyId and visitDate are required", ErrValidation)
	}

	property, err := s.properties.GetProperty(ctx, in.PropertyID)
	if err != nil {
		return models.Booking{}, err
	}

	b := models.Booking{
		PropertyID:    property.ID,
		TenantID:      actor.ID,
		BrokerID:      actor.HiredBroker,
		Status:        models.BookingPending,
		VisitDate:     in.VisitDate,
		Message:       in.Message,
		DepositStatus: models.DepositPending,
		DepositAmount: property.Deposit,
	}
	created, err := s.bookings.CreateBooking(ctx, b)
	if err != nil {
		return models.Booking{}, err
	}

	s.events.Emit(notify.Event{Kind: notify.EventRequestReceived, BookingID: created.ID})
	return created, nil
}

// List returns bookings scoped by role: admins see all, listers see bookings
// on their own properties, tenants see their own.
func (s *Service) List(ctx context.Context, actor models.Actor) ([]models.Booking, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return s.bookings.ListAllBookings(ctx)
	case models.RoleOwner, models.RoleBroker:
		return s.bookings.ListBookingsByLister(ctx, actor.ID, actor.Role)
	default:
		return s.bookings.ListBookingsByTenant(ctx, actor.ID)
	}
}

// UpdateStatus approves or rejects a pending booking. Approving an
// owner-listed booking is confirmation-equivalent and emits the slot
// confirmation immediately; a broker-listed approval only unlocks the
// deposit step.
func (s *Service) UpdateStatus(ctx context.Context, actor models.Actor, bookingID int64, status models.BookingStatus) (models.Booking, error) {
	if status != models.BookingApproved && status != models.BookingRejected {
		return models.Booking{}, fmt.Errorf("%w: status must be approved or rejected", ErrValidation)
	}

	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	property, err := s.properties.GetProperty(ctx, b.PropertyID)
	if err != nil {
		return models.Booking{}, err
	}
	if !CanManageBooking(actor, property) {
		return models.Booking{}, ErrForbidden
	}
	if b.Status != models.BookingPending {
		return models.Booking{}, ErrInvalidTransition
	}

	updated, err := s.bookings.SetBookingStatus(ctx, bookingID, models.BookingPending, status)
	if err != nil {
		if errors.Is(err, storage.ErrStaleState) {
			return models.Booking{}, ErrInvalidTransition
		}
		return models.Booking{}, err
	}

	if status == models.BookingApproved && property.ListerKind == models.RoleOwner {
		s.events.Emit(notify.Event{Kind: notify.EventSlotConfirmed, BookingID: updated.ID})
	}
	return updated, nil
}

// UpdateDepositInput carries a manual deposit reconciliation.
type UpdateDepositInput struct {
	DepositStatus models.DepositStatus
	DepositAmount *int64
}

// UpdateDeposit is the lister/admin reconciliation path for out-of-band or
// already-verified payments. Marking the deposit paid is the lister-confirmed
// terminal success for broker deals: booking status is forced to paid and the
// slot confirmation goes out.
func (s *Service) UpdateDeposit(ctx context.Context, actor models.Actor, bookingID int64, in UpdateDepositInput) (models.Booking, error) {
	if !in.DepositStatus.Valid() {
		return models.Booking{}, fmt.Errorf("%w: unknown deposit status %q", ErrValidation, in.DepositStatus)
	}

	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	property, err := s.properties.GetProperty(ctx, b.PropertyID)
	if err != nil {
		return models.Booking{}, err
	}
	if !CanManageBooking(actor, property) {
		return models.Booking{}, ErrForbidden
	}
	if b.Status.Terminal() {
		return models.Booking{}, ErrInvalidTransition
	}

	var next *models.BookingStatus
	allowedFrom := []models.BookingStatus{models.BookingPending, models.BookingApproved, models.BookingPaidConfirmPending, models.BookingPaid}
	if in.DepositStatus == models.DepositPaid {
		paid := models.BookingPaid
		next = &paid
		allowedFrom = []models.BookingStatus{models.BookingApproved, models.BookingPaidConfirmPending}
	}

	updated, err := s.bookings.ReconcileDeposit(ctx, bookingID, in.DepositStatus, in.DepositAmount, next, allowedFrom)
	if err != nil {
		if errors.Is(err, storage.ErrStaleState) {
			return models.Booking{}, ErrInvalidTransition
		}
		return models.Booking{}, err
	}

	if in.DepositStatus == models.DepositPaid {
		s.events.Emit(notify.Event{Kind: notify.EventSlotConfirmed, BookingID: updated.ID})
	}
	return updated, nil
}

// PayDeposit records the tenant's synchronous simulated deposit payment and
// moves the booking to paid_confirm_pending. Only broker-listed deals have a
// deposit gate; the lister still has to confirm before the slot counts as
// reserved.
func (s *Service) PayDeposit(ctx context.Context, actor models.Actor, bookingID int64, method models.PaymentMethod) (models.DepositPayment, models.Booking, error) {
	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return models.DepositPayment{}, models.Booking{}, err
	}
	if !CanPayDeposit(actor, b) {
		return models.DepositPayment{}, models.Booking{}, ErrForbidden
	}
	property, err := s.properties.GetProperty(ctx, b.PropertyID)
	if err != nil {
		return models.DepositPayment{}, models.Booking{}, err
	}
	if property.ListerKind == models.RoleOwner {
		return models.DepositPayment{}, models.Booking{}, ErrInvalidTransition
	}
	if b.Status != models.BookingApproved || b.DepositStatus != models.DepositPending {
		return models.DepositPayment{}, models.Booking{}, ErrInvalidTransition
	}

	payment := models.DepositPayment{
		BookingID:     b.ID,
		TenantID:      actor.ID,
		Amount:        b.DepositAmount,
		Currency:      "INR",
		Method:        normalizeMethod(method),
		TransactionID: "TXN-" + uuid.NewString(),
		Status:        models.PaymentSuccess,
	}
	saved, updated, err := s.payments.RecordDepositPayment(ctx, payment, models.BookingApproved, models.BookingPaidConfirmPending)
	if err != nil {
		if errors.Is(err, storage.ErrStaleState) {
			return models.DepositPayment{}, models.Booking{}, ErrInvalidTransition
		}
		return models.DepositPayment{}, models.Booking{}, err
	}

	s.events.Emit(notify.Event{Kind: notify.EventInvoice, BookingID: updated.ID, PaymentID: saved.ID})
	return saved, updated, nil
}

// Cancel terminally flags the booking and stamps who cancelled it and why. A
// paid deposit is marked refunded; the refund itself happens out of band.
func (s *Service) Cancel(ctx context.Context, actor models.Actor, bookingID int64, reason string) (models.Booking, error) {
	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	property, err := s.properties.GetProperty(ctx, b.PropertyID)
	if err != nil {
		return models.Booking{}, err
	}
	if !CanCancelBooking(actor, b, property) {
		return models.Booking{}, ErrForbidden
	}
	if b.Status == models.BookingCancelled {
		return models.Booking{}, ErrAlreadyCancelled
	}
	if b.Status == models.BookingRejected {
		return models.Booking{}, ErrInvalidTransition
	}

	if reason == "" {
		reason = "No reason provided"
	}
	updated, err := s.bookings.CancelBooking(ctx, bookingID, actor.ID, actor.Role, reason, time.Now())
	if err != nil {
		if errors.Is(err, storage.ErrStaleState) {
			// Re-read to tell a lost race to cancel apart from one to reject.
			current, readErr := s.bookings.GetBooking(ctx, bookingID)
			if readErr == nil && current.Status == models.BookingCancelled {
				return models.Booking{}, ErrAlreadyCancelled
			}
			return models.Booking{}, ErrInvalidTransition
		}
		return models.Booking{}, err
	}

	s.events.Emit(notify.Event{Kind: notify.EventBookingCancelled, BookingID: updated.ID})
	return updated, nil
}

func normalizeMethod(method models.PaymentMethod) models.PaymentMethod {
	switch method {
	case models.PaymentCard, models.PaymentUPI, models.PaymentNetBanking, models.PaymentCash:
		return method
	default:
		return models.PaymentCard
	}
}
