package storage

import (
	"context"
	"errors"
	"time"

	"github.com/rentalhub/rentalhub-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrStaleState indicates a conditional update matched no row because the
// record was no longer in the expected state.
var ErrStaleState = errors.New("record state changed")

// ActorStore resolves and persists accounts across the four disjoint
// partitions. Resolve selects the partition named by role and never falls
// back to another one on a miss.
type ActorStore interface {
	CreateActor(ctx context.Context, actor models.Actor) (models.Actor, error)
	GetActor(ctx context.Context, role models.Role, id int64) (models.Actor, error)
	// FindActorByEmail scans all four partitions; used by credential flows.
	FindActorByEmail(ctx context.Context, email string) (models.Actor, error)
	ListBrokers(ctx context.Context) ([]models.Actor, error)
	HireBroker(ctx context.Context, tenantID, brokerID int64) error
	ListBrokerClients(ctx context.Context, brokerID int64) ([]models.Actor, error)
}

// PropertyStore covers the thin property surface the booking core needs.
type PropertyStore interface {
	CreateProperty(ctx context.Context, p models.Property) (models.Property, error)
	GetProperty(ctx context.Context, id int64) (models.Property, error)
}

// BookingStore persists bookings. Transition methods are conditional updates:
// they match the expected prior state in the WHERE clause and return
// ErrStaleState when the row has moved on, so concurrent transitions on the
// same booking cannot silently overwrite each other.
type BookingStore interface {
	CreateBooking(ctx context.Context, b models.Booking) (models.Booking, error)
	GetBooking(ctx context.Context, id int64) (models.Booking, error)
	ListAllBookings(ctx context.Context) ([]models.Booking, error)
	ListBookingsByTenant(ctx context.Context, tenantID int64) ([]models.Booking, error)
	// ListBookingsByLister matches on (lister id, lister kind): the account
	// partitions have independent id sequences, so the id alone is ambiguous.
	ListBookingsByLister(ctx context.Context, listerID int64, kind models.Role) ([]models.Booking, error)
	SetBookingStatus(ctx context.Context, id int64, from, to models.BookingStatus) (models.Booking, error)
	ReconcileDeposit(ctx context.Context, id int64, deposit models.DepositStatus, amount *int64, status *models.BookingStatus, allowedFrom []models.BookingStatus) (models.Booking, error)
	CancelBooking(ctx context.Context, id int64, by int64, byRole models.Role, reason string, at time.Time) (models.Booking, error)
}

// PaymentStore persists deposit payments. RecordDepositPayment writes the
// payment row and the booking's payment-success transition in a single
// transaction; the store enforces at most one successful payment per
// transaction id and reports a duplicate as ErrAlreadyExists.
type PaymentStore interface {
	RecordDepositPayment(ctx context.Context, p models.DepositPayment, from, to models.BookingStatus) (models.DepositPayment, models.Booking, error)
	FindPaymentByTransactionID(ctx context.Context, transactionID string) (models.DepositPayment, error)
	GetPayment(ctx context.Context, id int64) (models.DepositPayment, error)
	ListPaymentsByTenant(ctx context.Context, tenantID int64) ([]models.DepositPayment, error)
}
