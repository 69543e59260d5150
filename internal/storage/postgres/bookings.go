package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rentalhub/rentalhub-be/internal/models"
	"github.com/rentalhub/rentalhub-be/internal/storage"
)

const bookingColumns = `id, property_id, tenant_id, broker_id, status, visit_date, message,
	deposit_status, deposit_amount, cancelled_by, cancelled_by_role, cancellation_reason,
	cancelled_at, created_at`

// CreateBooking inserts a new visit request. Repeated requests by the same
// tenant for the same property create independent rows.
func (s *Store) CreateBooking(ctx context.Context, b models.Booking) (models.Booking, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO bookings (property_id, tenant_id, broker_id, status, visit_date, message, deposit_status, deposit_amount)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+bookingColumns,
		b.PropertyID, b.TenantID, b.BrokerID, string(b.Status), b.VisitDate, b.Message,
		string(b.DepositStatus), b.DepositAmount)
	return scanBooking(row)
}

// GetBooking fetches a booking by id.
func (s *Store) GetBooking(ctx context.Context, id int64) (models.Booking, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	return scanBooking(row)
}

// ListAllBookings returns every booking, newest first.
func (s *Store) ListAllBookings(ctx context.Context) ([]models.Booking, error) {
	return s.listBookings(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC`)
}

// ListBookingsByTenant returns the tenant's own bookings.
func (s *Store) ListBookingsByTenant(ctx context.Context, tenantID int64) ([]models.Booking, error) {
	return s.listBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE tenant_id = $1 ORDER BY created_at DESC`, tenantID)
}

// ListBookingsByLister returns bookings against properties the lister posted.
// Owners and brokers live in separate tables with independent id sequences,
// so the lister kind is part of the match.
func (s *Store) ListBookingsByLister(ctx context.Context, listerID int64, kind models.Role) ([]models.Booking, error) {
	return s.listBookings(ctx,
		`SELECT b.`+bookingColumnList()+` FROM bookings b
		 JOIN properties p ON p.id = b.property_id
		 WHERE p.lister_id = $1 AND p.lister_kind = $2 ORDER BY b.created_at DESC`,
		listerID, string(kind))
}

// SetBookingStatus moves a booking from one status to another. The expected
// prior status is part of the WHERE clause; a zero-row update means the row
// was no longer in that state and comes back as ErrStaleState.
func (s *Store) SetBookingStatus(ctx context.Context, id int64, from, to models.BookingStatus) (models.Booking, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE bookings SET status = $1 WHERE id = $2 AND status = $3 RETURNING `+bookingColumns,
		string(to), id, string(from))
	b, err := scanBooking(row)
	if errors.Is(err, storage.ErrNotFound) {
		return s.staleOrMissing(ctx, id)
	}
	return b, err
}

// ReconcileDeposit applies a lister/admin deposit update. When the deposit is
// marked paid the booking status is forced to paid in the same statement.
// allowedFrom guards the booking states the update may run against.
func (s *Store) ReconcileDeposit(ctx context.Context, id int64, deposit models.DepositStatus, amount *int64, status *models.BookingStatus, allowedFrom []models.BookingStatus) (models.Booking, error) {
	from := make([]string, 0, len(allowedFrom))
	for _, st := range allowedFrom {
		from = append(from, string(st))
	}

	query := `UPDATE bookings SET deposit_status = $1,
		deposit_amount = COALESCE($2, deposit_amount),
		status = COALESCE($3, status)
		WHERE id = $4 AND status = ANY($5)
		RETURNING ` + bookingColumns

	var next *string
	if status != nil {
		v := string(*status)
		next = &v
	}
	row := s.pool.QueryRow(ctx, query, string(deposit), amount, next, id, from)
	b, err := scanBooking(row)
	if errors.Is(err, storage.ErrNotFound) {
		return s.staleOrMissing(ctx, id)
	}
	return b, err
}

// CancelBooking stamps cancellation metadata and marks a paid deposit as
// refunded, refusing rows already in a terminal state.
func (s *Store) CancelBooking(ctx context.Context, id int64, by int64, byRole models.Role, reason string, at time.Time) (models.Booking, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE bookings SET status = 'cancelled',
			cancelled_by = $1,
			cancelled_by_role = $2,
			cancellation_reason = $3,
			cancelled_at = $4,
			deposit_status = CASE WHEN deposit_status = 'paid' THEN 'refunded' ELSE deposit_status END
		 WHERE id = $5 AND status NOT IN ('cancelled', 'rejected')
		 RETURNING `+bookingColumns,
		by, string(byRole), reason, at, id)
	b, err := scanBooking(row)
	if errors.Is(err, storage.ErrNotFound) {
		return s.staleOrMissing(ctx, id)
	}
	return b, err
}

// staleOrMissing distinguishes "no such booking" from "booking exists but the
// conditional update did not match".
func (s *Store) staleOrMissing(ctx context.Context, id int64) (models.Booking, error) {
	if _, err := s.GetBooking(ctx, id); err != nil {
		return models.Booking{}, err
	}
	return models.Booking{}, storage.ErrStaleState
}

func (s *Store) listBookings(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func bookingColumnList() string {
	return `id, b.property_id, b.tenant_id, b.broker_id, b.status, b.visit_date, b.message,
	b.deposit_status, b.deposit_amount, b.cancelled_by, b.cancelled_by_role, b.cancellation_reason,
	b.cancelled_at, b.created_at`
}

func scanBooking(row pgx.Row) (models.Booking, error) {
	var b models.Booking
	var status, depositStatus string
	var cancelledByRole *string
	if err := row.Scan(&b.ID, &b.PropertyID, &b.TenantID, &b.BrokerID, &status, &b.VisitDate,
		&b.Message, &depositStatus, &b.DepositAmount, &b.CancelledBy, &cancelledByRole,
		&b.CancellationReason, &b.CancelledAt, &b.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Booking{}, storage.ErrNotFound
		}
		return models.Booking{}, fmt.Errorf("scan booking: %w", err)
	}
	b.Status = models.BookingStatus(status)
	b.DepositStatus = models.DepositStatus(depositStatus)
	if cancelledByRole != nil {
		role := models.Role(*cancelledByRole)
		b.CancelledByRole = &role
	}
	return b, nil
}
