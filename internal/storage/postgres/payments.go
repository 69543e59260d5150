package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rentalhub/rentalhub-be/internal/models"
	"github.com/rentalhub/rentalhub-be/internal/storage"
)

const paymentColumns = `id, booking_id, tenant_id, amount, currency, method, transaction_id, status, created_at`

// RecordDepositPayment writes the payment row and the booking's
// payment-success transition in one transaction. The partial unique index on
// transaction_id rejects a second successful payment for the same external
// reference, and the conditional booking update rejects rows that left the
// expected state between the caller's read and this write.
func (s *Store) RecordDepositPayment(ctx context.Context, p models.DepositPayment, from, to models.BookingStatus) (models.DepositPayment, models.Booking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.DepositPayment{}, models.Booking{}, fmt.Errorf("record payment: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`INSERT INTO deposit_payments (booking_id, tenant_id, amount, currency, method, transaction_id, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+paymentColumns,
		p.BookingID, p.TenantID, p.Amount, p.Currency, string(p.Method), p.TransactionID, string(p.Status))
	payment, err := scanPayment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.DepositPayment{}, models.Booking{}, storage.ErrAlreadyExists
		}
		return models.DepositPayment{}, models.Booking{}, err
	}

	row = tx.QueryRow(ctx,
		`UPDATE bookings SET deposit_status = 'paid', status = $1
		 WHERE id = $2 AND status = $3 AND deposit_status = 'pending'
		 RETURNING `+bookingColumns,
		string(to), p.BookingID, string(from))
	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.DepositPayment{}, models.Booking{}, storage.ErrStaleState
		}
		return models.DepositPayment{}, models.Booking{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.DepositPayment{}, models.Booking{}, fmt.Errorf("record payment: commit: %w", err)
	}
	return payment, booking, nil
}

// FindPaymentByTransactionID fetches a payment by its external processor
// reference; used as the idempotent re-submission guard.
func (s *Store) FindPaymentByTransactionID(ctx context.Context, transactionID string) (models.DepositPayment, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM deposit_payments WHERE transaction_id = $1
		 ORDER BY created_at DESC LIMIT 1`, transactionID)
	return scanPayment(row)
}

// GetPayment fetches a payment by id.
func (s *Store) GetPayment(ctx context.Context, id int64) (models.DepositPayment, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM deposit_payments WHERE id = $1`, id)
	return scanPayment(row)
}

// ListPaymentsByTenant returns a tenant's payment history, newest first.
func (s *Store) ListPaymentsByTenant(ctx context.Context, tenantID int64) ([]models.DepositPayment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+paymentColumns+` FROM deposit_payments WHERE tenant_id = $1 ORDER BY created_at DESC`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []models.DepositPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(row pgx.Row) (models.DepositPayment, error) {
	var p models.DepositPayment
	var method, status string
	if err := row.Scan(&p.ID, &p.BookingID, &p.TenantID, &p.Amount, &p.Currency, &method,
		&p.TransactionID, &status, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.DepositPayment{}, storage.ErrNotFound
		}
		return models.DepositPayment{}, fmt.Errorf("scan payment: %w", err)
	}
	p.Method = models.PaymentMethod(method)
	p.Status = models.PaymentStatus(status)
	return p, nil
}
