package models

import "time"

// PaymentMethod names how a deposit was paid.
type PaymentMethod string

const (
	PaymentCard       PaymentMethod = "card"
	PaymentUPI        PaymentMethod = "upi"
	PaymentNetBanking PaymentMethod = "netbanking"
	PaymentCash       PaymentMethod = "cash"
)

// PaymentStatus is the processor-reported outcome of a payment.
type PaymentStatus string

const (
	PaymentSuccess PaymentStatus = "success"
	PaymentPending PaymentStatus = "pending"
	PaymentFailed  PaymentStatus = "failed"
)

// DepositPayment records a confirmed deposit settlement. TransactionID is the
// external processor reference and doubles as the idempotency key: at most one
// successful payment may exist per transaction id.
type DepositPayment struct {
	ID            int64         `json:"id"`
	BookingID     int64         `json:"bookingId"`
	TenantID      int64         `json:"tenantId"`
	Amount        int64         `json:"amount"`
	Currency      string        `json:"currency"`
	Method        PaymentMethod `json:"paymentMethod"`
	TransactionID string        `json:"transactionId"`
	Status        PaymentStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
}
