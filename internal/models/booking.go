package models

import "time"

// BookingStatus is the primary booking state. rejected and cancelled are
// terminal; paid is terminal success for broker-listed deals.
type BookingStatus string

const (
	BookingPending            BookingStatus = "pending"
	BookingApproved           BookingStatus = "approved"
	BookingRejected           BookingStatus = "rejected"
	BookingPaidConfirmPending BookingStatus = "paid_confirm_pending"
	BookingPaid               BookingStatus = "paid"
	BookingCancelled          BookingStatus = "cancelled"
)

// Terminal reports whether no further status transition is allowed.
func (s BookingStatus) Terminal() bool {
	return s == BookingRejected || s == BookingCancelled
}

// DepositStatus tracks the deposit sub-state alongside the booking status.
type DepositStatus string

const (
	DepositPending  DepositStatus = "pending"
	DepositPaid     DepositStatus = "paid"
	DepositRefunded DepositStatus = "refunded"
)

// Valid reports whether s is a known deposit state.
func (s DepositStatus) Valid() bool {
	return s == DepositPending || s == DepositPaid || s == DepositRefunded
}

// Booking is a tenant's visit request against one property. BrokerID is a
// snapshot of the tenant's hired broker at creation time and does not track
// later changes.
type Booking struct {
	ID                 int64         `json:"id"`
	PropertyID         int64         `json:"propertyId"`
	TenantID           int64         `json:"tenantId"`
	BrokerID           *int64        `json:"brokerId,omitempty"`
	Status             BookingStatus `json:"status"`
	VisitDate          time.Time     `json:"visitDate"`
	Message            string        `json:"message,omitempty"`
	DepositStatus      DepositStatus `json:"depositStatus"`
	DepositAmount      int64         `json:"depositAmount"`
	CancelledBy        *int64        `json:"cancelledBy,omitempty"`
	CancelledByRole    *Role         `json:"cancelledByRole,omitempty"`
	CancellationReason string        `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time    `json:"cancelledAt,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
}
