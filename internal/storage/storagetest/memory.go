// Package storagetest provides in-memory store implementations mirroring the
// Postgres semantics, for use in unit tests.
package storagetest

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rentalhub/rentalhub-be/internal/models"
	"github.com/rentalhub/rentalhub-be/internal/storage"
)

// Memory implements every storage interface over process-local maps. The
// conditional-update behavior matches the Postgres store: transitions whose
// expected prior state no longer holds return ErrStaleState.
type Memory struct {
	mu sync.Mutex

	nextID     int64
	actors     map[actorKey]models.Actor
	clients    map[int64][]int64 // broker id -> tenant ids
	properties map[int64]models.Property
	bookings   map[int64]models.Booking
	payments   map[int64]models.DepositPayment
}

type actorKey struct {
	role models.Role
	id   int64
}

// Compile-time interface checks.
var (
	_ storage.ActorStore    = (*Memory)(nil)
	_ storage.PropertyStore = (*Memory)(nil)
	_ storage.BookingStore  = (*Memory)(nil)
	_ storage.PaymentStore  = (*Memory)(nil)
)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		actors:     make(map[actorKey]models.Actor),
		clients:    make(map[int64][]int64),
		properties: make(map[int64]models.Property),
		bookings:   make(map[int64]models.Booking),
		payments:   make(map[int64]models.DepositPayment),
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

// CreateActor inserts an account, enforcing email uniqueness across all
// partitions.
func (m *Memory) CreateActor(_ context.Context, actor models.Actor) (models.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.actors {
		if strings.EqualFold(existing.Email, actor.Email) {
			return models.Actor{}, storage.ErrAlreadyExists
		}
	}
	actor.ID = m.id()
	actor.CreatedAt = time.Now()
	m.actors[actorKey{actor.Role, actor.ID}] = actor
	return actor, nil
}

// GetActor looks up id in the partition named by role only.
func (m *Memory) GetActor(_ context.Context, role models.Role, id int64) (models.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	actor, ok := m.actors[actorKey{role, id}]
	if !ok {
		return models.Actor{}, storage.ErrNotFound
	}
	return actor, nil
}

// FindActorByEmail scans all partitions.
func (m *Memory) FindActorByEmail(_ context.Context, email string) (models.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, actor := range m.actors {
		if strings.EqualFold(actor.Email, email) {
			return actor, nil
		}
	}
	return models.Actor{}, storage.ErrNotFound
}

// ListBrokers returns all broker accounts.
func (m *Memory) ListBrokers(_ context.Context) ([]models.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var brokers []models.Actor
	for key, actor := range m.actors {
		if key.role == models.RoleBroker {
			brokers = append(brokers, actor)
		}
	}
	return brokers, nil
}

// HireBroker links tenant and broker.
func (m *Memory) HireBroker(_ context.Context, tenantID, brokerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := actorKey{models.RoleTenant, tenantID}
	tenant, ok := m.actors[key]
	if !ok {
		return storage.ErrNotFound
	}
	tenant.HiredBroker = &brokerID
	m.actors[key] = tenant
	if !slices.Contains(m.clients[brokerID], tenantID) {
		m.clients[brokerID] = append(m.clients[brokerID], tenantID)
	}
	return nil
}

// ListBrokerClients returns the broker's client tenants.
func (m *Memory) ListBrokerClients(_ context.Context, brokerID int64) ([]models.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var tenants []models.Actor
	for _, id := range m.clients[brokerID] {
		if tenant, ok := m.actors[actorKey{models.RoleTenant, id}]; ok {
			tenants = append(tenants, tenant)
		}
	}
	return tenants, nil
}

// CreateProperty inserts a listing, zeroing the deposit for owner listings.
func (m *Memory) CreateProperty(_ context.Context, p models.Property) (models.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ListerKind == models.RoleOwner {
		p.Deposit = 0
	}
	p.ID = m.id()
	p.CreatedAt = time.Now()
	m.properties[p.ID] = p
	return p, nil
}

// GetProperty fetches a listing.
func (m *Memory) GetProperty(_ context.Context, id int64) (models.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.properties[id]
	if !ok {
		return models.Property{}, storage.ErrNotFound
	}
	return p, nil
}

// CreateBooking inserts a booking row.
func (m *Memory) CreateBooking(_ context.Context, b models.Booking) (models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = m.id()
	b.CreatedAt = time.Now()
	m.bookings[b.ID] = b
	return b, nil
}

// GetBooking fetches a booking.
func (m *Memory) GetBooking(_ context.Context, id int64) (models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return models.Booking{}, storage.ErrNotFound
	}
	return b, nil
}

// ListAllBookings returns every booking.
func (m *Memory) ListAllBookings(_ context.Context) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		out = append(out, b)
	}
	return out, nil
}

// ListBookingsByTenant returns the tenant's bookings.
func (m *Memory) ListBookingsByTenant(_ context.Context, tenantID int64) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.TenantID == tenantID {
			out = append(out, b)
		}
	}
	return out, nil
}

// ListBookingsByLister returns bookings on the lister's properties.
func (m *Memory) ListBookingsByLister(_ context.Context, listerID int64, kind models.Role) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if p, ok := m.properties[b.PropertyID]; ok && p.ListerID == listerID && p.ListerKind == kind {
			out = append(out, b)
		}
	}
	return out, nil
}

// SetBookingStatus applies a conditional status transition.
func (m *Memory) SetBookingStatus(_ context.Context, id int64, from, to models.BookingStatus) (models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return models.Booking{}, storage.ErrNotFound
	}
	if b.Status != from {
		return models.Booking{}, storage.ErrStaleState
	}
	b.Status = to
	m.bookings[id] = b
	return b, nil
}

// ReconcileDeposit applies a deposit update guarded by allowedFrom.
func (m *Memory) ReconcileDeposit(_ context.Context, id int64, deposit models.DepositStatus, amount *int64, status *models.BookingStatus, allowedFrom []models.BookingStatus) (models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return models.Booking{}, storage.ErrNotFound
	}
	if !slices.Contains(allowedFrom, b.Status) {
		return models.Booking{}, storage.ErrStaleState
	}
	b.DepositStatus = deposit
	if amount != nil {
		b.DepositAmount = *amount
	}
	if status != nil {
		b.Status = *status
	}
	m.bookings[id] = b
	return b, nil
}

// CancelBooking stamps the cancellation unless the row is terminal.
func (m *Memory) CancelBooking(_ context.Context, id int64, by int64, byRole models.Role, reason string, at time.Time) (models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return models.Booking{}, storage.ErrNotFound
	}
	if b.Status == models.BookingCancelled || b.Status == models.BookingRejected {
		return models.Booking{}, storage.ErrStaleState
	}
	b.Status = models.BookingCancelled
	b.CancelledBy = &by
	role := byRole
	b.CancelledByRole = &role
	b.CancellationReason = reason
	cancelledAt := at
	b.CancelledAt = &cancelledAt
	if b.DepositStatus == models.DepositPaid {
		b.DepositStatus = models.DepositRefunded
	}
	m.bookings[id] = b
	return b, nil
}

// RecordDepositPayment writes the payment and the booking transition
// atomically under the store lock.
func (m *Memory) RecordDepositPayment(_ context.Context, p models.DepositPayment, from, to models.BookingStatus) (models.DepositPayment, models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.payments {
		if existing.TransactionID == p.TransactionID && existing.Status == models.PaymentSuccess {
			return models.DepositPayment{}, models.Booking{}, storage.ErrAlreadyExists
		}
	}
	b, ok := m.bookings[p.BookingID]
	if !ok {
		return models.DepositPayment{}, models.Booking{}, storage.ErrNotFound
	}
	if b.Status != from || b.DepositStatus != models.DepositPending {
		return models.DepositPayment{}, models.Booking{}, storage.ErrStaleState
	}
	p.ID = m.id()
	p.CreatedAt = time.Now()
	m.payments[p.ID] = p

	b.DepositStatus = models.DepositPaid
	b.Status = to
	m.bookings[b.ID] = b
	return p, b, nil
}

// FindPaymentByTransactionID fetches a payment by external reference.
func (m *Memory) FindPaymentByTransactionID(_ context.Context, transactionID string) (models.DepositPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.TransactionID == transactionID {
			return p, nil
		}
	}
	return models.DepositPayment{}, storage.ErrNotFound
}

// GetPayment fetches a payment by id.
func (m *Memory) GetPayment(_ context.Context, id int64) (models.DepositPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return models.DepositPayment{}, storage.ErrNotFound
	}
	return p, nil
}

// ListPaymentsByTenant returns a tenant's payments.
func (m *Memory) ListPaymentsByTenant(_ context.Context, tenantID int64) ([]models.DepositPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DepositPayment
	for _, p := range m.payments {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}
