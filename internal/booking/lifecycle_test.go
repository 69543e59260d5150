package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentalhub/rentalhub-be/internal/booking"
	"github.com/rentalhub/rentalhub-be/internal/models"
	"github.com/rentalhub/rentalhub-be/internal/notify"
	"github.com/rentalhub/rentalhub-be/internal/storage"
	"github.com/rentalhub/rentalhub-be/internal/storage/storagetest"
)

type eventRecorder struct {
	events []notify.Event
}

func (r *eventRecorder) Emit(e notify.Event) {
	r.events = append(r.events, e)
}

func (r *eventRecorder) kinds() []notify.EventKind {
	kinds := make([]notify.EventKind, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type fixture struct {
	mem     *storagetest.Memory
	events  *eventRecorder
	service *booking.Service

	tenant models.Actor
	owner  models.Actor
	broker models.Actor
	admin  models.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := storagetest.NewMemory()
	events := &eventRecorder{}
	f := &fixture{
		mem:     mem,
		events:  events,
		service: booking.NewService(mem, mem, mem, events),
	}
	ctx := context.Background()

	var err error
	f.tenant, err = mem.CreateActor(ctx, models.Actor{Role: models.RoleTenant, Name: "Tina", Email: "tina@example.com"})
	require.NoError(t, err)
	f.owner, err = mem.CreateActor(ctx, models.Actor{Role: models.RoleOwner, Name: "Omar", Email: "omar@example.com"})
	require.NoError(t, err)
	f.broker, err = mem.CreateActor(ctx, models.Actor{Role: models.RoleBroker, Name: "Bela", Email: "bela@example.com"})
	require.NoError(t, err)
	f.admin, err = mem.CreateActor(ctx, models.Actor{Role: models.RoleAdmin, Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	return f
}

func (f *fixture) brokerProperty(t *testing.T, deposit int64) models.Property {
	t.Helper()
	p, err := f.mem.CreateProperty(context.Background(), models.Property{
		Title: "2BHK near station", Location: "Ahmedabad",
		ListerID: f.broker.ID, ListerKind: models.RoleBroker, Deposit: deposit,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) ownerProperty(t *testing.T) models.Property {
	t.Helper()
	p, err := f.mem.CreateProperty(context.Background(), models.Property{
		Title: "Villa direct deal", Location: "Surat",
		ListerID: f.owner.ID, ListerKind: models.RoleOwner,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) book(t *testing.T, tenant models.Actor, propertyID int64) models.Booking {
	t.Helper()
	b, err := f.service.Create(context.Background(), tenant, booking.CreateInput{
		PropertyID: propertyID,
		VisitDate:  time.Now().Add(48 * time.Hour),
		Message:    "would like a morning visit",
	})
	require.NoError(t, err)
	return b
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	property := f.brokerProperty(t, 5000)

	require.NoError(t, f.mem.HireBroker(ctx, f.tenant.ID, f.broker.ID))
	tenant, err := f.mem.GetActor(ctx, models.RoleTenant, f.tenant.ID)
	require.NoError(t, err)

	b := f.book(t, tenant, property.ID)

	assert.Equal(t, models.BookingPending, b.Status)
	assert.Equal(t, models.DepositPending, b.DepositStatus)
	assert.Equal(t, int64(5000), b.DepositAmount)
	require.NotNil(t, b.BrokerID)
	assert.Equal(t, f.broker.ID, *b.BrokerID)
	assert.Equal(t, []notify.EventKind{notify.EventRequestReceived}, f.events.kinds())
}

func TestCreateBookingRejectsNonTenants(t *testing.T) {
	f := newFixture(t)
	property := f.brokerProperty(t, 1000)

	_, err := f.service.Create(context.Background(), f.owner, booking.CreateInput{
		PropertyID: property.ID,
		VisitDate:  time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, booking.ErrForbidden)
}

func TestCreateBookingMissingProperty(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), f.tenant, booking.CreateInput{
		PropertyID: 9999,
		VisitDate:  time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestApproveOwnerListingConfirmsImmediately(t *testing.T) {
	f := newFixture(t)
	property := f.ownerProperty(t)
	b := f.book(t, f.tenant, property.ID)

	updated, err := f.service.UpdateStatus(context.Background(), f.owner, b.ID, models.BookingApproved)
	require.NoError(t, err)

	assert.Equal(t, models.BookingApproved, updated.Status)
	assert.Equal(t, models.DepositPending, updated.DepositStatus)
	assert.Equal(t, int64(0), updated.DepositAmount)
	assert.Equal(t, []notify.EventKind{notify.EventRequestReceived, notify.EventSlotConfirmed}, f.events.kinds())
}

func TestApproveBrokerListingDoesNotConfirm(t *testing.T) {
	f := newFixture(t)
	property := f.brokerProperty(t, 5000)
	b := f.book(t, f.tenant, property.ID)

	updated, err := f.service.UpdateStatus(context.Background(), f.broker, b.ID, models.BookingApproved)
	require.NoError(t, err)

	assert.Equal(t, models.BookingApproved, updated.Status)
	assert.NotContains(t, f.events.kinds(), notify.EventSlotConfirmed)
}

func TestUpdateStatusAuthorization(t *testing.T) {
	f := newFixture(t)
	property := f.brokerProperty(t, 5000)

	tests := []struct {
		name    string
		actor   models.Actor
		wantErr error
	}{
		{"tenant cannot manage", f.tenant, booking.ErrForbidden},
		{"unrelated owner cannot manage", f.owner, booking.ErrForbidden},
		{"listing broker can manage", f.broker, nil},
		{"admin can manage", f.admin, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := f.book(t, f.tenant, property.ID)
			_, err := f.service.UpdateStatus(context.Background(), tc.actor, b.ID, models.BookingRejected)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUpdateStatusTransitionRules(t *testing.T) {
	f := newFixture(t)
	property := f.brokerProperty(t, 5000)
	b := f.book(t, f.tenant, property.ID)

	_, err := f.service.UpdateStatus(context.Background(), f.broker, b.ID, models.BookingPaid)
	assert.ErrorIs(t, err, booking.ErrValidation)

	_, err = f.service.UpdateStatus(context.Background(), f.broker, b.ID, models.BookingApproved)
	require.NoError(t, err)

	// A second approval is no longer leaving pending.
	_, err = f.service.UpdateStatus(context.Background(), f.broker, b.ID, models.BookingApproved)
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)
}

func TestPayDeposit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	property := f.brokerProperty(t, 5000)
	b := f.book(t, f.tenant, property.ID)

	_, err := f.service.UpdateStatus(ctx, f.broker, b.ID, models.BookingApproved)
	require.NoError(t, err)

	payment, updated, err := f.service.PayDeposit(ctx, f.tenant, b.ID, models.PaymentUPI)
	require.NoError(t, err)

	assert.Equal(t, models.BookingPaidConfirmPending, updated.Status)
	assert.Equal(t, models.DepositPaid, updated.DepositStatus)
	assert.Equal(t, int64(5000), payment.Amount)
	assert.Equal(t, models.PaymentSuccess, payment.Status)
	assert.NotEmpty(t, payment.TransactionID)
	assert.Contains(t, f.events.kinds(), notify.EventInvoice)
}

func TestPayDepositPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("only the booking's tenant may pay", func(t *testing.T) {
		property := f.brokerProperty(t, 5000)
		b := f.book(t, f.tenant, property.ID)
		_, _, err := f.service.PayDeposit(ctx, f.broker, b.ID, models.PaymentCard)
		assert.ErrorIs(t, err, booking.ErrForbidden)

		other, err := f.mem.CreateActor(ctx, models.Actor{Role: models.RoleTenant, Name: "Nora", Email: "nora@example.com"})
		require.NoError(t, err)
		_, _, err = f.service.PayDeposit(ctx, other, b.ID, models.PaymentCard)
		assert.ErrorIs(t, err, booking.ErrForbidden)
	})

	t.Run("requires an approved booking", func(t *testing.T) {
		property := f.brokerProperty(t, 5000)
		b := f.book(t, f.tenant, property.ID)
		_, _, err := f.service.PayDeposit(ctx, f.tenant, b.ID, models.PaymentCard)
		assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	})

	t.Run("owner listings have no deposit gate", func(t *testing.T) {
		property := f.ownerProperty(t)
		b := f.book(t, f.tenant, property.ID)
		_, err := f.service.UpdateStatus(ctx, f.owner, b.ID, models.BookingApproved)
		require.NoError(t, err)
		_, _, err = f.service.PayDeposit(ctx, f.tenant, b.ID, models.PaymentCard)
		assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	})
}

func TestBrokerDealFullFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	property := f.brokerProperty(t, 5000)

	b := f.book(t, f.tenant, property.ID)
	assert.Equal(t, models.BookingPending, b.Status)

	b, err := f.service.UpdateStatus(ctx, f.broker, b.ID, models.BookingApproved)
	require.NoError(t, err)
	assert.Equal(t, models.BookingApproved, b.Status)

	_, b, err = f.service.PayDeposit(ctx, f.tenant, b.ID, models.PaymentUPI)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPaidConfirmPending, b.Status)
	assert.Equal(t, models.DepositPaid, b.DepositStatus)

	b, err = f.service.UpdateDeposit(ctx, f.broker, b.ID, booking.UpdateDepositInput{DepositStatus: models.DepositPaid})
	require.NoError(t, err)
	assert.Equal(t, models.BookingPaid, b.Status)
	assert.Equal(t, models.DepositPaid, b.DepositStatus)

	assert.Equal(t, []notify.EventKind{
		notify.EventRequestReceived,
		notify.EventInvoice,
		notify.EventSlotConfirmed,
	}, f.events.kinds())
}

func TestUpdateDeposit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("marking paid forces booking to paid", func(t *testing.T) {
		property := f.brokerProperty(t, 5000)
		b := f.book(t, f.tenant, property.ID)
		_, err := f.service.UpdateStatus(ctx, f.broker, b.ID, models.BookingApproved)
		require.NoError(t, err)

		updated, err := f.service.UpdateDeposit(ctx, f.broker, b.ID, booking.UpdateDepositInput{DepositStatus: models.DepositPaid})
		require.NoError(t, err)
		assert.Equal(t, models.BookingPaid, updated.Status)
		assert.Contains(t, f.events.kinds(), notify.EventSlotConfirmed)
	})

	t.Run("rejects unknown deposit status", func(t *testing.T) {
		property := f.brokerProperty(t, 5000)
		b := f.book(t, f.tenant, property.ID)
		_, err := f.service.UpdateDeposit(ctx, f.broker, b.ID, booking.UpdateDepositInput{DepositStatus: "held"})
		assert.ErrorIs(t, err, booking.ErrValidation)
	})

	t.Run("rejects terminal bookings", func(t *testing.T) {
		property := f.brokerProperty(t, 5000)
		b := f.book(t, f.tenant, property.ID)
		_, err := f.service.Cancel(ctx, f.tenant, b.ID, "plans changed")
		require.NoError(t, err)
		_, err = f.service.UpdateDeposit(ctx, f.broker, b.ID, booking.UpdateDepositInput{DepositStatus: models.DepositPaid})
		assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	})

	t.Run("marking paid requires the deposit step to be reachable", func(t *testing.T) {
		property := f.brokerProperty(t, 5000)
		b := f.book(t, f.tenant, property.ID)
		// Still pending: not approved yet.
		_, err := f.service.UpdateDeposit(ctx, f.broker, b.ID, booking.UpdateDepositInput{DepositStatus: models.DepositPaid})
		assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	})
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("stamps cancellation metadata", func(t *testing.T) {
		property := f.brokerProperty(t, 5000)
		b := f.book(t, f.tenant, property.ID)

		updated, err := f.service.Cancel(ctx, f.tenant, b.ID, "")
		require.NoError(t, err)
		assert.Equal(t, models.BookingCancelled, updated.Status)
		require.NotNil(t, updated.CancelledBy)
		assert.Equal(t, f.tenant.ID, *updated.CancelledBy)
		require.NotNil(t, updated.CancelledByRole)
		assert.Equal(t, models.RoleTenant, *updated.CancelledByRole)
		require.NotNil(t, updated.CancelledAt)
		assert.Equal(t, "No reason provided", updated.CancellationReason)
		assert.Contains(t, f.events.kinds(), notify.EventBookingCancelled)
	})

	t.Run("paid deposit flips to refunded", func(t *testing.T) {
		property := f.brokerProperty(t, 5000)
		b := f.book(t, f.tenant, property.ID)
		_, err := f.service.UpdateStatus(ctx, f.broker, b.ID, models.BookingApproved)
		require.NoError(t, err)
		_, _, err = f.service.PayDeposit(ctx, f.tenant, b.ID, models.PaymentUPI)
		require.NoError(t, err)

		updated, err := f.service.Cancel(ctx, f.broker, b.ID, "listing withdrawn")
		require.NoError(t, err)
		assert.Equal(t, models.DepositRefunded, updated.DepositStatus)
	})

	t.Run("unpaid deposit stays pending", func(t *testing.T) {
		property := f.brokerProperty(t, 5000)
		b := f.book(t, f.tenant, property.ID)

		updated, err := f.service.Cancel(ctx, f.tenant, b.ID, "found another place")
		require.NoError(t, err)
		assert.Equal(t, models.DepositPending, updated.DepositStatus)
	})

	t.Run("double cancel fails", func(t *testing.T) {
		property := f.brokerProperty(t, 5000)
		b := f.book(t, f.tenant, property.ID)
		_, err := f.service.Cancel(ctx, f.tenant, b.ID, "x")
		require.NoError(t, err)
		_, err = f.service.Cancel(ctx, f.tenant, b.ID, "x")
		assert.ErrorIs(t, err, booking.ErrAlreadyCancelled)
	})

	t.Run("rejected bookings cannot be cancelled", func(t *testing.T) {
		property := f.brokerProperty(t, 5000)
		b := f.book(t, f.tenant, property.ID)
		_, err := f.service.UpdateStatus(ctx, f.broker, b.ID, models.BookingRejected)
		require.NoError(t, err)
		_, err = f.service.Cancel(ctx, f.tenant, b.ID, "x")
		assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	})

	t.Run("snapshotted broker may cancel", func(t *testing.T) {
		require.NoError(t, f.mem.HireBroker(ctx, f.tenant.ID, f.broker.ID))
		tenant, err := f.mem.GetActor(ctx, models.RoleTenant, f.tenant.ID)
		require.NoError(t, err)

		property := f.ownerProperty(t)
		b := f.book(t, tenant, property.ID)
		_, err = f.service.Cancel(ctx, f.broker, b.ID, "client changed plans")
		assert.NoError(t, err)
	})

	t.Run("unrelated actor is forbidden", func(t *testing.T) {
		other, err := f.mem.CreateActor(ctx, models.Actor{Role: models.RoleOwner, Name: "Olla", Email: "olla@example.com"})
		require.NoError(t, err)
		property := f.brokerProperty(t, 5000)
		b := f.book(t, f.tenant, property.ID)
		_, err = f.service.Cancel(ctx, other, b.ID, "x")
		assert.ErrorIs(t, err, booking.ErrForbidden)
	})
}

func TestListScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	brokerProp := f.brokerProperty(t, 5000)
	ownerProp := f.ownerProperty(t)
	other, err := f.mem.CreateActor(ctx, models.Actor{Role: models.RoleTenant, Name: "Noah", Email: "noah@example.com"})
	require.NoError(t, err)

	f.book(t, f.tenant, brokerProp.ID)
	f.book(t, f.tenant, ownerProp.ID)
	f.book(t, other, brokerProp.ID)

	all, err := f.service.List(ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := f.service.List(ctx, f.tenant)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	brokered, err := f.service.List(ctx, f.broker)
	require.NoError(t, err)
	assert.Len(t, brokered, 2)

	owned, err := f.service.List(ctx, f.owner)
	require.NoError(t, err)
	assert.Len(t, owned, 1)
}

// The account partitions have independent id sequences, so an owner and a
// broker can share a numeric id. Listing by lister must match on the kind
// too, never on the id alone.
func TestListDoesNotLeakAcrossListerPartitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	collidingProp, err := f.mem.CreateProperty(ctx, models.Property{
		Title: "1RK off market", Location: "Ahmedabad",
		ListerID: f.owner.ID, ListerKind: models.RoleBroker, Deposit: 3000,
	})
	require.NoError(t, err)
	f.book(t, f.tenant, collidingProp.ID)

	owned, err := f.service.List(ctx, f.owner)
	require.NoError(t, err)
	assert.Empty(t, owned)

	brokerView, err := f.service.List(ctx, models.Actor{ID: f.owner.ID, Role: models.RoleBroker})
	require.NoError(t, err)
	assert.Len(t, brokerView, 1)
}
