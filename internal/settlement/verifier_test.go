package settlement_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentalhub/rentalhub-be/internal/booking"
	"github.com/rentalhub/rentalhub-be/internal/models"
	"github.com/rentalhub/rentalhub-be/internal/notify"
	"github.com/rentalhub/rentalhub-be/internal/settlement"
	"github.com/rentalhub/rentalhub-be/internal/storage/storagetest"
)

const testSecret = "rzp_test_secret"

type stubIntents struct {
	intents map[string]settlement.Intent
	created []settlement.Intent
}

func (s *stubIntents) CreateIntent(_ context.Context, amount int64, currency string, metadata map[string]string) (settlement.Intent, error) {
	in := settlement.Intent{
		ID:           "pi_" + strconv.Itoa(len(s.created)+1),
		ClientSecret: "cs_test",
		Status:       "requires_payment_method",
		Amount:       amount,
		Metadata:     metadata,
	}
	s.created = append(s.created, in)
	return in, nil
}

func (s *stubIntents) GetIntent(_ context.Context, id string) (settlement.Intent, error) {
	in, ok := s.intents[id]
	if !ok {
		return settlement.Intent{}, errors.New("no such payment_intent")
	}
	return in, nil
}

type stubOrders struct {
	created []settlement.Order
}

func (s *stubOrders) CreateOrder(_ context.Context, amount int64, currency, receipt string) (settlement.Order, error) {
	o := settlement.Order{
		ID:       "order_" + strconv.Itoa(len(s.created)+1),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}
	s.created = append(s.created, o)
	return o, nil
}

type captureEmitter struct {
	events []notify.Event
}

func (c *captureEmitter) Emit(e notify.Event) { c.events = append(c.events, e) }

type verifierFixture struct {
	mem     *storagetest.Memory
	events  *captureEmitter
	orders  *stubOrders
	intents *stubIntents

	tenant  models.Actor
	booking models.Booking
}

// newVerifierFixture seeds an approved broker-listed booking ready for a
// deposit payment.
func newVerifierFixture(t *testing.T) *verifierFixture {
	t.Helper()
	ctx := context.Background()
	mem := storagetest.NewMemory()

	tenant, err := mem.CreateActor(ctx, models.Actor{Role: models.RoleTenant, Name: "Tina", Email: "tina@example.com"})
	require.NoError(t, err)
	broker, err := mem.CreateActor(ctx, models.Actor{Role: models.RoleBroker, Name: "Bela", Email: "bela@example.com"})
	require.NoError(t, err)
	property, err := mem.CreateProperty(ctx, models.Property{
		Title: "2BHK near station", ListerID: broker.ID, ListerKind: models.RoleBroker, Deposit: 5000,
	})
	require.NoError(t, err)
	b, err := mem.CreateBooking(ctx, models.Booking{
		PropertyID:    property.ID,
		TenantID:      tenant.ID,
		BrokerID:      &broker.ID,
		Status:        models.BookingApproved,
		VisitDate:     time.Now().Add(24 * time.Hour),
		DepositStatus: models.DepositPending,
		DepositAmount: 5000,
	})
	require.NoError(t, err)

	return &verifierFixture{
		mem:     mem,
		events:  &captureEmitter{},
		orders:  &stubOrders{},
		intents: &stubIntents{intents: map[string]settlement.Intent{}},
		tenant:  tenant,
		booking: b,
	}
}

func (f *verifierFixture) verifier(devMode bool) *settlement.Verifier {
	return settlement.NewVerifier(f.mem, f.mem, f.events, f.orders, f.intents, testSecret, devMode)
}

func sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyRazorpay(t *testing.T) {
	ctx := context.Background()

	t.Run("valid signature records payment and advances booking", func(t *testing.T) {
		f := newVerifierFixture(t)
		payment, updated, err := f.verifier(false).VerifyRazorpay(ctx, f.tenant, settlement.RazorpayAssertion{
			OrderID:   "order_1",
			PaymentID: "pay_1",
			Signature: sign("order_1", "pay_1"),
			BookingID: f.booking.ID,
			Amount:    5000,
		})
		require.NoError(t, err)

		assert.Equal(t, models.PaymentSuccess, payment.Status)
		assert.Equal(t, "pay_1", payment.TransactionID)
		assert.Equal(t, int64(5000), payment.Amount)
		assert.Equal(t, models.BookingPaidConfirmPending, updated.Status)
		assert.Equal(t, models.DepositPaid, updated.DepositStatus)
		require.Len(t, f.events.events, 1)
		assert.Equal(t, notify.EventInvoice, f.events.events[0].Kind)
	})

	t.Run("tampered signature is rejected without touching the booking", func(t *testing.T) {
		f := newVerifierFixture(t)
		_, _, err := f.verifier(false).VerifyRazorpay(ctx, f.tenant, settlement.RazorpayAssertion{
			OrderID:   "order_1",
			PaymentID: "pay_1",
			Signature: sign("order_1", "pay_other"),
			BookingID: f.booking.ID,
			Amount:    5000,
		})
		assert.ErrorIs(t, err, settlement.ErrSignatureMismatch)

		b, err := f.mem.GetBooking(ctx, f.booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingApproved, b.Status)
		assert.Equal(t, models.DepositPending, b.DepositStatus)
		assert.Empty(t, f.events.events)
	})

	t.Run("dev mode skips signature verification", func(t *testing.T) {
		f := newVerifierFixture(t)
		_, updated, err := f.verifier(true).VerifyRazorpay(ctx, f.tenant, settlement.RazorpayAssertion{
			OrderID:   "order_DEV1",
			PaymentID: "pay_1",
			Signature: "garbage",
			BookingID: f.booking.ID,
			Amount:    5000,
		})
		require.NoError(t, err)
		assert.Equal(t, models.BookingPaidConfirmPending, updated.Status)
	})

	t.Run("duplicate payment id is rejected", func(t *testing.T) {
		f := newVerifierFixture(t)
		v := f.verifier(false)
		in := settlement.RazorpayAssertion{
			OrderID:   "order_1",
			PaymentID: "pay_1",
			Signature: sign("order_1", "pay_1"),
			BookingID: f.booking.ID,
			Amount:    5000,
		}
		_, _, err := v.VerifyRazorpay(ctx, f.tenant, in)
		require.NoError(t, err)
		_, _, err = v.VerifyRazorpay(ctx, f.tenant, in)
		assert.ErrorIs(t, err, settlement.ErrDuplicatePayment)
	})

	t.Run("only the booking's tenant may verify", func(t *testing.T) {
		f := newVerifierFixture(t)
		other, err := f.mem.CreateActor(ctx, models.Actor{Role: models.RoleTenant, Name: "Nora", Email: "nora@example.com"})
		require.NoError(t, err)
		_, _, err = f.verifier(false).VerifyRazorpay(ctx, other, settlement.RazorpayAssertion{
			OrderID:   "order_1",
			PaymentID: "pay_1",
			Signature: sign("order_1", "pay_1"),
			BookingID: f.booking.ID,
			Amount:    5000,
		})
		assert.ErrorIs(t, err, booking.ErrForbidden)
	})

	t.Run("unapproved booking cannot settle", func(t *testing.T) {
		f := newVerifierFixture(t)
		_, err := f.mem.SetBookingStatus(ctx, f.booking.ID, models.BookingApproved, models.BookingPending)
		require.NoError(t, err)
		_, _, err = f.verifier(false).VerifyRazorpay(ctx, f.tenant, settlement.RazorpayAssertion{
			OrderID:   "order_1",
			PaymentID: "pay_1",
			Signature: sign("order_1", "pay_1"),
			BookingID: f.booking.ID,
			Amount:    5000,
		})
		assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	})
}

func TestVerifyStripe(t *testing.T) {
	ctx := context.Background()

	succeeded := func(f *verifierFixture, id string, bookingID int64) {
		f.intents.intents[id] = settlement.Intent{
			ID:       id,
			Status:   settlement.IntentSucceeded,
			Amount:   500000,
			Metadata: map[string]string{"bookingId": strconv.FormatInt(bookingID, 10)},
		}
	}

	t.Run("succeeded intent for the right booking settles", func(t *testing.T) {
		f := newVerifierFixture(t)
		succeeded(f, "pi_1", f.booking.ID)

		payment, updated, err := f.verifier(false).VerifyStripe(ctx, f.tenant, "pi_1", f.booking.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), payment.Amount)
		assert.Equal(t, models.PaymentCard, payment.Method)
		assert.Equal(t, models.BookingPaidConfirmPending, updated.Status)
	})

	t.Run("non-succeeded intent is rejected", func(t *testing.T) {
		f := newVerifierFixture(t)
		f.intents.intents["pi_1"] = settlement.Intent{
			ID:       "pi_1",
			Status:   "requires_capture",
			Metadata: map[string]string{"bookingId": strconv.FormatInt(f.booking.ID, 10)},
		}
		_, _, err := f.verifier(false).VerifyStripe(ctx, f.tenant, "pi_1", f.booking.ID)
		assert.ErrorIs(t, err, settlement.ErrProviderRejected)
	})

	t.Run("intent tagged for another booking is rejected", func(t *testing.T) {
		f := newVerifierFixture(t)
		succeeded(f, "pi_1", f.booking.ID+100)
		_, _, err := f.verifier(false).VerifyStripe(ctx, f.tenant, "pi_1", f.booking.ID)
		assert.ErrorIs(t, err, settlement.ErrProviderRejected)

		b, err := f.mem.GetBooking(ctx, f.booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingApproved, b.Status)
	})

	t.Run("replaying a settled intent is rejected", func(t *testing.T) {
		f := newVerifierFixture(t)
		succeeded(f, "pi_1", f.booking.ID)
		v := f.verifier(false)
		_, _, err := v.VerifyStripe(ctx, f.tenant, "pi_1", f.booking.ID)
		require.NoError(t, err)
		_, _, err = v.VerifyStripe(ctx, f.tenant, "pi_1", f.booking.ID)
		assert.ErrorIs(t, err, settlement.ErrDuplicatePayment)
	})
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("dev mode mints a mock order", func(t *testing.T) {
		f := newVerifierFixture(t)
		order, err := f.verifier(true).CreateOrder(ctx, 5000, f.booking.ID)
		require.NoError(t, err)
		assert.Contains(t, order.ID, "order_DEV")
		assert.Equal(t, int64(500000), order.Amount)
		assert.Empty(t, f.orders.created)
	})

	t.Run("live mode calls the provider in paise", func(t *testing.T) {
		f := newVerifierFixture(t)
		order, err := f.verifier(false).CreateOrder(ctx, 5000, f.booking.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(500000), order.Amount)
		require.Len(t, f.orders.created, 1)
		assert.Equal(t, "receipt_"+strconv.FormatInt(f.booking.ID, 10), f.orders.created[0].Receipt)
	})
}

func TestCreateIntent(t *testing.T) {
	f := newVerifierFixture(t)
	intent, err := f.verifier(false).CreateIntent(context.Background(), f.tenant, 5000, f.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500000), intent.Amount)
	assert.Equal(t, strconv.FormatInt(f.booking.ID, 10), intent.Metadata["bookingId"])
	assert.Equal(t, strconv.FormatInt(f.tenant.ID, 10), intent.Metadata["userId"])
}
