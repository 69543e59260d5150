// Package notify delivers lifecycle emails asynchronously. Delivery is
// best-effort: a failed or dropped notification never influences the state
// transition that triggered it.
package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rentalhub/rentalhub-be/internal/models"
	"github.com/rentalhub/rentalhub-be/internal/storage"
)

// EventKind names a lifecycle notification.
type EventKind string

const (
	EventRequestReceived  EventKind = "booking.request_received"
	EventSlotConfirmed    EventKind = "booking.slot_confirmed"
	EventBookingCancelled EventKind = "booking.cancelled"
	EventInvoice          EventKind = "payment.invoice"
)

// Event references the booking (and for invoices, the payment) a
// notification is about. The dispatcher re-reads current state at delivery
// time rather than carrying a snapshot.
type Event struct {
	Kind      EventKind
	BookingID int64
	PaymentID int64
}

// Emitter accepts lifecycle events. Emit must never block the caller.
type Emitter interface {
	Emit(e Event)
}

// NopEmitter discards all events.
type NopEmitter struct{}

func (NopEmitter) Emit(Event) {}

// Dispatcher consumes events on a buffered channel and sends email through a
// Mailer from a single worker goroutine.
type Dispatcher struct {
	mailer     Mailer
	bookings   storage.BookingStore
	actors     storage.ActorStore
	properties storage.PropertyStore
	payments   storage.PaymentStore

	mu     sync.Mutex
	closed bool
	ch     chan Event
	done   chan struct{}
}

// NewDispatcher creates a dispatcher and starts its worker.
func NewDispatcher(mailer Mailer, bookings storage.BookingStore, actors storage.ActorStore, properties storage.PropertyStore, payments storage.PaymentStore) *Dispatcher {
	d := &Dispatcher{
		mailer:     mailer,
		bookings:   bookings,
		actors:     actors,
		properties: properties,
		payments:   payments,
		ch:         make(chan Event, 64),
		done:       make(chan struct{}),
	}
	go d.run()
	return d
}

// Emit queues an event for delivery. If the queue is full, or the dispatcher
// is already closed, the event is dropped with a log line; callers are never
// blocked or failed. A request finishing mid-shutdown may still call Emit
// after Close, so the closed check happens under the same lock Close takes.
func (d *Dispatcher) Emit(e Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		log.Printf("notify: dispatcher closed, dropping %s for booking %d", e.Kind, e.BookingID)
		return
	}
	select {
	case d.ch <- e:
	default:
		log.Printf("notify: queue full, dropping %s for booking %d", e.Kind, e.BookingID)
	}
}

// Close stops accepting events and waits for queued ones to drain. Safe to
// call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.ch)
	}
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for e := range d.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := d.deliver(ctx, e); err != nil {
			log.Printf("notify: deliver %s for booking %d: %v", e.Kind, e.BookingID, err)
		}
		cancel()
	}
}

func (d *Dispatcher) deliver(ctx context.Context, e Event) error {
	booking, err := d.bookings.GetBooking(ctx, e.BookingID)
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}
	tenant, err := d.actors.GetActor(ctx, models.RoleTenant, booking.TenantID)
	if err != nil {
		return fmt.Errorf("load tenant: %w", err)
	}
	property, err := d.properties.GetProperty(ctx, booking.PropertyID)
	if err != nil {
		return fmt.Errorf("load property: %w", err)
	}

	var msg Message
	switch e.Kind {
	case EventRequestReceived:
		msg = requestReceivedMessage(tenant, property)
	case EventSlotConfirmed:
		msg = slotConfirmedMessage(tenant, property, booking)
	case EventBookingCancelled:
		msg = cancellationMessage(tenant, property, booking)
	case EventInvoice:
		payment, err := d.payments.GetPayment(ctx, e.PaymentID)
		if err != nil {
			return fmt.Errorf("load payment: %w", err)
		}
		msg = invoiceMessage(tenant, property, payment)
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}

	return d.mailer.Send(ctx, msg)
}

func requestReceivedMessage(tenant models.Actor, property models.Property) Message {
	return Message{
		To:      tenant.Email,
		Subject: fmt.Sprintf("Request Received: %s - RentalHub", property.Title),
		Body: fmt.Sprintf("Hi %s,\n\nYour visit request for %s has been sent to the lister. "+
			"They will review it and update your status shortly.\n\n- RentalHub",
			tenant.Name, property.Title),
	}
}

func slotConfirmedMessage(tenant models.Actor, property models.Property, booking models.Booking) Message {
	poster := "Broker"
	note := "Your deposit has been verified, and your slot is now reserved with the broker."
	if property.ListerKind == models.RoleOwner {
		poster = "Property Owner"
		note = "Since this is a direct listing from the owner, you can proceed to the visit at the scheduled time."
	}
	return Message{
		To:      tenant.Email,
		Subject: fmt.Sprintf("Slot Confirmed: %s - RentalHub", property.Title),
		Body: fmt.Sprintf("Hi %s,\n\nYour visit request for %s (%s) has been confirmed by the %s.\nVisit date: %s\n\n%s\n\n- RentalHub",
			tenant.Name, property.Title, property.Location, poster,
			booking.VisitDate.Format("Monday, January 2, 2006"), note),
	}
}

func cancellationMessage(tenant models.Actor, property models.Property, booking models.Booking) Message {
	refundNote := "No payment was processed for this booking."
	if booking.DepositStatus == models.DepositRefunded {
		refundNote = "Your deposit will be refunded within 5-7 business days."
	}
	return Message{
		To:      tenant.Email,
		Subject: fmt.Sprintf("Booking Cancelled: %s - RentalHub", property.Title),
		Body: fmt.Sprintf("Hi %s,\n\nYour booking for %s has been cancelled.\nReason: %s\n\n%s\n\n- RentalHub",
			tenant.Name, property.Title, booking.CancellationReason, refundNote),
	}
}

func invoiceMessage(tenant models.Actor, property models.Property, payment models.DepositPayment) Message {
	return Message{
		To:      tenant.Email,
		Subject: fmt.Sprintf("Payment Invoice: %s - RentalHub", payment.TransactionID),
		Body: fmt.Sprintf("Hi %s,\n\nPayment received for the security deposit on %s.\nAmount: %d %s\nMethod: %s\nTransaction: %s\n\n- RentalHub",
			tenant.Name, property.Title, payment.Amount, payment.Currency, payment.Method, payment.TransactionID),
	}
}
