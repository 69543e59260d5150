package settlement

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// Ensure the SDK wrapper satisfies the client interface.
var _ OrderClient = (*RazorpayOrders)(nil)

// RazorpayOrders opens orders through the Razorpay SDK.
type RazorpayOrders struct {
	client *razorpay.Client
}

// NewRazorpayOrders builds the SDK-backed order client.
func NewRazorpayOrders(keyID, keySecret string) *RazorpayOrders {
	return &RazorpayOrders{client: razorpay.NewClient(keyID, keySecret)}
}

// CreateOrder opens an order with the provider. The SDK has no context
// support; ctx only guards the call site.
func (r *RazorpayOrders) CreateOrder(_ context.Context, amount int64, currency, receipt string) (Order, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	body, err := r.client.Order.Create(data, nil)
	if err != nil {
		return Order{}, fmt.Errorf("razorpay create order: %w", err)
	}

	order := Order{Currency: currency, Receipt: receipt}
	if id, ok := body["id"].(string); ok {
		order.ID = id
	}
	if status, ok := body["status"].(string); ok {
		order.Status = status
	}
	if amt, ok := body["amount"].(float64); ok {
		order.Amount = int64(amt)
	} else {
		order.Amount = amount
	}
	return order, nil
}
