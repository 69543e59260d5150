package dto

type RazorpayOrderRequest struct {
	Amount    int64 `json:"amount"`
	BookingID int64 `json:"bookingId"`
}

type RazorpayVerifyRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
	BookingID int64  `json:"bookingId"`
	Amount    int64  `json:"amount"`
}

type StripeIntentRequest struct {
	Amount    int64 `json:"amount"`
	BookingID int64 `json:"bookingId"`
}

type StripeVerifyRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
	BookingID       int64  `json:"bookingId"`
}
