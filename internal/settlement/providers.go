package settlement

import "context"

// IntentSucceeded is the provider's terminal-success intent status.
const IntentSucceeded = "succeeded"

// Order is a provider order opened ahead of a signature-verified payment.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// OrderClient opens provider orders. Amounts are in the smallest currency
// unit.
type OrderClient interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (Order, error)
}

// Intent is the provider's view of a payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Metadata     map[string]string
}

// IntentClient creates and re-fetches payment intents. Amounts are in the
// smallest currency unit.
type IntentClient interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (Intent, error)
	GetIntent(ctx context.Context, id string) (Intent, error)
}
