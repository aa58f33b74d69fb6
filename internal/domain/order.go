package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultCurrency is assumed when the order API omits one.
const DefaultCurrency = "EUR"

// OrderCustomer is the buyer attached to an order.
type OrderCustomer struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Discord string `json:"discord,omitempty"`
}

// Order is the payload returned by GET {base}/order/{code}.
type Order struct {
	Code          string         `json:"code,omitempty"`
	Status        string         `json:"status,omitempty"`
	PaymentStatus string         `json:"payment_status,omitempty"`
	TotalAmount   json.Number    `json:"total_amount,omitempty"`
	Currency      string         `json:"currency,omitempty"`
	PaymentMethod string         `json:"payment_method,omitempty"`
	Customer      *OrderCustomer `json:"customer,omitempty"`
	CreatedAt     string         `json:"created_at,omitempty"`
	UpdatedAt     string         `json:"updated_at,omitempty"`
}

// Total formats the amount with its currency, e.g. "49.90 EUR".
func (o Order) Total() string {
	amount := o.TotalAmount.String()
	if amount == "" {
		amount = "0"
	}
	currency := o.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	return fmt.Sprintf("%s %s", amount, currency)
}

// CustomerField returns a customer attribute or "" when the customer block is absent.
func (o Order) CustomerField(pick func(OrderCustomer) string) string {
	if o.Customer == nil {
		return ""
	}
	return pick(*o.Customer)
}

// FormatOrderTime renders an API timestamp for display, passing through values it cannot parse.
func FormatOrderTime(raw string) string {
	if raw == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC().Format("2006-01-02 15:04 UTC")
		}
	}
	return raw
}
