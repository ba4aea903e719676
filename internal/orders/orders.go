package orders

import (
	"encoding/json"
	"fmt"
	"strings"

	"conveyor/internal/services"
)

// Status tracks an order through the pipeline.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusProcessed Status = "Processed"
	StatusFailed    Status = "Failed"
)

// UserInfo identifies the customer on an order.
type UserInfo struct {
	UserID          string `json:"userId"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	ShippingAddress string `json:"shippingAddress"`
}

// LineItem is one product entry on an order.
type LineItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	TotalPrice  float64 `json:"totalPrice"`
}

// Order is the document exchanged between stages and persisted in the
// document store. JSON field names follow the upstream order feed; decoding
// is tolerant of field-name casing because encoding/json matches keys
// case-insensitively.
type Order struct {
	OrderID        string     `json:"orderId"`
	UserInfo       UserInfo   `json:"userInfo"`
	ProductDetails []LineItem `json:"productDetails"`
	OrderTotal     float64    `json:"orderTotal"`
	OrderDate      string     `json:"orderDate"`
	Status         Status     `json:"status,omitempty"`
}

// Decode parses an order payload. Failures are classified as payload errors.
func Decode(body []byte) (Order, error) {
	var order Order
	if err := json.Unmarshal(body, &order); err != nil {
		return Order{}, services.Wrap(services.ErrPayload, "", "order decode", "parse order", err)
	}
	return order, nil
}

// Encode serializes an order for queue bodies and object payloads.
func Encode(order Order) ([]byte, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return nil, services.Wrap(services.ErrPayload, "", "order encode", "marshal order", err)
	}
	return body, nil
}

// Validate applies the business rules every line item must satisfy. An order
// with no line items passes; only present items are checked.
func (o Order) Validate() error {
	if strings.TrimSpace(o.OrderID) == "" {
		return services.Wrap(services.ErrValidation, "", "order validate", "order ID is required", nil)
	}
	for i, item := range o.ProductDetails {
		if item.Quantity <= 0 {
			return services.Wrap(services.ErrValidation, "", "order validate",
				fmt.Sprintf("line item %d (%s) has non-positive quantity %d", i, item.ProductID, item.Quantity), nil)
		}
		if item.UnitPrice <= 0 {
			return services.Wrap(services.ErrValidation, "", "order validate",
				fmt.Sprintf("line item %d (%s) has non-positive unit price %.2f", i, item.ProductID, item.UnitPrice), nil)
		}
	}
	return nil
}
