package domain

import "fmt"

// CartItem is a single line item in a cart-add request.
type CartItem struct {
	ID         int64             `json:"id"` // variant id
	Quantity   int               `json:"quantity"`
	Properties map[string]string `json:"properties,omitempty"`
}

// CartAddRequest is the payload posted to the Shopify cart API.
type CartAddRequest struct {
	Items    []CartItem `json:"items"`
	Sections string     `json:"sections,omitempty"` // comma-separated section ids to render back
}

// CartLine is a line item as echoed back by the cart API.
type CartLine struct {
	VariantID int64  `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	Title     string `json:"title"`
}

// CartAddResponse is the success shape of the cart API.
type CartAddResponse struct {
	Items    []CartLine        `json:"items"`
	Sections map[string]string `json:"sections,omitempty"`
}

// CartError is the error shape returned by the cart API on non-2xx responses.
type CartError struct {
	Status      int    `json:"status"`
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`
}

func (e *CartError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("cart API error %d: %s (%s)", e.Status, e.Message, e.Description)
	}
	return fmt.Sprintf("cart API error %d: %s", e.Status, e.Message)
}
