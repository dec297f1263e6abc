// Package analytics emits cart change events derived from item-list diffs.
// The store calls into the Emitter port after every settled transition:
// one removeFromCart event when items disappeared, then one addToCart event
// when items appeared, always in that order and never merged.
package analytics

import (
	"context"

	"github.com/google/uuid"

	"minicart-sync/internal/cart"
)

// Name identifies a cart analytics event.
type Name string

const (
	EventAddToCart      Name = "addToCart"
	EventRemoveFromCart Name = "removeFromCart"
)

// Event is one analytics emission.
type Event struct {
	ID    string      `json:"id"`
	Name  Name        `json:"event"`
	Items interface{} `json:"items"`
}

// AddedItem is the restricted projection carried by addToCart events.
// Display metadata beyond these fields never leaves the store.
type AddedItem struct {
	SKUID    string `json:"skuId"`
	Variant  string `json:"variant,omitempty"`
	Price    int64  `json:"price"`
	Brand    string `json:"brand,omitempty"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Emitter is the analytics port consumed by the cart store.
// Emission is best-effort: implementations log failures but the store never
// blocks a state transition on analytics delivery.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// NewAddToCart builds an addToCart event from freshly added items,
// projected down to the analytics shape.
func NewAddToCart(items []cart.Item) Event {
	projected := make([]AddedItem, len(items))
	for n, it := range items {
		projected[n] = AddedItem{
			SKUID:    it.ID,
			Variant:  it.SKUName,
			Price:    it.SellingPrice,
			Brand:    it.Brand,
			Name:     it.Name,
			Quantity: it.Quantity,
		}
	}
	return Event{
		ID:    uuid.NewString(),
		Name:  EventAddToCart,
		Items: projected,
	}
}

// NewRemoveFromCart builds a removeFromCart event carrying the removed items.
func NewRemoveFromCart(items []cart.Item) Event {
	return Event{
		ID:    uuid.NewString(),
		Name:  EventRemoveFromCart,
		Items: items,
	}
}
