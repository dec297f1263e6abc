// Package checkout talks to the remote order-form backend. It defines the
// two mutation operations the sync coordinator needs and an HTTP client
// implementing them against the storefront checkout API.
package checkout

import (
	"context"

	"minicart-sync/internal/cart"
)

// Service abstracts the remote order-form operations consumed by the sync
// coordinator. Both calls return the full authoritative order form as the
// backend sees it after the mutation.
//
// Implementations report failures as *cart.RemoteError so the coordinator
// can roll back and notify without inspecting transport details.
type Service interface {
	// UpdateItems changes quantity/options of items the backend already
	// knows (items carrying a cart index).
	UpdateItems(ctx context.Context, orderFormID string, items []cart.SyncInput) (*cart.OrderForm, error)

	// AddItems appends items the backend has never seen (no cart index).
	AddItems(ctx context.Context, orderFormID string, items []cart.SyncInput) (*cart.OrderForm, error)

	// GetOrderForm fetches the current order form for cold-start hydration.
	GetOrderForm(ctx context.Context) (*cart.OrderForm, error)
}
