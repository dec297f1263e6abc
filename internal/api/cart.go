package api

import (
	"log/slog"
	"net/http"

	"minicart-sync/internal/cart"
	"minicart-sync/internal/store"
)

// cartView is the presentation shape of the cart. Items carry only the
// standalone entries with a positive quantity; entries pending server-side
// removal and assembly sub-items are filtered out.
type cartView struct {
	Items         []cart.Item     `json:"items"`
	TotalItems    int             `json:"totalItems"`
	DistinctItems int             `json:"distinctItems"`
	OrderForm     *cart.OrderForm `json:"orderForm,omitempty"`
	IsOpen        bool            `json:"isOpen"`
	IsSyncing     bool            `json:"isSyncing"`
}

func viewOf(state store.State) cartView {
	visible := cart.VisibleItems(state.Items)
	if visible == nil {
		visible = []cart.Item{}
	}
	return cartView{
		Items:         visible,
		TotalItems:    cart.TotalQuantity(visible),
		DistinctItems: cart.DistinctCount(visible),
		OrderForm:     state.OrderForm,
		IsOpen:        state.IsOpen,
		IsSyncing:     state.IsSyncing,
	}
}

// handleGetCart returns the current cart view.
// GET /cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, viewOf(h.store.State()))
}

// handleSetOpen toggles minicart visibility.
// POST /cart/open
func (h *Handler) handleSetOpen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Open bool `json:"open"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	h.store.SetOpen(req.Open)
	h.writeJSON(w, http.StatusOK, viewOf(h.store.State()))
}

// handleAddItem adds a product to the cart.
// POST /cart/items
func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var item cart.Item
	if err := decodeJSON(r, &item); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "adding item",
		slog.String("item_id", item.ID),
		slog.Int("quantity", item.Quantity),
	)

	if err := h.store.AddItem(item); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, viewOf(h.store.State()))
}

// handleSetQuantity changes an item's quantity.
// PATCH /cart/items/{id}
func (h *Handler) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	itemID := r.PathValue("id")

	if itemID == "" {
		h.writeError(w, cart.NewValidationError("id", "item ID required"))
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "setting quantity",
		slog.String("item_id", itemID),
		slog.Int("quantity", req.Quantity),
	)

	if err := h.store.SetQuantity(itemID, req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, viewOf(h.store.State()))
}

// handleRemoveItem removes an item from the cart.
// DELETE /cart/items/{id}
func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	itemID := r.PathValue("id")

	if itemID == "" {
		h.writeError(w, cart.NewValidationError("id", "item ID required"))
		return
	}

	h.logger.InfoContext(ctx, "removing item",
		slog.String("item_id", itemID),
	)

	if err := h.store.RemoveItem(itemID); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, viewOf(h.store.State()))
}

// handleHealth reports daemon liveness.
// GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
