// Package api provides the HTTP handlers of the minicart daemon.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"minicart-sync/internal/cart"
	"minicart-sync/internal/store"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	logger *slog.Logger
}

// New creates a new Handler over the cart store.
func New(st *store.Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  st,
		logger: logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /cart", h.handleGetCart)
	mux.HandleFunc("POST /cart/open", h.handleSetOpen)
	mux.HandleFunc("POST /cart/items", h.handleAddItem)
	mux.HandleFunc("PATCH /cart/items/{id}", h.handleSetQuantity)
	mux.HandleFunc("DELETE /cart/items/{id}", h.handleRemoveItem)

	// Health check
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, mapping the cart sentinel errors to
// HTTP statuses. Uses errors.Is() to unwrap error chains.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"
	message := "an internal error occurred"

	switch {
	case errors.Is(err, cart.ErrInvalidRequest):
		status = http.StatusBadRequest
		code = "INVALID_REQUEST"
		message = err.Error()
	case errors.Is(err, cart.ErrNotFound):
		status = http.StatusNotFound
		code = "NOT_FOUND"
		message = err.Error()
	default:
		h.logger.Error("internal error", slog.String("error", err.Error()))
	}

	h.writeJSON(w, status, errorResponse{
		Error: errorBody{
			Code:    code,
			Message: message,
		},
	})
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
func decodeJSON(r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return cart.NewValidationError("body", "invalid JSON")
	}
	return nil
}
