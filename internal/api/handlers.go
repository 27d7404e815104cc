package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/ec-cart-pricing/internal/api/middleware"
	"github.com/example/ec-cart-pricing/internal/command"
	"github.com/example/ec-cart-pricing/internal/domain/cart"
	"github.com/example/ec-cart-pricing/internal/logger"
	"github.com/example/ec-cart-pricing/internal/query"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
	}
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	h.respondCart(w, r, http.StatusOK)
}

// GetSelection summarizes only the posted keys, for a checkout preview.
func (h *Handlers) GetSelection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keys []cart.Key `json:"keys"`
	}
	if !decode(w, r, &req) {
		return
	}

	summary, err := h.queryHandler.GetSelection(r.Context(), getUserID(r), req.Keys)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddToCart
	if !decode(w, r, &cmd) {
		return
	}
	cmd.UserID = getUserID(r)
	cmd.Country = middleware.GetCountry(r.Context())

	if err := h.cmdHandler.AddToCart(r.Context(), cmd); err != nil {
		handleError(w, r, err)
		return
	}
	h.respondCart(w, r, http.StatusCreated)
}

func (h *Handlers) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateQuantity
	if !decode(w, r, &cmd) {
		return
	}
	cmd.UserID = getUserID(r)

	if err := h.cmdHandler.UpdateQuantity(r.Context(), cmd); err != nil {
		handleError(w, r, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	var cmd command.RemoveFromCart
	if !decode(w, r, &cmd) {
		return
	}
	cmd.UserID = getUserID(r)

	if err := h.cmdHandler.RemoveFromCart(r.Context(), cmd); err != nil {
		handleError(w, r, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handlers) RemoveItems(w http.ResponseWriter, r *http.Request) {
	var cmd command.RemoveItems
	if !decode(w, r, &cmd) {
		return
	}
	cmd.UserID = getUserID(r)

	if err := h.cmdHandler.RemoveItems(r.Context(), cmd); err != nil {
		handleError(w, r, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cmdHandler.ClearCart(r.Context(), command.ClearCart{UserID: getUserID(r)}); err != nil {
		handleError(w, r, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handlers) RefreshCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cmdHandler.RefreshCart(r.Context(), command.RefreshCart{UserID: getUserID(r)}); err != nil {
		handleError(w, r, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handlers) ChangeCountry(w http.ResponseWriter, r *http.Request) {
	var cmd command.ChangeCountry
	if !decode(w, r, &cmd) {
		return
	}
	if cmd.Country == "" {
		respondError(w, http.StatusBadRequest, "invalid_country", "country is required")
		return
	}
	cmd.UserID = getUserID(r)

	if err := h.cmdHandler.ChangeCountry(r.Context(), cmd); err != nil {
		handleError(w, r, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

// Order Handlers

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var cmd command.PlaceOrder
	if !decode(w, r, &cmd) {
		return
	}
	cmd.UserID = getUserID(r)
	if cmd.Email == "" {
		if claims, ok := middleware.GetUserFromContext(r.Context()); ok {
			cmd.Email = claims.Email
		}
	}

	o, err := h.cmdHandler.PlaceOrder(r.Context(), cmd)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.ListOrdersByUser(r.Context(), getUserID(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.queryHandler.GetOrder(r.Context(), getUserID(r), chi.URLParam(r, "orderID"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// Helper functions

// respondCart writes the shopper's current cart summary.
func (h *Handlers) respondCart(w http.ResponseWriter, r *http.Request, status int) {
	summary, err := h.queryHandler.GetCart(r.Context(), getUserID(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, status, summary)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func getUserID(r *http.Request) string {
	return middleware.GetUserID(r.Context())
}
