package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/ec-cart-pricing/internal/catalog"
	"github.com/example/ec-cart-pricing/internal/command"
	"github.com/example/ec-cart-pricing/internal/domain/cart"
	"github.com/example/ec-cart-pricing/internal/domain/order"
	"github.com/example/ec-cart-pricing/internal/infrastructure/store"
	"github.com/example/ec-cart-pricing/internal/logger"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// errorMapping is checked in order; the first match wins. Catalog
// availability comes before refresh failure because a refresh error wraps
// the catalog error, and a version conflict comes before the persist
// failure that wraps it.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{cart.ErrInvalidItem, http.StatusBadRequest, "invalid_item"},
	{cart.ErrQuantityRejected, http.StatusUnprocessableEntity, "quantity_rejected"},
	{order.ErrEmptyOrder, http.StatusUnprocessableEntity, "empty_order"},
	{order.ErrInvalidAddress, http.StatusUnprocessableEntity, "invalid_address"},
	{order.ErrMissingEmail, http.StatusUnprocessableEntity, "missing_email"},
	{order.ErrInvalidQuantity, http.StatusUnprocessableEntity, "invalid_quantity"},
	{order.ErrTotalsMismatch, http.StatusUnprocessableEntity, "totals_mismatch"},
	{command.ErrProductNotFound, http.StatusNotFound, "product_not_found"},
	{order.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},
	{command.ErrOutOfStock, http.StatusConflict, "out_of_stock"},
	{command.ErrShippingUnavailable, http.StatusConflict, "shipping_unavailable"},
	{catalog.ErrCatalogUnavailable, http.StatusServiceUnavailable, "catalog_unavailable"},
	{cart.ErrRefreshFailed, http.StatusBadGateway, "refresh_failed"},
	{store.ErrVersionConflict, http.StatusConflict, "cart_conflict"},
	{cart.ErrPersist, http.StatusInternalServerError, "persist_failed"},
}

// statusFor maps a domain error to its HTTP status and error code.
func statusFor(err error) (int, string) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// handleError writes err as a JSON error. Server-side failures are logged and
// their details are not exposed.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	message := err.Error()

	log := logger.FromCtx(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", code),
			zap.Error(err),
		)
		if status == http.StatusInternalServerError {
			message = "internal server error"
		}
	} else {
		log.Debug("request rejected",
			zap.String("path", r.URL.Path),
			zap.String("code", code),
			zap.Error(err),
		)
	}

	respondError(w, status, code, message)
}
