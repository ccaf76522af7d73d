package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Renal37/marketdesk/internal/middlewares"
	"github.com/Renal37/marketdesk/internal/models"
	"github.com/Renal37/marketdesk/internal/services"
)

// openSellerSession разворачивает сессию продавца перед операцией панели.
// Open идемпотентен, поэтому вызывается на каждом запросе продавца.
func openSellerSession(w http.ResponseWriter, r *http.Request) (*models.User, *models.DashboardService, bool) {
	dashboardService := middlewares.GetServiceFromContext[models.DashboardService](w, r, middlewares.DashboardServiceKey)
	user := middlewares.GetUserFromContext(w, r)

	if dashboardService == nil || user == nil {
		return nil, nil, false
	}

	if err := (*dashboardService).Open(r.Context(), *user); err != nil {
		http.Error(w, fmt.Sprintf("Error occurred during opening dashboard: %s", err.Error()), http.StatusInternalServerError)
		return nil, nil, false
	}

	return user, dashboardService, true
}

func GetOrders(w http.ResponseWriter, r *http.Request) {
	user, dashboardService, ok := openSellerSession(w, r)
	if !ok {
		return
	}

	var filter models.OrderFilter
	filter.Query = r.URL.Query().Get("q")

	if rawStatus := r.URL.Query().Get("status"); rawStatus != "" {
		status := models.OrderStatus(rawStatus)
		if !status.Valid() {
			http.Error(w, fmt.Sprintf("Unknown order status %s", rawStatus), http.StatusBadRequest)
			return
		}
		filter.Status = &status
	}

	orders, err := (*dashboardService).Orders(r.Context(), user.ID, filter)

	if err != nil {
		http.Error(w, fmt.Sprintf("Error occurred during getting orders: %s", err.Error()), http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	middlewares.EncodeJSONResponse(w, orders)
}

func AdvanceOrder(w http.ResponseWriter, r *http.Request) {
	data := middlewares.GetParsedJSONData[models.AdvanceRequest](w, r)

	if data.Status == nil {
		http.Error(w, "Request doesn't contain target status", http.StatusBadRequest)
		return
	}

	user, dashboardService, ok := openSellerSession(w, r)
	if !ok {
		return
	}

	orderID := chi.URLParam(r, "orderID")

	order, err := (*dashboardService).Advance(r.Context(), user.ID, orderID, *data.Status)

	if err != nil {
		writeOrderError(w, err)
		return
	}

	middlewares.EncodeJSONResponse(w, order)
}

// writeOrderError переводит ошибки движка жизненного цикла в HTTP-статусы.
func writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		http.Error(w, "Order is not found", http.StatusNotFound)
	case errors.Is(err, services.ErrNotOrderSeller):
		http.Error(w, "Order doesn't contain items of this seller", http.StatusForbidden)
	case errors.Is(err, services.ErrIllegalTransition), errors.Is(err, services.ErrDispatchRequired), errors.Is(err, services.ErrDispatchUnavailable):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrPersistFailed):
		http.Error(w, "Transition wasn't persisted, try again", http.StatusBadGateway)
	default:
		http.Error(w, fmt.Sprintf("Error occurred during advancing order: %s", err.Error()), http.StatusInternalServerError)
	}
}
