package router

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Renal37/marketdesk/internal/middlewares"
	"github.com/Renal37/marketdesk/internal/services"
)

func OpenDispatch(w http.ResponseWriter, r *http.Request) {
	user, dashboardService, ok := openSellerSession(w, r)
	if !ok {
		return
	}

	orderID := chi.URLParam(r, "orderID")

	if err := (*dashboardService).OpenDispatch(r.Context(), user.ID, orderID); err != nil {
		writeOrderError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func SubmitDispatch(w http.ResponseWriter, r *http.Request) {
	form, ok := middlewares.GetParsedDispatchForm(w, r)
	if !ok {
		return
	}

	user, dashboardService, sessionOk := openSellerSession(w, r)
	if !sessionOk {
		return
	}

	orderID := chi.URLParam(r, "orderID")

	order, err := (*dashboardService).SubmitDispatch(r.Context(), user.ID, orderID, form.Photo, form.Note)

	if err != nil {
		writeDispatchError(w, err)
		return
	}

	middlewares.EncodeJSONResponse(w, order)
}

func writeDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrPhotoTooLarge):
		http.Error(w, "Dispatch photo exceeds 5 MiB", http.StatusRequestEntityTooLarge)
	case errors.Is(err, services.ErrPhotoEmpty), errors.Is(err, services.ErrPhotoNotImage):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrUploadFailed):
		http.Error(w, "Dispatch photo upload failed", http.StatusBadGateway)
	default:
		writeOrderError(w, err)
	}
}
