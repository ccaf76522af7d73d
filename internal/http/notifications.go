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

func GetNotifications(w http.ResponseWriter, r *http.Request) {
	notificationService := middlewares.GetServiceFromContext[models.NotificationService](w, r, middlewares.NotificationServiceKey)
	user := middlewares.GetUserFromContext(w, r)

	if notificationService == nil || user == nil {
		return
	}

	feed, err := (*notificationService).Feed(r.Context(), user.ID)

	if err != nil {
		http.Error(w, fmt.Sprintf("Error occurred during getting notifications: %s", err.Error()), http.StatusInternalServerError)
		return
	}

	if len(feed) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	middlewares.EncodeJSONResponse(w, feed)
}

func MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	notificationService := middlewares.GetServiceFromContext[models.NotificationService](w, r, middlewares.NotificationServiceKey)
	user := middlewares.GetUserFromContext(w, r)

	if notificationService == nil || user == nil {
		return
	}

	notificationID := chi.URLParam(r, "notificationID")

	if err := (*notificationService).MarkRead(r.Context(), user.ID, notificationID); err != nil {
		if errors.Is(err, services.ErrNotificationNotFound) {
			http.Error(w, "Notification is not found", http.StatusNotFound)
			return
		}

		if errors.Is(err, services.ErrForeignNotification) {
			http.Error(w, "Notification belongs to another user", http.StatusForbidden)
			return
		}

		http.Error(w, fmt.Sprintf("Error occurred during marking notification: %s", err.Error()), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
