package router

import (
	"fmt"
	"net/http"

	"github.com/Renal37/marketdesk/internal/middlewares"
)

func GetSummary(w http.ResponseWriter, r *http.Request) {
	user, dashboardService, ok := openSellerSession(w, r)
	if !ok {
		return
	}

	summary, err := (*dashboardService).Summary(r.Context(), user.ID)

	if err != nil {
		http.Error(w, fmt.Sprintf("Error occurred during getting summary: %s", err.Error()), http.StatusInternalServerError)
		return
	}

	middlewares.EncodeJSONResponse(w, summary)
}
