package handlers

import (
	"net/http"
	"strconv"

	"feedhub/internal/db"
	"feedhub/internal/models"
)

// GetItems serves the user's aggregated item feed, newest first, paginated
// with ?page=N.
func (h *Handlers) GetItems(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(models.UserContextKey).(*models.User)

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	items, err := db.GetItemsForUser(r.Context(), user.ID, pageLimit, (page-1)*pageLimit)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, items)
}
