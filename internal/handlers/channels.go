package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"feedhub/internal/db"
	"feedhub/internal/models"

	"github.com/gorilla/mux"
)

func (h *Handlers) GetChannels(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(models.UserContextKey).(*models.User)

	channels, err := db.GetChannelsForUser(r.Context(), user.ID)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

type subscribeRequest struct {
	URL    string `json:"url"`
	Notify bool   `json:"notify"`
}

// Subscribe resolves the URL to a feed (following HTML discovery when
// needed), finds or creates the channel by canonical link, records the
// subscription and hands the channel to the scheduler. Registration runs one
// ingestion cycle immediately, so the new channel has items right away.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(models.UserContextKey).(*models.User)

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validFeedURL(req.URL) {
		writeMessage(w, http.StatusBadRequest, "Invalid URL")
		return
	}

	res, err := h.fetcher.Fetch(r.Context(), req.URL)
	if err != nil {
		log.Printf("Error resolving feed %s for user %d: %v", req.URL, user.ID, err)
		writeMessage(w, http.StatusBadRequest, "Unable to fetch a feed from this URL")
		return
	}

	// The canonical link dedupes sources reachable through different URLs.
	canonical := res.Channel.Link
	if canonical == "" {
		canonical = res.Channel.FeedURL
	}

	channel, err := db.GetChannelByLink(r.Context(), canonical)
	if errors.Is(err, sql.ErrNoRows) {
		channel, err = db.CreateChannel(r.Context(), models.Channel{
			Link:        canonical,
			FeedURL:     res.Channel.FeedURL,
			Title:       res.Channel.Title,
			Description: res.Channel.Description,
			ImageURL:    res.Channel.ImageURL,
		})
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	if _, err := db.AddSubscription(r.Context(), user.ID, channel.ID, req.Notify); err != nil {
		writeMessage(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	h.scheduler.Register(channel)
	writeJSON(w, http.StatusOK, channel)
}

func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(models.UserContextKey).(*models.User)

	var req struct {
		ChannelID int64 `json:"channelId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChannelID == 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid channel id")
		return
	}

	if err := db.DeleteSubscription(r.Context(), user.ID, req.ChannelID); err != nil {
		writeMessage(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	writeMessage(w, http.StatusOK, "Unsubscribed")
}

// UpdateSubscription toggles the notify preference of one subscription.
func (h *Handlers) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(models.UserContextKey).(*models.User)

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid subscription id")
		return
	}

	var req struct {
		Notify bool `json:"notify"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := db.SetSubscriptionNotify(r.Context(), user.ID, id, req.Notify); err != nil {
		writeMessage(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	writeMessage(w, http.StatusOK, "Subscription updated")
}
