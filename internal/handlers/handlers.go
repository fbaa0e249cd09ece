package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"feedhub/internal/fetcher"
	"feedhub/internal/models"
	"feedhub/pkg/tasks"
)

const pageLimit = 50

// FeedResolver resolves a URL to a normalized feed, including HTML discovery.
// Implemented by fetcher.Fetcher.
type FeedResolver interface {
	Fetch(ctx context.Context, feedURL string) (*fetcher.Result, error)
}

// ChannelScheduler registers a channel for recurring ingestion. Implemented
// by scheduler.Scheduler.
type ChannelScheduler interface {
	Register(ch models.Channel)
}

type Handlers struct {
	fetcher     FeedResolver
	scheduler   ChannelScheduler
	asynqClient tasks.TaskEnqueuer
	secret      string
}

func New(f FeedResolver, s ChannelScheduler, asynqClient tasks.TaskEnqueuer, secret string) *Handlers {
	return &Handlers{
		fetcher:     f,
		scheduler:   s,
		asynqClient: asynqClient,
		secret:      secret,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// validFeedURL accepts http(s) URLs of sane length.
func validFeedURL(raw string) bool {
	if raw == "" || len(raw) > 2000 {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
