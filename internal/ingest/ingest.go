package ingest

import (
	"context"
	"fmt"
	"time"

	"feedhub/internal/fetcher"
	"feedhub/internal/models"
)

// ChannelStore is the slice of the channel store the engine writes to.
type ChannelStore interface {
	UpdateChannelFields(ctx context.Context, id int64, upd models.ChannelUpdate) error
}

// ItemStore is the slice of the item store the engine reconciles against.
type ItemStore interface {
	ExistingItemGUIDs(ctx context.Context, guids []string) (map[string]struct{}, error)
	UpsertItem(ctx context.Context, item models.Item) error
}

// Engine reconciles a normalized fetch result against stored state. Every
// write it issues is an idempotent upsert keyed by GUID, so an aborted cycle
// is fully recovered by the next tick.
type Engine struct {
	channels ChannelStore
	items    ItemStore
	now      func() time.Time
}

func New(channels ChannelStore, items ItemStore) *Engine {
	return &Engine{channels: channels, items: items, now: time.Now}
}

// Ingest persists the fetch result for ch and returns the items that were not
// stored before this cycle. The new-item diff is computed from pre-upsert
// state; upserting first would always report an empty delta.
func (e *Engine) Ingest(ctx context.Context, ch models.Channel, res *fetcher.Result) ([]models.Item, error) {
	guids := make([]string, 0, len(res.Items))
	for _, it := range res.Items {
		guids = append(guids, it.GUID)
	}

	existing, err := e.items.ExistingItemGUIDs(ctx, guids)
	if err != nil {
		return nil, fmt.Errorf("looking up existing items for channel %d: %w", ch.ID, err)
	}

	var newItems []models.Item
	seen := make(map[string]struct{}, len(res.Items))
	for _, it := range res.Items {
		record := models.Item{
			GUID:        it.GUID,
			ChannelID:   ch.ID,
			Title:       it.Title,
			Link:        it.Link,
			Content:     it.Content,
			TextContent: it.TextContent,
			Author:      it.Author,
			PublishedAt: it.PublishedAt,
		}

		if _, dup := seen[it.GUID]; dup {
			continue
		}
		seen[it.GUID] = struct{}{}

		if _, ok := existing[it.GUID]; !ok {
			newItems = append(newItems, record)
		}

		if err := e.items.UpsertItem(ctx, record); err != nil {
			return nil, fmt.Errorf("upserting item %s for channel %d: %w", it.GUID, ch.ID, err)
		}
	}

	if err := e.channels.UpdateChannelFields(ctx, ch.ID, e.channelUpdate(ch, res.Channel)); err != nil {
		return nil, fmt.Errorf("updating channel %d metadata: %w", ch.ID, err)
	}

	return newItems, nil
}

// channelUpdate overwrites a stored metadata field only when the fetched value
// is non-empty and different, so a transient empty fetch never clobbers good
// stored metadata. The last-fetched timestamp is always refreshed.
func (e *Engine) channelUpdate(stored models.Channel, fetched fetcher.Channel) models.ChannelUpdate {
	upd := models.ChannelUpdate{LastFetchedAt: e.now().UTC()}
	if fetched.Title != "" && fetched.Title != stored.Title {
		upd.Title = &fetched.Title
	}
	if fetched.Description != "" && fetched.Description != stored.Description {
		upd.Description = &fetched.Description
	}
	if fetched.ImageURL != "" && fetched.ImageURL != stored.ImageURL {
		upd.ImageURL = &fetched.ImageURL
	}
	if fetched.Link != "" && fetched.Link != stored.Link {
		upd.Link = &fetched.Link
	}
	return upd
}
