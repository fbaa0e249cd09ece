package db

import (
	"context"
	"time"

	"feedhub/internal/models"
)

// Store adapts the package-level queries to the narrow interfaces the
// scheduler, ingestion engine and notifier consume. It carries no state; the
// connection is the package-global DB.
type Store struct{}

func (Store) FindActiveChannels(ctx context.Context, since time.Time) ([]models.Channel, error) {
	return FindActiveChannels(ctx, since)
}

func (Store) UpdateChannelFields(ctx context.Context, id int64, upd models.ChannelUpdate) error {
	return UpdateChannelFields(ctx, id, upd)
}

func (Store) ExistingItemGUIDs(ctx context.Context, guids []string) (map[string]struct{}, error) {
	return ExistingItemGUIDs(ctx, guids)
}

func (Store) UpsertItem(ctx context.Context, item models.Item) error {
	return UpsertItem(ctx, item)
}

func (Store) NotifiableDevices(ctx context.Context, channelID int64) ([]models.Device, error) {
	return NotifiableDevices(ctx, channelID)
}
