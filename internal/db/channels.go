package db

import (
	"context"
	"log"
	"time"

	"feedhub/internal/models"
)

// FindActiveChannels returns channels whose last successful fetch is newer
// than since. Channels outside the window are dormant and stay unscheduled
// until someone subscribes to them again.
func FindActiveChannels(ctx context.Context, since time.Time) ([]models.Channel, error) {
	var channels []models.Channel
	err := DB.SelectContext(ctx, &channels,
		"SELECT * FROM channels WHERE last_fetched_at >= $1", since)
	if err != nil {
		log.Printf("Error finding active channels: %v", err)
		return nil, err
	}
	return channels, nil
}

// GetChannelByLink looks a channel up by its canonical link. The unique index
// on link is what prevents the same source reached through two different feed
// URLs from being ingested twice.
func GetChannelByLink(ctx context.Context, link string) (models.Channel, error) {
	channel := models.Channel{}
	err := DB.GetContext(ctx, &channel, "SELECT * FROM channels WHERE link = $1", link)
	return channel, err
}

func CreateChannel(ctx context.Context, ch models.Channel) (models.Channel, error) {
	query := `
		INSERT INTO channels (link, feed_url, title, description, image_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`
	created := models.Channel{}
	err := DB.GetContext(ctx, &created, query,
		ch.Link, ch.FeedURL, ch.Title, ch.Description, ch.ImageURL)
	if err != nil {
		log.Printf("Error creating channel for %s: %v", ch.Link, err)
		return created, err
	}
	return created, nil
}

// UpdateChannelFields applies the metadata fields the ingestion engine decided
// to overwrite. Nil pointers leave the stored value untouched.
func UpdateChannelFields(ctx context.Context, id int64, upd models.ChannelUpdate) error {
	query := `
		UPDATE channels SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			image_url = COALESCE($4, image_url),
			link = COALESCE($5, link),
			last_fetched_at = $6
		WHERE id = $1
	`
	_, err := DB.ExecContext(ctx, query,
		id, upd.Title, upd.Description, upd.ImageURL, upd.Link, upd.LastFetchedAt)
	if err != nil {
		log.Printf("Error updating channel %d: %v", id, err)
	}
	return err
}
