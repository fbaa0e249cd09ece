package models

import "time"

// Channel is a subscribed feed source. Link is the canonical site link and is
// unique across channels; FeedURL is the URL the feed is actually fetched from.
type Channel struct {
	ID                   int64      `db:"id"`
	Link                 string     `db:"link"`
	FeedURL              string     `db:"feed_url"`
	Title                string     `db:"title"`
	Description          string     `db:"description"`
	ImageURL             string     `db:"image_url"`
	FetchIntervalMinutes int        `db:"fetch_interval_minutes"`
	LastFetchedAt        *time.Time `db:"last_fetched_at"`
	CreatedAt            time.Time  `db:"created_at"`
}

// ChannelUpdate carries the metadata fields to overwrite after a successful
// fetch. A nil pointer means "keep the stored value". LastFetchedAt is always
// set on a successful cycle.
type ChannelUpdate struct {
	Title         *string
	Description   *string
	ImageURL      *string
	Link          *string
	LastFetchedAt time.Time
}
