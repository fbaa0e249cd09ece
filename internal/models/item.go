package models

import "time"

// Item is one entry of a channel's feed. GUID is the dedup key and is unique
// across the item store. TouchedAt is refreshed every time the item is seen
// in its source feed again; the retention prune uses it to expire items that
// disappeared upstream.
type Item struct {
	ID          int64      `db:"id"`
	GUID        string     `db:"guid"`
	ChannelID   int64      `db:"channel_id"`
	Title       string     `db:"title"`
	Link        string     `db:"link"`
	Content     *string    `db:"content"`
	TextContent string     `db:"text_content"`
	Author      string     `db:"author"`
	PublishedAt *time.Time `db:"published_at"`
	TouchedAt   time.Time  `db:"touched_at"`
	CreatedAt   time.Time  `db:"created_at"`
}
