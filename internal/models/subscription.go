package models

import "time"

// Subscription links a user to a channel. Notify controls whether new items
// on the channel fan out as push notifications to the user's devices.
type Subscription struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	ChannelID int64     `db:"channel_id"`
	Notify    bool      `db:"notify"`
	CreatedAt time.Time `db:"created_at"`
}
