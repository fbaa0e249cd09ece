package db

import (
	"context"
	"log"

	"feedhub/internal/models"
)

// AddSubscription subscribes a user to a channel. Subscribing again only
// updates the notify preference.
func AddSubscription(ctx context.Context, userID, channelID int64, notify bool) (models.Subscription, error) {
	query := `
		INSERT INTO subscriptions (user_id, channel_id, notify)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, channel_id) DO UPDATE SET notify = EXCLUDED.notify
		RETURNING *
	`
	sub := models.Subscription{}
	err := DB.GetContext(ctx, &sub, query, userID, channelID, notify)
	if err != nil {
		log.Printf("Error adding subscription for user %d: %v", userID, err)
		return sub, err
	}
	return sub, nil
}

func DeleteSubscription(ctx context.Context, userID, channelID int64) error {
	_, err := DB.ExecContext(ctx,
		"DELETE FROM subscriptions WHERE user_id = $1 AND channel_id = $2",
		userID, channelID)
	if err != nil {
		log.Printf("Error deleting subscription of user %d to channel %d: %v", userID, channelID, err)
	}
	return err
}

func SetSubscriptionNotify(ctx context.Context, userID, subscriptionID int64, notify bool) error {
	_, err := DB.ExecContext(ctx,
		"UPDATE subscriptions SET notify = $1 WHERE id = $2 AND user_id = $3",
		notify, subscriptionID, userID)
	return err
}

// GetChannelsForUser returns the channels the user subscribes to.
func GetChannelsForUser(ctx context.Context, userID int64) ([]models.Channel, error) {
	query := `
		SELECT c.* FROM channels c
		JOIN subscriptions s ON s.channel_id = c.id
		WHERE s.user_id = $1
		ORDER BY s.created_at DESC
	`
	var channels []models.Channel
	err := DB.SelectContext(ctx, &channels, query, userID)
	if err != nil {
		log.Printf("Error getting channels for user %d: %v", userID, err)
		return nil, err
	}
	return channels, nil
}

// NotifiableDevices returns every push-capable device belonging to users who
// opted into notifications for the channel. The fanout reads this relation,
// it never writes it.
func NotifiableDevices(ctx context.Context, channelID int64) ([]models.Device, error) {
	query := `
		SELECT d.* FROM devices d
		JOIN subscriptions s ON s.user_id = d.user_id
		WHERE s.channel_id = $1 AND s.notify AND d.push_endpoint IS NOT NULL
	`
	var devices []models.Device
	err := DB.SelectContext(ctx, &devices, query, channelID)
	if err != nil {
		log.Printf("Error getting notifiable devices for channel %d: %v", channelID, err)
		return nil, err
	}
	return devices, nil
}
