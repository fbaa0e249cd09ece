package db

import (
	"context"
	"log"
	"time"

	"feedhub/internal/models"

	"github.com/jmoiron/sqlx"
)

// ExistingItemGUIDs returns which of the given GUIDs are already stored, as a
// set. One IN-query for the whole batch; the ingestion engine calls this once
// per cycle before upserting anything.
func ExistingItemGUIDs(ctx context.Context, guids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(guids))
	if len(guids) == 0 {
		return existing, nil
	}

	query, args, err := sqlx.In("SELECT guid FROM items WHERE guid IN (?)", guids)
	if err != nil {
		return nil, err
	}
	query = DB.Rebind(query)

	var found []string
	if err := DB.SelectContext(ctx, &found, query, args...); err != nil {
		log.Printf("Error looking up existing item guids: %v", err)
		return nil, err
	}
	for _, g := range found {
		existing[g] = struct{}{}
	}
	return existing, nil
}

// UpsertItem inserts the item or, when its GUID is already stored, merges the
// fresh fields and refreshes touched_at. Re-ingesting identical content twice
// only advances touched_at. A nil content never clobbers stored content.
func UpsertItem(ctx context.Context, item models.Item) error {
	query := `
		INSERT INTO items (guid, channel_id, title, link, content, text_content, author, published_at, touched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (guid) DO UPDATE SET
			channel_id = EXCLUDED.channel_id,
			title = EXCLUDED.title,
			link = EXCLUDED.link,
			content = COALESCE(EXCLUDED.content, items.content),
			text_content = EXCLUDED.text_content,
			author = EXCLUDED.author,
			published_at = COALESCE(EXCLUDED.published_at, items.published_at),
			touched_at = NOW()
	`
	_, err := DB.ExecContext(ctx, query,
		item.GUID, item.ChannelID, item.Title, item.Link, item.Content,
		item.TextContent, item.Author, item.PublishedAt)
	if err != nil {
		log.Printf("Error upserting item %s: %v", item.GUID, err)
	}
	return err
}

// GetItemsForUser returns the aggregated item feed across all channels the
// user subscribes to, newest first.
func GetItemsForUser(ctx context.Context, userID int64, limit, offset int) ([]models.Item, error) {
	query := `
		SELECT i.* FROM items i
		JOIN subscriptions s ON s.channel_id = i.channel_id
		WHERE s.user_id = $1
		ORDER BY i.published_at DESC NULLS LAST, i.id DESC
		LIMIT $2 OFFSET $3
	`
	var items []models.Item
	err := DB.SelectContext(ctx, &items, query, userID, limit, offset)
	if err != nil {
		log.Printf("Error getting items for user %d: %v", userID, err)
		return nil, err
	}
	return items, nil
}

// DeleteItemsNotTouchedSince removes items that have not been observed in
// their source feed since cutoff. Called by the retention prune task, never
// by the ingestion path.
func DeleteItemsNotTouchedSince(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := DB.ExecContext(ctx, "DELETE FROM items WHERE touched_at < $1", cutoff)
	if err != nil {
		log.Printf("Error pruning items: %v", err)
		return 0, err
	}
	return res.RowsAffected()
}
