package db

import (
	"context"
	"regexp"
	"testing"
	"time"

	"feedhub/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockDB swaps the package connection for a sqlmock-backed one. Lives here
// rather than in internal/test because that package imports internal/db.
func newMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}

	original := DB
	DB = sqlx.NewDb(mockDb, "sqlmock")
	t.Cleanup(func() {
		DB = original
		mockDb.Close()
	})
	return mock
}

func channelColumns() []string {
	return []string{"id", "link", "feed_url", "title", "description", "image_url",
		"fetch_interval_minutes", "last_fetched_at", "created_at"}
}

func TestExistingItemGUIDs(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT guid FROM items WHERE guid IN (?, ?, ?)")).
		WithArgs("a", "b", "c").
		WillReturnRows(sqlmock.NewRows([]string{"guid"}).AddRow("a").AddRow("c"))

	existing, err := ExistingItemGUIDs(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)

	assert.Contains(t, existing, "a")
	assert.Contains(t, existing, "c")
	assert.NotContains(t, existing, "b")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistingItemGUIDsEmptyBatch(t *testing.T) {
	mock := newMockDB(t)

	// No GUIDs means no round trip at all.
	existing, err := ExistingItemGUIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, existing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertItem(t *testing.T) {
	mock := newMockDB(t)

	content := "<p>hello</p>"
	item := models.Item{
		GUID:        "guid-1",
		ChannelID:   3,
		Title:       "Hello",
		Link:        "https://example.com/hello",
		Content:     &content,
		TextContent: "hello",
		Author:      "jane",
	}

	mock.ExpectExec("INSERT INTO items .+ ON CONFLICT \\(guid\\) DO UPDATE").
		WithArgs(item.GUID, item.ChannelID, item.Title, item.Link, content,
			item.TextContent, item.Author, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, UpsertItem(context.Background(), item))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActiveChannels(t *testing.T) {
	mock := newMockDB(t)

	since := time.Now().Add(-30 * 24 * time.Hour)
	fetched := time.Now().Add(-time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM channels WHERE last_fetched_at >= $1")).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows(channelColumns()).
			AddRow(1, "https://example.com/", "https://example.com/feed", "Example", "", "", 60, fetched, time.Now()))

	channels, err := FindActiveChannels(context.Background(), since)
	require.NoError(t, err)

	require.Len(t, channels, 1)
	assert.Equal(t, int64(1), channels[0].ID)
	assert.Equal(t, "https://example.com/feed", channels[0].FeedURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateChannelFieldsSkipsNilPointers(t *testing.T) {
	mock := newMockDB(t)

	title := "New Title"
	upd := models.ChannelUpdate{Title: &title, LastFetchedAt: time.Now()}

	// Nil description, image and link go through as NULL so COALESCE keeps the
	// stored values.
	mock.ExpectExec("UPDATE channels SET").
		WithArgs(int64(4), title, nil, nil, nil, upd.LastFetchedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, UpdateChannelFields(context.Background(), 4, upd))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddSubscriptionUpsertsNotify(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectQuery("INSERT INTO subscriptions .+ ON CONFLICT \\(user_id, channel_id\\) DO UPDATE").
		WithArgs(int64(1), int64(2), true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "channel_id", "notify", "created_at"}).
			AddRow(10, 1, 2, true, time.Now()))

	sub, err := AddSubscription(context.Background(), 1, 2, true)
	require.NoError(t, err)

	assert.Equal(t, int64(10), sub.ID)
	assert.True(t, sub.Notify)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotifiableDevices(t *testing.T) {
	mock := newMockDB(t)

	endpoint := "https://push.example.com/abc"
	p256dh := "p256dh-key"
	auth := "auth-secret"
	mock.ExpectQuery("SELECT d\\.\\* FROM devices d").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "user_agent",
			"push_endpoint", "push_p256dh", "push_auth", "created_at"}).
			AddRow(1, 1, "tok", "ua", endpoint, p256dh, auth, time.Now()))

	devices, err := NotifiableDevices(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, devices, 1)
	assert.True(t, devices[0].PushEnabled())
	assert.Equal(t, endpoint, *devices[0].PushEndpoint)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteItemsNotTouchedSince(t *testing.T) {
	mock := newMockDB(t)

	cutoff := time.Now().Add(-7 * 24 * time.Hour)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM items WHERE touched_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 42))

	pruned, err := DeleteItemsNotTouchedSince(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(42), pruned)
	assert.NoError(t, mock.ExpectationsWereMet())
}
