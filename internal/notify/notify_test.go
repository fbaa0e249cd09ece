package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"feedhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubscriberStore struct {
	devices []models.Device
	err     error
	calls   int
}

func (f *fakeSubscriberStore) NotifiableDevices(ctx context.Context, channelID int64) ([]models.Device, error) {
	f.calls++
	return f.devices, f.err
}

type sentPush struct {
	DeviceID int64
	Title    string
	Link     string
}

type fakePushSender struct {
	mu      sync.Mutex
	sent    []sentPush
	failFor map[int64]error
}

func (f *fakePushSender) Send(ctx context.Context, device models.Device, title, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[device.ID]; ok {
		return err
	}
	f.sent = append(f.sent, sentPush{DeviceID: device.ID, Title: title, Link: link})
	return nil
}

func (f *fakePushSender) deliveries() []sentPush {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]sentPush(nil), f.sent...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].DeviceID != out[j].DeviceID {
			return out[i].DeviceID < out[j].DeviceID
		}
		return out[i].Title < out[j].Title
	})
	return out
}

func newItems(n int) []models.Item {
	items := make([]models.Item, n)
	for i := range items {
		items[i] = models.Item{
			GUID:  string(rune('a' + i)),
			Title: "Item " + string(rune('A'+i)),
			Link:  "https://example.com/" + string(rune('a'+i)),
		}
	}
	return items
}

func TestMaybeNotifyNoNewItems(t *testing.T) {
	subs := &fakeSubscriberStore{}
	push := &fakePushSender{}
	n := New(subs, push, 0)

	n.MaybeNotify(context.Background(), models.Channel{ID: 1}, nil)

	assert.Zero(t, subs.calls)
	assert.Empty(t, push.deliveries())
}

func TestMaybeNotifyDeliversWithinThreshold(t *testing.T) {
	subs := &fakeSubscriberStore{devices: []models.Device{{ID: 1}, {ID: 2}}}
	push := &fakePushSender{}
	n := New(subs, push, 0)

	items := newItems(2)
	n.MaybeNotify(context.Background(), models.Channel{ID: 1}, items)

	// Each of the 2 items reaches each of the 2 devices.
	got := push.deliveries()
	require.Len(t, got, 4)
	assert.Equal(t, []sentPush{
		{DeviceID: 1, Title: "Item A", Link: "https://example.com/a"},
		{DeviceID: 1, Title: "Item B", Link: "https://example.com/b"},
		{DeviceID: 2, Title: "Item A", Link: "https://example.com/a"},
		{DeviceID: 2, Title: "Item B", Link: "https://example.com/b"},
	}, got)
}

func TestMaybeNotifyBoundaryAtThreshold(t *testing.T) {
	subs := &fakeSubscriberStore{devices: []models.Device{{ID: 1}}}
	push := &fakePushSender{}
	n := New(subs, push, 0)

	// Exactly the threshold still counts as an organic update.
	n.MaybeNotify(context.Background(), models.Channel{ID: 1}, newItems(DefaultNewItemThreshold))
	assert.Len(t, push.deliveries(), DefaultNewItemThreshold)
}

func TestMaybeNotifySuppressesBulkIngestion(t *testing.T) {
	subs := &fakeSubscriberStore{devices: []models.Device{{ID: 1}}}
	push := &fakePushSender{}
	n := New(subs, push, 0)

	// One over the threshold looks like a first fetch; nothing is sent and
	// the subscriber set is not even resolved.
	n.MaybeNotify(context.Background(), models.Channel{ID: 1}, newItems(DefaultNewItemThreshold+1))
	assert.Zero(t, subs.calls)
	assert.Empty(t, push.deliveries())
}

func TestMaybeNotifyConfigurableThreshold(t *testing.T) {
	subs := &fakeSubscriberStore{devices: []models.Device{{ID: 1}}}
	push := &fakePushSender{}
	n := New(subs, push, 10)

	n.MaybeNotify(context.Background(), models.Channel{ID: 1}, newItems(5))
	assert.Len(t, push.deliveries(), 5)
}

func TestMaybeNotifyFailedRecipientDoesNotBlockOthers(t *testing.T) {
	subs := &fakeSubscriberStore{devices: []models.Device{{ID: 1}, {ID: 2}}}
	push := &fakePushSender{failFor: map[int64]error{1: errors.New("endpoint gone")}}
	n := New(subs, push, 0)

	n.MaybeNotify(context.Background(), models.Channel{ID: 9}, newItems(1))

	got := push.deliveries()
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].DeviceID)
}

func TestMaybeNotifySubscriberLookupFailureIsSwallowed(t *testing.T) {
	subs := &fakeSubscriberStore{err: errors.New("store unavailable")}
	push := &fakePushSender{}
	n := New(subs, push, 0)

	// Must not panic or deliver; the ingestion cycle already committed.
	n.MaybeNotify(context.Background(), models.Channel{ID: 1}, newItems(1))
	assert.Empty(t, push.deliveries())
}
