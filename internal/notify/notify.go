package notify

import (
	"context"
	"log"

	"feedhub/internal/models"

	"golang.org/x/sync/errgroup"
)

// DefaultNewItemThreshold is the largest new-item count still treated as an
// organic incremental update. Anything above it looks like a first fetch or a
// back-catalog import and is not worth a notification storm.
const DefaultNewItemThreshold = 3

// SubscriberStore resolves the push-capable devices of users who opted into
// notifications for a channel.
type SubscriberStore interface {
	NotifiableDevices(ctx context.Context, channelID int64) ([]models.Device, error)
}

// PushSender delivers one notification to one device. Retries are the
// transport's business, not ours.
type PushSender interface {
	Send(ctx context.Context, device models.Device, title, link string) error
}

// Notifier decides whether freshly ingested items merit notifying subscribers
// and delivers to the opted-in device set.
type Notifier struct {
	subs      SubscriberStore
	push      PushSender
	threshold int
}

func New(subs SubscriberStore, push PushSender, threshold int) *Notifier {
	if threshold <= 0 {
		threshold = DefaultNewItemThreshold
	}
	return &Notifier{subs: subs, push: push, threshold: threshold}
}

// MaybeNotify fans newItems out to the channel's notify-enabled subscribers.
// It blocks until every delivery attempt finished but never fails the calling
// ingestion cycle: delivery errors are logged per recipient and swallowed.
func (n *Notifier) MaybeNotify(ctx context.Context, ch models.Channel, newItems []models.Item) {
	if len(newItems) == 0 {
		return
	}
	if len(newItems) > n.threshold {
		log.Printf("Suppressing notifications for channel %d: %d new items exceeds threshold %d",
			ch.ID, len(newItems), n.threshold)
		return
	}

	devices, err := n.subs.NotifiableDevices(ctx, ch.ID)
	if err != nil {
		log.Printf("Error resolving subscribers for channel %d: %v", ch.ID, err)
		return
	}
	if len(devices) == 0 {
		return
	}

	// One goroutine per item; a failed delivery to one recipient must not
	// block delivery to the rest, so errors stay inside the loop.
	var g errgroup.Group
	for _, item := range newItems {
		item := item
		g.Go(func() error {
			for _, device := range devices {
				if err := n.push.Send(ctx, device, item.Title, item.Link); err != nil {
					log.Printf("Error delivering push for channel %d item %q to device %d: %v",
						ch.ID, item.GUID, device.ID, err)
				}
			}
			return nil
		})
	}
	g.Wait()
}
