package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"feedhub/internal/models"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// WebPushSender delivers notifications over the Web Push protocol with VAPID
// authentication.
type WebPushSender struct {
	vapidPublicKey  string
	vapidPrivateKey string
	subscriber      string
	ttl             int
}

func NewWebPushSender(vapidPublicKey, vapidPrivateKey, contactEmail string) *WebPushSender {
	return &WebPushSender{
		vapidPublicKey:  vapidPublicKey,
		vapidPrivateKey: vapidPrivateKey,
		subscriber:      "mailto:" + contactEmail,
		ttl:             60,
	}
}

type pushPayload struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

func (s *WebPushSender) Send(ctx context.Context, device models.Device, title, link string) error {
	if !device.PushEnabled() || device.PushP256dh == nil || device.PushAuth == nil {
		return fmt.Errorf("device %d has no push credentials", device.ID)
	}

	payload, err := json.Marshal(pushPayload{Title: title, Link: link})
	if err != nil {
		return err
	}

	sub := &webpush.Subscription{
		Endpoint: *device.PushEndpoint,
		Keys: webpush.Keys{
			P256dh: *device.PushP256dh,
			Auth:   *device.PushAuth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, &webpush.Options{
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.vapidPublicKey,
		VAPIDPrivateKey: s.vapidPrivateKey,
		TTL:             s.ttl,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("push endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
