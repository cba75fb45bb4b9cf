package push

import (
	"context"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/gagikpog/meme-navigator/internal/config"
	"github.com/gagikpog/meme-navigator/internal/models"
)

// Transport delivers one encrypted payload to one push endpoint. It returns
// the upstream HTTP status so the caller can prune dead subscriptions.
type Transport interface {
	Send(ctx context.Context, sub *models.SubscriptionModel, payload []byte) (int, error)
}

type webpushTransport struct {
	opts webpush.Options
}

// NewWebPushTransport builds the VAPID-signed transport from config.
func NewWebPushTransport(cfg config.WebPushConfig) Transport {
	return &webpushTransport{opts: webpush.Options{
		Subscriber:      cfg.Subject,
		VAPIDPublicKey:  cfg.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.VAPIDPrivateKey,
		TTL:             60,
	}}
}

func (t *webpushTransport) Send(ctx context.Context, sub *models.SubscriptionModel, payload []byte) (int, error) {
	opts := t.opts
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}, &opts)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, errPushRejected
	}
	return resp.StatusCode, nil
}
