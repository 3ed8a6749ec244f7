// Package push delivers Web Push notifications to the browsers a user has
// subscribed.
package push

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"pulse/models"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"
)

const (
	sendTimeout = 10 * time.Second
	messageTTL  = 30
)

// SubscriptionStore is the part of the store the notifier needs.
type SubscriptionStore interface {
	PushSubscriptions(ctx context.Context, userID uint) ([]models.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error
}

type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

type Keys struct {
	Public  string
	Private string
	Subject string
}

type Notifier struct {
	store  SubscriptionStore
	keys   Keys
	log    logrus.FieldLogger
	client webpush.HTTPClient
	wg     sync.WaitGroup
}

func NewNotifier(store SubscriptionStore, keys Keys, log logrus.FieldLogger) *Notifier {
	return &Notifier{store: store, keys: keys, log: log, client: http.DefaultClient}
}

// Enabled reports whether VAPID keys are configured. A disabled notifier
// silently drops every message.
func (n *Notifier) Enabled() bool {
	return n != nil && n.keys.Public != "" && n.keys.Private != ""
}

func (n *Notifier) PublicKey() string {
	if n == nil {
		return ""
	}
	return n.keys.Public
}

// Notify sends msg to every subscription of userID in the background.
func (n *Notifier) Notify(userID uint, msg Message) {
	if !n.Enabled() {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				n.log.WithField("panic", r).Error("push notification panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		n.send(ctx, userID, msg)
	}()
}

// Wait blocks until every queued notification has been attempted.
func (n *Notifier) Wait() {
	if n != nil {
		n.wg.Wait()
	}
}

func (n *Notifier) send(ctx context.Context, userID uint, msg Message) {
	log := n.log.WithField("user_id", userID)

	subs, err := n.store.PushSubscriptions(ctx, userID)
	if err != nil {
		log.WithError(err).Error("load push subscriptions")
		return
	}
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.WithError(err).Error("marshal push payload")
		return
	}

	for _, sub := range subs {
		resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
		}, &webpush.Options{
			HTTPClient:      n.client,
			Subscriber:      n.keys.Subject,
			VAPIDPublicKey:  n.keys.Public,
			VAPIDPrivateKey: n.keys.Private,
			TTL:             messageTTL,
		})
		if err != nil {
			log.WithError(err).WithField("endpoint", sub.Endpoint).Warn("send push notification")
			continue
		}
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusNotFound, http.StatusGone:
			// The browser revoked the subscription.
			if err := n.store.DeletePushSubscription(ctx, sub.Endpoint); err != nil {
				log.WithError(err).Error("delete expired push subscription")
			}
		default:
			if resp.StatusCode >= 300 {
				log.WithField("status", resp.StatusCode).Warn("push service rejected notification")
			}
		}
	}
}
