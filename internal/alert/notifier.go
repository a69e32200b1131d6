package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediastock/internal/docstore"
	"mediastock/internal/model"
)

// CollectionSubscriptions is the document collection holding push
// subscriptions.
const CollectionSubscriptions = "pushSubscriptions"

// ItemSource supplies the current item projection.
type ItemSource interface {
	Items() []model.Item
}

// Notifier periodically scans for low-stock items and pushes an alert to
// every subscription, once per threshold crossing. When an item's stock
// recovers above its threshold the marker resets, so the next crossing
// alerts again.
type Notifier struct {
	sender   Sender
	items    ItemSource
	store    docstore.Store
	logger   *slog.Logger
	interval time.Duration

	mu       sync.Mutex
	subs     []model.PushSubscription
	notified map[string]bool // item id -> alert already sent for current crossing

	unsub  func()
	cancel context.CancelFunc
	done   chan struct{}
}

// NewNotifier creates a Notifier. It subscribes to the push-subscription
// collection so new browser registrations take effect without restart.
func NewNotifier(sender Sender, items ItemSource, store docstore.Store, interval time.Duration, logger *slog.Logger) (*Notifier, error) {
	n := &Notifier{
		sender:   sender,
		items:    items,
		store:    store,
		logger:   logger,
		interval: interval,
		notified: make(map[string]bool),
	}

	unsub, err := store.Subscribe(CollectionSubscriptions, n.applySubscriptions)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", CollectionSubscriptions, err)
	}
	n.unsub = unsub
	return n, nil
}

// Register persists a new push subscription.
func (n *Notifier) Register(ctx context.Context, sub model.PushSubscription) (model.PushSubscription, error) {
	if sub.Endpoint == "" {
		return model.PushSubscription{}, errors.New("endpoint is required")
	}
	sub.ID = uuid.NewString()
	sub.CreatedAt = time.Now().UTC()
	if err := n.store.Set(ctx, CollectionSubscriptions, sub.ID, sub); err != nil {
		return model.PushSubscription{}, err
	}
	return sub, nil
}

// Start begins the scan loop.
func (n *Notifier) Start(ctx context.Context) {
	ctx, n.cancel = context.WithCancel(ctx)
	n.done = make(chan struct{})

	go func() {
		defer close(n.done)
		ticker := time.NewTicker(n.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n.tick(ctx)
			}
		}
	}()
}

// Stop halts the scan loop and drops the subscription feed.
func (n *Notifier) Stop() {
	if n.cancel != nil {
		n.cancel()
		<-n.done
	}
	if n.unsub != nil {
		n.unsub()
		n.unsub = nil
	}
}

// tick sends alerts for items that newly crossed their threshold and resets
// markers for items that recovered.
func (n *Notifier) tick(ctx context.Context) {
	items := n.items.Items()

	n.mu.Lock()
	subs := make([]model.PushSubscription, len(n.subs))
	copy(subs, n.subs)

	var alerts []model.Item
	for _, item := range items {
		if item.LowStock() {
			if !n.notified[item.ID] {
				n.notified[item.ID] = true
				alerts = append(alerts, item)
			}
		} else {
			delete(n.notified, item.ID)
		}
	}
	n.mu.Unlock()

	for _, item := range alerts {
		n.send(ctx, subs, item)
	}
}

func (n *Notifier) send(ctx context.Context, subs []model.PushSubscription, item model.Item) {
	payload := Payload{
		Title: "Low stock",
		Body:  fmt.Sprintf("%s: %d left, reorder threshold is %d", item.Name, item.Quantity, item.MinThreshold),
		Tag:   "low-stock-" + item.ID,
		URL:   "/stock",
	}

	for _, sub := range subs {
		err := n.sender.Send(sub, payload)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrExpired) {
			if derr := n.store.Delete(ctx, CollectionSubscriptions, sub.ID); derr != nil {
				n.logger.Error("prune expired subscription", "id", sub.ID, "error", derr)
			}
			continue
		}
		n.logger.Error("send low-stock alert", "item", item.ID, "error", err)
	}
}

// applySubscriptions replaces the subscription projection from a snapshot.
func (n *Notifier) applySubscriptions(docs []docstore.Doc) {
	subs := make([]model.PushSubscription, 0, len(docs))
	for _, d := range docs {
		var sub model.PushSubscription
		if err := json.Unmarshal(d.Data, &sub); err != nil {
			n.logger.Error("decode push subscription", "id", d.ID, "error", err)
			continue
		}
		sub.ID = d.ID
		subs = append(subs, sub)
	}

	n.mu.Lock()
	n.subs = subs
	n.mu.Unlock()
}
