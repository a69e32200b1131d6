// Package inventory bridges the document store and everything that consumes
// inventory state. A Tracker owns one subscription per collection, keeps
// in-memory projections that are updated only by snapshot delivery (never
// directly by writes), and exposes the read/write operations the HTTP layer
// and reports are built on.
package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"mediastock/internal/docstore"
	"mediastock/internal/model"
)

// Collection names in the document store.
const (
	CollectionItems      = "churchMediaInventory"
	CollectionCategories = "categories"
	CollectionMovements  = "movements"
)

// OutboundPolicy decides what happens when an outbound movement exceeds
// current stock.
type OutboundPolicy string

const (
	// OutboundClamp silently ignores the movement, leaving stock unchanged.
	OutboundClamp OutboundPolicy = "clamp"
	// OutboundReject fails the movement with ErrInsufficientStock.
	OutboundReject OutboundPolicy = "reject"
)

// ErrInsufficientStock is returned by LogOutbound under the reject policy
// when the requested quantity exceeds current stock.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrInvalidField is returned when a partial update carries an out-of-range
// or malformed field value.
var ErrInvalidField = errors.New("invalid field value")

// Config holds Tracker options.
type Config struct {
	// OutboundPolicy defaults to OutboundClamp, the legacy behavior.
	OutboundPolicy OutboundPolicy
}

// Tracker maintains convergent projections of the item, category, and
// movement collections. Projections are eventually consistent: a write
// succeeds or fails, and local state catches up on the next snapshot.
type Tracker struct {
	store  docstore.Store
	logger *slog.Logger
	policy OutboundPolicy
	now    func() time.Time

	seeded atomic.Bool

	mu         sync.RWMutex
	items      []model.Item
	categories []model.Category
	movements  []model.Movement

	// One clean flag per collection, false while the last snapshot of that
	// collection failed to decode fully.
	itemsClean      bool
	categoriesClean bool
	movementsClean  bool

	unsubs []func()
}

// New creates a Tracker and establishes its subscriptions. The initial
// snapshot of every collection is applied before New returns; if the
// category collection is observed empty, default categories are seeded.
func New(store docstore.Store, cfg Config, logger *slog.Logger) (*Tracker, error) {
	policy := cfg.OutboundPolicy
	if policy == "" {
		policy = OutboundClamp
	}

	t := &Tracker{
		store:           store,
		logger:          logger,
		policy:          policy,
		now:             time.Now,
		itemsClean:      true,
		categoriesClean: true,
		movementsClean:  true,
	}

	subs := []struct {
		collection string
		fn         docstore.SnapshotFunc
	}{
		{CollectionItems, t.applyItems},
		{CollectionCategories, t.applyCategories},
		{CollectionMovements, t.applyMovements},
	}
	for _, sub := range subs {
		unsub, err := store.Subscribe(sub.collection, sub.fn)
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("subscribe %s: %w", sub.collection, err)
		}
		t.unsubs = append(t.unsubs, unsub)
	}

	return t, nil
}

// Close tears down the Tracker's subscriptions. In-flight writes are not
// canceled; they complete against the store with no further effect on this
// Tracker's projections.
func (t *Tracker) Close() {
	for _, unsub := range t.unsubs {
		unsub()
	}
	t.unsubs = nil
}

// Items returns a copy of the current item projection. Order is
// store-defined and not guaranteed stable across updates.
func (t *Tracker) Items() []model.Item {
	t.mu.RLock()
	defer t.mu.RUnlock()
	items := make([]model.Item, len(t.items))
	copy(items, t.items)
	return items
}

// Item returns the projected item with the given id.
func (t *Tracker) Item(id string) (model.Item, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, it := range t.items {
		if it.ID == id {
			return it, true
		}
	}
	return model.Item{}, false
}

// Categories returns a copy of the current category projection.
func (t *Tracker) Categories() []model.Category {
	t.mu.RLock()
	defer t.mu.RUnlock()
	categories := make([]model.Category, len(t.categories))
	copy(categories, t.categories)
	return categories
}

// Movements returns a copy of the current movement projection.
func (t *Tracker) Movements() []model.Movement {
	t.mu.RLock()
	defer t.mu.RUnlock()
	movements := make([]model.Movement, len(t.movements))
	copy(movements, t.movements)
	return movements
}

// Healthy reports whether the last snapshot of every collection decoded
// cleanly. A false value means at least one projection may be stale.
func (t *Tracker) Healthy() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.itemsClean && t.categoriesClean && t.movementsClean
}

// AddItem assigns an id and creation defaults, then writes the item. The
// projection picks it up on the next snapshot.
func (t *Tracker) AddItem(ctx context.Context, item model.Item) (model.Item, error) {
	if item.Name == "" {
		return model.Item{}, errors.New("instrument name is required")
	}
	if item.Quantity < 0 {
		return model.Item{}, errors.New("quantity must not be negative")
	}

	item.ID = uuid.NewString()
	item.Status = model.StatusPending
	item.AddedDate = t.now().UTC()
	item.UpdatedDate = nil
	if item.MinThreshold < 1 {
		item.MinThreshold = 1
	}
	if item.Category == "" {
		item.Category = Categorize(item.Name)
	}

	if err := t.store.Set(ctx, CollectionItems, item.ID, item); err != nil {
		return model.Item{}, err
	}
	return item, nil
}

// UpdateItem merges fields into the document at id and stamps updatedDate.
// Range-constrained fields (quantity, minThreshold, status) are validated
// before the write; a bad value fails with ErrInvalidField and nothing is
// stored. There is no existence check here; updating a missing id surfaces
// the store's own error.
func (t *Tracker) UpdateItem(ctx context.Context, id string, fields map[string]any) error {
	if err := validateItemFields(fields); err != nil {
		return err
	}

	merged := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged["updatedDate"] = t.now().UTC()
	return t.store.Update(ctx, CollectionItems, id, merged)
}

// DeleteItem removes the item document. Deleting a missing id is a no-op.
func (t *Tracker) DeleteItem(ctx context.Context, id string) error {
	return t.store.Delete(ctx, CollectionItems, id)
}

// BulkUpdateStatus sets the status of every listed item, continuing past
// individual failures and returning them combined.
func (t *Tracker) BulkUpdateStatus(ctx context.Context, ids []string, status string) error {
	if status != model.StatusPending && status != model.StatusCompleted {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidField, status)
	}
	var errs error
	for _, id := range ids {
		errs = multierr.Append(errs, t.UpdateItem(ctx, id, map[string]any{"status": status}))
	}
	return errs
}

// BulkDelete removes every listed item, continuing past individual failures.
func (t *Tracker) BulkDelete(ctx context.Context, ids []string) error {
	var errs error
	for _, id := range ids {
		errs = multierr.Append(errs, t.DeleteItem(ctx, id))
	}
	return errs
}

// AddCategory writes a category keyed by its value. A colliding value
// silently overwrites the existing document.
func (t *Tracker) AddCategory(ctx context.Context, cat model.Category) error {
	if cat.Value == "" {
		return errors.New("category value is required")
	}
	doc := map[string]any{
		"label":     cat.DisplayLabel(),
		"addedDate": t.now().UTC(),
	}
	return t.store.Set(ctx, CollectionCategories, cat.Value, doc)
}

// DeleteCategory removes the category document. Items referencing the value
// keep their now-dangling category string.
func (t *Tracker) DeleteCategory(ctx context.Context, value string) error {
	return t.store.Delete(ctx, CollectionCategories, value)
}

// LogInbound increases the item's stock by qty and records a movement.
func (t *Tracker) LogInbound(ctx context.Context, id string, qty int, note string) error {
	if qty <= 0 {
		return errors.New("quantity must be positive")
	}

	current := t.currentQuantity(id)
	if err := t.UpdateItem(ctx, id, map[string]any{"quantity": current + qty}); err != nil {
		return err
	}

	t.recordMovement(ctx, id, model.DirectionInbound, qty, note)
	return nil
}

// LogOutbound decreases the item's stock by qty and records a movement.
// When qty exceeds current stock the configured policy applies: clamp leaves
// stock untouched and reports success, reject returns ErrInsufficientStock.
// Stock never goes negative under either policy.
func (t *Tracker) LogOutbound(ctx context.Context, id string, qty int, note string) error {
	if qty <= 0 {
		return errors.New("quantity must be positive")
	}

	current := t.currentQuantity(id)
	if qty > current {
		if t.policy == OutboundReject {
			return fmt.Errorf("%w: have %d, requested %d", ErrInsufficientStock, current, qty)
		}
		return nil
	}

	if err := t.UpdateItem(ctx, id, map[string]any{"quantity": current - qty}); err != nil {
		return err
	}

	t.recordMovement(ctx, id, model.DirectionOutbound, qty, note)
	return nil
}

// validateItemFields rejects out-of-range values in a partial update before
// they reach the store, so the projection never observes negative stock, a
// zero threshold, or an unknown status.
func validateItemFields(fields map[string]any) error {
	if v, ok := fields["quantity"]; ok {
		n, err := fieldInt(v)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: quantity must be a non-negative integer", ErrInvalidField)
		}
	}
	if v, ok := fields["minThreshold"]; ok {
		n, err := fieldInt(v)
		if err != nil || n < 1 {
			return fmt.Errorf("%w: minThreshold must be a positive integer", ErrInvalidField)
		}
	}
	if v, ok := fields["status"]; ok {
		s, ok := v.(string)
		if !ok || (s != model.StatusPending && s != model.StatusCompleted) {
			return fmt.Errorf("%w: unknown status %v", ErrInvalidField, v)
		}
	}
	return nil
}

// fieldInt coerces a field value to an int. JSON decoding hands numbers to
// the handlers as float64.
func fieldInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, errors.New("not an integer")
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	default:
		return 0, errors.New("not a number")
	}
}

// currentQuantity looks up the projected stock for id, or zero if the item
// is not (yet) projected.
func (t *Tracker) currentQuantity(id string) int {
	if item, ok := t.Item(id); ok {
		return item.Quantity
	}
	return 0
}

// recordMovement appends an audit record. Movement history is advisory, so
// failures are logged and swallowed rather than failing the stock change
// that already landed.
func (t *Tracker) recordMovement(ctx context.Context, itemID, direction string, qty int, note string) {
	m := model.Movement{
		ID:        uuid.NewString(),
		ItemID:    itemID,
		Direction: direction,
		Quantity:  qty,
		Note:      note,
		LoggedAt:  t.now().UTC(),
	}
	if err := t.store.Set(ctx, CollectionMovements, m.ID, m); err != nil {
		t.logger.Error("record movement", "item", itemID, "direction", direction, "error", err)
	}
}

// applyItems replaces the item projection from a snapshot.
func (t *Tracker) applyItems(docs []docstore.Doc) {
	items := make([]model.Item, 0, len(docs))
	clean := true
	for _, d := range docs {
		var item model.Item
		if err := json.Unmarshal(d.Data, &item); err != nil {
			t.logger.Error("decode item document", "id", d.ID, "error", err)
			clean = false
			continue
		}
		item.ID = d.ID
		items = append(items, item)
	}

	t.mu.Lock()
	t.items = items
	t.itemsClean = clean
	t.mu.Unlock()
}

// applyCategories replaces the category projection from a snapshot and runs
// the one-time seeding check.
func (t *Tracker) applyCategories(docs []docstore.Doc) {
	categories := make([]model.Category, 0, len(docs))
	clean := true
	for _, d := range docs {
		var data struct {
			Label string `json:"label"`
		}
		if err := json.Unmarshal(d.Data, &data); err != nil {
			t.logger.Error("decode category document", "id", d.ID, "error", err)
			clean = false
		}
		label := data.Label
		if label == "" {
			label = d.ID
		}
		categories = append(categories, model.Category{Value: d.ID, Label: label})
	}

	t.mu.Lock()
	t.categories = categories
	t.categoriesClean = clean
	t.mu.Unlock()

	// Seed exactly once per process. The compare-and-swap must win before
	// any seed write is issued so that a second near-simultaneous empty
	// snapshot cannot re-trigger seeding.
	if len(docs) == 0 && t.seeded.CompareAndSwap(false, true) {
		t.seedDefaultCategories()
	}
}

// applyMovements replaces the movement projection from a snapshot.
func (t *Tracker) applyMovements(docs []docstore.Doc) {
	movements := make([]model.Movement, 0, len(docs))
	clean := true
	for _, d := range docs {
		var m model.Movement
		if err := json.Unmarshal(d.Data, &m); err != nil {
			t.logger.Error("decode movement document", "id", d.ID, "error", err)
			clean = false
			continue
		}
		m.ID = d.ID
		movements = append(movements, m)
	}

	t.mu.Lock()
	t.movements = movements
	t.movementsClean = clean
	t.mu.Unlock()
}

// seedDefaultCategories writes the default reference categories. Seeding is
// advisory: individual failures are logged and skipped, never surfaced.
func (t *Tracker) seedDefaultCategories() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, cat := range model.DefaultCategories() {
		if err := t.AddCategory(ctx, cat); err != nil {
			t.logger.Error("seed default category", "value", cat.Value, "error", err)
			continue
		}
	}
	t.logger.Info("seeded default categories")
}
