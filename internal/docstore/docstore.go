// Package docstore provides a schema-less document store: JSON records keyed
// by string IDs, grouped into named collections, with change subscriptions.
// Two backends implement the same contract, a SQLite-backed store and a
// file-blob fallback, selected at construction time.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned (wrapped in a WriteError) when an update targets a
// document that does not exist.
var ErrNotFound = errors.New("document not found")

// Doc is a single document as delivered in collection snapshots.
type Doc struct {
	ID   string
	Data json.RawMessage
}

// SnapshotFunc receives the full ordered contents of a collection. It is
// invoked once when a subscription is established and again after every
// change to the collection. Implementations deliver snapshots from a single
// goroutine per store, so callbacks may issue further writes but must not
// block indefinitely.
type SnapshotFunc func(docs []Doc)

// Store is the document-store contract shared by both backends.
//
// Writes are best-effort: they succeed or fail, and subscriber state
// converges only via the next snapshot. Failures are reported as *WriteError.
type Store interface {
	// Subscribe registers fn for changes to the named collection and
	// delivers the current snapshot before returning. The returned function
	// cancels the subscription.
	Subscribe(collection string, fn SnapshotFunc) (func(), error)

	// Set creates or replaces the document at id with the JSON encoding of doc.
	Set(ctx context.Context, collection, id string, doc any) error

	// Update merges fields into the existing document at id. Updating a
	// missing document fails with a WriteError wrapping ErrNotFound.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes the document at id. Deleting a missing document is a no-op.
	Delete(ctx context.Context, collection, id string) error

	// ExportJSON returns the entire store as JSON, keyed by collection then id.
	ExportJSON(ctx context.Context) ([]byte, error)

	// Close tears down subscriptions and stops change delivery.
	Close() error
}

// WriteError reports a failed create, update, or delete.
type WriteError struct {
	Op         string // "set", "update", or "delete"
	Collection string
	ID         string
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// writeErr wraps err as a *WriteError unless it is nil.
func writeErr(op, collection, id string, err error) error {
	if err == nil {
		return nil
	}
	return &WriteError{Op: op, Collection: collection, ID: id, Err: err}
}

// mergeFields applies fields over the JSON object in data and returns the
// re-encoded document.
func mergeFields(data json.RawMessage, fields map[string]any) (json.RawMessage, error) {
	doc := make(map[string]any)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
	}
	for k, v := range fields {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return merged, nil
}
