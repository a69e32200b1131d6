package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"mediastock/internal/eventbus"
)

func newTestFileStore(t *testing.T) (*FileStore, *MemBlobStore, *eventbus.Bus) {
	t.Helper()
	blobs := NewMemBlobStore()
	bus := eventbus.New()
	s := NewFile(blobs, bus, slog.Default())
	t.Cleanup(func() { s.Close() })
	return s, blobs, bus
}

func TestFileStoreBlobFormat(t *testing.T) {
	s, blobs, _ := newTestFileStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "churchMediaInventory", "a", map[string]any{"instrumentName": "Mixer"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	// The blob is a JSON array of objects, each with its id embedded.
	data, ok, err := blobs.Get("churchMediaInventory")
	if err != nil || !ok {
		t.Fatalf("blob missing: ok=%v err=%v", ok, err)
	}
	var arr []map[string]any
	if err := json.Unmarshal(data, &arr); err != nil {
		t.Fatalf("blob is not a JSON array: %v", err)
	}
	if len(arr) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(arr))
	}
	if arr[0]["id"] != "a" {
		t.Errorf("expected embedded id %q, got %v", "a", arr[0]["id"])
	}
	if arr[0]["instrumentName"] != "Mixer" {
		t.Errorf("expected instrumentName preserved, got %v", arr[0]["instrumentName"])
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	blobs := NewMemBlobStore()
	bus := eventbus.New()

	first := NewFile(blobs, bus, slog.Default())
	ctx := context.Background()
	if err := first.Set(ctx, "items", "a", map[string]any{"name": "mixer", "quantity": 2}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := first.Update(ctx, "items", "a", map[string]any{"quantity": 3}); err != nil {
		t.Fatalf("update: %v", err)
	}
	first.Close()

	// A fresh instance over the same blobs sees the persisted state.
	second := NewFile(blobs, eventbus.New(), slog.Default())
	defer second.Close()

	var got []Doc
	unsub, err := second.Subscribe("items", func(docs []Doc) { got = docs })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()

	if len(got) != 1 {
		t.Fatalf("expected 1 document, got %d", len(got))
	}
	var doc map[string]any
	if err := json.Unmarshal(got[0].Data, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc["quantity"] != float64(3) {
		t.Errorf("expected quantity 3 after round trip, got %v", doc["quantity"])
	}
}

func TestFileStoreCrossInstanceSync(t *testing.T) {
	blobs := NewMemBlobStore()
	bus := eventbus.New()

	writer := NewFile(blobs, bus, slog.Default())
	defer writer.Close()
	reader := NewFile(blobs, bus, slog.Default())
	defer reader.Close()

	rec := &snapshotRecorder{}
	unsub, err := reader.Subscribe("items", rec.record)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()

	// A write through one instance reaches the other's subscribers via the
	// shared bus. Publish is synchronous, so no polling is needed.
	if err := writer.Set(context.Background(), "items", "a", map[string]any{"name": "mixer"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	docs := rec.last()
	if len(docs) != 1 || docs[0].ID != "a" {
		t.Errorf("expected reader to see the write, got %+v", docs)
	}
}

func TestFileStoreUpdateMissingReturnsNotFound(t *testing.T) {
	s, _, _ := newTestFileStore(t)

	err := s.Update(context.Background(), "items", "nope", map[string]any{"quantity": 1})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreDeleteAbsentNoBroadcast(t *testing.T) {
	s, _, bus := newTestFileStore(t)

	fired := false
	unsub := bus.Subscribe(eventbus.EventInventoryUpdated, func() { fired = true })
	defer unsub()

	if err := s.Delete(context.Background(), "items", "nope"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if fired {
		t.Error("expected no broadcast for absent delete")
	}
}

func TestFileStoreExportJSON(t *testing.T) {
	s, _, _ := newTestFileStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "items", "a", map[string]any{"name": "mixer"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "categories", "audio", map[string]any{"label": "Audio"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	data, err := s.ExportJSON(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var out map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if _, ok := out["items"]["a"]; !ok {
		t.Error("expected items/a in export")
	}
	if _, ok := out["categories"]["audio"]; !ok {
		t.Error("expected categories/audio in export")
	}
}
