package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"mediastock/internal/eventbus"
)

// FileStore is the legacy fallback backend: every collection is serialized as
// one JSON blob under one fixed key (the collection name). Each mutation
// reads the whole blob, mutates it, writes it back, then broadcasts
// eventbus.EventInventoryUpdated so sibling FileStore instances sharing the
// bus re-read and refresh their own subscribers. The bus substitutes for the
// push notifications a remote store provides natively.
type FileStore struct {
	blobs  BlobStore
	bus    *eventbus.Bus
	logger *slog.Logger

	mu sync.Mutex // serializes read-modify-write cycles

	subMu  sync.Mutex
	nextID int
	subs   map[string]map[int]SnapshotFunc

	unsubBus func()
}

// NewFile creates a FileStore over blobs, wired to bus.
func NewFile(blobs BlobStore, bus *eventbus.Bus, logger *slog.Logger) *FileStore {
	s := &FileStore{
		blobs:  blobs,
		bus:    bus,
		logger: logger,
		subs:   make(map[string]map[int]SnapshotFunc),
	}
	s.unsubBus = bus.Subscribe(eventbus.EventInventoryUpdated, s.rebroadcast)
	return s
}

// Subscribe registers fn before the initial load so a bus event fired by a
// concurrent writer reaches the new subscriber instead of racing past it.
func (s *FileStore) Subscribe(collection string, fn SnapshotFunc) (func(), error) {
	s.subMu.Lock()
	if s.subs[collection] == nil {
		s.subs[collection] = make(map[int]SnapshotFunc)
	}
	id := s.nextID
	s.nextID++
	s.subs[collection][id] = fn
	s.subMu.Unlock()

	unsub := func() {
		s.subMu.Lock()
		delete(s.subs[collection], id)
		s.subMu.Unlock()
	}

	docs, err := s.load(collection)
	if err != nil {
		unsub()
		return nil, fmt.Errorf("initial snapshot of %s: %w", collection, err)
	}

	fn(docs)

	return unsub, nil
}

func (s *FileStore) Set(ctx context.Context, collection, id string, doc any) error {
	obj, err := toObject(doc, id)
	if err != nil {
		return writeErr("set", collection, id, err)
	}

	s.mu.Lock()
	docs, err := s.load(collection)
	if err != nil {
		s.mu.Unlock()
		return writeErr("set", collection, id, err)
	}

	replaced := false
	for i := range docs {
		if docs[i].ID == id {
			docs[i].Data = obj
			replaced = true
			break
		}
	}
	if !replaced {
		docs = append(docs, Doc{ID: id, Data: obj})
	}

	err = s.save(collection, docs)
	s.mu.Unlock()
	if err != nil {
		return writeErr("set", collection, id, err)
	}

	s.bus.Publish(eventbus.EventInventoryUpdated)
	return nil
}

func (s *FileStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	docs, err := s.load(collection)
	if err != nil {
		s.mu.Unlock()
		return writeErr("update", collection, id, err)
	}

	found := false
	for i := range docs {
		if docs[i].ID != id {
			continue
		}
		merged, err := mergeFields(docs[i].Data, fields)
		if err != nil {
			s.mu.Unlock()
			return writeErr("update", collection, id, err)
		}
		docs[i].Data = merged
		found = true
		break
	}
	if !found {
		s.mu.Unlock()
		return writeErr("update", collection, id, ErrNotFound)
	}

	err = s.save(collection, docs)
	s.mu.Unlock()
	if err != nil {
		return writeErr("update", collection, id, err)
	}

	s.bus.Publish(eventbus.EventInventoryUpdated)
	return nil
}

func (s *FileStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	docs, err := s.load(collection)
	if err != nil {
		s.mu.Unlock()
		return writeErr("delete", collection, id, err)
	}

	kept := docs[:0]
	for _, d := range docs {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	if len(kept) == len(docs) {
		// Absent: no-op, no broadcast
		s.mu.Unlock()
		return nil
	}

	err = s.save(collection, kept)
	s.mu.Unlock()
	if err != nil {
		return writeErr("delete", collection, id, err)
	}

	s.bus.Publish(eventbus.EventInventoryUpdated)
	return nil
}

func (s *FileStore) ExportJSON(ctx context.Context) ([]byte, error) {
	keys, err := s.blobs.Keys()
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[string]json.RawMessage)
	for _, key := range keys {
		docs, err := s.load(key)
		if err != nil {
			return nil, err
		}
		out[key] = make(map[string]json.RawMessage, len(docs))
		for _, d := range docs {
			out[key][d.ID] = d.Data
		}
	}
	return json.Marshal(out)
}

// Close detaches the store from the bus. Blobs remain on disk.
func (s *FileStore) Close() error {
	s.unsubBus()
	return nil
}

// rebroadcast re-reads every subscribed collection and delivers fresh
// snapshots. Fired whenever any FileStore on the bus mutates state,
// including this one.
func (s *FileStore) rebroadcast() {
	s.subMu.Lock()
	collections := make(map[string][]SnapshotFunc)
	for c, m := range s.subs {
		for _, fn := range m {
			collections[c] = append(collections[c], fn)
		}
	}
	s.subMu.Unlock()

	for c, fns := range collections {
		docs, err := s.load(c)
		if err != nil {
			s.logger.Error("reload collection", "collection", c, "error", err)
			continue
		}
		for _, fn := range fns {
			fn(docs)
		}
	}
}

// load decodes the blob at the collection key into ordered documents. The
// blob is a JSON array of objects, each carrying its own "id" field.
func (s *FileStore) load(collection string) ([]Doc, error) {
	data, ok, err := s.blobs.Get(collection)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode blob %s: %w", collection, err)
	}

	docs := make([]Doc, 0, len(raw))
	for _, r := range raw {
		var ident struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(r, &ident); err != nil {
			return nil, fmt.Errorf("decode blob %s entry: %w", collection, err)
		}
		docs = append(docs, Doc{ID: ident.ID, Data: r})
	}
	return docs, nil
}

func (s *FileStore) save(collection string, docs []Doc) error {
	raw := make([]json.RawMessage, len(docs))
	for i, d := range docs {
		raw[i] = d.Data
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode blob %s: %w", collection, err)
	}
	return s.blobs.Set(collection, data)
}

// toObject encodes doc as a JSON object with its "id" field populated, the
// shape the blob format stores.
func toObject(doc any, id string) (json.RawMessage, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	obj := make(map[string]any)
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("document is not an object: %w", err)
	}
	obj["id"] = id
	return json.Marshal(obj)
}
