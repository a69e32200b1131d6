package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// SQLiteStore persists documents in a single schema-less table and delivers
// change snapshots from a dedicated notifier goroutine, so delivery is
// serialized: a subscriber callback may itself write to the store, and the
// resulting notification is queued rather than re-entering the callback.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]SnapshotFunc // collection -> subscriber id -> fn
	dirty  map[string]bool
	closed bool

	wake chan struct{}
	done chan struct{}
}

// NewSQLite creates a SQLiteStore on db and starts its notifier. The db must
// have the documents table migrated (see the database package).
func NewSQLite(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	s := &SQLiteStore{
		db:     db,
		logger: logger,
		subs:   make(map[string]map[int]SnapshotFunc),
		dirty:  make(map[string]bool),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Subscribe registers fn and synchronously delivers the current snapshot.
// Registration happens before the snapshot read, and the collection is
// marked dirty afterwards so the notifier redelivers: a write racing the
// initial read can reorder deliveries but can never leave the subscriber
// stuck on a stale snapshot.
func (s *SQLiteStore) Subscribe(collection string, fn SnapshotFunc) (func(), error) {
	s.mu.Lock()
	if s.subs[collection] == nil {
		s.subs[collection] = make(map[int]SnapshotFunc)
	}
	id := s.nextID
	s.nextID++
	s.subs[collection][id] = fn
	s.mu.Unlock()

	unsub := func() {
		s.mu.Lock()
		delete(s.subs[collection], id)
		s.mu.Unlock()
	}

	docs, err := s.snapshot(collection)
	if err != nil {
		unsub()
		return nil, fmt.Errorf("initial snapshot of %s: %w", collection, err)
	}

	fn(docs)
	s.notify(collection)

	return unsub, nil
}

func (s *SQLiteStore) Set(ctx context.Context, collection, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return writeErr("set", collection, id, fmt.Errorf("encode document: %w", err))
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		collection, id, string(data),
	)
	if err != nil {
		return writeErr("set", collection, id, err)
	}

	s.notify(collection)
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return writeErr("update", collection, id, err)
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return writeErr("update", collection, id, ErrNotFound)
	}
	if err != nil {
		return writeErr("update", collection, id, err)
	}

	merged, err := mergeFields(json.RawMessage(data), fields)
	if err != nil {
		return writeErr("update", collection, id, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE documents SET data = ?, updated_at = CURRENT_TIMESTAMP WHERE collection = ? AND id = ?`,
		string(merged), collection, id,
	)
	if err != nil {
		return writeErr("update", collection, id, err)
	}
	if err := tx.Commit(); err != nil {
		return writeErr("update", collection, id, err)
	}

	s.notify(collection)
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id,
	)
	if err != nil {
		return writeErr("delete", collection, id, err)
	}

	s.notify(collection)
	return nil
}

// ExportJSON returns every collection as a map of id to raw document.
func (s *SQLiteStore) ExportJSON(ctx context.Context) ([]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT collection, id, data FROM documents ORDER BY collection, created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("export documents: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]json.RawMessage)
	for rows.Next() {
		var collection, id, data string
		if err := rows.Scan(&collection, &id, &data); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if out[collection] == nil {
			out[collection] = make(map[string]json.RawMessage)
		}
		out[collection][id] = json.RawMessage(data)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// Close stops the notifier. Writes issued after Close still persist but no
// longer produce snapshots.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.wake)
	<-s.done
	return nil
}

// notify marks the collection dirty and wakes the notifier.
func (s *SQLiteStore) notify(collection string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.dirty[collection] = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *SQLiteStore) run() {
	defer close(s.done)

	for range s.wake {
		for {
			s.mu.Lock()
			var cols []string
			for c := range s.dirty {
				cols = append(cols, c)
			}
			s.dirty = make(map[string]bool)
			s.mu.Unlock()

			if len(cols) == 0 {
				break
			}
			for _, c := range cols {
				s.broadcast(c)
			}
		}
	}
}

// broadcast snapshots a collection and delivers it to its subscribers.
func (s *SQLiteStore) broadcast(collection string) {
	docs, err := s.snapshot(collection)
	if err != nil {
		s.logger.Error("snapshot collection", "collection", collection, "error", err)
		return
	}

	s.mu.Lock()
	fns := make([]SnapshotFunc, 0, len(s.subs[collection]))
	for _, fn := range s.subs[collection] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(docs)
	}
}

// snapshot reads a collection in creation order. The order is store-defined
// and not guaranteed stable across updates.
func (s *SQLiteStore) snapshot(collection string) ([]Doc, error) {
	rows, err := s.db.Query(
		`SELECT id, data FROM documents WHERE collection = ? ORDER BY created_at, id`, collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Doc
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		docs = append(docs, Doc{ID: id, Data: json.RawMessage(data)})
	}
	return docs, rows.Err()
}
