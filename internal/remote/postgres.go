package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Stephani-e/food-delivery-app/internal/logging"
)

const notifyChannel = "app_doc_events"

// PostgresStore implements Store on top of a single jsonb documents table.
// Change-feed events ride LISTEN/NOTIFY so writes from other instances
// and devices reach every subscriber.
type PostgresStore struct {
	Pool *pgxpool.Pool

	mu     sync.RWMutex
	subs   map[int]subscription
	nextID int

	listenOnce   sync.Once
	listenCancel context.CancelFunc
}

type subscription struct {
	collections map[string]struct{}
	handler     Handler
}

// NewPostgresStore connects with retry logic (serverless databases cold
// start) and initializes the schema.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	return NewPostgresStoreWithRetry(ctx, databaseURL, 5, time.Second)
}

// NewPostgresStoreWithRetry is NewPostgresStore with configurable retry.
func NewPostgresStoreWithRetry(ctx context.Context, databaseURL string, maxRetries int, initialDelay time.Duration) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}

	poolConfig.MaxConns = 30
	poolConfig.MinConns = 0
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			lastErr = fmt.Errorf("failed to create connection pool: %w", err)
		} else {
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err = pool.Ping(pingCtx)
			cancel()
			if err == nil {
				break
			}
			lastErr = fmt.Errorf("failed to ping database: %w", err)
			pool.Close()
			pool = nil
		}

		logging.LogKV("warn", "database connection failed", map[string]any{
			"attempt": attempt, "max": maxRetries, "error": lastErr.Error(),
		})
		if attempt < maxRetries {
			time.Sleep(initialDelay * time.Duration(1<<(attempt-1)))
		}
	}
	if pool == nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, lastErr)
	}

	s := &PostgresStore{Pool: pool, subs: make(map[int]subscription)}

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.initSchema(initCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS app_documents (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			fields JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, id)
		);
	`); err != nil {
		return fmt.Errorf("failed to create app_documents: %w", err)
	}
	if _, err := s.Pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_app_documents_fields
		ON app_documents USING GIN (fields jsonb_path_ops);
	`); err != nil {
		return fmt.Errorf("failed to create app_documents index: %w", err)
	}
	return nil
}

// Health checks if the database is reachable.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

// Close stops the listen loop and closes the pool.
func (s *PostgresStore) Close() {
	if s.listenCancel != nil {
		s.listenCancel()
	}
	s.Pool.Close()
}

func (s *PostgresStore) ListDocuments(ctx context.Context, collection string, filters []Filter) ([]Document, error) {
	query := `SELECT id, fields, created_at, updated_at FROM app_documents WHERE collection = $1`
	args := []any{collection}

	if len(filters) > 0 {
		match := make(map[string]any, len(filters))
		for _, f := range filters {
			match[f.Field] = f.Value
		}
		raw, err := json.Marshal(match)
		if err != nil {
			return nil, fmt.Errorf("failed to encode filters: %w", err)
		}
		query += ` AND fields @> $2::jsonb`
		args = append(args, string(raw))
	}
	query += ` ORDER BY created_at`

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var raw []byte
		if err := rows.Scan(&doc.ID, &raw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if err := json.Unmarshal(raw, &doc.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode document fields: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return docs, nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, collection, id string, fields map[string]any) (Document, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return Document{}, fmt.Errorf("failed to encode fields: %w", err)
	}

	doc := Document{ID: id}
	err = s.Pool.QueryRow(ctx, `
		INSERT INTO app_documents (collection, id, fields)
		VALUES ($1, $2, $3::jsonb)
		RETURNING fields, created_at, updated_at
	`, collection, id, string(raw)).Scan(&raw, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return Document{}, fmt.Errorf("failed to create document: %w", err)
	}
	if err := json.Unmarshal(raw, &doc.Fields); err != nil {
		return Document{}, fmt.Errorf("failed to decode created fields: %w", err)
	}

	s.notify(ctx, collection, ActionCreate, doc)
	return doc, nil
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, collection, id string, fields map[string]any) (Document, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return Document{}, fmt.Errorf("failed to encode fields: %w", err)
	}

	doc := Document{ID: id}
	err = s.Pool.QueryRow(ctx, `
		UPDATE app_documents
		SET fields = fields || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2
		RETURNING fields, created_at, updated_at
	`, collection, id, string(raw)).Scan(&raw, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to update document: %w", err)
	}
	if err := json.Unmarshal(raw, &doc.Fields); err != nil {
		return Document{}, fmt.Errorf("failed to decode updated fields: %w", err)
	}

	s.notify(ctx, collection, ActionUpdate, doc)
	return doc, nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, collection, id string) error {
	var raw []byte
	err := s.Pool.QueryRow(ctx, `
		DELETE FROM app_documents
		WHERE collection = $1 AND id = $2
		RETURNING fields
	`, collection, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		// Deleting a missing row is not an error.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	doc := Document{ID: id}
	if err := json.Unmarshal(raw, &doc.Fields); err != nil {
		doc.Fields = map[string]any{}
	}
	s.notify(ctx, collection, ActionDelete, doc)
	return nil
}

func (s *PostgresStore) Subscribe(collections []string, handler Handler) (func(), error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	set := make(map[string]struct{}, len(collections))
	for _, c := range collections {
		set[c] = struct{}{}
	}
	s.subs[id] = subscription{collections: set, handler: handler}
	s.mu.Unlock()

	s.listenOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.listenCancel = cancel
		go s.listenLoop(ctx)
	})

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}, nil
}

type notifyPayload struct {
	Collection string         `json:"collection"`
	Action     Action         `json:"action"`
	ID         string         `json:"id"`
	Fields     map[string]any `json:"fields"`
}

func (s *PostgresStore) notify(ctx context.Context, collection string, action Action, doc Document) {
	payload, err := json.Marshal(notifyPayload{
		Collection: collection,
		Action:     action,
		ID:         doc.ID,
		Fields:     doc.Fields,
	})
	if err != nil {
		return
	}
	if _, err := s.Pool.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, string(payload)); err != nil {
		logging.LogKV("warn", "failed to publish change event", map[string]any{
			"collection": collection, "action": string(action), "error": err.Error(),
		})
	}
}

// listenLoop holds a dedicated connection on LISTEN and fans incoming
// notifications out to subscribers. Connection loss re-acquires with
// backoff; subscribers see a gap, which the reload-and-merge model
// absorbs on the next event.
func (s *PostgresStore) listenLoop(ctx context.Context) {
	backoff := time.Second
	for ctx.Err() == nil {
		conn, err := s.Pool.Acquire(ctx)
		if err != nil {
			logging.LogKV("warn", "change-feed listener acquire failed", map[string]any{"error": err.Error()})
			sleepCtx(ctx, backoff)
			continue
		}

		if _, err := conn.Exec(ctx, `LISTEN `+notifyChannel); err != nil {
			logging.LogKV("warn", "change-feed LISTEN failed", map[string]any{"error": err.Error()})
			conn.Release()
			sleepCtx(ctx, backoff)
			continue
		}

		for ctx.Err() == nil {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logging.LogKV("warn", "change-feed listener lost connection", map[string]any{"error": err.Error()})
				}
				break
			}
			s.dispatch(n.Payload)
		}
		conn.Release()
	}
}

func (s *PostgresStore) dispatch(payload string) {
	var p notifyPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		logging.LogKV("warn", "malformed change-feed payload", map[string]any{"error": err.Error()})
		return
	}
	event := Event{
		Collection: p.Collection,
		Action:     p.Action,
		Document:   Document{ID: p.ID, Fields: p.Fields},
	}

	s.mu.RLock()
	handlers := make([]Handler, 0, len(s.subs))
	for _, sub := range s.subs {
		if _, ok := sub.collections[p.Collection]; ok {
			handlers = append(handlers, sub.handler)
		}
	}
	s.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
