// Package sqlite provides a SQLite archive transport. Every published batch is
// kept, so a subscriber that attaches late replays the whole history of a
// topic before following new batches.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/drblury/resourcewatch/internal/runtime/codec"
	"github.com/drblury/resourcewatch/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "sqlite"

const (
	// DefaultFilePath is used when no file is configured.
	DefaultFilePath = "resourcewatch.db"
	// DefaultPollInterval is how often subscribers look for new rows.
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultFetchSize bounds the rows read per poll.
	DefaultFetchSize = 100

	targetIDMetadata = "resourcewatch_target_id"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("sqlite: archive closed")

func init() {
	transport.Register(TransportName, Build, transport.SQLiteCapabilities)
}

// Build opens the archive at cfg.GetSQLiteFile. Publisher and subscriber are
// the same value.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	archive, err := Open(ctx, Config{FilePath: cfg.GetSQLiteFile()}, logger)
	if err != nil {
		return transport.Transport{}, err
	}
	return transport.Transport{
		Publisher:  archive,
		Subscriber: archive,
	}, nil
}

// Config holds archive settings.
type Config struct {
	// FilePath is the database file. ":memory:" keeps the archive in memory.
	FilePath string
	// PollInterval is how often subscribers look for new rows.
	PollInterval time.Duration
	// FetchSize bounds the rows read per poll.
	FetchSize int
}

func (c Config) withDefaults() Config {
	if c.FilePath == "" {
		c.FilePath = DefaultFilePath
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.FetchSize <= 0 {
		c.FetchSize = DefaultFetchSize
	}
	return c
}

// Archive implements message.Publisher and message.Subscriber on one table.
type Archive struct {
	db     *sql.DB
	config Config
	logger watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	uuid       TEXT    NOT NULL UNIQUE,
	topic      TEXT    NOT NULL,
	target_id  TEXT    NOT NULL DEFAULT '',
	payload    BLOB    NOT NULL,
	metadata   TEXT    NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_batches_topic_id ON batches(topic, id);
CREATE INDEX IF NOT EXISTS idx_batches_target ON batches(target_id);
`

// Open opens or creates the archive database.
func Open(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (*Archive, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	db, err := sql.Open("sqlite", cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", cfg.FilePath, err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if cfg.FilePath != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, stmt := range append(pragmas, schema) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: init schema: %w", err)
		}
	}

	return &Archive{
		db:     db,
		config: cfg,
		logger: logger,
		done:   make(chan struct{}),
	}, nil
}

func (a *Archive) isClosed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.closed
}

// Publish stores messages in one transaction.
func (a *Archive) Publish(topic string, messages ...*message.Message) error {
	if a.isClosed() {
		return ErrClosed
	}

	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			a.logger.Error("Failed to roll back archive write", err, nil)
		}
	}()

	stmt, err := tx.Prepare(`INSERT INTO batches (uuid, topic, target_id, payload, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().UnixNano()
	for _, msg := range messages {
		metadata, err := codec.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("sqlite: encode metadata: %w", err)
		}
		payload := msg.Payload
		if payload == nil {
			payload = []byte{}
		}
		if _, err := stmt.Exec(msg.UUID, topic, msg.Metadata.Get(targetIDMetadata), payload, string(metadata), now); err != nil {
			return fmt.Errorf("sqlite: insert %s: %w", msg.UUID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

type row struct {
	id       int64
	uuid     string
	payload  []byte
	metadata string
}

func (a *Archive) fetch(ctx context.Context, topic string, after int64, limit int) ([]row, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, uuid, payload, metadata FROM batches WHERE topic = ? AND id > ? ORDER BY id LIMIT ?`,
		topic, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.uuid, &r.payload, &r.metadata); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (a *Archive) toMessage(r row) *message.Message {
	msg := message.NewMessage(r.uuid, r.payload)
	if r.metadata != "" {
		var md map[string]string
		if err := codec.Unmarshal([]byte(r.metadata), &md); err != nil {
			a.logger.Error("Failed to decode archived metadata", err, watermill.LogFields{"uuid": r.uuid})
		}
		for k, v := range md {
			msg.Metadata.Set(k, v)
		}
	}
	return msg
}

// Subscribe replays every archived message for topic and then follows new
// ones. A nacked message is redelivered on the next poll.
func (a *Archive) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if a.isClosed() {
		return nil, ErrClosed
	}

	out := make(chan *message.Message)
	a.wg.Add(1)
	go a.follow(ctx, topic, out)
	return out, nil
}

func (a *Archive) follow(ctx context.Context, topic string, out chan<- *message.Message) {
	defer a.wg.Done()
	defer close(out)

	ticker := time.NewTicker(a.config.PollInterval)
	defer ticker.Stop()

	var cursor int64
	for {
		rows, err := a.fetch(ctx, topic, cursor, a.config.FetchSize)
		if err != nil && ctx.Err() == nil {
			a.logger.Error("Failed to read archive", err, watermill.LogFields{"topic": topic})
		}
		for _, r := range rows {
			acked, ok := a.deliver(ctx, out, r)
			if !ok {
				return
			}
			if !acked {
				break
			}
			cursor = r.id
		}

		select {
		case <-ctx.Done():
			return
		case <-a.done:
			return
		case <-ticker.C:
		}
	}
}

// deliver sends one row and waits for the outcome. ok is false when the
// subscription is ending.
func (a *Archive) deliver(ctx context.Context, out chan<- *message.Message, r row) (acked, ok bool) {
	msg := a.toMessage(r)
	msg.SetContext(ctx)

	select {
	case out <- msg:
	case <-ctx.Done():
		return false, false
	case <-a.done:
		return false, false
	}

	select {
	case <-msg.Acked():
		return true, true
	case <-msg.Nacked():
		a.logger.Debug("Archived message nacked", watermill.LogFields{"uuid": r.uuid})
		return false, true
	case <-ctx.Done():
		return false, false
	case <-a.done:
		return false, false
	}
}

// Replay returns every archived message for topic, oldest first.
func (a *Archive) Replay(ctx context.Context, topic string) ([]*message.Message, error) {
	if a.isClosed() {
		return nil, ErrClosed
	}
	var (
		msgs   []*message.Message
		cursor int64
	)
	for {
		rows, err := a.fetch(ctx, topic, cursor, a.config.FetchSize)
		if err != nil {
			return nil, fmt.Errorf("sqlite: replay %s: %w", topic, err)
		}
		for _, r := range rows {
			msgs = append(msgs, a.toMessage(r))
			cursor = r.id
		}
		if len(rows) < a.config.FetchSize {
			return msgs, nil
		}
	}
}

// Count returns the number of archived messages for a target across all topics.
func (a *Archive) Count(ctx context.Context, targetID string) (int64, error) {
	var n int64
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM batches WHERE target_id = ?`, targetID).Scan(&n)
	return n, err
}

// Prune deletes messages archived before cutoff and returns how many were removed.
func (a *Archive) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := a.db.ExecContext(ctx, `DELETE FROM batches WHERE created_at < ?`, cutoff.UTC().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune: %w", err)
	}
	return res.RowsAffected()
}

// Close stops subscriptions and closes the database. It is safe to call twice.
func (a *Archive) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.done)
	a.mu.Unlock()

	a.wg.Wait()
	return a.db.Close()
}

var _ transport.Replayer = (*Archive)(nil)
