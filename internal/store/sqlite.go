package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"otm.relay/internal/models"
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore keeps messages in a SQLite file in WAL mode. Writes go through
// a single connection to avoid "database is locked"; reads share a bounded
// pool. Timestamps are stored as unix milliseconds.
type SQLiteStore struct {
	writer      *sql.DB
	reader      *sql.DB
	now         Clock
	stopPurging context.CancelFunc
}

// NewSQLiteStore opens (or creates) the database at path and applies
// migrations. maxConns bounds the reader pool.
func NewSQLiteStore(path string, maxConns int, opts Options) (*SQLiteStore, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)",
		path,
	)
	return openSQLite(dsn, maxConns, opts)
}

func openSQLite(dsn string, maxConns int, opts Options) (*SQLiteStore, error) {
	opts = opts.withDefaults()
	if maxConns < 1 {
		maxConns = 1
	}

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	if err := writer.Ping(); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("ping writer: %w", err)
	}

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(maxConns)

	if err := reader.Ping(); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		return nil, fmt.Errorf("ping reader: %w", err)
	}

	if err := runMigrations(writer, "sqlite"); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		return nil, err
	}

	s := &SQLiteStore{writer: writer, reader: reader, now: opts.Clock}
	s.stopPurging = startPurger(s, opts)
	return s, nil
}

func (s *SQLiteStore) Create(ctx context.Context, encryptedData string, expiresAt *time.Time) (string, error) {
	if encryptedData == "" {
		return "", ErrInvalidMessage
	}

	id := newID()
	var exp sql.NullInt64
	if expiresAt != nil {
		exp = sql.NullInt64{Int64: expiresAt.UnixMilli(), Valid: true}
	}

	const query = `INSERT INTO messages (id, encrypted_text, expires_at, created_at) VALUES (?, ?, ?, ?)`
	if _, err := s.writer.ExecContext(ctx, query, id, encryptedData, exp, s.now().UnixMilli()); err != nil {
		return "", fmt.Errorf("insert message: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) Fetch(ctx context.Context, id string) (*models.Message, error) {
	const query = `SELECT encrypted_text, expires_at, created_at FROM messages WHERE id = ?`

	var (
		msg       = models.Message{ID: id}
		exp       sql.NullInt64
		createdAt int64
	)
	err := s.reader.QueryRowContext(ctx, query, id).Scan(&msg.EncryptedData, &exp, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select message: %w", err)
	}

	msg.CreatedAt = time.UnixMilli(createdAt).UTC()
	if exp.Valid {
		t := time.UnixMilli(exp.Int64).UTC()
		msg.ExpiresAt = &t
	}

	if msg.ExpiredAt(s.now()) {
		if _, err := s.writer.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id); err != nil {
			return nil, fmt.Errorf("delete expired message: %w", err)
		}
		return nil, ErrExpired
	}

	return &msg, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.writer.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete message rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.reader.PingContext(ctx)
}

// Close closes both connection pools. Returns the first error encountered.
func (s *SQLiteStore) Close() error {
	if s.stopPurging != nil {
		s.stopPurging()
	}

	var firstErr error
	if err := s.reader.Close(); err != nil {
		firstErr = fmt.Errorf("close reader: %w", err)
	}
	if err := s.writer.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close writer: %w", err)
	}
	return firstErr
}

func (s *SQLiteStore) purgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.writer.ExecContext(ctx,
		`DELETE FROM messages WHERE expires_at IS NOT NULL AND expires_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	return res.RowsAffected()
}
