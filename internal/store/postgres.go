package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"otm.relay/internal/models"
)

var _ Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db          *sql.DB
	now         Clock
	stopPurging context.CancelFunc
}

// NewPostgresStore connects to dsn, bounds the pool at maxConns and applies
// migrations.
func NewPostgresStore(dsn string, maxConns int, opts Options) (*PostgresStore, error) {
	const op = "store.postgres.New"

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	if err := runMigrations(db, "postgres"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := newPostgresStore(db, opts)
	s.stopPurging = startPurger(s, opts.withDefaults())
	return s, nil
}

// newPostgresStore wraps an already opened database without migrating it.
func newPostgresStore(db *sql.DB, opts Options) *PostgresStore {
	opts = opts.withDefaults()
	return &PostgresStore{db: db, now: opts.Clock}
}

func (s *PostgresStore) Create(ctx context.Context, encryptedData string, expiresAt *time.Time) (string, error) {
	const op = "store.postgres.Create"

	if encryptedData == "" {
		return "", ErrInvalidMessage
	}

	id := newID()
	var exp sql.NullTime
	if expiresAt != nil {
		exp = sql.NullTime{Time: expiresAt.UTC(), Valid: true}
	}

	const query = `INSERT INTO messages (id, encrypted_text, expires_at, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := s.db.ExecContext(ctx, query, id, encryptedData, exp, s.now()); err != nil {
		return "", wrapPostgresError(op, err)
	}
	return id, nil
}

func (s *PostgresStore) Fetch(ctx context.Context, id string) (*models.Message, error) {
	const op = "store.postgres.Fetch"

	msg := models.Message{ID: id}
	var exp sql.NullTime

	query := `SELECT encrypted_text, expires_at, created_at FROM messages WHERE id = $1`
	err := s.db.QueryRowContext(ctx, query, id).Scan(&msg.EncryptedData, &exp, &msg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapPostgresError(op, err)
	}

	msg.CreatedAt = msg.CreatedAt.UTC()
	if exp.Valid {
		t := exp.Time.UTC()
		msg.ExpiresAt = &t
	}

	if msg.ExpiredAt(s.now()) {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id); err != nil {
			return nil, wrapPostgresError(op, err)
		}
		return nil, ErrExpired
	}

	return &msg, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	const op = "store.postgres.Delete"

	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return wrapPostgresError(op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return wrapPostgresError(op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	if s.stopPurging != nil {
		s.stopPurging()
	}
	return s.db.Close()
}

func (s *PostgresStore) purgeExpired(ctx context.Context, before time.Time) (int64, error) {
	const op = "store.postgres.purgeExpired"

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE expires_at IS NOT NULL AND expires_at < $1`, before)
	if err != nil {
		return 0, wrapPostgresError(op, err)
	}
	return res.RowsAffected()
}

func wrapPostgresError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%s: postgres %s: %w", op, pqErr.Code, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
