// Package postgres provides a PostgreSQL implementation of storage.Directory.
// It reads the backend's users, permissions and alert recipients through a
// pgx/v5 connection pool and can stream alert events via LISTEN/NOTIFY.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/alertbridge/pkg/storage"
)

// Store is a PostgreSQL-backed Directory.
type Store struct {
	pool     *pgxpool.Pool
	listener listenerState
}

// Ensure Store implements storage.Directory at compile time.
var _ storage.Directory = (*Store)(nil)

// New creates a new PostgreSQL directory with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// UserExists reports whether an active account with the email exists.
func (s *Store) UserExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND is_active)",
		email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: looking up user: %w", storage.ErrUnavailable, err)
	}
	return exists, nil
}

// HasPermission reports whether an active user holds the permission.
func (s *Store) HasPermission(ctx context.Context, email, permission string) (bool, error) {
	var granted bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM user_permissions p
			JOIN users u ON u.email = p.email
			WHERE p.email = $1 AND p.permission = $2 AND u.is_active
		)`,
		email, permission,
	).Scan(&granted)
	if err != nil {
		return false, fmt.Errorf("%w: checking permission: %w", storage.ErrUnavailable, err)
	}
	return granted, nil
}

// AlertRecipients returns the active recipients of an alert, sorted by
// email. Returns storage.ErrNotFound when the alert does not exist.
func (s *Store) AlertRecipients(ctx context.Context, alertID string) ([]storage.User, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM alerts WHERE id = $1)", alertID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("%w: looking up alert: %w", storage.ErrUnavailable, err)
	}
	if !exists {
		return nil, storage.ErrNotFound
	}

	rows, err := s.pool.Query(ctx, `
		SELECT u.email
		FROM alert_recipients r
		JOIN users u ON u.email = r.email
		WHERE r.alert_id = $1 AND u.is_active
		ORDER BY u.email`,
		alertID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: listing recipients: %w", storage.ErrUnavailable, err)
	}
	defer rows.Close()

	var users []storage.User
	for rows.Next() {
		var u storage.User
		if err := rows.Scan(&u.Email); err != nil {
			return nil, fmt.Errorf("scanning recipient: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recipients: %w", err)
	}
	return users, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return err
	}
	return s.listener.check()
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
