// Package sqlstore implements store.Store on database/sql for postgres
// (pgx) and sqlite (modernc). Timestamps are stored as unix milliseconds.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/config"
	"github.com/bigyanadk07/BugTracker/db"
	"github.com/bigyanadk07/BugTracker/model"
	"github.com/bigyanadk07/BugTracker/store"
)

var bugColumns = []string{"id", "title", "description", "priority", "status", "created_by", "assigned_to", "created_at", "updated_at"}

var userColumns = []string{"id", "name", "email", "password_hash", "role", "created_at", "updated_at"}

// Options tunes a Store.
type Options struct {
	// Timeout bounds each statement; zero disables it.
	Timeout time.Duration
	// Logger receives query diagnostics when set.
	Logger *slog.Logger
	// SlowQuery is the warn threshold for query logging.
	SlowQuery time.Duration
	// Now is the timestamp source; defaults to time.Now.
	Now func() time.Time
}

// Store is a SQL-backed store.Store.
type Store struct {
	conn    *sql.DB
	q       db.QueryDB
	backend string
	dialect db.Dialect
	helper  db.Helper
	now     func() time.Time
}

var _ store.Store = (*Store)(nil)

// New wraps an open connection. backend is db.BackendPostgres or
// db.BackendSQLite.
func New(conn *sql.DB, backend string, options Options) *Store {
	s := &Store{
		conn:    conn,
		q:       conn,
		backend: backend,
		dialect: db.DialectFor(backend),
		helper:  db.Helper{Timeout: options.Timeout},
		now:     options.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if options.Logger != nil {
		s.q = db.WithQueryHook(conn, db.SlogHook(options.Logger, options.SlowQuery))
	}
	return s
}

// Open connects using cfg and applies migrations when cfg.AutoMigrate is set.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	conn, err := db.Open(cfg.Driver, cfg.URL, db.Options{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		applied, err := Migrator(conn, cfg.Driver, logger).Up(ctx)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		if logger != nil {
			logger.Info("migrations applied", slog.Int("count", applied))
		}
	}

	return New(conn, cfg.Driver, Options{Timeout: cfg.Timeout, Logger: logger, SlowQuery: 200 * time.Millisecond}), nil
}

// DB returns the underlying connection.
func (s *Store) DB() *sql.DB {
	return s.conn
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := db.WithTimeout(ctx, s.helper.Timeout)
	defer cancel()
	return s.conn.PingContext(ctx)
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// FindPrincipalByID implements store.UserStore.
func (s *Store) FindPrincipalByID(ctx context.Context, id string) (*bugtracker.Principal, error) {
	user, err := s.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	principal := user.Principal()
	return &principal, nil
}

// UserByID implements store.UserStore.
func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	return s.userWhere(ctx, "id = ?", id)
}

// UserByEmail implements store.UserStore.
func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.userWhere(ctx, "email = ?", normalizeEmail(email))
}

func (s *Store) userWhere(ctx context.Context, cond string, arg any) (*model.User, error) {
	stmt, args, err := db.Select(userColumns...).From("users").Where(cond, arg).Dialect(s.dialect).Build()
	if err != nil {
		return nil, err
	}
	row, cancel := s.helper.QueryRow(ctx, s.q, stmt, args...)
	defer cancel()

	var user model.User
	var role string
	var created, updated int64
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &role, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	user.Role = bugtracker.Role(role)
	user.CreatedAt = fromMillis(created)
	user.UpdatedAt = fromMillis(updated)
	return &user, nil
}

// CreateUser implements store.UserStore.
func (s *Store) CreateUser(ctx context.Context, user model.User) (*model.User, error) {
	now := s.timestamp()
	user.ID = uuid.NewString()
	user.Email = normalizeEmail(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	stmt, args, err := db.Insert("users").
		Columns(userColumns...).
		Values(user.ID, user.Name, user.Email, user.PasswordHash, string(user.Role), toMillis(now), toMillis(now)).
		Dialect(s.dialect).
		Build()
	if err != nil {
		return nil, err
	}
	if _, err := s.helper.Exec(ctx, s.q, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// UpdateUser implements store.UserStore.
func (s *Store) UpdateUser(ctx context.Context, id string, patch model.UserPatch) (*model.User, error) {
	now := s.timestamp()
	b := db.Update("users").Set("updated_at", toMillis(now))
	if patch.Name != nil {
		b = b.Set("name", *patch.Name)
	}
	if patch.Email != nil {
		b = b.Set("email", normalizeEmail(*patch.Email))
	}
	if patch.PasswordHash != nil {
		b = b.Set("password_hash", *patch.PasswordHash)
	}
	if patch.Role != nil {
		b = b.Set("role", string(*patch.Role))
	}
	stmt, args, err := b.Where("id = ?", id).Dialect(s.dialect).Build()
	if err != nil {
		return nil, err
	}

	res, err := s.helper.Exec(ctx, s.q, stmt, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	if err := expectRow(res); err != nil {
		return nil, err
	}
	return s.UserByID(ctx, id)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
			strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
