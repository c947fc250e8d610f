// Package storage persists the reference host's user accounts in a
// SQLite database.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	pwnedcraft "github.com/NelminDev/PwnedCraft"
	"github.com/NelminDev/PwnedCraft/structs"
)

// ErrUserExists is returned by StoreUser without overwrite when the
// name is already taken.
var ErrUserExists = errors.New("user exists")

var schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT COLLATE NOCASE NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	game_mode INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	last_login INTEGER NOT NULL
);
`

// User is one account row. Timestamps are unix seconds.
type User struct {
	ID           string           `db:"id"`
	Name         string           `db:"name"`
	PasswordHash string           `db:"password_hash"`
	GameMode     structs.GameMode `db:"game_mode"`
	CreatedAt    int64            `db:"created_at"`
	LastLogin    int64            `db:"last_login"`
}

type Storage struct {
	db *sqlx.DB
}

// New opens the user database inside dir, creating directory, file, and
// schema as needed.
func New(ctx context.Context, dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, pwnedcraft.WithStack(err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", filepath.Join(dir, "users.sqlite"))
	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, pwnedcraft.WithStack(err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, pwnedcraft.WithStack(err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return pwnedcraft.WithStack(s.db.Close())
}

// LoadUser fetches an account by name, case insensitively.
func (s *Storage) LoadUser(ctx context.Context, name string) (*User, error) {
	user := &User{}
	if err := s.db.GetContext(ctx, user, "SELECT * FROM users WHERE name = ?", name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(os.ErrNotExist, "user %q", name)
		}
		return nil, pwnedcraft.WithStack(err)
	}
	return user, nil
}

func (s *Storage) UserExists(ctx context.Context, name string) (bool, error) {
	count := 0
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(1) FROM users WHERE name = ?", name); err != nil {
		return false, pwnedcraft.WithStack(err)
	}
	return count > 0, nil
}

// StoreUser inserts user, or replaces the stored row when overwrite is
// set. Names collide case insensitively.
func (s *Storage) StoreUser(ctx context.Context, user *User, overwrite bool) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return pwnedcraft.WithStack(err)
	}
	defer tx.Rollback()
	count := 0
	if err := tx.GetContext(ctx, &count, "SELECT COUNT(1) FROM users WHERE name = ?", user.Name); err != nil {
		return pwnedcraft.WithStack(err)
	}
	query := `INSERT INTO users (id, name, password_hash, game_mode, created_at, last_login)
		VALUES (:id, :name, :password_hash, :game_mode, :created_at, :last_login)`
	if count > 0 {
		if !overwrite {
			return errors.Wrapf(ErrUserExists, "%q", user.Name)
		}
		query = `UPDATE users SET password_hash = :password_hash, game_mode = :game_mode,
			created_at = :created_at, last_login = :last_login WHERE name = :name`
	}
	if _, err := tx.NamedExecContext(ctx, query, user); err != nil {
		return pwnedcraft.WithStack(err)
	}
	return pwnedcraft.WithStack(tx.Commit())
}

// SetGameMode updates the stored mode of a named account.
func (s *Storage) SetGameMode(ctx context.Context, name string, mode structs.GameMode) error {
	return s.updateColumn(ctx, name, "UPDATE users SET game_mode = ? WHERE name = ?", int64(mode))
}

// TouchLastLogin stamps a successful login.
func (s *Storage) TouchLastLogin(ctx context.Context, name string, when time.Time) error {
	return s.updateColumn(ctx, name, "UPDATE users SET last_login = ? WHERE name = ?", when.Unix())
}

func (s *Storage) updateColumn(ctx context.Context, name string, query string, value int64) error {
	res, err := s.db.ExecContext(ctx, query, value, name)
	if err != nil {
		return pwnedcraft.WithStack(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return pwnedcraft.WithStack(err)
	}
	if affected == 0 {
		return errors.Wrapf(os.ErrNotExist, "user %q", name)
	}
	return nil
}
