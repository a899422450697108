// Package profile persists local user accounts and their lifetime
// win/loss/tie tallies.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/bcrypt"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

var ErrNotFound = errors.New("profile not found")
var ErrExists = errors.New("username already taken")
var ErrBadCredentials = errors.New("wrong username or password")
var ErrInvalidUsername = errors.New("username must be 2-14 characters")
var ErrEmptyPassword = errors.New("password must not be empty")

// Result is one match outcome from the local player's perspective.
type Result string

const (
	ResultWin  Result = "win"
	ResultLoss Result = "loss"
	ResultTie  Result = "tie"
)

type Profile struct {
	Username string
	Avatar   string
	Wins     int
	Losses   int
	Ties     int
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    username TEXT PRIMARY KEY,
    password_hash TEXT NOT NULL,
    avatar TEXT NOT NULL DEFAULT '',
    wins INTEGER NOT NULL DEFAULT 0,
    losses INTEGER NOT NULL DEFAULT 0,
    ties INTEGER NOT NULL DEFAULT 0
);
`

// Store keeps profiles in a SQLite file under the data directory.
type Store struct {
	db *sql.DB
}

func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dir, "profiles.db")
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open profile db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping profile db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func validUsername(name string) bool {
	return len(name) >= 2 && len(name) <= 14
}

// Register creates a new profile with a bcrypt-hashed password.
func (s *Store) Register(ctx context.Context, username, password, avatar string) error {
	if !validUsername(username) {
		return ErrInvalidUsername
	}
	if password == "" {
		return ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, avatar) VALUES (?, ?, ?)`,
		username, string(hash), avatar)
	if err != nil {
		var serr *msqlite.Error
		if errors.As(err, &serr) && serr.Code() == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY {
			return ErrExists
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// Authenticate checks the password and returns the stored profile.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*Profile, error) {
	var hash string
	p := &Profile{}
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password_hash, avatar, wins, losses, ties FROM users WHERE username = ?`,
		username).Scan(&p.Username, &hash, &p.Avatar, &p.Wins, &p.Losses, &p.Ties)
	if errors.Is(err, sql.ErrNoRows) {
		// Same error as a bad password so probes can't enumerate names.
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return p, nil
}

// Get loads a profile without checking credentials.
func (s *Store) Get(ctx context.Context, username string) (*Profile, error) {
	p := &Profile{}
	err := s.db.QueryRowContext(ctx,
		`SELECT username, avatar, wins, losses, ties FROM users WHERE username = ?`,
		username).Scan(&p.Username, &p.Avatar, &p.Wins, &p.Losses, &p.Ties)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

// RecordResult bumps the matching tally. Tallies only ever increase.
func (s *Store) RecordResult(ctx context.Context, username string, result Result) error {
	var column string
	switch result {
	case ResultWin:
		column = "wins"
	case ResultLoss:
		column = "losses"
	case ResultTie:
		column = "ties"
	default:
		return fmt.Errorf("unknown result %q", result)
	}

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE users SET %s = %s + 1 WHERE username = ?`, column, column),
		username)
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
