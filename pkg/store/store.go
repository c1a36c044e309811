package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound indicates no account matched the given credentials.
var ErrNotFound = errors.New("account not found")

// Account is one row of the account table. The gateway only ever reads it,
// except for the two login/logout timestamp updates.
type Account struct {
	ID           int32
	Username     string
	IsAdmin      bool
	Active       bool
	Gold         int32
	Vnd          int32
	TotalDeposit int32
	ServerLogin  int32
	LastLoginAt  int64 // epoch millis
	LastLogoutAt int64 // epoch millis
	Reward       *string
	Banned       bool
}

// AccountStore is the credential-store surface the gateway consumes.
// FindByCredentials returns ErrNotFound when no account matches.
type AccountStore interface {
	FindByCredentials(ctx context.Context, username, password string) (*Account, error)
	MarkLogin(ctx context.Context, userID int32) error
	MarkLogout(ctx context.Context, userID int32) error
}

// DB implements AccountStore on SQLite.
type DB struct {
	conn *sql.DB
}

// Open opens the account database at the given path and initializes the
// schema if needed.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	// WAL allows readers to proceed while a timestamp update is in flight
	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Wait and retry instead of failing immediately with SQLITE_BUSY
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := conn.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS account (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	is_admin INTEGER NOT NULL DEFAULT 0,
	active INTEGER NOT NULL DEFAULT 1,
	gold INTEGER NOT NULL DEFAULT 0,
	vnd INTEGER NOT NULL DEFAULT 0,
	total_deposit INTEGER NOT NULL DEFAULT 0,
	server_login INTEGER NOT NULL DEFAULT 1,
	last_login_at INTEGER NOT NULL DEFAULT 0,
	last_logout_at INTEGER NOT NULL DEFAULT 0,
	reward TEXT,
	banned INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_account_credentials ON account(username, password);
`
	_, err := db.conn.Exec(schema)
	return err
}

// FindByCredentials looks up an account by exact username/password match.
// The peer game servers send passwords in stored form, so no hashing
// happens on the gateway side.
func (db *DB) FindByCredentials(ctx context.Context, username, password string) (*Account, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, username, is_admin, active, gold, vnd, total_deposit,
		       server_login, last_login_at, last_logout_at, reward, banned
		FROM account
		WHERE username = ? AND password = ?
		LIMIT 1`, username, password)

	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.IsAdmin, &a.Active, &a.Gold,
		&a.Vnd, &a.TotalDeposit, &a.ServerLogin, &a.LastLoginAt,
		&a.LastLogoutAt, &a.Reward, &a.Banned)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return &a, nil
}

// MarkLogin stamps the account's last login time with the current time.
func (db *DB) MarkLogin(ctx context.Context, userID int32) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE account SET last_login_at = ? WHERE id = ?`,
		time.Now().UnixMilli(), userID)
	if err != nil {
		return fmt.Errorf("failed to update login time: %w", err)
	}
	return nil
}

// MarkLogout stamps the account's last logout time with the current time.
func (db *DB) MarkLogout(ctx context.Context, userID int32) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE account SET last_logout_at = ? WHERE id = ?`,
		time.Now().UnixMilli(), userID)
	if err != nil {
		return fmt.Errorf("failed to update logout time: %w", err)
	}
	return nil
}

// CreateAccount inserts a new account row. Used by provisioning tooling and
// tests; the gateway itself never registers accounts.
func (db *DB) CreateAccount(ctx context.Context, a *Account, password string) error {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO account (username, password, is_admin, active, gold, vnd,
			total_deposit, server_login, last_login_at, last_logout_at, reward, banned)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Username, password, a.IsAdmin, a.Active, a.Gold, a.Vnd,
		a.TotalDeposit, a.ServerLogin, a.LastLoginAt, a.LastLogoutAt,
		a.Reward, a.Banned)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted id: %w", err)
	}
	a.ID = int32(id)
	return nil
}
