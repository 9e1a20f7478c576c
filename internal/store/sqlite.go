package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/driftlock/ghostgate/internal/model"
	_ "modernc.org/sqlite"
)

// SQLiteDB wraps the SQLite database connection shared by the account
// and link stores.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite opens or creates the SQLite database at path and runs
// migrations.
func OpenSQLite(path string) (*SQLiteDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite is single-writer; one connection keeps every update a
	// serialized critical section without SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	for _, m := range []string{sqliteMigrationAccounts, sqliteMigrationLinks} {
		if _, err := db.Exec(m); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Accounts returns the Accounts store backed by this database.
func (s *SQLiteDB) Accounts() Accounts { return &sqliteAccounts{db: s.db} }

// Links returns the Links store backed by this database.
func (s *SQLiteDB) Links() Links { return &sqliteLinks{db: s.db} }

const sqliteMigrationAccounts = `
CREATE TABLE IF NOT EXISTS accounts (
    hash TEXT PRIMARY KEY,
    client_id TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    nonce_token TEXT,
    nonce_issued_at INTEGER,
    pending_link_id TEXT NOT NULL DEFAULT ''
);
`

const sqliteMigrationLinks = `
CREATE TABLE IF NOT EXISTS links (
    id TEXT PRIMARY KEY,
    token TEXT NOT NULL,
    issued_at INTEGER NOT NULL
);
`

type sqliteAccounts struct {
	db *sql.DB
}

func scanAccount(row *sql.Row) (model.Account, error) {
	var acct model.Account
	var nonceToken sql.NullString
	var nonceIssued sql.NullInt64
	err := row.Scan(&acct.ClientID, &acct.PasswordHash, &nonceToken, &nonceIssued, &acct.PendingLinkID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, ErrNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("scan account: %w", err)
	}
	if nonceToken.Valid {
		acct.Nonce = &model.Nonce{
			Token:    nonceToken.String,
			IssuedAt: time.UnixMilli(nonceIssued.Int64),
		}
	}
	return acct, nil
}

func accountArgs(acct model.Account) (nonceToken sql.NullString, nonceIssued sql.NullInt64) {
	if acct.Nonce != nil {
		nonceToken = sql.NullString{String: acct.Nonce.Token, Valid: true}
		nonceIssued = sql.NullInt64{Int64: acct.Nonce.IssuedAt.UnixMilli(), Valid: true}
	}
	return
}

func (s *sqliteAccounts) Exists(ctx context.Context, hash string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE hash = ?`, hash).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("account exists: %w", err)
	}
	return true, nil
}

func (s *sqliteAccounts) Get(ctx context.Context, hash string) (model.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT client_id, password_hash, nonce_token, nonce_issued_at, pending_link_id
		FROM accounts WHERE hash = ?`, hash)
	return scanAccount(row)
}

func (s *sqliteAccounts) Put(ctx context.Context, hash string, acct model.Account) error {
	nonceToken, nonceIssued := accountArgs(acct)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (hash, client_id, password_hash, nonce_token, nonce_issued_at, pending_link_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			client_id = excluded.client_id,
			password_hash = excluded.password_hash,
			nonce_token = excluded.nonce_token,
			nonce_issued_at = excluded.nonce_issued_at,
			pending_link_id = excluded.pending_link_id`,
		hash, acct.ClientID, acct.PasswordHash, nonceToken, nonceIssued, acct.PendingLinkID)
	if err != nil {
		return fmt.Errorf("put account: %w", err)
	}
	return nil
}

func (s *sqliteAccounts) Update(ctx context.Context, hash string, mutate func(*model.Account)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update account: begin: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT client_id, password_hash, nonce_token, nonce_issued_at, pending_link_id
		FROM accounts WHERE hash = ?`, hash)
	acct, err := scanAccount(row)
	if err != nil {
		return err
	}

	mutate(&acct)

	nonceToken, nonceIssued := accountArgs(acct)
	if _, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET client_id = ?, password_hash = ?, nonce_token = ?, nonce_issued_at = ?, pending_link_id = ?
		WHERE hash = ?`,
		acct.ClientID, acct.PasswordHash, nonceToken, nonceIssued, acct.PendingLinkID, hash); err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return tx.Commit()
}

type sqliteLinks struct {
	db *sql.DB
}

func (s *sqliteLinks) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM links WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("link exists: %w", err)
	}
	return true, nil
}

func (s *sqliteLinks) Get(ctx context.Context, id string) (model.LinkNonce, error) {
	var ln model.LinkNonce
	var issued int64
	err := s.db.QueryRowContext(ctx, `SELECT token, issued_at FROM links WHERE id = ?`, id).
		Scan(&ln.Token, &issued)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LinkNonce{}, ErrNotFound
	}
	if err != nil {
		return model.LinkNonce{}, fmt.Errorf("get link: %w", err)
	}
	ln.IssuedAt = time.UnixMilli(issued)
	return ln, nil
}

func (s *sqliteLinks) Put(ctx context.Context, id string, ln model.LinkNonce) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO links (id, token, issued_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET token = excluded.token, issued_at = excluded.issued_at`,
		id, ln.Token, ln.IssuedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("put link: %w", err)
	}
	return nil
}

func (s *sqliteLinks) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM links WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove link: %w", err)
	}
	return nil
}
