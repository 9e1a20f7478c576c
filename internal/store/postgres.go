package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/driftlock/ghostgate/internal/model"
	_ "github.com/lib/pq"
)

// PostgresDB wraps the Postgres connection shared by the account and
// link stores.
type PostgresDB struct {
	db *sql.DB
}

// OpenPostgres connects to the database at dbURL and runs migrations.
func OpenPostgres(dbURL string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	for _, m := range []string{pgMigrationAccounts, pgMigrationLinks} {
		if _, err := db.Exec(m); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &PostgresDB{db: db}, nil
}

// Close closes the underlying database.
func (p *PostgresDB) Close() error {
	return p.db.Close()
}

// Accounts returns the Accounts store backed by this database.
func (p *PostgresDB) Accounts() Accounts { return &pgAccounts{db: p.db} }

// Links returns the Links store backed by this database.
func (p *PostgresDB) Links() Links { return &pgLinks{db: p.db} }

const pgMigrationAccounts = `
CREATE TABLE IF NOT EXISTS accounts (
    hash TEXT PRIMARY KEY,
    client_id TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    nonce_token TEXT,
    nonce_issued_at BIGINT,
    pending_link_id TEXT NOT NULL DEFAULT ''
);
`

const pgMigrationLinks = `
CREATE TABLE IF NOT EXISTS links (
    id TEXT PRIMARY KEY,
    token TEXT NOT NULL,
    issued_at BIGINT NOT NULL
);
`

type pgAccounts struct {
	db *sql.DB
}

func (s *pgAccounts) Exists(ctx context.Context, hash string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE hash = $1`, hash).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("account exists: %w", err)
	}
	return true, nil
}

func (s *pgAccounts) Get(ctx context.Context, hash string) (model.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT client_id, password_hash, nonce_token, nonce_issued_at, pending_link_id
		FROM accounts WHERE hash = $1`, hash)
	return scanAccount(row)
}

func (s *pgAccounts) Put(ctx context.Context, hash string, acct model.Account) error {
	nonceToken, nonceIssued := accountArgs(acct)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (hash, client_id, password_hash, nonce_token, nonce_issued_at, pending_link_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (hash) DO UPDATE SET
			client_id = EXCLUDED.client_id,
			password_hash = EXCLUDED.password_hash,
			nonce_token = EXCLUDED.nonce_token,
			nonce_issued_at = EXCLUDED.nonce_issued_at,
			pending_link_id = EXCLUDED.pending_link_id`,
		hash, acct.ClientID, acct.PasswordHash, nonceToken, nonceIssued, acct.PendingLinkID)
	if err != nil {
		return fmt.Errorf("put account: %w", err)
	}
	return nil
}

// Update serializes concurrent writers for the same hash with a row
// lock; writers for different hashes proceed independently.
func (s *pgAccounts) Update(ctx context.Context, hash string, mutate func(*model.Account)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update account: begin: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT client_id, password_hash, nonce_token, nonce_issued_at, pending_link_id
		FROM accounts WHERE hash = $1
		FOR UPDATE`, hash)
	acct, err := scanAccount(row)
	if err != nil {
		return err
	}

	mutate(&acct)

	nonceToken, nonceIssued := accountArgs(acct)
	if _, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET client_id = $1, password_hash = $2, nonce_token = $3, nonce_issued_at = $4, pending_link_id = $5
		WHERE hash = $6`,
		acct.ClientID, acct.PasswordHash, nonceToken, nonceIssued, acct.PendingLinkID, hash); err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return tx.Commit()
}

type pgLinks struct {
	db *sql.DB
}

func (s *pgLinks) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM links WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("link exists: %w", err)
	}
	return true, nil
}

func (s *pgLinks) Get(ctx context.Context, id string) (model.LinkNonce, error) {
	var ln model.LinkNonce
	var issued int64
	err := s.db.QueryRowContext(ctx, `SELECT token, issued_at FROM links WHERE id = $1`, id).
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

func (s *pgLinks) Put(ctx context.Context, id string, ln model.LinkNonce) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO links (id, token, issued_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET token = EXCLUDED.token, issued_at = EXCLUDED.issued_at`,
		id, ln.Token, ln.IssuedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("put link: %w", err)
	}
	return nil
}

func (s *pgLinks) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM links WHERE id = $1`, id); err != nil {
		return fmt.Errorf("remove link: %w", err)
	}
	return nil
}
