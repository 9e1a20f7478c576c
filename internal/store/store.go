// Package store defines the account and link-nonce stores and their
// in-memory, SQLite and Postgres backends.
//
// Both stores share the same contract shape: Exists, Get (ErrNotFound
// when absent), Put (unconditional upsert) and, for accounts, Update —
// an atomic per-key read-modify-write. Callers branch on Exists before
// Put; Put itself never reports a conflict.
package store

import (
	"context"
	"errors"

	"github.com/driftlock/ghostgate/internal/model"
)

// ErrNotFound is returned by Get and Update when the key has no record.
// It is a local, recoverable condition: the session service always
// translates it and never lets it reach the transport boundary.
var ErrNotFound = errors.New("store: not found")

// Accounts maps a fingerprint hash to its account record.
//
// Update applies mutate inside a critical section scoped to the key, so
// concurrent sign-ins for the same fingerprint cannot lose nonce writes.
// Requests for different fingerprints must not serialize against each
// other. No cross-key transactions exist; the account and link stores
// are never updated atomically together.
type Accounts interface {
	Exists(ctx context.Context, hash string) (bool, error)
	Get(ctx context.Context, hash string) (model.Account, error)
	Put(ctx context.Context, hash string, acct model.Account) error
	Update(ctx context.Context, hash string, mutate func(*model.Account)) error
}

// Links maps a link id to its pending link nonce. Remove is idempotent:
// deleting an absent id is a no-op.
type Links interface {
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (model.LinkNonce, error)
	Put(ctx context.Context, id string, ln model.LinkNonce) error
	Remove(ctx context.Context, id string) error
}
