// Package session holds the identity/session state machine: fingerprint
// keyed accounts, nonce issuance and expiry, and the link-nonce
// handshake. It decides access and drives every store mutation; the
// transport layer only maps decisions to status codes and cookies.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/driftlock/ghostgate/internal/model"
	"github.com/driftlock/ghostgate/internal/store"
	"github.com/driftlock/ghostgate/internal/token"
)

// DefaultNonceTTL is the validity window of a session nonce.
const DefaultNonceTTL = 2 * time.Minute

// Service evaluates access decisions for fingerprint-keyed accounts.
// All methods are safe for concurrent use; per-fingerprint mutations
// rely on the stores' atomic Update.
type Service struct {
	accounts store.Accounts
	links    store.Links
	hasher   Hasher
	tokens   token.Source
	nonceTTL time.Duration
	now      func() time.Time
}

// Options tune a Service. Zero values pick the defaults.
type Options struct {
	NonceTTL time.Duration
	Hasher   Hasher
	Tokens   token.Source
	Now      func() time.Time
}

// New creates a session service over the given stores.
func New(accounts store.Accounts, links store.Links, opts Options) *Service {
	if opts.NonceTTL <= 0 {
		opts.NonceTTL = DefaultNonceTTL
	}
	if opts.Hasher == nil {
		opts.Hasher = BcryptHasher{}
	}
	if opts.Tokens == nil {
		opts.Tokens = token.Random{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		accounts: accounts,
		links:    links,
		hasher:   opts.Hasher,
		tokens:   opts.Tokens,
		nonceTTL: opts.NonceTTL,
		now:      opts.Now,
	}
}

// CheckAccess decides whether the presented nonce token grants access
// for the fingerprint. It is read-only; callers that surface an
// Unauthorized result to a client are expected to call Teardown.
//
// The conditions are evaluated in a fixed order and the first match
// wins, so the returned Denial is deterministic.
func (s *Service) CheckAccess(ctx context.Context, hash, presented string) (Decision, Denial, error) {
	if hash == "" {
		return Unauthorized, DenyNoFingerprint, nil
	}
	if presented == "" {
		return Unauthorized, DenyNoToken, nil
	}
	acct, err := s.account(ctx, hash)
	if err != nil {
		return Unauthorized, DenyNone, err
	}
	if acct == nil || acct.Nonce == nil || acct.Nonce.Token == "" {
		return Unauthorized, DenyUnknownUser, nil
	}
	if presented != acct.Nonce.Token {
		return Unauthorized, DenyWrongToken, nil
	}
	if acct.Nonce.Expired(s.now(), s.nonceTTL) {
		return Unauthorized, DenyOldToken, nil
	}
	return Granted, DenyNone, nil
}

// Status derives the two-tier status used by sign-out and the link
// endpoints: Unauthorized when the credential check fails, BadRequest
// when the caller cannot even be identified, Granted otherwise.
func (s *Service) Status(ctx context.Context, hash, presented string) (Decision, error) {
	d, _, err := s.CheckAccess(ctx, hash, presented)
	if err != nil {
		return Unauthorized, err
	}
	if d != Granted {
		return Unauthorized, nil
	}
	acct, err := s.account(ctx, hash)
	if err != nil {
		return Unauthorized, err
	}
	if hash == "" || acct == nil {
		return BadRequest, nil
	}
	return Granted, nil
}

// SignIn establishes or resumes the account for the fingerprint. The
// same operation covers first-time signup and login: the fingerprint is
// the only identity, so a missing account plus any password is a valid
// first sign-in. On success a fresh nonce replaces any previous one,
// invalidating earlier sessions for this fingerprint.
func (s *Service) SignIn(ctx context.Context, hash, clientID, password string) (string, Decision, error) {
	password = strings.TrimSpace(password)
	if hash == "" || password == "" {
		return "", BadRequest, nil
	}

	acct, err := s.account(ctx, hash)
	if err != nil {
		return "", Unauthorized, err
	}
	if acct != nil && s.hasher.Compare(acct.PasswordHash, password) != nil {
		if err := s.Teardown(ctx, hash); err != nil {
			return "", Unauthorized, err
		}
		return "", Unauthorized, nil
	}

	tok, err := s.tokens.Token()
	if err != nil {
		return "", Unauthorized, err
	}
	nonce := &model.Nonce{Token: tok, IssuedAt: s.now()}

	if acct == nil {
		pwHash, err := s.hasher.Hash(password)
		if err != nil {
			return "", Unauthorized, fmt.Errorf("session: hash password: %w", err)
		}
		if err := s.accounts.Put(ctx, hash, model.Account{
			ClientID:     clientID,
			PasswordHash: pwHash,
			Nonce:        nonce,
		}); err != nil {
			return "", Unauthorized, err
		}
	} else {
		if err := s.accounts.Update(ctx, hash, func(a *model.Account) {
			a.Nonce = nonce
		}); err != nil {
			return "", Unauthorized, err
		}
	}
	return tok, Granted, nil
}

// SignOut clears the active nonce when the caller is authenticated and
// known. An unauthenticated caller gets Unauthorized with no mutation:
// there is nothing to clear, which also makes repeated sign-out
// harmless.
func (s *Service) SignOut(ctx context.Context, hash, presented string) (Decision, error) {
	d, err := s.Status(ctx, hash, presented)
	if err != nil {
		return d, err
	}
	if d == Granted {
		if err := s.Teardown(ctx, hash); err != nil {
			return d, err
		}
	}
	return d, nil
}

// Teardown clears the stored nonce for the fingerprint if an account
// exists. The transport layer pairs it with clearing the session
// cookie.
func (s *Service) Teardown(ctx context.Context, hash string) error {
	if hash == "" {
		return nil
	}
	err := s.accounts.Update(ctx, hash, func(a *model.Account) {
		a.Nonce = nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// account loads the record for hash, mapping an absent record to nil so
// store.ErrNotFound never crosses the service boundary.
func (s *Service) account(ctx context.Context, hash string) (*model.Account, error) {
	if hash == "" {
		return nil, nil
	}
	acct, err := s.accounts.Get(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}
