package session

import (
	"context"
	"errors"

	"github.com/driftlock/ghostgate/internal/model"
	"github.com/driftlock/ghostgate/internal/store"
	"github.com/google/uuid"
)

// RequestLink mints a pending link request for an already signed-in
// account: a fresh LinkId naming a LinkNonce record, with the account's
// PendingLinkID pointed at it. A repeated request silently overwrites
// the reference; the superseded link record stays in the link store
// until something removes it (no implicit cleanup).
func (s *Service) RequestLink(ctx context.Context, hash string) (string, Decision, error) {
	acct, err := s.account(ctx, hash)
	if err != nil {
		return "", Unauthorized, err
	}
	if hash == "" || acct == nil {
		return "", BadRequest, nil
	}
	if acct.Nonce == nil || acct.Nonce.Token == "" {
		if err := s.Teardown(ctx, hash); err != nil {
			return "", Unauthorized, err
		}
		return "", Unauthorized, nil
	}

	tok, err := s.tokens.Token()
	if err != nil {
		return "", Unauthorized, err
	}
	linkID := uuid.NewString()
	if err := s.links.Put(ctx, linkID, model.LinkNonce{Token: tok, IssuedAt: s.now()}); err != nil {
		return "", Unauthorized, err
	}
	// Not atomic with the link write above; a crash in between leaves
	// an orphaned link record, which is accepted.
	if err := s.accounts.Update(ctx, hash, func(a *model.Account) {
		a.PendingLinkID = linkID
	}); err != nil {
		return "", Unauthorized, err
	}
	return linkID, Granted, nil
}

// ConsumeLink gates the link-consumption endpoint and clears the
// account's pending link reference.
//
// The actual redemption — the second client presenting the LinkNonce
// token to associate itself with this account — is not implemented; the
// reference behavior stops at the gate-and-clear, so the linking
// feature is incomplete rather than half-invented here.
func (s *Service) ConsumeLink(ctx context.Context, hash, presented, linkID string) (Decision, error) {
	d, err := s.Status(ctx, hash, presented)
	if err != nil {
		return d, err
	}
	// An empty link id is a malformed request even for an
	// authenticated caller.
	if linkID == "" {
		d = BadRequest
	}
	switch d {
	case Unauthorized:
		if err := s.Teardown(ctx, hash); err != nil {
			return d, err
		}
	case Granted:
		err := s.accounts.Update(ctx, hash, func(a *model.Account) {
			a.PendingLinkID = ""
		})
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return d, err
		}
	}
	return d, nil
}
