package model

import "time"

// Account is the record kept for one browser fingerprint. Accounts are
// created lazily on first successful sign-in and never deleted.
type Account struct {
	// ClientID is the persistent client-side identifier captured at
	// first contact (the cid cookie value).
	ClientID string `json:"client_id"`

	// PasswordHash is the one-way hash of the account password, set
	// once on first sign-in.
	PasswordHash string `json:"password_hash"`

	// Nonce is the current session credential, nil when no session is
	// active.
	Nonce *Nonce `json:"nonce,omitempty"`

	// PendingLinkID references an outstanding link request in the link
	// store, empty when none is pending.
	PendingLinkID string `json:"pending_link_id,omitempty"`
}

// Nonce is a time-windowed session credential. A single current value
// exists per account; each sign-in replaces it.
type Nonce struct {
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
}

// Expired reports whether the nonce is past its validity window at the
// given instant. The boundary is exclusive: a nonce issued exactly ttl
// ago is still valid.
func (n *Nonce) Expired(now time.Time, ttl time.Duration) bool {
	return now.After(n.IssuedAt.Add(ttl))
}

// LinkNonce is the credential minted for a pending account-link request,
// stored under its LinkId.
type LinkNonce struct {
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
}
