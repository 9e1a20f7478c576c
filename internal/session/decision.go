package session

import "net/http"

// Decision is the outcome of a session operation. The transport layer
// maps it to a bare HTTP status; no reason ever reaches the client.
type Decision int

const (
	// Granted means the caller is authenticated for the operation.
	Granted Decision = iota
	// BadRequest means the caller is malformed or unidentifiable:
	// missing fingerprint, missing credential field, or no account
	// where one is mandatory.
	BadRequest
	// Unauthorized means the caller is identifiable but presented an
	// invalid, stale, mismatched or absent credential.
	Unauthorized
)

// HTTPStatus maps the decision to its response status code.
func (d Decision) HTTPStatus() int {
	switch d {
	case BadRequest:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusOK
	}
}

func (d Decision) String() string {
	switch d {
	case Granted:
		return "granted"
	case BadRequest:
		return "bad request"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Denial names why an access check failed. Denials are internal only,
// used for logging and tests.
type Denial string

const (
	DenyNone          Denial = ""
	DenyNoFingerprint Denial = "hash doesn't exist"
	DenyNoToken       Denial = "nonce token doesn't exist"
	DenyUnknownUser   Denial = "user doesn't exist"
	DenyWrongToken    Denial = "nonce is incorrect"
	DenyOldToken      Denial = "nonce is old"
)
