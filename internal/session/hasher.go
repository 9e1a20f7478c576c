package session

import "golang.org/x/crypto/bcrypt"

// Hasher is the one-way password hashing primitive. The service never
// sees plaintext beyond handing it to the hasher.
type Hasher interface {
	Hash(password string) (string, error)
	// Compare returns nil when password matches the stored hash.
	Compare(hash, password string) error
}

// BcryptHasher hashes with bcrypt at the given cost. A zero Cost uses
// bcrypt.DefaultCost.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (h BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
