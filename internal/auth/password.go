package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt refuses inputs longer than 72 bytes.
const maxSecretBytes = 72

const defaultHashConcurrency = 4

// Hasher performs salted one-way hashing of credentials. Hashing is
// deliberately expensive, so concurrent calls are bounded by a semaphore
// to keep a burst of logins from saturating every scheduler thread.
type Hasher struct {
	cost int
	sem  chan struct{}
}

// NewHasher builds a Hasher with the given bcrypt cost. Costs outside
// bcrypt's supported range fall back to the package default (10).
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{
		cost: cost,
		sem:  make(chan struct{}, defaultHashConcurrency),
	}
}

// Hash derives a salted hash of secret. The encoded result embeds the
// algorithm id, cost, and per-call salt, so two hashes of the same
// secret differ while both verify.
func (h *Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: empty secret", ErrInvalidInput)
	}
	if len(secret) > maxSecretBytes {
		return "", fmt.Errorf("%w: secret exceeds %d bytes", ErrInvalidInput, maxSecretBytes)
	}
	h.sem <- struct{}{}
	defer func() { <-h.sem }()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

// Verify recomputes the hash with the salt embedded in encoded and
// compares in constant time. A mismatch is a normal false result, not
// an error.
func (h *Hasher) Verify(secret, encoded string) bool {
	if secret == "" || encoded == "" {
		return false
	}
	h.sem <- struct{}{}
	defer func() { <-h.sem }()
	return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(secret)) == nil
}
