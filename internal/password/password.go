// Package password wraps adaptive password hashing (bcrypt) and the account
// password policy applied at registration.
package password

import (
	"errors"
	"unicode"

	"github.com/dmitrijs2005/filevault/internal/common"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinLength and MaxLength bound accepted plaintext passwords.
	MinLength = 6
	MaxLength = 128

	// minEncodedHashLength guards against a plaintext password being stored
	// where an encoded hash is expected. Real bcrypt output is 60 chars.
	minEncodedHashLength = 20
)

// Hasher hashes and verifies passwords with a configurable work factor.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given bcrypt cost. A cost outside the
// valid bcrypt range falls back to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash produces the encoded one-way hash of plain.
func (h *Hasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Check compares an encoded hash with a plaintext candidate. A mismatch
// returns common.ErrInvalidCredentials; other failures pass through.
func (h *Hasher) Check(encodedHash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(plain))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return common.ErrInvalidCredentials
		}
		return err
	}
	return nil
}

// ValidHashShape reports whether s plausibly holds an encoded hash rather
// than an accidentally stored plaintext.
func ValidHashShape(s string) bool {
	return len(s) >= minEncodedHashLength
}

// Validate applies the registration password policy and returns the list of
// failed rules. An empty slice means the password is acceptable.
func Validate(plain string) []string {
	var failed []string

	if len(plain) < MinLength {
		failed = append(failed, "must be at least 6 characters long")
	}
	if len(plain) > MaxLength {
		failed = append(failed, "must be at most 128 characters long")
	}

	var hasLetter, hasDigit bool
	for _, r := range plain {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		failed = append(failed, "must contain a letter")
	}
	if !hasDigit {
		failed = append(failed, "must contain a number")
	}

	return failed
}
