// Package password hashes and verifies user credentials.
//
// Two stored formats coexist: bcrypt strings for every credential minted by
// default, and the legacy "salt:hexDigest" form for seeded or explicitly
// requested accounts. Verify dispatches on the stored format.
package password

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type Scheme string

const (
	SchemeBcrypt Scheme = "bcrypt"
	SchemeLegacy Scheme = "legacy"
)

type Hasher struct {
	scheme     Scheme
	bcryptCost int
	legacy     Legacy
	// dummy is compared against when no user matched or a cheap legacy digest
	// failed, so every rejection costs about one bcrypt comparison.
	dummy []byte
	pad   func(password string)
}

func NewHasher(scheme Scheme, bcryptCost int) (*Hasher, error) {
	switch scheme {
	case "":
		scheme = SchemeBcrypt
	case SchemeBcrypt, SchemeLegacy:
	default:
		return nil, fmt.Errorf("unsupported password scheme %q", scheme)
	}

	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", bcryptCost)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("no-such-user"), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	h := &Hasher{scheme: scheme, bcryptCost: bcryptCost, dummy: dummy}
	h.pad = h.compareDummy
	return h, nil
}

// Hash mints a credential with the configured scheme. The legacy scheme draws
// a random salt.
func (h *Hasher) Hash(password string) (string, error) {
	if h.scheme == SchemeLegacy {
		return h.legacy.Hash(password, ModeRandom, "")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(hash), nil
}

// HashLegacy mints a "salt:hexDigest" credential regardless of the configured scheme.
func (h *Hasher) HashLegacy(password string, mode SaltMode, customSalt string) (string, error) {
	return h.legacy.Hash(password, mode, customSalt)
}

// Verify reports whether password matches stored. A failed legacy check is
// padded to bcrypt cost so rejections look alike regardless of format.
func (h *Hasher) Verify(password string, stored string) bool {
	if isBcrypt(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	if h.legacy.Verify(password, stored) {
		return true
	}
	h.pad(password)
	return false
}

// VerifyNothing burns roughly one verification worth of time and always fails.
func (h *Hasher) VerifyNothing(password string) bool {
	h.pad(password)
	return false
}

func (h *Hasher) compareDummy(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
}

func isBcrypt(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") ||
		strings.HasPrefix(stored, "$2y$")
}
