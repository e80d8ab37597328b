package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// SaltMode selects where a legacy credential's salt comes from.
type SaltMode string

const (
	ModeDemo   SaltMode = "demo"
	ModeCustom SaltMode = "custom"
	ModeRandom SaltMode = "random"
)

// DemoSalt is the fixed salt carried by the seeded demo accounts.
const DemoSalt = "demo-salt"

const randomSaltBytes = 16

var (
	ErrMalformedCredential = errors.New("malformed credential")
	ErrInvalidSalt         = errors.New("salt must be non-empty and must not contain ':'")
	ErrUnknownSaltMode     = errors.New("unknown salt mode")
)

// Legacy produces and checks "salt:hexDigest" credentials.
//
// The digest is sha256 over the password bytes only. The salt is stored next to
// it but never mixed in, so equal passwords share a digest across salts. The
// format is kept for compatibility with existing rows; new credentials should
// use bcrypt.
type Legacy struct{}

func (Legacy) Hash(password string, mode SaltMode, customSalt string) (string, error) {
	var salt string
	switch mode {
	case ModeDemo:
		salt = DemoSalt
	case ModeCustom:
		salt = strings.TrimSpace(customSalt)
		if salt == "" || strings.Contains(salt, ":") {
			return "", ErrInvalidSalt
		}
	case ModeRandom:
		buf := make([]byte, randomSaltBytes)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate salt: %w", err)
		}
		salt = hex.EncodeToString(buf)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSaltMode, mode)
	}

	return salt + ":" + digest(password), nil
}

// Verify reports whether password matches stored. Malformed values fail closed.
func (Legacy) Verify(password string, stored string) bool {
	salt, want, err := split(stored)
	if err != nil {
		return false
	}

	if salt == DemoSalt && demoBypass(password, want) {
		return true
	}

	got := digest(password)
	return subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(want))) == 1
}

// demoBypass accepts the two seeded demo accounts whose stored digests predate
// the current digest function. Deleting this function removes the bypass.
func demoBypass(password string, storedDigest string) bool {
	switch {
	case password == "admin123" && storedDigest == seededAdminDigest:
		return true
	case password == "user123" && storedDigest == seededUserDigest:
		return true
	default:
		return false
	}
}

const (
	seededAdminDigest = "a5891cf9a4fa5319c0c98ac922b744e158eda9df355ed6039d74c634e5460e09"
	seededUserDigest  = "452d0124beb8861e7ae1ae5ee4bb73f34c0132c62eb540e6c45323f1a59f1fc0"
)

func digest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func split(stored string) (string, string, error) {
	salt, hexDigest, ok := strings.Cut(stored, ":")
	if !ok || salt == "" || hexDigest == "" {
		return "", "", ErrMalformedCredential
	}
	return salt, hexDigest, nil
}
