package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	seededAdminCredential = DemoSalt + ":" + seededAdminDigest
	seededUserCredential  = DemoSalt + ":" + seededUserDigest
)

func TestLegacyDemoAccounts(t *testing.T) {
	t.Parallel()

	var legacy Legacy

	t.Run("seeded admin accepts admin123 only", func(t *testing.T) {
		require.True(t, legacy.Verify("admin123", seededAdminCredential))
		require.False(t, legacy.Verify("admin1234", seededAdminCredential))
		require.False(t, legacy.Verify("user123", seededAdminCredential))
		require.False(t, legacy.Verify("", seededAdminCredential))
	})

	t.Run("seeded user accepts user123 only", func(t *testing.T) {
		require.True(t, legacy.Verify("user123", seededUserCredential))
		require.False(t, legacy.Verify("admin123", seededUserCredential))
	})

	t.Run("bypass does not apply under another salt", func(t *testing.T) {
		require.False(t, legacy.Verify("admin123", "other:"+seededAdminDigest))
	})

	t.Run("other demo-salt credentials use the digest", func(t *testing.T) {
		stored, err := legacy.Hash("hunter2", ModeDemo, "")
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(stored, DemoSalt+":"))
		require.True(t, legacy.Verify("hunter2", stored))
		require.False(t, legacy.Verify("hunter3", stored))
	})
}

func TestLegacyHashModes(t *testing.T) {
	t.Parallel()

	var legacy Legacy

	t.Run("custom salt is stored verbatim", func(t *testing.T) {
		stored, err := legacy.Hash("pw", ModeCustom, "pepper")
		require.NoError(t, err)
		require.Equal(t, "pepper:30c952fab122c3f9759f02a6d95c3758b246b4fee239957b2d4fee46e26170c4", stored)
	})

	t.Run("custom salt rejects separator and empty", func(t *testing.T) {
		_, err := legacy.Hash("pw", ModeCustom, "a:b")
		require.ErrorIs(t, err, ErrInvalidSalt)
		_, err = legacy.Hash("pw", ModeCustom, "  ")
		require.ErrorIs(t, err, ErrInvalidSalt)
	})

	t.Run("random salts differ but digests do not", func(t *testing.T) {
		first, err := legacy.Hash("same", ModeRandom, "")
		require.NoError(t, err)
		second, err := legacy.Hash("same", ModeRandom, "")
		require.NoError(t, err)

		firstSalt, firstDigest, _ := strings.Cut(first, ":")
		secondSalt, secondDigest, _ := strings.Cut(second, ":")
		require.NotEqual(t, firstSalt, secondSalt)
		require.Equal(t, firstDigest, secondDigest)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := legacy.Hash("pw", SaltMode("pepper"), "")
		require.ErrorIs(t, err, ErrUnknownSaltMode)
	})
}

func TestLegacyVerifyMalformed(t *testing.T) {
	t.Parallel()

	var legacy Legacy
	for _, stored := range []string{"", "nodelimiter", ":abc", "salt:", ":"} {
		require.False(t, legacy.Verify("pw", stored), stored)
	}
}

func TestHasherDispatch(t *testing.T) {
	t.Parallel()

	hasher, err := NewHasher(SchemeBcrypt, bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("bcrypt is the default scheme", func(t *testing.T) {
		stored, err := hasher.Hash("Password123!")
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(stored, "$2a$"))
		require.True(t, hasher.Verify("Password123!", stored))
		require.False(t, hasher.Verify("password123!", stored))
	})

	t.Run("legacy credentials still verify", func(t *testing.T) {
		require.True(t, hasher.Verify("admin123", seededAdminCredential))
		stored, err := hasher.HashLegacy("pw", ModeCustom, "pepper")
		require.NoError(t, err)
		require.True(t, hasher.Verify("pw", stored))
	})

	t.Run("verify nothing always fails", func(t *testing.T) {
		require.False(t, hasher.VerifyNothing("admin123"))
	})
}

func TestHasherPadsEveryRejection(t *testing.T) {
	t.Parallel()

	hasher, err := NewHasher(SchemeBcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	padded := 0
	hasher.pad = func(string) { padded++ }

	require.False(t, hasher.Verify("wrong", seededAdminCredential))
	require.Equal(t, 1, padded, "legacy mismatch pays a bcrypt comparison")

	require.False(t, hasher.Verify("pw", "malformed"))
	require.Equal(t, 2, padded)

	require.True(t, hasher.Verify("admin123", seededAdminCredential))
	require.False(t, hasher.VerifyNothing("pw"))
	require.Equal(t, 3, padded)

	stored, err := hasher.Hash("pw")
	require.NoError(t, err)
	require.False(t, hasher.Verify("nope", stored))
	require.Equal(t, 3, padded, "bcrypt mismatch already costs a comparison")
}

func TestNewHasherValidation(t *testing.T) {
	t.Parallel()

	_, err := NewHasher(Scheme("md5"), 0)
	require.Error(t, err)

	_, err = NewHasher(SchemeBcrypt, 99)
	require.Error(t, err)

	legacyHasher, err := NewHasher(SchemeLegacy, bcrypt.MinCost)
	require.NoError(t, err)
	stored, err := legacyHasher.Hash("pw")
	require.NoError(t, err)
	require.Contains(t, stored, ":")
	require.True(t, legacyHasher.Verify("pw", stored))
}
