// Package cryptox hashes and verifies account passwords with argon2id.
package cryptox

import (
	"crypto/subtle"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"golang.org/x/crypto/argon2"
)

// Hash parameters. Changing any of them invalidates stored hashes.
const (
	SaltSize    = 16
	KeySize     = 32
	timeCost    = 1
	memoryCost  = 64 * 1024
	parallelism = 4
)

// NewSalt returns SaltSize fresh random bytes.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

// HashPassword derives the stored password hash from the plaintext and salt.
func HashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, timeCost, memoryCost, parallelism, KeySize)
}

// VerifyPassword reports whether candidate hashes to stored under salt.
// The comparison runs in constant time.
func VerifyPassword(stored, salt, candidate []byte) bool {
	if len(stored) == 0 {
		return false
	}
	computed := HashPassword(candidate, salt)
	defer common.WipeByteArray(computed)
	return subtle.ConstantTimeCompare(stored, computed) == 1
}
