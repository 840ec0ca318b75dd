// Package hashutil separates slow salted hashing for credentials from fast
// digests for fingerprints and deduplication keys. Callers must not use one
// in place of the other.
package hashutil

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations is the PBKDF2 round count.
	Iterations = 100_000
	// KeyLength is the derived key size in bytes.
	KeyLength = 64
	// SaltLength is the size in bytes of generated salts.
	SaltLength = 16
)

// Result is a derived key and the salt it was derived with, both hex encoded.
type Result struct {
	Hash string
	Salt string
}

// Hash derives a PBKDF2-HMAC-SHA512 key from secret. When salt is empty a
// random one is generated.
func Hash(secret, salt string) (Result, error) {
	if salt == "" {
		b := make([]byte, SaltLength)
		if _, err := rand.Read(b); err != nil {
			return Result{}, fmt.Errorf("generate salt: %w", err)
		}
		salt = hex.EncodeToString(b)
	}
	return Result{Hash: derive(secret, salt), Salt: salt}, nil
}

// Verify re-derives secret with salt and compares it with storedHash.
func Verify(secret, storedHash, salt string) bool {
	if storedHash == "" || salt == "" {
		return false
	}
	got := derive(secret, salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(storedHash)) == 1
}

// SimpleHash is a fast SHA-256 hex digest. Not for credentials.
func SimpleHash(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

func derive(secret, salt string) string {
	return hex.EncodeToString(pbkdf2.Key([]byte(secret), []byte(salt), Iterations, KeyLength, sha512.New))
}
