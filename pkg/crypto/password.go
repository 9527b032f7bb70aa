package crypto

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor for stored password hashes.
const Cost = bcrypt.DefaultCost

// ErrMismatch reports a wrong password.
var ErrMismatch = errors.New("password mismatch")

// HashPassword hashes plaintext using bcrypt.
func HashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), Cost)
}

// ComparePassword compares plaintext to a stored hash. A wrong password yields ErrMismatch.
func ComparePassword(hash []byte, plain string) error {
	err := bcrypt.CompareHashAndPassword(hash, []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}

var (
	decoyOnce sync.Once
	decoyHash []byte
)

// CompareDecoy burns one bcrypt comparison against a fixed hash. Login calls it
// for unknown accounts so both rejections take the same time.
func CompareDecoy(plain string) {
	decoyOnce.Do(func() {
		decoyHash, _ = bcrypt.GenerateFromPassword([]byte("decoy-password"), Cost)
	})
	_ = bcrypt.CompareHashAndPassword(decoyHash, []byte(plain))
}
