package utils

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const BcryptCost = 14

var ErrSecretMismatch = errors.New("secret does not match digest")

// HashSecret returns the salted bcrypt digest stored in STRUCTURAL_CODE_HASH.
func HashSecret(secret string, cost int) (string, error) {
	if cost == 0 {
		cost = BcryptCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	return string(bytes), err
}

// CompareSecret checks secret against a bcrypt digest without ever comparing plaintexts.
func CompareSecret(hash, secret string) error {
	err := bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(hash)), []byte(secret))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrSecretMismatch
	}
	return err
}

// IsBcryptDigest reports whether value looks like a usable bcrypt digest.
func IsBcryptDigest(value string) bool {
	_, err := bcrypt.Cost([]byte(strings.TrimSpace(value)))
	return err == nil
}
