package crypto

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash of the supplied password. Bcrypt is
// deliberately slow; the cost must not be lowered to speed up logins.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares the hashed password with the plaintext candidate.
// bcrypt's comparison is constant-time.
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// RandomDigits returns a fixed-width numeric code using crypto/rand.
// Leading zeros are preserved, so every code has exactly n digits.
func RandomDigits(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("crypto: digit count must be positive, got %d", n)
	}

	code := make([]byte, n)
	for i := range code {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("crypto: random digit: %w", err)
		}
		code[i] = byte('0' + v.Int64())
	}
	return string(code), nil
}
