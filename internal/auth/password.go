package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when there is nothing to hash or verify.
var ErrEmptyPassword = errors.New("password is empty")

// HashCost clamps a configured AUTH_BCRYPT_COST into bcrypt's accepted range.
func HashCost(cost int) int {
	switch {
	case cost == 0:
		return bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		return bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		return bcrypt.MaxCost
	default:
		return cost
	}
}

// HashPassword hashes an account password for storage in users.password_hash.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), HashCost(cost))
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword checks a login attempt against the stored hash. Accounts without a hash
// never match.
func ComparePassword(hashed, plain string) error {
	if hashed == "" || plain == "" {
		return ErrEmptyPassword
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
