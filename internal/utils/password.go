package utils

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost is the work factor used for new hashes.  Cost 12 takes
// a few hundred milliseconds per hash on commodity hardware.
const DefaultBcryptCost = 12

// HashPassword returns bcrypt hash using the given cost.  Costs outside
// bcrypt's accepted range fall back to DefaultBcryptCost.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
