package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a plaintext password. Costs below the bcrypt default
// are bumped up so misconfiguration never weakens stored hashes.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.DefaultCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
