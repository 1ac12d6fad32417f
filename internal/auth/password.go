package auth

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost is used whenever a caller passes a cost outside bcrypt's
// supported range. 12 keeps a single admin login comfortably under 500ms on
// current hardware.
const DefaultBcryptCost = 12

// HashPassword produces the bcrypt hash stored in AUTH_ADMIN_PASSWORD_HASH.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a plaintext password against its stored hash.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
