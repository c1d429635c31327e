package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword bcrypt-hashes a registration password at the default cost.
// Registration caps passwords at 72 bytes, bcrypt's own input limit, so
// nothing is silently truncated before hashing.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
