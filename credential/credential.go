// Package credential hashes and verifies user passwords.
package credential

import "golang.org/x/crypto/bcrypt"

// Hash returns the bcrypt digest of password. Each call salts anew, two
// hashes of the same password never match byte for byte.
func Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether password matches digest. A malformed digest
// verifies as false, it can never pass the check.
func Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
