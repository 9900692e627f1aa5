package utils

import "golang.org/x/crypto/bcrypt"

// GooglePasswordSentinel marks accounts created through Google sign-in.  It
// is not a bcrypt hash, so VerifyPassword can never succeed against it and
// password login stays impossible for those accounts.
const GooglePasswordSentinel = "!google-oauth-no-password"

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
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
