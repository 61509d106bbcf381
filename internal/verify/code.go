package verify

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// CodeLength is the number of digits in a one-time code.
const CodeLength = 6

var codeSpace = func() *big.Int {
	n := big.NewInt(10)
	return n.Exp(n, big.NewInt(CodeLength), nil)
}()

// GenerateCode returns a uniformly random fixed-width numeric code.
// Leading zeros are preserved; codes are compared as exact strings.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n), nil
}

// HashCode hashes a code for storage. The plaintext code lives only in the
// dispatch path; sessions persist the hash.
func HashCode(code string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
}

// CodeMatches compares a submitted code against a stored hash. The submitted
// string is compared byte for byte, so "000042" never matches "42".
func CodeMatches(hash []byte, submitted string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(submitted)) == nil
}
