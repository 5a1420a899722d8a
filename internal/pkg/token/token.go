package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	codeMin = 1000
	codeMax = 9999
)

// NewConfirmationCode returns a 4-digit code drawn uniformly from [1000, 9999].
// It is read from crypto/rand, so consecutive codes are unrelated and nothing
// is replayed across restarts.
func NewConfirmationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("generate confirmation code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+codeMin), nil
}
