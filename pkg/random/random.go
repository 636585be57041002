package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NewRandomString returns a string of the given length with every
// character drawn uniformly (with replacement) from charset. The
// charset is treated as a sequence of runes, so multibyte alphabets
// produce whole characters rather than split byte sequences.
func NewRandomString(charset string, length int) (string, error) {
	if charset == "" {
		return "", fmt.Errorf("charset must not be empty")
	}
	if length <= 0 {
		return "", fmt.Errorf("length must be positive, got %d", length)
	}

	chars := []rune(charset)
	max := big.NewInt(int64(len(chars)))
	result := make([]rune, length)

	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		result[i] = chars[n.Int64()]
	}

	return string(result), nil
}
