package referral

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/url"
	"strings"
)

const (
	// Prefix starts every referral code
	Prefix = "TYEB"

	// SuffixLength is the number of random characters after Prefix
	SuffixLength = 6

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var alphabetSize = big.NewInt(int64(len(alphabet)))

// NewCode returns Prefix followed by SuffixLength random uppercase
// alphanumeric characters drawn from crypto/rand.
func NewCode() (string, error) {
	var b strings.Builder
	b.Grow(len(Prefix) + SuffixLength)
	b.WriteString(Prefix)

	for i := 0; i < SuffixLength; i++ {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to generate referral code: %w", err)
		}
		b.WriteByte(alphabet[n.Int64()])
	}

	return b.String(), nil
}

// ShareURL embeds code as the ref query parameter of origin
func ShareURL(origin, code string) string {
	if origin == "" || code == "" {
		return ""
	}

	u, err := url.Parse(origin)
	if err != nil {
		return ""
	}

	q := u.Query()
	q.Set("ref", code)
	u.RawQuery = q.Encode()
	return u.String()
}
