package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

// slugAlphabet is the 62-character set generated slugs draw from. Custom
// slugs additionally allow '_' and '-' (see slugPattern).
const slugAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultSlugLength gives 62^7 (~3.5 trillion) possible generated slugs.
const DefaultSlugLength = 7

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,50}$`)

// NewSlug returns a random slug of the given length, drawn uniformly from
// slugAlphabet. The source is crypto/rand so candidates cannot be predicted
// by an attacker probing for slugs about to be allocated. Uniqueness is not
// guaranteed here; the store's unique index enforces it.
func NewSlug(length int) (string, error) {
	if length <= 0 {
		length = DefaultSlugLength
	}

	max := big.NewInt(int64(len(slugAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to draw random slug char: %w", err)
		}
		b[i] = slugAlphabet[n.Int64()]
	}

	return string(b), nil
}

// ValidateSlug checks the custom-slug format: 3-50 characters of
// [A-Za-z0-9_-].
func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return ErrInvalidSlug
	}
	return nil
}
