package services

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const (
	codeLength = 6
	codeSpace  = 1_000_000
)

// GenerateCode draws a zero-padded 6-digit code uniformly from [000000, 999999] using src
func GenerateCode(src io.Reader) (string, error) {
	n, err := rand.Int(src, big.NewInt(codeSpace))
	if err != nil {
		return "", fmt.Errorf("failed to read random source: %w", err)
	}
	return fmt.Sprintf("%0*d", codeLength, n.Int64()), nil
}
