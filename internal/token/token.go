package token

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const (
	fileAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// FileTokenLength gives about 95 bits over the 62 symbol alphabet
	FileTokenLength = 16

	codeBlockLength = 4
	codeBlocks      = 3
	poolBlocks      = 2
	poolPrefix      = "POOL"

	// MaxAttempts bounds rejection sampling against existing codes
	MaxAttempts = 32
)

// ErrExhausted is returned when no unused code was found within MaxAttempts
var ErrExhausted = errors.New("could not generate a unique code")

// ExistsFunc reports whether a code is already taken
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generator produces file tokens and redeem codes from a random source
type Generator struct {
	rand io.Reader
}

// New returns a Generator backed by crypto/rand
func New() *Generator {
	return &Generator{rand: rand.Reader}
}

// NewWithReader returns a Generator reading randomness from r
func NewWithReader(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// FileToken returns a fresh access token for a file record
func (g *Generator) FileToken() (string, error) {
	return g.random(fileAlphabet, FileTokenLength)
}

// RedeemCode returns a code not yet known to exists. Ordinary codes look
// like XXXX-XXXX-XXXX, pool codes like POOL-XXXX-XXXX.
func (g *Generator) RedeemCode(ctx context.Context, exists ExistsFunc, pool bool) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		code, err := g.code(pool)
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrExhausted
}

func (g *Generator) code(pool bool) (string, error) {
	n := codeBlocks
	var blocks []string
	if pool {
		n = poolBlocks
		blocks = append(blocks, poolPrefix)
	}
	for i := 0; i < n; i++ {
		block, err := g.random(codeAlphabet, codeBlockLength)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "-"), nil
}

func (g *Generator) random(alphabet string, length int) (string, error) {
	size := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(g.rand, size)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}
