// Package credential generates the opaque API-key credentials handed out by
// the issuer.
//
// A credential is a constant prefix followed by a fixed number of characters
// drawn uniformly from the 62-symbol alphanumeric alphabet:
//
//	ks-3fZq81LmPa0Xc7Rb
//
// No uniqueness check is performed; at 16 characters the collision
// probability is negligible.
package credential

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const (
	// DefaultPrefix is prepended to every generated credential.
	DefaultPrefix = "ks-"

	// DefaultLength is the number of random characters after the prefix.
	DefaultLength = 16

	// Alphabet is the set of symbols the random body is drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// ErrRandom indicates the random source failed while generating a credential.
var ErrRandom = errors.New("credential: random source failed")

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// Generator produces credentials. The zero value is not usable; call New.
type Generator struct {
	prefix string
	length int
	random io.Reader
}

// Option configures a Generator.
type Option func(*Generator)

// WithPrefix overrides the credential prefix.
func WithPrefix(prefix string) Option {
	return func(g *Generator) {
		g.prefix = prefix
	}
}

// WithLength overrides the number of random characters.
func WithLength(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.length = n
		}
	}
}

// WithRandom sets the entropy source. Defaults to crypto/rand.Reader.
func WithRandom(r io.Reader) Option {
	return func(g *Generator) {
		g.random = r
	}
}

// New creates a Generator with the default prefix and length.
func New(opts ...Option) *Generator {
	g := &Generator{
		prefix: DefaultPrefix,
		length: DefaultLength,
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a fresh credential.
func (g *Generator) Generate() (string, error) {
	var b strings.Builder
	b.Grow(len(g.prefix) + g.length)
	b.WriteString(g.prefix)

	for i := 0; i < g.length; i++ {
		n, err := rand.Int(g.random, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrRandom, err)
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Valid reports whether s has the shape of a credential produced by g.
func (g *Generator) Valid(s string) bool {
	body, ok := strings.CutPrefix(s, g.prefix)
	if !ok || len(body) != g.length {
		return false
	}
	for i := 0; i < len(body); i++ {
		if strings.IndexByte(Alphabet, body[i]) < 0 {
			return false
		}
	}
	return true
}
