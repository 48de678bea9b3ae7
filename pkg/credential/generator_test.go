package credential

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestGenerate_Format(t *testing.T) {
	g := New()

	for i := 0; i < 200; i++ {
		cred, err := g.Generate()
		require.NoError(t, err)

		require.True(t, strings.HasPrefix(cred, DefaultPrefix), "missing prefix: %q", cred)
		assert.Len(t, cred, len(DefaultPrefix)+DefaultLength)
		for _, c := range cred[len(DefaultPrefix):] {
			assert.Contains(t, Alphabet, string(c))
		}
		assert.True(t, g.Valid(cred))
	}
}

func TestGenerate_Distinct(t *testing.T) {
	g := New()
	seen := make(map[string]struct{}, 10000)

	t.Log("Generating 10000 credentials and checking for duplicates")
	for i := 0; i < 10000; i++ {
		cred, err := g.Generate()
		require.NoError(t, err)
		_, dup := seen[cred]
		require.False(t, dup, "duplicate credential %q after %d generations", cred, i)
		seen[cred] = struct{}{}
	}
}

func TestGenerate_Options(t *testing.T) {
	g := New(WithPrefix("tk_"), WithLength(24))

	cred, err := g.Generate()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cred, "tk_"))
	assert.Len(t, cred, 27)

	t.Log("Non-positive length keeps the default")
	g = New(WithLength(0))
	cred, err = g.Generate()
	require.NoError(t, err)
	assert.Len(t, cred, len(DefaultPrefix)+DefaultLength)
}

func TestGenerate_RandomFailure(t *testing.T) {
	g := New(WithRandom(failingReader{}))

	cred, err := g.Generate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRandom))
	assert.Empty(t, cred)
}

func TestValid(t *testing.T) {
	g := New()

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"well formed", "ks-abcdefghABCDEFGH", true},
		{"digits only body", "ks-0123456789012345", true},
		{"missing prefix", "abcdefghABCDEFGH", false},
		{"wrong prefix", "kx-abcdefghABCDEFGH", false},
		{"too short", "ks-abcdefgh", false},
		{"too long", "ks-abcdefghABCDEFGHI", false},
		{"symbol in body", "ks-abcdefgh-BCDEFGH", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Valid(tt.input))
		})
	}
}
