package iolib

import (
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chunk struct {
	data  string
	final bool
}

func readAll(t *testing.T, c *Chunker) []chunk {
	var out []chunk
	for {
		b, final, err := c.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, chunk{string(b), final})
	}
}

func TestChunker(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
		size  int
		want  []chunk
	}{
		{"empty", "", 4, []chunk{{"", true}}},
		{"short", "hi", 4, []chunk{{"hi", true}}},
		{"exact", "abcd", 4, []chunk{{"abcd", false}, {"", true}}},
		{"split", "hello", 2, []chunk{{"he", false}, {"ll", false}, {"o", true}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, readAll(t, NewChunker(strings.NewReader(tc.input), tc.size)))
		})
	}
}

func TestChunkerOneByteReader(t *testing.T) {
	c := NewChunker(iotest.OneByteReader(strings.NewReader("abc")), 2)
	assert.Equal(t, []chunk{{"ab", false}, {"c", true}}, readAll(t, c))
}

func TestChunkerError(t *testing.T) {
	c := NewChunker(iotest.ErrReader(iotest.ErrTimeout), 2)
	_, _, err := c.Next()
	assert.ErrorIs(t, err, iotest.ErrTimeout)
}
