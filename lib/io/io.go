package iolib

import (
	"io"

	"github.com/pkg/errors"
)

// Chunker splits a reader into chunks of at most size bytes.
type Chunker struct {
	r    io.Reader
	buf  []byte
	done bool
}

func NewChunker(r io.Reader, size int) *Chunker {
	return &Chunker{r: r, buf: make([]byte, size)}
}

// Next returns the next chunk and whether it is the last one.
// The last chunk may be empty. Returned chunks are never reused.
// After the last chunk, Next returns [io.EOF].
func (c *Chunker) Next() ([]byte, bool, error) {
	if c.done {
		return nil, false, io.EOF
	}

	n, err := io.ReadFull(c.r, c.buf)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		c.done = true
	case err != nil:
		return nil, false, errors.Wrap(err, "reading chunk")
	}

	return append([]byte(nil), c.buf[:n]...), c.done, nil
}
