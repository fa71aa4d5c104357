package itch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// ErrTruncatedFrame reports a stream that ended inside a frame body.
// Unlike decode errors this is fatal: the tape is incomplete and nothing
// after the break can be trusted.
var ErrTruncatedFrame = errors.New("itch: truncated frame")

// FrameReader splits a byte stream into 2-byte-length-prefixed ITCH frames.
// Forward-only, single pass. The returned frame slice is reused between
// calls; callers must consume it before the next Next.
type FrameReader struct {
	r    *bufio.Reader
	buf  []byte
	head [2]byte
}

// NewFrameReader wraps r in a buffered frame splitter.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{
		r:   bufio.NewReaderSize(r, 1<<16),
		buf: make([]byte, 64),
	}
}

// Next returns the body of the next frame, without the length prefix.
// Returns io.EOF once the stream is cleanly exhausted (no further bytes
// for a length prefix) and ErrTruncatedFrame when the stream breaks off
// inside a declared frame body.
func (fr *FrameReader) Next() ([]byte, error) {
	if _, err := io.ReadFull(fr.r, fr.head[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read length prefix: %w", err)
	}

	n := int(fr.head[0])<<8 | int(fr.head[1])
	if n > len(fr.buf) {
		fr.buf = make([]byte, n)
	}
	body := fr.buf[:n]
	if _, err := io.ReadFull(fr.r, body); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: %d-byte frame cut short", ErrTruncatedFrame, n)
		}
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	return body, nil
}
