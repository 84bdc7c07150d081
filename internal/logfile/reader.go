package logfile

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

const readBufSize = 64 * 1024

// OpenError reports a log source that could not be opened or decoded.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open log %s: %s", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// Reader streams decoded lines from a plain or compressed log file.
// It is a pull iterator: call Next until it returns false, then check Err.
type Reader struct {
	path    string
	file    *os.File
	counter *countingReader
	dec     io.ReadCloser
	br      *bufio.Reader

	line    string
	lineNum int
	err     error
	done    bool
	closed  bool
}

// Open opens path and picks a decoder from its suffix.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}

	counter := &countingReader{r: f, h: sha256.New()}
	dec, err := codecFor(path).open(counter)
	if err != nil {
		f.Close()
		return nil, &OpenError{Path: path, Err: err}
	}

	return &Reader{
		path:    path,
		file:    f,
		counter: counter,
		dec:     dec,
		br:      bufio.NewReaderSize(dec, readBufSize),
	}, nil
}

// Next advances to the next line. It returns false at end of input or on
// a read error; Err distinguishes the two.
func (r *Reader) Next() bool {
	if r.done || r.closed {
		return false
	}

	s, err := r.br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		r.err = fmt.Errorf("read %s at line %d: %w", r.path, r.lineNum+1, err)
		r.done = true
		return false
	}
	if errors.Is(err, io.EOF) {
		r.done = true
		r.drain()
		if s == "" {
			return false
		}
	}

	r.lineNum++
	r.line = strings.TrimRight(s, "\r\n")
	return true
}

// Line returns the current line without its terminator. It is valid until
// the next call to Next.
func (r *Reader) Line() string {
	return r.line
}

// LineNumber returns the 1-based number of the current line.
func (r *Reader) LineNumber() int {
	return r.lineNum
}

// Err returns the first non-EOF error encountered.
func (r *Reader) Err() error {
	return r.err
}

// BytesRead returns the number of raw (possibly compressed) bytes consumed.
func (r *Reader) BytesRead() int64 {
	return r.counter.n
}

// SHA256 returns the hex digest of the raw file. It is only meaningful after
// Next has returned false with a nil Err.
func (r *Reader) SHA256() string {
	return hex.EncodeToString(r.counter.h.Sum(nil))
}

// Close releases the decoder and file. It is safe to call more than once.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.dec.Close(); err != nil {
		r.file.Close()
		return fmt.Errorf("close decoder: %w", err)
	}
	return r.file.Close()
}

// drain pulls any bytes the decoder left unread (trailers, padding) through
// the hash so SHA256 covers the whole file.
func (r *Reader) drain() {
	if _, err := io.Copy(io.Discard, r.counter); err != nil && r.err == nil {
		r.err = fmt.Errorf("read %s: %w", r.path, err)
	}
}

// countingReader hashes and counts every byte read from the file.
type countingReader struct {
	r io.Reader
	h hash.Hash
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.n += int64(n)
		c.h.Write(p[:n])
	}
	return n, err
}
