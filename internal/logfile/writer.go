package logfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ErrNoEncoder is returned by Create for suffixes that can be read but not written.
var ErrNoEncoder = errors.New("no encoder for compression")

var encoders = map[string]func(io.Writer) (io.WriteCloser, error){
	".gz": func(w io.Writer) (io.WriteCloser, error) {
		return gzip.NewWriter(w), nil
	},
	".zst": func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w)
	},
	".lz4": func(w io.Writer) (io.WriteCloser, error) {
		return lz4.NewWriter(w), nil
	},
	".br": func(w io.Writer) (io.WriteCloser, error) {
		return brotli.NewWriter(w), nil
	},
}

// Writer writes a log file, compressing by suffix the same way Open decodes.
type Writer struct {
	file *os.File
	enc  io.WriteCloser
}

// Create creates path and picks an encoder from its suffix.
func Create(path string) (*Writer, error) {
	ext := strings.ToLower(filepath.Ext(path))
	newEnc, ok := encoders[ext]
	if !ok && IsCompressed(path) {
		return nil, fmt.Errorf("%w %s", ErrNoEncoder, Compression(path))
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Writer{file: f}, nil
	}

	enc, err := newEnc(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create %s encoder: %w", Compression(path), err)
	}
	return &Writer{file: f, enc: enc}, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.enc != nil {
		return w.enc.Write(p)
	}
	return w.file.Write(p)
}

// WriteLine writes s followed by a newline.
func (w *Writer) WriteLine(s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return err
	}
	_, err := w.Write([]byte{'\n'})
	return err
}

// Close flushes the encoder and closes the file.
func (w *Writer) Close() error {
	if w.enc != nil {
		if err := w.enc.Close(); err != nil {
			w.file.Close()
			return fmt.Errorf("close encoder: %w", err)
		}
	}
	return w.file.Close()
}
