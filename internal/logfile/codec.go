package logfile

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/xi2/xz"
)

// codec opens a decompressing stream over raw file bytes.
type codec struct {
	name string
	open func(io.Reader) (io.ReadCloser, error)
}

var codecs = map[string]codec{
	".gz": {name: "gzip", open: func(r io.Reader) (io.ReadCloser, error) {
		return gzip.NewReader(r)
	}},
	".zst": {name: "zstd", open: func(r io.Reader) (io.ReadCloser, error) {
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	}},
	".lz4": {name: "lz4", open: func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(lz4.NewReader(r)), nil
	}},
	".xz": {name: "xz", open: func(r io.Reader) (io.ReadCloser, error) {
		d, err := xz.NewReader(r, 0)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(d), nil
	}},
	".br": {name: "brotli", open: func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(brotli.NewReader(r)), nil
	}},
}

var plain = codec{name: "plain", open: func(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}}

func codecFor(path string) codec {
	if c, ok := codecs[strings.ToLower(filepath.Ext(path))]; ok {
		return c
	}
	return plain
}

// Compression returns the decoder name Open would use for path.
func Compression(path string) string {
	return codecFor(path).name
}

// IsCompressed reports whether path carries a known compression suffix.
func IsCompressed(path string) bool {
	return codecFor(path).name != plain.name
}
