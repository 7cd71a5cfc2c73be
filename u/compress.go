package u

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies a compression format
type Compression string

const (
	CompressionNone   Compression = ""
	CompressionGzip   Compression = "gzip"
	CompressionZstd   Compression = "zstd"
	CompressionBrotli Compression = "brotli"
)

// CompressionForPath picks compression format based on file extension:
// .gz => gzip, .zst or .zstd => zstd, .br => brotli
func CompressionForPath(path string) Compression {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gz":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	case ".br":
		return CompressionBrotli
	}
	return CompressionNone
}

// implement io.ReadCloser over os.File wrapped with io.Reader.
// io.Closer goes to closeFn and os.File, io.Reader goes to wrapping reader
type readerWrappedFile struct {
	f       *os.File
	r       io.Reader
	closeFn func()
}

func (rc *readerWrappedFile) Close() error {
	if rc.closeFn != nil {
		rc.closeFn()
	}
	return rc.f.Close()
}

func (rc *readerWrappedFile) Read(p []byte) (int, error) {
	return rc.r.Read(p)
}

// OpenFileMaybeCompressed opens a file that might be compressed with gzip
// or zstd or brotli, based on file extension.
func OpenFileMaybeCompressed(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	rc := &readerWrappedFile{f: f}
	switch CompressionForPath(path) {
	case CompressionGzip:
		r, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		rc.r = r
	case CompressionZstd:
		r, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		rc.r = r
		// zstd.Decoder has background goroutines
		rc.closeFn = r.Close
	case CompressionBrotli:
		rc.r = brotli.NewReader(f)
	default:
		return f, nil
	}
	return rc, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}

func zstdNewWriter(dst io.Writer) (*zstd.Encoder, error) {
	return zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
}

// NewCompressingWriter wraps w in a compressor for a given format.
// Close() flushes the compressor but doesn't close w.
func NewCompressingWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionGzip:
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	case CompressionZstd:
		return zstdNewWriter(w)
	case CompressionBrotli:
		return brotli.NewWriterLevel(w, brotli.BestCompression), nil
	}
	return nopWriteCloser{w}, nil
}
