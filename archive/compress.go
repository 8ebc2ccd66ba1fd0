package archive

import (
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/yehan2002/errors"
)

// Compression the compression method used for a tar archive.
type Compression byte

// supported methods
const (
	CompressionNone Compression = 1 + iota
	CompressionGzip
	CompressionZstd
)

var extensions = []struct {
	ext    string
	method Compression
}{
	{".tar", CompressionNone},
	{".tar.gz", CompressionGzip},
	{".tgz", CompressionGzip},
	{".tar.zst", CompressionZstd},
	{".tzst", CompressionZstd},
}

// CompressionFor returns the compression method for an archive based on its extension.
// ok is false if path is not a tar archive.
func CompressionFor(path string) (c Compression, ok bool) {
	path = strings.ToLower(path)
	for _, e := range extensions {
		if strings.HasSuffix(path, e.ext) {
			return e.method, true
		}
	}
	return 0, false
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return "unsupported"
	}
}

// decompressor returns a reader that decompresses src.
// Callers must close the returned reader. Closing it does not close src.
func (c Compression) decompressor(src io.Reader) (reader io.ReadCloser, err error) {
	switch c {
	case CompressionNone:
		reader = io.NopCloser(src)
	case CompressionGzip:
		reader, err = gzip.NewReader(src)
	case CompressionZstd:
		var dec *zstd.Decoder
		if dec, err = zstd.NewReader(src); err == nil {
			reader = dec.IOReadCloser()
		}
	default:
		err = errors.Cause(ErrCompression, errors.Error(c.String()))
	}
	return reader, errors.Wrap("archive: unable to decompress", err)
}

// compressor returns a writer that compresses data written to it into dst.
// Closing the returned writer flushes all data but does not close dst.
func (c Compression) compressor(dst io.Writer) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return &noopCompressor{dst}, nil
	case CompressionGzip:
		return gzip.NewWriter(dst), nil
	case CompressionZstd:
		w, err := zstd.NewWriter(dst)
		return w, errors.Wrap("archive: unable to compress", err)
	default:
		return nil, errors.Cause(ErrCompression, errors.Error(c.String()))
	}
}

// noopCompressor a compressor that does nothing.
type noopCompressor struct{ dst io.Writer }

func (n *noopCompressor) Write(p []byte) (int, error) { return n.dst.Write(p) }
func (n *noopCompressor) Close() error                { return nil }
