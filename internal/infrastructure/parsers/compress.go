package parsers

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// NewCompressedReader returns a reader that gunzips r.
// A missing or invalid gzip header is reported as a malformed file.
func NewCompressedReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, malformed("reading gzip stream: %v", err)
	}
	return zr, nil
}

// NewCompressedWriter returns a writer that gzips into w. Close must be
// called to flush the stream.
func NewCompressedWriter(w io.Writer) io.WriteCloser {
	return gzip.NewWriter(w)
}
