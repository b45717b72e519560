package transport

import (
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	crerr "github.com/cockroachdb/errors"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/valyala/bytebufferpool"
)

// AcceptEncoding lists every Content-Encoding readBody can decode.
const AcceptEncoding = "gzip, deflate, br, zstd"

// readBody decodes the body according to Content-Encoding and copies at most
// maxBytes of decoded data. Larger bodies fail with ErrBodyTooLarge.
func readBody(body io.Reader, contentEncoding string, maxBytes int64) ([]byte, error) {
	reader, closeFn, err := decodingReader(body, contentEncoding)
	if err != nil {
		return nil, crerr.Wrap(err, "open decoder")
	}
	defer closeFn()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if _, err := buf.ReadFrom(io.LimitReader(reader, maxBytes+1)); err != nil {
		return nil, crerr.Wrap(err, "read response body")
	}
	if int64(buf.Len()) > maxBytes {
		return nil, crerr.Mark(crerr.Newf("body over %d bytes", maxBytes), ErrBodyTooLarge)
	}

	out := make([]byte, buf.Len())
	copy(out, buf.B)
	return out, nil
}

func decodingReader(body io.Reader, contentEncoding string) (io.Reader, func(), error) {
	noop := func() {}
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "", "identity":
		return body, noop, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, noop, err
		}
		return zr, func() { _ = zr.Close() }, nil
	case "deflate":
		fr := flate.NewReader(body)
		return fr, func() { _ = fr.Close() }, nil
	case "br":
		return brotli.NewReader(body), noop, nil
	case "zstd":
		zr, err := zstd.NewReader(body)
		if err != nil {
			return nil, noop, err
		}
		return zr, zr.Close, nil
	default:
		return nil, noop, crerr.Newf("unsupported content encoding %q", contentEncoding)
	}
}

func drain(body io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
}
