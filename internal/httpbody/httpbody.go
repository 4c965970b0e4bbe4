// Package httpbody reads platform responses that may be gzip or deflate encoded.
//
// Platform requests advertise Accept-Encoding explicitly, which turns off the
// transparent decompression of net/http, so every response body goes through Read.
package httpbody

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// AcceptEncoding is the value sent in the Accept-Encoding header of platform requests.
const AcceptEncoding = "gzip,deflate"

// Read reads the whole response body and decodes it according to Content-Encoding.
func Read(resp *http.Response) ([]byte, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		return decodeGzip(raw)
	case "deflate":
		return decodeDeflate(raw)
	default:
		return raw, nil
	}
}

func decodeGzip(raw []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open gzip body: %w", err)
	}
	defer reader.Close() //nolint:errcheck

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decode gzip body: %w", err)
	}
	return body, nil
}

// Servers disagree on whether deflate means zlib-wrapped or raw deflate data.
func decodeDeflate(raw []byte) ([]byte, error) {
	if reader, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
		defer reader.Close() //nolint:errcheck
		if body, err := io.ReadAll(reader); err == nil {
			return body, nil
		}
	}

	reader := flate.NewReader(bytes.NewReader(raw))
	defer reader.Close() //nolint:errcheck

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decode deflate body: %w", err)
	}
	return body, nil
}
