package server

import (
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

/*
readUploadBody reads an upload body, undoing Content-Encoding (gzip, deflate,
br). It stops after maxBytes+1 decoded bytes, so a result longer than maxBytes
means the upload is too large.
*/
func readUploadBody(body io.Reader, contentEncoding string, maxBytes int64) (decoded []byte, e *xerr.Error) {
	var reader io.Reader
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	tl.Log(tl.Verbose5, palette.BlueDim, "Read upload body (content encoding is '%s')", encoding)
	switch encoding {
	case "gzip":
		gzipReader, err := gzip.NewReader(body)
		if err != nil {
			return nil, xerr.NewError(err, "Unable to get gzip reader", encoding)
		}
		defer gzipReader.Close()
		reader = gzipReader
	case "deflate":
		flateReader := flate.NewReader(body)
		defer flateReader.Close()
		reader = flateReader
	case "br":
		reader = brotli.NewReader(body) // no need to close brotli reader
	case "", "identity", "none":
		reader = body
	default:
		return nil, xerr.NewError(fmt.Errorf("unsupported Content-Encoding '%s'", contentEncoding), "decode upload body", encoding)
	}

	decoded, err := io.ReadAll(io.LimitReader(reader, maxBytes+1))
	if err != nil {
		return nil, xerr.NewError(err, "Failed to read upload body", encoding)
	}
	tl.Log(tl.Verbose6, palette.GreenDim, "Got upload body length %d (content encoding is '%s')", len(decoded), encoding)

	return decoded, e
}
