// Package httpwire implements the raw HTTP plumbing for protocol tests:
// hand-built requests over a plain TCP connection and tolerant parsing of
// the bytes that come back. Requests in protocol scripts are deliberately
// malformed at times, so none of this can go through net/http.
package httpwire

import (
	"fmt"
	"strconv"
	"strings"
)

// DecodeChunkedBody decodes a chunked transfer encoded body.
//
// Each chunk is a hex size line followed by that many bytes and CRLF; a zero
// size terminates. A missing CRLF after a size line means the body was cut
// off mid-transfer: what was decoded so far is returned. A size line that is
// not valid hex is an error.
func DecodeChunkedBody(body string) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(body) {
		nl := strings.Index(body[i:], "\r\n")
		if nl < 0 {
			break
		}
		sizeLine := body[i : i+nl]
		size, err := strconv.ParseInt(strings.TrimSpace(sizeLine), 16, 64)
		if err != nil {
			return "", fmt.Errorf("invalid chunk size %q", sizeLine)
		}
		if size == 0 {
			break
		}
		i += nl + 2
		end := i + int(size)
		if end > len(body) {
			end = len(body)
		}
		out.WriteString(body[i:end])
		i = end + 2
	}
	return out.String(), nil
}

// SplitResponse cuts a raw HTTP response into its header block and body at
// the first blank line. Without a blank line the whole input is the header
// block.
func SplitResponse(raw string) (head, body string) {
	head, body, _ = strings.Cut(raw, "\r\n\r\n")
	return head, body
}

// DecodeChunkedResponse extracts and decodes the chunked body of a raw
// response that still carries its headers.
func DecodeChunkedResponse(raw string) (string, error) {
	_, body := SplitResponse(raw)
	return DecodeChunkedBody(body)
}
