package h1

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"

	"github.com/valyala/fasthttp"
)

// Request parsing limits. fasthttp bounds the header
// block only indirectly (through its buffered reader's capacity), so
// the request head is re-checked against these explicitly after
// parsing, and chunked bodies are decoded here rather than by fasthttp
// so the per-chunk caps can be enforced.
const (
	maxRequestTargetSize = 8 << 10
	maxHeaderLineSize    = 8 << 10
	maxHeaderSectionSize = 16 << 10
	maxHeaderCount       = 100
	maxChunkSize         = 64 << 10
	maxChunkCount        = 1000
)

var knownMethods = map[string]struct{}{
	"GET": {}, "HEAD": {}, "POST": {}, "PUT": {}, "DELETE": {},
	"CONNECT": {}, "OPTIONS": {}, "TRACE": {}, "PATCH": {},
}

var (
	errUnknownMethod     = errors.New("unknown request method")
	errTargetTooLong     = errors.New("request target too long")
	errBadVersion        = errors.New("malformed HTTP version")
	errHeaderLineTooLong = errors.New("header line too long")
	errHeadersTooLarge   = errors.New("header section too large")
	errTooManyHeaders    = errors.New("too many headers")
	errBadChunkSize      = errors.New("malformed chunk size")
	errChunkTooLarge     = errors.New("chunk too large")
	errTooManyChunks     = errors.New("too many chunks")
	errBodyTooLarge      = errors.New("request body too large")
)

// validateRequestHead applies the request-line and header limits to an
// already-parsed request head. maxSection bounds the aggregate header
// block; zero means the built-in default.
func validateRequestHead(h *fasthttp.RequestHeader, maxSection int) error {
	if maxSection <= 0 {
		maxSection = maxHeaderSectionSize
	}

	if _, ok := knownMethods[string(h.Method())]; !ok {
		return errUnknownMethod
	}
	if len(h.RequestURI()) > maxRequestTargetSize {
		return errTargetTooLong
	}
	if !validHTTPVersion(h.Protocol()) {
		return errBadVersion
	}

	var (
		count int
		total int
		verr  error
	)
	h.VisitAll(func(k, v []byte) {
		if verr != nil {
			return
		}
		count++
		if count > maxHeaderCount {
			verr = errTooManyHeaders
			return
		}
		if len(k)+len(v)+2 > maxHeaderLineSize {
			verr = errHeaderLineTooLong
			return
		}
		total += len(k) + len(v) + 4 // ": " and CRLF
		if total > maxSection {
			verr = errHeadersTooLarge
		}
	})
	return verr
}

// validHTTPVersion matches HTTP/x.y with single digits.
func validHTTPVersion(p []byte) bool {
	return len(p) == 8 &&
		string(p[:5]) == "HTTP/" &&
		p[5] >= '0' && p[5] <= '9' &&
		p[6] == '.' &&
		p[7] >= '0' && p[7] <= '9'
}

// readChunkedBody decodes a chunked transfer coding off br: hex chunk
// size (extensions after ';' ignored), chunk octets, CRLF, terminated
// by a zero-size chunk and an optional trailer section. maxBodySize
// bounds the reassembled body; zero means unbounded.
func readChunkedBody(br *bufio.Reader, maxBodySize int) ([]byte, error) {
	var body []byte
	chunks := 0

	for {
		line, err := readChunkLine(br)
		if err != nil {
			return nil, err
		}
		if i := bytes.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		size, err := strconv.ParseUint(string(bytes.TrimSpace(line)), 16, 64)
		if err != nil {
			return nil, errBadChunkSize
		}
		if size > maxChunkSize {
			return nil, errChunkTooLarge
		}
		if size == 0 {
			break
		}

		chunks++
		if chunks > maxChunkCount {
			return nil, errTooManyChunks
		}
		if maxBodySize > 0 && len(body)+int(size) > maxBodySize {
			return nil, errBodyTooLarge
		}

		buf := make([]byte, size)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, err
		}
		body = append(body, buf...)

		if err := expectCRLF(br); err != nil {
			return nil, err
		}
	}

	// trailer section: header lines until the terminating empty line.
	for {
		line, err := readChunkLine(br)
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			break
		}
		if len(line) > maxHeaderLineSize {
			return nil, errHeaderLineTooLong
		}
	}

	return body, nil
}

func readChunkLine(br *bufio.Reader) ([]byte, error) {
	line, err := br.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	if len(line) > maxHeaderLineSize {
		return nil, errHeaderLineTooLong
	}
	line = bytes.TrimRight(line, "\r\n")
	return line, nil
}

func expectCRLF(br *bufio.Reader) error {
	var crlf [2]byte
	if _, err := io.ReadFull(br, crlf[:]); err != nil {
		return err
	}
	if crlf[0] != '\r' || crlf[1] != '\n' {
		return errBadChunkSize
	}
	return nil
}
