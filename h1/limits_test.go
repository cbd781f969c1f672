package h1

import (
	"bufio"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func TestValidateRequestHeadRejectsUnknownMethod(t *testing.T) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.Header.SetMethod("FROB")
	req.SetRequestURI("/")

	require.ErrorIs(t, validateRequestHead(&req.Header, 0), errUnknownMethod)
}

func TestValidateRequestHeadRejectsOverlongTarget(t *testing.T) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.Header.SetMethod("GET")
	req.Header.SetRequestURI("/" + strings.Repeat("a", maxRequestTargetSize))

	require.ErrorIs(t, validateRequestHead(&req.Header, 0), errTargetTooLong)
}

func TestValidateRequestHeadRejectsTooManyHeaders(t *testing.T) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.Header.SetMethod("GET")
	req.SetRequestURI("/")
	for i := 0; i < maxHeaderCount+1; i++ {
		req.Header.Set("x-h-"+strconv.Itoa(i), "v")
	}

	require.ErrorIs(t, validateRequestHead(&req.Header, 0), errTooManyHeaders)
}

func TestValidateRequestHeadRejectsOverlongHeaderLine(t *testing.T) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.Header.SetMethod("GET")
	req.SetRequestURI("/")
	req.Header.Set("x-big", strings.Repeat("v", maxHeaderLineSize))

	require.ErrorIs(t, validateRequestHead(&req.Header, 0), errHeaderLineTooLong)
}

func TestValidateRequestHeadRejectsOversizedHeaderSection(t *testing.T) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.Header.SetMethod("GET")
	req.SetRequestURI("/")
	for i := 0; i < 4; i++ {
		req.Header.Set("x-h-"+strconv.Itoa(i), strings.Repeat("v", 400))
	}

	require.ErrorIs(t, validateRequestHead(&req.Header, 1024), errHeadersTooLarge)
}

func TestValidHTTPVersion(t *testing.T) {
	require.True(t, validHTTPVersion([]byte("HTTP/1.1")))
	require.True(t, validHTTPVersion([]byte("HTTP/2.0")))
	require.False(t, validHTTPVersion([]byte("HTP/1.1")))
	require.False(t, validHTTPVersion([]byte("HTTP/11")))
	require.False(t, validHTTPVersion([]byte("HTTP/1.1 ")))
}

func chunkedReader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestReadChunkedBodyReassemblesChunks(t *testing.T) {
	body, err := readChunkedBody(chunkedReader("5\r\nhello\r\n3;ext=1\r\nabc\r\n0\r\nx-trailer: v\r\n\r\n"), 0)
	require.NoError(t, err)
	require.Equal(t, "helloabc", string(body))
}

func TestReadChunkedBodyRejectsOversizedChunk(t *testing.T) {
	// 0x10001 = 65537, one past the cap.
	_, err := readChunkedBody(chunkedReader("10001\r\n"), 0)
	require.ErrorIs(t, err, errChunkTooLarge)
}

func TestReadChunkedBodyRejectsMalformedSize(t *testing.T) {
	_, err := readChunkedBody(chunkedReader("zz\r\nhello\r\n0\r\n\r\n"), 0)
	require.ErrorIs(t, err, errBadChunkSize)
}

func TestReadChunkedBodyRejectsTooManyChunks(t *testing.T) {
	var b strings.Builder
	for i := 0; i < maxChunkCount+1; i++ {
		b.WriteString("1\r\na\r\n")
	}
	b.WriteString("0\r\n\r\n")

	_, err := readChunkedBody(chunkedReader(b.String()), 0)
	require.ErrorIs(t, err, errTooManyChunks)
}

func TestReadChunkedBodyRespectsMaxBodySize(t *testing.T) {
	_, err := readChunkedBody(chunkedReader("5\r\nhello\r\n5\r\nworld\r\n0\r\n\r\n"), 8)
	require.ErrorIs(t, err, errBodyTooLarge)
}
