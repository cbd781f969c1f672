package h2

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRequestFromStreamSplitsPathAndQuery(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize, DefaultInitialWindowSize)
	s.SetHeader(StringMethod, "GET")
	s.SetHeader(StringScheme, "https")
	s.SetHeader(StringPath, "/search?q=hello&page=2")
	s.SetHeader(StringAuthority, "example.com")
	s.SetHeader("accept", "*/*")
	s.AddReceivedBody([]byte("body"))

	req := newRequestFromStream(s)

	require.Equal(t, "GET", req.Method)
	require.Equal(t, "/search", req.Path)
	require.Equal(t, "q=hello&page=2", req.Query)
	require.Equal(t, "https", req.Scheme)
	require.Equal(t, "example.com", req.Authority)
	require.Equal(t, "body", string(req.Body))
	require.Equal(t, uint32(1), req.StreamID)

	// pseudo-headers are stripped from the plain header map.
	require.Equal(t, "*/*", req.Headers["accept"])
	_, ok := req.Headers[StringMethod]
	require.False(t, ok)
}

func TestNewRequestFromStreamWithoutQuery(t *testing.T) {
	s := newStream(3, DefaultInitialWindowSize, DefaultInitialWindowSize)
	s.SetHeader(StringMethod, "GET")
	s.SetHeader(StringPath, "/plain")

	req := newRequestFromStream(s)
	require.Equal(t, "/plain", req.Path)
	require.Equal(t, "", req.Query)
}
