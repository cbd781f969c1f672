// Package h1 serves the HTTP/1.1 side of a port shared with HTTP/2:
// fasthttp parses the request head and content-length bodies, while
// chunked bodies and the request-line/header limits are handled here
// so the configured caps are enforced exactly; everything is bridged
// into the same Router contract the HTTP/2 engine uses.
package h1

import (
	"bufio"
	"net"
	"sync"
	"sync/atomic"

	"github.com/valyala/fasthttp"

	"github.com/coreh2/h2"
)

// Conn serves one HTTP/1.1 connection, keeping it alive across requests
// until the client closes it or sends a Connection: close.
type Conn struct {
	nc             net.Conn
	br             *bufio.Reader
	bw             *bufio.Writer
	router         h2.Router
	maxBodySize    int
	maxHeadersSize int

	shutdownOnce sync.Once
	shuttingDown atomic.Bool
}

// NewConn wraps an accepted socket, optionally reusing bytes already
// peeked off the wire by the dispatcher (br may be nil). The reader is
// sized to hold a maximal header section, since fasthttp's head parser
// fails once a header block outgrows its reader's capacity.
func NewConn(nc net.Conn, br *bufio.Reader, router h2.Router, maxBodySize int) *Conn {
	if br == nil {
		br = bufio.NewReaderSize(nc, maxHeaderSectionSize)
	} else {
		br = bufio.NewReaderSize(br, maxHeaderSectionSize)
	}
	return &Conn{
		nc:             nc,
		br:             br,
		bw:             bufio.NewWriterSize(nc, 4096),
		router:         router,
		maxBodySize:    maxBodySize,
		maxHeadersSize: maxHeaderSectionSize,
	}
}

// SetMaxHeadersSize bounds the aggregate request header section to n
// bytes, replacing the built-in default. The buffered reader is resized
// to match, so fasthttp's own head parsing fails early on a header
// block that could never satisfy the cap.
func (c *Conn) SetMaxHeadersSize(n int) {
	c.maxHeadersSize = n
	c.br = bufio.NewReaderSize(c.br, n)
}

// Shutdown closes the socket at once, without waiting for a request
// that is currently being read or answered. HTTP/1.1 has no
// GOAWAY-equivalent in-flight signal, so closing the socket is the only
// way to interrupt a blocked request read. A Serve blocked reading the
// next request head recognizes its own close and returns a nil error
// rather than a "closed connection" one; a request cut off later in its
// body or its response ends Serve with that I/O error.
func (c *Conn) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.shuttingDown.Store(true)
		c.nc.Close()
	})
}

// Serve reads and answers requests until the connection ends.
func (c *Conn) Serve() error {
	defer c.nc.Close()

	for {
		req := fasthttp.AcquireRequest()

		if err := req.Header.Read(c.br); err != nil {
			fasthttp.ReleaseRequest(req)
			if c.shuttingDown.Load() {
				return nil
			}
			return err
		}

		if err := validateRequestHead(&req.Header, c.maxHeadersSize); err != nil {
			fasthttp.ReleaseRequest(req)
			return c.reject(err)
		}

		if err := c.readBody(req); err != nil {
			fasthttp.ReleaseRequest(req)
			return c.reject(err)
		}

		h2req := requestFromFastHTTP(req)
		fasthttp.ReleaseRequest(req)

		resp := c.router.Route(h2req)
		if resp == nil {
			resp = h2.NewResponse(500)
		}

		keepAlive := !shouldClose(h2req)
		if err := writeResponse(c.bw, resp, keepAlive); err != nil {
			return err
		}
		if err := c.bw.Flush(); err != nil {
			return err
		}

		if !keepAlive {
			return nil
		}
	}
}

// readBody fills the request's body: chunked transfer coding goes
// through the capped decoder in limits.go, everything else through
// fasthttp's content-length reader bounded by the configured max.
func (c *Conn) readBody(req *fasthttp.Request) error {
	if req.Header.ContentLength() == -1 {
		body, err := readChunkedBody(c.br, c.maxBodySize)
		if err != nil {
			return err
		}
		req.SetBodyRaw(body)
		return nil
	}
	return req.ContinueReadBody(c.br, c.maxBodySize)
}

// reject answers a request that failed a parse limit with a 400 and
// closes the connection, returning the original error.
func (c *Conn) reject(cause error) error {
	resp := h2.NewResponse(400)
	resp.SetHeader("content-type", "text/plain; charset=utf-8")
	resp.SetBody([]byte(cause.Error() + "\n"))

	if err := writeResponse(c.bw, resp, false); err != nil {
		return err
	}
	if err := c.bw.Flush(); err != nil {
		return err
	}
	return cause
}
