// Package dispatch implements the port-shared protocol selector: pick
// HTTP/2 or HTTP/1.1 per connection, by ALPN result under TLS or by
// sniffing the connection preface on plaintext.
package dispatch

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/coreh2/h2"
	"github.com/coreh2/h2/h1"
)

const prefaceLen = len(h2.Preface)

// connTLSer is satisfied by *tls.Conn; kept as an interface so tests
// can fake it.
type connTLSer interface {
	net.Conn
	ConnectionState() tls.ConnectionState
	Handshake() error
}

// Server owns the accept loop and hands each connection to whichever
// engine the negotiated or sniffed protocol calls for.
type Server struct {
	Router      h2.Router
	MaxBodySize uint64
	Logger      *zap.Logger

	// MaxHeadersSize overrides the HTTP/2 engine's advertised
	// SETTINGS_MAX_HEADER_LIST_SIZE and the HTTP/1.1 engine's header
	// section cap (--max-headers-size). Zero keeps each
	// engine's own built-in default.
	MaxHeadersSize uint32
	// IdleTimeout overrides the HTTP/2 engine's idle-keepalive PING
	// cadence base (--timeout). Zero keeps the engine's
	// own built-in default.
	IdleTimeout time.Duration

	mu    sync.Mutex
	conns map[*connHandle]struct{}
}

// connHandle lets Shutdown reach one live connection regardless of
// which engine is serving it: shutdown asks it to drain, done reports
// what its Serve call ultimately returned.
type connHandle struct {
	shutdown func()
	done     chan error
}

func (s *Server) track(h *connHandle) {
	s.mu.Lock()
	if s.conns == nil {
		s.conns = make(map[*connHandle]struct{})
	}
	s.conns[h] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(h *connHandle) {
	s.mu.Lock()
	delete(s.conns, h)
	s.mu.Unlock()
}

// Shutdown signals every connection currently being served to stop
// admitting new work and drain, then waits for each to actually finish,
// aggregating whatever errors they returned. A connection still
// draining when ctx is done is left running and its timeout recorded
// in the aggregate error; Shutdown does not forcibly close it.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	handles := make([]*connHandle, 0, len(s.conns))
	for h := range s.conns {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.shutdown()
	}

	var result *multierror.Error
	for _, h := range handles {
		select {
		case err := <-h.done:
			if err != nil {
				result = multierror.Append(result, err)
			}
		case <-ctx.Done():
			result = multierror.Append(result, ctx.Err())
		}
	}
	return result.ErrorOrNil()
}

// Serve accepts connections from ln until it returns an error.
func (s *Server) Serve(ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.serveConn(nc)
	}
}

func (s *Server) serveConn(nc net.Conn) {
	if cTLS, ok := nc.(connTLSer); ok {
		if err := cTLS.Handshake(); err != nil {
			nc.Close()
			return
		}
		switch cTLS.ConnectionState().NegotiatedProtocol {
		case h2.ALPNProtoH2:
			s.serveH2(nc, nil)
			return
		default:
			s.serveH1(nc, nil)
			return
		}
	}

	s.serveSniffed(nc)
}

// serveSniffed handles the plaintext branch: peek the first
// prefaceLen octets and decide between the HTTP/2 preface and an
// HTTP/1.1 request line, without discarding the peeked bytes.
func (s *Server) serveSniffed(nc net.Conn) {
	br := bufio.NewReaderSize(nc, 4096)

	head, err := br.Peek(prefaceLen)
	if err != nil {
		// Fewer than prefaceLen octets ever arrived (short-lived probe
		// connection, e.g.); hand whatever there is to HTTP/1.1, which
		// tolerates a read error on its first request line.
		s.serveH1(nc, br)
		return
	}

	if string(head) == h2.Preface {
		s.serveH2(nc, br)
		return
	}

	if looksLikeHTTP1(head) {
		s.serveH1(nc, br)
		return
	}

	s.rejectUnknown(nc, br)
}

func (s *Server) serveH2(nc net.Conn, br *bufio.Reader) {
	conn := h2.NewConn(nc, s.Router, s.MaxBodySize, s.Logger)
	if br != nil {
		conn.AdoptReader(br)
	}
	if s.MaxHeadersSize > 0 {
		conn.SetMaxHeaderListSize(s.MaxHeadersSize)
	}
	if s.IdleTimeout > 0 {
		conn.SetPingInterval(s.IdleTimeout, s.IdleTimeout/3)
	}

	h := &connHandle{shutdown: conn.Shutdown, done: make(chan error, 1)}
	s.track(h)
	defer s.untrack(h)

	h.done <- conn.Serve()
}

func (s *Server) serveH1(nc net.Conn, br *bufio.Reader) {
	c := h1.NewConn(nc, br, s.Router, int(s.MaxBodySize))
	if s.MaxHeadersSize > 0 {
		c.SetMaxHeadersSize(int(s.MaxHeadersSize))
	}

	h := &connHandle{shutdown: c.Shutdown, done: make(chan error, 1)}
	s.track(h)
	defer s.untrack(h)

	h.done <- c.Serve()
}

// rejectUnknown answers a byte stream that is neither the HTTP/2
// preface nor a recognizable HTTP/1.1 method with a minimal GOAWAY,
// then closes.
func (s *Server) rejectUnknown(nc net.Conn, br *bufio.Reader) {
	defer nc.Close()

	conn := h2.NewConn(nc, s.Router, s.MaxBodySize, s.Logger)
	conn.RejectWithGoAway(h2.ProtocolError, "unrecognized connection preface")
}

var knownHTTP1Methods = [...]string{
	"GET ", "HEAD ", "POST ", "PUT ", "DELETE ", "CONNECT ",
	"OPTIONS ", "TRACE ", "PATCH ",
}

func looksLikeHTTP1(head []byte) bool {
	for _, m := range knownHTTP1Methods {
		if len(head) >= len(m) && string(head[:len(m)]) == m {
			return true
		}
	}
	return false
}
