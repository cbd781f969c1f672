package h2

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/coreh2/h2/internal/jitter"
	"github.com/coreh2/h2/internal/metrics"
)

// basePingInterval and pingJitterSpread bound the idle-keepalive PING
// cadence: a connection that has exchanged no
// frames for roughly this long emits an unsolicited PING so that dead
// peers (and middleboxes that kill quiet connections) are detected
// without the application layer ever seeing a timeout.
const (
	basePingInterval = 30 * time.Second
	pingJitterSpread = 10 * time.Second

	// drainPollInterval bounds how long Serve blocks on a single read
	// while waiting for the last in-flight streams to finish during
	// Shutdown, so it notices ActiveCount reaching zero promptly.
	drainPollInterval = 200 * time.Millisecond
)

// localSettings are the parameter values this server advertises to the
// peer via its own SETTINGS frame.
type localSettings struct {
	headerTableSize      uint32
	maxConcurrentStreams uint32
	initialWindowSize    int32
	maxFrameSize         uint32
	maxHeaderListSize    uint32
}

func defaultLocalSettings() localSettings {
	return localSettings{
		headerTableSize:      DefaultHeaderTableSize,
		maxConcurrentStreams: 100,
		initialWindowSize:    DefaultInitialWindowSize,
		maxFrameSize:         DefaultMaxFrameSize,
		maxHeaderListSize:    1 << 20,
	}
}

// remoteSettings are the parameter values the peer has told us, via
// their SETTINGS frame, govern how we must send.
type remoteSettings struct {
	maxFrameSize      uint32
	initialWindowSize int32
}

func defaultRemoteSettings() remoteSettings {
	return remoteSettings{
		maxFrameSize:      DefaultMaxFrameSize,
		initialWindowSize: DefaultInitialWindowSize,
	}
}

// continuationGuard tracks an in-progress header block, enforcing
// the atomicity rule: no frame of any other type or stream
// may interleave between a HEADERS and its terminating CONTINUATION.
type continuationGuard struct {
	active     bool
	streamID   uint32
	isTrailers bool
}

// Conn is one HTTP/2 connection engine: preface handshake, frame
// dispatch, header reassembly, flow control, and request/response
// emission, all processed by a single goroutine: one logical serial
// processor per connection.
type Conn struct {
	id     string
	nc     net.Conn
	br     *bufio.Reader
	bw     *bufio.Writer
	logger *zap.Logger

	router      Router
	maxBodySize uint64

	local  localSettings
	remote remoteSettings

	streams *streamManager
	flow    *connFlow

	dec *HPACKDecoder
	enc *HPACKEncoder

	tracer trace.Tracer

	cont continuationGuard

	pendingWrites map[uint32]struct{}

	goAwaySent     bool
	goAwayReceived bool

	pingInterval time.Duration

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	shuttingDown bool
}

// NewConn builds a connection engine for an already-accepted socket.
func NewConn(nc net.Conn, router Router, maxBodySize uint64, logger *zap.Logger) *Conn {
	local := defaultLocalSettings()

	c := &Conn{
		id:          uuid.NewString(),
		nc:          nc,
		br:          bufio.NewReaderSize(nc, 64*1024),
		bw:          bufio.NewWriterSize(nc, 64*1024),
		logger:      logger,
		router:      router,
		maxBodySize: maxBodySize,

		local:  local,
		remote: defaultRemoteSettings(),

		streams: newStreamManager(local.initialWindowSize, DefaultInitialWindowSize, local.maxConcurrentStreams),
		flow:    newConnFlow(DefaultInitialWindowSize),

		dec: NewHPACKDecoder(local.headerTableSize),
		enc: NewHPACKEncoder(),

		tracer: trace.NewNoopTracerProvider().Tracer("github.com/coreh2/h2"),

		pendingWrites: make(map[uint32]struct{}),

		pingInterval: time.Duration(jitter.PingInterval(int64(basePingInterval), int64(pingJitterSpread))),

		shutdownCh: make(chan struct{}),
	}

	metrics.ConnectionsTotal.Inc()
	return c
}

// SetMaxHeaderListSize overrides the advertised SETTINGS_MAX_HEADER_LIST_SIZE,
// letting the operator's configured header-size limit (--max-headers-size)
// replace the engine's built-in default before the
// connection's first SETTINGS frame goes out.
func (c *Conn) SetMaxHeaderListSize(n uint32) {
	c.local.maxHeaderListSize = n
}

// SetPingInterval overrides the idle-keepalive PING cadence with an
// operator-configured base (--timeout) and its jitter spread.
func (c *Conn) SetPingInterval(base, spread time.Duration) {
	c.pingInterval = time.Duration(jitter.PingInterval(int64(base), int64(spread)))
}

// AdoptReader replaces the connection's input with br, which may already
// hold bytes peeked off the wire by the port dispatcher (the preface
// included) so the port dispatcher can rehydrate the HTTP/2 engine with
// whatever it already buffered off the wire.
func (c *Conn) AdoptReader(br *bufio.Reader) {
	c.br = br
}

// RejectWithGoAway sends a bare GOAWAY(0, code) and closes, for a byte
// stream the port dispatcher could not classify as either protocol.
// No SETTINGS or preface exchange precedes it since the peer is not
// speaking HTTP/2.
func (c *Conn) RejectWithGoAway(code ErrorCode, debug string) {
	c.sendGoAwayAndClose(code, debug)
	c.nc.Close()
}

// Shutdown asks Serve to stop admitting new streams, send a GOAWAY, and
// return once every stream already in flight finishes. It is safe to
// call from any goroutine and returns immediately; the drain itself
// still happens inside Serve's own loop, preserving the one
// goroutine per connection invariant. Calling it more than once, or
// concurrently, is a no-op past the first call.
func (c *Conn) Shutdown() {
	c.shutdownOnce.Do(func() {
		close(c.shutdownCh)
		_ = c.nc.SetReadDeadline(time.Now())
	})
}

// Serve runs the connection to completion: it writes the local initial
// SETTINGS, validates the client preface, then dispatches frames until
// a connection error or peer disconnect ends the loop.
func (c *Conn) Serve() error {
	defer c.nc.Close()

	if err := c.writeInitialSettings(); err != nil {
		return err
	}

	if err := c.readPreface(); err != nil {
		c.sendGoAwayAndClose(ProtocolError, "bad connection preface")
		return err
	}

	for {
		select {
		case <-c.shutdownCh:
			if !c.shuttingDown {
				c.shuttingDown = true
				c.sendGoAwayAndClose(NoError, "server shutting down")
			}
		default:
		}

		if c.shuttingDown && c.streams.ActiveCount() == 0 {
			return nil
		}

		deadline := c.pingInterval
		if c.shuttingDown && (deadline == 0 || deadline > drainPollInterval) {
			deadline = drainPollInterval
		}
		if deadline > 0 {
			_ = c.nc.SetReadDeadline(time.Now().Add(deadline))
		}

		fh, err := ReadFrameFrom(c.br, c.local.maxFrameSize)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if !c.shuttingDown {
					select {
					case <-c.shutdownCh:
						c.shuttingDown = true
						c.sendGoAwayAndClose(NoError, "server shutting down")
					default:
					}
				}
				if c.shuttingDown {
					continue
				}
				if perr := c.sendKeepalivePing(); perr != nil {
					return perr
				}
				continue
			}
			if h2err, ok := err.(*Error); ok {
				if h2err.IsConnectionError() {
					c.sendGoAwayAndClose(h2err.Code(), h2err.message)
					return err
				}
				// A stream-scoped parse failure (PRIORITY self-dependency,
				// zero WINDOW_UPDATE increment on a stream) resets only
				// that stream; the connection keeps serving.
				if rerr := c.sendRstStream(h2err.stream, h2err.Code()); rerr != nil {
					return rerr
				}
				continue
			}
			return err
		}

		cerr := c.dispatch(fh)
		ReleaseFrameHeader(fh)

		if cerr != nil {
			if cerr.IsConnectionError() {
				c.sendGoAwayAndClose(cerr.Code(), cerr.message)
				return cerr
			}
			if err := c.sendRstStream(cerr.stream, cerr.Code()); err != nil {
				return err
			}
		}

		if c.goAwayReceived && c.streams.ActiveCount() == 0 {
			return nil
		}
		if c.shuttingDown && c.streams.ActiveCount() == 0 {
			return nil
		}
	}
}

func (c *Conn) readPreface() error {
	buf := make([]byte, len(Preface))
	if _, err := readFull(c.br, buf); err != nil {
		return err
	}
	if string(buf) != Preface {
		return NewConnectionError(ProtocolError, "invalid connection preface")
	}
	return nil
}

func readFull(br *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := br.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (c *Conn) writeInitialSettings() error {
	s := acquireSettings()
	s.Add(SettingHeaderTableSize, c.local.headerTableSize)
	s.Add(SettingEnablePush, 0)
	s.Add(SettingMaxConcurrentStreams, c.local.maxConcurrentStreams)
	s.Add(SettingInitialWindowSize, uint32(c.local.initialWindowSize))
	s.Add(SettingMaxFrameSize, c.local.maxFrameSize)
	s.Add(SettingMaxHeaderListSize, c.local.maxHeaderListSize)

	fh := AcquireFrameHeader()
	fh.SetBody(s)
	_, err := fh.WriteTo(c.bw)
	ReleaseFrameHeader(fh)
	if err != nil {
		return err
	}
	return c.bw.Flush()
}

// dispatch runs the frame dispatch loop: the continuation guard first,
// then stream-id invariants, then the type-specific handler.
func (c *Conn) dispatch(fh *FrameHeader) *Error {
	metrics.FramesTotal.WithLabelValues(fh.Type().String()).Inc()

	if c.cont.active {
		if fh.Type() != FrameContinuation || fh.Stream() != c.cont.streamID {
			return NewConnectionError(ProtocolError, "expected CONTINUATION on stream in progress")
		}
	}

	switch fh.Type() {
	case FrameHeaders:
		return c.handleHeaders(fh, fh.Body().(*Headers))
	case FrameContinuation:
		return c.handleContinuation(fh, fh.Body().(*Continuation))
	case FrameData:
		return c.handleData(fh, fh.Body().(*Data))
	case FramePriority:
		return c.handlePriority(fh, fh.Body().(*Priority))
	case FrameResetStream:
		return c.handleRstStream(fh, fh.Body().(*RstStream))
	case FrameSettings:
		return c.handleSettings(fh, fh.Body().(*Settings))
	case FramePushPromise:
		return c.handlePushPromise(fh)
	case FramePing:
		return c.handlePing(fh, fh.Body().(*Ping))
	case FrameGoAway:
		return c.handleGoAway(fh, fh.Body().(*GoAway))
	case FrameWindowUpdate:
		return c.handleWindowUpdate(fh, fh.Body().(*WindowUpdate))
	default:
		return nil // unknown types are accepted and discarded
	}
}

func (c *Conn) streamForFrame(fh *FrameHeader, createIfIdle bool) (*Stream, *Error) {
	id := fh.Stream()
	if id == 0 {
		return nil, NewConnectionError(ProtocolError, "frame requires a non-zero stream id")
	}

	if s := c.streams.Get(id); s != nil {
		return s, nil
	}

	if c.streams.IsClosedID(id) {
		if fh.Type() == FrameResetStream || fh.Type() == FramePriority || fh.Type() == FrameWindowUpdate {
			return nil, nil
		}
		return nil, NewStreamError(id, StreamClosedError, "frame on closed stream")
	}

	if !createIfIdle {
		return nil, NewConnectionError(ProtocolError, "frame on idle stream")
	}

	if c.goAwayReceived || c.shuttingDown {
		return nil, NewStreamError(id, RefusedStreamError, "no new streams after GOAWAY")
	}

	s, err := c.streams.CreateClient(id)
	if err != nil {
		return nil, err
	}
	metrics.StreamsTotal.Inc()
	c.streams.SetLastProcessed(id)
	return s, nil
}

func (c *Conn) handleHeaders(fh *FrameHeader, h *Headers) *Error {
	s, err := c.streamForFrame(fh, true)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}

	isTrailers := s.ReceivedInitialHeaders()
	if isTrailers && s.State() != StreamHalfClosedRemote && s.State() != StreamOpen {
		return NewStreamError(s.ID(), StreamClosedError, "HEADERS on stream that cannot accept trailers")
	}

	if h.HasPriority() {
		depID, excl, weight := h.Priority()
		if depID == s.ID() {
			return NewStreamError(s.ID(), ProtocolError, "HEADERS priority depends on itself")
		}
		s.SetPriority(depID, excl, weight)
	}

	s.ResetHeaderBlock()
	s.AppendHeaderBlock(h.HeaderBlockFragment())

	if s.HeaderBlockSize() > int(c.local.maxHeaderListSize) {
		return NewConnectionError(CompressionError, "header list exceeds MAX_HEADER_LIST_SIZE")
	}

	if !h.EndHeaders() {
		c.cont = continuationGuard{active: true, streamID: s.ID(), isTrailers: isTrailers}
		s.SetReceivedEndStream(h.EndStream())
		return nil
	}

	return c.finishHeaderBlock(s, h.EndStream(), isTrailers)
}

func (c *Conn) handleContinuation(fh *FrameHeader, cont *Continuation) *Error {
	if !c.cont.active {
		return NewConnectionError(ProtocolError, "CONTINUATION without a header block in progress")
	}

	s := c.streams.Get(fh.Stream())
	if s == nil {
		return NewConnectionError(ProtocolError, "CONTINUATION on unknown stream")
	}

	s.AppendHeaderBlock(cont.HeaderBlockFragment())
	if s.HeaderBlockSize() > int(c.local.maxHeaderListSize) {
		return NewConnectionError(CompressionError, "header list exceeds MAX_HEADER_LIST_SIZE")
	}

	if !cont.EndHeaders() {
		return nil
	}

	isTrailers := c.cont.isTrailers
	endStream := s.ReceivedEndStream()
	c.cont = continuationGuard{}

	return c.finishHeaderBlock(s, endStream, isTrailers)
}

func (c *Conn) finishHeaderBlock(s *Stream, endStream, isTrailers bool) *Error {
	block := s.TakeHeaderBlock()

	decErr := c.dec.Decode(block, func(hf *HeaderField) error {
		s.AppendDecodedHeader(string(hf.KeyBytes()), string(hf.ValueBytes()))
		return nil
	})
	if decErr != nil {
		return decErr.(*Error)
	}

	if isTrailers {
		if !endStream {
			return NewStreamError(s.ID(), ProtocolError, "trailer block without END_STREAM")
		}
		if verr := validateTrailerHeaders(s.ID(), s.OrderedHeaders()); verr != nil {
			return verr
		}
		s.SetReceivedTrailers(true)
	} else {
		if verr := validateRequestHeaders(s.ID(), s.OrderedHeaders()); verr != nil {
			return verr
		}
		s.SetReceivedInitialHeaders(true)

		if cl, ok := s.Header(StringContentLength); ok {
			n, perr := parseUintStrict(cl)
			if perr != nil {
				return NewStreamError(s.ID(), ProtocolError, "invalid content-length")
			}
			s.SetExpectedContentLength(n)
		}
	}

	if serr := s.transitionRecv(FrameHeaders, endStream); serr != nil {
		return serr
	}

	if endStream {
		return c.finalizeRequest(s)
	}

	return nil
}

func (c *Conn) handleData(fh *FrameHeader, d *Data) *Error {
	s, err := c.streamForFrame(fh, false)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}

	// The full wire payload debits flow-control windows: application
	// data, the padding octets, and the pad-length octet itself.
	wireSize := int32(d.Len() + d.PadLen())
	if d.Padded() {
		wireSize++
	}
	if wireSize > 0 {
		if s.RecvWindow()-wireSize < 0 {
			return NewStreamError(s.ID(), FlowControlError, "stream receive window exceeded")
		}
		if c.flow.recvWindow-wireSize < 0 {
			return NewConnectionError(FlowControlError, "connection receive window exceeded")
		}
		s.DebitRecvWindow(wireSize)
		c.flow.DebitRecv(wireSize)
	}

	s.AddReceivedBody(d.Data())

	if s.ReceivedBytes() > c.maxBodySize {
		return NewStreamError(s.ID(), RefusedStreamError, "request body exceeds configured max body size")
	}

	if expected, ok := s.ExpectedContentLength(); ok {
		if s.ReceivedBytes() > expected {
			return NewStreamError(s.ID(), ProtocolError, "content-length mismatch: received more than declared")
		}
	}

	endStream := d.EndStream()
	if endStream {
		if expected, ok := s.ExpectedContentLength(); ok && s.ReceivedBytes() != expected {
			return NewStreamError(s.ID(), ProtocolError, "content-length mismatch at end of stream")
		}
	}

	if serr := s.transitionRecv(FrameData, endStream); serr != nil {
		return serr
	}

	if wireSize > 0 {
		if err := c.replenishWindows(s, wireSize); err != nil {
			return errToH2(err)
		}
	}

	if endStream {
		s.SetReceivedEndStream(true)
		return c.finalizeRequest(s)
	}

	return nil
}

// replenishWindows restores the connection window fully after every
// DATA frame, and the stream window likewise, so the peer is never
// blocked indefinitely while the handler consumes the body.
func (c *Conn) replenishWindows(s *Stream, n int32) error {
	c.flow.AddRecv(n)
	if err := c.sendWindowUpdate(0, n); err != nil {
		return err
	}

	s.AddRecvWindow(n)
	return c.sendWindowUpdate(s.ID(), n)
}

func (c *Conn) sendWindowUpdate(streamID uint32, increment int32) error {
	w := acquireWindowUpdate()
	w.SetIncrement(increment)

	fh := AcquireFrameHeader()
	fh.SetStream(streamID)
	fh.SetBody(w)

	_, err := fh.WriteTo(c.bw)
	ReleaseFrameHeader(fh)
	if err != nil {
		return err
	}
	return c.bw.Flush()
}

func (c *Conn) handlePriority(fh *FrameHeader, p *Priority) *Error {
	id := fh.Stream()
	if id == 0 {
		return NewConnectionError(ProtocolError, "PRIORITY requires a non-zero stream id")
	}

	if s := c.streams.Get(id); s != nil {
		s.SetPriority(p.Stream(), p.Exclusive(), p.Weight())
		return nil
	}

	c.streams.SetPendingPriority(id, priority{p.Stream(), p.Exclusive(), p.Weight()})
	return nil
}

func (c *Conn) handleRstStream(fh *FrameHeader, r *RstStream) *Error {
	id := fh.Stream()
	if id == 0 {
		return NewConnectionError(ProtocolError, "RST_STREAM requires a non-zero stream id")
	}

	if s := c.streams.Get(id); s != nil {
		s.SetState(StreamClosed)
		c.streams.Close(id)
		return nil
	}

	c.streams.Close(id)
	return nil
}

func (c *Conn) handleSettings(fh *FrameHeader, s *Settings) *Error {
	if s.Ack() {
		return nil
	}

	var windowDelta int32
	var haveWindowDelta bool

	s.Each(func(id SettingID, value uint32) {
		switch id {
		case SettingHeaderTableSize:
			c.dec.SetSettingsMax(value)
		case SettingMaxFrameSize:
			c.remote.maxFrameSize = value
		case SettingInitialWindowSize:
			haveWindowDelta = true
			windowDelta = int32(value) - c.remote.initialWindowSize
			c.remote.initialWindowSize = int32(value)
		}
	})

	if haveWindowDelta {
		if err := c.streams.ApplyInitialWindowDelta(windowDelta); err != nil {
			return err
		}
	}

	ack := acquireSettings()
	ack.SetAck(true)
	afh := AcquireFrameHeader()
	afh.SetBody(ack)
	_, werr := afh.WriteTo(c.bw)
	ReleaseFrameHeader(afh)
	if werr != nil {
		return NewConnectionError(InternalError, werr.Error())
	}
	if err := errToH2(c.bw.Flush()); err != nil {
		return err
	}

	// A window increase can unblock streams that stalled mid-response,
	// the same way a WINDOW_UPDATE does.
	if haveWindowDelta && windowDelta > 0 {
		c.flushPending()
	}
	return nil
}

func (c *Conn) handlePushPromise(fh *FrameHeader) *Error {
	return NewConnectionError(ProtocolError, "client sent PUSH_PROMISE")
}

func (c *Conn) handlePing(fh *FrameHeader, p *Ping) *Error {
	if p.Ack() {
		return nil
	}

	reply := acquirePing()
	reply.SetAck(true)
	reply.SetData(p.Data())

	rfh := AcquireFrameHeader()
	rfh.SetBody(reply)
	_, err := rfh.WriteTo(c.bw)
	ReleaseFrameHeader(rfh)
	if err != nil {
		return NewConnectionError(InternalError, err.Error())
	}
	return errToH2(c.bw.Flush())
}

func (c *Conn) handleGoAway(fh *FrameHeader, g *GoAway) *Error {
	c.goAwayReceived = true
	return nil
}

func (c *Conn) handleWindowUpdate(fh *FrameHeader, w *WindowUpdate) *Error {
	if verr := validateWindowIncrement(fh.Stream(), w.Increment()); verr != nil {
		return verr
	}

	if fh.Stream() == 0 {
		if err := c.flow.AddSend(w.Increment()); err != nil {
			return err
		}
		c.flushPending()
		return nil
	}

	s := c.streams.Get(fh.Stream())
	if s == nil {
		return nil
	}
	if err := applyStreamSend(s, w.Increment()); err != nil {
		return err
	}
	c.flushPending()
	return nil
}

// flushPending retries every stream with buffered outbound data still
// blocked on flow control, in ascending stream-id order, so streams
// are revisited in the order they were created. A stream whose
// response it finishes sending is closed, as in sendResponse.
func (c *Conn) flushPending() {
	c.streams.EachOrdered(func(s *Stream) {
		if !s.OutboundPending() {
			delete(c.pendingWrites, s.ID())
			return
		}
		if err := drainStream(c.bw, c.remote.maxFrameSize, c.flow, s); err == nil && !s.OutboundPending() {
			delete(c.pendingWrites, s.ID())
			c.streams.Close(s.ID())
		}
	})
}

func (c *Conn) finalizeRequest(s *Stream) *Error {
	if !s.ReceivedInitialHeaders() {
		return nil
	}

	// END_STREAM dispatches the request whether it arrived on a DATA
	// frame or a trailing HEADERS block; the trailer fields themselves
	// were already validated in finishHeaderBlock and are not forwarded
	// to the router beyond that.
	_, span := c.tracer.Start(context.Background(), "h2.stream")
	defer span.End()

	req := newRequestFromStream(s)
	resp := c.router.Route(req)
	if resp == nil {
		resp = NewResponse(500)
	}

	return c.sendResponse(s, resp)
}

func (c *Conn) sendResponse(s *Stream, resp *Response) *Error {
	var block []byte
	block = c.enc.EncodeField(block, StringStatus, resp.statusString())
	for name, value := range resp.Headers {
		if stripResponseHeader(name) {
			continue
		}
		block = c.enc.EncodeField(block, name, value)
	}

	h := acquireHeaders()
	h.SetHeaderBlockFragment(block)
	h.SetEndHeaders(true)
	h.SetEndStream(len(resp.Body) == 0)

	fh := AcquireFrameHeader()
	fh.SetStream(s.ID())
	fh.SetBody(h)
	_, err := fh.WriteTo(c.bw)
	ReleaseFrameHeader(fh)
	if err != nil {
		return NewConnectionError(InternalError, err.Error())
	}
	if err := c.bw.Flush(); err != nil {
		return NewConnectionError(InternalError, err.Error())
	}

	s.transitionSend(FrameHeaders, len(resp.Body) == 0)

	if len(resp.Body) == 0 {
		s.SetSentEndStream(true)
		c.streams.Close(s.ID())
		return nil
	}

	s.SetOutbound(resp.Body, true)
	if err := drainStream(c.bw, c.remote.maxFrameSize, c.flow, s); err != nil {
		return NewConnectionError(InternalError, err.Error())
	}
	if s.OutboundPending() {
		c.pendingWrites[s.ID()] = struct{}{}
	} else {
		c.streams.Close(s.ID())
	}

	return nil
}

// sendKeepalivePing emits an unsolicited PING after basePingInterval
// (plus jitter) of connection idleness.
func (c *Conn) sendKeepalivePing() error {
	p := acquirePing()
	p.SetData([]byte("h2keepal"))

	fh := AcquireFrameHeader()
	fh.SetBody(p)
	_, err := fh.WriteTo(c.bw)
	ReleaseFrameHeader(fh)
	if err != nil {
		return err
	}
	return c.bw.Flush()
}

func (c *Conn) sendRstStream(streamID uint32, code ErrorCode) error {
	if streamID == 0 {
		return nil
	}

	r := acquireRstStream()
	r.SetCode(code)

	fh := AcquireFrameHeader()
	fh.SetStream(streamID)
	fh.SetBody(r)
	_, err := fh.WriteTo(c.bw)
	ReleaseFrameHeader(fh)
	if err != nil {
		return err
	}

	c.streams.Close(streamID)
	return c.bw.Flush()
}

func (c *Conn) sendGoAwayAndClose(code ErrorCode, debug string) {
	c.goAwaySent = true
	metrics.GoAwaySentTotal.WithLabelValues(code.String()).Inc()

	g := acquireGoAway()
	g.SetLastStream(c.streams.LastProcessed())
	g.SetCode(code)
	g.SetDebugData([]byte(debug))

	fh := AcquireFrameHeader()
	fh.SetBody(g)
	_, _ = fh.WriteTo(c.bw)
	ReleaseFrameHeader(fh)
	_ = c.bw.Flush()
}

func errToH2(err error) *Error {
	if err == nil {
		return nil
	}
	return NewConnectionError(InternalError, err.Error())
}

func parseUintStrict(s string) (uint64, error) {
	var n uint64
	if len(s) == 0 {
		return 0, NewConnectionError(ProtocolError, "empty integer")
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, NewConnectionError(ProtocolError, "invalid integer")
		}
		n = n*10 + uint64(c-'0')
	}
	return n, nil
}
