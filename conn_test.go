package h2

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testRouter serves the handful of routes the connection-engine tests
// exercise: a bodyless GET, an echoing POST, and a catch-all 404.
var testRouter = RouterFunc(func(req *Request) *Response {
	switch {
	case req.Method == "GET" && req.Path == "/":
		return NewResponse(200)
	case req.Method == "POST" && req.Path == "/echo":
		resp := NewResponse(200)
		resp.SetBody(req.Body)
		return resp
	default:
		return NewResponse(404)
	}
})

// testHarness drives a Conn over an in-memory net.Pipe, acting as the
// HTTP/2 client side of the connection under test.
type testHarness struct {
	t    *testing.T
	br   *bufio.Reader
	bw   *bufio.Writer
	enc  *HPACKEncoder
	dec  *HPACKDecoder
	conn net.Conn
	srv  *Conn
	done chan struct{}
}

func newTestHarness(t *testing.T, router Router) *testHarness {
	return newTestHarnessWithMaxBody(t, router, 1<<20)
}

func newTestHarnessWithMaxBody(t *testing.T, router Router, maxBodySize uint64) *testHarness {
	t.Helper()

	clientSide, serverSide := net.Pipe()
	deadline := time.Now().Add(5 * time.Second)
	require.NoError(t, clientSide.SetDeadline(deadline))
	require.NoError(t, serverSide.SetDeadline(deadline))

	c := NewConn(serverSide, router, maxBodySize, zap.NewNop())

	done := make(chan struct{})
	go func() {
		c.Serve()
		close(done)
	}()
	t.Cleanup(func() {
		clientSide.Close()
		<-done
	})

	return &testHarness{
		t:    t,
		br:   bufio.NewReader(clientSide),
		bw:   bufio.NewWriter(clientSide),
		enc:  NewHPACKEncoder(),
		dec:  NewHPACKDecoder(DefaultHeaderTableSize),
		conn: clientSide,
		srv:  c,
		done: done,
	}
}

func (h *testHarness) sendFrame(fh *FrameHeader) {
	h.t.Helper()
	_, err := fh.WriteTo(h.bw)
	require.NoError(h.t, err)
	require.NoError(h.t, h.bw.Flush())
}

func (h *testHarness) readFrame() *FrameHeader {
	h.t.Helper()
	fh, err := ReadFrameFrom(h.br, DefaultMaxFrameSize)
	require.NoError(h.t, err)
	return fh
}

// handshake performs the preface/SETTINGS exchange:
// the server's initial SETTINGS must be readable before the client
// sends anything, since net.Pipe is unbuffered and synchronous in both
// directions.
func (h *testHarness) handshake() {
	h.t.Helper()

	serverSettings := h.readFrame()
	require.Equal(h.t, FrameSettings, serverSettings.Type())
	settingsBody := serverSettings.Body().(*Settings)
	require.False(h.t, settingsBody.Ack())
	ReleaseFrameHeader(serverSettings)

	_, err := h.bw.WriteString(Preface)
	require.NoError(h.t, err)

	empty := acquireSettings()
	fh := AcquireFrameHeader()
	fh.SetBody(empty)
	h.sendFrame(fh)
	ReleaseFrameHeader(fh)

	ack := h.readFrame()
	require.Equal(h.t, FrameSettings, ack.Type())
	require.True(h.t, ack.Body().(*Settings).Ack())
	ReleaseFrameHeader(ack)
}

func (h *testHarness) sendSettings(entries map[SettingID]uint32) {
	h.t.Helper()
	s := acquireSettings()
	for id, v := range entries {
		s.Add(id, v)
	}
	fh := AcquireFrameHeader()
	fh.SetBody(s)
	h.sendFrame(fh)
	ReleaseFrameHeader(fh)

	ack := h.readFrame()
	require.Equal(h.t, FrameSettings, ack.Type())
	require.True(h.t, ack.Body().(*Settings).Ack())
	ReleaseFrameHeader(ack)
}

func (h *testHarness) encodeRequestHeaders(method, scheme, path, authority string, extra map[string]string) []byte {
	var block []byte
	block = h.enc.EncodeField(block, StringMethod, method)
	block = h.enc.EncodeField(block, StringScheme, scheme)
	block = h.enc.EncodeField(block, StringPath, path)
	block = h.enc.EncodeField(block, StringAuthority, authority)
	for k, v := range extra {
		block = h.enc.EncodeField(block, k, v)
	}
	return block
}

func (h *testHarness) sendHeaders(streamID uint32, block []byte, endStream bool) {
	h.t.Helper()
	hf := acquireHeaders()
	hf.SetHeaderBlockFragment(block)
	hf.SetEndHeaders(true)
	hf.SetEndStream(endStream)

	fh := AcquireFrameHeader()
	fh.SetStream(streamID)
	fh.SetBody(hf)
	h.sendFrame(fh)
	ReleaseFrameHeader(fh)
}

// sendTrailerHeaders sends a trailing HEADERS block: no pseudo-headers,
// always carrying END_STREAM.
func (h *testHarness) sendTrailerHeaders(streamID uint32, fields map[string]string) {
	h.t.Helper()
	var block []byte
	for k, v := range fields {
		block = h.enc.EncodeField(block, k, v)
	}
	h.sendHeaders(streamID, block, true)
}

func (h *testHarness) sendData(streamID uint32, data []byte, endStream bool) {
	h.t.Helper()
	d := acquireData()
	d.SetData(data)
	d.SetEndStream(endStream)

	fh := AcquireFrameHeader()
	fh.SetStream(streamID)
	fh.SetBody(d)
	h.sendFrame(fh)
	ReleaseFrameHeader(fh)
}

func (h *testHarness) sendWindowUpdate(streamID uint32, increment int32) {
	h.t.Helper()
	w := acquireWindowUpdate()
	w.SetIncrement(increment)

	fh := AcquireFrameHeader()
	fh.SetStream(streamID)
	fh.SetBody(w)
	h.sendFrame(fh)
	ReleaseFrameHeader(fh)
}

// expectWindowUpdates reads the replenishment the server sends after
// accepting an n-byte DATA frame: a connection-level WINDOW_UPDATE
// followed by one for the stream.
func (h *testHarness) expectWindowUpdates(streamID uint32, n int32) {
	h.t.Helper()
	for _, id := range []uint32{0, streamID} {
		fh := h.readFrame()
		require.Equal(h.t, FrameWindowUpdate, fh.Type())
		require.Equal(h.t, id, fh.Stream())
		require.Equal(h.t, n, fh.Body().(*WindowUpdate).Increment())
		ReleaseFrameHeader(fh)
	}
}

func (h *testHarness) decodeHeaders(block []byte) map[string]string {
	h.t.Helper()
	out := map[string]string{}
	err := h.dec.Decode(block, func(hf *HeaderField) error {
		out[string(hf.KeyBytes())] = string(hf.ValueBytes())
		return nil
	})
	require.NoError(h.t, err)
	return out
}

func TestConnHandshakeAndGet(t *testing.T) {
	h := newTestHarness(t, testRouter)
	h.handshake()

	block := h.encodeRequestHeaders("GET", "http", "/", "example.com", nil)
	h.sendHeaders(1, block, true)

	resp := h.readFrame()
	require.Equal(t, FrameHeaders, resp.Type())
	require.Equal(t, uint32(1), resp.Stream())
	hf := resp.Body().(*Headers)
	require.True(t, hf.EndStream())

	got := h.decodeHeaders(hf.HeaderBlockFragment())
	require.Equal(t, "200", got[StringStatus])
	ReleaseFrameHeader(resp)
}

func TestConnEchoPost(t *testing.T) {
	h := newTestHarness(t, testRouter)
	h.handshake()

	block := h.encodeRequestHeaders("POST", "http", "/echo", "example.com", map[string]string{
		StringContentLength: "5",
	})
	h.sendHeaders(1, block, false)
	h.sendData(1, []byte("hello"), true)
	h.expectWindowUpdates(1, 5)

	headersResp := h.readFrame()
	require.Equal(t, FrameHeaders, headersResp.Type())
	hf := headersResp.Body().(*Headers)
	require.False(t, hf.EndStream())
	got := h.decodeHeaders(hf.HeaderBlockFragment())
	require.Equal(t, "200", got[StringStatus])
	ReleaseFrameHeader(headersResp)

	dataResp := h.readFrame()
	require.Equal(t, FrameData, dataResp.Type())
	df := dataResp.Body().(*Data)
	require.Equal(t, "hello", string(df.Data()))
	require.True(t, df.EndStream())
	ReleaseFrameHeader(dataResp)
}

func TestConnContinuationAtomicityViolation(t *testing.T) {
	h := newTestHarness(t, testRouter)
	h.handshake()

	hf := acquireHeaders()
	hf.SetHeaderBlockFragment(h.encodeRequestHeaders("GET", "http", "/", "example.com", nil))
	hf.SetEndHeaders(false) // leaves the continuation guard armed
	hf.SetEndStream(true)

	fh := AcquireFrameHeader()
	fh.SetStream(1)
	fh.SetBody(hf)
	h.sendFrame(fh)
	ReleaseFrameHeader(fh)

	// A DATA frame while a header block is still in progress violates
	// the CONTINUATION atomicity rule and must be
	// rejected as a connection error, tearing the connection down.
	h.sendData(1, []byte("x"), true)

	goAway := h.readFrame()
	require.Equal(t, FrameGoAway, goAway.Type())
	require.Equal(t, ProtocolError, goAway.Body().(*GoAway).Code())
	ReleaseFrameHeader(goAway)
}

func TestConnContentLengthMismatchKeepsConnectionOpen(t *testing.T) {
	h := newTestHarness(t, testRouter)
	h.handshake()

	block := h.encodeRequestHeaders("POST", "http", "/echo", "example.com", map[string]string{
		StringContentLength: "10",
	})
	h.sendHeaders(1, block, false)
	h.sendData(1, []byte("hi"), true)

	rst := h.readFrame()
	require.Equal(t, FrameResetStream, rst.Type())
	require.Equal(t, uint32(1), rst.Stream())
	require.Equal(t, ProtocolError, rst.Body().(*RstStream).Code())
	ReleaseFrameHeader(rst)

	// the connection itself must still be alive: a PING now gets a
	// PING ack rather than silence or a GOAWAY.
	p := acquirePing()
	p.SetData([]byte("liveness"))
	pfh := AcquireFrameHeader()
	pfh.SetBody(p)
	h.sendFrame(pfh)
	ReleaseFrameHeader(pfh)

	pingAck := h.readFrame()
	require.Equal(t, FramePing, pingAck.Type())
	require.True(t, pingAck.Body().(*Ping).Ack())
	ReleaseFrameHeader(pingAck)
}

func TestConnFlowControlInterleave(t *testing.T) {
	h := newTestHarness(t, testRouter)
	h.handshake()

	// shrink the peer's (server's outbound) initial window to 1 byte
	// before any stream exists, so the new stream created below starts
	// with a 1-byte send window on the server side.
	h.sendSettings(map[SettingID]uint32{SettingInitialWindowSize: 1})

	block := h.encodeRequestHeaders("POST", "http", "/echo", "example.com", map[string]string{
		StringContentLength: "3",
	})
	h.sendHeaders(1, block, false)
	h.sendData(1, []byte("abc"), true)
	h.expectWindowUpdates(1, 3)

	headersResp := h.readFrame()
	require.Equal(t, FrameHeaders, headersResp.Type())
	require.False(t, headersResp.Body().(*Headers).EndStream())
	ReleaseFrameHeader(headersResp)

	firstByte := h.readFrame()
	require.Equal(t, FrameData, firstByte.Type())
	df := firstByte.Body().(*Data)
	require.Equal(t, "a", string(df.Data()))
	require.False(t, df.EndStream())
	ReleaseFrameHeader(firstByte)

	h.sendWindowUpdate(1, 1)
	secondByte := h.readFrame()
	df = secondByte.Body().(*Data)
	require.Equal(t, "b", string(df.Data()))
	require.False(t, df.EndStream())
	ReleaseFrameHeader(secondByte)

	h.sendWindowUpdate(1, 1)
	thirdByte := h.readFrame()
	df = thirdByte.Body().(*Data)
	require.Equal(t, "c", string(df.Data()))
	require.True(t, df.EndStream())
	ReleaseFrameHeader(thirdByte)
}

// TestConnTrailerHeadersDispatchesResponse covers a request whose
// END_STREAM arrives on a trailing HEADERS block rather than on DATA:
// the router must still be invoked and a response actually written,
// not silently dropped.
func TestConnTrailerHeadersDispatchesResponse(t *testing.T) {
	h := newTestHarness(t, testRouter)
	h.handshake()

	block := h.encodeRequestHeaders("POST", "http", "/echo", "example.com", nil)
	h.sendHeaders(1, block, false)
	h.sendData(1, []byte("hello"), false)
	h.expectWindowUpdates(1, 5)
	h.sendTrailerHeaders(1, map[string]string{"x-checksum": "abc"})

	headersResp := h.readFrame()
	require.Equal(t, FrameHeaders, headersResp.Type())
	require.Equal(t, uint32(1), headersResp.Stream())
	hf := headersResp.Body().(*Headers)
	require.False(t, hf.EndStream())
	got := h.decodeHeaders(hf.HeaderBlockFragment())
	require.Equal(t, "200", got[StringStatus])
	ReleaseFrameHeader(headersResp)

	dataResp := h.readFrame()
	require.Equal(t, FrameData, dataResp.Type())
	df := dataResp.Body().(*Data)
	require.Equal(t, "hello", string(df.Data()))
	require.True(t, df.EndStream())
	ReleaseFrameHeader(dataResp)
}

// TestConnBodyExceedsMaxSizeRefusesStream covers a body that never
// declares (or lies about) content-length but still grows past the
// configured max body size: the stream must be refused rather than
// accumulated without bound.
func TestConnBodyExceedsMaxSizeRefusesStream(t *testing.T) {
	h := newTestHarnessWithMaxBody(t, testRouter, 4)
	h.handshake()

	block := h.encodeRequestHeaders("POST", "http", "/echo", "example.com", nil)
	h.sendHeaders(1, block, false)
	h.sendData(1, []byte("hello"), true)

	rst := h.readFrame()
	require.Equal(t, FrameResetStream, rst.Type())
	require.Equal(t, uint32(1), rst.Stream())
	require.Equal(t, RefusedStreamError, rst.Body().(*RstStream).Code())
	ReleaseFrameHeader(rst)
}

// TestConnShutdownDrainsInFlightStreamBeforeClosing covers graceful
// shutdown: a stream opened before Shutdown is called must still get
// its response and its END_STREAM before the connection goes away, and
// a stream opened after the GOAWAY must be refused rather than served.
func TestConnShutdownDrainsInFlightStreamBeforeClosing(t *testing.T) {
	h := newTestHarness(t, testRouter)
	h.handshake()

	block := h.encodeRequestHeaders("POST", "http", "/echo", "example.com", map[string]string{
		StringContentLength: "5",
	})
	h.sendHeaders(1, block, false)

	h.srv.Shutdown()

	goAway := h.readFrame()
	require.Equal(t, FrameGoAway, goAway.Type())
	require.Equal(t, NoError, goAway.Body().(*GoAway).Code())
	ReleaseFrameHeader(goAway)

	// A brand new stream arriving after the GOAWAY must be refused. It is
	// sent while stream 1 is still open, because Serve returns and closes
	// the connection as soon as its last in-flight stream completes.
	block2 := h.encodeRequestHeaders("GET", "http", "/", "example.com", nil)
	h.sendHeaders(3, block2, true)

	rst := h.readFrame()
	require.Equal(t, FrameResetStream, rst.Type())
	require.Equal(t, uint32(3), rst.Stream())
	require.Equal(t, RefusedStreamError, rst.Body().(*RstStream).Code())
	ReleaseFrameHeader(rst)

	// Stream 1 was already open when Shutdown fired; it must still be
	// served to completion.
	h.sendData(1, []byte("hello"), true)
	h.expectWindowUpdates(1, 5)

	headersResp := h.readFrame()
	require.Equal(t, FrameHeaders, headersResp.Type())
	require.Equal(t, uint32(1), headersResp.Stream())
	ReleaseFrameHeader(headersResp)

	dataResp := h.readFrame()
	require.Equal(t, FrameData, dataResp.Type())
	df := dataResp.Body().(*Data)
	require.Equal(t, "hello", string(df.Data()))
	require.True(t, df.EndStream())
	ReleaseFrameHeader(dataResp)

	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after draining its last stream")
	}
}
