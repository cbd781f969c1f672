package h2

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDataPaddingRemoval(t *testing.T) {
	fh := &FrameHeader{flags: FlagPadded}
	fh.payload = []byte{3, 'h', 'i', '!', 0, 0, 0}

	d := acquireData()
	defer releaseData(d)

	require.NoError(t, d.Deserialize(fh))
	require.Equal(t, "hi!", string(d.Data()))
	require.Equal(t, 3, d.PadLen())
}

func TestDataPaddingOverflowIsProtocolError(t *testing.T) {
	fh := &FrameHeader{flags: FlagPadded}
	fh.payload = []byte{5, 'h', 'i'} // pad length >= remaining payload

	d := acquireData()
	defer releaseData(d)

	err := d.Deserialize(fh)
	require.Error(t, err)
	h2err := err.(*Error)
	require.Equal(t, ProtocolError, h2err.Code())
	require.True(t, h2err.IsConnectionError())
}

func TestHeadersPriorityExtraction(t *testing.T) {
	h := acquireHeaders()
	defer releaseHeaders(h)
	h.SetPriority(3, true, 15)
	h.SetEndHeaders(true)
	h.SetEndStream(true)
	h.SetHeaderBlockFragment([]byte("frag"))

	fh := AcquireFrameHeader()
	defer ReleaseFrameHeader(fh)
	fh.SetBody(h)
	h.Serialize(fh)

	// priority fields precede the header block fragment on the wire.
	require.True(t, fh.Flags().Has(FlagEndStream))
	require.True(t, fh.Flags().Has(FlagEndHeaders))
	require.True(t, fh.Flags().Has(FlagPriority))
	require.Equal(t, []byte{0x80, 0x00, 0x00, 0x03, 15, 'f', 'r', 'a', 'g'}, fh.payload)
}

func TestHeadersDeserializeExclusiveBit(t *testing.T) {
	fh := &FrameHeader{flags: FlagPriority}
	fh.payload = []byte{0x80, 0x00, 0x00, 0x03, 16, 'x'}

	h := acquireHeaders()
	defer releaseHeaders(h)

	require.NoError(t, h.Deserialize(fh))
	dep, excl, weight := h.Priority()
	require.Equal(t, uint32(3), dep)
	require.True(t, excl)
	require.Equal(t, uint8(16), weight)
	require.Equal(t, "x", string(h.HeaderBlockFragment()))
}

func TestPrioritySelfDependencyRejected(t *testing.T) {
	fh := &FrameHeader{stream: 5}
	fh.payload = []byte{0x00, 0x00, 0x00, 0x05, 10}

	p := acquirePriority()
	defer releasePriority(p)

	err := p.Deserialize(fh)
	require.Error(t, err)
	h2err := err.(*Error)
	require.False(t, h2err.IsConnectionError())
	require.Equal(t, ProtocolError, h2err.Code())
}

func TestRstStreamRoundTrip(t *testing.T) {
	r := acquireRstStream()
	defer releaseRstStream(r)
	r.SetCode(CancelError)

	fh := AcquireFrameHeader()
	defer ReleaseFrameHeader(fh)
	fh.SetBody(r)
	r.Serialize(fh)

	decoded := acquireRstStream()
	defer releaseRstStream(decoded)
	fh2 := &FrameHeader{payload: fh.payload}
	require.NoError(t, decoded.Deserialize(fh2))
	require.Equal(t, CancelError, decoded.Code())
}

func TestPingRequiresStreamZeroAndEightBytes(t *testing.T) {
	p := acquirePing()
	defer releasePing(p)

	fh := &FrameHeader{stream: 0, payload: make([]byte, 8)}
	require.NoError(t, p.Deserialize(fh))

	badLen := &FrameHeader{stream: 0, payload: make([]byte, 7)}
	require.Error(t, p.Deserialize(badLen))

	badStream := &FrameHeader{stream: 1, payload: make([]byte, 8)}
	require.Error(t, p.Deserialize(badStream))
}

func TestGoAwayRoundTrip(t *testing.T) {
	g := acquireGoAway()
	defer releaseGoAway(g)
	g.SetLastStream(41)
	g.SetCode(ProtocolError)
	g.SetDebugData([]byte("bad preface"))

	fh := AcquireFrameHeader()
	defer ReleaseFrameHeader(fh)
	fh.SetBody(g)
	g.Serialize(fh)

	decoded := acquireGoAway()
	defer releaseGoAway(decoded)
	fh2 := &FrameHeader{payload: fh.payload}
	require.NoError(t, decoded.Deserialize(fh2))
	require.Equal(t, uint32(41), decoded.LastStream())
	require.Equal(t, ProtocolError, decoded.Code())
	require.Equal(t, "bad preface", string(decoded.DebugData()))
}

func TestWindowUpdateZeroIncrementIsError(t *testing.T) {
	w := acquireWindowUpdate()
	defer releaseWindowUpdate(w)

	fh := &FrameHeader{stream: 0, payload: []byte{0, 0, 0, 0}}
	err := w.Deserialize(fh)
	require.Error(t, err)
	require.True(t, err.(*Error).IsConnectionError())

	fh2 := &FrameHeader{stream: 3, payload: []byte{0, 0, 0, 0}}
	err2 := w.Deserialize(fh2)
	require.Error(t, err2)
	require.False(t, err2.(*Error).IsConnectionError())
}

func TestSettingsValidation(t *testing.T) {
	s := acquireSettings()
	defer releaseSettings(s)

	fh := &FrameHeader{payload: []byte{0x00, 0x02, 0x00, 0x00, 0x00, 0x02}} // ENABLE_PUSH=2
	err := s.Deserialize(fh)
	require.Error(t, err)
	require.Equal(t, ProtocolError, err.(*Error).Code())
}

func TestPushPromiseAlwaysRejected(t *testing.T) {
	pp := acquirePushPromise()
	defer releasePushPromise(pp)

	err := pp.Deserialize(&FrameHeader{})
	require.Error(t, err)
	require.True(t, err.(*Error).IsConnectionError())
	require.Equal(t, ProtocolError, err.(*Error).Code())
}

func TestContinuationCarriesFragment(t *testing.T) {
	c := acquireContinuation()
	defer releaseContinuation(c)

	fh := &FrameHeader{flags: FlagEndHeaders, payload: []byte("more-fragment")}
	require.NoError(t, c.Deserialize(fh))
	require.True(t, c.EndHeaders())
	require.Equal(t, "more-fragment", string(c.HeaderBlockFragment()))
}

func TestUnknownFrameIsNoOp(t *testing.T) {
	u := acquireUnknown(0x7f)
	defer releaseUnknown(u)
	require.Equal(t, FrameType(0x7f), u.Type())
	require.NoError(t, u.Deserialize(&FrameHeader{}))
}
