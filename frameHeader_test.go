package h2

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coreh2/h2/h2utils"
)

func TestFrameHeaderRoundTrip(t *testing.T) {
	fh := AcquireFrameHeader()
	defer ReleaseFrameHeader(fh)

	fh.SetStream(5)
	d := acquireData()
	d.SetData([]byte("hello"))
	d.SetEndStream(true)
	fh.SetBody(d)

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	_, err := fh.WriteTo(bw)
	require.NoError(t, err)
	require.NoError(t, bw.Flush())

	raw := buf.Bytes()
	require.Len(t, raw, FrameHeaderSize+len("hello"))
	// 24-bit length, type, flags, 31-bit stream id (reserved bit cleared)
	require.Equal(t, byte(0), raw[0])
	require.Equal(t, byte(0), raw[1])
	require.Equal(t, byte(len("hello")), raw[2])
	require.Equal(t, byte(FrameData), raw[3])
	require.Equal(t, byte(FlagEndStream), raw[4])
	require.Equal(t, uint32(5), h2utils.BytesToUint32(raw[5:9])&streamIDMask)

	br := bufio.NewReader(bytes.NewReader(raw))
	got, err := ReadFrameFrom(br, DefaultMaxFrameSize)
	require.NoError(t, err)
	defer ReleaseFrameHeader(got)

	require.Equal(t, FrameData, got.Type())
	require.Equal(t, uint32(5), got.Stream())
	gotData := got.Body().(*Data)
	require.Equal(t, "hello", string(gotData.Data()))
	require.True(t, gotData.EndStream())
}

func TestFrameHeaderMasksReservedBit(t *testing.T) {
	fh := AcquireFrameHeader()
	defer ReleaseFrameHeader(fh)

	fh.SetStream(0x8000_0007) // reserved bit set plus stream id 7
	require.Equal(t, uint32(7), fh.Stream())
}

func TestFrameHeaderRejectsOversizedFrame(t *testing.T) {
	var raw [FrameHeaderSize]byte
	h2utils.Uint24ToBytes(raw[:3], DefaultMaxFrameSize+1)
	raw[3] = byte(FrameData)

	br := bufio.NewReader(bytes.NewReader(raw[:]))
	_, err := ReadFrameFrom(br, DefaultMaxFrameSize)
	require.Error(t, err)

	h2err, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, FrameSizeError, h2err.Code())
	require.True(t, h2err.IsConnectionError())
}

func TestCheckFrameSizePerType(t *testing.T) {
	cases := []struct {
		kind   FrameType
		length int
		wantOK bool
	}{
		{FramePriority, 5, true},
		{FramePriority, 4, false},
		{FrameResetStream, 4, true},
		{FrameResetStream, 3, false},
		{FrameSettings, 12, true},
		{FrameSettings, 7, false},
		{FramePing, 8, true},
		{FramePing, 7, false},
		{FrameGoAway, 8, true},
		{FrameGoAway, 7, false},
		{FrameWindowUpdate, 4, true},
		{FrameWindowUpdate, 5, false},
	}

	for _, c := range cases {
		err := checkFrameSize(c.kind, c.length)
		if c.wantOK {
			require.NoErrorf(t, err, "%s/%d should be valid", c.kind, c.length)
		} else {
			require.Errorf(t, err, "%s/%d should be rejected", c.kind, c.length)
		}
	}
}

func TestUnknownFrameTypeDiscarded(t *testing.T) {
	var raw [FrameHeaderSize]byte
	h2utils.Uint24ToBytes(raw[:3], 3)
	raw[3] = 0x7f // above frameTypeMax
	payload := []byte{1, 2, 3}

	br := bufio.NewReader(bytes.NewReader(append(raw[:], payload...)))
	fh, err := ReadFrameFrom(br, DefaultMaxFrameSize)
	require.NoError(t, err)
	defer ReleaseFrameHeader(fh)

	require.Equal(t, FrameType(0x7f), fh.Type())
}
