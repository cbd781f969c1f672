package h2

import (
	"bufio"
	"io"
	"sync"

	"github.com/coreh2/h2/h2utils"
)

const (
	// FrameHeaderSize is the fixed 9-octet size of a frame header.
	//
	// https://tools.ietf.org/html/rfc7540#section-4.1
	FrameHeaderSize = 9

	// DefaultMaxFrameSize is SETTINGS_MAX_FRAME_SIZE's default value.
	DefaultMaxFrameSize = 1 << 14
	// MaxFrameSizeCeiling is the absolute ceiling a frame size may ever
	// negotiate to: 2^24-1, bounded by the 24-bit length field.
	MaxFrameSizeCeiling = 1<<24 - 1

	streamIDMask = 1<<31 - 1
)

var frameHeaderPool = sync.Pool{
	New: func() interface{} { return &FrameHeader{} },
}

// FrameHeader is the 9-octet frame header plus its (possibly still
// compressed/padded) payload and the decoded Frame body.
//
// A FrameHeader is not safe for concurrent use; acquire one per frame
// with AcquireFrameHeader and release it with ReleaseFrameHeader.
type FrameHeader struct {
	length int
	kind   FrameType
	flags  FrameFlags
	stream uint32

	maxLen uint32

	rawHeader [FrameHeaderSize]byte
	payload   []byte

	fr Frame
}

// AcquireFrameHeader returns a reset FrameHeader from the pool.
func AcquireFrameHeader() *FrameHeader {
	fr := frameHeaderPool.Get().(*FrameHeader)
	fr.Reset()
	return fr
}

// ReleaseFrameHeader releases fr's body frame and returns fr to the pool.
func ReleaseFrameHeader(fr *FrameHeader) {
	if fr == nil {
		return
	}
	ReleaseFrame(fr.fr)
	fr.fr = nil
	frameHeaderPool.Put(fr)
}

// Reset clears fr so it can be reused for an unrelated frame.
func (fr *FrameHeader) Reset() {
	fr.length = 0
	fr.kind = 0
	fr.flags = 0
	fr.stream = 0
	fr.maxLen = DefaultMaxFrameSize
	fr.payload = fr.payload[:0]
	fr.fr = nil
}

func (fr *FrameHeader) Type() FrameType       { return fr.kind }
func (fr *FrameHeader) Flags() FrameFlags     { return fr.flags }
func (fr *FrameHeader) Stream() uint32        { return fr.stream }
func (fr *FrameHeader) Len() int              { return fr.length }
func (fr *FrameHeader) Body() Frame           { return fr.fr }
func (fr *FrameHeader) SetFlags(f FrameFlags) { fr.flags = f }
func (fr *FrameHeader) SetStream(id uint32)   { fr.stream = id & streamIDMask }

// SetMaxLen sets the locally-negotiated SETTINGS_MAX_FRAME_SIZE used to
// reject oversized incoming frames.
func (fr *FrameHeader) SetMaxLen(n uint32) { fr.maxLen = n }

// SetBody attaches fr2 as the frame's body and adopts its type.
func (fr *FrameHeader) SetBody(fr2 Frame) {
	if fr2 == nil {
		panic("h2: frame body cannot be nil")
	}
	fr.kind = fr2.Type()
	fr.fr = fr2
}

func (fr *FrameHeader) setPayload(b []byte) {
	fr.payload = append(fr.payload[:0], b...)
}

// checkFrameSize enforces the per-type size rules, returning a
// connection error of FRAME_SIZE_ERROR on violation. Unknown types are
// exempt: they are discarded whole regardless of size.
func checkFrameSize(kind FrameType, length int) error {
	switch kind {
	case FramePriority:
		if length != 5 {
			return NewConnectionError(FrameSizeError, "PRIORITY frame must be 5 octets")
		}
	case FrameResetStream:
		if length != 4 {
			return NewConnectionError(FrameSizeError, "RST_STREAM frame must be 4 octets")
		}
	case FrameSettings:
		if length%6 != 0 {
			return NewConnectionError(FrameSizeError, "SETTINGS frame must be a multiple of 6 octets")
		}
	case FramePing:
		if length != 8 {
			return NewConnectionError(FrameSizeError, "PING frame must be 8 octets")
		}
	case FrameGoAway:
		if length < 8 {
			return NewConnectionError(FrameSizeError, "GOAWAY frame must be at least 8 octets")
		}
	case FrameWindowUpdate:
		if length != 4 {
			return NewConnectionError(FrameSizeError, "WINDOW_UPDATE frame must be 4 octets")
		}
	}
	return nil
}

// ReadFrameFrom parses the next frame from br, enforcing maxFrameSize as
// the locally advertised SETTINGS_MAX_FRAME_SIZE. Unknown frame types are
// returned with a body of *unknownFrame rather than an error; callers
// discard them.
func ReadFrameFrom(br *bufio.Reader, maxFrameSize uint32) (*FrameHeader, error) {
	fr := AcquireFrameHeader()
	fr.maxLen = maxFrameSize

	if err := fr.readFrom(br); err != nil {
		ReleaseFrameHeader(fr)
		return nil, err
	}

	return fr, nil
}

func (fr *FrameHeader) readFrom(br *bufio.Reader) error {
	header, err := br.Peek(FrameHeaderSize)
	if err != nil {
		return err
	}
	if _, err := br.Discard(FrameHeaderSize); err != nil {
		return err
	}

	fr.length = int(h2utils.BytesToUint24(header[:3]))
	fr.kind = FrameType(header[3])
	fr.flags = FrameFlags(header[4])
	fr.stream = h2utils.BytesToUint32(header[5:]) & streamIDMask

	if fr.maxLen != 0 && uint32(fr.length) > fr.maxLen {
		_, _ = br.Discard(fr.length)
		return NewConnectionError(FrameSizeError, "frame exceeds SETTINGS_MAX_FRAME_SIZE")
	}

	if fr.length > 0 {
		fr.payload = h2utils.Resize(fr.payload, fr.length)
		if _, err := io.ReadFull(br, fr.payload); err != nil {
			return err
		}
	} else {
		fr.payload = fr.payload[:0]
	}

	if fr.kind > frameTypeMax {
		fr.fr = acquireUnknown(fr.kind)
		return nil
	}

	if err := checkFrameSize(fr.kind, fr.length); err != nil {
		return err
	}

	fr.fr = AcquireFrame(fr.kind)
	return fr.fr.Deserialize(fr)
}

// WriteTo serializes fr (asking its body to render into the payload
// first) and writes the 9-octet header followed by the payload.
func (fr *FrameHeader) WriteTo(bw *bufio.Writer) (int64, error) {
	fr.fr.Serialize(fr)
	fr.length = len(fr.payload)

	h2utils.Uint24ToBytes(fr.rawHeader[:3], uint32(fr.length))
	fr.rawHeader[3] = byte(fr.kind)
	fr.rawHeader[4] = byte(fr.flags)
	h2utils.Uint32ToBytes(fr.rawHeader[5:], fr.stream&streamIDMask)

	n, err := bw.Write(fr.rawHeader[:])
	wb := int64(n)
	if err != nil {
		return wb, err
	}

	n, err = bw.Write(fr.payload)
	wb += int64(n)
	return wb, err
}
