package h2

import (
	"sync"

	"github.com/coreh2/h2/h2utils"
)

// RstStream represents a RST_STREAM frame, abruptly terminating a stream.
//
// https://tools.ietf.org/html/rfc7540#section-6.4
type RstStream struct {
	code ErrorCode
}

var rstStreamPool = sync.Pool{New: func() interface{} { return &RstStream{} }}

func acquireRstStream() *RstStream { return rstStreamPool.Get().(*RstStream) }
func releaseRstStream(r *RstStream) {
	r.Reset()
	rstStreamPool.Put(r)
}

func (r *RstStream) Type() FrameType { return FrameResetStream }

func (r *RstStream) Reset() { r.code = NoError }

func (r *RstStream) Code() ErrorCode     { return r.code }
func (r *RstStream) SetCode(c ErrorCode) { r.code = c }

func (r *RstStream) Deserialize(fr *FrameHeader) error {
	if len(fr.payload) != 4 {
		return NewConnectionError(FrameSizeError, "RST_STREAM frame must be 4 octets")
	}
	r.code = ErrorCode(h2utils.BytesToUint32(fr.payload))
	return nil
}

func (r *RstStream) Serialize(fr *FrameHeader) {
	var buf [4]byte
	h2utils.Uint32ToBytes(buf[:], uint32(r.code))
	fr.setPayload(buf[:])
}
