package h2

import (
	"sync"

	"github.com/coreh2/h2/h2utils"
)

// GoAway represents a GOAWAY frame, initiating a graceful or immediate
// shutdown of the connection.
//
// https://tools.ietf.org/html/rfc7540#section-6.8
type GoAway struct {
	lastStreamID uint32
	code         ErrorCode
	debug        []byte
}

var goAwayPool = sync.Pool{New: func() interface{} { return &GoAway{} }}

func acquireGoAway() *GoAway { return goAwayPool.Get().(*GoAway) }
func releaseGoAway(g *GoAway) {
	g.Reset()
	goAwayPool.Put(g)
}

func (g *GoAway) Type() FrameType { return FrameGoAway }

func (g *GoAway) Reset() {
	g.lastStreamID = 0
	g.code = NoError
	g.debug = g.debug[:0]
}

func (g *GoAway) LastStream() uint32        { return g.lastStreamID }
func (g *GoAway) SetLastStream(id uint32)   { g.lastStreamID = id & streamIDMask }
func (g *GoAway) Code() ErrorCode           { return g.code }
func (g *GoAway) SetCode(c ErrorCode)       { g.code = c }
func (g *GoAway) DebugData() []byte         { return g.debug }
func (g *GoAway) SetDebugData(b []byte)     { g.debug = append(g.debug[:0], b...) }

func (g *GoAway) Deserialize(fr *FrameHeader) error {
	if len(fr.payload) < 8 {
		return NewConnectionError(FrameSizeError, "GOAWAY frame must be at least 8 octets")
	}
	g.lastStreamID = h2utils.BytesToUint32(fr.payload[:4]) & streamIDMask
	g.code = ErrorCode(h2utils.BytesToUint32(fr.payload[4:8]))
	g.debug = append(g.debug[:0], fr.payload[8:]...)
	return nil
}

func (g *GoAway) Serialize(fr *FrameHeader) {
	buf := make([]byte, 8, 8+len(g.debug))
	h2utils.Uint32ToBytes(buf[:4], g.lastStreamID)
	h2utils.Uint32ToBytes(buf[4:8], uint32(g.code))
	buf = append(buf, g.debug...)
	fr.setPayload(buf)
}
