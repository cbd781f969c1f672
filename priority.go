package h2

import (
	"sync"

	"github.com/coreh2/h2/h2utils"
)

// Priority represents a PRIORITY frame. The server parses and validates
// priority frames but does not implement prioritized scheduling;
// responses blocked on flow control are resumed in ascending stream-id
// order regardless of the advertised dependency tree.
//
// https://tools.ietf.org/html/rfc7540#section-6.3
type Priority struct {
	exclusive bool
	depStream uint32
	weight    uint8
}

var priorityPool = sync.Pool{New: func() interface{} { return &Priority{} }}

func acquirePriority() *Priority { return priorityPool.Get().(*Priority) }
func releasePriority(p *Priority) {
	p.Reset()
	priorityPool.Put(p)
}

func (p *Priority) Type() FrameType { return FramePriority }

func (p *Priority) Reset() {
	p.exclusive = false
	p.depStream = 0
	p.weight = 0
}

func (p *Priority) Exclusive() bool      { return p.exclusive }
func (p *Priority) Stream() uint32       { return p.depStream }
func (p *Priority) Weight() uint8        { return p.weight }
func (p *Priority) SetStream(id uint32)  { p.depStream = id & streamIDMask }
func (p *Priority) SetExclusive(v bool)  { p.exclusive = v }
func (p *Priority) SetWeight(w uint8)    { p.weight = w }

func (p *Priority) Deserialize(fr *FrameHeader) error {
	payload := fr.payload
	if len(payload) != 5 {
		return NewConnectionError(FrameSizeError, "PRIORITY frame must be 5 octets")
	}

	raw := h2utils.BytesToUint32(payload)
	p.exclusive = raw&0x8000_0000 != 0
	p.depStream = raw & streamIDMask
	p.weight = payload[4]

	if p.depStream == fr.Stream() {
		return NewStreamError(fr.Stream(), ProtocolError, "PRIORITY frame depends on itself")
	}

	return nil
}

func (p *Priority) Serialize(fr *FrameHeader) {
	var buf [5]byte
	raw := p.depStream & streamIDMask
	if p.exclusive {
		raw |= 0x8000_0000
	}
	h2utils.Uint32ToBytes(buf[:4], raw)
	buf[4] = p.weight
	fr.setPayload(buf[:])
}
