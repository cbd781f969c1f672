package h2

import "sync"

// Ping represents a PING frame, used for round-trip measurement and
// liveness checks.
//
// https://tools.ietf.org/html/rfc7540#section-6.7
type Ping struct {
	ack  bool
	data [8]byte
}

var pingPool = sync.Pool{New: func() interface{} { return &Ping{} }}

func acquirePing() *Ping { return pingPool.Get().(*Ping) }
func releasePing(p *Ping) {
	p.Reset()
	pingPool.Put(p)
}

func (p *Ping) Type() FrameType { return FramePing }

func (p *Ping) Reset() {
	p.ack = false
	p.data = [8]byte{}
}

func (p *Ping) Ack() bool     { return p.ack }
func (p *Ping) SetAck(v bool) { p.ack = v }
func (p *Ping) Data() []byte  { return p.data[:] }
func (p *Ping) SetData(b []byte) {
	copy(p.data[:], b)
}

func (p *Ping) Deserialize(fr *FrameHeader) error {
	if len(fr.payload) != 8 {
		return NewConnectionError(FrameSizeError, "PING frame must be 8 octets")
	}
	if fr.Stream() != 0 {
		return NewConnectionError(ProtocolError, "PING frame must be on stream 0")
	}
	p.ack = fr.Flags().Has(FlagAck)
	copy(p.data[:], fr.payload)
	return nil
}

func (p *Ping) Serialize(fr *FrameHeader) {
	if p.ack {
		fr.SetFlags(fr.Flags().Add(FlagAck))
	}
	fr.setPayload(p.data[:])
}
