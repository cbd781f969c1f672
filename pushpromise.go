package h2

import "sync"

// PushPromise represents a PUSH_PROMISE frame. This server never sends
// server push and does not advertise SETTINGS_ENABLE_PUSH; receiving one
// from a client is a protocol violation.
//
// https://tools.ietf.org/html/rfc7540#section-6.6
type PushPromise struct {
	padded         bool
	padLen         int
	promisedStream uint32
	endHeaders     bool
	rawHeaders     []byte
}

var pushPromisePool = sync.Pool{New: func() interface{} { return &PushPromise{} }}

func acquirePushPromise() *PushPromise { return pushPromisePool.Get().(*PushPromise) }
func releasePushPromise(p *PushPromise) {
	p.Reset()
	pushPromisePool.Put(p)
}

func (p *PushPromise) Type() FrameType { return FramePushPromise }

func (p *PushPromise) Reset() {
	p.padded = false
	p.padLen = 0
	p.promisedStream = 0
	p.endHeaders = false
	p.rawHeaders = p.rawHeaders[:0]
}

func (p *PushPromise) HeaderBlockFragment() []byte { return p.rawHeaders }

// Deserialize always fails: clients must never send PUSH_PROMISE, per
// RFC 7540 §6.6, and this server never advertises SETTINGS_ENABLE_PUSH.
func (p *PushPromise) Deserialize(fr *FrameHeader) error {
	return NewConnectionError(ProtocolError, "client sent PUSH_PROMISE")
}

func (p *PushPromise) Serialize(fr *FrameHeader) {
	panic("h2: server never sends PUSH_PROMISE")
}
