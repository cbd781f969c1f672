package h2

import (
	"sync"

	"github.com/coreh2/h2/h2utils"
)

// FrameWithHeaders is implemented by HEADERS and CONTINUATION: both carry
// a header-block fragment that must be reassembled across CONTINUATION
// frames before HPACK decoding.
type FrameWithHeaders interface {
	Frame
	HeaderBlockFragment() []byte
}

// Headers represents a HEADERS frame.
//
// https://tools.ietf.org/html/rfc7540#section-6.2
type Headers struct {
	padded     bool
	padLen     int
	priority   bool
	exclusive  bool
	depStream  uint32
	weight     uint8
	endStream  bool
	endHeaders bool
	rawHeaders []byte
}

var headersPool = sync.Pool{New: func() interface{} { return &Headers{} }}

func acquireHeaders() *Headers { return headersPool.Get().(*Headers) }
func releaseHeaders(h *Headers) {
	h.Reset()
	headersPool.Put(h)
}

func (h *Headers) Type() FrameType { return FrameHeaders }

func (h *Headers) Reset() {
	h.padded = false
	h.padLen = 0
	h.priority = false
	h.exclusive = false
	h.depStream = 0
	h.weight = 0
	h.endStream = false
	h.endHeaders = false
	h.rawHeaders = h.rawHeaders[:0]
}

func (h *Headers) HeaderBlockFragment() []byte { return h.rawHeaders }
func (h *Headers) SetHeaderBlockFragment(b []byte) {
	h.rawHeaders = append(h.rawHeaders[:0], b...)
}

func (h *Headers) EndStream() bool     { return h.endStream }
func (h *Headers) SetEndStream(v bool) { h.endStream = v }

func (h *Headers) EndHeaders() bool     { return h.endHeaders }
func (h *Headers) SetEndHeaders(v bool) { h.endHeaders = v }

// HasPriority reports whether the frame carried the PRIORITY flag with
// stream dependency information.
func (h *Headers) HasPriority() bool { return h.priority }

// Priority returns the dependency stream id, exclusive bit, and weight
// carried by the frame, when HasPriority is true.
func (h *Headers) Priority() (depStream uint32, exclusive bool, weight uint8) {
	return h.depStream, h.exclusive, h.weight
}

func (h *Headers) SetPriority(depStream uint32, exclusive bool, weight uint8) {
	h.priority = true
	h.depStream = depStream & streamIDMask
	h.exclusive = exclusive
	h.weight = weight
}

func (h *Headers) Deserialize(fr *FrameHeader) error {
	payload := fr.payload

	if fr.Flags().Has(FlagPadded) {
		out, padLen, ok := h2utils.CutPadding(payload)
		if !ok {
			return NewConnectionError(ProtocolError, "HEADERS pad length exceeds payload size")
		}
		payload, h.padLen = out, padLen
		h.padded = true
	}

	if fr.Flags().Has(FlagPriority) {
		if len(payload) < 5 {
			return NewConnectionError(FrameSizeError, "HEADERS priority fields truncated")
		}
		raw := h2utils.BytesToUint32(payload)
		h.exclusive = raw&0x8000_0000 != 0
		h.depStream = raw & streamIDMask
		h.weight = payload[4]
		h.priority = true
		payload = payload[5:]
	}

	h.endStream = fr.Flags().Has(FlagEndStream)
	h.endHeaders = fr.Flags().Has(FlagEndHeaders)
	h.rawHeaders = append(h.rawHeaders[:0], payload...)
	return nil
}

func (h *Headers) Serialize(fr *FrameHeader) {
	if h.endStream {
		fr.SetFlags(fr.Flags().Add(FlagEndStream))
	}
	if h.endHeaders {
		fr.SetFlags(fr.Flags().Add(FlagEndHeaders))
	}

	payload := h.rawHeaders
	if h.priority {
		fr.SetFlags(fr.Flags().Add(FlagPriority))
		raw := h.depStream & streamIDMask
		if h.exclusive {
			raw |= 0x8000_0000
		}
		payload = make([]byte, 5, 5+len(h.rawHeaders))
		h2utils.Uint32ToBytes(payload[:4], raw)
		payload[4] = h.weight
		payload = append(payload, h.rawHeaders...)
	}
	fr.setPayload(payload)
}
