package h2

import (
	"sync"

	"github.com/coreh2/h2/h2utils"
)

// Data represents a DATA frame, carrying a stream's request or response
// body bytes.
//
// https://tools.ietf.org/html/rfc7540#section-6.1
type Data struct {
	endStream bool
	padded    bool
	padLen    int
	b         []byte
}

var dataPool = sync.Pool{New: func() interface{} { return &Data{} }}

func acquireData() *Data { return dataPool.Get().(*Data) }
func releaseData(d *Data) {
	d.Reset()
	dataPool.Put(d)
}

func (d *Data) Type() FrameType { return FrameData }

func (d *Data) Reset() {
	d.endStream = false
	d.padded = false
	d.padLen = 0
	d.b = d.b[:0]
}

func (d *Data) EndStream() bool        { return d.endStream }
func (d *Data) SetEndStream(v bool)    { d.endStream = v }
func (d *Data) Data() []byte           { return d.b }
func (d *Data) SetData(b []byte)       { d.b = append(d.b[:0], b...) }
func (d *Data) Len() int               { return len(d.b) }

// PadLen returns the number of padding octets the frame carried on the
// wire (0 if it wasn't padded), needed by flow control to debit the
// full wire size rather than just the application data.
func (d *Data) PadLen() int { return d.padLen }

// Padded reports whether the frame carried the PADDED flag, in which
// case its wire size also includes the pad-length octet.
func (d *Data) Padded() bool { return d.padded }

func (d *Data) Deserialize(fr *FrameHeader) error {
	payload := fr.payload

	if fr.Flags().Has(FlagPadded) {
		out, padLen, ok := h2utils.CutPadding(payload)
		if !ok {
			return NewConnectionError(ProtocolError, "DATA pad length exceeds payload size")
		}
		payload, d.padLen = out, padLen
		d.padded = true
	}

	d.endStream = fr.Flags().Has(FlagEndStream)
	d.b = append(d.b[:0], payload...)
	return nil
}

func (d *Data) Serialize(fr *FrameHeader) {
	if d.endStream {
		fr.SetFlags(fr.Flags().Add(FlagEndStream))
	}
	fr.setPayload(d.b)
}
