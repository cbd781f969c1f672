package h2

import "sync"

// Continuation represents a CONTINUATION frame, carrying the remainder
// of a header block fragment that did not fit in the preceding
// HEADERS/PUSH_PROMISE/CONTINUATION frame.
//
// https://tools.ietf.org/html/rfc7540#section-6.10
type Continuation struct {
	endHeaders bool
	rawHeaders []byte
}

var continuationPool = sync.Pool{New: func() interface{} { return &Continuation{} }}

func acquireContinuation() *Continuation { return continuationPool.Get().(*Continuation) }
func releaseContinuation(c *Continuation) {
	c.Reset()
	continuationPool.Put(c)
}

func (c *Continuation) Type() FrameType { return FrameContinuation }

func (c *Continuation) Reset() {
	c.endHeaders = false
	c.rawHeaders = c.rawHeaders[:0]
}

func (c *Continuation) HeaderBlockFragment() []byte { return c.rawHeaders }
func (c *Continuation) EndHeaders() bool            { return c.endHeaders }
func (c *Continuation) SetEndHeaders(v bool)        { c.endHeaders = v }

func (c *Continuation) Deserialize(fr *FrameHeader) error {
	c.endHeaders = fr.Flags().Has(FlagEndHeaders)
	c.rawHeaders = append(c.rawHeaders[:0], fr.payload...)
	return nil
}

func (c *Continuation) Serialize(fr *FrameHeader) {
	if c.endHeaders {
		fr.SetFlags(fr.Flags().Add(FlagEndHeaders))
	}
	fr.setPayload(c.rawHeaders)
}
