package h2

import (
	"sync"

	"github.com/coreh2/h2/h2utils"
)

// WindowUpdate represents a WINDOW_UPDATE frame, used to adjust a flow
// control window, either for a single stream or for the whole connection
// (stream id 0).
//
// https://tools.ietf.org/html/rfc7540#section-6.9
type WindowUpdate struct {
	increment int32
}

var windowUpdatePool = sync.Pool{New: func() interface{} { return &WindowUpdate{} }}

func acquireWindowUpdate() *WindowUpdate { return windowUpdatePool.Get().(*WindowUpdate) }
func releaseWindowUpdate(w *WindowUpdate) {
	w.Reset()
	windowUpdatePool.Put(w)
}

func (w *WindowUpdate) Type() FrameType { return FrameWindowUpdate }

func (w *WindowUpdate) Reset() { w.increment = 0 }

func (w *WindowUpdate) Increment() int32     { return w.increment }
func (w *WindowUpdate) SetIncrement(n int32) { w.increment = n }

func (w *WindowUpdate) Deserialize(fr *FrameHeader) error {
	if len(fr.payload) != 4 {
		return NewConnectionError(FrameSizeError, "WINDOW_UPDATE frame must be 4 octets")
	}

	raw := h2utils.BytesToUint32(fr.payload) & streamIDMask
	if raw == 0 {
		if fr.Stream() == 0 {
			return NewConnectionError(ProtocolError, "WINDOW_UPDATE increment must not be zero")
		}
		return NewStreamError(fr.Stream(), ProtocolError, "WINDOW_UPDATE increment must not be zero")
	}

	w.increment = int32(raw)
	return nil
}

func (w *WindowUpdate) Serialize(fr *FrameHeader) {
	var buf [4]byte
	h2utils.Uint32ToBytes(buf[:], uint32(w.increment)&streamIDMask)
	fr.setPayload(buf[:])
}
