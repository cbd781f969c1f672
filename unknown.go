package h2

import "sync"

// unknownFrame is the body of any frame whose type this server does not
// recognize. §4.1 requires unknown types to be accepted and discarded
// rather than treated as an error.
type unknownFrame struct {
	kind FrameType
}

var unknownPool = sync.Pool{New: func() interface{} { return &unknownFrame{} }}

func acquireUnknown(kind FrameType) *unknownFrame {
	fr := unknownPool.Get().(*unknownFrame)
	fr.kind = kind
	return fr
}

func releaseUnknown(fr *unknownFrame) {
	fr.Reset()
	unknownPool.Put(fr)
}

func (fr *unknownFrame) Type() FrameType { return fr.kind }
func (fr *unknownFrame) Reset()          { fr.kind = 0 }

func (fr *unknownFrame) Deserialize(*FrameHeader) error { return nil }
func (fr *unknownFrame) Serialize(*FrameHeader)         {}
