package h2

// FrameType identifies the payload kind carried by a frame header.
//
// https://tools.ietf.org/html/rfc7540#section-6
type FrameType uint8

const (
	FrameData         FrameType = 0x0
	FrameHeaders      FrameType = 0x1
	FramePriority     FrameType = 0x2
	FrameResetStream  FrameType = 0x3
	FrameSettings     FrameType = 0x4
	FramePushPromise  FrameType = 0x5
	FramePing         FrameType = 0x6
	FrameGoAway       FrameType = 0x7
	FrameWindowUpdate FrameType = 0x8
	FrameContinuation FrameType = 0x9

	// frameTypeMax is the highest frame type this server recognizes.
	// Anything above it is handled by unknownFrame and discarded.
	frameTypeMax = FrameContinuation
)

func (t FrameType) String() string {
	switch t {
	case FrameData:
		return "DATA"
	case FrameHeaders:
		return "HEADERS"
	case FramePriority:
		return "PRIORITY"
	case FrameResetStream:
		return "RST_STREAM"
	case FrameSettings:
		return "SETTINGS"
	case FramePushPromise:
		return "PUSH_PROMISE"
	case FramePing:
		return "PING"
	case FrameGoAway:
		return "GOAWAY"
	case FrameWindowUpdate:
		return "WINDOW_UPDATE"
	case FrameContinuation:
		return "CONTINUATION"
	default:
		return "UNKNOWN"
	}
}

// FrameFlags is the 8-bit flags octet of a frame header. Only the bits
// relevant to at least one frame type are named; the rest are ignored on
// receive and cleared on send.
type FrameFlags uint8

const (
	FlagAck        FrameFlags = 0x1 // SETTINGS, PING
	FlagEndStream  FrameFlags = 0x1 // DATA, HEADERS
	FlagEndHeaders FrameFlags = 0x4 // HEADERS, PUSH_PROMISE, CONTINUATION
	FlagPadded     FrameFlags = 0x8 // DATA, HEADERS, PUSH_PROMISE
	FlagPriority   FrameFlags = 0x20 // HEADERS
)

// Has reports whether all bits of mask are set in f.
func (f FrameFlags) Has(mask FrameFlags) bool {
	return f&mask == mask
}

// Add returns f with mask's bits set.
func (f FrameFlags) Add(mask FrameFlags) FrameFlags {
	return f | mask
}

// Frame is the payload of a single HTTP/2 frame. Each frame type
// implements deserialization from, and serialization to, a FrameHeader.
//
// Frame instances are pooled; acquire them with AcquireFrame and let
// ReleaseFrameHeader return them via the FrameHeader that owns them.
type Frame interface {
	Type() FrameType
	Reset()

	// Deserialize populates the frame from fr's already-parsed header
	// fields and raw payload. It MUST NOT retain fr.
	Deserialize(fr *FrameHeader) error

	// Serialize renders the frame into fr's payload and sets any flags
	// the frame implies (END_STREAM, END_HEADERS, ACK, ...).
	Serialize(fr *FrameHeader)
}

// AcquireFrame returns a pooled, reset Frame implementation for kind, or
// an *unknownFrame for any type this server does not recognize.
func AcquireFrame(kind FrameType) Frame {
	var fr Frame

	switch kind {
	case FrameData:
		fr = acquireData()
	case FrameHeaders:
		fr = acquireHeaders()
	case FramePriority:
		fr = acquirePriority()
	case FrameResetStream:
		fr = acquireRstStream()
	case FrameSettings:
		fr = acquireSettings()
	case FramePushPromise:
		fr = acquirePushPromise()
	case FramePing:
		fr = acquirePing()
	case FrameGoAway:
		fr = acquireGoAway()
	case FrameWindowUpdate:
		fr = acquireWindowUpdate()
	case FrameContinuation:
		fr = acquireContinuation()
	default:
		fr = acquireUnknown(kind)
	}

	fr.Reset()
	return fr
}

// ReleaseFrame returns fr to its type-specific pool. A nil fr is a no-op.
func ReleaseFrame(fr Frame) {
	if fr == nil {
		return
	}

	switch f := fr.(type) {
	case *Data:
		releaseData(f)
	case *Headers:
		releaseHeaders(f)
	case *Priority:
		releasePriority(f)
	case *RstStream:
		releaseRstStream(f)
	case *Settings:
		releaseSettings(f)
	case *PushPromise:
		releasePushPromise(f)
	case *Ping:
		releasePing(f)
	case *GoAway:
		releaseGoAway(f)
	case *WindowUpdate:
		releaseWindowUpdate(f)
	case *Continuation:
		releaseContinuation(f)
	case *unknownFrame:
		releaseUnknown(f)
	}
}
