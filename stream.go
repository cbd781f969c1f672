package h2

// priority is the (dependency, exclusive, weight) triple carried by
// HEADERS with the PRIORITY flag, or by a standalone PRIORITY frame.
type priority struct {
	depID     uint32
	exclusive bool
	weight    uint8
}

// Stream is the per-stream record: state, both
// flow-control windows, the header/body accumulators driving
// reassembly and content-length reconciliation, and the outbound
// buffer the sender loop drains.
type Stream struct {
	id    uint32
	state StreamState

	recvWindow int32
	sendWindow int32

	priority priority

	headerAccum    []byte
	orderedHeaders []headerPair
	bodyAccum      []byte
	headers        map[string]string

	hasContentLength bool
	contentLength    uint64
	receivedBytes    uint64

	receivedInitialHeaders bool
	receivedTrailers       bool

	outboundBuffer    []byte
	outboundOffset    int
	outboundEndStream bool

	receivedEndStream bool
	sentEndStream     bool
}

func newStream(id uint32, initialRecvWindow, initialSendWindow int32) *Stream {
	return &Stream{
		id:         id,
		state:      StreamIdle,
		recvWindow: initialRecvWindow,
		sendWindow: initialSendWindow,
		headers:    make(map[string]string),
	}
}

func (s *Stream) ID() uint32          { return s.id }
func (s *Stream) State() StreamState  { return s.state }
func (s *Stream) SetState(st StreamState) { s.state = st }

func (s *Stream) RecvWindow() int32     { return s.recvWindow }
func (s *Stream) SendWindow() int32     { return s.sendWindow }
func (s *Stream) AddRecvWindow(n int32) { s.recvWindow += n }
func (s *Stream) AddSendWindow(n int32) { s.sendWindow += n }
func (s *Stream) DebitSendWindow(n int32) { s.sendWindow -= n }
func (s *Stream) DebitRecvWindow(n int32) { s.recvWindow -= n }

func (s *Stream) SetPriority(depID uint32, exclusive bool, weight uint8) {
	s.priority = priority{depID, exclusive, weight}
}
func (s *Stream) Priority() (depID uint32, exclusive bool, weight uint8) {
	return s.priority.depID, s.priority.exclusive, s.priority.weight
}

// AppendHeaderBlock accumulates a HEADERS/CONTINUATION fragment while a
// header block is in progress.
func (s *Stream) AppendHeaderBlock(b []byte) {
	s.headerAccum = append(s.headerAccum, b...)
}

// HeaderBlockSize reports the accumulated header-block fragment size,
// compared against SETTINGS_MAX_HEADER_LIST_SIZE during reassembly.
func (s *Stream) HeaderBlockSize() int { return len(s.headerAccum) }

// TakeHeaderBlock returns the accumulated fragment and clears it, as
// required on END_HEADERS.
func (s *Stream) TakeHeaderBlock() []byte {
	b := s.headerAccum
	s.headerAccum = nil
	return b
}

// headerPair preserves wire order for pseudo-header placement and
// duplicate validation, which a map cannot express.
type headerPair struct {
	name, value string
}

// AppendDecodedHeader records a just-decoded header field in both its
// wire-order list (for validation) and the lookup map (for dispatch).
func (s *Stream) AppendDecodedHeader(name, value string) {
	s.orderedHeaders = append(s.orderedHeaders, headerPair{name, value})
	s.headers[name] = value
}

func (s *Stream) OrderedHeaders() []headerPair { return s.orderedHeaders }

// ResetHeaderBlock clears the per-block accumulators so the same stream
// can later accept a trailer block.
func (s *Stream) ResetHeaderBlock() {
	s.orderedHeaders = s.orderedHeaders[:0]
}

func (s *Stream) SetHeader(name, value string) { s.headers[name] = value }
func (s *Stream) Header(name string) (string, bool) {
	v, ok := s.headers[name]
	return v, ok
}
func (s *Stream) Headers() map[string]string { return s.headers }

func (s *Stream) SetExpectedContentLength(n uint64) {
	s.hasContentLength = true
	s.contentLength = n
}
func (s *Stream) ExpectedContentLength() (uint64, bool) {
	return s.contentLength, s.hasContentLength
}

// AddReceivedBody appends b to the body accumulator and advances the
// received-byte counter used for content-length reconciliation
// (spec invariant: received_bytes <= expected_content_length).
func (s *Stream) AddReceivedBody(b []byte) {
	s.bodyAccum = append(s.bodyAccum, b...)
	s.receivedBytes += uint64(len(b))
}

func (s *Stream) ReceivedBytes() uint64 { return s.receivedBytes }
func (s *Stream) Body() []byte          { return s.bodyAccum }

func (s *Stream) SetReceivedInitialHeaders(v bool) { s.receivedInitialHeaders = v }
func (s *Stream) ReceivedInitialHeaders() bool     { return s.receivedInitialHeaders }
func (s *Stream) SetReceivedTrailers(v bool)       { s.receivedTrailers = v }
func (s *Stream) ReceivedTrailers() bool           { return s.receivedTrailers }

func (s *Stream) SetOutbound(b []byte, endStream bool) {
	s.outboundBuffer = b
	s.outboundOffset = 0
	s.outboundEndStream = endStream
}

// OutboundPending reports whether the sender loop still has bytes to
// drain for this stream.
func (s *Stream) OutboundPending() bool {
	return s.outboundOffset < len(s.outboundBuffer)
}

// NextChunk returns up to n bytes of pending outbound data, advancing
// the offset, and reports whether this chunk is the final one (so the
// caller can set END_STREAM only on the last chunk).
func (s *Stream) NextChunk(n int) (chunk []byte, final bool) {
	remaining := s.outboundBuffer[s.outboundOffset:]
	if n > len(remaining) {
		n = len(remaining)
	}
	chunk = remaining[:n]
	s.outboundOffset += n
	final = s.outboundOffset == len(s.outboundBuffer)
	return chunk, final
}

func (s *Stream) OutboundEndStream() bool { return s.outboundEndStream }

func (s *Stream) SetReceivedEndStream(v bool) { s.receivedEndStream = v }
func (s *Stream) ReceivedEndStream() bool     { return s.receivedEndStream }
func (s *Stream) SetSentEndStream(v bool)     { s.sentEndStream = v }
func (s *Stream) SentEndStream() bool         { return s.sentEndStream }

// transitionRecv applies the receive-side half of the stream state
// machine, given the frame type just processed and whether it carried
// END_STREAM. It returns a stream error if the transition is illegal.
func (s *Stream) transitionRecv(kind FrameType, endStream bool) *Error {
	switch s.state {
	case StreamIdle:
		switch kind {
		case FrameHeaders:
			if endStream {
				s.state = StreamHalfClosedRemote
			} else {
				s.state = StreamOpen
			}
		case FramePriority:
			// pending_priority only; no state change, stream isn't created.
		default:
			return NewConnectionError(ProtocolError, "frame on idle stream")
		}

	case StreamOpen:
		if endStream {
			s.state = StreamHalfClosedRemote
		}
		if kind == FrameResetStream {
			s.state = StreamClosed
		}

	case StreamHalfClosedLocal:
		if endStream {
			s.state = StreamClosed
		}
		if kind == FrameResetStream {
			s.state = StreamClosed
		}

	case StreamHalfClosedRemote:
		if kind == FrameHeaders && !s.receivedTrailers {
			return NewStreamError(s.id, StreamClosedError, "HEADERS on half-closed (remote) stream after trailers")
		}
		if kind == FrameData {
			return NewStreamError(s.id, StreamClosedError, "DATA on half-closed (remote) stream")
		}
		if kind == FrameResetStream {
			s.state = StreamClosed
		}

	case StreamReservedRemote:
		if kind == FrameHeaders {
			s.state = StreamHalfClosedLocal
		}

	case StreamClosed:
		if kind != FrameResetStream && kind != FramePriority && kind != FrameWindowUpdate {
			return NewStreamError(s.id, StreamClosedError, "frame on closed stream")
		}
	}

	return nil
}

// transitionSend mirrors transitionRecv for locally-originated frames.
func (s *Stream) transitionSend(kind FrameType, endStream bool) {
	switch s.state {
	case StreamOpen:
		if endStream {
			s.state = StreamHalfClosedLocal
		}
	case StreamHalfClosedRemote:
		if endStream {
			s.state = StreamClosed
		}
	}
	if kind == FrameResetStream {
		s.state = StreamClosed
	}
}
