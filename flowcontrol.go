package h2

// connFlow tracks the connection-level (stream id 0) flow-control
// windows. Stream-level windows live on each
// Stream; this type only ever governs the shared connection window.
type connFlow struct {
	recvWindow int32
	sendWindow int32
}

func newConnFlow(initial int32) *connFlow {
	return &connFlow{recvWindow: initial, sendWindow: initial}
}

func (f *connFlow) DebitSend(n int32) { f.sendWindow -= n }
func (f *connFlow) DebitRecv(n int32) { f.recvWindow -= n }
func (f *connFlow) AddRecv(n int32)   { f.recvWindow += n }

// AddSend applies a connection-level WINDOW_UPDATE increment, rejecting
// overflow past 2^31-1 as a connection FLOW_CONTROL_ERROR.
func (f *connFlow) AddSend(increment int32) *Error {
	next := int64(f.sendWindow) + int64(increment)
	if next > MaxWindowSize {
		return NewConnectionError(FlowControlError, "connection send window overflow")
	}
	f.sendWindow = int32(next)
	return nil
}

// validateWindowIncrement enforces the window-update rule: a zero increment is a
// PROTOCOL_ERROR, scoped to the connection when streamID is 0 and to
// the stream otherwise.
func validateWindowIncrement(streamID uint32, increment int32) *Error {
	if increment == 0 {
		if streamID == 0 {
			return NewConnectionError(ProtocolError, "WINDOW_UPDATE increment must not be zero")
		}
		return NewStreamError(streamID, ProtocolError, "WINDOW_UPDATE increment must not be zero")
	}
	return nil
}

// applyStreamSend applies a stream-level WINDOW_UPDATE increment,
// rejecting overflow as a stream FLOW_CONTROL_ERROR.
func applyStreamSend(s *Stream, increment int32) *Error {
	next := int64(s.SendWindow()) + int64(increment)
	if next > MaxWindowSize {
		return NewStreamError(s.ID(), FlowControlError, "stream send window overflow")
	}
	s.sendWindow = int32(next)
	return nil
}

// sendChunkSize computes how many bytes the sender loop may emit in a
// single DATA frame right now: the smallest of the negotiated max frame
// size and both applicable send windows. Never negative.
func sendChunkSize(maxFrameSize uint32, streamWindow, connWindow int32) int {
	n := int64(maxFrameSize)
	if int64(streamWindow) < n {
		n = int64(streamWindow)
	}
	if int64(connWindow) < n {
		n = int64(connWindow)
	}
	if n < 0 {
		n = 0
	}
	return int(n)
}
