package h2

// streamManager is the exclusive owner of all stream records for one
// connection. The connection engine never
// stores a stream pointer across frame boundaries; it re-borrows via
// Get, keyed by stream id, every time it needs one.
type streamManager struct {
	streams map[uint32]*Stream

	lastProcessedID      uint32
	highestSeenClientID  uint32
	activeCount          int

	closedIDs map[uint32]struct{}

	pendingPriority map[uint32]priority

	localInitialWindow  int32
	remoteInitialWindow int32
	maxConcurrent       uint32
}

func newStreamManager(localInitialWindow, remoteInitialWindow int32, maxConcurrent uint32) *streamManager {
	return &streamManager{
		streams:         make(map[uint32]*Stream),
		closedIDs:       make(map[uint32]struct{}),
		pendingPriority: make(map[uint32]priority),

		localInitialWindow:  localInitialWindow,
		remoteInitialWindow: remoteInitialWindow,
		maxConcurrent:       maxConcurrent,
	}
}

func (m *streamManager) Get(id uint32) *Stream { return m.streams[id] }

func (m *streamManager) IsClosedID(id uint32) bool {
	_, ok := m.closedIDs[id]
	return ok
}

// CreateClient creates a new client-initiated stream, enforcing parity
// (odd ids), strict monotonicity, and the concurrency limit.
func (m *streamManager) CreateClient(id uint32) (*Stream, *Error) {
	if id == 0 || id%2 == 0 {
		return nil, NewConnectionError(ProtocolError, "client-initiated stream id must be odd and non-zero")
	}
	if id <= m.highestSeenClientID {
		return nil, NewConnectionError(ProtocolError, "stream id is not strictly increasing")
	}
	if m.IsClosedID(id) {
		return nil, NewConnectionError(ProtocolError, "stream id already closed")
	}
	if uint32(m.activeCount) >= m.maxConcurrent {
		return nil, NewStreamError(id, RefusedStreamError, "max concurrent streams exceeded")
	}

	s := newStream(id, m.localInitialWindow, m.remoteInitialWindow)
	if p, ok := m.pendingPriority[id]; ok {
		s.priority = p
		delete(m.pendingPriority, id)
	}

	m.streams[id] = s
	m.highestSeenClientID = id
	m.activeCount++
	return s, nil
}

// Close removes id from the active map, records it as closed, and
// decrements the active count. Safe to call more than once for the
// same id.
func (m *streamManager) Close(id uint32) {
	if _, ok := m.streams[id]; ok {
		delete(m.streams, id)
		m.activeCount--
	}
	m.closedIDs[id] = struct{}{}
}

// SetPendingPriority records a priority triple for a stream that does
// not exist yet (idle-stream PRIORITY), without creating the
// stream or debiting concurrency.
func (m *streamManager) SetPendingPriority(id uint32, p priority) {
	if s := m.streams[id]; s != nil {
		s.priority = p
		return
	}
	m.pendingPriority[id] = p
}

func (m *streamManager) SetLastProcessed(id uint32) {
	if id > m.lastProcessedID {
		m.lastProcessedID = id
	}
}

func (m *streamManager) LastProcessed() uint32 { return m.lastProcessedID }

// ApplyInitialWindowDelta applies delta to every open stream's send
// window when SETTINGS_INITIAL_WINDOW_SIZE changes.
// Overflowing any stream's window is a connection-scope FLOW_CONTROL_ERROR.
func (m *streamManager) ApplyInitialWindowDelta(delta int32) *Error {
	for _, s := range m.streams {
		next := int64(s.sendWindow) + int64(delta)
		if next > MaxWindowSize {
			return NewConnectionError(FlowControlError, "SETTINGS_INITIAL_WINDOW_SIZE update overflows a stream window")
		}
		s.sendWindow = int32(next)
	}
	m.remoteInitialWindow += delta
	return nil
}

// Each iterates live streams in an unspecified order; callers that need
// insertion order (streams with buffered data must be revisited in the
// order they were created) use
// EachOrdered instead.
func (m *streamManager) Each(fn func(*Stream)) {
	for _, s := range m.streams {
		fn(s)
	}
}

// EachOrdered iterates streams by ascending id, approximating insertion
// order for monotonically-allocated client stream ids.
func (m *streamManager) EachOrdered(fn func(*Stream)) {
	ids := make([]uint32, 0, len(m.streams))
	for id := range m.streams {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	for _, id := range ids {
		fn(m.streams[id])
	}
}

func (m *streamManager) ActiveCount() int { return m.activeCount }
