package h2

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamTransitionRecvHeadersOpensStream(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize, DefaultInitialWindowSize)

	require.Nil(t, s.transitionRecv(FrameHeaders, false))
	require.Equal(t, StreamOpen, s.State())

	require.Nil(t, s.transitionRecv(FrameData, true))
	require.Equal(t, StreamHalfClosedRemote, s.State())
}

func TestStreamTransitionRecvHeadersWithEndStream(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize, DefaultInitialWindowSize)

	require.Nil(t, s.transitionRecv(FrameHeaders, true))
	require.Equal(t, StreamHalfClosedRemote, s.State())
}

func TestStreamTransitionRecvDataOnIdleIsConnectionError(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize, DefaultInitialWindowSize)

	err := s.transitionRecv(FrameData, false)
	require.NotNil(t, err)
	require.True(t, err.IsConnectionError())
	require.Equal(t, ProtocolError, err.Code())
}

func TestStreamTransitionRecvDataOnHalfClosedRemoteIsStreamClosed(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize, DefaultInitialWindowSize)
	require.Nil(t, s.transitionRecv(FrameHeaders, true))

	err := s.transitionRecv(FrameData, false)
	require.NotNil(t, err)
	require.False(t, err.IsConnectionError())
	require.Equal(t, StreamClosedError, err.Code())
}

func TestStreamTransitionSendEndStreamClosesHalfClosedRemote(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize, DefaultInitialWindowSize)
	require.Nil(t, s.transitionRecv(FrameHeaders, true))

	s.transitionSend(FrameHeaders, false)
	require.Equal(t, StreamHalfClosedRemote, s.State())

	s.transitionSend(FrameData, true)
	require.Equal(t, StreamClosed, s.State())
}

func TestStreamTransitionSendEndStreamHalfClosesOpen(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize, DefaultInitialWindowSize)
	require.Nil(t, s.transitionRecv(FrameHeaders, false))

	s.transitionSend(FrameHeaders, true)
	require.Equal(t, StreamHalfClosedLocal, s.State())
}

func TestStreamBodyAccumulation(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize, DefaultInitialWindowSize)

	s.AddReceivedBody([]byte("hel"))
	s.AddReceivedBody([]byte("lo"))

	require.Equal(t, uint64(5), s.ReceivedBytes())
	require.Equal(t, "hello", string(s.Body()))
}

func TestStreamHeaderBlockAccumulation(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize, DefaultInitialWindowSize)

	s.AppendHeaderBlock([]byte("abc"))
	s.AppendHeaderBlock([]byte("def"))
	require.Equal(t, 6, s.HeaderBlockSize())

	block := s.TakeHeaderBlock()
	require.Equal(t, "abcdef", string(block))
	require.Equal(t, 0, s.HeaderBlockSize())
}

func TestStreamNextChunkSetsFinalOnLastChunk(t *testing.T) {
	s := newStream(1, DefaultInitialWindowSize, DefaultInitialWindowSize)
	s.SetOutbound([]byte("abcdef"), true)

	chunk, final := s.NextChunk(4)
	require.Equal(t, "abcd", string(chunk))
	require.False(t, final)
	require.True(t, s.OutboundPending())

	chunk, final = s.NextChunk(4)
	require.Equal(t, "ef", string(chunk))
	require.True(t, final)
	require.False(t, s.OutboundPending())
}

func TestStreamWindowArithmetic(t *testing.T) {
	s := newStream(1, 100, 200)

	s.DebitRecvWindow(30)
	require.Equal(t, int32(70), s.RecvWindow())
	s.AddRecvWindow(30)
	require.Equal(t, int32(100), s.RecvWindow())

	s.DebitSendWindow(250)
	require.Equal(t, int32(-50), s.SendWindow())
}
