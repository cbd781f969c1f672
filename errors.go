package h2

import "fmt"

// ErrorCode is one of the error codes defined by RFC 7540 §7.
//
// https://tools.ietf.org/html/rfc7540#section-7
type ErrorCode uint32

const (
	NoError            ErrorCode = 0x0
	ProtocolError      ErrorCode = 0x1
	InternalError      ErrorCode = 0x2
	FlowControlError   ErrorCode = 0x3
	SettingsTimeout    ErrorCode = 0x4
	StreamClosedError  ErrorCode = 0x5
	FrameSizeError     ErrorCode = 0x6
	RefusedStreamError ErrorCode = 0x7
	CancelError        ErrorCode = 0x8
	CompressionError   ErrorCode = 0x9
	ConnectError       ErrorCode = 0xa
	EnhanceYourCalm    ErrorCode = 0xb
	InadequateSecurity ErrorCode = 0xc
	HTTP11Required     ErrorCode = 0xd
)

var errorCodeStrings = [...]string{
	"NO_ERROR", "PROTOCOL_ERROR", "INTERNAL_ERROR", "FLOW_CONTROL_ERROR",
	"SETTINGS_TIMEOUT", "STREAM_CLOSED", "FRAME_SIZE_ERROR", "REFUSED_STREAM",
	"CANCEL", "COMPRESSION_ERROR", "CONNECT_ERROR", "ENHANCE_YOUR_CALM",
	"INADEQUATE_SECURITY", "HTTP_1_1_REQUIRED",
}

func (c ErrorCode) String() string {
	if int(c) < len(errorCodeStrings) {
		return errorCodeStrings[c]
	}
	return fmt.Sprintf("UNKNOWN_ERROR(%#x)", uint32(c))
}

// scope tells the dispatch loop whether an error terminates a single
// stream or the whole connection.
type scope uint8

const (
	scopeStream scope = iota
	scopeConnection
)

// Error is returned by frame handlers to signal that the stream or the
// connection must be torn down with the given error code. It replaces
// throw-in-parse-path control flow: every handler returns either nil,
// a StreamError or a ConnectionError.
type Error struct {
	scope   scope
	stream  uint32
	code    ErrorCode
	message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("stream=%d code=%s: %s", e.stream, e.code, e.message)
}

// Code returns the RFC 7540 error code carried by e.
func (e *Error) Code() ErrorCode { return e.code }

// IsConnectionError reports whether e should close the whole connection
// (GOAWAY) rather than just resetting a single stream.
func (e *Error) IsConnectionError() bool { return e.scope == scopeConnection }

// NewStreamError builds a stream-scoped error: the dispatch loop answers
// it with RST_STREAM(streamID, code) and keeps the connection alive.
func NewStreamError(streamID uint32, code ErrorCode, message string) *Error {
	return &Error{scope: scopeStream, stream: streamID, code: code, message: message}
}

// NewConnectionError builds a connection-scoped error: the dispatch loop
// answers it with GOAWAY(lastStreamID, code) and closes the connection.
func NewConnectionError(code ErrorCode, message string) *Error {
	return &Error{scope: scopeConnection, code: code, message: message}
}
