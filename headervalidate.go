package h2

import "golang.org/x/net/http/httpguts"

// validateRequestHeaders enforces request header validation against a
// stream's wire-order decoded header list.
func validateRequestHeaders(streamID uint32, fields []headerPair) *Error {
	seenPseudo := map[string]bool{}
	seenRegular := false

	for _, f := range fields {
		name := f.name

		if len(name) == 0 {
			return NewStreamError(streamID, ProtocolError, "empty header name")
		}

		if name[0] == ':' {
			if seenRegular {
				return NewStreamError(streamID, ProtocolError, "pseudo-header after regular header")
			}
			switch name {
			case StringMethod, StringScheme, StringAuthority, StringPath:
			default:
				return NewStreamError(streamID, ProtocolError, "unknown or response-only pseudo-header in request")
			}
			if seenPseudo[name] {
				return NewStreamError(streamID, ProtocolError, "duplicate pseudo-header")
			}
			seenPseudo[name] = true
			continue
		}

		seenRegular = true

		if !isLowercase(name) || !httpguts.ValidHeaderFieldName(name) {
			return NewStreamError(streamID, ProtocolError, "invalid header name")
		}
		if !httpguts.ValidHeaderFieldValue(f.value) {
			return NewStreamError(streamID, ProtocolError, "invalid header value")
		}
		if isConnectionSpecific(name) {
			return NewStreamError(streamID, ProtocolError, "connection-specific header in HTTP/2 request")
		}
		if name == StringTE && f.value != StringTrailers {
			return NewStreamError(streamID, ProtocolError, "te header must be exactly 'trailers'")
		}
	}

	for _, required := range [...]string{StringMethod, StringScheme, StringPath} {
		if !seenPseudo[required] {
			return NewStreamError(streamID, ProtocolError, "missing mandatory pseudo-header "+required)
		}
		if v, _ := lookupHeader(fields, required); v == "" {
			return NewStreamError(streamID, ProtocolError, required+" must not be empty")
		}
	}

	return nil
}

// validateTrailerHeaders enforces trailer header validation: no
// pseudo-headers, and trailers are only valid when carrying END_STREAM
// (checked by the caller before invoking this).
func validateTrailerHeaders(streamID uint32, fields []headerPair) *Error {
	for _, f := range fields {
		if len(f.name) > 0 && f.name[0] == ':' {
			return NewStreamError(streamID, ProtocolError, "pseudo-header in trailer block")
		}
		if !isLowercase(f.name) || !httpguts.ValidHeaderFieldName(f.name) {
			return NewStreamError(streamID, ProtocolError, "invalid header name")
		}
		if !httpguts.ValidHeaderFieldValue(f.value) {
			return NewStreamError(streamID, ProtocolError, "invalid header value")
		}
		if isConnectionSpecific(f.name) {
			return NewStreamError(streamID, ProtocolError, "connection-specific header in trailer")
		}
	}
	return nil
}

func lookupHeader(fields []headerPair, name string) (string, bool) {
	for _, f := range fields {
		if f.name == name {
			return f.value, true
		}
	}
	return "", false
}

func isLowercase(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			return false
		}
	}
	return true
}

// responseHeaderStripSet lists response headers that are HTTP/1.1
// artifacts and must never reach the HPACK encoder.
var responseHeaderStripSet = map[string]struct{}{
	StringConnection:    {},
	StringKeepAlive:     {},
	StringTransferEnc:   {},
	StringContentLength: {},
}

func stripResponseHeader(name string) bool {
	_, ok := responseHeaderStripSet[name]
	return ok
}
