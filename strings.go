package h2

// Well-known pseudo-header and header names, and protocol identifiers,
// shared across the connection engine, HPACK codec, and dispatcher.
const (
	StringPath      = ":path"
	StringStatus    = ":status"
	StringAuthority = ":authority"
	StringScheme    = ":scheme"
	StringMethod    = ":method"

	StringContentLength = "content-length"
	StringContentType   = "content-type"
	StringConnection    = "connection"
	StringKeepAlive     = "keep-alive"
	StringProxyConn     = "proxy-connection"
	StringTransferEnc   = "transfer-encoding"
	StringUpgrade       = "upgrade"
	StringTE            = "te"
	StringTrailers      = "trailers"

	// ALPNProtoH2 is the ALPN protocol id for HTTP/2 over TLS.
	ALPNProtoH2 = "h2"
	// ALPNProtoHTTP11 is the ALPN protocol id for HTTP/1.1.
	ALPNProtoHTTP11 = "http/1.1"
)

// Preface is the fixed 24-octet client connection preface.
//
// https://tools.ietf.org/html/rfc7540#section-3.5
const Preface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

// connectionSpecificHeaders lists header names forbidden in HTTP/2
// requests and responses.
var connectionSpecificHeaders = map[string]struct{}{
	StringConnection:  {},
	StringKeepAlive:   {},
	StringProxyConn:   {},
	StringTransferEnc: {},
	StringUpgrade:     {},
}

func isConnectionSpecific(name string) bool {
	_, ok := connectionSpecificHeaders[name]
	return ok
}
