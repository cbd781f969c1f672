package h1

import (
	"bufio"

	"github.com/valyala/fasthttp"

	"github.com/coreh2/h2"
)

// requestFromFastHTTP bridges a parsed fasthttp.Request into the same
// Request record the HTTP/2 engine builds, so both protocols drive one
// Router implementation, bridging fasthttp's request/response types to
// and from the engine's opaque Request/Response records.
func requestFromFastHTTP(req *fasthttp.Request) *h2.Request {
	out := &h2.Request{
		Method:    string(req.Header.Method()),
		Authority: string(req.Header.Host()),
		Scheme:    "http",
		Headers:   make(map[string]string),
		Body:      append([]byte(nil), req.Body()...),
	}

	uri := req.URI()
	out.Path = string(uri.Path())
	out.Query = string(uri.QueryString())

	req.Header.VisitAll(func(k, v []byte) {
		out.Headers[string(lowerASCII(k))] = string(v)
	})

	return out
}

func lowerASCII(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}

// writeResponse renders an h2.Response as an HTTP/1.1 status line plus
// headers plus body, setting Connection/Content-Length the way the
// HTTP/2 path never needs to since those are headers the HPACK
// encoding path strips but an HTTP/1.1 response line requires.
func writeResponse(bw *bufio.Writer, resp *h2.Response, keepAlive bool) error {
	fresp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(fresp)

	fresp.SetStatusCode(resp.Status)
	for name, value := range resp.Headers {
		fresp.Header.Set(name, value)
	}
	fresp.SetBody(resp.Body)
	fresp.Header.SetContentLength(len(resp.Body))

	if keepAlive {
		fresp.Header.Set("Connection", "keep-alive")
	} else {
		fresp.Header.Set("Connection", "close")
	}

	return fresp.Write(bw)
}

func shouldClose(req *h2.Request) bool {
	if v, ok := req.Headers["connection"]; ok {
		return equalsFold(v, "close")
	}
	return false
}

func equalsFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
