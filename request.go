package h2

import "strings"

// Request is the opaque record the connection engine hands to the
// router: the core does not
// interpret the path beyond splitting it at '?'.
type Request struct {
	Method    string
	Path      string
	Query     string
	Authority string
	Scheme    string
	Headers   map[string]string
	Body      []byte

	StreamID uint32
}

// newRequestFromStream builds a Request from a stream's accumulated
// pseudo-headers, regular headers, and body, splitting :path into path
// and query at the first '?'.
func newRequestFromStream(s *Stream) *Request {
	path := s.headers[StringPath]
	query := ""
	if i := strings.IndexByte(path, '?'); i >= 0 {
		query = path[i+1:]
		path = path[:i]
	}

	req := &Request{
		Method:    s.headers[StringMethod],
		Path:      path,
		Query:     query,
		Authority: s.headers[StringAuthority],
		Scheme:    s.headers[StringScheme],
		Headers:   make(map[string]string, len(s.headers)),
		Body:      s.Body(),
		StreamID:  s.id,
	}

	for k, v := range s.headers {
		if len(k) > 0 && k[0] == ':' {
			continue
		}
		req.Headers[k] = v
	}

	return req
}
