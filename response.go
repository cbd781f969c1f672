package h2

import "strconv"

// Response is the opaque record a router returns to the connection
// engine. HTTP/1.1-specific headers are stripped by the
// engine before HPACK encoding, not by the router.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// NewResponse builds a Response with the given status and an empty
// header set.
func NewResponse(status int) *Response {
	return &Response{Status: status, Headers: make(map[string]string)}
}

func (r *Response) SetHeader(name, value string) {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[name] = value
}

func (r *Response) SetBody(b []byte) { r.Body = b }

// statusString renders the status as the decimal string HPACK needs
// for the :status pseudo-header value.
func (r *Response) statusString() string {
	return strconv.Itoa(r.Status)
}
