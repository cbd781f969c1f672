package h2

// Router is the single capability the connection engine needs from its
// surrounding application: turn a request into a response. The engine
// neither knows nor cares whether the implementation is a static
// dispatch table or a full routing trie.
type Router interface {
	Route(req *Request) *Response
}

// RouterFunc adapts a plain function to Router.
type RouterFunc func(req *Request) *Response

func (f RouterFunc) Route(req *Request) *Response { return f(req) }
