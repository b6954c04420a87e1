// Package httpd implements the HTTP/1.0 pipeline: header parsing, request
// construction, handler dispatch and response flushing over a single
// accepted connection. One connection serves exactly one request.
package httpd

import "github.com/ankit-kulkarni/server_rs/internal/httpmsg"

// Handler answers one request by writing into res. It must not retain req
// or res past return; the pipeline discards both once Process returns.
type Handler interface {
	Handle(req *httpmsg.Request, res *httpmsg.Response)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(req *httpmsg.Request, res *httpmsg.Response)

func (f HandlerFunc) Handle(req *httpmsg.Request, res *httpmsg.Response) {
	f(req, res)
}
