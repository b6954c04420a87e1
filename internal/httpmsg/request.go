// Package httpmsg holds the Request/Response value types that carry data
// between the HTTP/1.0 pipeline and the user-supplied Handler.
package httpmsg

import (
	"bufio"
	"net"

	"github.com/ankit-kulkarni/server_rs/internal/httpvalue"
)

// Request is the read-only view the pipeline hands to a Handler. It is
// built once, after a full header parse, and is never mutated afterward.
type Request struct {
	RemoteAddr net.Addr
	Method     httpvalue.Method
	Version    httpvalue.Version
	Path       string
	Query      map[string][]string
	Headers    map[string][]string
	Reader     *bufio.Reader
}

// HeaderValues returns the ordered list of values for a header name,
// matched case-sensitively after trimming, as parsed off the wire.
func (r *Request) HeaderValues(name string) []string {
	return r.Headers[name]
}

// Header returns the first value for a header name, or "" if absent.
func (r *Request) Header(name string) string {
	if v := r.Headers[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// QueryValues returns the ordered list of values for a query parameter.
func (r *Request) QueryValues(name string) []string {
	return r.Query[name]
}
