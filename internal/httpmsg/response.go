package httpmsg

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ankit-kulkarni/server_rs/internal/httpvalue"
)

// Response is the buffered, write-once response the pipeline hands to a
// Handler. Content-Length and Date are computed and set at Flush time,
// overriding anything the handler set under those names.
type Response struct {
	Version    httpvalue.Version
	Code       httpvalue.StatusCode
	HeaderOnly bool

	conn net.Conn

	mu      sync.Mutex
	headers map[string][]httpvalue.HeaderValue
	order   []string
	buffer  [][]byte
	flushed bool
}

// NewResponse builds a Response for the given request context: version
// copied from the request (or HTTP/1.0 if there is none), status defaulted
// to 200, header_only derived from the request method being HEAD.
func NewResponse(version httpvalue.Version, headOnly bool, conn net.Conn) *Response {
	return &Response{
		Version:    version,
		Code:       httpvalue.StatusOK,
		HeaderOnly: headOnly,
		conn:       conn,
		headers:    make(map[string][]httpvalue.HeaderValue),
	}
}

// SetHeader replaces any existing values for key with a single value.
func (r *Response) SetHeader(key string, value httpvalue.HeaderValue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.headers[key]; !ok {
		r.order = append(r.order, key)
	}
	r.headers[key] = []httpvalue.HeaderValue{value}
}

// AddHeader appends a value for key, preserving insertion order for
// repeated keys.
func (r *Response) AddHeader(key string, value httpvalue.HeaderValue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.headers[key]; !ok {
		r.order = append(r.order, key)
	}
	r.headers[key] = append(r.headers[key], value)
}

// Write buffers a body chunk. It is a no-op as far as the wire is
// concerned until Flush is called; on a HEAD response, buffered chunks are
// discarded at Flush rather than ever being written.
func (r *Response) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chunk := make([]byte, len(p))
	copy(chunk, p)
	r.buffer = append(r.buffer, chunk)
	return len(p), nil
}

// WriteString is a convenience wrapper around Write.
func (r *Response) WriteString(s string) (int, error) {
	return r.Write([]byte(s))
}

// Flush computes Content-Length and Date, writes the status line and
// headers, then the body (unless HeaderOnly). At most one call succeeds;
// subsequent calls are no-ops returning nil.
func (r *Response) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flushed {
		return nil
	}
	r.flushed = true

	var bodyLen int
	for _, c := range r.buffer {
		bodyLen += len(c)
	}
	r.setHeaderLocked("Content-Length", httpvalue.StringValue(fmt.Sprintf("%d", bodyLen)))
	r.setHeaderLocked("Date", httpvalue.TimeValue(time.Now()))

	w := bufio.NewWriter(r.conn)
	statusLine := fmt.Sprintf("%s %d %s\r\n", r.Version, int(r.Code), r.Code.Reason())
	if _, err := io.WriteString(w, statusLine); err != nil {
		return err
	}

	for _, key := range r.order {
		values := r.headers[key]
		rendered := make([]string, len(values))
		for i, v := range values {
			rendered[i] = v.Render()
		}
		line := key + ": " + joinSemicolon(rendered) + "\r\n"
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}

	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return err
	}

	if r.HeaderOnly {
		return w.Flush()
	}

	for _, chunk := range r.buffer {
		if _, err := w.Write(chunk); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (r *Response) setHeaderLocked(key string, value httpvalue.HeaderValue) {
	if _, ok := r.headers[key]; !ok {
		r.order = append(r.order, key)
	}
	r.headers[key] = []httpvalue.HeaderValue{value}
}

func joinSemicolon(values []string) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ";"
		}
		out += v
	}
	return out
}
