package httpd

import (
	"bufio"
	"net"
	"strings"
	"time"

	"github.com/ankit-kulkarni/server_rs/internal/httperr"
	"github.com/ankit-kulkarni/server_rs/internal/httpmsg"
	"github.com/ankit-kulkarni/server_rs/internal/httpvalue"
)

// headerReadTimeout bounds how long the pipeline will wait for the request
// line and headers to arrive, before the per-connection timeout from
// configuration is promoted for the handler's own I/O.
const headerReadTimeout = 100 * time.Millisecond

// defaultMaxHeaderBytes bounds the total bytes read while accumulating the
// request line and header block when the caller does not override it; a
// connection over the limit is rejected with a generic 400 rather than
// allowed to hold a worker open indefinitely.
const defaultMaxHeaderBytes = 8192

const serverHeader = "server_rs"

// Pipeline adapts the HTTP/1.0 request/response cycle to the
// tcpworker.Process contract: one call serves exactly one connection.
type Pipeline struct {
	Handler        Handler
	Timeout        time.Duration
	MaxHeaderBytes int
}

// Process implements tcpworker.Process.
func (p *Pipeline) Process(conn net.Conn, remoteAddr net.Addr) (int, int, error) {
	return process(conn, remoteAddr, p.Timeout, p.MaxHeaderBytes, p.Handler)
}

// process reads and parses one HTTP/1.0 request off conn, dispatches it to
// handler, and flushes the response. It serves exactly one request per
// connection; the caller is responsible for closing conn afterward.
//
// timeout is the configured per-worker request timeout, promoted onto the
// connection once the header has been read successfully so the handler's
// own reads/writes are bounded by it rather than by headerReadTimeout.
// maxHeaderBytes bounds the header block; 0 selects defaultMaxHeaderBytes.
func process(conn net.Conn, remoteAddr net.Addr, timeout time.Duration, maxHeaderBytes int, handler Handler) (int, int, error) {
	if maxHeaderBytes <= 0 {
		maxHeaderBytes = defaultMaxHeaderBytes
	}
	conn.SetReadDeadline(time.Now().Add(headerReadTimeout))
	conn.SetWriteDeadline(time.Now().Add(headerReadTimeout))

	br := bufio.NewReader(conn)
	lines, bytesRead, err := readHeaderBlock(br, remoteAddr, maxHeaderBytes)
	if err != nil {
		writeBadRequest(conn)
		return bytesRead, 0, err
	}
	if len(lines) == 0 {
		rerr := &httperr.ReadFail{Msg: "empty request line"}
		writeBadRequest(conn)
		return bytesRead, 0, rerr
	}

	method, path, query, version, err := parseRequestLine(lines[0])
	if err != nil {
		writeBadRequest(conn)
		return bytesRead, 0, err
	}

	headers, err := parseHeaderLines(lines[1:])
	if err != nil {
		writeBadRequest(conn)
		return bytesRead, 0, err
	}

	conn.SetReadDeadline(time.Now().Add(timeout))
	conn.SetWriteDeadline(time.Now().Add(timeout))

	req := &httpmsg.Request{
		RemoteAddr: remoteAddr,
		Method:     method,
		Version:    version,
		Path:       path,
		Query:      query,
		Headers:    headers,
		Reader:     br,
	}
	res := httpmsg.NewResponse(version, method.IsHead(), conn)
	res.SetHeader("Server", httpvalue.StaticValue(serverHeader))

	handler.Handle(req, res)

	if err := res.Flush(); err != nil {
		return bytesRead, 0, &httperr.IoFail{Msg: err.Error()}
	}
	return bytesRead, 0, nil
}

// readHeaderBlock reads CRLF-terminated lines until an empty line (the
// header/body separator) or maxHeaderBytes is exceeded. The trailing CRLF
// is stripped from each returned line, then any leading whitespace, so a
// line that is all whitespace before the CRLF also terminates the block.
// A line without a CRLF terminator is a ParseFail.
func readHeaderBlock(br *bufio.Reader, remote net.Addr, maxHeaderBytes int) ([]string, int, error) {
	var lines []string
	var total int
	for {
		raw, err := br.ReadString('\n')
		total += len(raw)
		if total > maxHeaderBytes {
			return nil, total, &httperr.BadRequest{Remote: remote, Reason: "header too large"}
		}
		if err != nil {
			return nil, total, &httperr.ReadFail{Msg: err.Error()}
		}
		if !strings.HasSuffix(raw, "\r\n") {
			return nil, total, &httperr.ParseFail{Msg: "line missing CRLF terminator"}
		}
		line := strings.TrimSuffix(raw, "\r\n")
		line = strings.TrimLeft(line, " \t\v\f\r\n")
		if line == "" {
			return lines, total, nil
		}
		lines = append(lines, line)
	}
}

// parseRequestLine parses "METHOD SP PATH[?QUERY] SP VERSION".
func parseRequestLine(line string) (httpvalue.Method, string, map[string][]string, httpvalue.Version, error) {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return httpvalue.Method{}, "", nil, 0, &httperr.ParseFail{Msg: "malformed request line: " + line}
	}
	method := httpvalue.ParseMethod(parts[0])
	version := httpvalue.ParseVersion(parts[2])
	path, query := parsePathQuery(parts[1])
	return method, path, query, version, nil
}

// parsePathQuery splits "path?query" on the first '?', then the query on
// '&'. Each query segment splits on the first '=', a key with no '=' is
// treated as a boolean flag and defaults to the literal value "true".
func parsePathQuery(raw string) (string, map[string][]string) {
	path := raw
	var rawQuery string
	if idx := strings.IndexByte(raw, '?'); idx >= 0 {
		path = raw[:idx]
		rawQuery = raw[idx+1:]
	}
	query := make(map[string][]string)
	if rawQuery == "" {
		return path, query
	}
	for _, segment := range strings.Split(rawQuery, "&") {
		if segment == "" {
			continue
		}
		key := segment
		value := "true"
		if eq := strings.IndexByte(segment, '='); eq >= 0 {
			key = segment[:eq]
			value = segment[eq+1:]
		}
		query[key] = append(query[key], value)
	}
	return path, query
}

// parseHeaderLines splits each line on the first ':', trimming both sides.
// Lines with no ':' are dropped rather than rejected. Repeated keys keep
// their arrival order.
func parseHeaderLines(lines []string) (map[string][]string, error) {
	headers := make(map[string][]string)
	for _, line := range lines {
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if key == "" {
			continue
		}
		headers[key] = append(headers[key], value)
	}
	return headers, nil
}

// writeBadRequest emits the fixed 400 response synthesized when the
// request could not be parsed at all; write errors here are ignored since
// the connection is already being abandoned.
func writeBadRequest(conn net.Conn) {
	conn.SetWriteDeadline(time.Now().Add(headerReadTimeout))
	body := "Invalid request"
	_, _ = conn.Write([]byte("HTTP/1.0 400 Bad Request\r\n" +
		"Server: " + serverHeader + "\r\n" +
		"Content-Type: text/plain\r\n" +
		"Date: " + httpvalue.TimeValue(time.Now()).Render() + "\r\n" +
		"Content-Length: " + itoa(len(body)) + "\r\n" +
		"\r\n" + body))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
