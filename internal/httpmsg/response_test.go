package httpmsg_test

import (
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankit-kulkarni/server_rs/internal/httpmsg"
	"github.com/ankit-kulkarni/server_rs/internal/httpvalue"
)

func pipeConn(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return server, client
}

func TestResponse_Flush_ContentLengthAndDate(t *testing.T) {
	server, client := pipeConn(t)

	res := httpmsg.NewResponse(httpvalue.Version10, false, server)
	fmt.Fprint(res, "hi")

	done := make(chan error, 1)
	go func() { done <- res.Flush() }()

	buf := make([]byte, 4096)
	n, err := client.Read(buf)
	require.NoError(t, err)
	require.NoError(t, <-done)

	out := string(buf[:n])
	is := assert.New(t)
	is.True(strings.HasPrefix(out, "HTTP/1.0 200 OK\r\n"))
	is.Contains(out, "Content-Length: 2\r\n")
	is.Contains(out, "Date: ")
	is.True(strings.HasSuffix(out, "\r\n\r\nhi"))
}

func TestResponse_Flush_HeaderOnlySuppressesBody(t *testing.T) {
	server, client := pipeConn(t)

	res := httpmsg.NewResponse(httpvalue.Version10, true, server)
	fmt.Fprint(res, "hi")

	done := make(chan error, 1)
	go func() { done <- res.Flush(); server.Close() }()

	var out strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := client.Read(buf)
		out.Write(buf[:n])
		if err != nil {
			break
		}
	}
	require.NoError(t, <-done)

	is := assert.New(t)
	is.Contains(out.String(), "Content-Length: 2\r\n")
	is.True(strings.HasSuffix(out.String(), "\r\n\r\n"), "body bytes must not reach the wire on a HEAD response")
}

func TestResponse_Flush_OnlyOnce(t *testing.T) {
	server, client := pipeConn(t)

	res := httpmsg.NewResponse(httpvalue.Version10, true, server)

	drained := make(chan struct{})
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := client.Read(buf); err != nil {
				close(drained)
				return
			}
		}
	}()

	require.NoError(t, res.Flush())
	server.Close()
	<-drained

	// A second Flush must be a no-op: it must not try to write to the now
	// closed connection and error out.
	assert.NoError(t, res.Flush())
}

func TestResponse_MultiValueHeaderJoinedWithSemicolon(t *testing.T) {
	server, client := pipeConn(t)

	res := httpmsg.NewResponse(httpvalue.Version10, true, server)
	res.AddHeader("Vary", httpvalue.StringValue("Accept"))
	res.AddHeader("Vary", httpvalue.StringValue("Accept-Encoding"))

	done := make(chan error, 1)
	go func() { done <- res.Flush() }()

	buf := make([]byte, 4096)
	n, err := client.Read(buf)
	require.NoError(t, err)
	require.NoError(t, <-done)

	assert.Contains(t, string(buf[:n]), "Vary: Accept;Accept-Encoding\r\n")
}
