// Package echoproc is a second, protocol-agnostic consumer of the prefork
// worker core: it echoes bytes back to the client instead of speaking
// HTTP/1.0, demonstrating that tcpworker.Process has no HTTP dependency.
package echoproc

import (
	"net"
	"os"

	"github.com/sirupsen/logrus"
)

const bufSize = 1024

// Process echoes whatever it reads back to the client, optionally
// prefixing each chunk, until the client closes the connection or an I/O
// error occurs.
type Process struct {
	Prefix string
	Log    *logrus.Logger
}

// Process implements tcpworker.Process.
func (p *Process) Process(conn net.Conn, remoteAddr net.Addr) (int, int, error) {
	pid := os.Getpid()
	buf := make([]byte, bufSize)
	var totalRead, totalWritten int

	for {
		n, readErr := conn.Read(buf)
		if n > 0 {
			totalRead += n
			if p.Prefix != "" {
				if _, err := conn.Write([]byte(p.Prefix)); err != nil {
					break
				}
			}
			written, err := conn.Write(buf[:n])
			totalWritten += written
			if err != nil {
				break
			}
		}
		if readErr != nil {
			break
		}
		if n == 0 {
			break
		}
	}

	p.Log.WithFields(logrus.Fields{
		"pid":    pid,
		"remote": remoteAddr,
		"read":   totalRead,
		"wrote":  totalWritten,
	}).Info("echo connection closed")

	return totalRead, totalWritten, nil
}
