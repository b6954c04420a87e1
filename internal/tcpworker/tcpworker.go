// Package tcpworker implements the per-child accept loop: a protocol-
// agnostic TCP worker that owns exactly one inherited listener and hands
// each accepted connection to a pluggable Process.
package tcpworker

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ankit-kulkarni/server_rs/internal/listener"
)

// Process handles one accepted connection end to end and reports the
// bytes moved. Implemented by internal/httpd (HTTP/1.0) and
// internal/echoproc (byte echo), so the same worker core serves either.
type Process interface {
	Process(conn net.Conn, remoteAddr net.Addr) (bytesRead, bytesWritten int, err error)
}

// TCPWorker is the worker.Behavior run inside each re-exec'd child: close
// every listener but its own, accept in a loop bounded by
// listener.AcceptTimeout, and dispatch each connection to Proc.
type TCPWorker struct {
	Endpoint string
	Registry *listener.Registry
	Timeout  time.Duration
	Proc     Process
	Log      *logrus.Logger

	running int32
	ln      *net.TCPListener
}

// New builds a TCPWorker for endpoint, serving proc over timeout-bounded
// connections, logging via log.
func New(endpoint string, reg *listener.Registry, timeout time.Duration, proc Process, log *logrus.Logger) *TCPWorker {
	return &TCPWorker{
		Endpoint: endpoint,
		Registry: reg,
		Timeout:  timeout,
		Proc:     proc,
		Log:      log,
	}
}

// Init closes every listener but this worker's own and installs the signal
// handler that flips the running flag. The accept timeout is set by Run,
// before every Accept.
func (w *TCPWorker) Init() error {
	w.Registry.CloseOthers(w.Endpoint)
	ln := w.Registry.Get(w.Endpoint)
	if ln == nil {
		return fmt.Errorf("tcpworker: no listener retained for endpoint %s", w.Endpoint)
	}
	w.ln = ln

	atomic.StoreInt32(&w.running, 1)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		atomic.StoreInt32(&w.running, 0)
		w.Log.Trace("worker received shutdown signal")
	}()
	return nil
}

// Run accepts connections until the running flag is cleared. Each accept
// timeout is the signal-observation path, not an error.
func (w *TCPWorker) Run() {
	for atomic.LoadInt32(&w.running) == 1 {
		w.ln.SetDeadline(time.Now().Add(listener.AcceptTimeout))
		conn, err := w.ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if atomic.LoadInt32(&w.running) == 0 {
				return
			}
			w.Log.WithError(err).Error("accept failed")
			os.Exit(1)
		}
		w.handle(conn)
	}
}

func (w *TCPWorker) handle(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr()
	conn.SetWriteDeadline(time.Now().Add(w.Timeout))

	read, written, err := w.Proc.Process(conn, remote)
	if err != nil {
		w.Log.WithError(err).WithField("remote", remote).Warn("pipeline error")
		return
	}
	w.Log.WithFields(logrus.Fields{
		"remote":        remote,
		"bytes_read":    read,
		"bytes_written": written,
	}).Trace("request served")
}

// Cleanup closes the retained listener on the way out of the worker loop.
func (w *TCPWorker) Cleanup() {
	if w.ln != nil {
		w.ln.Close()
	}
}
