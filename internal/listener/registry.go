// Package listener builds and holds the process-wide endpoint -> listening
// socket mapping that survives across the re-exec'd worker population: one
// registry is built once by the supervisor and either consulted directly
// (supervisor process) or reconstructed from inherited file descriptors
// (worker process, see internal/worker/reexec.go).
package listener

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/kavu/go_reuseport"
)

// AcceptTimeout is the short accept receive-timeout a worker re-asserts on
// its listener before every Accept call, so the accept loop wakes
// periodically to observe its running flag without blocking shutdown
// indefinitely.
const AcceptTimeout = 2 * time.Second

// Endpoint describes one bind target and the fanout the manager will run
// behind it.
type Endpoint struct {
	Host   string
	Port   uint16
	Fanout uint32
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Registry maps an endpoint string to its bound listener.
type Registry struct {
	listeners map[string]*net.TCPListener
	order     []string
}

// Bind binds one reuse-address/reuse-port TCP listener per endpoint. On
// the first bind failure it closes everything already bound and returns
// the error; the caller treats this as a fatal startup error.
func Bind(endpoints []Endpoint) (*Registry, error) {
	reg := &Registry{listeners: make(map[string]*net.TCPListener)}
	for _, ep := range endpoints {
		addr := ep.String()
		ln, err := reuseport.NewReusablePortListener("tcp", addr)
		if err != nil {
			reg.CloseAll()
			return nil, fmt.Errorf("listener: bind %s: %w", addr, err)
		}
		tcpLn, ok := ln.(*net.TCPListener)
		if !ok {
			reg.CloseAll()
			return nil, fmt.Errorf("listener: bind %s: unexpected listener type %T", addr, ln)
		}
		if _, existed := reg.listeners[addr]; !existed {
			reg.order = append(reg.order, addr)
		}
		reg.listeners[addr] = tcpLn
	}
	return reg, nil
}

// Get returns the listener bound for endpoint, or nil if none.
func (r *Registry) Get(endpoint string) *net.TCPListener {
	return r.listeners[endpoint]
}

// Endpoints returns the bound endpoint strings in bind order.
func (r *Registry) Endpoints() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// CloseOthers closes every listener except the one for keep, releasing the
// file descriptors a worker does not need. Safe to call more than once.
func (r *Registry) CloseOthers(keep string) {
	for addr, ln := range r.listeners {
		if addr == keep {
			continue
		}
		ln.Close()
		delete(r.listeners, addr)
	}
}

// CloseAll closes every listener currently held.
func (r *Registry) CloseAll() {
	for addr, ln := range r.listeners {
		ln.Close()
		delete(r.listeners, addr)
	}
}

// Files returns the *os.File backing each listener, in Endpoints() order,
// suitable for handing to exec.Cmd.ExtraFiles when re-execing a worker.
// Each call dup()s the underlying fd; the returned files are independent
// of the listeners and must be closed by the caller once the child has
// started (or on failure to start).
func (r *Registry) Files() ([]FileWithEndpoint, error) {
	endpoints := r.Endpoints()
	out := make([]FileWithEndpoint, 0, len(endpoints))
	for _, addr := range endpoints {
		f, err := r.listeners[addr].File()
		if err != nil {
			for _, prior := range out {
				prior.File.Close()
			}
			return nil, fmt.Errorf("listener: dup fd for %s: %w", addr, err)
		}
		out = append(out, FileWithEndpoint{Endpoint: addr, File: f})
	}
	return out, nil
}

// FileWithEndpoint pairs a dup'd listener file descriptor with the
// endpoint string it belongs to, so a re-exec'd worker can tell its
// inherited file descriptors apart.
type FileWithEndpoint struct {
	Endpoint string
	File     *os.File
}

// FromInherited reconstructs a Registry from file descriptors inherited
// across a re-exec, given in the same order Files produced them.
func FromInherited(endpoints []string, files []*os.File) (*Registry, error) {
	if len(endpoints) != len(files) {
		return nil, fmt.Errorf("listener: %d endpoints but %d inherited files", len(endpoints), len(files))
	}
	reg := &Registry{listeners: make(map[string]*net.TCPListener)}
	for i, addr := range endpoints {
		ln, err := net.FileListener(files[i])
		if err != nil {
			reg.CloseAll()
			return nil, fmt.Errorf("listener: reconstruct %s: %w", addr, err)
		}
		tcpLn, ok := ln.(*net.TCPListener)
		if !ok {
			reg.CloseAll()
			return nil, fmt.Errorf("listener: reconstruct %s: unexpected listener type %T", addr, ln)
		}
		reg.order = append(reg.order, addr)
		reg.listeners[addr] = tcpLn
	}
	return reg, nil
}
