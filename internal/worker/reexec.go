package worker

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ankit-kulkarni/server_rs/internal/listener"
)

// Environment variables the re-exec'd process checks at startup to decide
// whether it is the supervisor or a worker, and, if a worker, which
// endpoint it owns. EndpointsEnv lists every inherited listener's endpoint
// in the same order as ExtraFiles, so the worker can pair fd 3+N with its
// endpoint string.
const (
	RoleEnv      = "SERVER_RS_ROLE"
	RoleWorker   = "worker"
	EndpointEnv  = "SERVER_RS_ENDPOINT"
	EndpointsEnv = "SERVER_RS_ENDPOINTS"
)

// spawnWorker re-execs the running binary with the worker-role environment
// variables set and every registry listener inherited via ExtraFiles. The
// child is responsible for closing the listeners it does not own once it
// starts.
func spawnWorker(reg *listener.Registry, endpoint string) (*exec.Cmd, error) {
	files, err := reg.Files()
	if err != nil {
		return nil, fmt.Errorf("worker: dup listener fds: %w", err)
	}
	defer func() {
		for _, f := range files {
			f.File.Close()
		}
	}()

	endpoints := make([]string, len(files))
	extraFiles := make([]*os.File, len(files))
	for i, f := range files {
		endpoints[i] = f.Endpoint
		extraFiles[i] = f.File
	}

	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Env = append(os.Environ(),
		RoleEnv+"="+RoleWorker,
		EndpointEnv+"="+endpoint,
		EndpointsEnv+"="+strings.Join(endpoints, ","),
	)
	cmd.ExtraFiles = extraFiles
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("worker: spawn for %s: %w", endpoint, err)
	}
	return cmd, nil
}

// IsWorker reports whether the current process was re-exec'd as a worker,
// and if so, which endpoint it owns.
func IsWorker() (endpoint string, ok bool) {
	if os.Getenv(RoleEnv) != RoleWorker {
		return "", false
	}
	return os.Getenv(EndpointEnv), true
}

// InheritedListeners reconstructs the registry a worker was handed across
// the re-exec, from its inherited file descriptors (starting at fd 3,
// ExtraFiles[0]) and the endpoint order recorded in EndpointsEnv.
func InheritedListeners() (*listener.Registry, error) {
	endpoints := strings.Split(os.Getenv(EndpointsEnv), ",")
	files := make([]*os.File, len(endpoints))
	for i := range endpoints {
		fd := uintptr(3 + i)
		files[i] = os.NewFile(fd, endpoints[i])
	}
	return listener.FromInherited(endpoints, files)
}
