package worker_test

import (
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/ankit-kulkarni/server_rs/internal/listener"
	"github.com/ankit-kulkarni/server_rs/internal/worker"
)

// helperModeEnv selects what a re-exec'd helper worker does once it has
// confirmed its inherited listener: the default ("", or helperModeExit)
// exits immediately, and helperModeBlock waits for SIGTERM so tests can
// drive Manager's respawn and shutdown paths against a live pid.
const helperModeEnv = "SERVER_RS_TEST_HELPER_MODE"
const helperModeBlock = "block"

// TestMain intercepts re-exec'd worker children before the normal test
// binary runs: when spawnWorker re-execs this same test binary with
// SERVER_RS_ROLE=worker, TestMain dispatches to a trivial helper process
// instead of running go test's own suite again. Mirrors the
// TestHelperProcess pattern from the standard library's os/exec tests.
func TestMain(m *testing.M) {
	if endpoint, ok := worker.IsWorker(); ok {
		runHelperWorker(endpoint)
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// runHelperWorker stands in for a real worker.Behavior: it reconstructs
// its inherited listeners and confirms it can find its own endpoint. In
// the default mode it returns immediately so the parent observes a
// NormalExit; in helperModeBlock it stays alive until SIGTERM, so a test
// can kill or gracefully stop a live helper pid.
func runHelperWorker(endpoint string) {
	reg, err := worker.InheritedListeners()
	if err != nil {
		os.Exit(1)
	}
	if reg.Get(endpoint) == nil {
		os.Exit(1)
	}
	reg.CloseAll()

	if os.Getenv(helperModeEnv) != helperModeBlock {
		return
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM)
	<-sigCh
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestManager_StartForksConfiguredFanout(t *testing.T) {
	port := freePort(t)
	ep := listener.Endpoint{Host: "127.0.0.1", Port: uint16(port), Fanout: 3}

	reg, err := listener.Bind([]listener.Endpoint{ep})
	require.NoError(t, err)
	defer reg.CloseAll()

	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)

	group := worker.NewGroup(ep.String(), ep.Fanout, nil)
	mgr := worker.NewManager(reg, []*worker.Group{group}, log)
	mgr.Start()

	pids := group.Pids()
	require.Len(t, pids, 3)

	// The helper children exit immediately; reap them directly so the
	// test doesn't leak zombies (Manager.Run normally does this, but it
	// blocks on SIGINT and isn't exercised here).
	time.Sleep(100 * time.Millisecond)
	var status syscall.WaitStatus
	for range pids {
		syscall.Wait4(-1, &status, 0, nil)
	}
}

func TestManager_RespawnReplacesKilledChild(t *testing.T) {
	os.Setenv(helperModeEnv, helperModeBlock)
	defer os.Unsetenv(helperModeEnv)

	port := freePort(t)
	ep := listener.Endpoint{Host: "127.0.0.1", Port: uint16(port), Fanout: 1}

	reg, err := listener.Bind([]listener.Endpoint{ep})
	require.NoError(t, err)
	defer reg.CloseAll()

	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)

	group := worker.NewGroup(ep.String(), ep.Fanout, nil)
	mgr := worker.NewManager(reg, []*worker.Group{group}, log)
	mgr.Start()

	pids := group.Pids()
	require.Len(t, pids, 1)
	killed := pids[0]

	done := make(chan struct{})
	go func() {
		mgr.Run()
		close(done)
	}()

	require.NoError(t, syscall.Kill(killed, syscall.SIGKILL))

	require.Eventually(t, func() bool {
		pids := group.Pids()
		return len(pids) == 1 && pids[0] != killed
	}, 2*time.Second, 10*time.Millisecond, "killed child was not respawned")

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not shut down after SIGINT")
	}
	require.Empty(t, group.Pids())
}

func TestManager_GracefulShutdownReapsAllChildren(t *testing.T) {
	os.Setenv(helperModeEnv, helperModeBlock)
	defer os.Unsetenv(helperModeEnv)

	port := freePort(t)
	ep := listener.Endpoint{Host: "127.0.0.1", Port: uint16(port), Fanout: 3}

	reg, err := listener.Bind([]listener.Endpoint{ep})
	require.NoError(t, err)
	defer reg.CloseAll()

	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)

	group := worker.NewGroup(ep.String(), ep.Fanout, nil)
	mgr := worker.NewManager(reg, []*worker.Group{group}, log)
	mgr.Start()
	require.Len(t, group.Pids(), 3)

	done := make(chan struct{})
	go func() {
		mgr.Run()
		close(done)
	}()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not shut down after SIGINT")
	}
	require.Empty(t, group.Pids())
}
