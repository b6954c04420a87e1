package worker

import (
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ankit-kulkarni/server_rs/internal/listener"
)

// startRetryBudget bounds the number of retry passes a group's startup
// gets when forking fails for some of its target fanout.
const startRetryBudget = 5

// Manager establishes and maintains the target child population per
// group, and orchestrates graceful shutdown on SIGINT.
type Manager struct {
	registry *listener.Registry
	groups   []*Group
	log      *logrus.Logger
	running  int32

	mu    sync.Mutex
	owner map[int]*Group
	cmds  map[int]*exec.Cmd
}

// NewManager builds a Manager over the given listener registry and groups.
// Groups are started in the order given.
func NewManager(reg *listener.Registry, groups []*Group, log *logrus.Logger) *Manager {
	return &Manager{
		registry: reg,
		groups:   groups,
		log:      log,
		owner:    make(map[int]*Group),
		cmds:     make(map[int]*exec.Cmd),
	}
}

// Start forks each group's target fanout, retrying unfulfilled slots up to
// startRetryBudget passes. A group that still has unfulfilled slots after
// the budget logs "Failed run workers" and runs with the children it has.
func (m *Manager) Start() {
	for _, g := range m.groups {
		m.startGroup(g)
	}
}

func (m *Manager) startGroup(g *Group) {
	remaining := g.Fanout
	for pass := 0; pass < startRetryBudget && remaining > 0; pass++ {
		var failed uint32
		for i := uint32(0); i < remaining; i++ {
			if err := m.fork(g); err != nil {
				m.log.WithError(err).WithField("endpoint", g.Endpoint).Warn("fork failed")
				failed++
			}
		}
		remaining = failed
	}
	if remaining > 0 {
		m.log.WithFields(logrus.Fields{
			"endpoint":  g.Endpoint,
			"remaining": remaining,
		}).Error("Failed run workers")
	}
}

func (m *Manager) fork(g *Group) error {
	cmd, err := spawnWorker(m.registry, g.Endpoint)
	if err != nil {
		return err
	}
	pid := cmd.Process.Pid
	g.addPid(pid)
	m.mu.Lock()
	m.owner[pid] = g
	m.cmds[pid] = cmd
	m.mu.Unlock()
	m.log.WithFields(logrus.Fields{"endpoint": g.Endpoint, "pid": pid}).Trace("forked worker")
	return nil
}

// Run installs the SIGINT handler and drives the reap/respawn loop until
// signaled, then performs graceful shutdown.
func (m *Manager) Run() {
	atomic.StoreInt32(&m.running, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	go func() {
		<-sigCh
		atomic.StoreInt32(&m.running, 0)
	}()

	for atomic.LoadInt32(&m.running) == 1 {
		outcome := wait4Any()
		switch outcome.Kind {
		case NormalExit:
			m.respawnOne(outcome.Pid)
		case NonZeroExit:
			m.log.WithFields(logrus.Fields{"pid": outcome.Pid, "code": outcome.ExitCode}).Warn("child exited nonzero")
			m.respawnOne(outcome.Pid)
		case NotExited:
			m.log.WithField("status", outcome.Status).Trace("child not exited")
		case WaitFailed:
			switch outcome.Errno {
			case syscall.ECHILD:
				// no children remain; signal delivery may race the reap.
			case syscall.EINTR:
				m.log.Trace("process over")
			default:
				m.log.WithField("errno", outcome.Errno).Error("wait failed")
			}
		}
	}
	m.shutdown()
}

// respawnOne removes pid from its group's child table and forks exactly
// one replacement, with no retry budget beyond the single attempt.
func (m *Manager) respawnOne(pid int) {
	m.mu.Lock()
	g, ok := m.owner[pid]
	delete(m.owner, pid)
	delete(m.cmds, pid)
	m.mu.Unlock()
	if !ok {
		return
	}
	g.removePid(pid)
	if err := m.fork(g); err != nil {
		m.log.WithError(err).WithField("endpoint", g.Endpoint).Error("respawn failed")
	}
}

// shutdown sends SIGTERM to every live child of every group, then reaps
// each group's pids exactly once per recorded pid.
func (m *Manager) shutdown() {
	for _, g := range m.groups {
		pids := g.Pids()
		for _, pid := range pids {
			if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
				m.log.WithError(err).WithField("pid", pid).Warn("SIGTERM failed")
			}
		}
		for range pids {
			outcome := wait4Any()
			if outcome.Kind == WaitFailed {
				m.log.WithField("errno", outcome.Errno).Warn("reap failed during shutdown")
				continue
			}
			g.removePid(outcome.Pid)
			m.mu.Lock()
			delete(m.owner, outcome.Pid)
			delete(m.cmds, outcome.Pid)
			m.mu.Unlock()
		}
	}
}
