// Package worker implements the supervision core: worker groups, the
// fork-via-re-exec population, reap-and-respawn, and signal-driven
// graceful shutdown.
package worker

import (
	"fmt"
	"syscall"
)

// Outcome is the decoded result of a wait4 call, mirroring the
// NormalExit/NonZeroExit/NotExited/WaitFailed variant set.
type Outcome struct {
	Kind     OutcomeKind
	Pid      int
	ExitCode int
	Status   syscall.WaitStatus
	Errno    syscall.Errno
}

type OutcomeKind int

const (
	NormalExit OutcomeKind = iota
	NonZeroExit
	NotExited
	WaitFailed
)

func (o Outcome) String() string {
	switch o.Kind {
	case NormalExit:
		return fmt.Sprintf("NormalExit(pid=%d)", o.Pid)
	case NonZeroExit:
		return fmt.Sprintf("NonZeroExit(pid=%d, code=%d)", o.Pid, o.ExitCode)
	case NotExited:
		return fmt.Sprintf("NotExited(status=%v)", o.Status)
	case WaitFailed:
		return fmt.Sprintf("WaitFailed(errno=%v)", o.Errno)
	default:
		return "Outcome(?)"
	}
}

// wait4Any blocks for the exit of any child process and classifies the
// result. It is the only place syscall.Wait4 is called from.
func wait4Any() Outcome {
	var status syscall.WaitStatus
	pid, err := syscall.Wait4(-1, &status, 0, nil)
	if err != nil {
		errno, _ := err.(syscall.Errno)
		return Outcome{Kind: WaitFailed, Errno: errno}
	}
	switch {
	case status.Exited():
		code := status.ExitStatus()
		if code == 0 {
			return Outcome{Kind: NormalExit, Pid: pid}
		}
		return Outcome{Kind: NonZeroExit, Pid: pid, ExitCode: code}
	case status.Signaled():
		// A signal-killed child (e.g. SIGKILL) has no exit code of its own;
		// fold it into NonZeroExit using the conventional 128+signal status
		// so the supervision loop respawns it exactly as a crashed child.
		return Outcome{Kind: NonZeroExit, Pid: pid, ExitCode: 128 + int(status.Signal())}
	default:
		return Outcome{Kind: NotExited, Pid: pid, Status: status}
	}
}
