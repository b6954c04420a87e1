package worker

import "sync"

// Behavior is the polymorphic worker loop a Group runs inside each of its
// children: Init once before the loop, Run the loop itself, Cleanup on the
// way out. Implemented by internal/tcpworker.TCPWorker.
type Behavior interface {
	Init() error
	Run()
	Cleanup()
}

// Group pairs an endpoint's target fanout with the behavior each of its
// children executes. The child table (live pids) is mutated only by the
// Manager that owns this Group.
type Group struct {
	Endpoint string
	Fanout   uint32
	Behavior Behavior

	mu   sync.Mutex
	pids map[int]struct{}
}

// NewGroup builds an immutable (endpoint, fanout, behavior) descriptor
// with an empty child table.
func NewGroup(endpoint string, fanout uint32, behavior Behavior) *Group {
	return &Group{
		Endpoint: endpoint,
		Fanout:   fanout,
		Behavior: behavior,
		pids:     make(map[int]struct{}),
	}
}

func (g *Group) addPid(pid int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pids[pid] = struct{}{}
}

func (g *Group) removePid(pid int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.pids[pid]; !ok {
		return false
	}
	delete(g.pids, pid)
	return true
}

// Pids returns a snapshot of the group's current live child pids.
func (g *Group) Pids() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]int, 0, len(g.pids))
	for pid := range g.pids {
		out = append(out, pid)
	}
	return out
}

func (g *Group) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pids)
}
