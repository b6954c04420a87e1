// Command echoserver wires the byte-echoing Process into the same prefork
// worker core serverd uses, demonstrating that the core in
// internal/worker and internal/tcpworker has no HTTP dependency. It
// shares serverd's CLI flags and re-exec/worker-role contract.
package main

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ankit-kulkarni/server_rs/internal/config"
	"github.com/ankit-kulkarni/server_rs/internal/echoproc"
	"github.com/ankit-kulkarni/server_rs/internal/listener"
	"github.com/ankit-kulkarni/server_rs/internal/logging"
	"github.com/ankit-kulkarni/server_rs/internal/tcpworker"
	"github.com/ankit-kulkarni/server_rs/internal/worker"
)

func main() {
	cfg := config.Parse(os.Args[1:])
	log := logging.New(logrus.TraceLevel)

	primary := listener.Endpoint{Host: cfg.Host, Port: cfg.Port, Fanout: cfg.Worker}
	reserve := listener.Endpoint{Host: cfg.Host, Port: cfg.ReservePort, Fanout: cfg.Reserve}
	endpoints := []listener.Endpoint{primary, reserve}
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond

	if ownEndpoint, ok := worker.IsWorker(); ok {
		runWorker(ownEndpoint, primary, reserve, timeout, log)
		return
	}

	reg, err := listener.Bind(endpoints)
	if err != nil {
		log.WithError(err).Fatal("failed to bind listeners")
	}

	groups := buildGroups(reg, primary, reserve, timeout, log)
	mgr := worker.NewManager(reg, groups, log)
	mgr.Start()
	log.WithFields(logrus.Fields{
		"primary": primary.String(),
		"reserve": reserve.String(),
	}).Info("echoserver supervisor started")
	mgr.Run()
	log.Info("echoserver supervisor exiting")
}

// buildGroups mirrors cmd/serverd's layout: one group per endpoint, with
// the reserve endpoint's chunks prefixed so the two listeners stay
// distinguishable on a single terminal.
func buildGroups(reg *listener.Registry, primary, reserve listener.Endpoint, timeout time.Duration, log *logrus.Logger) []*worker.Group {
	primaryEcho := &echoproc.Process{Log: log}
	reserveEcho := &echoproc.Process{Prefix: "Second: ", Log: log}

	primaryWorker := tcpworker.New(primary.String(), reg, timeout, primaryEcho, log)
	reserveWorker := tcpworker.New(reserve.String(), reg, timeout, reserveEcho, log)
	return []*worker.Group{
		worker.NewGroup(primary.String(), primary.Fanout, primaryWorker),
		worker.NewGroup(reserve.String(), reserve.Fanout, reserveWorker),
	}
}

func runWorker(ownEndpoint string, primary, reserve listener.Endpoint, timeout time.Duration, log *logrus.Logger) {
	reg, err := worker.InheritedListeners()
	if err != nil {
		log.WithError(err).Error("failed to reconstruct inherited listeners")
		os.Exit(1)
	}

	groups := buildGroups(reg, primary, reserve, timeout, log)
	var own *worker.Group
	for _, g := range groups {
		if g.Endpoint == ownEndpoint {
			own = g
			break
		}
	}
	if own == nil {
		log.WithField("endpoint", ownEndpoint).Error("worker endpoint matches no group")
		os.Exit(1)
	}

	if err := own.Behavior.Init(); err != nil {
		log.WithError(err).Error("worker init failed")
		os.Exit(1)
	}
	own.Behavior.Run()
	own.Behavior.Cleanup()
	os.Exit(0)
}
