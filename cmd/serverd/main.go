// Command serverd is the prefork HTTP/1.0 server: a supervisor that binds
// the primary and reserve endpoints, forks a worker population behind
// each, and serves single-request-per-connection HTTP/1.0 traffic out of
// every child. Re-exec'd with SERVER_RS_ROLE=worker, the same binary acts
// as one of those children instead of the supervisor.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ankit-kulkarni/server_rs/internal/config"
	"github.com/ankit-kulkarni/server_rs/internal/httpd"
	"github.com/ankit-kulkarni/server_rs/internal/httpmsg"
	"github.com/ankit-kulkarni/server_rs/internal/httpvalue"
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
	}).Info("server_rs supervisor started")
	mgr.Run()
	log.Info("server_rs supervisor exiting")
}

// buildGroups constructs the same (endpoint, fanout, behavior) descriptors
// in both the supervisor and a re-exec'd worker; the supervisor only ever
// reads Endpoint/Fanout off them, the worker runs the Behavior matching
// its own endpoint.
func buildGroups(reg *listener.Registry, primary, reserve listener.Endpoint, timeout time.Duration, log *logrus.Logger) []*worker.Group {
	pipeline := &httpd.Pipeline{
		Handler:        httpd.HandlerFunc(demoHandler),
		Timeout:        timeout,
		MaxHeaderBytes: 8192,
	}
	primaryWorker := tcpworker.New(primary.String(), reg, timeout, pipeline, log)
	reserveWorker := tcpworker.New(reserve.String(), reg, timeout, pipeline, log)
	return []*worker.Group{
		worker.NewGroup(primary.String(), primary.Fanout, primaryWorker),
		worker.NewGroup(reserve.String(), reserve.Fanout, reserveWorker),
	}
}

// runWorker reconstructs the inherited listeners, runs this process's own
// endpoint's Behavior until shutdown, then exits 0.
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

// demoHandler is the fixed handler this binary exercises the pipeline
// with; a real deployment would supply its own Handler implementation.
func demoHandler(req *httpmsg.Request, res *httpmsg.Response) {
	res.SetHeader("Content-Type", httpvalue.StaticValue("text/plain"))
	fmt.Fprintf(res, "hello from %s %s\n", req.Method, req.Path)
}
