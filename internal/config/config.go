// Package config parses the CLI flags that drive the server: listen
// endpoints, worker fanout, and the per-connection timeout.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// Config holds the resolved CLI flags for one process invocation.
type Config struct {
	Port        uint16
	ReservePort uint16
	Host        string
	Worker      uint32
	Reserve     uint32
	TimeoutMs   uint64
}

// Parse parses args (typically os.Args[1:]) into a Config. On a parse
// failure it prints usage to stderr and exits with code 2.
func Parse(args []string) Config {
	fs := pflag.NewFlagSet("server_rs", pflag.ContinueOnError)

	port := fs.Uint16P("port", "p", 10080, "primary listen port")
	reservePort := fs.Uint16("reserve-port", 10079, "secondary endpoint port")
	host := fs.String("host", "0.0.0.0", "bind address for all endpoints")
	workerCount := fs.Uint32P("worker", "w", 60, "fanout on primary endpoint")
	reserveCount := fs.Uint32P("reserve", "r", 4, "fanout on secondary endpoint")
	timeoutMs := fs.Uint64P("timeout-ms", "t", 500, "per-connection write deadline in milliseconds")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	return Config{
		Port:        *port,
		ReservePort: *reservePort,
		Host:        *host,
		Worker:      *workerCount,
		Reserve:     *reserveCount,
		TimeoutMs:   *timeoutMs,
	}
}
