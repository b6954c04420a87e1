package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ankit-kulkarni/server_rs/internal/config"
)

func TestParse_Defaults(t *testing.T) {
	cfg := config.Parse(nil)

	is := assert.New(t)
	is.Equal(uint16(10080), cfg.Port)
	is.Equal(uint16(10079), cfg.ReservePort)
	is.Equal("0.0.0.0", cfg.Host)
	is.Equal(uint32(60), cfg.Worker)
	is.Equal(uint32(4), cfg.Reserve)
	is.Equal(uint64(500), cfg.TimeoutMs)
}

func TestParse_Overrides(t *testing.T) {
	cfg := config.Parse([]string{
		"-p", "8080",
		"--reserve-port", "8081",
		"--host", "127.0.0.1",
		"-w", "10",
		"-r", "2",
		"-t", "250",
	})

	is := assert.New(t)
	is.Equal(uint16(8080), cfg.Port)
	is.Equal(uint16(8081), cfg.ReservePort)
	is.Equal("127.0.0.1", cfg.Host)
	is.Equal(uint32(10), cfg.Worker)
	is.Equal(uint32(2), cfg.Reserve)
	is.Equal(uint64(250), cfg.TimeoutMs)
}
