// Package logging builds the structured logger shared by the supervisor
// and every worker process.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// pidHook stamps every log entry with this process's pid, so lines from
// the supervisor and its forked-and-re-exec'd children can be told apart
// when interleaved on the same terminal.
type pidHook struct {
	pid int
}

func (h pidHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h pidHook) Fire(e *logrus.Entry) error {
	e.Data["pid"] = h.pid
	return nil
}

// New builds a logrus.Logger at the given level, writing to stderr with a
// pid field attached to every entry.
func New(level logrus.Level) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	log.AddHook(pidHook{pid: os.Getpid()})
	return log
}
