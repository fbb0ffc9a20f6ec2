package core

import (
	"io"

	"github.com/charmbracelet/log"
)

// Logger receives progress narration from the planner, the cache and the
// migration pipeline. *log.Logger from charmbracelet/log satisfies it.
type Logger interface {
	Debug(msg interface{}, keyvals ...interface{})
	Info(msg interface{}, keyvals ...interface{})
	Warn(msg interface{}, keyvals ...interface{})
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() Logger {
	return log.New(io.Discard)
}
