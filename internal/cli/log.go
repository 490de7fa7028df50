// Package cli implements the tikzcell command-line interface.
//
// Commands are built with cobra; render, magic, serve and cache share one
// [CLI] value holding the logger, the loaded config and the standard
// streams. The logger travels to each command through its context
// (charmbracelet/log's WithContext/FromContext) and -v lowers it to debug,
// which also routes render and cache events from pkg/observability into it.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// logTimeFormat shows centiseconds ("14:32:01.45"), enough to tell the
// compile and convert steps apart.
const logTimeFormat = "15:04:05.00"

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      logTimeFormat,
		Level:           level,
	})
}

func levelFor(verbose bool) log.Level {
	if verbose {
		return LogDebug
	}
	return LogInfo
}

// elapsed is the time since start rounded for log output.
func elapsed(start time.Time) time.Duration {
	return time.Since(start).Round(time.Millisecond)
}
