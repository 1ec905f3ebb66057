package radau5

import (
	"fmt"
	"io"
	"strings"
)

// Logger accumulates solver messages and writes them to Output once
// integration finishes. A nil *Logger discards everything, so the solver
// never touches a process-global stream.
type Logger struct {
	Output io.Writer
	buff   strings.Builder
}

// NewLogger returns a logger writing to w on flush.
func NewLogger(w io.Writer) *Logger {
	return &Logger{Output: w}
}

// Logf formats a message to the logger.
func (log *Logger) Logf(format string, a ...interface{}) {
	if log == nil {
		return
	}
	log.buff.WriteString(fmt.Sprintf(format, a...))
}

// Warnf formats a warning to the logger.
func (log *Logger) Warnf(format string, a ...interface{}) {
	if log == nil {
		return
	}
	log.buff.WriteString("warning: " + fmt.Sprintf(format, a...))
}

func (log *Logger) flush() {
	if log == nil || log.Output == nil {
		return
	}
	io.WriteString(log.Output, log.buff.String())
	log.buff.Reset()
}
