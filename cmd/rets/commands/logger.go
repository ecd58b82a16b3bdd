package commands

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
)

// StderrLogger writes leveled log lines with sorted key=value fields.
type StderrLogger struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewStderrLogger creates a logger writing to standard error.
func NewStderrLogger() *StderrLogger {
	return &StderrLogger{writer: os.Stderr}
}

// NewWriterLogger creates a logger writing to writer.
func NewWriterLogger(writer io.Writer) *StderrLogger {
	return &StderrLogger{writer: writer}
}

func (l *StderrLogger) Debug(msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, fields)
}

func (l *StderrLogger) Info(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}

func (l *StderrLogger) Warn(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}

func (l *StderrLogger) Error(msg string, fields map[string]interface{}) {
	l.log("ERROR", msg, fields)
}

func (l *StderrLogger) log(level, msg string, fields map[string]interface{}) {
	var line strings.Builder

	line.WriteString(level)
	line.WriteString(" ")
	line.WriteString(msg)

	for _, key := range slices.Sorted(maps.Keys(fields)) {
		_, _ = fmt.Fprintf(&line, " %s=%v", key, fields[key])
	}

	line.WriteString("\n")

	l.mu.Lock()
	defer l.mu.Unlock()

	_, _ = io.WriteString(l.writer, line.String())
}
