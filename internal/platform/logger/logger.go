// Package logger provides structured logging for the leaderboard server.
// Every control change and lifecycle step should be traceable through this.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger provides leveled logging with context.
type Logger struct {
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
}

// NewLogger creates a new logger instance writing to stdout/stderr.
func NewLogger() *Logger {
	return &Logger{
		infoLogger:  log.New(os.Stdout, "[BOARD-INFO] ", log.Ldate|log.Ltime|log.Lshortfile),
		warnLogger:  log.New(os.Stdout, "[BOARD-WARN] ", log.Ldate|log.Ltime|log.Lshortfile),
		errorLogger: log.New(os.Stderr, "[BOARD-ERROR] ", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// NewLoggerTo sends every level to w. Tests pass io.Discard or a buffer;
// the TUI passes a log file so output does not tear the terminal.
func NewLoggerTo(w io.Writer) *Logger {
	return &Logger{
		infoLogger:  log.New(w, "[BOARD-INFO] ", log.Ldate|log.Ltime|log.Lshortfile),
		warnLogger:  log.New(w, "[BOARD-WARN] ", log.Ldate|log.Ltime|log.Lshortfile),
		errorLogger: log.New(w, "[BOARD-ERROR] ", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// Info logs informational messages.
func (l *Logger) Info(msg string) {
	l.infoLogger.Output(2, msg)
}

// Infof logs a formatted informational message.
func (l *Logger) Infof(format string, args ...any) {
	l.infoLogger.Output(2, fmt.Sprintf(format, args...))
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string) {
	l.warnLogger.Output(2, msg)
}

// Warnf logs a formatted warning.
func (l *Logger) Warnf(format string, args ...any) {
	l.warnLogger.Output(2, fmt.Sprintf(format, args...))
}

// Error logs error messages.
func (l *Logger) Error(msg string) {
	l.errorLogger.Output(2, msg)
}

// Errorf logs a formatted error.
func (l *Logger) Errorf(format string, args ...any) {
	l.errorLogger.Output(2, fmt.Sprintf(format, args...))
}

// Event logs a board event together with whoever caused it.
func (l *Logger) Event(eventType string, actor string, details string) {
	l.infoLogger.Output(2, fmt.Sprintf("[EVENT:%s] Actor:%s | %s", eventType, actor, details))
}
