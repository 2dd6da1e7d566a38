// Package tlog provides the leveled loggers used throughout securestore.
//
// Four loggers are exposed, in increasing severity: Debug, Info, Warn,
// Fatal. Debug is silent by default; set SECURESTORE_DEBUG=1 or call
// Debug.Enable() to turn it on. The others always print.
package tlog

import (
	"fmt"
	"io"
	"log"
	"os"
)

// ansi color codes, only used when the output is a terminal.
const (
	colorReset  = "\033[0m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGrey   = "\033[2m"
)

// toggledLogger is a *log.Logger that can be switched on and off.
type toggledLogger struct {
	*log.Logger
	Enabled bool
	color   string
}

func (l *toggledLogger) Printf(format string, v ...interface{}) {
	if !l.Enabled {
		return
	}
	if l.color == "" {
		l.Logger.Printf(format, v...)
		return
	}
	l.Logger.Printf(l.color+format+colorReset, v...)
}

func (l *toggledLogger) Println(v ...interface{}) {
	if !l.Enabled {
		return
	}
	if l.color == "" {
		l.Logger.Println(v...)
		return
	}
	msg := l.color + fmt.Sprintln(v...) + colorReset
	l.Logger.Print(msg)
}

func (l *toggledLogger) Enable() {
	l.Enabled = true
}

var (
	// Debug is silent by default. Enable with SECURESTORE_DEBUG=1.
	Debug = &toggledLogger{Logger: log.New(os.Stderr, "[D] ", 0), color: colorGrey}
	// Info is always on.
	Info = &toggledLogger{Logger: log.New(os.Stdout, "", 0), Enabled: true}
	// Warn is always on, printed to stderr in yellow.
	Warn = &toggledLogger{Logger: log.New(os.Stderr, "[W] ", 0), Enabled: true, color: colorYellow}
	// Fatal is always on, printed to stderr in red. Callers are responsible
	// for os.Exit after logging.
	Fatal = &toggledLogger{Logger: log.New(os.Stderr, "[F] ", 0), Enabled: true, color: colorRed}
)

func init() {
	if os.Getenv("SECURESTORE_DEBUG") != "" {
		Debug.Enable()
	}
}

// SwitchLoggerToFile redirects all output to w (used in tests that want
// quiet stdout/stderr but still want to assert on log content).
func SwitchLoggerToFile(w io.Writer) {
	Debug.Logger = log.New(w, "[D] ", 0)
	Info.Logger = log.New(w, "", 0)
	Warn.Logger = log.New(w, "[W] ", 0)
	Fatal.Logger = log.New(w, "[F] ", 0)
}
