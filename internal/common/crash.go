package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ternarybob/arbor"
)

// crashLogDir is where crash reports are written. Set once at startup.
var crashLogDir = "./logs"

// InstallCrashHandler sets the crash report directory and makes sure it
// exists. Call it at the very start of main.
func InstallCrashHandler(logDir string) {
	if logDir != "" {
		crashLogDir = logDir
	}
	if err := os.MkdirAll(crashLogDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: failed to create log directory: %v\n", err)
	}
}

// RecoverWithCrashFile is a deferred panic recovery for main: it writes a
// crash report and exits non-zero.
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		WriteCrashFile(r, stackTrace(false))
		os.Exit(1)
	}
}

// SafeGo runs fn in a goroutine with panic recovery. A panic is logged and
// written to a crash file but does not take the process down.
func SafeGo(logger arbor.ILogger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				trace := stackTrace(false)
				if logger != nil {
					logger.Error().
						Str("goroutine", name).
						Str("panic", fmt.Sprintf("%v", r)).
						Msg("Recovered from panic in goroutine")
				}
				WriteCrashFile(r, trace)
			}
		}()
		fn()
	}()
}

// WriteCrashFile writes a crash report and returns its path. Falls back to
// stderr when the file cannot be written.
func WriteCrashFile(panicVal interface{}, trace string) string {
	path := filepath.Join(crashLogDir, fmt.Sprintf("crash-%s.log", time.Now().Format("2006-01-02T15-04-05")))

	report := fmt.Sprintf(
		"=== COLLIGO CRASH REPORT ===\nTime: %s\nVersion: %s\n\n=== PANIC ===\n%v\n\n=== STACK ===\n%s\n\n=== ALL GOROUTINES ===\n%s\n",
		time.Now().Format(time.RFC3339), GetFullVersion(), panicVal, trace, stackTrace(true))

	if err := os.WriteFile(path, []byte(report), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: failed to write crash file: %v\n%s", err, report)
		return ""
	}
	fmt.Fprintf(os.Stderr, "\n!!! FATAL CRASH - report saved to: %s !!!\nPanic: %v\n", path, panicVal)
	return path
}

func stackTrace(all bool) string {
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, all)
		if n < len(buf) {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
	}
}
