package recovery

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

var Logger = slog.Default()

// OnPanic is called after a panic is recovered and logged.
var OnPanic func(name string, err interface{}, stack string)

func report(msg, name string, r interface{}) {
	stack := string(debug.Stack())
	Logger.Error(msg,
		slog.String("worker_name", name),
		slog.String("error", fmt.Sprintf("%v", r)),
		slog.String("stack", stack),
	)
	if OnPanic != nil {
		OnPanic(name, r, stack)
	}
}

// WithRecovery runs fn on a new goroutine and swallows its panic.
func WithRecovery(fn func(), name string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				report("goroutine_panic_recovered", name, r)
			}
		}()
		fn()
	}()
}

// WithRecoveryNamed runs fn synchronously and reports whether it panicked.
func WithRecoveryNamed(name string, fn func()) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			report("named_panic_recovered", name, r)
			panicked = true
		}
	}()
	fn()
	return false
}
