// Package pipeline streams JSON work items through the operation
// dispatcher while managing the single shared catalog connection: lazy
// connection, idle-timeout driven disconnection, strict FIFO output, and
// graceful shutdown on process signals.
package pipeline

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// Process exit codes. Signals get distinct codes; item-level errors with an
// otherwise healthy connection get the generic ExitItemErrors.
const (
	ExitSuccess    = 0
	ExitConnection = 1
	ExitInterrupt  = 2
	ExitQuit       = 3
	ExitHangup     = 4
	ExitTerminate  = 5
	ExitOther      = 6
	ExitItemErrors = 7
)

// SignalState records a pending shutdown requested by a process signal. The
// signal delivery path only ever sets the code; the worker loop polls it
// between items, so an in-flight catalog call is always allowed to finish.
type SignalState struct {
	code atomic.Int32
}

// NotifySignals registers the shutdown signals and returns the state their
// delivery trips.
func NotifySignals() *SignalState {
	s := &SignalState{}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGHUP, syscall.SIGTERM,
		syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGPIPE)
	go func() {
		for sig := range ch {
			s.code.CompareAndSwap(0, int32(exitCodeFor(sig)))
		}
	}()
	return s
}

func exitCodeFor(sig os.Signal) int {
	switch sig {
	case syscall.SIGINT:
		return ExitInterrupt
	case syscall.SIGQUIT:
		return ExitQuit
	case syscall.SIGHUP:
		return ExitHangup
	case syscall.SIGTERM:
		return ExitTerminate
	default:
		return ExitOther
	}
}

// ExitCode returns the pending signal exit code, or zero when no signal has
// been received.
func (s *SignalState) ExitCode() int {
	return int(s.code.Load())
}

// Trip records an exit code directly. Tests use it in place of real
// signals.
func (s *SignalState) Trip(code int) {
	s.code.CompareAndSwap(0, int32(code))
}
