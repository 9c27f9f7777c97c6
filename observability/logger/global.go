package logger

import (
	"sync/atomic"
)

//nolint:gochecknoglobals // process-wide logger used by the binary's setup code
var global atomic.Pointer[Logger]

// SetGlobal replaces the process logger. It panics on an invalid cfg, since
// it only runs during startup, after the config was validated.
func SetGlobal(cfg Config) {
	l, err := New(cfg)
	if err != nil {
		panic("[logger]: failed to initialize global logger: " + err.Error())
	}
	global.Store(&l)
}

// Global returns the process logger. Until SetGlobal runs it is a no-op
// logger, so library code can never log through it by accident.
func Global() Logger {
	if l := global.Load(); l != nil {
		return *l
	}
	return NewNop()
}

// Named returns the process logger scoped to name.
func Named(name string) Logger {
	return Global().Named(name)
}

// Fatalx logs err through the process logger and exits.
func Fatalx(err error) {
	Global().Fatalx(err)
}

// Sync flushes the process logger.
func Sync() error {
	return Global().Sync()
}
