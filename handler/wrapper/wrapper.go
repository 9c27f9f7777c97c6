// Package wrapper provides middleware for action handlers: logging, panic
// recovery, tracing, timeouts, alerting and metadata injection. Each constructor
// returns a handler.WrapFunc to pass to handler.Wrap or dispatch.Bind.
package wrapper

import (
	"runtime"

	"github.com/rise-and-shine/actionrpc/action"
)

const stackTraceSize = 4096

func stackTrace() string {
	buf := make([]byte, stackTraceSize)
	return string(buf[:runtime.Stack(buf, false)])
}

func kindOf[A action.Action]() action.Kind {
	var zero A
	return zero.Kind()
}
