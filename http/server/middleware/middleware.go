// Package middleware provides the fiber middlewares of the rpc server.
//
// Each constructor returns a server.Middleware whose Priority fixes its place
// in the pipeline, highest first:
//
//   - Recovery (1000): turns panics into errors
//   - Tracing (900): opens a server span per request
//   - Timeout (800): bounds the request context
//   - MetaInject (700): stores trace id and client info in the context
//   - Alert (600): reports internal errors
//   - Logger (500): logs every request
//   - ErrorHandler (400): writes errors as JSON responses
//
// Usage:
//
//	srv := server.NewHTTPServer(cfg, []server.Middleware{
//		middleware.NewRecoveryMW(log),
//		middleware.NewTracingMW(),
//		middleware.NewTimeoutMW(cfg.HandleTimeout),
//		middleware.NewMetaInjectMW(),
//		middleware.NewAlertMW(log, provider),
//		middleware.NewLoggerMW(log),
//		middleware.NewErrorHandlerMW(cfg.HideErrorDetails),
//	})
package middleware

import (
	"runtime"
)

const (
	priorityRecovery     = 1000
	priorityTracing      = 900
	priorityTimeout      = 800
	priorityMeta         = 700
	priorityAlert        = 600
	priorityLogger       = 500
	priorityErrorHandler = 400
)

const stackTraceSize = 4096

func stackTrace() string {
	buf := make([]byte, stackTraceSize)
	return string(buf[:runtime.Stack(buf, false)])
}
