// Package httpserver runs an http.Server bound to a context.
//
// Run blocks until the context is cancelled or the listener fails, then
// drains in-flight requests within the configured shutdown timeout.
// HealthCheckHandler serves liveness and readiness probes.
//
//	srv := httpserver.New(cfg, log)
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
package httpserver
