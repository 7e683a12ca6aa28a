// Package server runs the HTTP listeners of chproxy.
//
//   - NewIntercept: the record/replay listener on 0.0.0.0:proxy.http_port
//   - NewAdmin: optional metrics and health listener on telemetry.admin.listen
//
// Both share the Server lifecycle. Listen binds up front so a port conflict
// fails startup before anything else runs; Serve blocks until its context is
// cancelled and then shuts down gracefully:
//
//	srv := server.NewIntercept(cfg, handler, logger)
//	if err := srv.Listen(); err != nil {
//	    return err // *proxy.TransportError
//	}
//	return srv.Serve(ctx)
package server
