// Package supervisor runs chproxy's listeners side by side: the HTTP
// intercept server, the TCP pass-through, the control socket and the
// optional admin server and background helpers.
//
// The first task to return, with or without an error, cancels the shared
// context. The remaining tasks then have the shutdown timeout to return.
// Nothing is restarted.
//
//	sup := supervisor.New(cfg.Proxy.ShutdownTimeout, logger)
//	err := sup.Run(ctx,
//	    supervisor.Task{Name: "http", Run: httpServer.Serve},
//	    supervisor.Task{Name: "control", Run: controlServer.Serve},
//	)
package supervisor
