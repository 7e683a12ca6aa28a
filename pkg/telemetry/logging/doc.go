// Package logging configures structured logging on log/slog.
//
// # Overview
//
//   - JSON or text output on stderr
//   - A shared slog.LevelVar so the level can change at runtime (config hot reload)
//   - Context-aware records: request_id, mode and connection_id stored with
//     WithRequestID, WithMode and WithConnectionID are added automatically
//     by the *Context logging methods
//   - env_logger style level names: "trace" maps to debug, "off" silences output
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//	slog.SetDefault(logger.Logger)
//
//	ctx := logging.WithRequestID(ctx, id)
//	slog.DebugContext(ctx, "request handled", "status", 200)
//
//	// later, on config reload
//	logger.SetLevel("debug")
package logging
