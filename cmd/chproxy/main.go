// chproxy is a record/replay proxy for ClickHouse.
//
// In RECORD mode it forwards HTTP queries to the upstream server and keeps
// every response in an in-memory transcript. In REPLAY mode it answers each
// query with the recorded response whose body is most similar, without
// contacting the upstream. Native TCP connections are forwarded byte for
// byte in both modes. The mode is toggled over a small UDP control socket.
//
// Usage:
//
//	# Record against a local ClickHouse
//	chproxy --server localhost
//
//	# Switch to replay
//	chproxy ctl change state
//
//	# Print the transcript to the proxy log, then stop the proxy
//	chproxy ctl show db
//	chproxy ctl stop
package main

import "os"

func main() {
	os.Exit(Execute())
}
