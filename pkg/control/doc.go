// Package control implements the UDP control plane.
//
// Datagrams are UTF-8 text of at most 256 bytes. Recognized commands, after
// trimming surrounding whitespace:
//
//   - "change state": toggle between record and replay
//   - "show db": log the transcript, one line per record
//   - "stop": end the control loop, which shuts the process down
//
// Every datagram, valid or not, is answered with "Ack\n" once the command has
// been applied. Invalid datagrams are logged and leave the state untouched.
//
// Send is the client side used by "chproxy ctl".
package control
