package control

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Commands accepted on the control socket.
const (
	CommandChangeState = "change state"
	CommandShowDB      = "show db"
	CommandStop        = "stop"
)

// MaxDatagramSize is the largest datagram read; longer ones are truncated.
const MaxDatagramSize = 256

// Ack is the reply to every datagram.
const Ack = "Ack\n"

// ParseError is an undecodable datagram or an unknown command. It is logged
// and acknowledged; state is not touched.
type ParseError struct {
	Datagram string
	Reason   string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid control datagram %q: %s", e.Datagram, e.Reason)
}

// Parse decodes a datagram into one of the Command constants. Surrounding
// whitespace is ignored.
func Parse(datagram []byte) (string, error) {
	if !utf8.Valid(datagram) {
		return "", &ParseError{Datagram: strings.ToValidUTF8(string(datagram), "�"), Reason: "not valid UTF-8"}
	}

	cmd := strings.TrimSpace(string(datagram))
	switch cmd {
	case CommandChangeState, CommandShowDB, CommandStop:
		return cmd, nil
	default:
		return "", &ParseError{Datagram: cmd, Reason: "unknown command"}
	}
}
