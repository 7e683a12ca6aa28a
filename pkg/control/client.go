package control

import (
	"context"
	"fmt"
	"net"
	"time"
)

// DefaultTimeout bounds Send when ctx has no deadline.
const DefaultTimeout = 2 * time.Second

// Send delivers one command datagram to addr and waits for the reply.
func Send(ctx context.Context, addr, command string) (string, error) {
	if len(command) > MaxDatagramSize {
		return "", fmt.Errorf("command is %d bytes, limit is %d", len(command), MaxDatagramSize)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return "", fmt.Errorf("dial control socket %s: %w", addr, err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return "", err
	}

	if _, err := conn.Write([]byte(command)); err != nil {
		return "", fmt.Errorf("send control command: %w", err)
	}

	buf := make([]byte, MaxDatagramSize)
	n, err := conn.Read(buf)
	if err != nil {
		return "", fmt.Errorf("read control reply: %w", err)
	}
	return string(buf[:n]), nil
}
