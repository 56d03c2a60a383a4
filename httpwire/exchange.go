package httpwire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// DefaultReadTimeout bounds how long an exchange waits for response bytes.
// Protocol test servers answer well within this; anything slower counts as
// whatever arrived.
const DefaultReadTimeout = 1700 * time.Millisecond

// Client sends raw request bytes to a TCP endpoint and collects whatever the
// peer sends back.
type Client struct {
	Address     string
	ReadTimeout time.Duration
}

// Exchange dials the endpoint, writes the payload and reads the response
// until EOF or the read timeout. A timeout with bytes already received is a
// complete exchange; many servers keep the connection open after answering.
func (c *Client) Exchange(ctx context.Context, payload []byte) (string, error) {
	timeout := c.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.Address)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", c.Address, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	if _, err := conn.Write(payload); err != nil {
		return "", fmt.Errorf("write request: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(timeout))
	var response []byte
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		response = append(response, buf[:n]...)
		if err != nil {
			var nerr net.Error
			if errors.Is(err, io.EOF) || (errors.As(err, &nerr) && nerr.Timeout()) || len(response) > 0 {
				break
			}
			return "", fmt.Errorf("read response: %w", err)
		}
	}
	return string(response), nil
}
