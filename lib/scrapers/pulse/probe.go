package pulse

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	probeTimeout  = time.Second * 5
	probeAttempts = 3
)

// ensureReachable gates every operation behind a bounded reachability
// check so that a dead network fails fast with HOST_UNREACHABLE instead
// of burning the transport timeout on each HTTP call.
func (c *Client) ensureReachable(ctx context.Context) error {
	err := c.probe(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHostUnreachable, err)
	}
	return nil
}

func (c *Client) dialProbe(ctx context.Context) error {
	port := c.BaseUrl.Port()
	if port == "" {
		port = "443"
		if c.BaseUrl.Scheme == "http" {
			port = "80"
		}
	}
	addr := net.JoinHostPort(c.BaseUrl.Hostname(), port)

	dialer := net.Dialer{Timeout: probeTimeout}
	attempt := func() error {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), probeAttempts-1),
		ctx,
	)
	return backoff.Retry(attempt, bo)
}
