package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/anonto42/minisocial/internal/models"
)

// Subscribe streams change events of the given tables to handle until ctx is
// cancelled or the connection drops. It always returns a non-nil error.
func (c *Client) Subscribe(ctx context.Context, tables []string, handle func(models.ChangeEvent)) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/realtime"
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := url.Values{"tables": {strings.Join(tables, ",")}}
	if token := c.Token(); token != "" {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode >= 300 {
			defer resp.Body.Close()
			return statusError(resp)
		}
		return fmt.Errorf("dial realtime: %w", err)
	}
	defer conn.Close()

	// unblock ReadJSON when ctx ends
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var evt models.ChangeEvent
		if err := conn.ReadJSON(&evt); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("realtime stream: %w", err)
		}
		handle(evt)
	}
}

