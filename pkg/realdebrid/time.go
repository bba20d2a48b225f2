package realdebrid

import (
	"context"
	"time"

	"github.com/rclone/rclone/lib/rest"
)

const (
	serverTimeLayout    = "2006-01-02 15:04:05"
	serverISOTimeLayout = "2006-01-02T15:04:05-0700"
)

// ServerTime returns GET /time as sent, e.g. "2024-05-05 12:00:00".
func (c *Client) ServerTime(ctx context.Context) (string, error) {
	return c.callText(ctx, &rest.Opts{Method: "GET", Path: "/time"})
}

// ServerTimeUnix returns GET /time as Unix seconds. The answer carries no
// zone; it is read in the server location (Europe/Paris unless overridden).
func (c *Client) ServerTimeUnix(ctx context.Context) (int64, error) {
	raw, err := c.ServerTime(ctx)
	if err != nil {
		return 0, err
	}
	t, err := time.ParseInLocation(serverTimeLayout, raw, c.serverLocation)
	if err != nil {
		return 0, wrapError(err, CodeRemoteService, "unexpected server time format")
	}
	return t.Unix(), nil
}

// ServerISOTime returns GET /time/iso as sent, e.g. "2024-05-05T12:00:00+0200".
func (c *Client) ServerISOTime(ctx context.Context) (string, error) {
	return c.callText(ctx, &rest.Opts{Method: "GET", Path: "/time/iso"})
}

func (c *Client) ServerISOTimeUnix(ctx context.Context) (int64, error) {
	raw, err := c.ServerISOTime(ctx)
	if err != nil {
		return 0, err
	}
	t, err := time.Parse(serverISOTimeLayout, raw)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, raw); err != nil {
			return 0, wrapError(err, CodeRemoteService, "unexpected server time format")
		}
	}
	return t.Unix(), nil
}
