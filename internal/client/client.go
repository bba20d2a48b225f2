package client

import (
	"context"
	"net/http"
	"time"

	"github.com/rclone/rclone/fs"
	"github.com/rclone/rclone/fs/fshttp"
	"github.com/rclone/rclone/lib/rest"
)

// Client is a rest.Client that keeps hold of its own http.Client.
type Client struct {
	*rest.Client
	http *http.Client
}

// CloseIdleConnections closes keep-alive connections that are not in use.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

// Option modifies the rclone ConfigInfo to configure the underlying fshttp client
type Option func(*fs.ConfigInfo)

// New creates a new rest.Client backed by an fshttp.Client.
// The options are applied to a private copy of the rclone config carried by ctx.
func New(ctx context.Context, baseURL string, opts ...Option) *Client {
	ctx, ci := fs.AddConfig(ctx)
	for _, opt := range opts {
		opt(ci)
	}

	hc := fshttp.NewClient(ctx)
	rc := rest.NewClient(hc)
	if baseURL != "" {
		rc.SetRoot(baseURL)
	}
	return &Client{Client: rc, http: hc}
}

// WithTimeout sets the IO idle timeout of a single request.
func WithTimeout(d time.Duration) Option {
	return func(ci *fs.ConfigInfo) {
		ci.Timeout = fs.Duration(d)
	}
}

// WithConnectTimeout sets the time to wait for a TCP connection to be established.
func WithConnectTimeout(d time.Duration) Option {
	return func(ci *fs.ConfigInfo) {
		ci.ConnectTimeout = fs.Duration(d)
	}
}

// WithProxy sets a specific proxy URL (e.g. http://..., socks5://...).
func WithProxy(proxyURL string) Option {
	return func(ci *fs.ConfigInfo) {
		ci.Proxy = proxyURL
	}
}

// WithUserAgent sets the User-Agent header for all requests.
func WithUserAgent(ua string) Option {
	return func(ci *fs.ConfigInfo) {
		ci.UserAgent = ua
	}
}

// WithHeader adds a global header to all requests.
// Can be called multiple times to add multiple headers.
func WithHeader(key, value string) Option {
	return func(ci *fs.ConfigInfo) {
		ci.Headers = append(ci.Headers, &fs.HTTPOption{
			Key:   key,
			Value: value,
		})
	}
}

// WithDump enables debug dumps of requests and responses through the rclone
// logger. Auth headers are never included.
func WithDump(headers, bodies bool) Option {
	return func(ci *fs.ConfigInfo) {
		var flags fs.DumpFlags
		if headers {
			flags |= fs.DumpHeaders | fs.DumpRequests | fs.DumpResponses
		}
		if bodies {
			flags |= fs.DumpBodies
		}
		ci.Dump = flags
	}
}
