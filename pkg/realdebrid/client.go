// Package realdebrid is a client for the Real-Debrid REST API.
//
// Every method performs one round trip (UnrestrictFolder with resolve set
// performs one per link) and returns an *Error on failure. Nothing is retried
// automatically: callers decide using (*Error).Retryable.
package realdebrid

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"rdwrapper/internal/client"
	"rdwrapper/internal/logger"

	"github.com/rclone/rclone/lib/rest"
	"go.uber.org/zap"
)

// CredentialMode is how a Client authenticates. It is fixed at construction.
type CredentialMode int

const (
	ModeAnonymous CredentialMode = iota
	ModeToken
	ModeCredentials
)

func (m CredentialMode) String() string {
	switch m {
	case ModeToken:
		return "token"
	case ModeCredentials:
		return "credentials"
	default:
		return "anonymous"
	}
}

const formContentType = "application/x-www-form-urlencoded"

type Client struct {
	api *client.Client
	web *client.Client
	log *zap.Logger

	mode     CredentialMode
	username string
	password string
	cache    TokenCache

	timeout           time.Duration
	folderConcurrency int
	folderPacing      time.Duration
	serverLocation    *time.Location

	mu         sync.RWMutex
	token      string
	authCookie string
	account    *AccountInfo

	closed atomic.Bool
}

// New builds a client and, unless it is anonymous, authenticates it: the
// token (given or obtained from username/password) is checked with one
// account lookup whose result is cached.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	o := &options{
		baseURL:           DefaultBaseURL,
		webURL:            DefaultWebURL,
		timeout:           DefaultTimeout,
		userAgent:         DefaultUserAgent,
		logger:            logger.L,
		folderConcurrency: DefaultFolderConcurrency,
		folderPacing:      DefaultFolderPacing,
	}
	for _, opt := range opts {
		opt(o)
	}

	mode, err := resolveMode(o)
	if err != nil {
		return nil, err
	}

	if o.serverLocation == nil {
		o.serverLocation = serverLocation()
	}

	c := &Client{
		log:               o.logger.Named("realdebrid").With(zap.Stringer("mode", mode)),
		mode:              mode,
		cache:             o.cache,
		timeout:           o.timeout,
		folderConcurrency: o.folderConcurrency,
		folderPacing:      o.folderPacing,
		serverLocation:    o.serverLocation,
	}

	httpOpts := []client.Option{
		client.WithTimeout(o.timeout),
		client.WithUserAgent(o.userAgent),
		client.WithHeader("Accept", "application/json"),
	}
	if o.connectTimeout > 0 {
		httpOpts = append(httpOpts, client.WithConnectTimeout(o.connectTimeout))
	}
	if o.proxy != "" {
		httpOpts = append(httpOpts, client.WithProxy(o.proxy))
	}
	if o.dump {
		httpOpts = append(httpOpts, client.WithDump(true, true))
	}

	c.api = client.New(ctx, strings.TrimRight(o.baseURL, "/"), httpOpts...)
	c.api.SetErrorHandler(errorHandler)

	switch mode {
	case ModeToken:
		c.setToken(o.apiToken)
		if _, err := c.FetchAccountInfo(ctx); err != nil {
			return nil, err
		}
	case ModeCredentials:
		c.username, c.password = o.username, o.password
		c.web = client.New(ctx, strings.TrimRight(o.webURL, "/"), client.WithTimeout(o.timeout), client.WithUserAgent(browserUserAgent))
		if err := c.authenticateWithCredentials(ctx); err != nil {
			return nil, err
		}
	}

	c.log.Debug("client ready", zap.String("base_url", o.baseURL))
	return c, nil
}

func resolveMode(o *options) (CredentialMode, error) {
	switch {
	case o.anonymous:
		return ModeAnonymous, nil
	case o.apiToken != "":
		return ModeToken, nil
	case o.username != "" && o.password != "":
		return ModeCredentials, nil
	case o.username != "" || o.password != "":
		return 0, newError(CodeConfiguration, "username and password must be given together")
	default:
		return 0, newError(CodeConfiguration, "an API token, a username and password, or anonymous access is required")
	}
}

func serverLocation() *time.Location {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Client) Mode() CredentialMode {
	return c.mode
}

// APIToken returns the token in use, empty for anonymous clients.
func (c *Client) APIToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Close marks the client unusable and drops its idle connections.
// Subsequent calls fail with CodeAuthentication.
func (c *Client) Close() {
	c.closed.Store(true)
	c.api.CloseIdleConnections()
	if c.web != nil {
		c.web.CloseIdleConnections()
	}
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	c.api.SetHeader("Authorization", "Bearer "+token)
}

func (c *Client) checkOpen() error {
	if c.closed.Load() {
		return newError(CodeAuthentication, "client is closed")
	}
	return nil
}

func restFormOpts(path string, form url.Values) rest.Opts {
	return rest.Opts{
		Method:      "POST",
		Path:        path,
		ContentType: formContentType,
		Body:        strings.NewReader(form.Encode()),
	}
}

func (c *Client) callJSON(ctx context.Context, opts *rest.Opts, response any) (*http.Response, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CallJSON(ctx, opts, nil, response)
	c.logCall(opts, resp, start, err)
	if err != nil {
		return resp, translateError(err)
	}
	return resp, nil
}

func (c *Client) callText(ctx context.Context, opts *rest.Opts) (string, error) {
	if err := c.checkOpen(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.Call(ctx, opts)
	c.logCall(opts, resp, start, err)
	if err != nil {
		return "", translateError(err)
	}

	body, err := rest.ReadBody(resp)
	if err != nil {
		return "", translateError(err)
	}
	return strings.TrimSpace(string(body)), nil
}

func (c *Client) logCall(opts *rest.Opts, resp *http.Response, start time.Time, err error) {
	if ce := c.log.Check(zap.DebugLevel, "api call"); ce != nil {
		fields := []zap.Field{
			zap.String("method", opts.Method),
			zap.String("path", opts.Path),
			zap.Duration("duration", time.Since(start)),
		}
		if resp != nil {
			fields = append(fields, zap.Int("status", resp.StatusCode))
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		ce.Write(fields...)
	}
}
