package realdebrid

import (
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL           = "https://api.real-debrid.com/rest/1.0"
	DefaultWebURL            = "https://real-debrid.com"
	DefaultTimeout           = 10 * time.Second
	DefaultFolderConcurrency = 4
	DefaultFolderPacing      = 100 * time.Millisecond
	DefaultUserAgent         = "rdwrapper"
)

type options struct {
	apiToken  string
	username  string
	password  string
	anonymous bool

	baseURL        string
	webURL         string
	timeout        time.Duration
	connectTimeout time.Duration
	proxy          string
	userAgent      string
	dump           bool

	logger            *zap.Logger
	cache             TokenCache
	folderConcurrency int
	folderPacing      time.Duration
	serverLocation    *time.Location
}

// Option configures a Client.
type Option func(*options)

// WithAPIToken authenticates with an API token from https://real-debrid.com/apitoken.
func WithAPIToken(token string) Option {
	return func(o *options) {
		o.apiToken = token
	}
}

// WithCredentials authenticates with an account username and password. They
// are exchanged once for an API token during New.
func WithCredentials(username, password string) Option {
	return func(o *options) {
		o.username = username
		o.password = password
	}
}

// WithAnonymousAccess restricts the client to endpoints that need no account.
// It takes precedence over any credentials.
func WithAnonymousAccess() Option {
	return func(o *options) {
		o.anonymous = true
	}
}

// WithTimeout bounds every round trip made by a single method call.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) {
		o.connectTimeout = d
	}
}

func WithBaseURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithWebURL overrides the site used for the username/password exchange.
func WithWebURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.webURL = u
		}
	}
}

func WithProxy(proxyURL string) Option {
	return func(o *options) {
		o.proxy = proxyURL
	}
}

func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithHTTPDump dumps request and response headers and bodies at debug level.
func WithHTTPDump(enable bool) Option {
	return func(o *options) {
		o.dump = enable
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTokenCache remembers the API token obtained from a username/password
// exchange so the next client can skip the web login.
func WithTokenCache(c TokenCache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithFolderConcurrency bounds the number of links unrestricted in parallel
// by UnrestrictFolder.
func WithFolderConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.folderConcurrency = n
		}
	}
}

// WithFolderPacing sets the minimum delay between two unrestrict requests
// issued by UnrestrictFolder.
func WithFolderPacing(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.folderPacing = d
		}
	}
}

// WithServerLocation sets the time zone used to read the plain /time answer.
func WithServerLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.serverLocation = loc
		}
	}
}
