package realdebrid

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

type unrestrictResponse struct {
	ID          string                `json:"id"`
	Filename    string                `json:"filename"`
	MimeType    string                `json:"mimeType"`
	Filesize    int64                 `json:"filesize"`
	Link        string                `json:"link"`
	Host        string                `json:"host"`
	Chunks      int                   `json:"chunks"`
	CRC         int                   `json:"crc"`
	Download    string                `json:"download"`
	Streamable  int                   `json:"streamable"`
	Quality     string                `json:"quality"`
	Alternative []alternativeResponse `json:"alternative"`
}

type alternativeResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Download string `json:"download"`
	MimeType string `json:"mimeType"`
	Quality  string `json:"quality"`
}

// UnrestrictOptions are the optional parameters of UnrestrictLink.
type UnrestrictOptions struct {
	Password string
	// RemoteTraffic makes the download count against the account's remote
	// traffic quota instead of the local one.
	RemoteTraffic bool
}

type UnrestrictResult struct {
	ID              string        `json:"id"`
	OriginalURL     string        `json:"originalUrl"`
	UnrestrictedURL string        `json:"unrestrictedUrl"`
	Filename        string        `json:"filename"`
	Size            int64         `json:"size"`
	Hoster          string        `json:"hoster"`
	MimeType        string        `json:"mimetype"`
	Streamable      bool          `json:"isStreamable"`
	Chunks          int           `json:"chunks,omitempty"`
	CRC             int           `json:"crc,omitempty"`
	Quality         string        `json:"quality,omitempty"`
	Alternatives    []Alternative `json:"collectedUrls,omitempty"`
}

// Alternative is another quality or format of the same file, as returned
// for streaming hosters.
type Alternative struct {
	ID              string `json:"id"`
	UnrestrictedURL string `json:"unrestrictedUrl,omitempty"`
	Filename        string `json:"filename"`
	MimeType        string `json:"mimetype"`
	Quality         string `json:"quality"`
}

func (r *UnrestrictResult) HasMultipleURLs() bool {
	return len(r.Alternatives) > 0
}

// IsURLSupported asks Real-Debrid whether it can unrestrict rawURL. A
// definitive refusal yields false, not an error. Rate limiting and other
// transient answers are returned as retryable errors.
func (c *Client) IsURLSupported(ctx context.Context, rawURL, password string) (bool, error) {
	if err := validateURL(rawURL); err != nil {
		return false, err
	}

	form := url.Values{}
	form.Set("link", rawURL)
	if password != "" {
		form.Set("password", password)
	}

	opts := restFormOpts("/unrestrict/check", form)
	opts.NoResponse = true

	_, err := c.callJSON(ctx, &opts, nil)
	if err == nil {
		return true, nil
	}

	var rdErr *Error
	if errors.As(err, &rdErr) && rdErr.Status != 0 && rdErr.Code != CodeAuthentication && !rdErr.Retryable() {
		return false, nil
	}
	return false, err
}

// UnrestrictLink converts a hoster link into a direct download link.
// It needs a premium account.
func (c *Client) UnrestrictLink(ctx context.Context, rawURL string, opts UnrestrictOptions) (*UnrestrictResult, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	if err := c.requirePremium(ctx); err != nil {
		return nil, err
	}
	return c.unrestrict(ctx, rawURL, opts)
}

func (c *Client) unrestrict(ctx context.Context, rawURL string, o UnrestrictOptions) (*UnrestrictResult, error) {
	form := url.Values{}
	form.Set("link", rawURL)
	if o.Password != "" {
		form.Set("password", o.Password)
	}
	if o.RemoteTraffic {
		form.Set("remote", "1")
	} else {
		form.Set("remote", "0")
	}

	opts := restFormOpts("/unrestrict/link", form)

	var result unrestrictResponse
	if _, err := c.callJSON(ctx, &opts, &result); err != nil {
		return nil, unrestrictError(err)
	}
	if result.Download == "" {
		return nil, newError(CodeRemoteService, "response is missing the download url")
	}
	return result.toResult(), nil
}

func (r *unrestrictResponse) toResult() *UnrestrictResult {
	res := &UnrestrictResult{
		ID:              r.ID,
		OriginalURL:     unescape(r.Link),
		UnrestrictedURL: unescape(r.Download),
		Filename:        strings.TrimSpace(r.Filename),
		Size:            r.Filesize,
		Hoster:          unescape(r.Host),
		MimeType:        r.MimeType,
		Streamable:      r.Streamable != 0,
		Chunks:          r.Chunks,
		CRC:             r.CRC,
	}
	if len(r.Alternative) > 0 {
		res.Quality = r.Quality
		for _, alt := range r.Alternative {
			a := Alternative{
				ID:       alt.ID,
				Filename: strings.TrimSpace(alt.Filename),
				MimeType: alt.MimeType,
				Quality:  alt.Quality,
			}
			if alt.Download != "" {
				a.UnrestrictedURL = unescape(alt.Download)
			}
			res.Alternatives = append(res.Alternatives, a)
		}
	}
	return res
}

// unrestrictError reports a plain client-side rejection of an unrestrict
// request as an unsupported host.
func unrestrictError(err error) error {
	var rdErr *Error
	if !errors.As(err, &rdErr) || rdErr.Code != CodeRemoteService {
		return err
	}
	if rdErr.Status < 400 || rdErr.Status >= 500 || rdErr.Retryable() {
		return err
	}
	cp := *rdErr
	cp.Code = CodeUnsupportedHost
	cp.Message = "the given url is not supported by Real-Debrid"
	return &cp
}

func validateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return newError(CodeValidation, "url must not be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return wrapError(err, CodeValidation, "url cannot be parsed")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return newError(CodeValidation, "url must be an absolute http or https url")
	}
	return nil
}
