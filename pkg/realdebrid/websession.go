package realdebrid

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"rdwrapper/internal/logger"

	"github.com/rclone/rclone/lib/rest"
	"go.uber.org/zap"
)

// The username/password exchange goes through the website, which answers
// differently to non-browser agents.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var tokenValueRe = regexp.MustCompile(`value\s*=\s*'([^']+)'`)

type loginResponse struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
	Cookie  string `json:"cookie"`
}

func (c *Client) authenticateWithCredentials(ctx context.Context) error {
	if c.cache != nil {
		token, ok, err := c.cache.Get(ctx, c.username, c.password)
		switch {
		case err != nil:
			c.log.Warn("token cache lookup failed", zap.Error(err))
		case ok:
			c.setToken(token)
			_, err := c.FetchAccountInfo(ctx)
			if err == nil {
				c.log.Debug("using cached API token", logger.Token("token", token))
				return nil
			}
			if !errors.Is(err, ErrAuthentication) {
				return err
			}
			c.log.Debug("cached API token rejected, logging in again")
		}
	}

	cookie, err := c.login(ctx)
	if err != nil {
		return err
	}
	token, err := c.apiTokenPage(ctx, "GET", cookie)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.authCookie = cookie
	c.mu.Unlock()
	c.setToken(token)

	if _, err := c.FetchAccountInfo(ctx); err != nil {
		return err
	}
	c.storeToken(ctx, token)
	return nil
}

// RegenerateAPIToken asks the website for a fresh API token, which
// invalidates the previous one, and switches the client to it. Only clients
// built with WithCredentials hold the web session needed for this.
func (c *Client) RegenerateAPIToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	cookie := c.authCookie
	c.mu.RUnlock()

	if c.mode != ModeCredentials {
		return "", newError(CodeAuthentication, "regenerating a token needs a username and password")
	}
	if err := c.checkOpen(); err != nil {
		return "", err
	}
	if cookie == "" {
		var err error
		if cookie, err = c.login(ctx); err != nil {
			return "", err
		}
		c.mu.Lock()
		c.authCookie = cookie
		c.mu.Unlock()
	}

	token, err := c.apiTokenPage(ctx, "POST", cookie)
	if err != nil {
		return "", err
	}
	c.setToken(token)
	c.storeToken(ctx, token)
	c.log.Info("API token regenerated", logger.Token("token", token))
	return token, nil
}

func (c *Client) storeToken(ctx context.Context, token string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, c.username, c.password, token); err != nil {
		c.log.Warn("failed to cache API token", zap.Error(err))
	}
}

// login returns the value of the "auth" session cookie.
func (c *Client) login(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("user", c.username)
	params.Set("pass", c.password)
	params.Set("pin_challenge", "")
	params.Set("pin_answer", "PIN: 000000")
	params.Set("time", strconv.FormatFloat(float64(time.Now().UnixMicro())/1e6, 'f', 6, 64))

	opts := rest.Opts{
		Method:       "GET",
		Path:         "/ajax/login.php",
		Parameters:   params,
		ExtraHeaders: map[string]string{"X-Requested-With": "XMLHttpRequest"},
		IgnoreStatus: true,
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.web.Call(ctx, &opts)
	if err != nil {
		return "", translateError(err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return "", &Error{Code: CodeAuthentication, Message: "invalid Real-Debrid username or password", Status: resp.StatusCode}
	}

	var result loginResponse
	if err := rest.DecodeJSON(resp, &result); err != nil {
		return "", wrapError(err, CodeRemoteService, "malformed login response")
	}
	if result.Error != 0 {
		return "", &Error{Code: CodeAuthentication, Message: "invalid Real-Debrid username or password", RemoteError: result.Message, RemoteCode: result.Error}
	}

	cookie := strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(result.Cookie), "auth="), ";", ""))
	if cookie == "" {
		return "", newError(CodeRemoteService, "login response carries no session cookie")
	}
	return cookie, nil
}

// apiTokenPage loads (GET) or regenerates (POST) https://real-debrid.com/apitoken
// and extracts the token from it.
func (c *Client) apiTokenPage(ctx context.Context, method, cookie string) (string, error) {
	opts := rest.Opts{
		Method:       method,
		Path:         "/apitoken",
		ExtraHeaders: map[string]string{"Cookie": "auth=" + cookie},
		IgnoreStatus: true,
	}
	if method == "POST" {
		form := url.Values{}
		form.Set("refresh", "1")
		opts.ContentType = formContentType
		opts.Body = strings.NewReader(form.Encode())
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.web.Call(ctx, &opts)
	if err != nil {
		return "", translateError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{Code: CodeRemoteService, Message: "failed to load the API token page", Status: resp.StatusCode}
	}
	return parseAPITokenPage(resp.Body)
}

func parseAPITokenPage(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", wrapError(err, CodeRemoteService, "failed to parse the API token page")
	}

	var token string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, "document.querySelectorAll") {
			return true
		}
		if m := tokenValueRe.FindStringSubmatch(text); m != nil {
			token = m[1]
			return false
		}
		return true
	})

	if token == "" {
		return "", newError(CodeRemoteService, "no API token found on the API token page")
	}
	return token, nil
}
