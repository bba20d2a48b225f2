package realdebrid

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rclone/rclone/lib/rest"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type userResponse struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Points     int64  `json:"points"`
	Locale     string `json:"locale"`
	Avatar     string `json:"avatar"`
	Type       string `json:"type"`
	Premium    int64  `json:"premium"`
	Expiration string `json:"expiration"`
}

// AccountInfo is a snapshot of GET /user. It is never mutated once returned.
type AccountInfo struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	FidelityPoints int64  `json:"fidelityPoints"`
	LanguageCode   string `json:"languageCode"`
	AvatarURL      string `json:"avatarUrl"`
	Type           string `json:"type"`
	// PremiumSeconds is the remaining premium time as reported by the API.
	PremiumSeconds        int64     `json:"premiumSeconds"`
	PremiumPlanExpiration time.Time `json:"premiumPlanExpiration"`
}

func (a *AccountInfo) IsPremium() bool {
	return strings.TrimSpace(a.Type) == "premium"
}

// AccountType is "Premium" or "Free".
func (a *AccountInfo) AccountType() string {
	if a.IsPremium() {
		return "Premium"
	}
	return "Free"
}

// PremiumPlanExpirationTimestamp is the plan expiration in Unix seconds, 0 if unknown.
func (a *AccountInfo) PremiumPlanExpirationTimestamp() int64 {
	if a.PremiumPlanExpiration.IsZero() {
		return 0
	}
	return a.PremiumPlanExpiration.Unix()
}

// LanguageName is the English name of the account locale, "Unknown" when
// the locale cannot be read.
func (a *AccountInfo) LanguageName() string {
	return languageName(a.LanguageCode)
}

func languageName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	tag, err := language.Parse(code)
	if err != nil || tag == language.Und {
		return "Unknown"
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return "Unknown"
	}
	return name
}

func (u *userResponse) toAccountInfo() *AccountInfo {
	info := &AccountInfo{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		FidelityPoints: u.Points,
		LanguageCode:   u.Locale,
		AvatarURL:      unescape(u.Avatar),
		Type:           strings.TrimSpace(u.Type),
		PremiumSeconds: u.Premium,
	}
	if u.Expiration != "" {
		if t, err := time.Parse(time.RFC3339Nano, u.Expiration); err == nil {
			info.PremiumPlanExpiration = t
		}
	}
	return info
}

// FetchAccountInfo performs GET /user and replaces the cached snapshot.
func (c *Client) FetchAccountInfo(ctx context.Context) (*AccountInfo, error) {
	if c.mode == ModeAnonymous {
		return nil, newError(CodeAuthentication, "account information requires an authenticated client")
	}

	opts := rest.Opts{
		Method: "GET",
		Path:   "/user",
	}

	var result userResponse
	if _, err := c.callJSON(ctx, &opts, &result); err != nil {
		return nil, err
	}

	info := result.toAccountInfo()
	c.mu.Lock()
	c.account = info
	c.mu.Unlock()

	cp := *info
	return &cp, nil
}

// AccountInfo returns the cached snapshot, fetching it on first use.
func (c *Client) AccountInfo(ctx context.Context) (*AccountInfo, error) {
	c.mu.RLock()
	info := c.account
	c.mu.RUnlock()

	if info != nil {
		cp := *info
		return &cp, nil
	}
	return c.FetchAccountInfo(ctx)
}

func (c *Client) requirePremium(ctx context.Context) error {
	info, err := c.AccountInfo(ctx)
	if err != nil {
		return err
	}
	if !info.IsPremium() {
		return newError(CodePremiumRequired, "only premium users can use this function, see https://real-debrid.com/premium")
	}
	return nil
}

func unescape(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}
