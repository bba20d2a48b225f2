package realdebrid

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"rdwrapper/internal/logger"

	"github.com/rclone/rclone/lib/rest"
	"go.uber.org/zap"
)

// TokenCache stores API tokens obtained from a username/password exchange.
// Implementations must not keep the password in clear text; CacheKey gives
// a suitable key.
type TokenCache interface {
	Get(ctx context.Context, username, password string) (token string, ok bool, err error)
	Set(ctx context.Context, username, password, token string) error
	Delete(ctx context.Context, username, password string) error
}

// CacheKey derives the cache key of an account.
func CacheKey(username, password string) string {
	sum := sha256.Sum256([]byte(username + "\x00" + password))
	return hex.EncodeToString(sum[:])
}

// MaskToken hides the middle of a token: "123456789" becomes "123***789".
func MaskToken(s string) string {
	return logger.Mask(s)
}

// DisableCurrentToken revokes the token in use. The client is closed
// afterwards whatever the outcome; a new token is shown at
// https://real-debrid.com/apitoken.
func (c *Client) DisableCurrentToken(ctx context.Context) error {
	if c.mode == ModeAnonymous {
		return newError(CodeAuthentication, "anonymous clients have no API token")
	}
	defer c.Close()

	opts := rest.Opts{
		Method:     "GET",
		Path:       "/disable_access_token",
		NoResponse: true,
	}
	if _, err := c.callJSON(ctx, &opts, nil); err != nil {
		return err
	}

	token := c.APIToken()
	c.log.Info("API token disabled", logger.Token("token", token))

	if c.mode == ModeCredentials && c.cache != nil {
		if err := c.cache.Delete(ctx, c.username, c.password); err != nil {
			c.log.Warn("failed to drop cached token", zap.Error(err))
		}
	}
	return nil
}
