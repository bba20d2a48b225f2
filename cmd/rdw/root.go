package main

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"rdwrapper/internal/config"
	"rdwrapper/internal/logger"
	"rdwrapper/pkg/realdebrid"

	"github.com/spf13/cobra"
)

// cli holds the configuration shared by every command, environment first
// and then overridden by global flags.
type cli struct {
	cfg *config.Config

	token     string
	username  string
	password  string
	anonymous bool
	timeout   time.Duration
	logLevel  string
}

func newRootCmd() *cobra.Command {
	c := &cli{cfg: config.Load()}

	root := &cobra.Command{
		Use:           "rdw",
		Version:       version,
		Short:         "Query Real-Debrid and unrestrict hoster links.",
		Long:          "rdw talks to the Real-Debrid REST API: account details, server time, link support checks and link or folder unrestriction. Every command prints JSON.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.applyFlags(cmd)
			logger.New(c.cfg.LogLevel, c.cfg.LogDev)
			return nil
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&c.token, "token", "", "API token from https://real-debrid.com/apitoken (env RDW_API_TOKEN)")
	f.StringVar(&c.username, "username", "", "account username, exchanged for an API token (env RDW_USERNAME)")
	f.StringVar(&c.password, "password", "", "account password (env RDW_PASSWORD)")
	f.BoolVar(&c.anonymous, "anonymous", false, "only use endpoints that need no account (env RDW_ANONYMOUS)")
	f.DurationVar(&c.timeout, "timeout", realdebrid.DefaultTimeout, "timeout of a single request (env RDW_TIMEOUT)")
	f.StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error; logs go to stderr (env LOG_LEVEL)")

	root.AddCommand(
		c.accountCmd(),
		c.timeCmd(),
		c.checkCmd(),
		c.unrestrictCmd(),
		c.folderCmd(),
		c.disableTokenCmd(),
		c.regenerateTokenCmd(),
		c.serveCmd(),
	)
	return root
}

func (c *cli) applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("token") {
		c.cfg.APIToken = c.token
	}
	if flags.Changed("username") {
		c.cfg.Username = c.username
	}
	if flags.Changed("password") {
		c.cfg.Password = c.password
	}
	if flags.Changed("anonymous") {
		c.cfg.Anonymous = c.anonymous
	}
	if flags.Changed("timeout") {
		c.cfg.Timeout = c.timeout
	}
	if flags.Changed("log-level") {
		c.cfg.LogLevel = c.logLevel
	}
}

// withClient builds a client from the configuration, runs fn and releases
// the token cache.
func (c *cli) withClient(ctx context.Context, fn func(*realdebrid.Client) error) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	opts, cache, err := c.cfg.ClientOptions()
	if err != nil {
		return err
	}
	defer cache.Close()

	client, err := realdebrid.New(ctx, opts...)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
