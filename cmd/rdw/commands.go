package main

import (
	"rdwrapper/internal/api"
	"rdwrapper/internal/app"
	"rdwrapper/internal/logger"
	"rdwrapper/pkg/realdebrid"

	"github.com/spf13/cobra"
)

func (c *cli) accountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show the account behind the configured credentials.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(cmd.Context(), func(rd *realdebrid.Client) error {
				info, err := rd.AccountInfo(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), api.NewAccountResponse(info))
			})
		},
	}
}

func (c *cli) timeCmd() *cobra.Command {
	var iso, unix bool
	cmd := &cobra.Command{
		Use:   "time",
		Short: "Show the Real-Debrid server time.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(cmd.Context(), func(rd *realdebrid.Client) error {
				ctx := cmd.Context()
				var resp api.TimeResponse
				var ts int64
				var err error
				switch {
				case iso && unix:
					ts, err = rd.ServerISOTimeUnix(ctx)
					resp = api.UnixTimeResponse(ts)
				case iso:
					resp.Time, err = rd.ServerISOTime(ctx)
				case unix:
					ts, err = rd.ServerTimeUnix(ctx)
					resp = api.UnixTimeResponse(ts)
				default:
					resp.Time, err = rd.ServerTime(ctx)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	cmd.Flags().BoolVar(&iso, "iso", false, "use the ISO 8601 endpoint, which carries the UTC offset")
	cmd.Flags().BoolVar(&unix, "unix", false, "print a unix timestamp")
	return cmd
}

func (c *cli) checkCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "check URL",
		Short: "Tell whether Real-Debrid can unrestrict a link.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(cmd.Context(), func(rd *realdebrid.Client) error {
				ok, err := rd.IsURLSupported(cmd.Context(), args[0], password)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), api.CheckLinkResponse{URL: args[0], Supported: ok})
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password protecting the link")
	return cmd
}

func (c *cli) unrestrictCmd() *cobra.Command {
	var opts realdebrid.UnrestrictOptions
	cmd := &cobra.Command{
		Use:   "unrestrict URL",
		Short: "Turn a hoster link into a direct download link (premium).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(cmd.Context(), func(rd *realdebrid.Client) error {
				res, err := rd.UnrestrictLink(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Password, "password", "", "password protecting the link")
	cmd.Flags().BoolVar(&opts.RemoteTraffic, "remote", false, "count the download against remote traffic")
	return cmd
}

func (c *cli) folderCmd() *cobra.Command {
	var resolve bool
	cmd := &cobra.Command{
		Use:   "folder URL",
		Short: "List the links of a hoster folder (premium).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(cmd.Context(), func(rd *realdebrid.Client) error {
				entries, err := rd.UnrestrictFolder(cmd.Context(), args[0], resolve)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), api.NewFolderResponse(args[0], entries))
			})
		},
	}
	cmd.Flags().BoolVar(&resolve, "resolve", false, "also unrestrict every link of the folder")
	return cmd
}

type tokenResponse struct {
	Token    string `json:"token"`
	Disabled bool   `json:"disabled,omitempty"`
}

func (c *cli) disableTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable-token",
		Short: "Revoke the API token in use.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(cmd.Context(), func(rd *realdebrid.Client) error {
				token := rd.APIToken()
				if err := rd.DisableCurrentToken(cmd.Context()); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), tokenResponse{Token: realdebrid.MaskToken(token), Disabled: true})
			})
		},
	}
}

func (c *cli) regenerateTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate-token",
		Short: "Replace the API token of the account (username and password only).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(cmd.Context(), func(rd *realdebrid.Client) error {
				token, err := rd.RegenerateAPIToken(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), tokenResponse{Token: token})
			})
		},
	}
}

func (c *cli) serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON gateway under /api/v1.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				c.cfg.Port = port
			}

			a, err := app.New(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}

			logger.PrintBanner(cmd.ErrOrStderr(), logger.StartupInfo{
				Version:  version,
				Addr:     a.Addr(),
				Mode:     a.Mode().String(),
				LogLevel: c.cfg.LogLevel,
			})
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "listen port (env PORT)")
	return cmd
}
