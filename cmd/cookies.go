// -- cmd/cookies.go --
package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/selwire/jsonwire"
)

func newCookiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cookies [URL]",
		Short: "List or delete the session's cookies, optionally navigating first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromCmd(cmd)
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, sess *jsonwire.Session) error {
				if len(args) == 1 {
					if err := sess.Navigate(ctx, args[0]); err != nil {
						return err
					}
				}

				if name, _ := cmd.Flags().GetString("delete"); name != "" {
					if err := sess.DeleteCookie(ctx, name); err != nil {
						return err
					}
					cmd.Printf("deleted cookie %s\n", name)
					return nil
				}
				if clear, _ := cmd.Flags().GetBool("clear"); clear {
					if err := sess.DeleteCookies(ctx); err != nil {
						return err
					}
					cmd.Println("deleted all cookies")
					return nil
				}

				cookies, err := sess.Cookies(ctx)
				if err != nil {
					return err
				}

				if cfg.Output.Format == "json" {
					return emitJSON(cmd, cookies)
				}
				if len(cookies) == 0 {
					cmd.Println("no cookies")
					return nil
				}
				for _, ck := range cookies {
					line := ck.Name + "=" + ck.Value
					if ck.Domain != "" {
						line += "  domain=" + ck.Domain
					}
					if ck.Path != "" {
						line += "  path=" + ck.Path
					}
					if ck.Expiry > 0 {
						line += "  expires=" + time.Unix(ck.Expiry, 0).UTC().Format(time.RFC3339)
					}
					if ck.Secure {
						line += "  secure"
					}
					if ck.HTTPOnly {
						line += "  httponly"
					}
					cmd.Println(line)
				}
				return nil
			})
		},
	}
	cmd.Flags().String("delete", "", "delete the cookie with this name")
	cmd.Flags().Bool("clear", false, "delete every cookie visible to the session")
	return cmd
}
