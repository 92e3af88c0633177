// -- cmd/navigate.go --
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/selwire/jsonwire"
)

func newNavigateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "navigate URL",
		Short: "Point the browser at a URL and report the resulting page title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, sess *jsonwire.Session) error {
				if err := sess.Navigate(ctx, args[0]); err != nil {
					return err
				}
				title, err := sess.Title(ctx)
				if err != nil {
					return err
				}
				cmd.Println(title)
				return nil
			})
		},
	}
}
