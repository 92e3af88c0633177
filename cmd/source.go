// -- cmd/source.go --
package cmd

import (
	"context"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/selwire/jsonwire"
)

func newSourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source [URL]",
		Short: "Dump the current page source, optionally navigating first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, sess *jsonwire.Session) error {
				if len(args) == 1 {
					if err := sess.Navigate(ctx, args[0]); err != nil {
						return err
					}
				}

				src, err := sess.Source(ctx)
				if err != nil {
					return err
				}

				out, _ := cmd.Flags().GetString("output")
				if out == "" {
					cmd.Println(src)
					return nil
				}
				if err := afero.WriteFile(outputFS, out, []byte(src), 0o644); err != nil {
					return err
				}
				cmd.Printf("wrote %d bytes to %s\n", len(src), out)
				return nil
			})
		},
	}
	cmd.Flags().StringP("output", "o", "", "write the source to this file instead of stdout")
	return cmd
}
