// -- cmd/screenshot.go --
package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/selwire/jsonwire"
)

// outputFS is the filesystem command output lands on. Tests swap in an
// in-memory fs.
var outputFS afero.Fs = afero.NewOsFs()

func newScreenshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screenshot [URL]",
		Short: "Capture the current page as a PNG, optionally navigating first",
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

				img, err := sess.Screenshot(ctx)
				if err != nil {
					return err
				}

				path, _ := cmd.Flags().GetString("output")
				if path == "" {
					name := fmt.Sprintf("screenshot-%s.png", time.Now().Format("20060102-150405"))
					path = filepath.Join(cfg.Output.Dir, name)
				}
				if err := afero.WriteFile(outputFS, path, img, 0o644); err != nil {
					return err
				}
				cmd.Printf("wrote %d bytes to %s\n", len(img), path)
				return nil
			})
		},
	}
	cmd.Flags().StringP("output", "o", "", "write the PNG here (default <output.dir>/screenshot-<timestamp>.png)")
	return cmd
}
