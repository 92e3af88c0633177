// -- cmd/sessions.go --
package cmd

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List the sessions currently open on the remote end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx := cmd.Context()
			entries, err := client.Sessions(ctx)
			if err != nil {
				return err
			}

			withURLs, _ := cmd.Flags().GetBool("urls")

			urls := make([]string, len(entries))
			if withURLs {
				// One in-flight URL fetch per session; the first failure
				// cancels the rest.
				g, gctx := errgroup.WithContext(ctx)
				for i, entry := range entries {
					i, entry := i, entry
					g.Go(func() error {
						u, err := client.Attach(entry.ID).URL(gctx)
						if err != nil {
							return err
						}
						urls[i] = u
						return nil
					})
				}
				if err := g.Wait(); err != nil {
					return err
				}
			}

			if cfg.Output.Format == "json" {
				type row struct {
					ID           string         `json:"id"`
					Capabilities map[string]any `json:"capabilities,omitempty"`
					URL          string         `json:"url,omitempty"`
				}
				rows := make([]row, len(entries))
				for i, entry := range entries {
					rows[i] = row{ID: entry.ID, Capabilities: entry.Capabilities, URL: urls[i]}
				}
				return emitJSON(cmd, rows)
			}

			if len(entries) == 0 {
				cmd.Println("no open sessions")
				return nil
			}
			for i, entry := range entries {
				if withURLs {
					cmd.Printf("%s  %s\n", entry.ID, urls[i])
				} else {
					cmd.Printf("%s  browser=%v\n", entry.ID, entry.Capabilities["browserName"])
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("urls", false, "also fetch each session's current URL")
	return cmd
}
