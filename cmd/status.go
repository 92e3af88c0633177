// -- cmd/status.go --
package cmd

import (
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Query the remote end's build and host information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			st, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			if cfg.Output.Format == "json" {
				return emitJSON(cmd, st)
			}

			cmd.Printf("server:   %s\n", client.BaseURL())
			cmd.Printf("build:    %s (rev %s, %s)\n", st.Build.Version, st.Build.Revision, st.Build.Time)
			cmd.Printf("os:       %s %s (%s)\n", st.OS.Name, st.OS.Version, st.OS.Arch)
			return nil
		},
	}
}
