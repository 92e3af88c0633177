// -- cmd/proxy.go --
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/selwire/jsonwire/internal/observability"
	"github.com/selwire/jsonwire/internal/proxy"
)

func newProxyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Run a wiretap proxy that logs wire protocol traffic passing through it",
		Long: `proxy starts a forward HTTP proxy that decodes JSON Wire Protocol
envelopes as they pass through and logs every command and its outcome.
Point a client at it with --via or any HTTP_PROXY-style setting.
It runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromCmd(cmd)
			if err != nil {
				return err
			}

			listen := cfg.Proxy.Listen
			if cmd.Flags().Changed("listen") {
				listen, _ = cmd.Flags().GetString("listen")
			}
			verbose := cfg.Proxy.Verbose
			if cmd.Flags().Changed("verbose") {
				verbose, _ = cmd.Flags().GetBool("verbose")
			}

			w := proxy.New(observability.GetLogger(), verbose)
			return w.Start(cmd.Context(), listen)
		},
	}
	cmd.Flags().String("listen", "", "listen address (default from config, 127.0.0.1:8080)")
	cmd.Flags().Bool("verbose", false, "log request and response bodies")
	return cmd
}
