// -- cmd/driver.go --
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/selwire/jsonwire/driver"
	"github.com/selwire/jsonwire/internal/observability"
)

func newDriverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "driver",
		Short: "Supervise a local driver binary (chromedriver or geckodriver)",
		Long: `driver starts the binary named by driver.path, waits until its status
endpoint answers, and keeps it running until interrupted. On shutdown
the driver gets an interrupt and a grace period before being killed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromCmd(cmd)
			if err != nil {
				return err
			}
			if cfg.Driver.Path == "" {
				return errors.New("driver.path is not configured")
			}
			binPath, err := homedir.Expand(cfg.Driver.Path)
			if err != nil {
				return fmt.Errorf("could not resolve driver path %q: %w", cfg.Driver.Path, err)
			}

			log := observability.GetLogger()

			opts := []driver.Option{
				driver.WithLogger(log),
				driver.WithStartTimeout(cfg.Driver.StartTimeout),
			}
			if cfg.Driver.Port != 0 {
				opts = append(opts, driver.WithPort(cfg.Driver.Port))
			}
			if cfg.Driver.LogPath != "" {
				opts = append(opts, driver.WithLogPath(cfg.Driver.LogPath))
			}
			if len(cfg.Driver.Args) > 0 {
				opts = append(opts, driver.WithArgs(cfg.Driver.Args...))
			}

			var svc *driver.Service
			switch cfg.Driver.Kind {
			case "geckodriver":
				svc, err = driver.NewGecko(binPath, opts...)
			default:
				svc, err = driver.NewChrome(binPath, opts...)
			}
			if err != nil {
				return err
			}

			// Start with a background context: tying the process to the
			// command context would SIGKILL it on the first Ctrl-C, before
			// Stop can deliver the interrupt and grace period.
			if err := svc.Start(context.Background()); err != nil {
				return err
			}
			cmd.Printf("driver ready at %s\n", svc.URL())

			<-cmd.Context().Done()
			return svc.Stop()
		},
	}
}
