// -- cmd/mock.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/selwire/jsonwire/internal/observability"
	"github.com/selwire/jsonwire/wiretest"
)

func newMockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Serve an in-memory fake remote end for development and CI",
		Long: `mock runs a WebDriver remote end that keeps sessions, cookies and
windows in memory and answers wire protocol commands without a real
browser. It runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := observability.GetLogger().Named("mock")

			listen, _ := cmd.Flags().GetString("listen")
			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("mock listen on %s: %w", listen, err)
			}

			server := &http.Server{
				Handler:      wiretest.New(log),
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 60 * time.Second,
				IdleTimeout:  120 * time.Second,
				ErrorLog:     zap.NewStdLog(log.Named("http_server")),
			}

			shutdownErr := make(chan error, 1)
			go func() {
				<-cmd.Context().Done()
				log.Info("shutdown signal received, stopping mock remote end")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				shutdownErr <- server.Shutdown(shutdownCtx)
			}()

			cmd.Printf("mock remote end at http://%s/wd/hub\n", ln.Addr())
			if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("mock server failed: %w", err)
			}
			if err := <-shutdownErr; err != nil {
				return fmt.Errorf("mock shutdown: %w", err)
			}
			log.Info("mock remote end stopped")
			return nil
		},
	}
	cmd.Flags().String("listen", "127.0.0.1:4444", "listen address for the mock remote end")
	return cmd
}
