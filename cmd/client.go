// -- cmd/client.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/selwire/jsonwire"
	"github.com/selwire/jsonwire/internal/config"
	"github.com/selwire/jsonwire/internal/observability"
	"github.com/selwire/jsonwire/transport"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// closeGrace bounds the cleanup of throwaway sessions after the command
// context is already done.
const closeGrace = 10 * time.Second

// configFromCmd retrieves the config stored by the root PersistentPreRunE.
func configFromCmd(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration missing from command context")
	}
	return cfg, nil
}

// newClient builds a protocol client from the resolved config.
func newClient(cmd *cobra.Command) (*jsonwire.Client, *config.Config, error) {
	cfg, err := configFromCmd(cmd)
	if err != nil {
		return nil, nil, err
	}

	log := observability.GetLogger()

	tc := transport.DefaultConfig()
	tc.RequestTimeout = cfg.Server.Timeout
	tc.IgnoreTLSErrors = cfg.Server.IgnoreTLSErrors
	tc.RequestsPerSecond = cfg.Server.RequestsPerSecond
	tc.Logger = log.Named("transport")
	if cfg.Server.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Server.Proxy)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.Server.Proxy, err)
		}
		tc.ProxyURL = proxyURL
	}

	client, err := jsonwire.New(cfg.Server.URL,
		jsonwire.WithLogger(log),
		jsonwire.WithTransport(transport.NewClient(tc)),
	)
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

// withSession runs fn against either the session named by --session or a
// throwaway session that is deleted again afterwards.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, sess *jsonwire.Session) error) error {
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := cmd.Context()

	if id, _ := cmd.Flags().GetString("session"); id != "" {
		return fn(ctx, client.Attach(id))
	}

	sess, err := client.NewSession(ctx, nil, nil)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer func() {
		// The command context may already be canceled; give the delete
		// its own deadline so the remote end is not left holding a browser.
		closeCtx, cancel := context.WithTimeout(context.Background(), closeGrace)
		defer cancel()
		if err := sess.Close(closeCtx); err != nil {
			observability.GetLogger().Warn("failed to close throwaway session",
				zap.String("session_id", sess.ID), zap.Error(err))
		}
	}()

	return fn(ctx, sess)
}

// emitJSON pretty-prints v on the command's stdout.
func emitJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	cmd.Println(string(out))
	return nil
}
