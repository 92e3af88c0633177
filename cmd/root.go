// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/selwire/jsonwire/internal/config"
	"github.com/selwire/jsonwire/internal/observability"
)

// contextKey keeps the config's context slot private to this package.
type contextKey int

const configKey contextKey = iota

var cfgFile string

// NewRootCommand assembles the wirectl command tree. Each invocation builds
// a fresh tree so state cannot leak between runs.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "wirectl",
		Short:   "wirectl speaks the Selenium JSON Wire Protocol from the command line.",
		Version: Version,
		Long: `wirectl drives WebDriver remote ends over the JSON Wire Protocol.
It can query a running Selenium server, run one-shot browser commands,
supervise local driver binaries, and wiretap protocol traffic.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Runs before every command: resolve config, then logging.
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v); err != nil {
				return err
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				// Fall back to a plain logger so the failure is readable.
				observability.InitializeLogger(config.LoggerConfig{
					Level: "info", Format: "console", ServiceName: "wirectl",
				})
				return err
			}

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("starting wirectl", zap.String("version", Version))

			// Subcommands read the validated config back out of the context.
			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	// cobra prints to stderr unless an out writer is set. Command results
	// belong on stdout; logs already go to stderr.
	root.SetOut(os.Stdout)

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./wirectl.yaml)")
	root.PersistentFlags().StringP("server", "s", "", "remote end URL (overrides config)")
	root.PersistentFlags().String("session", "", "operate on an existing session id instead of a throwaway session")
	root.PersistentFlags().String("via", "", "route commands through this HTTP proxy, e.g. a running wiretap")
	root.PersistentFlags().StringP("format", "f", "", "output format: text or json (overrides config)")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(newStatusCmd())
	root.AddCommand(newSessionsCmd())
	root.AddCommand(newNavigateCmd())
	root.AddCommand(newSourceCmd())
	root.AddCommand(newScreenshotCmd())
	root.AddCommand(newCookiesCmd())
	root.AddCommand(newExecCmd())
	root.AddCommand(newDriverCmd())
	root.AddCommand(newProxyCmd())
	root.AddCommand(newMockCmd())

	return root
}

// Execute runs the command tree under ctx. Failures are logged here so main
// only has to pick the exit code.
func Execute(ctx context.Context) error {
	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			observability.GetLogger().Warn("command aborted by signal")
		} else {
			observability.GetLogger().Error("command failed", zap.Error(err))
		}
		return err
	}
	return nil
}

// initializeConfig loads the config file and environment, then lets the
// persistent flags override them.
func initializeConfig(cmd *cobra.Command, v *viper.Viper) error {
	if cfgFile != "" {
		path, err := homedir.Expand(cfgFile)
		if err != nil {
			return fmt.Errorf("could not resolve config path %q: %w", cfgFile, err)
		}
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName("wirectl")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("WIRECTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine; defaults and env vars carry it.
	}

	flags := cmd.Root().PersistentFlags()
	if err := v.BindPFlag("server.url", flags.Lookup("server")); err != nil {
		return err
	}
	if err := v.BindPFlag("server.proxy", flags.Lookup("via")); err != nil {
		return err
	}
	return v.BindPFlag("output.format", flags.Lookup("format"))
}
