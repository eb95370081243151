// Package cli implements the chatline command line.
package cli

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tOgg1/chatline/internal/config"
	"github.com/tOgg1/chatline/internal/logging"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configFile string
	server     string
	token      string
	logLevel   string
}

// Execute runs the root command with os.Args.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}
	sidebar := newSidebarCmd(opts)

	cmd := &cobra.Command{
		Use:           "chatline",
		Short:         "Terminal client for the chat backend",
		Long:          "chatline shows your conversations and who is online in a terminal sidebar.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		Args:          cobra.NoArgs,
		RunE:          sidebar.RunE,
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default: $XDG_CONFIG_HOME/chatline/config.yaml)")
	flags.StringVar(&opts.server, "server", "", "backend base URL")
	flags.StringVar(&opts.token, "token", "", "bearer token for the backend")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug|info|warn|error")

	cmd.AddCommand(
		sidebar,
		newContactsCmd(opts),
		newSendCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

// loadConfig resolves the configuration for cmd. Flags that were set on the
// command line override every other source.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	loader := config.NewLoader()
	if opts.configFile != "" {
		loader.SetConfigFile(opts.configFile)
	}
	flags := cmd.Flags()
	if flags.Changed("server") {
		loader.Set("server.url", strings.TrimSpace(opts.server))
	}
	if flags.Changed("token") {
		loader.Set("auth.token", strings.TrimSpace(opts.token))
	}
	if flags.Changed("log-level") {
		loader.Set("logging.level", strings.TrimSpace(opts.logLevel))
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, &ExitError{Code: ExitCodeConfig, Err: err}
	}
	return cfg, nil
}

// initLogging points the global logger at out. It returns a closer for any
// file it opened.
func initLogging(cfg *config.Config, out io.Writer) (func(), error) {
	settings := cfg.LoggingSettings()
	settings.Output = out
	closer := func() {}

	if path := strings.TrimSpace(cfg.Logging.File); path != "" {
		f, err := logging.OpenFile(path)
		if err != nil {
			return closer, Exitf(ExitCodeConfig, "open log file: %v", err)
		}
		settings.Output = f
		closer = func() { _ = f.Close() }
	}
	logging.Init(settings)
	return closer, nil
}

func componentLogger(name string) *zerolog.Logger {
	log := logging.Component(name)
	return &log
}
