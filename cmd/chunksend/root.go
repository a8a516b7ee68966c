package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opd-ai/chunksend/progress"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	noProgress bool
}

// progressWriter returns where progress bars go, or nil when disabled.
func (o *rootOptions) progressWriter(cmd *cobra.Command) io.Writer {
	if o.noProgress {
		return nil
	}
	return cmd.ErrOrStderr()
}

// configFile returns the --config value or the role's default.
func (o *rootOptions) configFile(fallback string) string {
	if o.configPath != "" {
		return o.configPath
	}
	return fallback
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "chunksend",
		Short: "Send a single file over TCP in fixed-size chunks",
		Long: `chunksend transfers one file per connection. The serving side listens,
accepts one peer and streams the configured file; the fetching side connects
and writes the stream to its configured save path.

Two wire protocols are available and both sides must agree on one:
  sized      total size and chunk size headers, then raw chunks (default)
  sentinel   length-prefixed frames ending with a zero-length frame`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(opts.logLevel, cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default server.toml or client.toml; .yaml/.yml selects YAML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&opts.noProgress, "no-progress", false, "disable the progress bar")

	cmd.AddCommand(newServeCmd(opts), newFetchCmd(opts), newVersionCmd())
	return cmd
}

// setupLogging configures the global logrus logger.
func setupLogging(level string, out io.Writer) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	if out == nil {
		out = os.Stderr
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(out)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the chunksend version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "chunksend version %s\n", version)
			return nil
		},
	}
}

// newTracker returns a progress tracker drawing on w, or nil if w is nil.
func newTracker(w io.Writer) *progress.Tracker {
	if w == nil {
		return nil
	}
	return progress.NewTracker(progress.NewBarRenderer(w))
}
