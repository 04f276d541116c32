package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/abyssdigger/corelog"
	"github.com/abyssdigger/corelog/config"
)

// Module name used by the command itself (config reloads and the like).
const CLI_MODULE_NAME = "corelog"

// Outputs used when no configuration file is given: MASK_STDOUT levels to
// stdout, MASK_STDERR levels to stderr, both taking over the startup rings.
var defaultConfig = config.Config{
	Outputs: []config.Output{
		{Levels: []string{config.GROUP_STDOUT}, Type: config.TYPE_STREAM, Stream: config.STREAM_STDOUT, Copy: true},
		{Levels: []string{config.GROUP_STDERR}, Type: config.TYPE_STREAM, Stream: config.STREAM_STDERR, Copy: true},
	},
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "corelog",
		Short: "Levelled logging core with per-level outputs",
		Long: `corelog routes messages by level to streams, files or in-memory ring
buffers, each level with its own line format.

The subcommands load a YAML configuration (see the config package) and either
log stdin through it, describe what it does or dump a ring buffer.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPipeCmd(), newOutputsCmd(), newStripCmd(), newDumpCmd())
	return root
}

// Builds a logger bound to the command's streams: its internal errors and
// fatal diagnostics go to the command's stderr.
func newApplier(cmd *cobra.Command) *config.Applier {
	l := corelog.New().SetFallback(cmd.ErrOrStderr()).SetStderr(cmd.ErrOrStderr())
	return config.NewApplier(l).SetStreams(cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// Loads the configuration at path, or the default one when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := defaultConfig
		cfg.Outputs = slices.Clone(defaultConfig.Outputs)
		return &cfg, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Reports an error that does not stop the command.
func warn(cmd *cobra.Command, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
}
