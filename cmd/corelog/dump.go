package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type dumpOptions struct {
	configPath string
	ring       string
	module     string
	level      string
}

func newDumpCmd() *cobra.Command {
	opts := &dumpOptions{}
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Log stdin into a configured ring buffer and print what it kept",
		Long: `Apply a configuration, log every stdin line like pipe does, then print
the contents of the named ring buffer oldest first. Only the tail that fits in
the buffer survives.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "logger configuration file (YAML)")
	f.StringVarP(&opts.ring, "ring", "r", "", "name of the ring buffer to print")
	f.StringVarP(&opts.module, "module", "m", "dump", "module name of the logged messages")
	f.StringVarP(&opts.level, "level", "l", "info", "level of the logged messages")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("ring")
	return cmd
}

func runDump(cmd *cobra.Command, opts *dumpOptions) error {
	lvl, err := emittingLevel(opts.level)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if _, ok := cfg.Rings[opts.ring]; !ok {
		return fmt.Errorf("ring %q is not declared in %s", opts.ring, opts.configPath)
	}

	a := newApplier(cmd)
	defer a.Logger().Cleanup()
	if err := a.Apply(cmd.Context(), cfg); err != nil {
		warn(cmd, err)
	}
	if err := pump(cmd.InOrStdin(), a.Logger().NewModule(opts.module).Lvl(lvl)); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), a.Ring(opts.ring).Ordered())
	return nil
}
