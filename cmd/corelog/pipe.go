package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/abyssdigger/corelog"
	"github.com/abyssdigger/corelog/config"
)

// Longest stdin line accepted; longer messages are cut by the logger anyway.
const _MAX_LINE = 4 * corelog.MAX_MESSAGE_SIZE

type pipeOptions struct {
	configPath string
	module     string
	level      string
	watch      bool
}

func newPipeCmd() *cobra.Command {
	opts := &pipeOptions{}
	cmd := &cobra.Command{
		Use:   "pipe",
		Short: "Log every stdin line through a configured logger",
		Long: `Read stdin line by line and log each line as one message of the given
module and level.

With --watch the configuration file is reloaded whenever it changes, so outputs,
line formats and the minimal level can be switched while the pipe is running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipe(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "logger configuration file (YAML)")
	f.StringVarP(&opts.module, "module", "m", "pipe", "module name of the piped messages")
	f.StringVarP(&opts.level, "level", "l", "info", "level of the piped messages")
	f.BoolVarP(&opts.watch, "watch", "w", false, "reload the configuration file when it changes")
	return cmd
}

func runPipe(cmd *cobra.Command, opts *pipeOptions) error {
	lvl, err := emittingLevel(opts.level)
	if err != nil {
		return err
	}
	if opts.watch && opts.configPath == "" {
		return errors.New("--watch requires --config")
	}
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	a := newApplier(cmd)
	l := a.Logger()
	defer l.Cleanup()
	applyErr := a.Apply(cmd.Context(), cfg)
	if applyErr != nil {
		warn(cmd, applyErr)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var wg conc.WaitGroup
	if opts.watch {
		w := config.NewWatcher(opts.configPath, a, l.NewModule(CLI_MODULE_NAME))
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("watch %s: %w", opts.configPath, err)
		}
		wg.Go(func() {
			<-ctx.Done()
			w.Stop()
		})
	}

	var pumpErr error
	wg.Go(func() {
		defer cancel()
		pumpErr = pump(cmd.InOrStdin(), l.NewModule(opts.module).Lvl(lvl))
	})
	wg.Wait()

	if pumpErr != nil {
		return fmt.Errorf("read stdin: %w", pumpErr)
	}
	if applyErr != nil {
		return NewExitCodeError(EXIT_PARTIAL)
	}
	return nil
}

// Writes every line of r as one message to w. Empty lines are skipped.
func pump(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), _MAX_LINE)
	for scanner.Scan() {
		if _, err := w.Write(scanner.Bytes()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func emittingLevel(name string) (corelog.LogLevel, error) {
	lvl, err := corelog.ParseLevel(name)
	if err != nil {
		return 0, fmt.Errorf("--level: %w", err)
	}
	if !lvl.IsValid() {
		return 0, fmt.Errorf("--level: %s does not emit anything", name)
	}
	return lvl, nil
}
