package main

import (
	"bufio"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/abyssdigger/corelog"
)

func newStripCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strip",
		Short: "Copy stdin to stdout without terminal escape sequences",
		Long: `Copy stdin to stdout removing ANSI escape sequences (colors, cursor
movement) and control characters other than CR and LF, the same way outputs
configured with strip_escapes do for line formats.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return stripStream(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func stripStream(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			if _, werr := io.WriteString(w, corelog.StripEscapes(line, 0)); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
