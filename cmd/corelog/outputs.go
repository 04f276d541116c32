package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/abyssdigger/corelog"
	"github.com/abyssdigger/corelog/config"
)

type outputRow struct {
	Level      string   `json:"level"`
	Type       string   `json:"type"`
	Target     string   `json:"target,omitempty"`
	Flags      []string `json:"flags,omitempty"`
	LineFormat string   `json:"line_format"`
}

type outputsReport struct {
	MinLevel string      `json:"min_level"`
	Outputs  []outputRow `json:"outputs"`
}

func newOutputsCmd() *cobra.Command {
	var (
		configPath string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "Show what a configuration does to every level",
		Long: `Apply a configuration to a fresh logger and print the minimal level and,
for every level, its output, flags and line format.

Files are opened in append mode so inspecting a configuration never truncates
existing logs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutputs(cmd, configPath, asJSON)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "logger configuration file (YAML)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func runOutputs(cmd *cobra.Command, configPath string, asJSON bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	for i := range cfg.Outputs {
		if cfg.Outputs[i].Type == config.TYPE_FILE {
			cfg.Outputs[i].Append = true
		}
	}

	a := newApplier(cmd)
	defer a.Logger().Cleanup()
	applyErr := a.Apply(cmd.Context(), cfg)

	report := describe(a, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if asJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal outputs: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	} else {
		renderOutputs(cmd.OutOrStdout(), report)
	}

	if applyErr != nil {
		warn(cmd, applyErr)
		return NewExitCodeError(EXIT_PARTIAL)
	}
	return nil
}

func describe(a *config.Applier, stdout, stderr io.Writer) outputsReport {
	l := a.Logger()
	ringNames := map[*corelog.RingBuffer]string{}
	outRing, errRing := l.StartupRings()
	ringNames[outRing] = "startup:stdout"
	ringNames[errRing] = "startup:stderr"
	for name, ring := range a.Rings() {
		ringNames[ring] = name
	}

	report := outputsReport{MinLevel: l.MinLevel().String()}
	for lvl := range corelog.LVL_DISABLED {
		out := l.ReadOutput(lvl)
		row := outputRow{
			Level:      lvl.String(),
			Type:       out.Type.String(),
			LineFormat: l.LineFormat(lvl),
		}
		switch out.Type {
		case corelog.OUT_STREAM:
			switch out.Stream {
			case stdout:
				row.Target = "stdout"
			case stderr:
				row.Target = "stderr"
			default:
				row.Target = fmt.Sprintf("%T", out.Stream)
			}
		case corelog.OUT_FILEPATH:
			row.Target = out.Path
		case corelog.OUT_RINGBUF:
			row.Target = ringNames[out.Ring]
		}
		if out.Flags&corelog.FLAG_APPEND != 0 {
			row.Flags = append(row.Flags, "append")
		}
		if out.Flags&corelog.FLAG_COPY != 0 {
			row.Flags = append(row.Flags, "copy")
		}
		if out.Flags&corelog.FLAG_STRIP_ESC != 0 {
			row.Flags = append(row.Flags, "strip_escapes")
		}
		report.Outputs = append(report.Outputs, row)
	}
	return report
}

func renderOutputs(w io.Writer, report outputsReport) {
	fmt.Fprintf(w, "Minimal level: %s\n", report.MinLevel)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"LEVEL", "TYPE", "TARGET", "FLAGS", "LINE FORMAT"})
	for _, row := range report.Outputs {
		t.AppendRow(table.Row{row.Level, row.Type, row.Target, strings.Join(row.Flags, ","), strconv.Quote(row.LineFormat)})
	}
	t.Render()
}
