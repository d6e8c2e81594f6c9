package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/aurasync/internal/heartbeat"
	"github.com/fakeyudi/aurasync/internal/report"
	"github.com/fakeyudi/aurasync/internal/signal"
	"github.com/fakeyudi/aurasync/internal/tui"
)

var (
	emitWrite  bool
	emitDetail string
)

var emitCmd = &cobra.Command{
	Use:   "emit <kind> [entity]",
	Short: "Record a single signal in a one-shot session and send it",
	Long: `Start a session, record one signal, end the session and wait for the
heartbeats to be delivered. Useful from editor hooks and scripts.

Known kinds: ` + strings.Join(kindNames(), ", "),
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sig := signal.RawSignal{
			Kind:    signal.Kind(args[0]),
			IsWrite: emitWrite,
			Detail:  emitDetail,
		}
		if len(args) == 2 {
			sig.Entity = args[1]
		}
		if !sig.Kind.Known() {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: unknown kind %q, recording as other\n", args[0])
			if sig.Detail == "" {
				sig.Detail = args[0]
			}
		}

		dir, err := watchDir()
		if err != nil {
			return err
		}
		p := newPipeline(dir, nil)

		out := cmd.OutOrStdout()
		p.collector.Observe(func(h heartbeat.Heartbeat) {
			fmt.Fprintln(out, tui.FormatLine(h))
		})

		if err := p.collector.Initialize(cmd.Context()); err != nil {
			return fmt.Errorf("starting collector: %w", err)
		}
		p.collector.HandleSignal(sig)
		p.collector.Shutdown()
		p.flush(cmd.Context())

		s := p.snapshot()
		fmt.Fprintf(out, "%d heartbeats, %s\n", s.Emitted, report.Counts(s.Outcomes))
		return nil
	},
}

func kindNames() []string {
	names := make([]string, 0, len(signal.Kinds))
	for _, k := range signal.Kinds {
		names = append(names, string(k))
	}
	return names
}

func init() {
	emitCmd.Flags().BoolVarP(&emitWrite, "write", "w", false, "mark the signal as a modifying operation")
	emitCmd.Flags().StringVarP(&emitDetail, "detail", "d", "", "free-form detail text")
	rootCmd.AddCommand(emitCmd)
}
