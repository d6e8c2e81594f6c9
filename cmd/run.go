package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/aurasync/internal/collector"
	"github.com/fakeyudi/aurasync/internal/heartbeat"
	"github.com/fakeyudi/aurasync/internal/logging"
	"github.com/fakeyudi/aurasync/internal/session"
	"github.com/fakeyudi/aurasync/internal/signal"
	"github.com/fakeyudi/aurasync/internal/tui"
)

// statusInterval is how often run refreshes the status file.
const statusInterval = 5 * time.Second

var (
	runStdin   bool
	runTUI     bool
	runNoWatch bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a tracking session and stream heartbeats until interrupted",
	Long: `Start a tracking session in the project directory.

Signals come from a file watcher on the project tree and, with --stdin,
from newline-delimited JSON written by an editor plugin. The session ends
on Ctrl+C, SIGTERM, or when the stdin stream closes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runTUI && runStdin {
			return errors.New("--tui cannot be combined with --stdin")
		}
		if runNoWatch && !runStdin {
			return errors.New("nothing to record: --no-watch needs --stdin")
		}
		if runTUI && !term.IsTerminal(os.Stdout.Fd()) {
			return errors.New("--tui needs an interactive terminal")
		}

		store, err := session.NewStore(session.StoreOptions{})
		if err != nil {
			return err
		}
		if err := store.Claim(os.Getpid()); errors.Is(err, session.ErrSessionLive) {
			return err
		} else if err != nil {
			logger.Warn("ignoring unreadable session file", "error", err)
		}

		dir, err := watchDir()
		if err != nil {
			return err
		}
		if runTUI && logFile == nil {
			// stderr would draw over the alternate screen.
			logger = logging.Discard()
		}

		ctx, stop := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var stream *collector.StreamSource
		p := newPipeline(dir, func(env *collector.HostEnv) []signal.Source {
			var sources []signal.Source
			if !runNoWatch {
				sources = append(sources, &collector.FileWatchSource{
					WorkDir:        dir,
					IgnorePatterns: cfg.IgnorePatterns,
					Logger:         logger,
				})
			}
			if runStdin {
				stream = &collector.StreamSource{Reader: cmd.InOrStdin(), Context: env, Logger: logger}
				sources = append(sources, stream)
			}
			return sources
		})

		return runSession(ctx, cancel, cmd, p, store, stream)
	},
}

func runSession(ctx context.Context, cancel context.CancelFunc, cmd *cobra.Command, p *pipeline, store *session.Store, stream *collector.StreamSource) error {
	out := cmd.OutOrStdout()

	var feed chan heartbeat.Heartbeat
	if runTUI {
		feed = make(chan heartbeat.Heartbeat, 256)
		p.collector.Observe(func(h heartbeat.Heartbeat) {
			select {
			case feed <- h:
			default:
			}
		})
	} else {
		p.collector.Observe(func(h heartbeat.Heartbeat) {
			fmt.Fprintln(out, tui.FormatLine(h))
		})
	}

	if err := p.collector.Initialize(ctx); err != nil {
		return fmt.Errorf("starting collector: %w", err)
	}
	save(store, p.snapshot())
	logger.Info("session started",
		"id", p.status.ID,
		"project", p.status.Project,
		"dir", p.status.WorkDir,
		"user", p.status.User)

	done := make(chan error, 1)
	go func() { done <- p.collector.Run(ctx) }()

	if stream != nil {
		go func() {
			select {
			case <-stream.Done():
				logger.Info("input stream closed, ending session")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	if runTUI {
		go func() {
			err := tui.Run(ctx, tui.Feed{
				Title:      p.status.Project,
				Heartbeats: feed,
				Stats:      func() tui.Stats { return tuiStats(p) },
			})
			if err != nil {
				logger.Warn("live view exited", "error", err)
			}
			cancel()
		}()
	}

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	var runErr error
loop:
	for {
		select {
		case runErr = <-done:
			break loop
		case <-ticker.C:
			save(store, p.snapshot())
		}
	}

	p.flush(context.Background())

	final := p.snapshot()
	if err := store.Finish(&final); err != nil {
		logger.Warn("writing session status", "error", err)
	}
	logger.Info("session ended",
		"emitted", final.Emitted,
		"suppressed", final.Suppressed,
		"pending", final.Pending)
	return runErr
}

func save(store *session.Store, s session.Status) {
	if err := store.Save(&s); err != nil {
		logger.Warn("writing session status", "error", err)
	}
}

func tuiStats(p *pipeline) tui.Stats {
	s := p.snapshot()
	return tui.Stats{
		State:      s.State,
		Active:     s.Active,
		Branch:     s.Branch,
		Received:   p.collector.Stats().Received,
		Emitted:    s.Emitted,
		Suppressed: s.Suppressed,
		Enqueued:   s.Enqueued,
		Pending:    s.Pending,
		Outcomes:   s.Outcomes,
	}
}

func init() {
	runCmd.Flags().BoolVar(&runStdin, "stdin", false, "read editor signals as JSON lines from stdin")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "show a live heartbeat feed")
	runCmd.Flags().BoolVar(&runNoWatch, "no-watch", false, "do not watch the project tree for file changes")
	rootCmd.AddCommand(runCmd)
}
