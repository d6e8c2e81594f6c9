package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/aurasync/internal/report"
	"github.com/fakeyudi/aurasync/internal/session"
)

var (
	statusFormat string
	statusClear  bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current tracking session status",
	RunE: func(cmd *cobra.Command, args []string) error {
		renderer, err := report.ForFormat(statusFormat)
		if err != nil {
			return err
		}

		store, err := session.NewStore(session.StoreOptions{})
		if err != nil {
			return err
		}

		s, err := store.Load()
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				cmd.Println("no active session")
				return nil
			}
			return err
		}

		if statusClear {
			if err := store.Clear(); err != nil {
				return err
			}
			cmd.Println("session record cleared")
			return nil
		}

		out, err := renderer.Render(report.New(s, store.Alive(s), time.Now()))
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	statusCmd.Flags().StringVarP(&statusFormat, "format", "f", "text", "output format: text, markdown, json")
	statusCmd.Flags().BoolVar(&statusClear, "clear", false, "delete the record of a finished or stale session")
	rootCmd.AddCommand(statusCmd)
}
