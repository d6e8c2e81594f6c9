package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/aurasync/internal/classifier"
	"github.com/fakeyudi/aurasync/internal/heartbeat"
	"github.com/fakeyudi/aurasync/internal/tui"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List heartbeat tags with their category and display metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("   %-18s %-16s %-20s %s", "TAG", "LABEL", "CATEGORY", "COLOR")))
		for _, t := range heartbeat.AllTags() {
			info := t.Info()
			label := tui.TagStyle(t).Render(fmt.Sprintf("%-16s", info.Label))
			fmt.Fprintf(out, "%s %-18s %s %-20s %s\n",
				info.Icon, info.Code, label, classifier.CategoryOf(t), info.Color)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tagsCmd)
}
