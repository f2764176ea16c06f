package cli

import (
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/aquillm/aquillm/internal/adapters/driving/tui"
	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driving"
)

var (
	statusSource string
	statusSince  time.Duration
	statusFollow bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ingestion status events",
	Long: `Show recent ingestion status events. Events are retained for 24
hours, so a restarted client can replay what it missed with --since.

With --follow, opens a live view that streams events as they happen.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusSource, "document", "", "only events for this document id")
	statusCmd.Flags().DurationVar(&statusSince, "since", time.Hour, "replay window (e.g. 30m, 24h)")
	statusCmd.Flags().BoolVarP(&statusFollow, "follow", "f", false, "stream events live")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if services == nil || services.Events == nil {
		return errors.New("event bus not configured")
	}

	events, err := services.Events.Replay(cmd.Context(), time.Now().Add(-statusSince))
	if err != nil {
		return fmt.Errorf("replay events: %w", err)
	}

	filter := driving.EventFilter{SourceID: statusSource}
	for _, ev := range events {
		if !filter.Matches(ev) {
			continue
		}
		printEvent(cmd, ev)
	}

	if !statusFollow {
		return nil
	}

	ch, cancel := services.Events.Subscribe(filter)
	model := tui.NewWatchModel(ch, cancel)
	p := tea.NewProgram(model)
	if _, err := p.Run(); err != nil {
		cancel()
		return fmt.Errorf("status view: %w", err)
	}
	return nil
}

func printEvent(cmd *cobra.Command, ev domain.StatusEvent) {
	cmd.Printf("%s  %-8s %s  %s\n",
		ev.Timestamp.Local().Format(time.DateTime),
		ev.Severity,
		ev.SourceID,
		ev.Message,
	)
}
