package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/alamayub/omagle-clone/internal/signaling"
	"github.com/alamayub/omagle-clone/internal/ui"
)

var (
	flagStatsFormat   string
	flagStatsWatch    bool
	flagStatsInterval time.Duration
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the occupancy of a running relay",
	Long: `Fetch /stats from a relay and print it.

Examples:
  omagle stats
  omagle stats --server wss://chat.example.com/ws --format markdown
  omagle stats --watch --interval 2s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadClientConfig()
		if err != nil {
			return err
		}
		url := cfg.StatsURL()

		if flagStatsWatch {
			return ui.WatchStats(url, func(ctx context.Context) (signaling.Stats, error) {
				return fetchStats(ctx, url)
			}, flagStatsInterval)
		}

		stats, err := fetchStats(cmd.Context(), url)
		if err != nil {
			return err
		}
		out, err := ui.RenderStats(stats, flagStatsFormat)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func fetchStats(ctx context.Context, url string) (signaling.Stats, error) {
	var stats signaling.Stats

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return stats, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return stats, fmt.Errorf("fetch stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return stats, fmt.Errorf("fetch stats: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return stats, fmt.Errorf("decode stats: %w", err)
	}
	return stats, nil
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVarP(&flagServer, "server", "s", "", "Relay websocket URL (default ws://localhost:8080/ws)")
	statsCmd.Flags().StringVarP(&flagStatsFormat, "format", "f", ui.FormatTable, "Output format: table, markdown or csv")
	statsCmd.Flags().BoolVarP(&flagStatsWatch, "watch", "w", false, "Keep refreshing in a live view")
	statsCmd.Flags().DurationVarP(&flagStatsInterval, "interval", "i", 2*time.Second, "Refresh interval for --watch")
}
