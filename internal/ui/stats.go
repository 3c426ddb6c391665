package ui

import (
	"fmt"
	"time"

	prettytable "github.com/jedib0t/go-pretty/v6/table"

	"github.com/alamayub/omagle-clone/internal/signaling"
)

// Stats output formats.
const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)

func statsWriter(stats signaling.Stats) prettytable.Writer {
	waiting := "no"
	if stats.Waiting {
		waiting = "yes"
	}

	t := prettytable.NewWriter()
	t.AppendHeader(prettytable.Row{"Metric", "Value"})
	t.AppendRows([]prettytable.Row{
		{"Connections", stats.Connections},
		{"Sessions", stats.Sessions},
		{"Waiting", waiting},
		{"Pending Candidates", stats.PendingCandidates},
		{"Uptime", FormatDuration(time.Duration(stats.UptimeSeconds * float64(time.Second)))},
	})
	return t
}

// RenderStats renders a relay snapshot in the given format.
func RenderStats(stats signaling.Stats, format string) (string, error) {
	t := statsWriter(stats)
	switch format {
	case "", FormatTable:
		t.SetStyle(prettytable.StyleRounded)
		return t.Render(), nil
	case FormatMarkdown:
		return t.RenderMarkdown(), nil
	case FormatCSV:
		return t.RenderCSV(), nil
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}
