package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// CallSummary is what the call command reports once a call ends.
type CallSummary struct {
	Partner    string
	Session    string
	Role       string
	RoundTrips int
	AverageRTT string
	Duration   string
	Ended      string
}

func CallSummaryView(summary CallSummary) string {
	headers := []string{"Metric", "Value"}
	rows := [][]string{
		{"Partner", summary.Partner},
		{"Session", summary.Session},
		{"Role", summary.Role},
		{"Round Trips", fmt.Sprintf("%d", summary.RoundTrips)},
		{"Avg RTT", summary.AverageRTT},
		{"Duration", summary.Duration},
		{"Ended", summary.Ended},
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

func RenderCallSummary(summary CallSummary) {
	fmt.Println(CallSummaryView(summary))
}

// PartnerBanner announces a new partner.
func PartnerBanner(partner, session string, initiator bool) string {
	role := "answering"
	if initiator {
		role = "calling"
	}
	content := fmt.Sprintf("%s Stranger found!\n\n%s Partner:  %s\n%s Session:  %s\n%s Role:     %s",
		IconWave,
		IconPeer, BoldStyle.Foreground(Primary).Render(partner),
		IconConnect, MutedStyle.Render(session),
		IconInfo, role,
	)
	return PartnerBoxStyle.Render(content)
}
