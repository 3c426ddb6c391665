package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alamayub/omagle-clone/internal/signaling"
)

var sample = signaling.Stats{
	Connections:       3,
	Sessions:          1,
	Waiting:           true,
	PendingCandidates: 2,
	UptimeSeconds:     3725,
}

func TestRenderStats(t *testing.T) {
	out, err := RenderStats(sample, FormatCSV)
	require.NoError(t, err)
	assert.Contains(t, out, "Metric,Value")
	assert.Contains(t, out, "Connections,3")
	assert.Contains(t, out, "Waiting,yes")
	assert.Contains(t, out, "Uptime,1h 2m 5s")

	out, err = RenderStats(sample, FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, out, "| Pending Candidates | 2 |")

	out, err = RenderStats(sample, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Sessions")

	_, err = RenderStats(sample, "yaml")
	assert.Error(t, err)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "42s", FormatDuration(42*time.Second))
	assert.Equal(t, "2m 1s", FormatDuration(121*time.Second))
	assert.Equal(t, "1h 0m 0s", FormatDuration(time.Hour))

	assert.Equal(t, "-", FormatRTT(0))
	assert.Equal(t, "12.5 ms", FormatRTT(12500*time.Microsecond))

	assert.Equal(t, "sleepy", TruncateString("sleepy", 10))
	assert.Equal(t, "sleepy-...", TruncateString("sleepy-amber-otter", 10))
}

func TestCallSummaryView(t *testing.T) {
	view := CallSummaryView(CallSummary{
		Partner:    "bob",
		Session:    "sleepy-amber-otter-harbor",
		Role:       "caller",
		RoundTrips: 5,
		AverageRTT: "1.2 ms",
		Duration:   "6s",
		Ended:      "completed",
	})
	for _, want := range []string{"bob", "sleepy-amber-otter-harbor", "5", "1.2 ms", "completed"} {
		assert.Contains(t, view, want)
	}
}

func TestWatchModel(t *testing.T) {
	calls := 0
	m := newWatchModel("http://relay/stats", func(context.Context) (signaling.Stats, error) {
		calls++
		if calls == 1 {
			return sample, nil
		}
		return signaling.Stats{}, errors.New("connection refused")
	}, 10*time.Millisecond)

	assert.Contains(t, m.View(), "fetching")

	msg := m.poll()()
	_, cmd := m.Update(msg)
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Connections")

	_, cmd = m.Update(pollMsg{})
	require.NotNil(t, cmd)
	m.Update(cmd())
	view := m.View()
	// The last good snapshot stays on screen next to the error.
	assert.Contains(t, view, "Connections")
	assert.Contains(t, view, "connection refused")
	assert.Equal(t, 2, calls)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, strings.TrimSpace(m.View()) == "")
}
