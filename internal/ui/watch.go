package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alamayub/omagle-clone/internal/signaling"
)

// StatsFetcher loads one relay snapshot.
type StatsFetcher func(ctx context.Context) (signaling.Stats, error)

type statsMsg struct {
	stats signaling.Stats
	err   error
	at    time.Time
}

type pollMsg struct{}

// watchModel polls the relay and shows the latest snapshot.
type watchModel struct {
	source   string
	fetch    StatsFetcher
	interval time.Duration
	spinner  spinner.Model

	stats    *signaling.Stats
	err      error
	updated  time.Time
	quitting bool
}

func newWatchModel(source string, fetch StatsFetcher, interval time.Duration) *watchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &watchModel{
		source:   source,
		fetch:    fetch,
		interval: interval,
		spinner:  s,
	}
}

func (m *watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

func (m *watchModel) poll() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.interval)
		defer cancel()
		s, err := m.fetch(ctx)
		return statsMsg{stats: s, err: err, at: time.Now()}
	}
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case statsMsg:
		m.err = msg.err
		if msg.err == nil {
			s := msg.stats
			m.stats = &s
			m.updated = msg.at
		}
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return pollMsg{} })

	case pollMsg:
		return m, m.poll()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *watchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("omagle relay") + "\n")
	b.WriteString(fmt.Sprintf("%s %s\n\n", m.spinner.View(), MutedStyle.Render(m.source)))

	if m.stats != nil {
		out, _ := RenderStats(*m.stats, FormatTable)
		b.WriteString(out + "\n")
		b.WriteString(MutedStyle.Render("updated "+m.updated.Format(time.TimeOnly)) + "\n")
	} else if m.err == nil {
		b.WriteString(IconWaiting + " fetching...\n")
	}
	if m.err != nil {
		b.WriteString(ErrorStyle.Render(IconError+" "+m.err.Error()) + "\n")
	}

	b.WriteString("\n" + MutedStyle.Render("Press q to quit"))
	return b.String()
}

// WatchStats shows a live view of the relay until the user quits.
func WatchStats(source string, fetch StatsFetcher, interval time.Duration) error {
	_, err := tea.NewProgram(newWatchModel(source, fetch, interval)).Run()
	return err
}
