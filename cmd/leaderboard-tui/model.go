package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/LiveSortTable/server/internal/domain/entity"
	"github.com/MRamiBalles/LiveSortTable/server/internal/engine"
	"github.com/MRamiBalles/LiveSortTable/server/internal/view"
)

const (
	actorTUI      = "tui"
	intervalStep  = 200
	noticeTTL     = 2 * time.Second
	refreshPeriod = time.Second
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#F9FAFB"})
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"})
	upStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"})
	downStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"})
	movedStyle  = lipgloss.NewStyle().Bold(true).Reverse(true)
	noticeStyle = lipgloss.NewStyle().
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"})
)

// updateMsg carries a board update into the program.
type updateMsg engine.Update

type boardClosedMsg struct{}

type clearNoticeMsg struct{ seq int }

type refreshMsg time.Time

type model struct {
	board   *engine.Board
	updates <-chan engine.Update
	now     func() time.Time

	settings engine.Settings
	tick     uint64
	ranked   []entity.Entity // Kept so "updated ago" can refresh between updates
	prev     view.Positions  // Positions before the latest update
	pos      view.Positions
	rows     []view.Row

	notice    string
	noticeSeq int
}

func newModel(board *engine.Board, updates <-chan engine.Update, now func() time.Time) model {
	if now == nil {
		now = time.Now
	}
	m := model{board: board, updates: updates, now: now}
	m.apply(board.Current())
	return m
}

func waitForUpdate(ch <-chan engine.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return boardClosedMsg{}
		}
		return updateMsg(u)
	}
}

func refreshCmd() tea.Cmd {
	return tea.Tick(refreshPeriod, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), refreshCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg.String())

	case updateMsg:
		u := engine.Update(msg)
		m.apply(u)
		cmds := []tea.Cmd{waitForUpdate(m.updates)}
		if u.Notice != nil {
			m.noticeSeq++
			m.notice = u.Notice.Message
			seq := m.noticeSeq
			cmds = append(cmds, tea.Tick(noticeTTL, func(time.Time) tea.Msg {
				return clearNoticeMsg{seq: seq}
			}))
		}
		return m, tea.Batch(cmds...)

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case refreshMsg:
		m.rows, _ = view.Project(m.ranked, m.now(), m.prev)
		return m, refreshCmd()

	case boardClosedMsg:
		return m, tea.Quit
	}
	return m, nil
}

// handleKey drives the board. Changes come back through the update stream.
func (m model) handleKey(key string) tea.Cmd {
	switch key {
	case "q", "ctrl+c", "esc":
		return tea.Quit
	case " ", "p":
		if m.board.Settings().Running {
			m.board.Pause(actorTUI)
		} else {
			m.board.Resume(actorTUI)
		}
	case "+", "=":
		m.board.SetInterval(m.board.Settings().IntervalMs+intervalStep, actorTUI)
	case "-", "_":
		m.board.SetInterval(m.board.Settings().IntervalMs-intervalStep, actorTUI)
	case "s":
		next := engine.SortByChange
		if m.board.Settings().SortKey == engine.SortByChange {
			next = engine.SortByScore
		}
		m.board.SetSortKey(next, actorTUI)
	case "n":
		m.board.Step()
	}
	return nil
}

func (m *model) apply(u engine.Update) {
	m.settings = u.Settings
	m.tick = u.Tick
	m.ranked = u.Board
	m.prev = m.pos
	m.rows, m.pos = view.Project(u.Board, m.now(), m.prev)
}

func (m model) View() string {
	var b strings.Builder

	state := upStyle.Render("live")
	if !m.settings.Running {
		state = downStyle.Render("paused")
	}
	b.WriteString(titleStyle.Render("Live Leaderboard"))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  sorted by %s · every %sms · tick %d · ",
		m.settings.SortKey.Label(), humanize.Comma(int64(m.settings.IntervalMs)), m.tick)))
	b.WriteString(state)
	b.WriteString("\n\n")

	b.WriteString(mutedStyle.Render(fmt.Sprintf("%4s  %-14s %7s %7s  %s", "#", "Name", "Score", "Change", "Updated")))
	b.WriteString("\n")
	for _, r := range m.rows {
		b.WriteString(renderRow(r))
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("space pause/resume · +/- interval · s sort · n step · q quit"))
	b.WriteString("\n")
	return b.String()
}

func renderRow(r view.Row) string {
	marker := " "
	switch {
	case r.Moved > 0:
		marker = "▲"
	case r.Moved < 0:
		marker = "▼"
	}

	change := fmt.Sprintf("%7s", r.ChangeText)
	if r.Direction == view.DirectionDown {
		change = downStyle.Render(change)
	} else {
		change = upStyle.Render(change)
	}

	head := fmt.Sprintf("%s%3d  %-14s %7s", marker, r.Rank, r.Name, r.ScoreText)
	if r.Moved != 0 {
		head = movedStyle.Render(head)
	}
	return head + " " + change + "  " + mutedStyle.Render(r.UpdatedAgo)
}
