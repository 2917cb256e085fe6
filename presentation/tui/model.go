// Package tui is the optional operator status view: a read-only live table
// of the local-client directory, the peer directory, and outstanding
// pending queries, refreshed on a tea.Tick. It never mutates node state —
// it only ever calls Node.Snapshot, which hands back a consistent copy
// (§5's single-actor rule is preserved: only the actor mutates its own
// state).
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"fedrelay/application"
	"fedrelay/domain/identity"
)

const refreshInterval = 500 * time.Millisecond

type tickMsg time.Time

// Model is a bubbletea model wrapping a live application.Node.
type Model struct {
	node *application.Node
	tbl  table.Model
}

// New builds a status Model for node.
func New(node *application.Node) Model {
	columns := []table.Column{
		{Title: "Kind", Width: 8},
		{Title: "Key", Width: 18},
		{Title: "Address", Width: 28},
		{Title: "State", Width: 16},
	}
	t := table.New(table.WithColumns(columns), table.WithHeight(15))
	return Model{node: node, tbl: t}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		m.tbl.SetRows(rowsFromSnapshot(m.node.Snapshot()))
		return m, tick()
	}
	var cmd tea.Cmd
	m.tbl, cmd = m.tbl.Update(msg)
	return m, cmd
}

func rowsFromSnapshot(s application.Snapshot) []table.Row {
	rows := make([]table.Row, 0, len(s.Clients)+len(s.Peers)+len(s.Pending))
	for _, c := range s.Clients {
		rows = append(rows, table.Row{"client", shortHex(c.Key), "-", "connected"})
	}
	for _, p := range s.Peers {
		state := "known"
		if p.Connected {
			state = "connected"
		}
		rows = append(rows, table.Row{"peer", shortHex(p.Key), p.Address, state})
	}
	for _, addr := range s.Pending {
		rows = append(rows, table.Row{"pending", shortHex(addr), "-", "awaiting query"})
	}
	return rows
}

func shortHex(k identity.PublicKey) string {
	h := k.Hex()
	return h[:16] + "…"
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true).MarginBottom(1)
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

func (m Model) View() string {
	return headerStyle.Render("fedrelay — operator status") + "\n" +
		m.tbl.View() + "\n" +
		dimStyle.Render("q to quit")
}
