// Package tui is the live price ticker: a terminal view over the
// pipeline's server-sent-events stream showing the incoming tape and
// the latest observed price per product.
package tui

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// tapeSize bounds the number of tape lines kept on screen.
const tapeSize = 12

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#A6E3A1")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#06B6D4"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))

	priceStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F9E2AF"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8"))
)

// priceRow is the latest observation for one product.
type priceRow struct {
	Name     string
	Brand    string
	Amount   float64
	Currency string
	Rating   float64
	Observed time.Time
}

// Model is the bubbletea model for the ticker.
type Model struct {
	ctx     context.Context
	baseURL string

	spinner   spinner.Model
	connected bool
	events    <-chan streamEvent
	err       error

	tape   []string
	latest map[string]priceRow
	beats  int
}

// NewModel builds a ticker model for the API at baseURL.
func NewModel(ctx context.Context, baseURL string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED"))

	return Model{
		ctx:     ctx,
		baseURL: baseURL,
		spinner: sp,
		latest:  make(map[string]priceRow),
	}
}

// Init starts the spinner and opens the stream.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, connectStream(m.ctx, m.baseURL))
}

// Update handles stream and key messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case connectedMsg:
		m.connected = true
		m.events = msg.events
		return m, waitForEvent(msg.events)

	case eventMsg:
		m.apply(msg.event)
		return m, waitForEvent(m.events)

	case streamDoneMsg:
		m.connected = false
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// apply folds one stream event into the model state.
func (m *Model) apply(event streamEvent) {
	switch {
	case event.Update != nil:
		update := event.Update
		m.latest[update.Product.ID] = priceRow{
			Name:     update.Product.Name,
			Brand:    update.Product.Brand,
			Amount:   update.Price.Amount,
			Currency: update.Price.Currency,
			Rating:   update.Review.Rating,
			Observed: update.Price.ObservedAt,
		}
		m.pushTape(fmt.Sprintf("%s  %s %s",
			update.Price.ObservedAt.Format("15:04:05"),
			update.Product.Name,
			priceStyle.Render(fmt.Sprintf("%.2f %s", update.Price.Amount, update.Price.Currency))))

	case event.Heartbeat != nil:
		m.beats++
		m.pushTape(mutedStyle.Render(fmt.Sprintf("%s  %s heartbeat",
			event.Heartbeat.Timestamp.Format("15:04:05"),
			event.Heartbeat.SourceID)))
	}
}

func (m *Model) pushTape(line string) {
	m.tape = append(m.tape, line)
	if len(m.tape) > tapeSize {
		m.tape = m.tape[len(m.tape)-tapeSize:]
	}
}

// View renders the ticker.
func (m Model) View() string {
	var b []string
	b = append(b, titleStyle.Render("leafstream — live price ticker"))

	if m.err != nil {
		b = append(b, errorStyle.Render(fmt.Sprintf("stream error: %v", m.err)))
		return lipgloss.JoinVertical(lipgloss.Left, b...)
	}

	if !m.connected {
		b = append(b, fmt.Sprintf("%s connecting to %s ...", m.spinner.View(), m.baseURL))
		return lipgloss.JoinVertical(lipgloss.Left, b...)
	}

	if len(m.latest) > 0 {
		b = append(b, headerStyle.Render(fmt.Sprintf("%-36s %-16s %10s %7s", "PRODUCT", "BRAND", "PRICE", "RATING")))
		for _, row := range m.sortedRows() {
			b = append(b, fmt.Sprintf("%-36s %-16s %10s %7.1f",
				truncate(row.Name, 36), truncate(row.Brand, 16),
				fmt.Sprintf("%.2f %s", row.Amount, row.Currency), row.Rating))
		}
		b = append(b, "")
	}

	if len(m.tape) > 0 {
		b = append(b, headerStyle.Render("TAPE"))
		b = append(b, m.tape...)
	} else {
		b = append(b, mutedStyle.Render("waiting for events ..."))
	}

	b = append(b, "", mutedStyle.Render("q to quit"))
	return lipgloss.JoinVertical(lipgloss.Left, b...)
}

// sortedRows returns the latest prices ordered by product name.
func (m Model) sortedRows() []priceRow {
	rows := make([]priceRow, 0, len(m.latest))
	for _, row := range m.latest {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}

// Run starts the ticker program and blocks until it exits.
func Run(ctx context.Context, baseURL string) error {
	program := tea.NewProgram(NewModel(ctx, baseURL), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("ticker: %w", err)
	}
	return nil
}
