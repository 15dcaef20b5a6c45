// internal/tui/app.go
//
// This is the live progress view for a texweave run.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The view never drives the run. It consumes the engine's event stream,
// draws the delegation tree, and only feeds two things back: a pause gate
// toggle and cancellation.

package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yourusername/texweave/internal/events"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).MarginBottom(1)
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	failedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	workingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	pausedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	noteStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
	treeBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
	summaryStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	reservedBadge = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Render("⚠ reservations")
)

// rowState tracks where one unit is in its lifecycle, derived purely from
// the event stream.
type rowState int

const (
	rowPending rowState = iota
	rowWorking
	rowReviewing
	rowDone
	rowFailed
)

// unitRow is one line of the tree view.
type unitRow struct {
	id       string
	level    string
	depth    int
	ordinal  int
	state    rowState
	note     string
	reserved bool
}

type eventMsg events.Event

type runDoneMsg struct {
	err error
}

// App is the progress view model. It holds ALL the view state.
type App struct {
	sub    events.Subscription
	gate   *PauseGate
	cancel context.CancelFunc
	result <-chan error

	spin  spinner.Model
	rows  []*unitRow
	index map[string]*unitRow

	width     int
	height    int
	startTime time.Time
	finished  bool
	runErr    error
	statusMsg string
}

// NewApp builds the progress view. result delivers the run's outcome once;
// cancel aborts the run when the user quits mid-flight.
func NewApp(sub events.Subscription, gate *PauseGate, cancel context.CancelFunc, result <-chan error) *App {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = workingStyle
	return &App{
		sub:       sub,
		gate:      gate,
		cancel:    cancel,
		result:    result,
		spin:      spin,
		index:     map[string]*unitRow{},
		startTime: time.Now(),
		statusMsg: "Weaving...",
	}
}

// Err returns the run's outcome once the program has finished.
func (a *App) Err() error { return a.runErr }

// Finished reports whether the run completed before the view closed.
func (a *App) Finished() bool { return a.finished }

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spin.Tick, a.waitForEvent(), a.waitForResult())
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case eventMsg:
		a.apply(events.Event(msg))
		return a, a.waitForEvent()

	case runDoneMsg:
		a.finished = true
		a.runErr = msg.err
		if msg.err != nil {
			a.statusMsg = fmt.Sprintf("Run failed: %v", msg.err)
		} else {
			a.statusMsg = fmt.Sprintf("Document finished in %s", time.Since(a.startTime).Round(time.Second))
		}
		return a, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if a.cancel != nil {
				a.cancel()
			}
			a.statusMsg = "Cancelling..."
			if a.finished {
				return a, tea.Quit
			}
			return a, nil
		case " ", "p":
			if a.gate == nil {
				return a, nil
			}
			if a.gate.Toggle() {
				a.statusMsg = "Paused. Press space to resume."
			} else {
				a.statusMsg = "Resumed."
			}
			return a, nil
		}
	}

	return a, nil
}

// View renders the current state to a string.
func (a *App) View() string {
	header := headerStyle.Render("⬡ TEXWEAVE")

	var lines []string
	for _, row := range a.rows {
		lines = append(lines, a.renderRow(row))
	}
	if len(lines) == 0 {
		lines = append(lines, pendingStyle.Render("Waiting for the first unit..."))
	}
	tree := treeBoxStyle.Render(strings.Join(lines, "\n"))

	status := a.statusMsg
	if a.gate != nil && a.gate.Paused() && !a.finished {
		status = pausedStyle.Render("⏸ PAUSED") + "  " + status
	}
	footer := footerStyle.Render(status + "\n" + "space → pause/resume    q → cancel")

	return strings.Join([]string{header, a.renderSummary(), tree, footer}, "\n")
}

func (a *App) renderSummary() string {
	var done, failed, working int
	for _, row := range a.rows {
		switch row.state {
		case rowDone:
			done++
		case rowFailed:
			failed++
		case rowWorking, rowReviewing:
			working++
		}
	}
	summary := fmt.Sprintf("Units: %d total · %d done · %d active", len(a.rows), done, working)
	if failed > 0 {
		summary += failedStyle.Render(fmt.Sprintf(" · %d failed", failed))
	}
	summary += fmt.Sprintf(" · elapsed %s", time.Since(a.startTime).Round(time.Second))
	return summaryStyle.Render(summary)
}

func (a *App) renderRow(row *unitRow) string {
	indent := strings.Repeat("  ", row.depth)
	title := fmt.Sprintf("%s %d", row.level, row.ordinal)

	var marker, body string
	switch row.state {
	case rowDone:
		marker = doneStyle.Render("✓")
		body = doneStyle.Render(title)
	case rowFailed:
		marker = failedStyle.Render("✗")
		body = failedStyle.Render(title)
	case rowReviewing:
		marker = a.spin.View()
		body = workingStyle.Render(title + " (reviewing)")
	case rowWorking:
		marker = a.spin.View()
		body = workingStyle.Render(title)
	default:
		marker = pendingStyle.Render("·")
		body = pendingStyle.Render(title)
	}

	line := fmt.Sprintf("%s%s %s", indent, marker, body)
	if row.reserved {
		line += " " + reservedBadge
	}
	if row.note != "" {
		line += " " + noteStyle.Render("· "+row.note)
	}
	return line
}

// apply folds one engine event into the view state.
func (a *App) apply(e events.Event) {
	if e.Type == events.TypeRunFinished {
		return
	}
	row, ok := a.index[e.UnitID]
	if !ok {
		row = &unitRow{
			id:      e.UnitID,
			level:   e.Level,
			ordinal: e.Ordinal,
			depth:   levelDepth(e.Level),
		}
		a.index[e.UnitID] = row
		a.rows = append(a.rows, row)
	}
	switch e.Type {
	case events.TypeUnitStarted:
		row.state = rowWorking
	case events.TypeCandidateSelected:
		row.note = e.Payload
	case events.TypeUnitReviewing:
		row.state = rowReviewing
	case events.TypeUnitFinalized:
		row.state = rowDone
		row.note = ""
		if strings.Contains(e.Payload, "reservations") {
			row.reserved = true
		}
	case events.TypeUnitFailed:
		row.state = rowFailed
		row.note = e.Payload
	}
}

func (a *App) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-a.sub.Events
		if !ok {
			return nil
		}
		return eventMsg(e)
	}
}

func (a *App) waitForResult() tea.Cmd {
	return func() tea.Msg {
		if a.result == nil {
			return nil
		}
		return runDoneMsg{err: <-a.result}
	}
}

func levelDepth(level string) int {
	switch level {
	case "document":
		return 0
	case "section":
		return 1
	case "subsection":
		return 2
	case "block":
		return 3
	}
	return 0
}
