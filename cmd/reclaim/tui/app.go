package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/reclaim/pkg/reclaim/clean"
	"github.com/jamesainslie/reclaim/pkg/reclaim/report"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// AppState represents the current state of the application.
type AppState int

const (
	// StateBrowsing shows the repository list while the scan streams
	// results in. Selection and navigation happen here.
	StateBrowsing AppState = iota
	// StateConfirming shows the modal deletion dialog. Reaching it
	// requires an explicit key press from StateBrowsing, and leaving
	// it toward deletion requires another.
	StateConfirming
	// StateDeleting runs the executor. Input is ignored until done.
	StateDeleting
	// StateDone shows the deletion summary.
	StateDone
)

// Options configures the TUI application.
type Options struct {
	Config types.ScanConfig
}

// Model is the main Bubble Tea model for reclaim.
type Model struct {
	state   AppState
	browse  BrowseModel
	options Options

	// Scanning state
	ctx         context.Context
	cancel      context.CancelFunc
	acc         *report.Accumulator
	events      chan report.Event
	scanErr     chan error
	scanDone    bool
	scanFatal   error
	scanStarted time.Time
	scanSpinner spinner.Model

	// Confirmation dialog state
	confirmFocused int // 0 = cancel, 1 = delete

	// Deletion state
	deleteSpinner  spinner.Model
	deleteProgress chan clean.Progress
	deleteResult   chan *clean.Summary
	deleteDone     int
	deleteTotal    int
	summary        *clean.Summary

	width  int
	height int
}

// NewModel creates a TUI model for one run.
func NewModel(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(dangerColor)

	scanSpin := spinner.New()
	scanSpin.Spinner = spinner.Dot
	scanSpin.Style = lipgloss.NewStyle().Foreground(accentColor)

	return Model{
		state: StateBrowsing,
		browse: NewBrowseModel(
			opts.Config.Root,
			opts.Config.MinSize,
			opts.Config.StaleDays,
			opts.Config.SelectAll,
		),
		options:       opts,
		ctx:           ctx,
		cancel:        cancel,
		acc:           report.NewAccumulator(),
		events:        make(chan report.Event, 256),
		scanErr:       make(chan error, 1),
		scanStarted:   time.Now(),
		scanSpinner:   scanSpin,
		deleteSpinner: s,
		width:         80,
		height:        24,
	}
}

// Init starts the scan pipeline and begins listening for its events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.startScan(), m.listenScan(), m.scanSpinner.Tick)
}

// scanEventMsg carries one pipeline event into the update loop.
type scanEventMsg struct{ ev report.Event }

// scanDoneMsg signals pipeline completion.
type scanDoneMsg struct{ err error }

// startScan runs the scanner in the background, forwarding every event
// through the events channel. The update loop is the only consumer, so
// accumulator mutation stays single-threaded.
func (m Model) startScan() tea.Cmd {
	events := m.events
	errCh := m.scanErr
	ctx := m.ctx
	cfg := m.options.Config

	return func() tea.Msg {
		go func() {
			s := report.NewScanner(cfg)
			err := s.Run(ctx, func(ev report.Event) { events <- ev })
			errCh <- err
			close(events)
		}()
		return nil
	}
}

// listenScan waits for the next pipeline event.
func (m Model) listenScan() tea.Cmd {
	events := m.events
	errCh := m.scanErr
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return scanDoneMsg{err: <-errCh}
		}
		return scanEventMsg{ev: ev}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.browse.SetDimensions(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case scanEventMsg:
		if g := m.acc.Apply(msg.ev); g != nil {
			m.browse.Upsert(g)
		}
		return m, m.listenScan()

	case scanDoneMsg:
		m.scanDone = true
		// Cancellation happens when the user moves on to deletion or
		// quits; only real failures are fatal.
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.scanFatal = msg.err
			if m.state == StateBrowsing {
				return m, tea.Quit
			}
		}
		return m, nil

	case spinner.TickMsg:
		switch m.state {
		case StateBrowsing:
			if m.scanDone {
				return m, nil
			}
			var cmd tea.Cmd
			m.scanSpinner, cmd = m.scanSpinner.Update(msg)
			return m, cmd
		case StateDeleting:
			var cmd tea.Cmd
			m.deleteSpinner, cmd = m.deleteSpinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case deleteProgressMsg:
		m.deleteDone = msg.progress.Done
		m.deleteTotal = msg.progress.Total
		return m, m.listenDelete()

	case deleteDoneMsg:
		m.summary = msg.summary
		m.state = StateDone
		return m, nil
	}

	return m, nil
}

// handleKey handles keyboard input per state.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch m.state {
	case StateBrowsing:
		switch key {
		case "ctrl+c", "q", "esc":
			m.cancel()
			return m, tea.Quit
		case "enter", "d":
			if m.browse.HasSelection() {
				m.state = StateConfirming
				m.confirmFocused = 0 // Default to cancel
			}
		default:
			m.browse.HandleKey(key)
		}

	case StateConfirming:
		switch key {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit
		case "q", "esc", "n":
			m.state = StateBrowsing
		case "left", "h":
			m.confirmFocused = 0
		case "right", "l":
			m.confirmFocused = 1
		case "tab":
			m.confirmFocused = (m.confirmFocused + 1) % 2
		case "enter":
			if m.confirmFocused == 1 {
				return m.startDelete()
			}
			m.state = StateBrowsing
		case "y":
			return m.startDelete()
		}

	case StateDeleting:
		// Deletion always runs to completion. No key, including
		// ctrl+c, interrupts it.

	case StateDone:
		if key == "q" || key == "enter" || key == "esc" || key == "ctrl+c" {
			return m, tea.Quit
		}
	}

	return m, nil
}

// deleteProgressMsg reports one resolved target.
type deleteProgressMsg struct{ progress clean.Progress }

// deleteDoneMsg carries the finished run summary.
type deleteDoneMsg struct{ summary *clean.Summary }

// startDelete transitions to StateDeleting and runs the executor in
// the background.
func (m Model) startDelete() (tea.Model, tea.Cmd) {
	m.state = StateDeleting
	m.cancel() // stop any still-running scan; its results are frozen now

	targets := clean.PlanTargets(m.browse.SelectedGroups())
	m.deleteDone = 0
	m.deleteTotal = len(targets)

	progress := make(chan clean.Progress, 64)
	result := make(chan *clean.Summary, 1)
	m.deleteProgress = progress
	m.deleteResult = result
	dryRun := m.options.Config.DryRun

	go func() {
		summary := clean.Run(context.Background(), targets, clean.Options{
			DryRun:     dryRun,
			OnProgress: func(p clean.Progress) { progress <- p },
		})
		close(progress)
		result <- summary
	}()

	return m, tea.Batch(m.deleteSpinner.Tick, m.listenDelete())
}

// listenDelete waits for the next deletion progress update.
func (m Model) listenDelete() tea.Cmd {
	progress := m.deleteProgress
	result := m.deleteResult
	return func() tea.Msg {
		p, ok := <-progress
		if !ok {
			return deleteDoneMsg{summary: <-result}
		}
		return deleteProgressMsg{progress: p}
	}
}

// View renders the current state.
func (m Model) View() string {
	switch m.state {
	case StateBrowsing:
		return m.browse.View(m.statusLine())
	case StateConfirming:
		return m.renderConfirmDialog()
	case StateDeleting:
		return m.renderDeleting()
	case StateDone:
		return m.renderDone()
	}
	return ""
}

// statusLine summarizes scan progress, or empty once finished.
func (m Model) statusLine() string {
	if m.scanDone {
		if warnings := m.acc.Warnings(); len(warnings) > 0 {
			return fmt.Sprintf("%d warnings (see log)", len(warnings))
		}
		return ""
	}

	elapsed := time.Since(m.scanStarted).Round(time.Second)
	if total, ok := m.acc.Total(); ok {
		return fmt.Sprintf("%s scanning: %d / %d candidates, %d repos, %d artifacts (%s)",
			m.scanSpinner.View(), m.acc.Processed(), total,
			len(m.browse.items), m.acc.ArtifactCount(), elapsed)
	}
	return fmt.Sprintf("%s scanning: walking directories... (%s)", m.scanSpinner.View(), elapsed)
}

// renderConfirmDialog renders the deletion confirmation dialog.
func (m Model) renderConfirmDialog() string {
	var content strings.Builder
	content.WriteString(dialogTitleStyle.Render("Confirm Deletion"))
	content.WriteString("\n\n")
	content.WriteString(dialogTextStyle.Render(fmt.Sprintf(
		"Delete build artifacts in %d repos, reclaiming %s?",
		m.browse.SelectedCount(), types.FormatSize(m.browse.SelectedSize()))))
	content.WriteString("\n")

	if m.options.Config.DryRun {
		content.WriteString(warningTextStyle.Render("(Dry run - nothing will be deleted)"))
		content.WriteString("\n")
	}
	content.WriteString("\n")

	cancelBtn := inactiveButtonStyle.Render("Cancel")
	deleteBtn := inactiveButtonStyle.Render("Delete")
	if m.confirmFocused == 0 {
		cancelBtn = activeButtonStyle.Background(subtleColor).Render("Cancel")
	} else {
		deleteBtn = activeButtonStyle.Render("Delete")
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Center, cancelBtn, "  ", deleteBtn)
	content.WriteString(center(buttons, 52))

	dialog := dialogBoxStyle.Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
}

// renderDeleting renders the deletion progress view.
func (m Model) renderDeleting() string {
	contentWidth := m.width - 4

	var b strings.Builder
	b.WriteString(titleStyle.Render("  Deleting build artifacts..."))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  %s Deleting: %d / %d directories",
		m.deleteSpinner.View(), m.deleteDone, m.deleteTotal))
	b.WriteString("\n\n")

	if m.deleteTotal > 0 {
		pct := float64(m.deleteDone) / float64(m.deleteTotal)
		barWidth := contentWidth - 10
		filled := int(pct * float64(barWidth))
		empty := barWidth - filled

		bar := "  " + progressFillStyle.Render(strings.Repeat("█", filled)) +
			progressEmptyStyle.Render(strings.Repeat("░", empty))
		b.WriteString(bar)
		b.WriteString(fmt.Sprintf(" %d%%", int(pct*100)))
		b.WriteString("\n")
	}

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

// renderDone renders the completion summary.
func (m Model) renderDone() string {
	contentWidth := m.width - 4

	var b strings.Builder
	if m.options.Config.DryRun {
		b.WriteString(successTextStyle.Render("  Dry Run Complete"))
	} else {
		b.WriteString(successTextStyle.Render("  Cleanup Complete"))
	}
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")

	if m.summary != nil {
		if m.options.Config.DryRun {
			b.WriteString(fmt.Sprintf("  Would reclaim: %s\n", types.FormatSize(m.summary.Reclaimed)))
		} else {
			b.WriteString(fmt.Sprintf("  Reclaimed: %s\n", types.FormatSize(m.summary.Reclaimed)))
		}

		skipped := m.summary.Skipped()
		if len(skipped) > 0 {
			b.WriteString(warningTextStyle.Render(fmt.Sprintf("  Skipped: %d directories\n", len(skipped))))
		}

		failures := m.summary.Failures()
		if len(failures) > 0 {
			b.WriteString(errorTextStyle.Render(fmt.Sprintf("  Failed: %d directories\n", len(failures))))
			b.WriteString("\n")
			maxShown := 5
			for i, o := range failures {
				if i >= maxShown {
					b.WriteString(errorTextStyle.Render(fmt.Sprintf("    ... and %d more", len(failures)-maxShown)))
					b.WriteString("\n")
					break
				}
				b.WriteString(errorTextStyle.Render("    - " + truncatePath(o.Target.Path, contentWidth-6)))
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(center(keyStyle.Render("[Enter]")+" "+keyDescStyle.Render("Exit"), contentWidth))
	b.WriteString("\n")

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

// Run starts the TUI application and returns the deletion summary, or
// nil when the user quit without deleting anything.
func Run(opts Options) (*clean.Summary, error) {
	model := NewModel(opts)

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	if m, ok := final.(Model); ok {
		if m.scanFatal != nil {
			return nil, m.scanFatal
		}
		return m.summary, nil
	}
	return nil, nil
}
