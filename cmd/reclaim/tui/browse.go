package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/reclaim/pkg/reclaim/report"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// repoItem pairs a repository group with its selection state. Once the
// user toggles a row by hand, automatic reselection leaves it alone.
type repoItem struct {
	group    *report.Group
	selected bool
	manual   bool
}

// futurePin records a select-all or select-none so groups that arrive
// later inherit the user's choice instead of the auto-select policy. A
// still-running scan must not grow or shrink the selection behind the
// user's back.
type futurePin int

const (
	pinAuto futurePin = iota
	pinSelected
	pinCleared
)

// BrowseModel renders the repository list and tracks cursor, scroll,
// sort order, and per-repo selection while scan results stream in.
type BrowseModel struct {
	root   string
	items  []*repoItem
	byRoot map[string]*repoItem

	sortMode report.SortMode
	cursor   int
	offset   int

	pin futurePin

	minSize   int64
	staleDays int

	width  int
	height int
}

// NewBrowseModel creates an empty browse model.
func NewBrowseModel(root string, minSize int64, staleDays int, selectAll bool) BrowseModel {
	pin := pinAuto
	if selectAll {
		pin = pinSelected
	}
	return BrowseModel{
		root:      root,
		byRoot:    make(map[string]*repoItem),
		sortMode:  report.SortSize,
		pin:       pin,
		minSize:   minSize,
		staleDays: staleDays,
		width:     80,
		height:    24,
	}
}

// Upsert folds a created or grown group into the list, applying the
// default selection policy to rows the user has not touched.
func (m *BrowseModel) Upsert(g *report.Group) {
	item, ok := m.byRoot[g.Root]
	if !ok {
		item = &repoItem{group: g}
		m.byRoot[g.Root] = item
		m.items = append(m.items, item)
	}
	if !item.manual {
		switch m.pin {
		case pinSelected:
			item.selected = true
		case pinCleared:
			item.selected = false
		default:
			item.selected = report.AutoSelect(g, m.minSize, m.staleDays, time.Now())
		}
	}
	m.resort()
}

// resort reapplies the current sort order, keeping the cursor on the
// same repository when possible.
func (m *BrowseModel) resort() {
	var cursorRoot string
	if m.cursor >= 0 && m.cursor < len(m.items) {
		cursorRoot = m.items[m.cursor].group.Root
	}

	groups := make([]*report.Group, len(m.items))
	for i, item := range m.items {
		groups[i] = item.group
	}
	report.SortGroups(groups, m.sortMode)
	sorted := make([]*repoItem, len(groups))
	for i, g := range groups {
		sorted[i] = m.byRoot[g.Root]
	}
	m.items = sorted

	if cursorRoot != "" {
		for i, item := range m.items {
			if item.group.Root == cursorRoot {
				m.cursor = i
				break
			}
		}
	}
	m.ensureVisible()
}

// HandleKey handles navigation and selection keys.
func (m *BrowseModel) HandleKey(key string) {
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.ensureVisible()
		}

	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
			m.ensureVisible()
		}

	case " ":
		m.toggleCursor()

	case "a":
		m.selectAll()

	case "n":
		m.selectNone()

	case "s":
		m.sortMode = m.sortMode.Toggle()
		m.resort()

	case "home", "g":
		m.cursor = 0
		m.offset = 0

	case "end", "G":
		if len(m.items) > 0 {
			m.cursor = len(m.items) - 1
			m.ensureVisible()
		}

	case "pgup":
		m.cursor -= m.visibleRows()
		if m.cursor < 0 {
			m.cursor = 0
		}
		m.ensureVisible()

	case "pgdown":
		m.cursor += m.visibleRows()
		if m.cursor >= len(m.items) {
			m.cursor = len(m.items) - 1
		}
		m.ensureVisible()
	}
}

// toggleCursor flips the row under the cursor and marks it manual.
func (m *BrowseModel) toggleCursor() {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return
	}
	item := m.items[m.cursor]
	item.selected = !item.selected
	item.manual = true
}

// selectAll selects every row and pins future arrivals selected.
func (m *BrowseModel) selectAll() {
	for _, item := range m.items {
		item.selected = true
		item.manual = true
	}
	m.pin = pinSelected
}

// selectNone clears every row and pins future arrivals unselected.
func (m *BrowseModel) selectNone() {
	for _, item := range m.items {
		item.selected = false
		item.manual = true
	}
	m.pin = pinCleared
}

// SelectedGroups returns the groups of all selected rows.
func (m *BrowseModel) SelectedGroups() []*report.Group {
	var groups []*report.Group
	for _, item := range m.items {
		if item.selected {
			groups = append(groups, item.group)
		}
	}
	return groups
}

// HasSelection reports whether any row is selected.
func (m *BrowseModel) HasSelection() bool {
	for _, item := range m.items {
		if item.selected {
			return true
		}
	}
	return false
}

// SelectedCount returns the number of selected repositories.
func (m *BrowseModel) SelectedCount() int {
	count := 0
	for _, item := range m.items {
		if item.selected {
			count++
		}
	}
	return count
}

// SelectedSize returns the total artifact size across selected rows.
func (m *BrowseModel) SelectedSize() int64 {
	var total int64
	for _, item := range m.items {
		if item.selected {
			total += item.group.TotalSize
		}
	}
	return total
}

// TotalSize returns the total artifact size across all rows.
func (m *BrowseModel) TotalSize() int64 {
	var total int64
	for _, item := range m.items {
		total += item.group.TotalSize
	}
	return total
}

// SetDimensions updates the width and height.
func (m *BrowseModel) SetDimensions(width, height int) {
	m.width = width
	m.height = height
	m.ensureVisible()
}

// View renders the browse screen. statusLine carries the live scan
// progress and is empty once the scan has finished.
func (m *BrowseModel) View(statusLine string) string {
	contentWidth := m.width - 4
	if contentWidth < 60 {
		contentWidth = 60
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if statusLine != "" {
		b.WriteString(mutedTextStyle.Render("  " + statusLine))
		b.WriteString("\n")
	}
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.renderHelpBar())
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")

	if len(m.items) == 0 {
		b.WriteString("\n")
		if statusLine != "" {
			b.WriteString(center(mutedTextStyle.Render("Scanning..."), contentWidth))
		} else {
			b.WriteString(center(mutedTextStyle.Render("No gitignored build artifacts found."), contentWidth))
		}
		b.WriteString("\n\n")
	} else {
		b.WriteString(m.renderList(contentWidth))
	}

	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.renderFooter(contentWidth))

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

// renderHeader renders the title line.
func (m *BrowseModel) renderHeader() string {
	title := fmt.Sprintf("  reclaim - %d repos, %s of build artifacts (sort: %s)",
		len(m.items), types.FormatSize(m.TotalSize()), m.sortMode)
	return titleStyle.Render(title)
}

// renderHelpBar renders the key hints.
func (m *BrowseModel) renderHelpBar() string {
	hints := []struct {
		key  string
		desc string
	}{
		{"Space", "Toggle"},
		{"a", "All"},
		{"n", "None"},
		{"s", "Sort"},
		{"Enter", "Clean"},
		{"q", "Quit"},
	}

	var parts []string
	for _, h := range hints {
		parts = append(parts, keyStyle.Render("["+h.key+"]")+" "+keyDescStyle.Render(h.desc))
	}
	return "  " + strings.Join(parts, "  ")
}

// renderList renders the scrollable repository list.
func (m *BrowseModel) renderList(width int) string {
	var b strings.Builder

	visibleRows := m.visibleRows()
	pathWidth := width - 28

	for i := m.offset; i < m.offset+visibleRows && i < len(m.items); i++ {
		item := m.items[i]
		b.WriteString(m.renderItemLine(item, i == m.cursor, pathWidth))
		b.WriteString("\n")
		if i == m.cursor {
			b.WriteString(m.renderItemDetails(item, width))
		}
	}

	// Pad so the footer stays put while results stream in.
	lineCount := 0
	for i := m.offset; i < m.offset+visibleRows && i < len(m.items); i++ {
		lineCount++
		if i == m.cursor {
			lineCount += len(m.items[i].group.Artifacts) + 1
		}
	}
	for lineCount < visibleRows+4 {
		b.WriteString("\n")
		lineCount++
	}

	return b.String()
}

// renderItemLine renders one repository row.
func (m *BrowseModel) renderItemLine(item *repoItem, isCursor bool, pathWidth int) string {
	var checkbox string
	if item.selected {
		checkbox = checkedStyle.Render("[x]")
	} else {
		checkbox = uncheckedStyle.Render("[ ]")
	}

	g := item.group
	size := sizeStyle(g.TotalSize).Render(padLeft(types.FormatSize(g.TotalSize), 9))

	age := " never"
	if days, ok := g.AgeDays(time.Now()); ok {
		age = fmt.Sprintf("%4dd ago", days)
	}

	path := truncatePath(report.RelDisplay(m.root, g.Root), pathWidth)

	cursor := " "
	if isCursor {
		cursor = cursorStyle.Render(">")
	}

	line := fmt.Sprintf("  %s %s %s %s  %s", checkbox, size, mutedTextStyle.Render(age), cursor, path)
	if isCursor {
		return selectedItemStyle.Width(pathWidth + 30).Render(line)
	}
	return normalItemStyle.Render(line)
}

// renderItemDetails renders the artifact breakdown for the cursor row.
func (m *BrowseModel) renderItemDetails(item *repoItem, width int) string {
	var b strings.Builder
	g := item.group

	head := "no commits"
	if g.HeadKnown && g.Head != nil {
		head = fmt.Sprintf("head %s (%s)", g.Head.ShortHash(), g.Head.Time.Format("2006-01-02"))
	}
	b.WriteString(groupDetailStyle.Render(head))
	b.WriteString("\n")

	for _, a := range g.Artifacts {
		line := fmt.Sprintf("%s  %s",
			padLeft(types.FormatSize(a.Size), 9),
			truncatePath(report.RelDisplay(g.Root, a.Path), width-20))
		b.WriteString(groupDetailStyle.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// renderFooter renders the selection summary.
func (m *BrowseModel) renderFooter(width int) string {
	left := fmt.Sprintf("  Selected: %d repos (%s)",
		m.SelectedCount(), types.FormatSize(m.SelectedSize()))
	right := mutedTextStyle.Render("[↑↓] Navigate")

	spacing := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if spacing < 1 {
		spacing = 1
	}
	return left + strings.Repeat(" ", spacing) + right
}

// visibleRows returns how many repository rows fit on screen.
func (m *BrowseModel) visibleRows() int {
	available := m.height - 14
	if available < 5 {
		available = 5
	}
	return available
}

// ensureVisible adjusts the scroll offset to keep the cursor on screen.
func (m *BrowseModel) ensureVisible() {
	visibleRows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	} else if m.cursor >= m.offset+visibleRows {
		m.offset = m.cursor - visibleRows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}
