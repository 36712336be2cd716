// Package tui provides the interactive terminal interface for reclaim.
// It uses Charmbracelet's Bubble Tea, Lip Gloss, and Bubbles.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// Color palette for the TUI.
var (
	// Primary colors
	primaryColor = lipgloss.Color("#7D56F4")
	accentColor  = lipgloss.Color("#00D9FF")

	// Status colors
	successColor = lipgloss.Color("#28A745")
	warningColor = lipgloss.Color("#FFC107")
	dangerColor  = lipgloss.Color("#DC3545")

	// Neutral colors
	mutedColor     = lipgloss.Color("#666666")
	subtleColor    = lipgloss.Color("#444444")
	borderColor    = lipgloss.Color("#333333")
	highlightColor = lipgloss.Color("#1A1A2E")
)

// Box styles for containers.
var (
	// outerBoxStyle is the main container style.
	outerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	// dividerStyle creates horizontal dividers.
	dividerStyle = lipgloss.NewStyle().
			Foreground(borderColor)
)

// Text styles.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	mutedTextStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorTextStyle = lipgloss.NewStyle().
			Foreground(dangerColor)

	successTextStyle = lipgloss.NewStyle().
				Foreground(successColor)

	warningTextStyle = lipgloss.NewStyle().
				Foreground(warningColor)
)

// Repo list styles.
var (
	// selectedItemStyle for the row under the cursor.
	selectedItemStyle = lipgloss.NewStyle().
				Background(highlightColor).
				Foreground(lipgloss.Color("#FFFFFF")).
				Bold(true)

	// normalItemStyle for other rows.
	normalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	checkedStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	uncheckedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// groupDetailStyle for the expanded artifact lines under the cursor.
	groupDetailStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				PaddingLeft(6)

	cursorStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)
)

// Size grading styles, from unremarkable up to alarming.
var (
	sizeSmallStyle = lipgloss.NewStyle().
			Width(10).
			Align(lipgloss.Right).
			Foreground(accentColor)

	sizeLargeStyle = lipgloss.NewStyle().
			Width(10).
			Align(lipgloss.Right).
			Foreground(warningColor)

	sizeHugeStyle = lipgloss.NewStyle().
			Width(10).
			Align(lipgloss.Right).
			Foreground(dangerColor)

	sizeEnormousStyle = lipgloss.NewStyle().
				Width(10).
				Align(lipgloss.Right).
				Foreground(dangerColor).
				Bold(true)
)

// sizeStyle picks a grading style for a measured size.
func sizeStyle(size int64) lipgloss.Style {
	switch {
	case size >= 10*types.GiB:
		return sizeEnormousStyle
	case size >= types.GiB:
		return sizeHugeStyle
	case size >= 100*types.MiB:
		return sizeLargeStyle
	default:
		return sizeSmallStyle
	}
}

// Progress bar styles.
var (
	progressFillStyle = lipgloss.NewStyle().
				Foreground(successColor)

	progressEmptyStyle = lipgloss.NewStyle().
				Foreground(subtleColor)
)

// Key hint styles.
var (
	keyStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	keyDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// Confirmation dialog styles.
var (
	dialogBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(warningColor).
			Padding(1, 2).
			Width(56)

	dialogTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(warningColor).
				Align(lipgloss.Center)

	dialogTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Align(lipgloss.Center)

	activeButtonStyle = lipgloss.NewStyle().
				Padding(0, 2).
				Margin(0, 1).
				Background(dangerColor).
				Foreground(lipgloss.Color("#FFFFFF")).
				Bold(true)

	inactiveButtonStyle = lipgloss.NewStyle().
				Padding(0, 2).
				Margin(0, 1).
				Background(subtleColor).
				Foreground(lipgloss.Color("#CCCCCC"))
)

// renderDivider creates a horizontal divider line.
func renderDivider(width int) string {
	return dividerStyle.Render(repeatChar('─', width))
}

// repeatChar repeats a character n times.
func repeatChar(char rune, n int) string {
	if n <= 0 {
		return ""
	}
	result := make([]rune, n)
	for i := range result {
		result[i] = char
	}
	return string(result)
}

// truncatePath truncates a path to fit within maxLen, preserving the end.
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	if maxLen <= 3 {
		return path[:maxLen]
	}
	return "..." + path[len(path)-(maxLen-3):]
}

// padLeft pads a string to the left to reach the target width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return repeatChar(' ', width-len(s)) + s
}

// center centers a string within the given width.
func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	leftPad := (width - len(s)) / 2
	rightPad := width - len(s) - leftPad
	return repeatChar(' ', leftPad) + s + repeatChar(' ', rightPad)
}
