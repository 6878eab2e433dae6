// Package tui implements the Bubble Tea dashboard for pulse.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/pulse/internal/styles"
)

var (
	colorGreen  = styles.ColorGreen
	colorYellow = styles.ColorYellow
	colorBlue   = styles.ColorBlue
	colorRed    = styles.ColorRed
	colorGray   = styles.ColorGray
	colorWhite  = styles.ColorWhite
)

var (
	// Header line with timeframe and channel list.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue).
			PaddingLeft(1)

	headerStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	// Channel name column.
	channelStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	selectedChannelStyle = lipgloss.NewStyle().
				Foreground(colorBlue).
				Bold(true)

	failedChannelStyle = lipgloss.NewStyle().
				Foreground(colorRed)

	// Activity sparkline.
	sparkStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	// Message and user counts.
	countStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	// Reaction markers.
	markerStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	promotedStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	// Time axis and pointer.
	axisStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	pointerStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			PaddingLeft(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(colorBlue)
)

// Icons and symbols.
const (
	iconDot      = "•" // Unicode bullet separator
	iconMarker   = "◆"
	iconPointer  = "▲"
	iconPending  = "…"
	iconDisabled = "✘"
)

const banner = styles.Banner

var bannerStyle = styles.BannerStyle.
	PaddingLeft(1).
	PaddingBottom(1)
