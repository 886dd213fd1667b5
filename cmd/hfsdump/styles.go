package main

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.AdaptiveColor{Light: "#1E66F5", Dark: "#89B4FA"}
	accentColor  = lipgloss.AdaptiveColor{Light: "#8839EF", Dark: "#CBA6F7"}
	warnColor    = lipgloss.AdaptiveColor{Light: "#DF8E1D", Dark: "#F9E2AF"}
	errorColor   = lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#F38BA8"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "#8C8FA1", Dark: "#6C7086"}
	fgColor      = lipgloss.AdaptiveColor{Light: "#1E1E2E", Dark: "#CDD6F4"}
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(fgColor)

	dirStyle = lipgloss.NewStyle().
			Foreground(primaryColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	warnStyle = lipgloss.NewStyle().
			Foreground(warnColor).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)
