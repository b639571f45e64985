package main

import "github.com/charmbracelet/lipgloss"

var (
	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))
)
