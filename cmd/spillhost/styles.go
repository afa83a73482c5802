package main

import (
	lipgloss "github.com/charmbracelet/lipgloss/v2"
)

var (
	colorPrimary = lipgloss.Color("#7C71F9")
	colorSuccess = lipgloss.Color("#34D399")
	colorError   = lipgloss.Color("#F87171")
	colorDim     = lipgloss.Color("#6B7280")
	colorAccent  = lipgloss.Color("#60A5FA")
)

var (
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleError   = lipgloss.NewStyle().Foreground(colorError)
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess)

	styleMethod  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleHeader  = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	stylePayload = styleDim
	styleDirIn   = styleSuccess
	styleDirOut  = lipgloss.NewStyle().Foreground(colorPrimary)
)
