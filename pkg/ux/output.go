// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides rich terminal output styling for the cph CLI.
package ux

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// cph color palette - alpine blues and summit snow
var (
	ColorBlueBright  = lipgloss.Color("#4FB8FF") // highlights, success
	ColorBluePrimary = lipgloss.Color("#2E86D1") // primary brand color
	ColorBlueDeep    = lipgloss.Color("#1B5E8A") // borders, accents
	ColorSlate       = lipgloss.Color("#4A5A66") // muted text

	// Semantic colors (keeping standard conventions for clarity)
	ColorSuccess = lipgloss.Color("#2ECC71")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorBlueBright),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconSkipped Icon = "↷"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// colorEnabled is true when stdout is an interactive terminal.
var colorEnabled = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

// SetColorEnabled overrides terminal detection (used by tests and flags).
func SetColorEnabled(enabled bool) {
	colorEnabled = enabled
}

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	if !colorEnabled {
		return string(i)
	}
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconSkipped, IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// StatusIcon maps a workflow node status string to its icon.
func StatusIcon(status string) Icon {
	switch status {
	case "completed":
		return IconSuccess
	case "failed":
		return IconError
	case "skipped":
		return IconSkipped
	case "running":
		return IconArrow
	default:
		return IconPending
	}
}

// Out is the destination for the print helpers; tests swap it out.
var Out io.Writer = os.Stdout

// Title prints a styled heading.
func Title(text string) {
	if colorEnabled {
		fmt.Fprintln(Out, Styles.Title.Render(text))
		return
	}
	fmt.Fprintln(Out, text)
}

// Success prints a success message with checkmark.
func Success(text string) {
	fmt.Fprintf(Out, "%s %s\n", IconSuccess.Render(), text)
}

// Warning prints a warning message.
func Warning(text string) {
	fmt.Fprintf(Out, "%s %s\n", IconWarning.Render(), text)
}

// Error prints an error message.
func Error(text string) {
	fmt.Fprintf(Out, "%s %s\n", IconError.Render(), text)
}

// Statusf prints one node status line: icon, identifier, detail.
func Statusf(status, id, detail string) {
	if detail == "" {
		fmt.Fprintf(Out, "  %s %s\n", StatusIcon(status).Render(), id)
		return
	}
	fmt.Fprintf(Out, "  %s %s %s\n", StatusIcon(status).Render(), id, mutedText(detail))
}

func mutedText(s string) string {
	if !colorEnabled {
		return s
	}
	return Styles.Muted.Render(s)
}
