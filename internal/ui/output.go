// Package ui provides colored console output helpers for the CLI.
package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

const headerWidth = 60

// Header prints a centered section header between rule lines.
func Header(text string) {
	line := strings.Repeat("=", headerWidth)
	color.Cyan(line)
	color.Cyan(center(text, headerWidth))
	color.Cyan(line)
}

// Step prints a numbered wizard step marker.
func Step(n, total int, msg string) {
	color.Blue("[%d/%d] %s", n, total, msg)
}

// Success prints a green success line.
func Success(format string, a ...interface{}) {
	color.Green("✓ "+format, a...)
}

// Info prints a plain informational line.
func Info(format string, a ...interface{}) {
	fmt.Printf(format+"\n", a...)
}

// Warning prints a yellow warning line.
func Warning(format string, a ...interface{}) {
	color.Yellow("⚠ "+format, a...)
}

// Error prints a red error line.
func Error(format string, a ...interface{}) {
	color.Red("✗ "+format, a...)
}

// BlueText returns the text wrapped in blue ANSI codes.
func BlueText(text string) string {
	return color.BlueString(text)
}

// YellowText returns the text wrapped in yellow ANSI codes.
func YellowText(text string) string {
	return color.YellowString(text)
}

// center left-pads text toward the middle of width. Text at or beyond the
// width is returned unchanged.
func center(text string, width int) string {
	if len(text) >= width {
		return text
	}
	padding := (width - len(text)) / 2
	return strings.Repeat(" ", padding) + text
}
