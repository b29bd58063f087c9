package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/vinayprograms/growwit/internal/campaign"
	"github.com/vinayprograms/growwit/internal/report"
)

var (
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")) // Gray - markers, metadata

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")) // Gray - labels

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")) // White bold - stage headers

	subredditStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("208")) // Orange

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("9")) // Red
)

// ratingStyle colours a safety rating.
func ratingStyle(r campaign.SafetyRating) lipgloss.Style {
	switch r {
	case campaign.SafetyGreen:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	case campaign.SafetyYellow:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	case campaign.SafetyRed:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	default:
		return dimStyle
	}
}

// styledWriter styles a campaign stream line by line for a terminal. Step
// markers become a dim progress line and headings are bolded.
type styledWriter struct {
	mu  sync.Mutex
	out io.Writer
	buf bytes.Buffer
}

func newStyledWriter(out io.Writer) *styledWriter {
	return &styledWriter{out: out}
}

func (w *styledWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Keep the partial line for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			return len(p), nil
		}
		if _, err := io.WriteString(w.out, styleLine(strings.TrimSuffix(line, "\n"))+"\n"); err != nil {
			return 0, err
		}
	}
}

// Flush writes any buffered partial line.
func (w *styledWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() == 0 {
		return nil
	}
	_, err := io.WriteString(w.out, styleLine(w.buf.String()))
	w.buf.Reset()
	return err
}

func styleLine(line string) string {
	trimmed := strings.TrimSpace(line)
	for n := 1; n <= report.MaxStep; n++ {
		if trimmed == report.StepMarker(n) {
			return dimStyle.Render(fmt.Sprintf("step %d/%d", n, report.MaxStep))
		}
	}
	switch {
	case strings.HasPrefix(trimmed, "#"):
		return headerStyle.Render(strings.TrimSpace(strings.TrimLeft(trimmed, "#")))
	case strings.HasPrefix(trimmed, report.ErrorTag):
		return errorStyle.Render(trimmed)
	}
	return line
}
