package report

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxStep is the last progress step of a generation pass.
const MaxStep = 5

// StepMarker returns the explicit progress token for step n.
func StepMarker(n int) string {
	return "[STEP:" + strconv.Itoa(n) + "]"
}

var stepPattern = regexp.MustCompile(`\[STEP:(\d+)\]`)

// stepKeywords are fallback triggers for streams without explicit markers.
var stepKeywords = []struct {
	text string
	step int
}{
	{"TARGET SUBREDDITS", 2},
	{"Scouting", 2},
	{"RULES", 3},
	{"Verified Rules", 3},
	{"Drafting", 4},
	{"READY-TO-POST", 4},
	{"Scheduling", 5},
	{"Timing Analyzed", 5},
}

// tailSize bounds the text kept between chunks so that triggers split
// across chunk boundaries are still seen.
const tailSize = 64

// StepTracker follows a growing stream and reports the progress step.
// The step never decreases.
type StepTracker struct {
	step int
	tail string
}

// NewStepTracker creates a tracker at step 0.
func NewStepTracker() *StepTracker {
	return &StepTracker{}
}

// Step returns the current step.
func (t *StepTracker) Step() int {
	return t.step
}

// Observe scans the next chunk and returns the current step and whether
// it advanced. Lower or equal matches are ignored.
func (t *StepTracker) Observe(chunk string) (int, bool) {
	window := t.tail + chunk
	candidate := 0
	for _, m := range stepPattern.FindAllStringSubmatch(window, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n <= MaxStep && n > candidate {
			candidate = n
		}
	}
	for _, kw := range stepKeywords {
		if kw.step > candidate && strings.Contains(window, kw.text) {
			candidate = kw.step
		}
	}
	t.tail = tailOf(window, tailSize)

	if candidate > t.step {
		t.step = candidate
		return t.step, true
	}
	return t.step, false
}

// tailOf returns at most n trailing bytes of s starting on a rune boundary.
func tailOf(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return s[i:]
}
