package report

import (
	"testing"
	"unicode/utf8"
)

func TestStepTracker_Monotonic(t *testing.T) {
	tr := NewStepTracker()
	chunks := []string{
		"Scouting communities for Zest AI...\n",
		"# 📝 READY-TO-POST CAMPAIGNS\n",
		"Verified Rules for r/MealPrepSunday\n",
	}
	want := []int{2, 4, 4}
	wantAdvanced := []bool{true, true, false}
	for i, c := range chunks {
		got, advanced := tr.Observe(c)
		if got != want[i] || advanced != wantAdvanced[i] {
			t.Errorf("chunk %d: Observe() = %d, %v; want %d, %v", i, got, advanced, want[i], wantAdvanced[i])
		}
	}
}

func TestStepTracker_NeverDecreases(t *testing.T) {
	tr := NewStepTracker()
	prev := 0
	for _, c := range []string{"[STEP:1]", "[STEP:3]", "[STEP:2]", "TARGET SUBREDDITS", "[STEP:5]", "[STEP:4]", "[STEP:9]"} {
		got, _ := tr.Observe(c)
		if got < prev {
			t.Fatalf("step went from %d to %d on %q", prev, got, c)
		}
		prev = got
	}
	if prev != 5 {
		t.Errorf("final step = %d, want 5", prev)
	}
}

func TestStepTracker_MarkerSplitAcrossChunks(t *testing.T) {
	tr := NewStepTracker()
	if step, _ := tr.Observe("progress text [STE"); step != 0 {
		t.Fatalf("step = %d before marker completes", step)
	}
	if step, advanced := tr.Observe("P:3] more"); step != 3 || !advanced {
		t.Errorf("Observe() = %d, %v; want 3, true", step, advanced)
	}
}

func TestStepTracker_ExplicitBeatsKeyword(t *testing.T) {
	tr := NewStepTracker()
	step, _ := tr.Observe("[STEP:4]\nScouting")
	if step != 4 {
		t.Errorf("step = %d, want 4", step)
	}
}

func TestStepMarker(t *testing.T) {
	if StepMarker(3) != "[STEP:3]" {
		t.Errorf("StepMarker(3) = %q", StepMarker(3))
	}
}

func TestTailOf_RuneBoundary(t *testing.T) {
	s := "ab📍cd"
	for n := 1; n <= len(s); n++ {
		tail := tailOf(s, n)
		if len(tail) > n {
			t.Errorf("tailOf(%d) too long: %q", n, tail)
		}
		for _, r := range tail {
			if r == utf8.RuneError {
				t.Errorf("tailOf(%d) split a rune: %q", n, tail)
			}
		}
	}
}
