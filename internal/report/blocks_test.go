package report

import (
	"strings"
	"testing"

	"github.com/vinayprograms/growwit/internal/campaign"
)

const sampleStrategy = `### 1. r/MealPrepSunday
A large, friendly community of weekly planners.
📋 COPY-PASTE FOR AGENT B (Subreddit 1):
Subreddit: r/MealPrepSunday
Product: Zest AI - AI meal planner
Framing Strategy: Share a weekly prep story
Rules Constraints: No direct links; self-posts only
Safety Rating: Green

📋 COPY-PASTE FOR AGENT B (Subreddit 2):
**Subreddit:** r/EatCheapAndHealthy
Product: Zest AI
Framing Strategy: Ask for budget feedback
Rules Constraints: Strict self-promotion rules,
  mention only when asked
Safety Rating: Yellow (moderate)

📋 COPY-PASTE FOR AGENT B (Subreddit 3):
Subreddit: r/Cooking
Product: Zest AI
Framing Strategy: Recipe share
Rules Constraints: None
Safety Rating: Amber

📋 COPY-PASTE FOR AGENT B (Subreddit 4):
Subreddit: r/mealprepsunday
Safety Rating: Red
`

func TestParseRecommendations(t *testing.T) {
	recs, drops := ParseRecommendations(sampleStrategy)

	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d: %+v", len(recs), recs)
	}
	want := campaign.Recommendation{
		Subreddit:        "r/MealPrepSunday",
		Product:          "Zest AI - AI meal planner",
		FramingStrategy:  "Share a weekly prep story",
		RulesConstraints: "No direct links; self-posts only",
		SafetyRating:     campaign.SafetyGreen,
	}
	if recs[0] != want {
		t.Errorf("recs[0] = %+v, want %+v", recs[0], want)
	}
	if recs[1].RulesConstraints != "Strict self-promotion rules, mention only when asked" {
		t.Errorf("continuation not joined: %q", recs[1].RulesConstraints)
	}
	if recs[1].SafetyRating != campaign.SafetyYellow {
		t.Errorf("recs[1] rating = %q", recs[1].SafetyRating)
	}

	if len(drops) != 2 {
		t.Fatalf("expected 2 drops, got %v", drops)
	}
	if drops[0].Subreddit != "r/Cooking" || !strings.Contains(drops[0].Reason, "malformed safety rating") {
		t.Errorf("drop[0] = %+v", drops[0])
	}
	if drops[1].Reason != "duplicate recommendation" {
		t.Errorf("drop[1] = %+v", drops[1])
	}
}

func TestParseRecommendations_EveryRatingIsValid(t *testing.T) {
	ratings := []string{"Green", "yellow", "RED", "Purple", "", "Green-ish", "n/a"}
	for _, r := range ratings {
		text := "📋 COPY-PASTE FOR AGENT B (Subreddit 1):\nSubreddit: r/test\nSafety Rating: " + r + "\n"
		recs, drops := ParseRecommendations(text)
		for _, rec := range recs {
			if !rec.SafetyRating.Valid() {
				t.Errorf("rating %q produced invalid recommendation %+v", r, rec)
			}
		}
		if len(recs)+len(drops) != 1 {
			t.Errorf("rating %q: %d recs, %d drops", r, len(recs), len(drops))
		}
	}
}

func TestParseRecommendations_WithoutMarker(t *testing.T) {
	text := `Subreddit: r/a
Safety Rating: Green

Subreddit: r/b
Safety Rating: Red`
	recs, drops := ParseRecommendations(text)
	if len(recs) != 2 || len(drops) != 0 {
		t.Fatalf("recs = %+v, drops = %v", recs, drops)
	}
	if recs[1].Subreddit != "r/b" || recs[1].SafetyRating != campaign.SafetyRed {
		t.Errorf("recs[1] = %+v", recs[1])
	}
}

func TestParseSchedule(t *testing.T) {
	text := `🕒 SCHEDULE BLOCK
Subreddit: r/MealPrepSunday
Peak Day: Sunday
Peak Hour UTC: 9
Today's Window: Not optimal today
Success Indicator: 14 of 100 top posts
Engagement Advice: Reply within the first hour

🕒 SCHEDULE BLOCK
Subreddit: r/Cooking
Peak Day: Funday
Peak Hour UTC: 10

🕒 SCHEDULE BLOCK
Subreddit: r/EatCheapAndHealthy
Peak Day: Tue
Peak Hour UTC: 25:00
`
	windows, drops := ParseSchedule(text)
	if len(windows) != 1 {
		t.Fatalf("expected 1 window, got %+v", windows)
	}
	want := campaign.ScheduleWindow{
		Subreddit:        "r/MealPrepSunday",
		PeakDay:          "Sunday",
		PeakHourUTC:      9,
		TodayWindow:      "Not optimal today",
		SuccessIndicator: "14 of 100 top posts",
		EngagementAdvice: "Reply within the first hour",
	}
	if windows[0] != want {
		t.Errorf("window = %+v", windows[0])
	}
	if len(drops) != 2 {
		t.Fatalf("drops = %v", drops)
	}
	for _, w := range windows {
		if w.PeakHourUTC < 0 || w.PeakHourUTC > 23 {
			t.Errorf("hour out of range: %+v", w)
		}
	}
}

func TestParseHour(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"14", 14, true},
		{"14:00 UTC", 14, true},
		{"2 PM", 14, true},
		{"12am", 0, true},
		{"12 pm", 12, true},
		{"24", 0, false},
		{"13 pm", 0, false},
		{"noon", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseHour(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseHour(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
