package report

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/vinayprograms/growwit/internal/campaign"
)

const sampleReport = `[STEP:1]
### 🔍 ANALYZING PRODUCT: Zest AI
Narration that mentions r/Cooking before the report starts.

[STEP:5]

# 🎯 TARGET SUBREDDITS
- r/MealPrepSunday (Green)
- r/EatCheapAndHealthy
# 💡 FRAMING STRATEGIES
- **r/MealPrepSunday**: Share a weekly prep story
- **r/EatCheapAndHealthy**: Ask for budget feedback
# 📝 READY-TO-POST CAMPAIGNS
---
## 📍 r/MealPrepSunday
**Title:** I automated my Sunday prep list
**Body:**
Every Sunday I used to spend an hour planning.

So I wrote a small planner. What do you all use?
**🛡️ SAFETY RATING:** Green - Self-posts allowed
**📅 SCHEDULING (GMT 0):**
- **Optimal:** Sunday at 09:00 UTC
- **Today's Window:** Not today
- **Success Indicator:** 12 of 100 top posts
**⚡ ENGAGEMENT STRATEGY:**
Reply to every comment in the first hour.
---
## 📍 r/EatCheapAndHealthy
**Title:** Budget meal planning question
**Body:**
How do you plan cheap meals for a week?
**🛡️ SAFETY RATING:** Yellow - Strict self-promo rules
---
## 📍 r/Cooking
**Body:**
No title here.
---
## 📍 r/nutrition
**Title:** Title only
---
`

func TestLexer_Classify(t *testing.T) {
	tests := []struct {
		line  string
		typ   TokenType
		label string
		value string
	}{
		{"", TokenBlank, "", ""},
		{"---", TokenRule, "", ""},
		{"[STEP:4]", TokenStep, "", ""},
		{"# 🎯 TARGET SUBREDDITS", TokenHeading, "", "🎯 TARGET SUBREDDITS"},
		{"## 📍 r/MealPrepSunday", TokenPostHeader, "", "r/MealPrepSunday"},
		{"**Title:** Hello", TokenLabel, "TITLE", "Hello"},
		{"**Body**: inline", TokenLabel, "BODY", "inline"},
		{"**🛡️ SAFETY RATING:** Green - ok", TokenLabel, "SAFETY RATING", "Green - ok"},
		{"**📅 SCHEDULING (GMT 0):**", TokenLabel, "SCHEDULING (GMT 0)", ""},
		{"- **Today’s Window:** now", TokenBullet, "TODAY'S WINDOW", "now"},
		{"- plain bullet", TokenBullet, "", "plain bullet"},
		{"**just bold** text", TokenText, "", "**just bold** text"},
		{"#hashtag", TokenText, "", "#hashtag"},
	}
	for _, tt := range tests {
		tok := classify(tt.line)
		if tok.Type != tt.typ || tok.Label != tt.label || tok.Value != tt.value {
			t.Errorf("classify(%q) = {%s %q %q}, want {%s %q %q}",
				tt.line, tok.Type, tok.Label, tok.Value, tt.typ, tt.label, tt.value)
		}
	}
}

func TestLexer_LineNumbers(t *testing.T) {
	toks := Tokens("a\n\n**Title:** b\n")
	want := []TokenType{TokenText, TokenBlank, TokenLabel, TokenEOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, tok := range toks[:3] {
		if tok.Type != want[i] || tok.Line != i+1 {
			t.Errorf("token %d = %s line %d", i, tok.Type, tok.Line)
		}
	}
}

func TestParse_Report(t *testing.T) {
	rep, drops := Parse(sampleReport)

	if len(rep.Posts) != 2 {
		t.Fatalf("expected 2 posts, got %d: %+v", len(rep.Posts), rep.Posts)
	}
	first := rep.Posts[0]
	if first.Subreddit != "r/MealPrepSunday" {
		t.Errorf("subreddit = %q", first.Subreddit)
	}
	if first.Title != "I automated my Sunday prep list" {
		t.Errorf("title = %q", first.Title)
	}
	wantBody := "Every Sunday I used to spend an hour planning.\n\nSo I wrote a small planner. What do you all use?"
	if first.Body != wantBody {
		t.Errorf("body = %q, want %q", first.Body, wantBody)
	}
	if first.SafetyRating != campaign.SafetyGreen || first.SafetyCheck != "Self-posts allowed" {
		t.Errorf("safety = %q / %q", first.SafetyRating, first.SafetyCheck)
	}

	if len(drops) != 2 {
		t.Fatalf("expected 2 drops, got %v", drops)
	}
	if drops[0].Subreddit != "r/Cooking" || drops[0].Reason != "missing title" {
		t.Errorf("drop[0] = %+v", drops[0])
	}
	if drops[1].Subreddit != "r/nutrition" || drops[1].Reason != "missing body" {
		t.Errorf("drop[1] = %+v", drops[1])
	}

	if len(rep.Targets) != 2 || rep.Targets[0].Note != "Green" || rep.Targets[1].Framing != "Ask for budget feedback" {
		t.Errorf("targets = %+v", rep.Targets)
	}
	if len(rep.Recommendations) != 2 || rep.Recommendations[1].SafetyRating != campaign.SafetyYellow {
		t.Errorf("recommendations = %+v", rep.Recommendations)
	}
	if len(rep.Schedule) != 1 {
		t.Fatalf("schedule = %+v", rep.Schedule)
	}
	w := rep.Schedule[0]
	if w.PeakDay != "Sunday" || w.PeakHourUTC != 9 || w.TodayWindow != "Not today" ||
		w.EngagementAdvice != "Reply to every comment in the first hour." {
		t.Errorf("window = %+v", w)
	}
	if strings.Contains(rep.StrategyText, "Narration") {
		t.Error("strategy text should not include narration before the report")
	}
}

func TestParse_BodyHasNoStrayMarkers(t *testing.T) {
	rep, _ := Parse(sampleReport)
	for _, p := range rep.Posts {
		for _, marker := range []string{"**Title:**", "**Body:**", "🛡", "📅", "⚡", "---", "##"} {
			if strings.Contains(p.Body, marker) {
				t.Errorf("body of %s contains %q", p.Subreddit, marker)
			}
		}
	}
}

func TestParse_BlocksMissingFieldsEmitNothing(t *testing.T) {
	inputs := []string{
		"## 📍 r/a\n**Body:**\ntext\n",
		"## 📍 r/a\n**Title:** t\n",
		"## 📍 r/a\n**Title:**\n**Body:**\ntext\n",
		"## 📍 r/a\n**Title:** t\n**Body:**\n**🛡️ SAFETY RATING:** Red - x\n",
		"## 📍 \n**Title:** t\n**Body:**\ntext\n",
		"## 📍 r/a\n**Title:** t\n**Body:**\ntext\n**🛡️ SAFETY RATING:** Purple - unsure\n",
	}
	for _, in := range inputs {
		rep, drops := Parse(in)
		if len(rep.Posts) != 0 {
			t.Errorf("Parse(%q) emitted %+v", in, rep.Posts)
		}
		if len(drops) != 1 {
			t.Errorf("Parse(%q) drops = %v", in, drops)
		}
	}
}

func TestParse_DropCountMatchesMissingPosts(t *testing.T) {
	in := "## 📍 r/a\n**Title:** t\n**Body:**\ntext\n**🛡️ SAFETY RATING:** Purple - unsure\n---\n" +
		"## 📍 r/b\n**Title:** u\n**Body:**\nmore\n**🛡️ SAFETY RATING:** Green - fine\n"
	rep, drops := Parse(in)
	if len(rep.Posts) != 1 || rep.Posts[0].Subreddit != "r/b" {
		t.Fatalf("posts = %+v", rep.Posts)
	}
	if len(drops) != 1 || drops[0].Subreddit != "r/a" || !strings.Contains(drops[0].Reason, "unrecognized safety rating") {
		t.Errorf("drops = %v", drops)
	}
}

func TestRender_RoundTrip(t *testing.T) {
	bodies := []string{
		"One line body.",
		"First paragraph.\n\nSecond paragraph with a question?",
		"Line with **bold** words.\n- a list item\n- another",
		"Mentions r/other and a time like 14:00.",
	}
	for _, body := range bodies {
		rep := &campaign.Report{
			Targets: []campaign.Target{{Subreddit: "r/SideProject", Framing: "Show the build log"}},
			Posts: []campaign.PostDraft{{
				Subreddit:    "r/SideProject",
				Title:        "Six months of building a meal planner",
				Body:         body,
				SafetyRating: campaign.SafetyYellow,
				SafetyCheck:  "Self-promo on weekends only",
			}},
			Schedule: []campaign.ScheduleWindow{{
				Subreddit:        "r/SideProject",
				PeakDay:          "Saturday",
				PeakHourUTC:      16,
				TodayWindow:      "Today at 16:00 UTC",
				SuccessIndicator: "9 of 100 top posts",
				EngagementAdvice: "Answer questions fast.",
			}},
		}

		var buf bytes.Buffer
		if err := Render(&buf, rep); err != nil {
			t.Fatal(err)
		}
		got, drops := Parse(buf.String())
		if len(drops) != 0 {
			t.Errorf("unexpected drops: %v", drops)
		}
		if !reflect.DeepEqual(got.Posts, rep.Posts) {
			t.Errorf("posts round trip:\n got %+v\nwant %+v", got.Posts, rep.Posts)
		}
		if !reflect.DeepEqual(got.Schedule, rep.Schedule) {
			t.Errorf("schedule round trip:\n got %+v\nwant %+v", got.Schedule, rep.Schedule)
		}
		if len(got.Targets) != 1 || got.Targets[0].Framing != "Show the build log" {
			t.Errorf("targets = %+v", got.Targets)
		}
	}
}

func TestRender_Layout(t *testing.T) {
	rep, _ := Parse(sampleReport)
	var buf bytes.Buffer
	if err := Render(&buf, rep); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	order := []string{
		"# 🎯 TARGET SUBREDDITS\n",
		"# 💡 FRAMING STRATEGIES\n",
		"# 📝 READY-TO-POST CAMPAIGNS\n---\n",
		"## 📍 r/MealPrepSunday\n**Title:** ",
		"**🛡️ SAFETY RATING:** Green - ",
		"**📅 SCHEDULING (GMT 0):**\n- **Optimal:** Sunday at 09:00 UTC\n",
		"**⚡ ENGAGEMENT STRATEGY:**\n",
		"## 📍 r/EatCheapAndHealthy\n",
	}
	pos := 0
	for _, s := range order {
		i := strings.Index(out[pos:], s)
		if i < 0 {
			t.Fatalf("missing %q after offset %d in:\n%s", s, pos, out)
		}
		pos += i + len(s)
	}
}

func TestParseDraft_WriterSections(t *testing.T) {
	text := `**Title:**
Has anyone tried planning meals with a spreadsheet?

**Body:**
I have been tracking groceries for a year.

It cut my food waste in half. Curious what others do?

**Suggested Flair:** (if applicable)
Discussion

**Safety Check:**
- Passed: Yes
- Warnings: None`

	d, err := ParseDraft("MealPrepSunday", text)
	if err != nil {
		t.Fatal(err)
	}
	if d.Subreddit != "r/MealPrepSunday" {
		t.Errorf("subreddit = %q", d.Subreddit)
	}
	if d.Title != "Has anyone tried planning meals with a spreadsheet?" {
		t.Errorf("title = %q", d.Title)
	}
	if d.Body != "I have been tracking groceries for a year.\n\nIt cut my food waste in half. Curious what others do?" {
		t.Errorf("body = %q", d.Body)
	}
	if d.Flair != "Discussion" {
		t.Errorf("flair = %q", d.Flair)
	}
	if d.SafetyCheck != "- Passed: Yes\n- Warnings: None" {
		t.Errorf("safety check = %q", d.SafetyCheck)
	}
}

func TestParseDraft_Incomplete(t *testing.T) {
	if _, err := ParseDraft("r/a", "**Title:** only a title"); err != ErrIncompleteDraft {
		t.Errorf("expected ErrIncompleteDraft, got %v", err)
	}
	if _, err := ParseDraft("r/a", "free text with no sections"); err != ErrIncompleteDraft {
		t.Errorf("expected ErrIncompleteDraft, got %v", err)
	}
}
