package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/vinayprograms/growwit/internal/campaign"
)

// Render writes rep in the final report layout that Parse reads back.
func Render(w io.Writer, rep *campaign.Report) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# 🎯 %s\n", headingTargets)
	for _, t := range targetsOf(rep) {
		if t.Note != "" {
			fmt.Fprintf(bw, "- %s (%s)\n", t.Subreddit, t.Note)
		} else {
			fmt.Fprintf(bw, "- %s\n", t.Subreddit)
		}
	}

	fmt.Fprintf(bw, "# 💡 %s\n", headingFraming)
	for _, t := range targetsOf(rep) {
		if t.Framing != "" {
			fmt.Fprintf(bw, "- **%s**: %s\n", t.Subreddit, oneLine(t.Framing))
		}
	}

	fmt.Fprintf(bw, "# 📝 %s\n", headingPosts)
	fmt.Fprintln(bw, "---")
	for _, post := range rep.Posts {
		if !post.Usable() {
			continue
		}
		renderPost(bw, rep, post)
		fmt.Fprintln(bw, "---")
	}
	return bw.Flush()
}

func renderPost(bw *bufio.Writer, rep *campaign.Report, post campaign.PostDraft) {
	fmt.Fprintf(bw, "## 📍 %s\n", campaign.NormalizeSubreddit(post.Subreddit))
	fmt.Fprintf(bw, "**Title:** %s\n", oneLine(post.Title))
	fmt.Fprintf(bw, "**Body:**\n%s\n", strings.TrimSpace(post.Body))

	rating := post.SafetyRating
	if !rating.Valid() {
		if rec, ok := rep.RecommendationFor(post.Subreddit); ok {
			rating = rec.SafetyRating
		}
	}
	if rating.Valid() {
		reason := oneLine(post.SafetyCheck)
		if reason == "" {
			reason = "No issues flagged"
		}
		fmt.Fprintf(bw, "**🛡️ SAFETY RATING:** %s - %s\n", rating, reason)
	}

	win, ok := rep.WindowFor(post.Subreddit)
	if ok && win.Valid() {
		fmt.Fprintln(bw, "**📅 SCHEDULING (GMT 0):**")
		fmt.Fprintf(bw, "- **Optimal:** %s\n", win.Optimal())
		fmt.Fprintf(bw, "- **Today's Window:** %s\n", orDash(oneLine(win.TodayWindow)))
		fmt.Fprintf(bw, "- **Success Indicator:** %s\n", orDash(oneLine(win.SuccessIndicator)))
	}
	if ok && strings.TrimSpace(win.EngagementAdvice) != "" {
		fmt.Fprintf(bw, "**⚡ ENGAGEMENT STRATEGY:**\n%s\n", strings.TrimSpace(win.EngagementAdvice))
	}
}

// targetsOf returns the report targets, deriving them from the
// recommendations when none were set.
func targetsOf(rep *campaign.Report) []campaign.Target {
	if len(rep.Targets) > 0 {
		return rep.Targets
	}
	targets := make([]campaign.Target, 0, len(rep.Recommendations))
	for _, rec := range rep.Recommendations {
		targets = append(targets, campaign.Target{
			Subreddit: campaign.NormalizeSubreddit(rec.Subreddit),
			Note:      string(rec.SafetyRating),
			Framing:   rec.FramingStrategy,
		})
	}
	return targets
}

// oneLine collapses whitespace so a value cannot break the line grammar.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
