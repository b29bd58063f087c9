package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/vinayprograms/growwit/internal/campaign"
	"github.com/vinayprograms/growwit/internal/report"
	"github.com/vinayprograms/growwit/internal/supervision"
)

func strategistPrompt(req campaign.Request, want int) string {
	return fmt.Sprintf(`Product: %s
Description: %s
Goal: %s

Find at least %d communities for this product and end each one with its copy-paste block.`,
		req.ProductName, req.ProductDescription, goalLine(req.UserGoal), want)
}

// goalLine spells out the known goal values.
func goalLine(goal string) string {
	g := campaign.Goal(strings.ToLower(strings.TrimSpace(goal)))
	if d := g.Describe(); d != string(g) {
		return fmt.Sprintf("%s (%s)", goal, d)
	}
	return goal
}

func cadencePrompt(recs []campaign.Recommendation, now time.Time) string {
	var b strings.Builder
	now = now.UTC()
	fmt.Fprintf(&b, "Current time: %s, %s UTC\n\n", now.Weekday(), now.Format("2006-01-02 15:04"))
	b.WriteString("Plan the posting window for each of these subreddits:\n")
	for _, rec := range recs {
		fmt.Fprintf(&b, "- %s\n", rec.Subreddit)
	}
	return b.String()
}

func writerPrompt(req campaign.Request, rec campaign.Recommendation) string {
	return fmt.Sprintf(`Write the post for this brief.

%s
Product description: %s
Campaign goal: %s`, rec.Brief(), req.ProductDescription, goalLine(req.UserGoal))
}

// retryPrompt asks for a rewrite of a draft the linter rejected.
func retryPrompt(prompt, previous string, res *supervision.Result) string {
	return prompt + "\n\nYour previous draft was:\n\n" + strings.TrimSpace(previous) +
		"\n\n" + supervision.CorrectionPrompt(res)
}

// finalizerPrompt hands the finished material to the finalizer agent.
func finalizerPrompt(rep *campaign.Report) string {
	var b strings.Builder
	b.WriteString("TARGETS:\n")
	for _, rec := range rep.Recommendations {
		fmt.Fprintf(&b, "- %s | Safety: %s | Framing: %s\n", rec.Subreddit, rec.SafetyRating, rec.FramingStrategy)
	}
	b.WriteString("\nDRAFTS:\n")
	for _, d := range rep.Posts {
		fmt.Fprintf(&b, "\n### %s\n%s", d.Subreddit, report.FormatDraft(d))
		fmt.Fprintf(&b, "Safety: %s\n%s\n", d.SafetyRating, strings.TrimSpace(d.SafetyCheck))
	}
	if len(rep.Schedule) > 0 {
		b.WriteString("\nWINDOWS:\n")
		for _, w := range rep.Schedule {
			fmt.Fprintf(&b, "- %s: %s; Today: %s; Success: %s; Engagement: %s\n",
				w.Subreddit, w.Optimal(), w.TodayWindow, w.SuccessIndicator, w.EngagementAdvice)
		}
	}
	return b.String()
}

func crafterPrompt(req campaign.CraftRequest, rec campaign.Recommendation, n, total int, date time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", req.ProductName)
	if req.ProductDescription != "" {
		fmt.Fprintf(&b, "Description: %s\n", req.ProductDescription)
	}
	fmt.Fprintf(&b, "Community: %s\n", rec.Subreddit)
	if rec.FramingStrategy != "" {
		fmt.Fprintf(&b, "Framing angle: %s\n", rec.FramingStrategy)
	}
	if rec.RulesConstraints != "" {
		fmt.Fprintf(&b, "Rules: %s\n", rec.RulesConstraints)
	}
	fmt.Fprintf(&b, "\nThis is post %d of %d. It goes out on %s.", n, total, date.Format("Monday, January 2"))
	return b.String()
}
