// Package supervision checks writer drafts against the voice rules and
// decides whether a draft goes out or the writer is asked to try again.
package supervision

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/growwit/internal/campaign"
)

// Verdict represents the linter's decision.
type Verdict string

const (
	VerdictContinue Verdict = "CONTINUE"
	VerdictReorient Verdict = "REORIENT"
)

// Trigger names a rule a draft broke.
type Trigger string

const (
	TriggerEmDash         Trigger = "em_dash"
	TriggerExclamations   Trigger = "multiple_exclamations"
	TriggerBannedOpener   Trigger = "banned_opener"
	TriggerCorporateVoice Trigger = "corporate_voice"
	TriggerForbiddenCTA   Trigger = "forbidden_cta"
	TriggerBuzzword       Trigger = "marketing_buzzword"
	TriggerLinkNotAllowed Trigger = "link_not_allowed"
	TriggerTitleTooLong   Trigger = "title_too_long"
)

// MaxTitleLength is Reddit's title limit.
const MaxTitleLength = 300

var (
	emDash         = regexp.MustCompile(`—`)
	exclamations   = regexp.MustCompile(`!{2,}`)
	bannedOpener   = regexp.MustCompile(`(?i)^\W*(hey there|hey reddit|hello reddit|hi reddit)\b`)
	corporateVoice = regexp.MustCompile(`(?i)\b(our team|we launched|our product|our company|we're excited|we are excited)\b`)
	forbiddenCTA   = regexp.MustCompile(`(?i)\b(try it|sign up|visit our site|check it out|click here|download now)\b`)
	buzzword       = regexp.MustCompile(`(?i)\b(revolutionary|game[- ]chang(?:ing|er)|perfect|cutting[- ]edge|disruptive)\b`)
	link           = regexp.MustCompile(`(?i)(https?://|www\.)\S+`)
	noLinksRule    = regexp.MustCompile(`(?i)\bno\s+(?:direct\s+|external\s+|self[- ]promo(?:tional)?\s+)?links?\b|\blinks?\s+(?:are\s+)?not\s+allowed\b`)
)

// Finding is one rule violation with the text that matched.
type Finding struct {
	Trigger Trigger `json:"trigger"`
	Match   string  `json:"match"`
}

// Result is the outcome of a lint pass.
type Result struct {
	Verdict  Verdict   `json:"verdict"`
	Triggers []string  `json:"triggers,omitempty"`
	Findings []Finding `json:"findings,omitempty"`
}

// Linter runs the deterministic draft checks.
type Linter struct {
	logger *logging.Logger
}

// New creates a linter.
func New() *Linter {
	return &Linter{logger: logging.New().WithComponent("linter")}
}

// Reconcile performs static pattern checks on a draft. Any finding turns
// the verdict into REORIENT.
func (l *Linter) Reconcile(d campaign.PostDraft, rec campaign.Recommendation) *Result {
	var findings []Finding
	add := func(t Trigger, m string) {
		findings = append(findings, Finding{Trigger: t, Match: m})
	}
	text := d.Title + "\n" + d.Body

	if m := emDash.FindString(text); m != "" {
		add(TriggerEmDash, m)
	}
	if m := exclamations.FindString(text); m != "" {
		add(TriggerExclamations, m)
	}
	for _, s := range []string{d.Title, d.Body} {
		if m := bannedOpener.FindString(strings.TrimSpace(s)); m != "" {
			add(TriggerBannedOpener, strings.TrimSpace(m))
			break
		}
	}
	if m := corporateVoice.FindString(text); m != "" {
		add(TriggerCorporateVoice, m)
	}
	if m := forbiddenCTA.FindString(text); m != "" {
		add(TriggerForbiddenCTA, m)
	}
	if m := buzzword.FindString(text); m != "" {
		add(TriggerBuzzword, m)
	}
	if noLinksRule.MatchString(rec.RulesConstraints) {
		if m := link.FindString(d.Body); m != "" {
			add(TriggerLinkNotAllowed, m)
		}
	}
	if len([]rune(d.Title)) > MaxTitleLength {
		add(TriggerTitleTooLong, fmt.Sprintf("%d characters", len([]rune(d.Title))))
	}

	res := &Result{Verdict: VerdictContinue, Findings: findings}
	seen := make(map[Trigger]bool)
	for _, f := range findings {
		if !seen[f.Trigger] {
			seen[f.Trigger] = true
			res.Triggers = append(res.Triggers, string(f.Trigger))
		}
	}
	if len(res.Triggers) > 0 {
		res.Verdict = VerdictReorient
		l.logger.Info("draft needs rework", map[string]interface{}{
			"subreddit": d.Subreddit,
			"triggers":  strings.Join(res.Triggers, ","),
		})
	}
	return res
}

// CorrectionPrompt tells the writer what to fix in its previous draft.
func CorrectionPrompt(res *Result) string {
	var sb strings.Builder
	sb.WriteString("Your draft broke these writing rules:\n")
	for _, f := range res.Findings {
		sb.WriteString(fmt.Sprintf("- %s: %q\n", describe(f.Trigger), f.Match))
	}
	sb.WriteString("\nRewrite the whole post without them. Keep the same sections: **Title:**, **Body:**, **Suggested Flair:**, **Safety Check:**.")
	return sb.String()
}

func describe(t Trigger) string {
	switch t {
	case TriggerEmDash:
		return "em dashes are not allowed, use a comma or a new sentence"
	case TriggerExclamations:
		return "use at most one exclamation mark at a time"
	case TriggerBannedOpener:
		return "do not open with a greeting to Reddit"
	case TriggerCorporateVoice:
		return "write as one person, not as a company"
	case TriggerForbiddenCTA:
		return "no calls to action"
	case TriggerBuzzword:
		return "no marketing buzzwords"
	case TriggerLinkNotAllowed:
		return "this community does not allow links"
	case TriggerTitleTooLong:
		return fmt.Sprintf("the title must be under %d characters", MaxTitleLength)
	}
	return string(t)
}

// Disclaimer returns the safety note for risky communities, or "".
func Disclaimer(rating campaign.SafetyRating) string {
	switch rating {
	case campaign.SafetyYellow, campaign.SafetyRed:
		return fmt.Sprintf("- Disclaimer: this community is rated %s. Review the post against the community rules before posting.", rating)
	}
	return ""
}

// Annotate finalizes a draft: it takes the rating from the recommendation,
// adds the disclaimer for Yellow and Red communities and lists any rules
// the draft still breaks.
func Annotate(d campaign.PostDraft, rec campaign.Recommendation, res *Result) campaign.PostDraft {
	if d.SafetyRating == "" {
		d.SafetyRating = rec.SafetyRating
	}
	var notes []string
	if disc := Disclaimer(rec.SafetyRating); disc != "" && !strings.Contains(strings.ToLower(d.SafetyCheck), "disclaimer") {
		notes = append(notes, disc)
	}
	if res != nil && res.Verdict == VerdictReorient {
		notes = append(notes, "- Linter warnings: "+strings.Join(res.Triggers, ", "))
	}
	if len(notes) > 0 {
		d.SafetyCheck = strings.TrimSpace(strings.Join(append([]string{d.SafetyCheck}, notes...), "\n"))
	}
	return d
}
