package supervision

import (
	"strings"
	"testing"

	"github.com/vinayprograms/growwit/internal/campaign"
)

func draft(title, body string) campaign.PostDraft {
	return campaign.PostDraft{Subreddit: "r/SaaS", Title: title, Body: body, SafetyRating: campaign.SafetyGreen}
}

func TestReconcile_CleanDraft(t *testing.T) {
	d := draft("How I stopped losing leads in my inbox",
		"I run a two person agency. Last spring we kept missing replies, so I built a small sorter. Curious how others handle this?")
	res := New().Reconcile(d, campaign.Recommendation{RulesConstraints: "No links in the body."})
	if res.Verdict != VerdictContinue || len(res.Triggers) != 0 {
		t.Errorf("clean draft flagged: %+v", res)
	}
}

func TestReconcile_Triggers(t *testing.T) {
	tests := []struct {
		name  string
		title string
		body  string
		rules string
		want  Trigger
	}{
		{"em dash", "A title", "It works — mostly.", "", TriggerEmDash},
		{"exclamations", "A title", "It works!!", "", TriggerExclamations},
		{"opener in body", "A title", "Hey Reddit, quick question.", "", TriggerBannedOpener},
		{"opener in title", "Hey there, fellow founders", "Body text.", "", TriggerBannedOpener},
		{"corporate", "A title", "Our team built this over a year.", "", TriggerCorporateVoice},
		{"cta", "A title", "Feel free to check it out.", "", TriggerForbiddenCTA},
		{"buzzword", "A title", "It is a game-changing tool.", "", TriggerBuzzword},
		{"link", "A title", "See https://example.com for more.", "No links allowed in posts", TriggerLinkNotAllowed},
		{"long title", strings.Repeat("a", MaxTitleLength+1), "Body.", "", TriggerTitleTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New().Reconcile(draft(tt.title, tt.body), campaign.Recommendation{RulesConstraints: tt.rules})
			if res.Verdict != VerdictReorient {
				t.Fatalf("verdict = %s", res.Verdict)
			}
			found := false
			for _, tr := range res.Triggers {
				if tr == string(tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("triggers = %v, want %s", res.Triggers, tt.want)
			}
		})
	}
}

func TestReconcile_EnDashRangeIsClean(t *testing.T) {
	res := New().Reconcile(draft("Prep takes 8–10 minutes", "I batch 3–4 meals on Sunday."), campaign.Recommendation{})
	if res.Verdict != VerdictContinue {
		t.Errorf("en dash flagged: %v", res.Triggers)
	}
}

func TestReconcile_LinkAllowedWithoutRule(t *testing.T) {
	res := New().Reconcile(draft("A title", "Write-up at https://example.com"), campaign.Recommendation{RulesConstraints: "Be kind."})
	if res.Verdict != VerdictContinue {
		t.Errorf("link flagged without a no-links rule: %v", res.Triggers)
	}
}

func TestReconcile_TriggersAreUnique(t *testing.T) {
	res := New().Reconcile(draft("One — two", "three — four"), campaign.Recommendation{})
	if len(res.Triggers) != 1 || res.Triggers[0] != string(TriggerEmDash) {
		t.Errorf("triggers = %v", res.Triggers)
	}
}

func TestCorrectionPrompt(t *testing.T) {
	res := New().Reconcile(draft("A title", "Sign up today!!"), campaign.Recommendation{})
	p := CorrectionPrompt(res)
	for _, want := range []string{"no calls to action", `"Sign up"`, "**Title:**"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestAnnotate(t *testing.T) {
	rec := campaign.Recommendation{SafetyRating: campaign.SafetyYellow}
	d := campaign.PostDraft{Title: "t", Body: "b", SafetyCheck: "- Follows rule 2"}

	got := Annotate(d, rec, &Result{Verdict: VerdictReorient, Triggers: []string{"em_dash"}})
	if got.SafetyRating != campaign.SafetyYellow {
		t.Errorf("rating = %q", got.SafetyRating)
	}
	if !strings.HasPrefix(got.SafetyCheck, "- Follows rule 2\n") {
		t.Errorf("original check lost: %q", got.SafetyCheck)
	}
	if !strings.Contains(got.SafetyCheck, "Disclaimer: this community is rated Yellow") {
		t.Errorf("disclaimer missing: %q", got.SafetyCheck)
	}
	if !strings.Contains(got.SafetyCheck, "Linter warnings: em_dash") {
		t.Errorf("warnings missing: %q", got.SafetyCheck)
	}

	again := Annotate(got, rec, nil)
	if strings.Count(again.SafetyCheck, "Disclaimer") != 1 {
		t.Errorf("disclaimer duplicated: %q", again.SafetyCheck)
	}

	green := Annotate(d, campaign.Recommendation{SafetyRating: campaign.SafetyGreen}, &Result{Verdict: VerdictContinue})
	if green.SafetyCheck != d.SafetyCheck {
		t.Errorf("green draft changed: %q", green.SafetyCheck)
	}
}
