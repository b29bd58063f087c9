package report

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/vinayprograms/growwit/internal/campaign"
)

// minGap is the smallest spacing in days between two posts.
const minGap = 1.5

// windowDays is the length of the posting window.
const windowDays = 30

// DayOffsets spaces n posts across the posting window:
// gap = max(1.5, 30/n), offset(i) = round(i*gap). Offsets are
// non-decreasing and stay within [0,29] for n <= 20; larger n is
// clamped by the minimum gap and runs past the window.
func DayOffsets(n int) []int {
	if n <= 0 {
		return nil
	}
	gap := math.Max(minGap, float64(windowDays)/float64(n))
	offsets := make([]int, n)
	for i := range offsets {
		offsets[i] = int(math.Round(float64(i) * gap))
	}
	return offsets
}

// ScheduleDates returns the posting dates for n posts. The window
// starts the day after today; the time of day is kept.
func ScheduleDates(today time.Time, n int) []time.Time {
	offsets := DayOffsets(n)
	dates := make([]time.Time, len(offsets))
	for i, off := range offsets {
		dates[i] = today.AddDate(0, 0, 1+off)
	}
	return dates
}

// BuildActions turns usable drafts into pending post actions scheduled
// with ScheduleDates.
func BuildActions(posts []campaign.PostDraft, campaignID, accountID string, today time.Time) []campaign.Action {
	var usable []campaign.PostDraft
	for _, p := range posts {
		if p.Usable() {
			usable = append(usable, p)
		}
	}
	dates := ScheduleDates(today, len(usable))
	actions := make([]campaign.Action, len(usable))
	for i, p := range usable {
		actions[i] = campaign.Action{
			ID:           uuid.New().String(),
			CampaignID:   campaignID,
			AccountID:    accountID,
			Type:         campaign.ActionPost,
			Status:       campaign.ActionPending,
			Subreddit:    campaign.SubredditName(p.Subreddit),
			Title:        p.Title,
			Content:      p.Body,
			ScheduledFor: dates[i],
		}
	}
	return actions
}
