package report

import (
	"fmt"
	"strings"

	"github.com/vinayprograms/growwit/internal/campaign"
)

// Markers that open the machine-readable blocks agents are asked to emit.
const (
	RecommendationMarker = "COPY-PASTE FOR AGENT B"
	ScheduleMarker       = "SCHEDULE BLOCK"
)

// Keys of a recommendation block.
const (
	keySubreddit = "SUBREDDIT"
	keyProduct   = "PRODUCT"
	keyFraming   = "FRAMING STRATEGY"
	keyRules     = "RULES CONSTRAINTS"
	keyRating    = "SAFETY RATING"
)

// Keys of a schedule block.
const (
	keyPeakDay    = "PEAK DAY"
	keyPeakHour   = "PEAK HOUR UTC"
	keyToday      = "TODAY'S WINDOW"
	keySuccess    = "SUCCESS INDICATOR"
	keyEngagement = "ENGAGEMENT ADVICE"
)

var (
	recommendationKeys = []string{keySubreddit, keyProduct, keyFraming, keyRules, keyRating}
	scheduleKeys       = []string{keySubreddit, keyPeakDay, keyPeakHour, keyToday, keySuccess, keyEngagement}
)

// fieldBlock is a run of "Key: value" lines.
type fieldBlock struct {
	line   int
	fields map[string]string
}

// scanBlocks splits text into key/value blocks. When marker occurs in
// the text each marker line opens a block; otherwise every "Subreddit:"
// line does. Continuation lines extend the previous value until a blank
// line. The first value of a key wins.
func scanBlocks(text, marker string, keys []string) []fieldBlock {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	markerMode := strings.Contains(strings.ToUpper(text), marker)

	var blocks []fieldBlock
	var cur *fieldBlock
	lastKey := ""

	flush := func() {
		if cur != nil && len(cur.fields) > 0 {
			blocks = append(blocks, *cur)
		}
		cur = nil
		lastKey = ""
	}

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if markerMode && strings.Contains(strings.ToUpper(line), marker) {
			flush()
			cur = &fieldBlock{line: i + 1, fields: make(map[string]string)}
			continue
		}
		if tok := classify(line); tok.Type == TokenHeading || tok.Type == TokenPostHeader || tok.Type == TokenRule {
			flush()
			continue
		}

		key, value, ok := splitKey(line, keys)
		if ok && !markerMode && key == keySubreddit {
			flush()
			cur = &fieldBlock{line: i + 1, fields: make(map[string]string)}
		}
		if cur == nil {
			continue
		}
		switch {
		case ok:
			if _, seen := cur.fields[key]; !seen {
				cur.fields[key] = value
				lastKey = key
			} else {
				lastKey = ""
			}
		case line == "":
			lastKey = ""
		case lastKey != "":
			cur.fields[lastKey] = strings.TrimSpace(cur.fields[lastKey] + " " + cleanValue(line))
		}
	}
	flush()
	return blocks
}

// splitKey matches "Key: value" allowing bullets and bold decoration.
func splitKey(line string, keys []string) (string, string, bool) {
	line = strings.TrimLeft(line, "-*•> \t")
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}
	key := normalizeLabel(strings.Trim(line[:idx], "*_` "))
	for _, k := range keys {
		if key == k {
			return k, cleanValue(line[idx+1:]), true
		}
	}
	return "", "", false
}

func cleanValue(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*_`"))
}

// ParseRecommendations extracts the strategist's copy-paste blocks. A
// block without a subreddit or with a rating outside Green, Yellow and
// Red is dropped whole. Later blocks for an already seen community are
// dropped as duplicates.
func ParseRecommendations(text string) ([]campaign.Recommendation, []DropReason) {
	var recs []campaign.Recommendation
	var drops []DropReason
	seen := make(map[string]bool)

	for _, b := range scanBlocks(text, RecommendationMarker, recommendationKeys) {
		sub := campaign.NormalizeSubreddit(b.fields[keySubreddit])
		if sub == "" {
			drops = append(drops, DropReason{Line: b.line, Reason: "recommendation without a subreddit"})
			continue
		}
		rating, ok := campaign.ParseSafetyRating(firstWord(b.fields[keyRating]))
		if !ok {
			drops = append(drops, DropReason{
				Line:      b.line,
				Subreddit: sub,
				Reason:    fmt.Sprintf("malformed safety rating %q", b.fields[keyRating]),
			})
			continue
		}
		key := campaign.SubredditKey(sub)
		if seen[key] {
			drops = append(drops, DropReason{Line: b.line, Subreddit: sub, Reason: "duplicate recommendation"})
			continue
		}
		seen[key] = true
		recs = append(recs, campaign.Recommendation{
			Subreddit:        sub,
			Product:          b.fields[keyProduct],
			FramingStrategy:  b.fields[keyFraming],
			RulesConstraints: b.fields[keyRules],
			SafetyRating:     rating,
		})
	}
	return recs, drops
}

// firstWord returns the leading word so "Green (low risk)" still rates.
func firstWord(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t("); i > 0 {
		return s[:i]
	}
	return s
}

// ParseSchedule extracts the cadence agent's schedule blocks. Blocks
// with an unknown day or an hour outside [0,23] are dropped.
func ParseSchedule(text string) ([]campaign.ScheduleWindow, []DropReason) {
	var windows []campaign.ScheduleWindow
	var drops []DropReason
	seen := make(map[string]bool)

	for _, b := range scanBlocks(text, ScheduleMarker, scheduleKeys) {
		sub := campaign.NormalizeSubreddit(b.fields[keySubreddit])
		if sub == "" {
			drops = append(drops, DropReason{Line: b.line, Reason: "schedule without a subreddit"})
			continue
		}
		wd, ok := campaign.ParseWeekday(firstWord(b.fields[keyPeakDay]))
		if !ok {
			drops = append(drops, DropReason{Line: b.line, Subreddit: sub, Reason: fmt.Sprintf("unknown peak day %q", b.fields[keyPeakDay])})
			continue
		}
		hour, ok := parseHour(b.fields[keyPeakHour])
		if !ok {
			drops = append(drops, DropReason{Line: b.line, Subreddit: sub, Reason: fmt.Sprintf("invalid peak hour %q", b.fields[keyPeakHour])})
			continue
		}
		key := campaign.SubredditKey(sub)
		if seen[key] {
			drops = append(drops, DropReason{Line: b.line, Subreddit: sub, Reason: "duplicate schedule"})
			continue
		}
		seen[key] = true
		windows = append(windows, campaign.ScheduleWindow{
			Subreddit:        sub,
			PeakDay:          campaign.Weekdays[wd],
			PeakHourUTC:      hour,
			TodayWindow:      b.fields[keyToday],
			SuccessIndicator: b.fields[keySuccess],
			EngagementAdvice: b.fields[keyEngagement],
		})
	}
	return windows, drops
}
