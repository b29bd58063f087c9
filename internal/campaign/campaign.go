// Package campaign defines the records produced and consumed by one
// campaign generation pass.
package campaign

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMissingFields is returned when a request lacks a required field.
var ErrMissingFields = errors.New("missing required fields")

// ErrInvalidRequest wraps request problems the caller can fix.
var ErrInvalidRequest = errors.New("invalid request")

// Goal is what the user wants a campaign to achieve.
type Goal string

const (
	GoalDiscussion Goal = "discussion"
	GoalDMs        Goal = "dms"
	GoalProfile    Goal = "profile"
	GoalTraffic    Goal = "traffic"
	GoalCalls      Goal = "calls"
)

// Describe returns the goal in words an agent prompt can use.
// Free-form goals are passed through untouched.
func (g Goal) Describe() string {
	switch Goal(strings.ToLower(string(g))) {
	case GoalDiscussion:
		return "start genuine discussion"
	case GoalDMs:
		return "get interested users to send DMs"
	case GoalProfile:
		return "drive visits to the poster's profile"
	case GoalTraffic:
		return "drive traffic to the product site"
	case GoalCalls:
		return "book calls with potential users"
	default:
		return string(g)
	}
}

// Request is the input of a generation pass.
type Request struct {
	ProductName        string `json:"productName"`
	ProductDescription string `json:"productDescription"`
	UserGoal           string `json:"userGoal"`
}

// Validate checks that every field is present.
func (r Request) Validate() error {
	if strings.TrimSpace(r.ProductName) == "" ||
		strings.TrimSpace(r.ProductDescription) == "" ||
		strings.TrimSpace(r.UserGoal) == "" {
		return ErrMissingFields
	}
	return nil
}

// Count is an integer that also accepts a JSON string holding digits.
// The mobile client sends postsPerMonth as text.
type Count int

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*c = Count(n)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*c = Count(int(f))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("count must be a number or numeric string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("count %q is not a number", s)
	}
	*c = Count(n)
	return nil
}

// CraftRequest is the input of the bulk crafting phase.
type CraftRequest struct {
	AIOutput           string `json:"aiOutput"`
	PostsPerMonth      Count  `json:"postsPerMonth"`
	ProductName        string `json:"productName"`
	ProductDescription string `json:"productDescription"`
}

// Validate checks the required crafting fields.
func (r CraftRequest) Validate() error {
	if strings.TrimSpace(r.AIOutput) == "" || r.PostsPerMonth == 0 {
		return ErrMissingFields
	}
	if r.PostsPerMonth < 0 {
		return fmt.Errorf("%w: postsPerMonth must be positive", ErrInvalidRequest)
	}
	return nil
}

// SafetyRating grades how risky promotion is in a community.
type SafetyRating string

const (
	SafetyGreen  SafetyRating = "Green"
	SafetyYellow SafetyRating = "Yellow"
	SafetyRed    SafetyRating = "Red"
)

// ParseSafetyRating accepts a rating word in any case. Surrounding
// markdown emphasis and trailing punctuation are ignored.
func ParseSafetyRating(s string) (SafetyRating, bool) {
	s = strings.Trim(strings.TrimSpace(s), "*_`.,;:!()[]")
	switch strings.ToLower(s) {
	case "green":
		return SafetyGreen, true
	case "yellow":
		return SafetyYellow, true
	case "red":
		return SafetyRed, true
	}
	return "", false
}

// Valid reports whether r is one of the three ratings.
func (r SafetyRating) Valid() bool {
	return r == SafetyGreen || r == SafetyYellow || r == SafetyRed
}

// Recommendation is one target community chosen by the strategist.
type Recommendation struct {
	Subreddit        string       `json:"subreddit"`
	Product          string       `json:"product"`
	FramingStrategy  string       `json:"framingStrategy"`
	RulesConstraints string       `json:"rulesConstraints"`
	SafetyRating     SafetyRating `json:"safetyRating"`
}

// Brief renders the recommendation as the block handed to the writer.
func (r Recommendation) Brief() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subreddit: %s\n", r.Subreddit)
	fmt.Fprintf(&b, "Product: %s\n", r.Product)
	fmt.Fprintf(&b, "Framing Strategy: %s\n", r.FramingStrategy)
	fmt.Fprintf(&b, "Rules Constraints: %s\n", r.RulesConstraints)
	fmt.Fprintf(&b, "Safety Rating: %s\n", r.SafetyRating)
	return b.String()
}

// PostDraft is a generated post for one community.
type PostDraft struct {
	Subreddit    string       `json:"subreddit"`
	Title        string       `json:"title"`
	Body         string       `json:"body"`
	Flair        string       `json:"flair,omitempty"`
	SafetyRating SafetyRating `json:"safetyRating,omitempty"`
	SafetyCheck  string       `json:"safetyCheck"`
}

// Usable reports whether the draft can be posted as is.
func (d PostDraft) Usable() bool {
	return strings.TrimSpace(d.Subreddit) != "" &&
		strings.TrimSpace(d.Title) != "" &&
		strings.TrimSpace(d.Body) != ""
}

// Weekdays in the order used by the post-time matrix.
var Weekdays = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// ParseWeekday matches a full or three-letter day name.
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return 0, false
	}
	for i, day := range Weekdays {
		d := strings.ToLower(day)
		if s == d || s == d[:3] {
			return time.Weekday(i), true
		}
	}
	return 0, false
}

// ScheduleWindow is the posting advice for one community.
type ScheduleWindow struct {
	Subreddit        string `json:"subreddit"`
	PeakDay          string `json:"peakDay"`
	PeakHourUTC      int    `json:"peakHourUTC"`
	TodayWindow      string `json:"todayWindow"`
	SuccessIndicator string `json:"successIndicator"`
	EngagementAdvice string `json:"engagementAdvice"`
}

// Valid reports whether the day is a weekday name and the hour lies in [0,23].
func (w ScheduleWindow) Valid() bool {
	if _, ok := ParseWeekday(w.PeakDay); !ok {
		return false
	}
	return w.PeakHourUTC >= 0 && w.PeakHourUTC <= 23
}

// Optimal formats the peak as "<day> at HH:00 UTC".
func (w ScheduleWindow) Optimal() string {
	return fmt.Sprintf("%s at %02d:00 UTC", w.PeakDay, w.PeakHourUTC)
}

// Target is one entry of the target list with its framing angle.
type Target struct {
	Subreddit string `json:"subreddit"`
	Note      string `json:"note,omitempty"`
	Framing   string `json:"framing,omitempty"`
}

// Report is the terminal artifact of one generation pass.
type Report struct {
	StrategyText    string           `json:"strategyText"`
	Targets         []Target         `json:"targets"`
	Recommendations []Recommendation `json:"recommendations"`
	Posts           []PostDraft      `json:"posts"`
	Schedule        []ScheduleWindow `json:"schedule"`
	ScheduleText    string           `json:"scheduleText"`
}

// WindowFor returns the schedule window of a community, if any.
func (r *Report) WindowFor(subreddit string) (ScheduleWindow, bool) {
	key := SubredditKey(subreddit)
	for _, w := range r.Schedule {
		if SubredditKey(w.Subreddit) == key {
			return w, true
		}
	}
	return ScheduleWindow{}, false
}

// RecommendationFor returns the recommendation of a community, if any.
func (r *Report) RecommendationFor(subreddit string) (Recommendation, bool) {
	key := SubredditKey(subreddit)
	for _, rec := range r.Recommendations {
		if SubredditKey(rec.Subreddit) == key {
			return rec, true
		}
	}
	return Recommendation{}, false
}

// NormalizeSubreddit returns "r/<name>" for any of "name", "r/name",
// "/r/name" or a reddit URL. Trailing punctuation is dropped.
func NormalizeSubreddit(s string) string {
	name := SubredditName(s)
	if name == "" {
		return ""
	}
	return "r/" + name
}

// SubredditName strips every prefix and returns the bare community name.
func SubredditName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*_`")
	for _, p := range []string{"https://www.reddit.com", "https://reddit.com", "http://www.reddit.com", "www.reddit.com", "reddit.com"} {
		s = strings.TrimPrefix(s, p)
	}
	s = strings.TrimPrefix(s, "/")
	if len(s) >= 2 && (s[0] == 'r' || s[0] == 'R') && s[1] == '/' {
		s = s[2:]
	}
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			end++
			continue
		}
		break
	}
	return s[:end]
}

// SubredditKey is the case-insensitive identity of a community.
func SubredditKey(s string) string {
	return strings.ToLower(SubredditName(s))
}

// ActionType is the kind of scheduled task.
type ActionType string

const (
	ActionPost    ActionType = "post"
	ActionComment ActionType = "comment"
	ActionDM      ActionType = "dm"
)

// ActionStatus tracks a scheduled task.
type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionCompleted ActionStatus = "completed"
	ActionSkipped   ActionStatus = "skipped"
)

// Action is a scheduled post task built from a parsed report.
type Action struct {
	ID           string       `json:"id"`
	CampaignID   string       `json:"campaignId"`
	AccountID    string       `json:"accountId"`
	Type         ActionType   `json:"type"`
	Status       ActionStatus `json:"status"`
	Subreddit    string       `json:"subreddit"`
	Title        string       `json:"title"`
	Content      string       `json:"content"`
	CTA          string       `json:"cta,omitempty"`
	ScheduledFor time.Time    `json:"scheduledFor"`
	CompletedAt  *time.Time   `json:"completedAt,omitempty"`
}
