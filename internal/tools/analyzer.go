package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vinayprograms/growwit/internal/campaign"
)

// Fallback window used when no post times are available.
const (
	FallbackPeakDay  = "Tuesday"
	FallbackPeakHour = 14
)

// AnalysisPeriod describes the window of posts analyzed.
const AnalysisPeriod = "Past 30 Days"

// highVelocityPosts is the post count at which engagement counts as high.
const highVelocityPosts = 100

// maxBestWindows caps PostTimeAnalysis.BestWindows.
const maxBestWindows = 5

// Window is one (day, hour) cell of the post-time matrix.
type Window struct {
	Day       string `json:"day"`
	HourUTC   int    `json:"hourUTC"`
	Frequency int    `json:"frequency"`
}

// PostTimeAnalysis is the output of the analyzer tool.
type PostTimeAnalysis struct {
	Subreddit          string   `json:"subreddit"`
	AnalysisPeriod     string   `json:"analysisPeriod"`
	PeakHour           int      `json:"peakHour"`
	PeakDay            string   `json:"peakDay"`
	BestWindows        []Window `json:"bestWindows"`
	EngagementVelocity string   `json:"engagementVelocity"`
	PostCount          int      `json:"postCount"`
}

// Fallback reports whether the analysis is the built-in heuristic.
func (a PostTimeAnalysis) Fallback() bool {
	return a.PostCount == 0
}

// ScheduleWindow converts the analysis into posting advice.
func (a PostTimeAnalysis) ScheduleWindow(now time.Time) campaign.ScheduleWindow {
	now = now.UTC()
	w := campaign.ScheduleWindow{
		Subreddit:   campaign.NormalizeSubreddit(a.Subreddit),
		PeakDay:     a.PeakDay,
		PeakHourUTC: a.PeakHour,
	}
	if wd, ok := campaign.ParseWeekday(a.PeakDay); ok && wd == now.Weekday() {
		if now.Hour() < a.PeakHour {
			w.TodayWindow = fmt.Sprintf("Today at %02d:00 UTC", a.PeakHour)
		} else {
			w.TodayWindow = "Peak passed today, wait for next " + a.PeakDay
		}
	} else {
		w.TodayWindow = "Not a peak day, schedule for " + a.PeakDay
	}
	if a.Fallback() {
		w.SuccessIndicator = "No recent top posts, using fallback heuristic"
	} else {
		peak := 0
		if len(a.BestWindows) > 0 {
			peak = a.BestWindows[0].Frequency
		}
		w.SuccessIndicator = fmt.Sprintf("%d of %d top posts landed in this window", peak, a.PostCount)
	}
	return w
}

// FallbackAnalysis is returned when the top posts cannot be analyzed.
func FallbackAnalysis(subreddit string) PostTimeAnalysis {
	return PostTimeAnalysis{
		Subreddit:          subreddit,
		AnalysisPeriod:     AnalysisPeriod,
		PeakHour:           FallbackPeakHour,
		PeakDay:            FallbackPeakDay,
		BestWindows:        []Window{},
		EngagementVelocity: "Unknown (fallback heuristic: no recent top posts to analyze)",
	}
}

// AnalyzePostTimes buckets creation times into a 7x24 UTC matrix. The peak
// is the first cell holding the maximum, scanning Sunday to Saturday and
// hour 0 to 23. Zero posts yield FallbackAnalysis.
func AnalyzePostTimes(subreddit string, created []time.Time) PostTimeAnalysis {
	if len(created) == 0 {
		return FallbackAnalysis(subreddit)
	}

	var matrix [7][24]int
	for _, t := range created {
		t = t.UTC()
		matrix[t.Weekday()][t.Hour()]++
	}

	windows := []Window{}
	maxFreq := 0
	peakDay, peakHour := 0, 0
	for day := 0; day < 7; day++ {
		for hour := 0; hour < 24; hour++ {
			freq := matrix[day][hour]
			if freq > 0 {
				windows = append(windows, Window{Day: campaign.Weekdays[day], HourUTC: hour, Frequency: freq})
			}
			if freq > maxFreq {
				maxFreq = freq
				peakDay, peakHour = day, hour
			}
		}
	}
	sort.SliceStable(windows, func(i, j int) bool {
		return windows[i].Frequency > windows[j].Frequency
	})
	if len(windows) > maxBestWindows {
		windows = windows[:maxBestWindows]
	}

	velocity := "Moderate"
	if len(created) >= highVelocityPosts {
		velocity = "High"
	}
	return PostTimeAnalysis{
		Subreddit:          subreddit,
		AnalysisPeriod:     AnalysisPeriod,
		PeakHour:           peakHour,
		PeakDay:            campaign.Weekdays[peakDay],
		BestWindows:        windows,
		EngagementVelocity: velocity,
		PostCount:          len(created),
	}
}

type listingResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// AnalyzeSubreddit fetches the month's top posts and analyzes their
// creation times. Fetch failures and empty listings degrade to the
// fallback heuristic; only invalid input and cancellation are errors.
func (c *RedditClient) AnalyzeSubreddit(ctx context.Context, subreddit string) (Result[PostTimeAnalysis], error) {
	name, err := cleanSubreddit(AnalyzerToolName, subreddit)
	if err != nil {
		return Result[PostTimeAnalysis]{}, err
	}

	var listing listingResponse
	path := fmt.Sprintf("/r/%s/top/.json?t=month&limit=%d", name, c.cfg.TopLimit)
	if err := c.getJSON(ctx, path, &listing); err != nil {
		if ctx.Err() != nil {
			return Result[PostTimeAnalysis]{}, ctx.Err()
		}
		c.logger.Warn("analyzer degraded", map[string]interface{}{
			"subreddit": name,
			"error":     err.Error(),
		})
		return Degrade(FallbackAnalysis(name), err.Error()), nil
	}

	created := make([]time.Time, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		sec := int64(child.Data.CreatedUTC)
		created = append(created, time.Unix(sec, 0).UTC())
	}
	analysis := AnalyzePostTimes(name, created)
	if analysis.Fallback() {
		c.logger.Warn("analyzer degraded", map[string]interface{}{
			"subreddit": name,
			"reason":    "no posts found",
		})
		return Degrade(analysis, "no posts found for analysis"), nil
	}
	return OK(analysis), nil
}
