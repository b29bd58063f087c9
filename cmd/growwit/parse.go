package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"github.com/vinayprograms/growwit/internal/campaign"
	"github.com/vinayprograms/growwit/internal/report"
)

// parseOutput is the --json result of the parse command.
type parseOutput struct {
	Report  *campaign.Report `json:"report"`
	Dropped []string         `json:"dropped,omitempty"`
}

// Run parses a saved report and prints its posts.
func (c *ParseCmd) Run() error {
	text, err := readInput(c.File)
	if err != nil {
		return err
	}
	rep, drops := report.Parse(text)

	if c.JSON {
		out := parseOutput{Report: rep}
		for _, d := range drops {
			out.Dropped = append(out.Dropped, d.String())
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	printReport(rep, c.Width)
	for _, d := range drops {
		fmt.Println(dimStyle.Render("skipped: " + d.String()))
	}
	if len(rep.Posts) == 0 {
		return fmt.Errorf("no usable posts in %s", c.File)
	}
	return nil
}

func printReport(rep *campaign.Report, width int) {
	if width <= 0 {
		width = 80
	}
	if len(rep.Targets) > 0 {
		fmt.Println(headerStyle.Render("Targets"))
		for _, t := range rep.Targets {
			line := "  r/" + campaign.SubredditName(t.Subreddit)
			if t.Note != "" {
				line += labelStyle.Render("  " + t.Note)
			}
			fmt.Println(line)
		}
		fmt.Println()
	}
	for i, post := range rep.Posts {
		rating := ""
		if post.SafetyRating != "" {
			rating = "  " + ratingStyle(post.SafetyRating).Render(string(post.SafetyRating))
		}
		fmt.Println(subredditStyle.Render(fmt.Sprintf("#%d r/%s", i+1, campaign.SubredditName(post.Subreddit))) + rating)
		fmt.Println(headerStyle.Render(post.Title))
		fmt.Println(wordwrap.String(strings.TrimSpace(post.Body), width))
		if w, ok := rep.WindowFor(post.Subreddit); ok {
			fmt.Println(labelStyle.Render(fmt.Sprintf("post %s around %02d:00 UTC", w.PeakDay, w.PeakHourUTC)))
		}
		fmt.Println()
	}
}
