package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"github.com/vinayprograms/growwit/internal/campaign"
	"github.com/vinayprograms/growwit/internal/pipeline"
	"github.com/vinayprograms/growwit/internal/report"
)

// craftOutput is the --json result of the craft command.
type craftOutput struct {
	SessionID string               `json:"sessionId"`
	Posts     []report.CraftedPost `json:"posts"`
	Actions   []campaign.Action    `json:"actions"`
}

// Run crafts posts for a saved strategy. The framed stream is decoded as
// it arrives, so posts print while later ones are still being written.
func (c *CraftCmd) Run(ctx context.Context, cli *CLI) error {
	strategy, err := readInput(c.Strategy)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	req := campaign.CraftRequest{
		AIOutput:           strategy,
		PostsPerMonth:      campaign.Count(c.Posts),
		ProductName:        c.Name,
		ProductDescription: c.Description,
	}
	if err := req.Validate(); err != nil {
		return err
	}

	pr, pw := io.Pipe()
	type outcome struct {
		res *pipeline.CraftResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := rt.pipeline.Craft(ctx, req, pw)
		if err != nil {
			fmt.Fprintf(pw, "\n\n%s %s", report.ErrorTag, err.Error())
		}
		pw.Close()
		done <- outcome{res, err}
	}()

	var posts []report.CraftedPost
	decodeErr := report.DecodeCraftStream(pr, func(p report.CraftedPost) error {
		posts = append(posts, p)
		if !c.JSON {
			printCraftedPost(len(posts), p)
		}
		return nil
	})
	// Unblock the writer if decoding stopped early.
	pr.CloseWithError(io.ErrClosedPipe)
	out := <-done
	if out.err != nil {
		return out.err
	}
	if decodeErr != nil {
		return decodeErr
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(craftOutput{SessionID: out.res.Session.ID, Posts: posts, Actions: out.res.Actions})
	}
	fmt.Println(dimStyle.Render(fmt.Sprintf("%d posts framed, %d scheduled", out.res.Framed, len(out.res.Actions))))
	for _, a := range out.res.Actions {
		fmt.Printf("  %s  r/%s  %s\n", a.ScheduledFor.Format("Mon Jan 2"), a.Subreddit, a.Title)
	}
	return nil
}

func printCraftedPost(n int, p report.CraftedPost) {
	fmt.Println(subredditStyle.Render(fmt.Sprintf("#%d r/%s", n, p.Subreddit)))
	fmt.Println(headerStyle.Render(p.Title))
	fmt.Println(wordwrap.String(strings.TrimSpace(p.Body), 80))
	fmt.Println()
}
