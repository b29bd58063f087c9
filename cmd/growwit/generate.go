package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/vinayprograms/growwit/internal/campaign"
)

// Run generates a campaign and streams it to stdout, or prints the
// structured result with --json.
func (c *GenerateCmd) Run(ctx context.Context, cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	req := campaign.Request{
		ProductName:        c.Name,
		ProductDescription: c.Description,
		UserGoal:           c.Goal,
	}
	if c.JSON {
		res, err := rt.pipeline.RunWorkflow(ctx, req)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if !isTerminal(os.Stdout) {
		_, err := rt.pipeline.Run(ctx, req, os.Stdout)
		return err
	}
	out := newStyledWriter(os.Stdout)
	res, err := rt.pipeline.Run(ctx, req, out)
	out.Flush()
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(dimStyle.Render(fmt.Sprintf("session %s, %d posts, %s", res.Session.ID, len(res.Report.Posts), res.Session.Duration().Round(time.Millisecond))))
	return nil
}
