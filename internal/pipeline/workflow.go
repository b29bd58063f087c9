package pipeline

import (
	"context"
	"io"

	"github.com/vinayprograms/growwit/internal/campaign"
)

// WorkflowResult is the structured outcome of a non-streaming pass.
type WorkflowResult struct {
	SessionID       string                    `json:"sessionId"`
	StrategyText    string                    `json:"strategyText"`
	Recommendations []campaign.Recommendation `json:"recommendations"`
	Posts           []campaign.PostDraft      `json:"posts"`
	Schedule        []campaign.ScheduleWindow `json:"schedule"`
	CadenceText     string                    `json:"cadenceText"`
}

// RunWorkflow runs a campaign pass without a client stream and returns
// the structured result.
func (o *Orchestrator) RunWorkflow(ctx context.Context, req campaign.Request) (*WorkflowResult, error) {
	res, err := o.Run(ctx, req, io.Discard)
	if err != nil {
		return nil, err
	}
	rep := res.Report
	return &WorkflowResult{
		SessionID:       res.Session.ID,
		StrategyText:    rep.StrategyText,
		Recommendations: rep.Recommendations,
		Posts:           rep.Posts,
		Schedule:        rep.Schedule,
		CadenceText:     rep.ScheduleText,
	}, nil
}
