package worker

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/Mutter0815/mailflow/internal/campaign"
	"github.com/Mutter0815/mailflow/pkg/logx"
)

var ErrTemporary = errors.New("temporary send error")

// Sender delivers a single job. Returning an error schedules a retry.
type Sender interface {
	Send(ctx context.Context, job campaign.JobMessage) error
}

// LogSender stands in for a real mail provider: it logs the delivery and
// fails a FailRate share of jobs with ErrTemporary.
type LogSender struct {
	FailRate float64
}

func (s LogSender) Send(ctx context.Context, job campaign.JobMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FailRate > 0 && rand.Float64() < s.FailRate {
		return ErrTemporary
	}
	logx.L().Debugw("deliver",
		"campaign_id", job.CampaignID,
		"template_id", job.TemplateID,
		"kind", job.Kind,
		"ref", job.Ref,
	)
	return nil
}
