package worker

import (
	"context"
	"database/sql"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Mutter0815/mailflow/internal/campaign"
	"github.com/Mutter0815/mailflow/internal/dispatch"
	"github.com/Mutter0815/mailflow/internal/store"
	"github.com/Mutter0815/mailflow/pkg/logx"
	"github.com/Mutter0815/mailflow/pkg/metrics"
)

type scheduleStore interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	ClaimDueCampaigns(ctx context.Context, tx *sql.Tx, now time.Time, limit int) ([]store.CampaignRow, error)
	ListRecipientsTx(ctx context.Context, tx *sql.Tx, campaignID string) ([]store.RecipientRow, error)
	InsertMessagePending(ctx context.Context, tx *sql.Tx, campaignID string, recipientID int64) error
	Reschedule(ctx context.Context, tx *sql.Tx, id string, next time.Time) error
	SetStatus(ctx context.Context, tx *sql.Tx, id, status string) error
}

// Dispatcher turns scheduled campaigns into queue jobs once they are due.
type Dispatcher struct {
	Store    scheduleStore
	Pub      dispatch.Publisher
	Interval time.Duration
	Batch    int
	Now      func() time.Time
}

const (
	defaultDispatchInterval = 15 * time.Second
	defaultDispatchBatch    = 50
)

// NewDispatcher falls back to the defaults for a non-positive interval or batch.
func NewDispatcher(st scheduleStore, pub dispatch.Publisher, interval time.Duration, batch int) *Dispatcher {
	if interval <= 0 {
		interval = defaultDispatchInterval
	}
	if batch <= 0 {
		batch = defaultDispatchBatch
	}
	return &Dispatcher{Store: st, Pub: pub, Interval: interval, Batch: batch, Now: time.Now}
}

func (d *Dispatcher) Run(ctx context.Context) error {
	if d.Interval <= 0 {
		d.Interval = defaultDispatchInterval
	}
	logx.L().Infow("dispatcher_started", "interval", d.Interval.String(), "batch", d.Batch)

	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	for {
		if _, err := d.Tick(ctx); err != nil && ctx.Err() == nil {
			logx.L().Errorw("dispatch_tick_error", "error", err)
		}
		select {
		case <-ctx.Done():
			logx.L().Infow("dispatcher_stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type dueRun struct {
	campaign   store.CampaignRow
	recipients []store.RecipientRow
}

// Tick claims every due campaign, resets its messages to pending and moves
// the campaign to its next run. Jobs are published after the commit so the
// worker never sees a message row that does not exist yet.
func (d *Dispatcher) Tick(ctx context.Context) (int, error) {
	now := d.Now().UTC()
	var runs []dueRun

	err := d.Store.WithTx(ctx, func(tx *sql.Tx) error {
		due, err := d.Store.ClaimDueCampaigns(ctx, tx, now, d.Batch)
		if err != nil {
			return err
		}
		runs = runs[:0]
		for _, c := range due {
			recs, err := d.Store.ListRecipientsTx(ctx, tx, c.ID)
			if err != nil {
				return err
			}
			for _, r := range recs {
				if err := d.Store.InsertMessagePending(ctx, tx, c.ID, r.ID); err != nil {
					return err
				}
			}

			if next, ok := nextRun(c.Cron, now); ok {
				if err := d.Store.Reschedule(ctx, tx, c.ID, next); err != nil {
					return err
				}
				metrics.DispatcherRescheduled.Inc()
				logx.L().Infow("campaign_rescheduled", "campaign_id", c.ID, "next", next)
			} else if err := d.Store.SetStatus(ctx, tx, c.ID, campaign.StatusQueued); err != nil {
				return err
			}
			runs = append(runs, dueRun{campaign: c, recipients: recs})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, r := range runs {
		metrics.DispatcherCampaignsDue.Inc()
		n, err := dispatch.PublishJobs(ctx, d.Pub, r.campaign, r.recipients)
		if err != nil {
			logx.L().Errorw("publish_job_error", "campaign_id", r.campaign.ID, "published", n, "error", err)
			continue
		}
		logx.L().Infow("campaign_dispatched", "campaign_id", r.campaign.ID, "jobs", n)
	}
	return len(runs), nil
}

// nextRun reports the first fire time of expr after now. An empty or
// unparseable expression means the campaign does not recur.
func nextRun(expr string, now time.Time) (time.Time, bool) {
	if expr == "" {
		return time.Time{}, false
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		logx.L().Warnw("cron_parse_error", "cron", expr, "error", err)
		return time.Time{}, false
	}
	next := sched.Next(now)
	if next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}
