package worker

import (
	"context"
	"encoding/json"
	"math"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Mutter0815/mailflow/internal/campaign"
	"github.com/Mutter0815/mailflow/pkg/logx"
	"github.com/Mutter0815/mailflow/pkg/metrics"
)

const retriesHeader = "x-retries"

type messageStore interface {
	MarkMessageSent(ctx context.Context, campaignID string, recipientID int64) error
	MarkMessageFailed(ctx context.Context, campaignID string, recipientID int64, lastErr string) error
}

type requeuer interface {
	PublishJSONWithHeaders(ctx context.Context, body []byte, headers amqp.Table) error
}

type deliverySource interface {
	Consume() (<-chan amqp.Delivery, error)
}

// Worker consumes send jobs, hands them to a Sender and records the outcome.
// Failed jobs are republished with a growing delay until MaxRetries is hit.
type Worker struct {
	Store      messageStore
	Cons       deliverySource
	Pub        requeuer
	Sender     Sender
	MaxRetries int
	Backoff    func(retries int) time.Duration
}

func New(st messageStore, cons deliverySource, pub requeuer, sender Sender, maxRetries int) *Worker {
	return &Worker{
		Store:      st,
		Cons:       cons,
		Pub:        pub,
		Sender:     sender,
		MaxRetries: maxRetries,
		Backoff:    backoffDelay,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.Cons.Consume()
	if err != nil {
		return err
	}
	logx.L().Infow("worker_started", "max_retries", w.MaxRetries)

	for {
		select {
		case <-ctx.Done():
			logx.L().Infow("worker_stopping")
			return ctx.Err()

		case d, ok := <-msgs:
			if !ok {
				logx.L().Warnw("consumer_channel_closed")
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	start := time.Now()
	metrics.WorkerJobsConsumed.Inc()
	defer func() {
		metrics.WorkerProcessDuration.Observe(time.Since(start).Seconds())
	}()

	var job campaign.JobMessage
	if err := json.Unmarshal(d.Body, &job); err != nil {
		logx.L().Warnw("job_unmarshal_error", "error", err)
		_ = d.Ack(false)
		return
	}
	fields := []any{
		"campaign_id", job.CampaignID,
		"recipient_id", job.RecipientID,
		"kind", job.Kind,
		"ref", job.Ref,
	}

	ctxSend, cancelSend := context.WithTimeout(ctx, 10*time.Second)
	err := w.Sender.Send(ctxSend, job)
	cancelSend()

	if err != nil {
		logx.L().Infow("send_failed", append(fields, "error", err)...)

		ctxFail, cancelFail := context.WithTimeout(ctx, 5*time.Second)
		err := w.Store.MarkMessageFailed(ctxFail, job.CampaignID, job.RecipientID, err.Error())
		cancelFail()
		if err != nil {
			logx.L().Errorw("db_mark_failed_error", append(fields, "error", err)...)
			_ = d.Nack(false, true)
			return
		}

		metrics.WorkerJobsFailed.Inc()

		retries := headerRetries(d.Headers)
		if retries < w.MaxRetries {
			delay := w.Backoff(retries + 1)
			metrics.WorkerJobRetries.Inc()
			logx.L().Infow("retry_requeue", append(fields, "retries", retries+1, "delay", delay.String())...)
			if err := w.requeueMessage(ctx, d, retries+1, delay); err != nil {
				logx.L().Errorw("retry_publish_error", append(fields, "retries", retries+1, "error", err)...)
				_ = d.Nack(false, true)
			}
		} else {
			logx.L().Warnw("drop_after_retries", append(fields, "retries", retries)...)
			_ = d.Ack(false)
		}
		return
	}

	ctxSent, cancelSent := context.WithTimeout(ctx, 5*time.Second)
	err = w.Store.MarkMessageSent(ctxSent, job.CampaignID, job.RecipientID)
	cancelSent()
	if err != nil {
		logx.L().Errorw("db_mark_sent_error", append(fields, "error", err)...)
		_ = d.Nack(false, true)
		return
	}

	metrics.WorkerJobsSent.Inc()
	logx.L().Infow("send_success", fields...)
	_ = d.Ack(false)
}

func (w *Worker) requeueMessage(ctx context.Context, d amqp.Delivery, retries int, delay time.Duration) error {
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	headers := copyHeaders(d.Headers)
	setHeaderRetries(&headers, retries)

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := w.Pub.PublishJSONWithHeaders(pubCtx, d.Body, headers); err != nil {
		return err
	}

	return d.Ack(false)
}

func headerRetries(h amqp.Table) int {
	if h == nil {
		return 0
	}
	if v, ok := h[retriesHeader]; ok {
		switch t := v.(type) {
		case int32:
			return int(t)
		case int64:
			return int(t)
		case int:
			return t
		case uint8:
			return int(t)
		}
	}
	return 0
}

func setHeaderRetries(h *amqp.Table, n int) {
	if *h == nil {
		*h = amqp.Table{}
	}
	(*h)[retriesHeader] = int32(n)
}

// backoffDelay doubles from one second: 1s, 2s, 4s...
func backoffDelay(retries int) time.Duration {
	if retries <= 0 {
		return 0
	}
	sec := math.Pow(2, float64(retries-1))
	return time.Duration(sec) * time.Second
}

func copyHeaders(h amqp.Table) amqp.Table {
	if h == nil {
		return amqp.Table{}
	}
	dup := make(amqp.Table, len(h))
	for k, v := range h {
		dup[k] = v
	}
	return dup
}
