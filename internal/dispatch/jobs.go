// Package dispatch fans a campaign out into one queue job per recipient
// reference.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Mutter0815/mailflow/internal/campaign"
	"github.com/Mutter0815/mailflow/internal/store"
	"github.com/Mutter0815/mailflow/pkg/metrics"
)

type Publisher interface {
	PublishJSON(ctx context.Context, body []byte) error
}

// PublishJobs publishes a job for every recipient and stops at the first
// failure. It returns how many jobs made it to the queue.
func PublishJobs(ctx context.Context, pub Publisher, c store.CampaignRow, recs []store.RecipientRow) (int, error) {
	for i, r := range recs {
		job := campaign.JobMessage{
			CampaignID:  c.ID,
			RecipientID: r.ID,
			Kind:        r.Kind,
			Ref:         r.Ref,
			TemplateID:  c.TemplateID,
		}
		payload, err := json.Marshal(job)
		if err != nil {
			return i, fmt.Errorf("marshal job for recipient %d: %w", r.ID, err)
		}
		if err := pub.PublishJSON(ctx, payload); err != nil {
			return i, fmt.Errorf("publish job for recipient %d: %w", r.ID, err)
		}
		metrics.PublishedJobsTotal.Inc()
	}
	return len(recs), nil
}
