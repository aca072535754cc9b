package server

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Mutter0815/mailflow/internal/campaign"
	"github.com/Mutter0815/mailflow/internal/dispatch"
	"github.com/Mutter0815/mailflow/internal/store"
	"github.com/Mutter0815/mailflow/pkg/metrics"
	"github.com/Mutter0815/mailflow/pkg/rmq"
)

const maxBodyBytes = 1 << 20

type storeAPI interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	InsertCampaign(ctx context.Context, tx *sql.Tx, c store.CampaignRow) error
	InsertRecipient(ctx context.Context, tx *sql.Tx, campaignID, kind, ref string, position int) (int64, error)
	InsertMessagePending(ctx context.Context, tx *sql.Tx, campaignID string, recipientID int64) error
	GetCampaign(ctx context.Context, id string) (store.CampaignRow, error)
	GetCampaignStats(ctx context.Context, id string) (store.CampaignStats, error)
	ListCampaigns(ctx context.Context, limit, offset int) ([]store.CampaignRow, []store.CampaignStats, error)
	ListRecipients(ctx context.Context, campaignID string) ([]store.RecipientRow, error)
}

type Handlers struct {
	Store storeAPI
	Pub   dispatch.Publisher
}

func NewHandlers(s *store.Store, pub *rmq.Publisher) *Handlers {
	return &Handlers{Store: s, Pub: pub}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *Handlers) SendCampaign(c *gin.Context) {
	log := reqLogger(c)

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "unreadable body"})
		return
	}

	req, err := campaign.ValidateJSON(body)
	if err != nil {
		var verr *campaign.ValidationError
		if !errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		metrics.SendRequestsRejected.Inc()
		for _, v := range verr.Violations {
			metrics.SendViolations.WithLabelValues(metricPath(v.Path)).Inc()
		}
		log.Infow("send_validation_failed", "violations", len(verr.Violations))
		c.JSON(http.StatusBadRequest, gin.H{"message": verr.Error(), "violations": verr.Violations})
		return
	}

	row := store.CampaignRow{
		ID:         uuid.NewString(),
		Name:       req.CampaignName,
		TemplateID: req.TemplateID,
		Status:     campaign.StatusQueued,
	}
	if req.Schedule != nil {
		at, err := req.Schedule.Time()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid schedule date/time"})
			return
		}
		row.ScheduledAt = &at
		row.Cron = req.Schedule.Cron
		row.Status = campaign.StatusScheduled
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	var recs []store.RecipientRow
	err = h.Store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := h.Store.InsertCampaign(ctx, tx, row); err != nil {
			return err
		}
		add := func(kind string, refs []string) error {
			for i, ref := range refs {
				id, err := h.Store.InsertRecipient(ctx, tx, row.ID, kind, ref, i)
				if err != nil {
					return err
				}
				// scheduled campaigns get their messages when the dispatcher runs them
				if row.Status == campaign.StatusQueued {
					if err := h.Store.InsertMessagePending(ctx, tx, row.ID, id); err != nil {
						return err
					}
				}
				recs = append(recs, store.RecipientRow{ID: id, Kind: kind, Ref: ref})
			}
			return nil
		}
		if err := add(campaign.KindContact, storedRefs(req.SendTo.Contacts)); err != nil {
			return err
		}
		return add(campaign.KindSegment, storedRefs(req.SendTo.Segments))
	})
	if err != nil {
		log.Errorw("campaign_persist_error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to store campaign"})
		return
	}
	metrics.CampaignsAccepted.WithLabelValues(row.Status).Inc()

	if row.Status == campaign.StatusQueued {
		ctxPub, cancelPub := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelPub()

		// the campaign is committed; a retry by the client would store it twice,
		// so a queue failure is logged and leaves the remaining messages pending
		n, err := dispatch.PublishJobs(ctxPub, h.Pub, row, recs)
		if err != nil {
			log.Errorw("publish_job_error", "campaign_id", row.ID, "published", n, "pending", len(recs)-n, "error", err)
		}
	}

	log.Infow("campaign_accepted",
		"campaign_id", row.ID,
		"status", row.Status,
		"recipients", len(recs),
	)
	c.JSON(http.StatusAccepted, campaign.SendCampaignResp{ID: row.ID, Status: row.Status})
}

func (h *Handlers) ListCampaigns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	rows, stats, err := h.Store.ListCampaigns(ctx, limit, offset)
	if err != nil {
		reqLogger(c).Errorw("list_campaigns_error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "list error"})
		return
	}

	out := make([]campaign.CampaignListItem, 0, len(rows))
	for i, r := range rows {
		out = append(out, listItem(r, stats[i]))
	}

	c.JSON(http.StatusOK, out)
}

func (h *Handlers) GetCampaign(c *gin.Context) {
	id := c.Param("id")
	if !campaign.IsUUID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	camp, err := h.Store.GetCampaign(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"message": "campaign not found"})
		return
	}
	if err != nil {
		reqLogger(c).Errorw("get_campaign_error", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "campaign error"})
		return
	}

	stats, err := h.Store.GetCampaignStats(ctx, id)
	if err != nil {
		reqLogger(c).Errorw("get_campaign_stats_error", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "stats error"})
		return
	}

	recs, err := h.Store.ListRecipients(ctx, id)
	if err != nil {
		reqLogger(c).Errorw("list_recipients_error", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "recipients error"})
		return
	}

	resp := campaign.CampaignDetails{
		CampaignListItem: listItem(camp, stats),
		Recipients:       campaign.Recipients{Contacts: []string{}, Segments: []string{}},
	}
	for _, r := range recs {
		switch r.Kind {
		case campaign.KindContact:
			resp.Recipients.Contacts = append(resp.Recipients.Contacts, r.Ref)
		case campaign.KindSegment:
			resp.Recipients.Segments = append(resp.Recipients.Segments, r.Ref)
		}
	}

	c.JSON(http.StatusOK, resp)
}

func listItem(r store.CampaignRow, st store.CampaignStats) campaign.CampaignListItem {
	return campaign.CampaignListItem{
		ID:          r.ID,
		Name:        r.Name,
		TemplateID:  r.TemplateID,
		ScheduledAt: r.ScheduledAt,
		Cron:        r.Cron,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		Stats: campaign.Stats{
			Total:   st.Total,
			Pending: st.Pending,
			Sent:    st.Sent,
			Failed:  st.Failed,
		},
	}
}

// storedRefs lower-cases ids and drops repeats, keeping first-seen order.
// Postgres compares uuid values case-insensitively and recipients are unique
// per campaign and kind.
func storedRefs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(id)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

var indexSuffix = regexp.MustCompile(`\[\d+\]`)

// metricPath folds list indices so the label set stays bounded.
func metricPath(p string) string {
	if p == "" {
		return "$"
	}
	return indexSuffix.ReplaceAllString(p, "[]")
}
