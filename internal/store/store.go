package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	_ "embed"
	"strings"
	"time"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	DB *sql.DB
}

type CampaignRow struct {
	ID          string
	Name        string
	TemplateID  string
	ScheduledAt *time.Time
	Cron        string
	Status      string
	CreatedAt   time.Time
}

type RecipientRow struct {
	ID   int64
	Kind string
	Ref  string
}

type CampaignStats struct {
	Total   int
	Pending int
	Sent    int
	Failed  int
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func New(db *sql.DB) *Store { return &Store{DB: db} }

// Migrate creates the tables if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, schemaSQL)
	return err
}

func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) InsertCampaign(ctx context.Context, tx *sql.Tx, c CampaignRow) error {
	_, err := tx.ExecContext(ctx, `
	INSERT INTO campaigns (id,name,template_id,scheduled_at,cron,status)
	VALUES ($1,$2,$3,$4,$5,$6)`, c.ID, c.Name, c.TemplateID, nullTime(c.ScheduledAt), c.Cron, c.Status)
	return err
}

func (s *Store) InsertRecipient(ctx context.Context, tx *sql.Tx, campaignID, kind, ref string, position int) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO recipients (campaign_id, kind, ref, position)
		VALUES ($1,$2,$3,$4) RETURNING id
	`, campaignID, kind, ref, position).Scan(&id)
	return id, err
}

// InsertMessagePending starts a delivery for the recipient. A recurring
// campaign reuses the row, so a new run resets it to pending.
func (s *Store) InsertMessagePending(ctx context.Context, tx *sql.Tx, campaignID string, recipientID int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO messages (campaign_id, recipient_id, status)
		VALUES ($1,$2,'pending')
		ON CONFLICT (campaign_id, recipient_id)
		DO UPDATE SET status='pending', sent_at=NULL, last_error=NULL
	`, campaignID, recipientID)
	return err
}

func (s *Store) MarkMessageSent(ctx context.Context, campaignID string, recipientID int64) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE messages
		   SET status='sent', sent_at=NOW(), last_error=NULL
		 WHERE campaign_id=$1 AND recipient_id=$2
	`, campaignID, recipientID)
	return err
}

func (s *Store) MarkMessageFailed(ctx context.Context, campaignID string, recipientID int64, lastErr string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE messages
		   SET status='failed', last_error=$1
		 WHERE campaign_id=$2 AND recipient_id=$3
	`, lastErr, campaignID, recipientID)
	return err
}

func (s *Store) GetCampaign(ctx context.Context, id string) (CampaignRow, error) {
	var c CampaignRow
	var at sql.NullTime
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, name, template_id, scheduled_at, cron, status, created_at
		FROM campaigns
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.TemplateID, &at, &c.Cron, &c.Status, &c.CreatedAt)
	if err != nil {
		return CampaignRow{}, err
	}
	c.ScheduledAt = timePtr(at)
	return c, nil
}

func (s *Store) ListRecipients(ctx context.Context, campaignID string) ([]RecipientRow, error) {
	return listRecipients(ctx, s.DB, campaignID)
}

func listRecipients(ctx context.Context, q querier, campaignID string) ([]RecipientRow, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, kind, ref
		FROM recipients
		WHERE campaign_id = $1
		ORDER BY kind, position
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecipientRow
	for rows.Next() {
		var r RecipientRow
		if err := rows.Scan(&r.ID, &r.Kind, &r.Ref); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetCampaignStats(ctx context.Context, id string) (CampaignStats, error) {
	var st CampaignStats
	err := s.DB.QueryRowContext(ctx, `
		SELECT
		  COUNT(*)                                         AS total,
		  COUNT(*) FILTER (WHERE status='pending')         AS pending,
		  COUNT(*) FILTER (WHERE status='sent')            AS sent,
		  COUNT(*) FILTER (WHERE status='failed')          AS failed
		FROM messages
		WHERE campaign_id = $1
	`, id).Scan(&st.Total, &st.Pending, &st.Sent, &st.Failed)
	if err != nil {
		return CampaignStats{}, err
	}
	return st, nil
}

func (s *Store) ListCampaigns(ctx context.Context, limit, offset int) ([]CampaignRow, []CampaignStats, error) {
	if limit <= 0 || limit > 1000 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, template_id, scheduled_at, cron, status, created_at
		FROM campaigns
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	campaigns, err := scanCampaigns(rows)
	if err != nil {
		return nil, nil, err
	}
	if len(campaigns) == 0 {
		return campaigns, []CampaignStats{}, nil
	}

	ids := make([]string, len(campaigns))
	for i, c := range campaigns {
		ids[i] = c.ID
	}

	statRows, err := s.DB.QueryContext(ctx, `
		SELECT campaign_id,
		       COUNT(*)                                         AS total,
		       COUNT(*) FILTER (WHERE status='pending')         AS pending,
		       COUNT(*) FILTER (WHERE status='sent')            AS sent,
		       COUNT(*) FILTER (WHERE status='failed')          AS failed
		FROM messages
		WHERE campaign_id = ANY($1::uuid[])
		GROUP BY campaign_id
	`, uuidArray(ids))
	if err != nil {
		return nil, nil, err
	}
	defer statRows.Close()

	statsByID := make(map[string]CampaignStats, len(ids))
	for statRows.Next() {
		var id string
		var st CampaignStats
		if err := statRows.Scan(&id, &st.Total, &st.Pending, &st.Sent, &st.Failed); err != nil {
			return nil, nil, err
		}
		statsByID[id] = st
	}
	if err := statRows.Err(); err != nil {
		return nil, nil, err
	}

	out := make([]CampaignStats, len(campaigns))
	for i, c := range campaigns {
		out[i] = statsByID[c.ID]
	}
	return campaigns, out, nil
}

// ClaimDueCampaigns locks scheduled campaigns whose time has come. Rows locked
// by another dispatcher are skipped.
func (s *Store) ClaimDueCampaigns(ctx context.Context, tx *sql.Tx, now time.Time, limit int) ([]CampaignRow, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, template_id, scheduled_at, cron, status, created_at
		FROM campaigns
		WHERE status = 'scheduled' AND scheduled_at <= $1
		ORDER BY scheduled_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCampaigns(rows)
}

func (s *Store) ListRecipientsTx(ctx context.Context, tx *sql.Tx, campaignID string) ([]RecipientRow, error) {
	return listRecipients(ctx, tx, campaignID)
}

func (s *Store) Reschedule(ctx context.Context, tx *sql.Tx, id string, next time.Time) error {
	_, err := tx.ExecContext(ctx, `UPDATE campaigns SET scheduled_at=$1 WHERE id=$2`, next, id)
	return err
}

func (s *Store) SetStatus(ctx context.Context, tx *sql.Tx, id, status string) error {
	_, err := tx.ExecContext(ctx, `UPDATE campaigns SET status=$1 WHERE id=$2`, status, id)
	return err
}

func scanCampaigns(rows *sql.Rows) ([]CampaignRow, error) {
	var campaigns []CampaignRow
	for rows.Next() {
		var c CampaignRow
		var at sql.NullTime
		if err := rows.Scan(&c.ID, &c.Name, &c.TemplateID, &at, &c.Cron, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.ScheduledAt = timePtr(at)
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return campaigns, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

type uuidArray []string

func (a uuidArray) Value() (driver.Value, error) {
	return "{" + strings.Join(a, ",") + "}", nil
}
