package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

const campaignID = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"

func TestInsertCampaign_WithTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	s := New(db)
	ctx := context.Background()
	at := time.Date(2025, 10, 2, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`
	INSERT INTO campaigns (id,name,template_id,scheduled_at,cron,status)
	VALUES ($1,$2,$3,$4,$5,$6)`)).
		WithArgs(campaignID, "n", "00000000-0000-0000-0000-000000000000", sqlmock.AnyArg(), "0 9 * * 1", "scheduled").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		return s.InsertCampaign(ctx, tx, CampaignRow{
			ID:          campaignID,
			Name:        "n",
			TemplateID:  "00000000-0000-0000-0000-000000000000",
			ScheduledAt: &at,
			Cron:        "0 9 * * 1",
			Status:      "scheduled",
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestInsertRecipient_And_Message(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	s := New(db)
	ctx := context.Background()
	ref := "11111111-1111-1111-1111-111111111111"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`
		INSERT INTO recipients (campaign_id, kind, ref, position)
		VALUES ($1,$2,$3,$4) RETURNING id
	`)).
		WithArgs(campaignID, "contact", ref, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(101))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO messages (campaign_id, recipient_id, status)`)).
		WithArgs(campaignID, int64(101)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		rid, e := s.InsertRecipient(ctx, tx, campaignID, "contact", ref, 0)
		if e != nil {
			return e
		}
		return s.InsertMessagePending(ctx, tx, campaignID, rid)
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	err = New(db).WithTx(context.Background(), func(tx *sql.Tx) error {
		return sql.ErrNoRows
	})
	if err != sql.ErrNoRows {
		t.Fatalf("want ErrNoRows, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetCampaign_NullSchedule(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	created := time.Unix(0, 0).UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM campaigns`)).
		WithArgs(campaignID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "template_id", "scheduled_at", "cron", "status", "created_at"}).
			AddRow(campaignID, "n", "00000000-0000-0000-0000-000000000000", nil, "", "queued", created))

	c, err := New(db).GetCampaign(context.Background(), campaignID)
	if err != nil {
		t.Fatal(err)
	}
	if c.ScheduledAt != nil {
		t.Fatalf("want nil scheduled_at, got %v", c.ScheduledAt)
	}
	if c.Status != "queued" || c.Name != "n" {
		t.Fatalf("unexpected row: %+v", c)
	}
}

func TestListCampaigns_JoinsStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	other := "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
	created := time.Unix(0, 0).UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`LIMIT $1 OFFSET $2`)).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "template_id", "scheduled_at", "cron", "status", "created_at"}).
			AddRow(campaignID, "A", "00000000-0000-0000-0000-000000000000", nil, "", "queued", created).
			AddRow(other, "B", "00000000-0000-0000-0000-000000000000", created, "", "scheduled", created))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE campaign_id = ANY($1::uuid[])`)).
		WithArgs("{" + campaignID + "," + other + "}").
		WillReturnRows(sqlmock.NewRows([]string{"campaign_id", "total", "pending", "sent", "failed"}).
			AddRow(campaignID, 3, 1, 1, 1))

	rows, stats, err := New(db).ListCampaigns(context.Background(), 0, -5)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || len(stats) != 2 {
		t.Fatalf("want 2 rows and stats, got %d/%d", len(rows), len(stats))
	}
	if stats[0].Total != 3 || stats[0].Sent != 1 {
		t.Fatalf("unexpected stats for first campaign: %+v", stats[0])
	}
	if stats[1] != (CampaignStats{}) {
		t.Fatalf("want zero stats for second campaign, got %+v", stats[1])
	}
	if rows[1].ScheduledAt == nil {
		t.Fatal("want scheduled_at for second campaign")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestClaimDueCampaigns_And_Reschedule(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	s := New(db)
	ctx := context.Background()
	now := time.Date(2025, 10, 2, 12, 0, 0, 0, time.UTC)
	next := now.Add(24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE SKIP LOCKED`)).
		WithArgs(now, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "template_id", "scheduled_at", "cron", "status", "created_at"}).
			AddRow(campaignID, "A", "00000000-0000-0000-0000-000000000000", now, "0 12 * * *", "scheduled", now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE campaigns SET scheduled_at=$1 WHERE id=$2`)).
		WithArgs(next, campaignID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		due, err := s.ClaimDueCampaigns(ctx, tx, now, 10)
		if err != nil {
			return err
		}
		if len(due) != 1 || due[0].Cron != "0 12 * * *" {
			t.Fatalf("unexpected due campaigns: %+v", due)
		}
		return s.Reschedule(ctx, tx, due[0].ID, next)
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS campaigns`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := New(db).Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
