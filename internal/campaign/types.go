package campaign

import "time"

// SendRequest is a validated campaign dispatch request, serialized verbatim as
// the body of POST /api/v1/campaigns/send.
type SendRequest struct {
	CampaignName string     `json:"campaignName"`
	TemplateID   string     `json:"templateId"`
	SendTo       Recipients `json:"sendTo"`
	Schedule     *Schedule  `json:"schedule,omitempty"`
}

type Recipients struct {
	Contacts []string `json:"contacts"`
	Segments []string `json:"segments"`
}

// Total is the number of recipient references, contacts plus segments.
func (r Recipients) Total() int { return len(r.Contacts) + len(r.Segments) }

// Schedule is one-shot when Cron is empty, recurring otherwise.
type Schedule struct {
	DateTime string `json:"dateTime"`
	Cron     string `json:"cron,omitempty"`
}

// Time parses DateTime. Only call it on a validated request.
func (s Schedule) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s.DateTime)
}

// Draft converts r back into its unvalidated form, e.g. to re-check a request
// that was assembled by hand.
func (r SendRequest) Draft() Draft {
	d := Draft{
		CampaignName: &r.CampaignName,
		TemplateID:   &r.TemplateID,
		SendTo: RecipientsDraft{
			Contacts: append([]string(nil), r.SendTo.Contacts...),
			Segments: append([]string(nil), r.SendTo.Segments...),
		},
	}
	if r.Schedule != nil {
		s := *r.Schedule
		d.Schedule = &ScheduleDraft{DateTime: &s.DateTime}
		if s.Cron != "" {
			d.Schedule.Cron = &s.Cron
		}
	}
	return d
}

// Draft is the not-yet-validated form of a SendRequest. Nil pointers mark
// absent fields.
type Draft struct {
	CampaignName *string         `json:"campaignName" validate:"required,min=1"`
	TemplateID   *string         `json:"templateId"   validate:"required,uuid_text"`
	SendTo       RecipientsDraft `json:"sendTo"`
	Schedule     *ScheduleDraft  `json:"schedule"`
}

type RecipientsDraft struct {
	Contacts []string `json:"contacts" validate:"omitempty,dive,uuid_text"`
	Segments []string `json:"segments" validate:"omitempty,dive,uuid_text"`
}

type ScheduleDraft struct {
	DateTime *string `json:"dateTime" validate:"required,iso8601"`
	Cron     *string `json:"cron"`
}

type SendCampaignResp struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// JobMessage is published once per recipient reference.
type JobMessage struct {
	CampaignID  string `json:"campaign_id"`
	RecipientID int64  `json:"recipient_id"`
	Kind        string `json:"kind"`
	Ref         string `json:"ref"`
	TemplateID  string `json:"template_id"`
}

const (
	KindContact = "contact"
	KindSegment = "segment"
)

const (
	StatusScheduled = "scheduled"
	StatusQueued    = "queued"
)

type Stats struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}

type CampaignListItem struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	TemplateID  string     `json:"template_id"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Cron        string     `json:"cron,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	Stats       Stats      `json:"stats"`
}

type CampaignDetails struct {
	CampaignListItem
	Recipients Recipients `json:"recipients"`
}
