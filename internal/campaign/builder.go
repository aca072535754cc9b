package campaign

import (
	"errors"
	"slices"
)

var (
	ErrBuilderCampaignName = errors.New("campaign name is required for builder initialization")
	ErrBuilderTemplateID   = errors.New("template ID is required for builder initialization")
)

// SendRequestBuilder accumulates a Draft through chained calls and validates
// it on Build. It is not safe for concurrent use.
type SendRequestBuilder struct {
	draft Draft
}

func NewSendRequestBuilder(campaignName, templateID string) (*SendRequestBuilder, error) {
	if campaignName == "" {
		return nil, ErrBuilderCampaignName
	}
	if templateID == "" {
		return nil, ErrBuilderTemplateID
	}
	return &SendRequestBuilder{draft: Draft{
		CampaignName: &campaignName,
		TemplateID:   &templateID,
		SendTo:       RecipientsDraft{Contacts: []string{}, Segments: []string{}},
	}}, nil
}

func (b *SendRequestBuilder) WithCampaignName(name string) *SendRequestBuilder {
	b.draft.CampaignName = &name
	return b
}

func (b *SendRequestBuilder) WithTemplateID(id string) *SendRequestBuilder {
	b.draft.TemplateID = &id
	return b
}

// AddContact appends id unless it is already listed.
func (b *SendRequestBuilder) AddContact(id string) *SendRequestBuilder {
	if !slices.Contains(b.draft.SendTo.Contacts, id) {
		b.draft.SendTo.Contacts = append(b.draft.SendTo.Contacts, id)
	}
	return b
}

func (b *SendRequestBuilder) AddContacts(ids ...string) *SendRequestBuilder {
	for _, id := range ids {
		b.AddContact(id)
	}
	return b
}

// AddSegment appends id unless it is already listed. Segments and contacts are
// de-duplicated independently.
func (b *SendRequestBuilder) AddSegment(id string) *SendRequestBuilder {
	if !slices.Contains(b.draft.SendTo.Segments, id) {
		b.draft.SendTo.Segments = append(b.draft.SendTo.Segments, id)
	}
	return b
}

func (b *SendRequestBuilder) AddSegments(ids ...string) *SendRequestBuilder {
	for _, id := range ids {
		b.AddSegment(id)
	}
	return b
}

// WithSchedule replaces the schedule. Without a non-empty cron the schedule is
// one-shot, even if an earlier call set one.
func (b *SendRequestBuilder) WithSchedule(dateTime string, cron ...string) *SendRequestBuilder {
	s := &ScheduleDraft{DateTime: &dateTime}
	if len(cron) > 0 && cron[0] != "" {
		c := cron[0]
		s.Cron = &c
	}
	b.draft.Schedule = s
	return b
}

// Build validates the accumulated draft. The draft is left untouched, so the
// builder can be corrected and built again.
func (b *SendRequestBuilder) Build() (SendRequest, error) {
	return Validate(b.draft)
}
