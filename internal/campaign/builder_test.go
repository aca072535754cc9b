package campaign

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testName     = "Test Campaign"
	testTemplate = "00000000-0000-0000-0000-000000000000"
	contact1     = "11111111-1111-1111-1111-111111111111"
	contact2     = "22222222-2222-2222-2222-222222222222"
	segment1     = "33333333-3333-3333-3333-333333333333"
	segment2     = "44444444-4444-4444-4444-444444444444"
)

func newBuilder(t *testing.T) *SendRequestBuilder {
	t.Helper()
	b, err := NewSendRequestBuilder(testName, testTemplate)
	require.NoError(t, err)
	return b
}

func TestBuilder_MinimalRequest(t *testing.T) {
	req, err := newBuilder(t).AddContact(contact1).Build()
	require.NoError(t, err)

	assert.Equal(t, testName, req.CampaignName)
	assert.Equal(t, testTemplate, req.TemplateID)
	assert.Equal(t, []string{contact1}, req.SendTo.Contacts)
	assert.Equal(t, []string{}, req.SendTo.Segments)
	assert.Nil(t, req.Schedule)
}

func TestBuilder_ConstructorPreconditions(t *testing.T) {
	_, err := NewSendRequestBuilder("", testTemplate)
	assert.ErrorIs(t, err, ErrBuilderCampaignName)

	_, err = NewSendRequestBuilder(testName, "")
	assert.ErrorIs(t, err, ErrBuilderTemplateID)
}

func TestBuilder_Recipients(t *testing.T) {
	t.Run("contacts keep insertion order", func(t *testing.T) {
		req, err := newBuilder(t).AddContact(contact1).AddContact(contact2).Build()
		require.NoError(t, err)
		assert.Equal(t, []string{contact1, contact2}, req.SendTo.Contacts)
	})

	t.Run("add contacts in bulk", func(t *testing.T) {
		req, err := newBuilder(t).AddContacts(contact1, contact2).Build()
		require.NoError(t, err)
		assert.Equal(t, []string{contact1, contact2}, req.SendTo.Contacts)
	})

	t.Run("segments", func(t *testing.T) {
		req, err := newBuilder(t).AddSegment(segment1).AddSegments(segment2).Build()
		require.NoError(t, err)
		assert.Equal(t, []string{segment1, segment2}, req.SendTo.Segments)
		assert.Equal(t, []string{}, req.SendTo.Contacts)
	})

	t.Run("duplicates collapse to first occurrence", func(t *testing.T) {
		req, err := newBuilder(t).
			AddContact(contact2).
			AddContacts(contact1, contact2, contact1).
			AddSegments(segment1, segment1).
			Build()
		require.NoError(t, err)
		assert.Equal(t, []string{contact2, contact1}, req.SendTo.Contacts)
		assert.Equal(t, []string{segment1}, req.SendTo.Segments)
	})

	t.Run("no cross-list de-duplication", func(t *testing.T) {
		req, err := newBuilder(t).AddContact(contact1).AddSegment(contact1).Build()
		require.NoError(t, err)
		assert.Equal(t, []string{contact1}, req.SendTo.Contacts)
		assert.Equal(t, []string{contact1}, req.SendTo.Segments)
	})
}

func TestBuilder_Schedule(t *testing.T) {
	const at = "2025-10-02T12:00:00.000Z"

	t.Run("one-shot", func(t *testing.T) {
		req, err := newBuilder(t).AddContact(contact1).WithSchedule(at).Build()
		require.NoError(t, err)
		require.NotNil(t, req.Schedule)
		assert.Equal(t, at, req.Schedule.DateTime)
		assert.Empty(t, req.Schedule.Cron)

		body, err := json.Marshal(req)
		require.NoError(t, err)
		assert.NotContains(t, string(body), "cron")
	})

	t.Run("recurring", func(t *testing.T) {
		req, err := newBuilder(t).AddContact(contact1).WithSchedule(at, "0 0 * * *").Build()
		require.NoError(t, err)
		require.NotNil(t, req.Schedule)
		assert.Equal(t, at, req.Schedule.DateTime)
		assert.Equal(t, "0 0 * * *", req.Schedule.Cron)
	})

	t.Run("second call replaces the first", func(t *testing.T) {
		req, err := newBuilder(t).
			AddContact(contact1).
			WithSchedule("2030-01-01T00:00:00Z", "0 0 1 1 *").
			WithSchedule(at).
			Build()
		require.NoError(t, err)
		require.NotNil(t, req.Schedule)
		assert.Equal(t, at, req.Schedule.DateTime)
		assert.Empty(t, req.Schedule.Cron)
	})

	t.Run("bad date time", func(t *testing.T) {
		_, err := newBuilder(t).AddContact(contact1).WithSchedule("tomorrow").Build()
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{msgInvalidDateTime}, verr.Messages("schedule.dateTime"))
	})
}

func TestBuilder_BuildFailures(t *testing.T) {
	t.Run("no recipients", func(t *testing.T) {
		_, err := newBuilder(t).Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "At least one contact or segment must be specified")
	})

	t.Run("invalid template id", func(t *testing.T) {
		b, err := NewSendRequestBuilder(testName, "invalid-uuid")
		require.NoError(t, err)

		_, err = b.AddContact(contact1).Build()
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{msgInvalidTemplate}, verr.Messages("templateId"))
	})

	t.Run("renamed to empty", func(t *testing.T) {
		_, err := newBuilder(t).AddContact(contact1).WithCampaignName("").Build()
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{msgNameRequired}, verr.Messages("campaignName"))
	})

	t.Run("every violation is reported", func(t *testing.T) {
		_, err := newBuilder(t).
			WithCampaignName("").
			WithTemplateID("nope").
			AddContact("not-a-uuid").
			WithSchedule("").
			Build()
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.NotEmpty(t, verr.Messages("campaignName"))
		assert.NotEmpty(t, verr.Messages("templateId"))
		assert.Equal(t, []string{msgInvalidUUID}, verr.Messages("sendTo.contacts[0]"))
		assert.Equal(t, []string{msgNoRecipients}, verr.Messages("sendTo"))
		assert.NotEmpty(t, verr.Messages("schedule.dateTime"))
	})
}

func TestBuilder_RetryAfterCorrection(t *testing.T) {
	b := newBuilder(t)

	_, err := b.Build()
	require.Error(t, err)

	_, again := b.Build()
	require.Error(t, again)
	assert.Equal(t, err.Error(), again.Error())

	req, err := b.AddSegment(segment1).Build()
	require.NoError(t, err)
	assert.Equal(t, []string{segment1}, req.SendTo.Segments)
}

func TestBuilder_ResultDoesNotAliasDraft(t *testing.T) {
	b := newBuilder(t).AddContact(contact1)
	req, err := b.Build()
	require.NoError(t, err)

	req.SendTo.Contacts[0] = "mutated"
	next, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{contact1}, next.SendTo.Contacts)
}

func TestBuilder_ErrorIsValidationError(t *testing.T) {
	_, err := newBuilder(t).Build()
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}
