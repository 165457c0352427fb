package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCampaign_TogglePause(t *testing.T) {
	t.Run("scheduled to paused", func(t *testing.T) {
		c := &Campaign{Status: CampaignStatusScheduled}
		assert.NoError(t, c.TogglePause())
		assert.Equal(t, CampaignStatusPaused, c.Status)
	})

	t.Run("paused back to scheduled", func(t *testing.T) {
		c := &Campaign{Status: CampaignStatusPaused}
		assert.NoError(t, c.TogglePause())
		assert.Equal(t, CampaignStatusScheduled, c.Status)
	})

	t.Run("rejected from other statuses", func(t *testing.T) {
		for _, s := range []CampaignStatus{CampaignStatusProcessing, CampaignStatusSent, CampaignStatusFailed, CampaignStatusCancelled} {
			c := &Campaign{Status: s}
			err := c.TogglePause()
			assert.ErrorIs(t, err, ErrInvalidTransition, string(s))
			assert.Equal(t, s, c.Status)
		}
	})
}

func TestCampaign_DueStandard(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	t.Run("past schedule is due", func(t *testing.T) {
		c := &Campaign{ScheduledAt: &past}
		assert.True(t, c.DueStandard(now))
	})

	t.Run("future schedule is not due", func(t *testing.T) {
		c := &Campaign{ScheduledAt: &future}
		assert.False(t, c.DueStandard(now))
	})

	t.Run("missing schedule is never due", func(t *testing.T) {
		c := &Campaign{}
		assert.False(t, c.DueStandard(now))
	})

	t.Run("custom campaigns have no shared instant", func(t *testing.T) {
		c := &Campaign{IsCustom: true, ScheduledAt: &past}
		assert.False(t, c.DueStandard(now))
	})
}

func TestCampaign_DueRecipients(t *testing.T) {
	now := time.Now()
	c := &Campaign{
		IsCustom: true,
		Recipients: []Recipient{
			{Phone: "50211111111", ScheduledAt: now.Add(-time.Hour), Status: RecipientStatusScheduled},
			{Phone: "50222222222", ScheduledAt: now.Add(time.Hour), Status: RecipientStatusScheduled},
			{Phone: "50233333333", ScheduledAt: now.Add(-time.Hour), Status: RecipientStatusSent},
			{Phone: "50244444444", ScheduledAt: now.Add(-time.Hour), Status: RecipientStatusFailed},
		},
	}

	due := c.DueRecipients(now)
	assert.Equal(t, []int{0}, due)
}

func TestCampaign_Resolved(t *testing.T) {
	c := &Campaign{
		IsCustom: true,
		Recipients: []Recipient{
			{Status: RecipientStatusSent},
			{Status: RecipientStatusFailed},
		},
	}
	assert.True(t, c.Resolved())

	c.Recipients = append(c.Recipients, Recipient{Status: RecipientStatusScheduled})
	assert.False(t, c.Resolved())
}

func TestCampaignCreateRequest_Validate(t *testing.T) {
	t.Run("message or media required", func(t *testing.T) {
		p := CampaignCreateRequest{Numbers: []string{"12345678"}, ScheduledAt: "2026-01-01T10:00:00Z"}
		assert.Error(t, p.Validate())

		p.MediaURL = "https://example.com/promo.jpg"
		assert.NoError(t, p.Validate())
	})

	t.Run("standard needs numbers and schedule", func(t *testing.T) {
		p := CampaignCreateRequest{Message: "hola"}
		assert.Error(t, p.Validate())

		p.Numbers = []string{"12345678"}
		assert.Error(t, p.Validate())

		p.ScheduledAt = "2026-01-01T10:00:00Z"
		assert.NoError(t, p.Validate())
	})

	t.Run("custom needs recipients", func(t *testing.T) {
		p := CampaignCreateRequest{Message: "hola", IsCustom: true}
		assert.Error(t, p.Validate())

		p.Recipients = []RecipientInput{{Phone: "12345678", ScheduledAt: "2026-01-01T10:00:00Z"}}
		assert.NoError(t, p.Validate())
	})

	t.Run("negative delay rejected", func(t *testing.T) {
		d := -1
		p := CampaignCreateRequest{Message: "hola", Numbers: []string{"12345678"}, ScheduledAt: "2026-01-01T10:00:00Z", DelayMs: &d}
		assert.Error(t, p.Validate())
	})
}
