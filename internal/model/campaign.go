package model

import (
	"errors"
	"time"
)

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignStatusScheduled  CampaignStatus = "scheduled"
	CampaignStatusPaused     CampaignStatus = "paused"
	CampaignStatusProcessing CampaignStatus = "processing"
	CampaignStatusSent       CampaignStatus = "sent"
	CampaignStatusFailed     CampaignStatus = "failed"
	CampaignStatusCancelled  CampaignStatus = "cancelled"
)

// RecipientStatus is the per-recipient state inside a custom campaign.
type RecipientStatus string

const (
	RecipientStatusScheduled RecipientStatus = "scheduled"
	RecipientStatusSent      RecipientStatus = "sent"
	RecipientStatusFailed    RecipientStatus = "failed"
)

var (
	// ErrInvalidTransition is returned when a pause/resume toggle is
	// attempted on a campaign that is not scheduled or paused.
	ErrInvalidTransition = errors.New("campaign status does not permit pause/resume")
)

// Recipient is one phone entry of a custom campaign, carrying its own
// schedule and delivery state. Failed is terminal: the engine never
// retries a failed recipient.
type Recipient struct {
	Phone         string          `json:"phone"`
	ScheduledAt   time.Time       `json:"scheduledAt"`
	Status        RecipientStatus `json:"status"`
	Attempts      int             `json:"attempts"`
	LastAttemptAt *time.Time      `json:"lastAttemptAt,omitempty"`
	LastError     string          `json:"lastError,omitempty"`
}

// CampaignStats are cumulative dispatch counters. They only ever grow;
// repeated attempts add to them.
type CampaignStats struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Campaign pairs a message (and optional media) with recipients and
// timing. Exactly one of Numbers/Recipients is populated: Numbers for a
// standard campaign sharing a single ScheduledAt, Recipients for a
// custom campaign where every entry carries its own schedule.
type Campaign struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Message  string `json:"message"`
	MediaURL string `json:"mediaUrl,omitempty"`
	IsCustom bool   `json:"isCustom"`

	// ScheduledAt is meaningful only when IsCustom is false.
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	DelayMs     int        `json:"delayMs"`

	Numbers    []string    `json:"numbers,omitempty"`
	Recipients []Recipient `json:"recipients,omitempty"`

	Status   CampaignStatus `json:"status"`
	Attempts int            `json:"attempts"`
	Stats    CampaignStats  `json:"stats"`

	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	LastAttemptAt *time.Time `json:"lastAttemptAt,omitempty"`
}

// TogglePause flips scheduled<->paused. Any other current status is an
// invalid transition.
func (c *Campaign) TogglePause() error {
	switch c.Status {
	case CampaignStatusScheduled:
		c.Status = CampaignStatusPaused
	case CampaignStatusPaused:
		c.Status = CampaignStatusScheduled
	default:
		return ErrInvalidTransition
	}
	return nil
}

// RecipientCount returns how many numbers the campaign targets,
// regardless of variant.
func (c *Campaign) RecipientCount() int {
	if c.IsCustom {
		return len(c.Recipients)
	}
	return len(c.Numbers)
}

// DueRecipients returns the indexes of recipients eligible for dispatch
// at the given instant: still scheduled, with a schedule that has
// passed. Only meaningful for custom campaigns.
func (c *Campaign) DueRecipients(now time.Time) []int {
	var due []int
	for i := range c.Recipients {
		r := &c.Recipients[i]
		if r.Status != RecipientStatusScheduled {
			continue
		}
		if r.ScheduledAt.IsZero() || r.ScheduledAt.After(now) {
			continue
		}
		due = append(due, i)
	}
	return due
}

// Resolved reports whether every recipient of a custom campaign has
// reached a terminal state. Failed recipients do not block completion.
func (c *Campaign) Resolved() bool {
	for i := range c.Recipients {
		if c.Recipients[i].Status == RecipientStatusScheduled {
			return false
		}
	}
	return true
}

// DueStandard reports whether a standard campaign's shared instant has
// passed.
func (c *Campaign) DueStandard(now time.Time) bool {
	if c.IsCustom || c.ScheduledAt == nil {
		return false
	}
	return !c.ScheduledAt.After(now)
}

// Delay returns the configured inter-message spacing.
func (c *Campaign) Delay() time.Duration {
	if c.DelayMs <= 0 {
		return 0
	}
	return time.Duration(c.DelayMs) * time.Millisecond
}
