package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rmazariegos/campaign-gateway/internal/model"
	"github.com/rmazariegos/campaign-gateway/internal/phone"
	"github.com/rmazariegos/campaign-gateway/internal/telemetry"
	"github.com/rmazariegos/campaign-gateway/pkg/logger"
)

var (
	ErrNoValidRecipients = fmt.Errorf("%w: no valid recipients after normalization", model.ErrValidation)
	ErrInvalidSchedule   = fmt.Errorf("%w: invalid scheduledAt timestamp", model.ErrValidation)
)

const defaultDelayMs = 2500

// CampaignRepository is the persistence slice the service needs.
type CampaignRepository interface {
	Create(ctx context.Context, c *model.Campaign) (*model.Campaign, error)
	List(ctx context.Context) ([]*model.Campaign, error)
	Get(ctx context.Context, id string) (*model.Campaign, error)
	Update(ctx context.Context, c *model.Campaign) error
	Delete(ctx context.Context, id string) error
}

// CreateResult pairs the stored campaign with what normalization
// rejected, so callers see dropped input instead of losing it silently.
type CreateResult struct {
	Campaign          *model.Campaign `json:"campaign"`
	Invalid           []string        `json:"invalid,omitempty"`
	DuplicatesRemoved int             `json:"duplicatesRemoved,omitempty"`
}

type CampaignService struct {
	repo         CampaignRepository
	telemetry    telemetry.Recorder
	defaultDelay int
	now          func() time.Time
}

func NewCampaignService(repo CampaignRepository, recorder telemetry.Recorder, delayMs int) *CampaignService {
	if recorder == nil {
		recorder = telemetry.Nop{}
	}
	if delayMs <= 0 {
		delayMs = defaultDelayMs
	}
	return &CampaignService{
		repo:         repo,
		telemetry:    recorder,
		defaultDelay: delayMs,
		now:          time.Now,
	}
}

// ParseNumbers normalizes a raw block of numbers without touching any
// campaign.
func (s *CampaignService) ParseNumbers(raw string) phone.ParseResult {
	return phone.ParseRaw(raw)
}

func (s *CampaignService) Create(ctx context.Context, p model.CampaignCreateRequest) (*CreateResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	c := &model.Campaign{
		ID:        "cmp_" + uuid.NewString(),
		Name:      strings.TrimSpace(p.Name),
		Message:   strings.TrimSpace(p.Message),
		MediaURL:  strings.TrimSpace(p.MediaURL),
		IsCustom:  p.IsCustom,
		DelayMs:   s.defaultDelay,
		Status:    model.CampaignStatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if c.Name == "" {
		c.Name = "Campaña " + now.Format("2006-01-02 15:04")
	}
	if p.DelayMs != nil {
		c.DelayMs = *p.DelayMs
	}

	result := &CreateResult{}

	if p.IsCustom {
		recipients, invalid, err := s.buildRecipients(p.Recipients)
		if err != nil {
			return nil, err
		}
		if len(recipients) == 0 {
			return nil, ErrNoValidRecipients
		}
		c.Recipients = recipients
		result.Invalid = invalid
	} else {
		at, err := parseSchedule(p.ScheduledAt)
		if err != nil {
			return nil, err
		}
		c.ScheduledAt = &at

		parsed := phone.ParseRaw(strings.Join(p.Numbers, "\n"))
		if len(parsed.Numbers) == 0 {
			return nil, ErrNoValidRecipients
		}
		c.Numbers = parsed.Numbers
		result.Invalid = parsed.Invalid
		result.DuplicatesRemoved = parsed.DuplicatesRemoved
	}

	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	result.Campaign = created

	s.telemetry.Record("campaign_create", map[string]any{
		"campaignId": created.ID,
		"isCustom":   created.IsCustom,
		"recipients": created.RecipientCount(),
	})
	logger.Info("Campaign created", "campaign_id", created.ID, "custom", created.IsCustom, "recipients", created.RecipientCount())

	return result, nil
}

func (s *CampaignService) Update(ctx context.Context, id string, p model.CampaignUpdateRequest) (*CreateResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &CreateResult{}

	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Message != nil {
		c.Message = strings.TrimSpace(*p.Message)
	}
	if p.MediaURL != nil {
		c.MediaURL = strings.TrimSpace(*p.MediaURL)
	}
	if p.DelayMs != nil {
		c.DelayMs = *p.DelayMs
	}
	if p.ScheduledAt != nil && !c.IsCustom {
		at, err := parseSchedule(*p.ScheduledAt)
		if err != nil {
			return nil, err
		}
		c.ScheduledAt = &at
	}
	if len(p.Numbers) > 0 && !c.IsCustom {
		parsed := phone.ParseRaw(strings.Join(p.Numbers, "\n"))
		if len(parsed.Numbers) == 0 {
			return nil, ErrNoValidRecipients
		}
		c.Numbers = parsed.Numbers
		result.Invalid = parsed.Invalid
		result.DuplicatesRemoved = parsed.DuplicatesRemoved
	}
	if len(p.Recipients) > 0 && c.IsCustom {
		recipients, invalid, err := s.buildRecipients(p.Recipients)
		if err != nil {
			return nil, err
		}
		if len(recipients) == 0 {
			return nil, ErrNoValidRecipients
		}
		c.Recipients = recipients
		result.Invalid = invalid
	}

	if c.Message == "" && c.MediaURL == "" {
		return nil, fmt.Errorf("%w: message is required when no mediaUrl is set", model.ErrValidation)
	}

	c.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	result.Campaign = c

	return result, nil
}

func (s *CampaignService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *CampaignService) List(ctx context.Context) ([]*model.Campaign, error) {
	return s.repo.List(ctx)
}

func (s *CampaignService) Get(ctx context.Context, id string) (*model.Campaign, error) {
	return s.repo.Get(ctx, id)
}

// TogglePause flips a campaign between scheduled and paused.
func (s *CampaignService) TogglePause(ctx context.Context, id string) (*model.Campaign, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.TogglePause(); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	logger.Info("Campaign pause toggled", "campaign_id", c.ID, "status", c.Status)
	return c, nil
}

// buildRecipients normalizes custom entries, keeping input order.
// Entries with an unusable phone are collected in invalid; an unusable
// schedule fails the whole request so the caller can fix the payload.
func (s *CampaignService) buildRecipients(inputs []model.RecipientInput) ([]model.Recipient, []string, error) {
	var recipients []model.Recipient
	var invalid []string

	for _, in := range inputs {
		canonical, ok := phone.Normalize(in.Phone)
		if !ok {
			invalid = append(invalid, strings.TrimSpace(in.Phone))
			continue
		}
		at, err := parseSchedule(in.ScheduledAt)
		if err != nil {
			return nil, nil, err
		}
		recipients = append(recipients, model.Recipient{
			Phone:       canonical,
			ScheduledAt: at,
			Status:      model.RecipientStatusScheduled,
		})
	}

	return recipients, invalid, nil
}

// parseSchedule accepts RFC3339 and the datetime-local form the
// dashboard submits.
func parseSchedule(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidSchedule
	}
	if at, err := time.Parse(time.RFC3339, raw); err == nil {
		return at, nil
	}
	if at, err := time.Parse("2006-01-02T15:04", raw); err == nil {
		return at, nil
	}
	return time.Time{}, ErrInvalidSchedule
}
