package fixtures

import (
	"time"

	"github.com/rmazariegos/campaign-gateway/internal/model"
)

func NewStandardCampaignRequest(name string, scheduledAt time.Time, numbers ...string) model.CampaignCreateRequest {
	return model.CampaignCreateRequest{
		Name:        name,
		Message:     "hola desde " + name,
		ScheduledAt: scheduledAt.Format(time.RFC3339),
		Numbers:     numbers,
	}
}

func NewCustomCampaignRequest(name string, entries map[string]time.Time) model.CampaignCreateRequest {
	req := model.CampaignCreateRequest{
		Name:     name,
		Message:  "hola desde " + name,
		IsCustom: true,
	}
	for phone, at := range entries {
		req.Recipients = append(req.Recipients, model.RecipientInput{
			Phone:       phone,
			ScheduledAt: at.Format(time.RFC3339),
		})
	}
	return req
}

func NewStandardCampaign(id string, scheduledAt time.Time, numbers ...string) *model.Campaign {
	now := time.Now()
	return &model.Campaign{
		ID:          id,
		Name:        "Campaign " + id,
		Message:     "hola",
		ScheduledAt: &scheduledAt,
		DelayMs:     0,
		Numbers:     numbers,
		Status:      model.CampaignStatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func NewCustomCampaign(id string, recipients ...model.Recipient) *model.Campaign {
	now := time.Now()
	return &model.Campaign{
		ID:         id,
		Name:       "Campaign " + id,
		Message:    "hola",
		IsCustom:   true,
		Recipients: recipients,
		Status:     model.CampaignStatusScheduled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func ScheduledRecipient(phone string, at time.Time) model.Recipient {
	return model.Recipient{
		Phone:       phone,
		ScheduledAt: at,
		Status:      model.RecipientStatusScheduled,
	}
}
