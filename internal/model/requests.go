package model

import (
	"errors"
	"fmt"
)

// ErrValidation tags every request-validation failure so handlers can
// map it to a 4xx without matching message text.
var ErrValidation = errors.New("invalid request")

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// RecipientInput is the wire form of one custom-campaign entry.
// ScheduledAt is an ISO timestamp; the service parses and validates it.
type RecipientInput struct {
	Phone       string `json:"phone"`
	ScheduledAt string `json:"scheduledAt"`
}

// CampaignCreateRequest is the input for creating a campaign. For a
// standard campaign Numbers carries raw tokens that still need
// normalization; for a custom campaign Recipients carries phone/schedule
// pairs.
type CampaignCreateRequest struct {
	Name        string           `json:"name"`
	Message     string           `json:"message"`
	MediaURL    string           `json:"mediaUrl"`
	IsCustom    bool             `json:"isCustom"`
	ScheduledAt string           `json:"scheduledAt"`
	DelayMs     *int             `json:"delayMs"`
	Numbers     []string         `json:"numbers"`
	Recipients  []RecipientInput `json:"recipients"`
}

func (p CampaignCreateRequest) Validate() error {
	if p.Message == "" && p.MediaURL == "" {
		return validationError("message is required when no mediaUrl is set")
	}
	if p.IsCustom {
		if len(p.Recipients) == 0 {
			return validationError("at least one recipient is required")
		}
	} else {
		if len(p.Numbers) == 0 {
			return validationError("at least one number is required")
		}
		if p.ScheduledAt == "" {
			return validationError("scheduledAt is required for a standard campaign")
		}
	}
	if p.DelayMs != nil && *p.DelayMs < 0 {
		return validationError("delayMs must not be negative")
	}
	return nil
}

// CampaignUpdateRequest edits the mutable fields of a campaign. Nil
// pointers leave the current value untouched.
type CampaignUpdateRequest struct {
	Name        *string          `json:"name"`
	Message     *string          `json:"message"`
	MediaURL    *string          `json:"mediaUrl"`
	ScheduledAt *string          `json:"scheduledAt"`
	DelayMs     *int             `json:"delayMs"`
	Numbers     []string         `json:"numbers"`
	Recipients  []RecipientInput `json:"recipients"`
}

func (p CampaignUpdateRequest) Validate() error {
	if p.DelayMs != nil && *p.DelayMs < 0 {
		return validationError("delayMs must not be negative")
	}
	return nil
}
