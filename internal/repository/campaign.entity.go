package repository

import (
	"encoding/json"
	"time"

	"github.com/rmazariegos/campaign-gateway/internal/model"
)

// CampaignEntity is the persisted form of a campaign. The numbers
// column holds a JSON array: plain strings for a standard campaign,
// recipient objects for a custom one, keyed by is_custom.
type CampaignEntity struct {
	ID            string     `db:"id"              gorm:"primaryKey;column:id"`
	Name          string     `db:"name"            gorm:"column:name;not null"`
	Message       string     `db:"message"         gorm:"column:message"`
	MediaURL      string     `db:"media_url"       gorm:"column:media_url"`
	IsCustom      bool       `db:"is_custom"       gorm:"column:is_custom;not null"`
	ScheduledAt   *time.Time `db:"scheduled_at"    gorm:"column:scheduled_at"`
	DelayMs       int        `db:"delay_ms"        gorm:"column:delay_ms;not null;default:0"`
	Numbers       string     `db:"numbers"         gorm:"column:numbers;type:text"`
	Status        string     `db:"status"          gorm:"column:status;not null;index"`
	Attempts      int        `db:"attempts"        gorm:"column:attempts;not null;default:0"`
	StatsSent     int        `db:"stats_sent"      gorm:"column:stats_sent;not null;default:0"`
	StatsFailed   int        `db:"stats_failed"    gorm:"column:stats_failed;not null;default:0"`
	CreatedAt     time.Time  `db:"created_at"      gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `db:"updated_at"      gorm:"column:updated_at"`
	LastAttemptAt *time.Time `db:"last_attempt_at" gorm:"column:last_attempt_at"`
}

func (CampaignEntity) TableName() string {
	return "campaigns"
}

func toCampaignEntity(c *model.Campaign) (*CampaignEntity, error) {
	if c == nil {
		return nil, nil
	}

	var numbers []byte
	var err error
	if c.IsCustom {
		numbers, err = json.Marshal(c.Recipients)
	} else {
		numbers, err = json.Marshal(c.Numbers)
	}
	if err != nil {
		return nil, err
	}

	return &CampaignEntity{
		ID:            c.ID,
		Name:          c.Name,
		Message:       c.Message,
		MediaURL:      c.MediaURL,
		IsCustom:      c.IsCustom,
		ScheduledAt:   c.ScheduledAt,
		DelayMs:       c.DelayMs,
		Numbers:       string(numbers),
		Status:        string(c.Status),
		Attempts:      c.Attempts,
		StatsSent:     c.Stats.Sent,
		StatsFailed:   c.Stats.Failed,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		LastAttemptAt: c.LastAttemptAt,
	}, nil
}

func toCampaignModel(e *CampaignEntity) (*model.Campaign, error) {
	if e == nil {
		return nil, nil
	}

	c := &model.Campaign{
		ID:            e.ID,
		Name:          e.Name,
		Message:       e.Message,
		MediaURL:      e.MediaURL,
		IsCustom:      e.IsCustom,
		ScheduledAt:   e.ScheduledAt,
		DelayMs:       e.DelayMs,
		Status:        model.CampaignStatus(e.Status),
		Attempts:      e.Attempts,
		Stats:         model.CampaignStats{Sent: e.StatsSent, Failed: e.StatsFailed},
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
		LastAttemptAt: e.LastAttemptAt,
	}

	if e.Numbers != "" {
		if e.IsCustom {
			if err := json.Unmarshal([]byte(e.Numbers), &c.Recipients); err != nil {
				return nil, err
			}
		} else {
			if err := json.Unmarshal([]byte(e.Numbers), &c.Numbers); err != nil {
				return nil, err
			}
		}
	}

	return c, nil
}

func toCampaignModels(entities []*CampaignEntity) ([]*model.Campaign, error) {
	if entities == nil {
		return nil, nil
	}
	models := make([]*model.Campaign, len(entities))
	for i, e := range entities {
		m, err := toCampaignModel(e)
		if err != nil {
			return nil, err
		}
		models[i] = m
	}
	return models, nil
}
