package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	gateway "github.com/rmazariegos/campaign-gateway/internal/gateways"
	"github.com/rmazariegos/campaign-gateway/internal/model"
	"github.com/rmazariegos/campaign-gateway/pkg/logger"
	"github.com/rmazariegos/campaign-gateway/pkg/prom"
)

var (
	// ErrNotRunnable is returned by RunCampaign when the campaign's
	// current status does not permit a manual dispatch.
	ErrNotRunnable = errors.New("campaign status does not permit a run")
)

// Store is the slice of the campaign repository the scheduler needs.
type Store interface {
	List(ctx context.Context) ([]*model.Campaign, error)
	Get(ctx context.Context, id string) (*model.Campaign, error)
	Update(ctx context.Context, c *model.Campaign) error
}

// Broadcaster dispatches one batch of messages.
type Broadcaster interface {
	Broadcast(ctx context.Context, job gateway.Job) (*gateway.Result, error)
}

// Report summarizes one campaign run.
type Report struct {
	CampaignID string               `json:"campaignId"`
	Status     model.CampaignStatus `json:"status"`
	Attempted  int                  `json:"attempted"`
	Sent       int                  `json:"sent"`
	Failed     int                  `json:"failed"`
	NothingDue bool                 `json:"nothingDue,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// Scheduler drives periodic and on-demand campaign dispatch. A single
// mutex serializes full ticks and manual runs so the timer firing while
// a manual request is in flight cannot double-send the same campaign.
type Scheduler struct {
	store      Store
	dispatcher Broadcaster

	mu  sync.Mutex
	now func() time.Time
}

func New(store Store, dispatcher Broadcaster) *Scheduler {
	return &Scheduler{
		store:      store,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Run ticks on a fixed interval until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	logger.Info("Scheduler started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.RunTick(ctx); err != nil {
				logger.Error("Tick failed", "error", err)
			}
		}
	}
}

// RunTick examines every campaign, dispatches the due set and persists
// each campaign before moving to the next. It returns the number of
// campaigns it touched. Campaign-level faults are absorbed per
// campaign; only a store listing failure aborts the tick.
func (s *Scheduler) RunTick(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()
	defer func() {
		prom.ObserveTickDuration(s.now().Sub(started).Seconds())
	}()

	campaigns, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	processed := 0

	for _, c := range campaigns {
		if c.IsCustom {
			due := c.DueRecipients(now)
			if len(due) == 0 {
				// a crash mid-dispatch can strand a custom campaign in
				// processing with nothing left due
				if c.Status == model.CampaignStatusProcessing {
					c.Status = model.CampaignStatusScheduled
					c.UpdatedAt = now
					if err := s.store.Update(ctx, c); err != nil {
						logger.Error("Failed to revert stranded campaign", "campaign_id", c.ID, "error", err)
					}
				}
				continue
			}
			if c.Status != model.CampaignStatusScheduled && c.Status != model.CampaignStatusProcessing {
				continue
			}
			s.dispatchCustom(ctx, c, due)
			processed++
			continue
		}

		if c.Status != model.CampaignStatusScheduled || !c.DueStandard(now) {
			continue
		}
		s.dispatchStandard(ctx, c)
		processed++
	}

	if processed > 0 {
		logger.Info("Tick complete", "processed", processed)
	}

	return processed, nil
}

// RunCampaign dispatches a single campaign on demand. A standard
// campaign is sent immediately even if its scheduledAt has not passed;
// a custom campaign dispatches only its currently due recipients, and
// an empty due set is a successful no-op.
func (s *Scheduler) RunCampaign(ctx context.Context, id string) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if c.IsCustom {
		if c.Status != model.CampaignStatusScheduled && c.Status != model.CampaignStatusProcessing {
			return nil, ErrNotRunnable
		}
		due := c.DueRecipients(s.now())
		if len(due) == 0 {
			return &Report{CampaignID: c.ID, Status: c.Status, NothingDue: true}, nil
		}
		return s.dispatchCustom(ctx, c, due), nil
	}

	if c.Status != model.CampaignStatusScheduled {
		return nil, ErrNotRunnable
	}
	return s.dispatchStandard(ctx, c), nil
}

// dispatchStandard sends the whole number list of a standard campaign.
// Once the batch completes the campaign is sent; per-number transport
// failures only count into the stats. Only an engine-level fault fails
// the campaign.
func (s *Scheduler) dispatchStandard(ctx context.Context, c *model.Campaign) *Report {
	now := s.now()
	c.Status = model.CampaignStatusProcessing
	c.Attempts++
	c.LastAttemptAt = &now
	c.UpdatedAt = now
	if err := s.store.Update(ctx, c); err != nil {
		logger.Error("Failed to persist campaign before dispatch", "campaign_id", c.ID, "error", err)
		return s.fail(ctx, c, err)
	}

	res, err := s.dispatcher.Broadcast(ctx, gateway.Job{
		CampaignID: c.ID,
		Message:    c.Message,
		MediaURL:   c.MediaURL,
		Numbers:    c.Numbers,
		Delay:      c.Delay(),
		Kind:       "standard",
	})
	if err != nil {
		logger.Error("Campaign dispatch fault", "campaign_id", c.ID, "error", err)
		return s.fail(ctx, c, err)
	}

	c.Stats.Sent += res.Sent
	c.Stats.Failed += res.Failed
	c.Status = model.CampaignStatusSent
	c.UpdatedAt = s.now()

	if err := s.store.Update(ctx, c); err != nil {
		logger.Error("Failed to persist campaign after dispatch", "campaign_id", c.ID, "error", err)
	}

	prom.IncCampaignsProcessed("standard")
	logger.Info("Campaign dispatched", "campaign_id", c.ID, "sent", res.Sent, "failed", res.Failed, "status", c.Status)

	return &Report{CampaignID: c.ID, Status: c.Status, Attempted: len(c.Numbers), Sent: res.Sent, Failed: res.Failed}
}

// dispatchCustom sends only the due recipients, marks each with its own
// outcome and resolves the campaign status from what remains.
func (s *Scheduler) dispatchCustom(ctx context.Context, c *model.Campaign, due []int) *Report {
	now := s.now()
	c.Status = model.CampaignStatusProcessing
	c.Attempts++
	c.LastAttemptAt = &now
	c.UpdatedAt = now
	if err := s.store.Update(ctx, c); err != nil {
		logger.Error("Failed to persist campaign before dispatch", "campaign_id", c.ID, "error", err)
		return s.failCustom(ctx, c, due, err)
	}

	numbers := make([]string, len(due))
	for i, idx := range due {
		numbers[i] = c.Recipients[idx].Phone
	}

	res, err := s.dispatcher.Broadcast(ctx, gateway.Job{
		CampaignID: c.ID,
		Message:    c.Message,
		MediaURL:   c.MediaURL,
		Numbers:    numbers,
		Delay:      c.Delay(),
		Kind:       "custom",
	})
	if err != nil {
		logger.Error("Campaign dispatch fault", "campaign_id", c.ID, "error", err)
		return s.failCustom(ctx, c, due, err)
	}

	done := s.now()
	for i, idx := range due {
		r := &c.Recipients[idx]
		r.Attempts++
		r.LastAttemptAt = &done
		if res.Outcomes[i].OK {
			r.Status = model.RecipientStatusSent
			r.LastError = ""
		} else {
			r.Status = model.RecipientStatusFailed
			r.LastError = res.Outcomes[i].Detail
		}
	}

	c.Stats.Sent += res.Sent
	c.Stats.Failed += res.Failed
	c.Status = s.resolveCustomStatus(c)
	c.UpdatedAt = done

	if err := s.store.Update(ctx, c); err != nil {
		logger.Error("Failed to persist campaign after dispatch", "campaign_id", c.ID, "error", err)
	}

	prom.IncCampaignsProcessed("custom")
	logger.Info("Campaign dispatched", "campaign_id", c.ID, "sent", res.Sent, "failed", res.Failed, "status", c.Status)

	return &Report{CampaignID: c.ID, Status: c.Status, Attempted: len(due), Sent: res.Sent, Failed: res.Failed}
}

// resolveCustomStatus: recipients still scheduled keep the campaign
// live; once every recipient is terminal the campaign is sent. Failed
// recipients never block completion.
func (s *Scheduler) resolveCustomStatus(c *model.Campaign) model.CampaignStatus {
	if !c.Resolved() {
		return model.CampaignStatusScheduled
	}
	return model.CampaignStatusSent
}

// fail marks a standard campaign failed after an engine-level fault.
func (s *Scheduler) fail(ctx context.Context, c *model.Campaign, cause error) *Report {
	c.Status = model.CampaignStatusFailed
	c.UpdatedAt = s.now()
	if err := s.store.Update(ctx, c); err != nil {
		logger.Error("Failed to persist failed campaign", "campaign_id", c.ID, "error", err)
	}
	return &Report{CampaignID: c.ID, Status: c.Status, Attempted: len(c.Numbers), Error: cause.Error()}
}

// failCustom marks the due recipients failed with the fault recorded on
// each, then fails the campaign outright. An engine fault is the one
// path that forces `failed`.
func (s *Scheduler) failCustom(ctx context.Context, c *model.Campaign, due []int, cause error) *Report {
	now := s.now()
	for _, idx := range due {
		r := &c.Recipients[idx]
		r.Status = model.RecipientStatusFailed
		r.Attempts++
		r.LastAttemptAt = &now
		r.LastError = cause.Error()
	}
	c.Stats.Failed += len(due)
	c.Status = model.CampaignStatusFailed
	c.UpdatedAt = now
	if err := s.store.Update(ctx, c); err != nil {
		logger.Error("Failed to persist failed campaign", "campaign_id", c.ID, "error", err)
	}
	return &Report{CampaignID: c.ID, Status: c.Status, Attempted: len(due), Failed: len(due), Error: cause.Error()}
}
