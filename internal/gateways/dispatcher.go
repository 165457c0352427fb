package gateway

import (
	"context"
	"time"

	"github.com/rmazariegos/campaign-gateway/internal/telemetry"
	"github.com/rmazariegos/campaign-gateway/pkg/logger"
	"github.com/rmazariegos/campaign-gateway/pkg/prom"
)

// Sender is the transport the dispatcher drives, one request per
// number. *Client satisfies it.
type Sender interface {
	Ready() error
	Send(ctx context.Context, number, content, mediaURL string) error
}

// Job is one dispatch batch: a message sent to an ordered list of
// canonical numbers with a fixed spacing between provider calls.
type Job struct {
	CampaignID string
	Message    string
	MediaURL   string
	Numbers    []string
	Delay      time.Duration
	// Kind labels metrics: "standard", "custom" or "direct".
	Kind string
}

// Outcome is the per-number result of a batch.
type Outcome struct {
	Number string
	OK     bool
	Detail string
}

type Result struct {
	Sent     int
	Failed   int
	Outcomes []Outcome
}

// Dispatcher sends batches through a Sender, best effort: a failed
// number is recorded and the batch continues. It errors only when the
// transport is not configured at all.
type Dispatcher struct {
	sender    Sender
	telemetry telemetry.Recorder

	// sleep is swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(sender Sender, recorder telemetry.Recorder) *Dispatcher {
	if recorder == nil {
		recorder = telemetry.Nop{}
	}
	return &Dispatcher{
		sender:    sender,
		telemetry: recorder,
		sleep:     sleepCtx,
	}
}

// Broadcast sends one message per number, sequentially, waiting
// job.Delay between consecutive provider calls and not after the last.
// Per-number failures never abort the batch. The returned error is
// non-nil only for engine-level misconfiguration.
func (d *Dispatcher) Broadcast(ctx context.Context, job Job) (*Result, error) {
	if err := d.sender.Ready(); err != nil {
		return nil, err
	}

	res := &Result{Outcomes: make([]Outcome, 0, len(job.Numbers))}

	for i, number := range job.Numbers {
		if number == "" {
			logger.Error("Empty number in broadcast", "campaign_id", job.CampaignID)
			res.Failed++
			res.Outcomes = append(res.Outcomes, Outcome{Number: number, Detail: "empty number"})
			continue
		}

		err := d.sender.Send(ctx, number, job.Message, job.MediaURL)

		// fire-and-forget analytics for every transport attempt
		d.telemetry.Record("message_sent", map[string]any{
			"number":     number,
			"campaignId": job.CampaignID,
			"hasMedia":   job.MediaURL != "",
		})

		if err != nil {
			logger.Warn("Failed to send message", "campaign_id", job.CampaignID, "number", number, "error", err)
			res.Failed++
			res.Outcomes = append(res.Outcomes, Outcome{Number: number, Detail: err.Error()})
		} else {
			logger.Debug("Message sent", "campaign_id", job.CampaignID, "number", number)
			res.Sent++
			res.Outcomes = append(res.Outcomes, Outcome{Number: number, OK: true})
		}

		if job.Delay > 0 && i < len(job.Numbers)-1 {
			if err := d.sleep(ctx, job.Delay); err != nil {
				// context cancelled mid-batch: remaining numbers are
				// reported as failed so the caller can record them
				for _, rest := range job.Numbers[i+1:] {
					res.Failed++
					res.Outcomes = append(res.Outcomes, Outcome{Number: rest, Detail: err.Error()})
				}
				break
			}
		}
	}

	kind := job.Kind
	if kind == "" {
		kind = "standard"
	}
	prom.AddMessagesSent(float64(res.Sent), kind)
	prom.AddMessagesFailed(float64(res.Failed), kind)

	return res, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
