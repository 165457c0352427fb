package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	readyErr error
	failFor  map[string]error
	sent     []string
}

func (f *fakeSender) Ready() error { return f.readyErr }

func (f *fakeSender) Send(ctx context.Context, number, content, mediaURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[number]; ok {
		return err
	}
	f.sent = append(f.sent, number)
	return nil
}

type captureRecorder struct {
	mu     sync.Mutex
	events []string
}

func (c *captureRecorder) Record(eventType string, metadata map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, eventType)
}

func newTestDispatcher(sender Sender, recorder *captureRecorder) *Dispatcher {
	var r *Dispatcher
	if recorder != nil {
		r = NewDispatcher(sender, recorder)
	} else {
		r = NewDispatcher(sender, nil)
	}
	r.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return r
}

func TestDispatcher_Broadcast_AllSent(t *testing.T) {
	sender := &fakeSender{}
	recorder := &captureRecorder{}
	d := newTestDispatcher(sender, recorder)

	res, err := d.Broadcast(context.Background(), Job{
		CampaignID: "cmp_1",
		Message:    "hola",
		Numbers:    []string{"50211111111", "50222222222", "50233333333"},
		Delay:      time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Sent)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, []string{"50211111111", "50222222222", "50233333333"}, sender.sent)
	assert.Len(t, recorder.events, 3)
}

func TestDispatcher_Broadcast_PartialFailure(t *testing.T) {
	sender := &fakeSender{failFor: map[string]error{
		"50222222222": errors.New("provider timeout"),
	}}
	d := newTestDispatcher(sender, nil)

	res, err := d.Broadcast(context.Background(), Job{
		CampaignID: "cmp_1",
		Message:    "hola",
		Numbers:    []string{"50211111111", "50222222222", "50233333333"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Outcomes, 3)
	assert.True(t, res.Outcomes[0].OK)
	assert.False(t, res.Outcomes[1].OK)
	assert.Contains(t, res.Outcomes[1].Detail, "provider timeout")
	assert.True(t, res.Outcomes[2].OK)
}

func TestDispatcher_Broadcast_NotConfigured(t *testing.T) {
	sender := &fakeSender{readyErr: ErrNotConfigured}
	d := newTestDispatcher(sender, nil)

	res, err := d.Broadcast(context.Background(), Job{
		CampaignID: "cmp_1",
		Numbers:    []string{"50211111111"},
	})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Empty(t, sender.sent)
}

func TestDispatcher_Broadcast_EmptyNumberFailsWithoutTransport(t *testing.T) {
	sender := &fakeSender{}
	recorder := &captureRecorder{}
	d := newTestDispatcher(sender, recorder)

	res, err := d.Broadcast(context.Background(), Job{
		CampaignID: "cmp_1",
		Numbers:    []string{"", "50211111111"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"50211111111"}, sender.sent)
	// no transport attempt for the empty number, so one event only
	assert.Len(t, recorder.events, 1)
}

func TestDispatcher_Broadcast_DelayBetweenSendsOnly(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, nil)

	var sleeps int
	d.sleep = func(ctx context.Context, dur time.Duration) error {
		sleeps++
		assert.Equal(t, 100*time.Millisecond, dur)
		return nil
	}

	_, err := d.Broadcast(context.Background(), Job{
		CampaignID: "cmp_1",
		Numbers:    []string{"a1", "a2", "a3"},
		Delay:      100 * time.Millisecond,
	})
	require.NoError(t, err)

	// two gaps for three sends, never after the last one
	assert.Equal(t, 2, sleeps)
}

func TestDispatcher_Broadcast_NoDelaySkipsSleep(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, nil)

	d.sleep = func(ctx context.Context, dur time.Duration) error {
		t.Fatal("sleep must not be called with zero delay")
		return nil
	}

	_, err := d.Broadcast(context.Background(), Job{
		CampaignID: "cmp_1",
		Numbers:    []string{"a1", "a2"},
	})
	require.NoError(t, err)
	assert.Len(t, sender.sent, 2)
}

func TestDispatcher_Broadcast_CancelledMidBatch(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, nil)

	d.sleep = func(ctx context.Context, dur time.Duration) error {
		return context.Canceled
	}

	res, err := d.Broadcast(context.Background(), Job{
		CampaignID: "cmp_1",
		Numbers:    []string{"a1", "a2", "a3"},
		Delay:      time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Outcomes, 3)
	assert.Equal(t, "a2", res.Outcomes[1].Number)
	assert.Equal(t, "a3", res.Outcomes[2].Number)
}

func TestDispatcher_Broadcast_EmptyBatch(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(sender, nil)

	res, err := d.Broadcast(context.Background(), Job{CampaignID: "cmp_1"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 0, res.Failed)
	assert.Empty(t, res.Outcomes)
}
