package telemetry

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rmazariegos/campaign-gateway/pkg/logger"
	"github.com/rmazariegos/campaign-gateway/pkg/redis"
)

// Recorder records analytics events. Implementations must never block
// the caller and must never surface errors into the request path.
type Recorder interface {
	Record(eventType string, metadata map[string]any)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(string, map[string]any) {}

type event struct {
	Type     string
	Metadata map[string]any
	At       time.Time
}

type StreamConfig struct {
	Stream     string
	MaxLen     int64
	BufferSize int
}

// StreamRecorder appends events to a capped Redis Stream through a
// buffered channel and a single background writer. When the buffer is
// full the event is dropped, the hot path never waits on Redis.
type StreamRecorder struct {
	adapter redis.RedisAdapter
	config  StreamConfig

	events chan event
	done   chan struct{}
	once   sync.Once
}

func NewStreamRecorder(adapter redis.RedisAdapter, config StreamConfig) *StreamRecorder {
	if config.Stream == "" {
		config.Stream = "telemetry:events"
	}
	if config.MaxLen == 0 {
		config.MaxLen = 10000
	}
	if config.BufferSize == 0 {
		config.BufferSize = 1024
	}

	r := &StreamRecorder{
		adapter: adapter,
		config:  config,
		events:  make(chan event, config.BufferSize),
		done:    make(chan struct{}),
	}

	go r.writeLoop()

	return r
}

func (r *StreamRecorder) Record(eventType string, metadata map[string]any) {
	select {
	case r.events <- event{Type: eventType, Metadata: metadata, At: time.Now().UTC()}:
	default:
		logger.Warn("Telemetry buffer full, dropping event", "event_type", eventType)
	}
}

func (r *StreamRecorder) writeLoop() {
	defer close(r.done)

	for ev := range r.events {
		values := map[string]interface{}{
			"type": ev.Type,
			"at":   ev.At.Format(time.RFC3339Nano),
		}
		if len(ev.Metadata) > 0 {
			meta, err := json.Marshal(ev.Metadata)
			if err != nil {
				logger.Error("Failed to marshal telemetry metadata", "event_type", ev.Type, "error", err)
				continue
			}
			values["metadata"] = string(meta)
		}

		if _, err := r.adapter.XAdd(r.config.Stream, values); err != nil {
			logger.Error("Failed to append telemetry event", "event_type", ev.Type, "error", err)
			continue
		}

		if err := r.adapter.XTrimApprox(r.config.Stream, r.config.MaxLen); err != nil {
			logger.Warn("Failed to trim telemetry stream", "error", err)
		}
	}
}

// Close flushes buffered events and stops the writer.
func (r *StreamRecorder) Close() {
	r.once.Do(func() {
		close(r.events)
		<-r.done
	})
}
