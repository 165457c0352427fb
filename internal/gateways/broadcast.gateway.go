package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rmazariegos/campaign-gateway/pkg/logger"
	"github.com/valyala/fasthttp"
)

var (
	// ErrNotConfigured is returned when no broadcast endpoint is set.
	// It is the only engine-level dispatch error; per-recipient
	// transport failures are counted, never raised.
	ErrNotConfigured = errors.New("broadcast provider URL is not configured")
)

// apiKeyHeader is the auth header of the BuilderBot-compatible gateway.
const apiKeyHeader = "x-api-builderbot"

// sendPayload is the provider wire format: one request per number.
type sendPayload struct {
	Number   string      `json:"number"`
	Messages sendContent `json:"messages"`
}

type sendContent struct {
	Content  string `json:"content"`
	MediaURL string `json:"mediaUrl,omitempty"`
}

// DispatchMetrics tracks transport-level outcomes across the life of
// the client.
type DispatchMetrics struct {
	TotalRequests    atomic.Int64
	SuccessfulReqs   atomic.Int64
	FailedReqs       atomic.Int64
	ConsecutiveFails atomic.Int32
	LastSuccessTime  atomic.Int64
	LastErrorTime    atomic.Int64
}

func (m *DispatchMetrics) RecordSuccess() {
	m.TotalRequests.Add(1)
	m.SuccessfulReqs.Add(1)
	m.ConsecutiveFails.Store(0)
	m.LastSuccessTime.Store(time.Now().Unix())
}

func (m *DispatchMetrics) RecordFailure() {
	m.TotalRequests.Add(1)
	m.FailedReqs.Add(1)
	m.ConsecutiveFails.Add(1)
	m.LastErrorTime.Store(time.Now().Unix())
}

func (m *DispatchMetrics) SuccessRate() float64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 1.0
	}
	return float64(m.SuccessfulReqs.Load()) / float64(total)
}

type Config struct {
	BroadcastURL    string
	APIKey          string
	Timeout         time.Duration
	MaxConns        int
	ReadBufferSize  int
	WriteBufferSize int
}

// Client talks to the broadcast provider over HTTP, one POST per
// message.
type Client struct {
	url     string
	apiKey  string
	timeout time.Duration
	client  *fasthttp.Client
	metrics *DispatchMetrics
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	httpClient := &fasthttp.Client{
		MaxConnsPerHost:     config.MaxConns,
		ReadTimeout:         timeout,
		WriteTimeout:        timeout,
		MaxIdleConnDuration: 60 * time.Second,
		ReadBufferSize:      config.ReadBufferSize,
		WriteBufferSize:     config.WriteBufferSize,
	}

	c := &Client{
		url:     config.BroadcastURL,
		apiKey:  config.APIKey,
		timeout: timeout,
		client:  httpClient,
		metrics: &DispatchMetrics{},
	}

	logger.Info("Broadcast client initialized", "url", config.BroadcastURL, "timeout", timeout)

	return c, nil
}

// Ready reports whether the client can reach a provider at all.
func (c *Client) Ready() error {
	if c.url == "" {
		return ErrNotConfigured
	}
	return nil
}

func (c *Client) Metrics() *DispatchMetrics {
	return c.metrics
}

// Send issues one provider request for a single number. A non-2xx
// response or transport error is returned to the caller; the response
// status and body are logged for diagnostics.
func (c *Client) Send(ctx context.Context, number, content, mediaURL string) error {
	if err := c.Ready(); err != nil {
		return err
	}

	body, err := json.Marshal(sendPayload{
		Number: number,
		Messages: sendContent{
			Content:  content,
			MediaURL: mediaURL,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		c.metrics.RecordFailure()
		return fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode < 200 || statusCode > 299 {
		c.metrics.RecordFailure()
		logger.Warn("Provider rejected message", "number", number, "status", statusCode, "body", string(resp.Body()))
		return fmt.Errorf("unexpected status code: %d, body: %s", statusCode, resp.Body())
	}

	c.metrics.RecordSuccess()
	return nil
}
