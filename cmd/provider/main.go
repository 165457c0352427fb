package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SendRequest mirrors the BuilderBot V2 broadcast wire format.
type SendRequest struct {
	Number   string      `json:"number" binding:"required"`
	Messages SendContent `json:"messages" binding:"required"`
}

type SendContent struct {
	Content  string `json:"content"`
	MediaURL string `json:"mediaUrl"`
}

type SendResponse struct {
	ID          string     `json:"id"`
	Number      string     `json:"number"`
	Status      string     `json:"status"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	ErrorMsg    string     `json:"error,omitempty"`
	ProcessedAt time.Time  `json:"processedAt"`
}

// MockProvider simulates a WhatsApp broadcast gateway.
type MockProvider struct {
	apiKey       string
	deliveryRate float64
	minDelay     time.Duration
	maxDelay     time.Duration
	rng          *rand.Rand
}

func NewMockProvider(apiKey string, deliveryRate float64, minDelay, maxDelay time.Duration) *MockProvider {
	return &MockProvider{
		apiKey:       apiKey,
		deliveryRate: deliveryRate,
		minDelay:     minDelay,
		maxDelay:     maxDelay,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockProvider) simulateDelivery(req *SendRequest) *SendResponse {
	time.Sleep(m.randomDelay())

	response := &SendResponse{
		ID:          uuid.NewString(),
		Number:      req.Number,
		ProcessedAt: time.Now(),
	}

	if m.rng.Float64() < m.deliveryRate {
		now := time.Now()
		response.Status = "delivered"
		response.DeliveredAt = &now

		log.Info().
			Str("number", req.Number).
			Bool("media", req.Messages.MediaURL != "").
			Msg("Message delivered")
	} else {
		response.Status = "failed"
		response.ErrorMsg = "recipient unreachable"

		log.Warn().
			Str("number", req.Number).
			Msg("Message delivery failed")
	}

	return response
}

func (m *MockProvider) randomDelay() time.Duration {
	if m.maxDelay <= m.minDelay {
		return m.minDelay
	}
	return m.minDelay + time.Duration(m.rng.Int63n(int64(m.maxDelay-m.minDelay)))
}

type Handler struct {
	provider *MockProvider
}

func NewHandler(provider *MockProvider) *Handler {
	return &Handler{provider: provider}
}

func (h *Handler) Send(c *gin.Context) {
	if h.provider.apiKey != "" && c.GetHeader("x-api-builderbot") != h.provider.apiKey {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		return
	}

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}
	if req.Messages.Content == "" && req.Messages.MediaURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content or mediaUrl is required"})
		return
	}

	response := h.provider.simulateDelivery(&req)

	statusCode := http.StatusOK
	if response.Status == "failed" {
		statusCode = http.StatusBadGateway
	}
	c.JSON(statusCode, response)
}

func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		DeliveryRate *float64 `json:"delivery_rate"`
	}
	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if config.DeliveryRate != nil && *config.DeliveryRate >= 0 && *config.DeliveryRate <= 1.0 {
		h.provider.deliveryRate = *config.DeliveryRate
		log.Info().Float64("rate", *config.DeliveryRate).Msg("Updated delivery rate")
	}
	c.JSON(http.StatusOK, gin.H{"delivery_rate": h.provider.deliveryRate})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"delivery_rate": h.provider.deliveryRate,
		"timestamp":     time.Now(),
	})
}

func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request processed")
	})

	router.POST("/v2/messages", handler.Send)
	router.PUT("/config", handler.UpdateConfig)
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "8081")
	apiKey := getEnv("API_KEY", "")
	deliveryRate := getEnvFloat("DELIVERY_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 100*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 800*time.Millisecond)

	log.Info().
		Str("port", port).
		Float64("delivery_rate", deliveryRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting mock broadcast provider")

	provider := NewMockProvider(apiKey, deliveryRate, minDelay, maxDelay)
	handler := NewHandler(provider)
	router := SetupRouter(handler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
	log.Info().Msg("Provider stopped")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
