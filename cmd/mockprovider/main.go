// mockprovider is a standalone delivery provider for local smoke testing.
// It speaks the generic HTTP driver's default dialect: a /send endpoint
// taking to/from/message parameters, a /balance endpoint, and asynchronous
// delivery receipts posted back to a configured callback URL.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type sendResponse struct {
	ID    string     `json:"id,omitempty"`
	Error *sendError `json:"error,omitempty"`
}

type sendError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MockProvider simulates a downstream SMS carrier.
type MockProvider struct {
	mu           sync.Mutex
	deliveryRate float64
	minDelay     time.Duration
	maxDelay     time.Duration
	callbackURL  string
	token        string
	providerID   string
	balance      float64
	rng          *rand.Rand
}

func NewMockProvider(deliveryRate float64, minDelay, maxDelay time.Duration, callbackURL, token string) *MockProvider {
	return &MockProvider{
		deliveryRate: deliveryRate,
		minDelay:     minDelay,
		maxDelay:     maxDelay,
		callbackURL:  callbackURL,
		token:        token,
		providerID:   "MOCK_" + uuid.New().String()[:8],
		balance:      1000,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockProvider) shouldDeliver() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64() < m.deliveryRate
}

func (m *MockProvider) randomDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxDelay <= m.minDelay {
		return m.minDelay
	}
	return m.minDelay + time.Duration(m.rng.Int63n(int64(m.maxDelay-m.minDelay)))
}

// scheduleReceipt posts a delivery receipt back to the dispatch suite the
// way a real carrier would, after a delivery delay.
func (m *MockProvider) scheduleReceipt(id string) {
	if m.callbackURL == "" {
		return
	}

	status := "delivered"
	if !m.shouldDeliver() {
		status = "undelivered"
	}
	delay := m.randomDelay()

	go func() {
		time.Sleep(delay)

		form := url.Values{}
		form.Set("id", id)
		form.Set("status", status)
		if m.token != "" {
			form.Set("token", m.token)
		}

		resp, err := http.PostForm(m.callbackURL, form)
		if err != nil {
			log.Warn().Err(err).Str("id", id).Msg("receipt callback failed")
			return
		}
		defer resp.Body.Close()

		log.Info().
			Str("id", id).
			Str("status", status).
			Int("callback_status", resp.StatusCode).
			Dur("delay", delay).
			Msg("delivery receipt posted")
	}()
}

type Handler struct {
	provider *MockProvider
}

func NewHandler(provider *MockProvider) *Handler {
	return &Handler{provider: provider}
}

// Send accepts a message in the generic dialect: to/from/message as query
// or form parameters.
func (h *Handler) Send(c *gin.Context) {
	to := param(c, "to")
	message := param(c, "message")
	if to == "" || message == "" {
		c.JSON(http.StatusBadRequest, sendResponse{Error: &sendError{
			Code:    "MISSING_PARAM",
			Message: "to and message are required",
		}})
		return
	}

	// hard rejection for an obviously bad destination
	if strings.HasSuffix(to, "0000000") {
		c.JSON(http.StatusOK, sendResponse{Error: &sendError{
			Code:    "INVALID_NUMBER",
			Message: "destination not in service",
		}})
		return
	}

	id := uuid.New().String()
	log.Info().
		Str("id", id).
		Str("to", to).
		Str("from", param(c, "from")).
		Int("length", len(message)).
		Msg("message accepted")

	h.provider.mu.Lock()
	h.provider.balance -= 0.01
	h.provider.mu.Unlock()

	h.provider.scheduleReceipt(id)
	c.JSON(http.StatusOK, sendResponse{ID: id})
}

func (h *Handler) Balance(c *gin.Context) {
	h.provider.mu.Lock()
	defer h.provider.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"balance": h.provider.balance})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"provider_id":   h.provider.providerID,
		"timestamp":     time.Now(),
		"delivery_rate": h.provider.deliveryRate,
	})
}

// UpdateConfig changes the failure injection knobs at runtime.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		DeliveryRate *float64 `json:"delivery_rate"`
		Balance      *float64 `json:"balance"`
	}
	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	h.provider.mu.Lock()
	defer h.provider.mu.Unlock()
	if config.DeliveryRate != nil && *config.DeliveryRate >= 0 && *config.DeliveryRate <= 1.0 {
		h.provider.deliveryRate = *config.DeliveryRate
		log.Info().Float64("rate", *config.DeliveryRate).Msg("updated delivery rate")
	}
	if config.Balance != nil {
		h.provider.balance = *config.Balance
	}

	c.JSON(http.StatusOK, gin.H{
		"delivery_rate": h.provider.deliveryRate,
		"balance":       h.provider.balance,
	})
}

func param(c *gin.Context, name string) string {
	if v := c.Query(name); v != "" {
		return v
	}
	return c.PostForm(name)
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
			Msg("request processed")
	})

	router.POST("/send", handler.Send)
	router.GET("/balance", handler.Balance)
	router.PUT("/config", handler.UpdateConfig)
	router.GET("/health", handler.Health)

	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "8081")
	deliveryRate := getEnvFloat("DELIVERY_RATE", 0.95)
	minDelay := getEnvDuration("MIN_DELAY", 500*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 3*time.Second)
	callbackURL := getEnv("CALLBACK_URL", "")
	callbackToken := getEnv("CALLBACK_TOKEN", "")

	log.Info().
		Str("port", port).
		Float64("delivery_rate", deliveryRate).
		Str("callback_url", callbackURL).
		Msg("starting mock delivery provider")

	provider := NewMockProvider(deliveryRate, minDelay, maxDelay, callbackURL, callbackToken)
	router := SetupRouter(NewHandler(provider))

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
