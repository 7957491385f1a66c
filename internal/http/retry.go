package http

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/juju/clock"
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	BackoffFactor  float64       `yaml:"backoff_factor"`
}

// DefaultRetryConfig returns default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// RetryHandler tracks failures per host and computes exponential backoff.
type RetryHandler struct {
	config RetryConfig
	clock  clock.Clock

	// map[string]*hostRetryState
	hostRetries sync.Map
}

type hostRetryState struct {
	mu               sync.Mutex
	consecutiveFails int
	lastFailTime     time.Time
	backoffUntil     time.Time
}

// HostRetryStats is a snapshot of the retry state of one host.
type HostRetryStats struct {
	ConsecutiveFails int
	LastFailTime     time.Time
	BackoffUntil     time.Time
	InBackoff        bool
}

// NewRetryHandler creates a new retry handler. A nil clock means the wall clock.
func NewRetryHandler(config RetryConfig, clk clock.Clock) *RetryHandler {
	if clk == nil {
		clk = clock.WallClock
	}
	if config.BackoffFactor < 1 {
		config.BackoffFactor = 1
	}
	return &RetryHandler{
		config: config,
		clock:  clk,
	}
}

// MaxRetries returns the configured number of retries after the first attempt.
func (rh *RetryHandler) MaxRetries() int {
	return rh.config.MaxRetries
}

// ShouldRetry determines if a request should be retried
func (rh *RetryHandler) ShouldRetry(statusCode int, err error) bool {
	// Always retry on network errors
	if err != nil {
		return true
	}

	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}

	return false
}

// Backoff returns how long to wait before attempt against host. A host still
// inside its backoff window waits for the rest of that window.
func (rh *RetryHandler) Backoff(host string, attempt int) time.Duration {
	state := rh.getOrCreateState(host)
	state.mu.Lock()
	defer state.mu.Unlock()

	if now := rh.clock.Now(); now.Before(state.backoffUntil) {
		return state.backoffUntil.Sub(now)
	}

	return rh.backoff(attempt)
}

// backoff is InitialBackoff * BackoffFactor^attempt, capped at MaxBackoff,
// with ±20% jitter.
func (rh *RetryHandler) backoff(attempt int) time.Duration {
	backoff := rh.config.InitialBackoff
	for i := 0; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * rh.config.BackoffFactor)
		if rh.config.MaxBackoff > 0 && backoff > rh.config.MaxBackoff {
			backoff = rh.config.MaxBackoff
			break
		}
	}

	jitter := time.Duration(float64(backoff) * 0.2 * (2*rand.Float64() - 1))
	return backoff + jitter
}

// RecordFailure records a failed request for a host
func (rh *RetryHandler) RecordFailure(host string, statusCode int) {
	state := rh.getOrCreateState(host)
	state.mu.Lock()
	defer state.mu.Unlock()

	state.consecutiveFails++
	state.lastFailTime = rh.clock.Now()

	backoff := rh.backoff(state.consecutiveFails - 1)
	if statusCode == http.StatusTooManyRequests {
		backoff *= 2
	}
	state.backoffUntil = state.lastFailTime.Add(backoff)
}

// RecordSuccess records a successful request for a host
func (rh *RetryHandler) RecordSuccess(host string) {
	state := rh.getOrCreateState(host)
	state.mu.Lock()
	defer state.mu.Unlock()

	state.consecutiveFails = 0
	state.backoffUntil = time.Time{}
}

// IsInBackoff checks if a host is currently in backoff
func (rh *RetryHandler) IsInBackoff(host string) (bool, time.Duration) {
	state := rh.getOrCreateState(host)
	state.mu.Lock()
	defer state.mu.Unlock()

	if now := rh.clock.Now(); now.Before(state.backoffUntil) {
		return true, state.backoffUntil.Sub(now)
	}

	return false, 0
}

// Stats returns retry statistics for a host
func (rh *RetryHandler) Stats(host string) HostRetryStats {
	state := rh.getOrCreateState(host)
	state.mu.Lock()
	defer state.mu.Unlock()

	return HostRetryStats{
		ConsecutiveFails: state.consecutiveFails,
		LastFailTime:     state.lastFailTime,
		BackoffUntil:     state.backoffUntil,
		InBackoff:        rh.clock.Now().Before(state.backoffUntil),
	}
}

func (rh *RetryHandler) getOrCreateState(host string) *hostRetryState {
	if val, ok := rh.hostRetries.Load(host); ok {
		return val.(*hostRetryState)
	}

	state := &hostRetryState{}
	actual, _ := rh.hostRetries.LoadOrStore(host, state)
	return actual.(*hostRetryState)
}

// RetryableError is returned once every attempt for a URL has failed.
type RetryableError struct {
	Err        error
	StatusCode int
	Attempt    int
	MaxRetries int
}

func (e *RetryableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request failed (attempt %d/%d): %v", e.Attempt, e.MaxRetries+1, e.Err)
	}
	return fmt.Sprintf("request failed with status %d (attempt %d/%d)", e.StatusCode, e.Attempt, e.MaxRetries+1)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}
