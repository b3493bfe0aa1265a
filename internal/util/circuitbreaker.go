package util

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// CircuitState represents the state of the circuit breaker
type CircuitState string

const (
	CircuitStateClosed   CircuitState = "CLOSED"    // 정상 작동
	CircuitStateOpen     CircuitState = "OPEN"      // 요청 차단
	CircuitStateHalfOpen CircuitState = "HALF_OPEN" // 복구 시도 중
)

// String implements Stringer interface
func (s CircuitState) String() string {
	return string(s)
}

// CircuitBreaker stops calling a host after repeated transport failures.
// After resetTimeout the circuit is HALF_OPEN and exactly one trial request is
// admitted; its outcome closes or re-opens the circuit. Other callers are
// rejected until the trial reports back.
type CircuitBreaker struct {
	state            CircuitState
	failureCount     int
	failureThreshold int
	resetTimeout     time.Duration
	openedAt         time.Time
	probing          bool
	now              func() time.Time
	logger           *zap.Logger
	mu               sync.Mutex
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration, logger *zap.Logger) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &CircuitBreaker{
		state:            CircuitStateClosed,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
		logger:           OrNop(logger),
	}
}

// State returns the current circuit state, moving OPEN to HALF_OPEN once the
// reset timeout has elapsed.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.refresh()
}

// CanExecute reports whether a request may proceed. A true result in
// HALF_OPEN claims the trial slot, so the caller must report the outcome with
// RecordSuccess, RecordFailure or Cancel.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.refresh() {
	case CircuitStateOpen:
		return false
	case CircuitStateHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
	}
	return true
}

// Cancel releases the trial slot without an outcome, e.g. when the request
// was abandoned because its context ended.
func (cb *CircuitBreaker) Cancel() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false
}

// RetryAfter returns how long the circuit stays open, zero if it is not open.
func (cb *CircuitBreaker) RetryAfter() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != CircuitStateOpen {
		return 0
	}
	remaining := cb.resetTimeout - cb.now().Sub(cb.openedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordSuccess records a successful request
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false
	if cb.state == CircuitStateHalfOpen {
		cb.logger.Info("Circuit Breaker: Service recovered, transitioning to CLOSED")
		cb.transitionTo(CircuitStateClosed)
	}
	cb.failureCount = 0
}

// RecordFailure records a failed request
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false
	cb.failureCount++

	cb.logger.Debug("Circuit Breaker: Failure recorded",
		zap.Int("count", cb.failureCount),
		zap.Int("threshold", cb.failureThreshold),
	)

	switch {
	case cb.state == CircuitStateHalfOpen:
		cb.logger.Warn("Circuit Breaker: Recovery failed, reopening circuit")
		cb.open()
	case cb.state == CircuitStateClosed && cb.failureCount >= cb.failureThreshold:
		cb.logger.Warn("Circuit Breaker: Threshold reached, OPENING circuit",
			zap.Int("threshold", cb.failureThreshold),
			zap.Duration("reset_timeout", cb.resetTimeout),
		)
		cb.open()
	}
}

// Reset manually resets the circuit breaker
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitStateClosed
	cb.failureCount = 0
	cb.openedAt = time.Time{}
	cb.probing = false
}

// refresh moves OPEN to HALF_OPEN once the reset timeout has elapsed. Must be
// called with the lock held.
func (cb *CircuitBreaker) refresh() CircuitState {
	if cb.state == CircuitStateOpen && cb.now().Sub(cb.openedAt) >= cb.resetTimeout {
		cb.transitionTo(CircuitStateHalfOpen)
	}
	return cb.state
}

// open must be called with the lock held.
func (cb *CircuitBreaker) open() {
	cb.openedAt = cb.now()
	cb.transitionTo(CircuitStateOpen)
}

// transitionTo changes the circuit state (internal, must be called with lock held)
func (cb *CircuitBreaker) transitionTo(newState CircuitState) {
	oldState := cb.state
	cb.state = newState
	if newState == CircuitStateClosed {
		cb.failureCount = 0
	}

	cb.logger.Debug("Circuit Breaker: State transition",
		zap.String("from", oldState.String()),
		zap.String("to", newState.String()),
		zap.Int("failure_count", cb.failureCount),
	)
}
