package core

import (
	"fmt"
	"sync"
)

// TurnLimiter enforces a maximum number of model turns per question. It
// bounds the worst-case cost of a question when the model keeps issuing tool
// calls without converging on an answer.
type TurnLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewTurnLimiter creates a limiter with a max number of turns.
// If max == 0, unlimited turns are allowed.
func NewTurnLimiter(max int) *TurnLimiter {
	return &TurnLimiter{max: max}
}

// Increment increases the turn counter and returns an error if the budget is
// exceeded.
func (tl *TurnLimiter) Increment() error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	tl.count++
	if tl.max > 0 && tl.count > tl.max {
		return fmt.Errorf("exceeded max turns: %d", tl.max)
	}

	return nil
}

// Reset clears the counter for a new question.
func (tl *TurnLimiter) Reset() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.count = 0
}

// Count returns the number of turns taken so far.
func (tl *TurnLimiter) Count() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.count
}

// Remaining returns how many turns are left before hitting the budget.
func (tl *TurnLimiter) Remaining() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if tl.max == 0 {
		return -1 // unlimited
	}

	return tl.max - tl.count
}
