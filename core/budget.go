package core

import "sync"

// TokenBudget enforces a maximum total token spend for a run. It only
// counts; callers decide what exceeding the budget means (the engine stops
// dispatching further nodes).
type TokenBudget struct {
	max   int
	spent int
	mu    sync.Mutex
}

// NewTokenBudget creates a budget with a maximum token count.
// If max == 0, the budget is unlimited.
func NewTokenBudget(max int) *TokenBudget {
	return &TokenBudget{max: max}
}

// Record adds usage to the running total and reports whether the budget is
// now exhausted.
func (b *TokenBudget) Record(tokens int) (exhausted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.spent += tokens
	return b.max > 0 && b.spent >= b.max
}

// Spent returns the total tokens recorded so far.
func (b *TokenBudget) Spent() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.spent
}

// Remaining returns how many tokens are left before the budget is exhausted,
// or -1 when unlimited.
func (b *TokenBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max == 0 {
		return -1
	}
	if b.spent >= b.max {
		return 0
	}
	return b.max - b.spent
}
