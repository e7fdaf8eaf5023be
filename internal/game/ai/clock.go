package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Difficulty selects the opponent's thinking delay.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Normal Difficulty = "normal"
	Hard   Difficulty = "hard"
)

// ParseDifficulty maps a config string to a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case Easy, Normal, Hard:
		return d, nil
	}
	return "", fmt.Errorf("ai: unknown difficulty %q", s)
}

// Delays holds the thinking delay per difficulty.
type Delays struct {
	Easy   time.Duration
	Normal time.Duration
	Hard   time.Duration
}

// DefaultDelays returns 1200ms / 800ms / 400ms.
func DefaultDelays() Delays {
	return Delays{Easy: 1200 * time.Millisecond, Normal: 800 * time.Millisecond, Hard: 400 * time.Millisecond}
}

// For returns the delay for d; unknown difficulties use Normal.
func (d Delays) For(diff Difficulty) time.Duration {
	switch diff {
	case Easy:
		return d.Easy
	case Hard:
		return d.Hard
	default:
		return d.Normal
	}
}

// Clock waits out the loop's thinking delays.
type Clock interface {
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock sleeps on the wall clock.
type RealClock struct{}

// Sleep implements Clock.
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SimClock advances simulated time instantly and records every sleep.
// It is safe for concurrent use.
type SimClock struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

// Sleep implements Clock.
func (c *SimClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return nil
}

// Elapsed returns the total simulated time slept.
func (c *SimClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total time.Duration
	for _, d := range c.sleeps {
		total += d
	}
	return total
}

// Sleeps returns a copy of every recorded sleep in order.
func (c *SimClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}
