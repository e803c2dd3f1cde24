// Package notify pushes pending prompt questions to external channels so
// a human notices the engine is waiting. Delivery is one-way; responses
// come back through the HTTP respond endpoint.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Notifier announces a prompt on an external channel.
type Notifier interface {
	NotifyPrompt(ctx context.Context, promptID, question string) error
}

// Multi fans a prompt out to several notifiers. A channel failure is
// logged, not fatal: the prompt can still be answered through the API.
type Multi struct {
	notifiers []Notifier
	logger    *zap.Logger
}

// NewMulti combines notifiers. Nil entries are skipped.
func NewMulti(logger *zap.Logger, notifiers ...Notifier) *Multi {
	m := &Multi{logger: logger}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Len returns how many notifiers are wired.
func (m *Multi) Len() int { return len(m.notifiers) }

// NotifyPrompt delivers to every channel, returning an error only when
// all of them fail.
func (m *Multi) NotifyPrompt(ctx context.Context, promptID, question string) error {
	if len(m.notifiers) == 0 {
		return nil
	}
	failures := 0
	for _, n := range m.notifiers {
		if err := n.NotifyPrompt(ctx, promptID, question); err != nil {
			failures++
			m.logger.Warn("prompt notification failed",
				zap.String("prompt", promptID), zap.Error(err))
		}
	}
	if failures == len(m.notifiers) {
		return fmt.Errorf("all %d notifiers failed for prompt %s", failures, promptID)
	}
	return nil
}

// formatPrompt renders the message posted to chat channels.
func formatPrompt(promptID, question string) string {
	return fmt.Sprintf("Waiting on input (prompt %s):\n%s", promptID, question)
}
