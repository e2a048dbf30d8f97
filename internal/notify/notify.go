// Package notify pushes run outcomes to an operator channel. It is
// purely observational and never affects control flow.
package notify

import "clickbait_bot/internal/model"

// Notifier receives run outcomes.
type Notifier interface {
	RunCompleted(report *model.RunReport)
	RunFailed(err error)
}

// Noop is the Notifier used when no channel is configured.
type Noop struct{}

func (Noop) RunCompleted(*model.RunReport) {}
func (Noop) RunFailed(error)               {}
