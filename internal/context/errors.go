// Package context turns an agent's structured working context into a
// token-budgeted, ordered message sequence for a language model.
//
// A Feeder builds candidate items from the request, scores them against
// keywords drawn from the task, user message and plan, packs them by tier
// into the model's budget (compressing where worthwhile) and assembles the
// final messages.
package context

import "errors"

var (
	// ErrEmptyModel is returned when a request names no model.
	ErrEmptyModel = errors.New("context: model id is empty")
	// ErrNilRegistry is returned when a Feeder has no model registry.
	ErrNilRegistry = errors.New("context: model registry is nil")
)
