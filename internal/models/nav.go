package models

import "fmt"

// Action is a discrete navigation intent.
type Action string

const (
	// ActionAdvance moves to the next page; no-op at the last page.
	ActionAdvance Action = "advance"
	// ActionRetreat moves to the previous page; no-op at the first page.
	ActionRetreat Action = "retreat"
	// ActionReset discards the user's book and cursor.
	ActionReset Action = "reset"
)

// ParseAction validates a wire-level action string.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionAdvance, ActionRetreat, ActionReset:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}
