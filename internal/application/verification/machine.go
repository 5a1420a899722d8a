// Package verification runs the e-mail verification conversation:
// idle -> awaiting_email -> awaiting_code -> idle.
package verification

import (
	"errors"
	"fmt"

	"github.com/go-storefront-bot/internal/domain"
)

// Event is something that happened to a conversation.
type Event int

const (
	EventBegin Event = iota
	EventEmailRejected
	EventChallengeIssued
	EventCodeConfirmed
	EventCodeRejected
	EventCancel
)

func (e Event) String() string {
	switch e {
	case EventBegin:
		return "begin"
	case EventEmailRejected:
		return "email_rejected"
	case EventChallengeIssued:
		return "challenge_issued"
	case EventCodeConfirmed:
		return "code_confirmed"
	case EventCodeRejected:
		return "code_rejected"
	case EventCancel:
		return "cancel"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

var ErrInvalidTransition = errors.New("invalid transition")

// Next is the transition table. It has no side effects.
func Next(state domain.ConversationState, ev Event) (domain.ConversationState, error) {
	switch ev {
	case EventBegin:
		return domain.StateAwaitingEmail, nil
	case EventEmailRejected:
		if state == domain.StateAwaitingEmail {
			return domain.StateAwaitingEmail, nil
		}
	case EventChallengeIssued:
		if state == domain.StateAwaitingEmail {
			return domain.StateAwaitingCode, nil
		}
	case EventCodeConfirmed, EventCodeRejected:
		if state == domain.StateAwaitingCode {
			return domain.StateIdle, nil
		}
	case EventCancel:
		if state == domain.StateAwaitingEmail || state == domain.StateAwaitingCode {
			return domain.StateIdle, nil
		}
	}
	return state, fmt.Errorf("%s in state %s: %w", ev, state, ErrInvalidTransition)
}
