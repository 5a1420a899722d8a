package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-storefront-bot/internal/domain"
	"github.com/go-storefront-bot/internal/infrastructure/metrics"
	"github.com/go-storefront-bot/internal/pkg/keylock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/go-storefront-bot/internal/application/verification")

const (
	mailSubject = "Confirmation code"
	mailBody    = "Your confirmation code: %s"
)

// Outcome tells the chat layer which reply to render.
type Outcome int

const (
	OutcomeAskEmail Outcome = iota + 1
	OutcomeEmailRejected
	OutcomeCodeSent
	OutcomeDeliveryFailed
	OutcomeVerified
	OutcomeCodeRejected
	OutcomeCancelled
	// OutcomeNotInConversation means the input belongs to the generic fallback responder.
	OutcomeNotInConversation
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAskEmail:
		return "ask_email"
	case OutcomeEmailRejected:
		return "email_rejected"
	case OutcomeCodeSent:
		return "code_sent"
	case OutcomeDeliveryFailed:
		return "delivery_failed"
	case OutcomeVerified:
		return "verified"
	case OutcomeCodeRejected:
		return "code_rejected"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeNotInConversation:
		return "not_in_conversation"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type Result struct {
	Outcome Outcome
	State   domain.ConversationState
	// Email is the verified address on OutcomeVerified and the challenged one on
	// OutcomeCodeSent / OutcomeDeliveryFailed.
	Email string
}

type Service interface {
	// Begin starts (or restarts) verification for the chat.
	Begin(ctx context.Context, chatID int64, username string) (Result, error)
	// Submit feeds free text typed by the user into the conversation.
	Submit(ctx context.Context, chatID int64, text string) (Result, error)
	Cancel(ctx context.Context, chatID int64) (Result, error)
	State(ctx context.Context, chatID int64) (domain.ConversationState, error)
}

type stateStore interface {
	Get(ctx context.Context, chatID int64) (domain.ConversationState, error)
	Set(ctx context.Context, chatID int64, state domain.ConversationState) error
}

type emailValidator interface {
	Validate(ctx context.Context, candidate string) (string, error)
}

type challengeStore interface {
	StartChallenge(ctx context.Context, chatID int64, email, code string) error
	CheckCode(ctx context.Context, chatID int64, submitted string, apply func(ctx context.Context, email string) error) (string, error)
}

type directory interface {
	Set(ctx context.Context, chatID int64, email string) error
	EnsureExists(ctx context.Context, chatID int64, username string) error
}

type mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type service struct {
	states     stateStore
	validator  emailValidator
	challenges challengeStore
	directory  directory
	mailer     mailer
	newCode    func() (string, error)
	locks      *keylock.Locker
	metrics    *metrics.Metrics
}

type ServiceDeps struct {
	States     stateStore
	Validator  emailValidator
	Challenges challengeStore
	Directory  directory
	Mailer     mailer
	NewCode    func() (string, error)
	Metrics    *metrics.Metrics
}

func NewService(deps ServiceDeps) Service {
	return &service{
		states:     deps.States,
		validator:  deps.Validator,
		challenges: deps.Challenges,
		directory:  deps.Directory,
		mailer:     deps.Mailer,
		newCode:    deps.NewCode,
		locks:      keylock.New(),
		metrics:    deps.Metrics,
	}
}

func (s *service) State(ctx context.Context, chatID int64) (domain.ConversationState, error) {
	st, err := s.states.Get(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("load state: %w", err)
	}
	return st, nil
}

func (s *service) Begin(ctx context.Context, chatID int64, username string) (Result, error) {
	ctx, span := s.start(ctx, "verification.Begin", chatID)
	defer span.End()

	if err := s.directory.EnsureExists(ctx, chatID, username); err != nil {
		return Result{}, err
	}

	unlock := s.locks.Lock(chatID)
	defer unlock()
	next, _ := Next(domain.StateIdle, EventBegin)
	if err := s.states.Set(ctx, chatID, next); err != nil {
		return Result{}, fmt.Errorf("save state: %w", err)
	}
	return s.done(Result{Outcome: OutcomeAskEmail, State: next}), nil
}

func (s *service) Submit(ctx context.Context, chatID int64, text string) (Result, error) {
	ctx, span := s.start(ctx, "verification.Submit", chatID)
	defer span.End()

	st, err := s.State(ctx, chatID)
	if err != nil {
		return Result{}, err
	}
	span.SetAttributes(attribute.String("state", string(st)))

	switch st {
	case domain.StateAwaitingEmail:
		return s.submitEmail(ctx, chatID, text)
	case domain.StateAwaitingCode:
		return s.submitCode(ctx, chatID, text)
	default:
		return s.done(Result{Outcome: OutcomeNotInConversation, State: st}), nil
	}
}

// submitEmail validates and mails without holding the chat lock; only the
// challenge write and the state change happen under it.
func (s *service) submitEmail(ctx context.Context, chatID int64, text string) (Result, error) {
	email, err := s.validator.Validate(ctx, text)
	if errors.Is(err, domain.ErrInvalidEmail) {
		slog.Debug("email rejected", "chat_id", chatID, "err", err)
		next, _ := Next(domain.StateAwaitingEmail, EventEmailRejected)
		return s.done(Result{Outcome: OutcomeEmailRejected, State: next}), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("validate email: %w", err)
	}

	code, err := s.newCode()
	if err != nil {
		return Result{}, err
	}

	next, err := s.issueChallenge(ctx, chatID, email, code)
	if err != nil {
		return Result{}, err
	}
	if next != domain.StateAwaitingCode {
		return s.done(Result{Outcome: OutcomeNotInConversation, State: next}), nil
	}

	if err := s.mailer.SendEmail(ctx, email, mailSubject, fmt.Sprintf(mailBody, code)); err != nil {
		slog.Warn("confirmation email not delivered", "chat_id", chatID, "err", err)
		s.metrics.IncEmailDelivery(false)
		return s.done(Result{Outcome: OutcomeDeliveryFailed, State: next, Email: email}), nil
	}
	s.metrics.IncEmailDelivery(true)
	return s.done(Result{Outcome: OutcomeCodeSent, State: next, Email: email}), nil
}

// issueChallenge persists the challenge before any delivery attempt. If the
// conversation moved on while the address was being checked, nothing is written
// and the current state is returned.
func (s *service) issueChallenge(ctx context.Context, chatID int64, email, code string) (domain.ConversationState, error) {
	unlock := s.locks.Lock(chatID)
	defer unlock()

	st, err := s.State(ctx, chatID)
	if err != nil {
		return "", err
	}
	next, err := Next(st, EventChallengeIssued)
	if err != nil {
		return st, nil
	}
	if err := s.challenges.StartChallenge(ctx, chatID, email, code); err != nil {
		return "", err
	}
	if err := s.states.Set(ctx, chatID, next); err != nil {
		return "", fmt.Errorf("save state: %w", err)
	}
	return next, nil
}

func (s *service) submitCode(ctx context.Context, chatID int64, text string) (Result, error) {
	unlock := s.locks.Lock(chatID)
	defer unlock()

	st, err := s.State(ctx, chatID)
	if err != nil {
		return Result{}, err
	}
	if st != domain.StateAwaitingCode {
		return s.done(Result{Outcome: OutcomeNotInConversation, State: st}), nil
	}

	// The directory is written before the challenge is consumed, so a failed
	// write leaves the code valid for a retry.
	email, err := s.challenges.CheckCode(ctx, chatID, text, func(ctx context.Context, email string) error {
		return s.directory.Set(ctx, chatID, email)
	})
	if errors.Is(err, domain.ErrChallengeFailed) {
		slog.Debug("code rejected", "chat_id", chatID, "err", err)
		next, _ := Next(st, EventCodeRejected)
		if err := s.states.Set(ctx, chatID, next); err != nil {
			return Result{}, fmt.Errorf("save state: %w", err)
		}
		return s.done(Result{Outcome: OutcomeCodeRejected, State: next}), nil
	}
	if err != nil {
		return Result{}, err
	}

	next, _ := Next(st, EventCodeConfirmed)
	if err := s.states.Set(ctx, chatID, next); err != nil {
		return Result{}, fmt.Errorf("save state: %w", err)
	}
	slog.Info("email verified", "chat_id", chatID)
	return s.done(Result{Outcome: OutcomeVerified, State: next, Email: email}), nil
}

// Cancel leaves any pending challenge in place; the next Begin supersedes it.
func (s *service) Cancel(ctx context.Context, chatID int64) (Result, error) {
	ctx, span := s.start(ctx, "verification.Cancel", chatID)
	defer span.End()

	unlock := s.locks.Lock(chatID)
	defer unlock()

	st, err := s.State(ctx, chatID)
	if err != nil {
		return Result{}, err
	}
	next, err := Next(st, EventCancel)
	if err != nil {
		return s.done(Result{Outcome: OutcomeNotInConversation, State: st}), nil
	}
	if err := s.states.Set(ctx, chatID, next); err != nil {
		return Result{}, fmt.Errorf("save state: %w", err)
	}
	return s.done(Result{Outcome: OutcomeCancelled, State: next}), nil
}

func (s *service) start(ctx context.Context, name string, chatID int64) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, name)
	span.SetAttributes(attribute.Int64("chat_id", chatID))
	return ctx, span
}

func (s *service) done(r Result) Result {
	s.metrics.IncVerificationOutcome(r.Outcome.String())
	return r
}
