package events

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Type names a session lifecycle event.
type Type string

const (
	UserLogin       Type = "user.login"
	UserLogout      Type = "user.logout"
	UserRegistered  Type = "user.registered"
	PasswordChanged Type = "password.changed"
	TokenRefreshed  Type = "token.refreshed"
	SessionRestored Type = "session.restored"
	SessionExpired  Type = "session.expired"
)

// Event is published after a session operation completes. It never carries tokens.
type Event struct {
	Type   Type      `json:"type"`
	UserID int64     `json:"userId,omitempty"`
	Email  string    `json:"email,omitempty"`
	Reason string    `json:"reason,omitempty"`
	Time   time.Time `json:"time"`
}

// Publisher delivers events. Publishing is best effort: callers log failures and move on.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// LogPublisher writes events to a zerolog logger.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	ev := p.logger.Info().Str("event", string(e.Type)).Time("at", e.Time)
	if e.UserID != 0 {
		ev = ev.Int64("user_id", e.UserID)
	}
	if e.Email != "" {
		ev = ev.Str("email", e.Email)
	}
	if e.Reason != "" {
		ev = ev.Str("reason", e.Reason)
	}
	ev.Msg("session event")
	return nil
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
