package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
	"github.com/aussiebroadwan/propinvite/pkg/cryptox"
	"github.com/aussiebroadwan/propinvite/pkg/slogx"
)

// EventSink receives analytics events. Implementations must be safe for
// concurrent use and must not block the request path.
type EventSink interface {
	Record(e domain.Event)
}

type EventSinkFunc func(e domain.Event)

func (f EventSinkFunc) Record(e domain.Event) { f(e) }

// MultiSink fans an event out to every sink.
type MultiSink []EventSink

func (m MultiSink) Record(e domain.Event) {
	for _, s := range m {
		if s != nil {
			s.Record(e)
		}
	}
}

// LogSink writes events at debug level.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Record(e domain.Event) {
	s.Logger.Debug("invite_event",
		slog.String("event", string(e.Name)),
		slog.String("error_kind", string(e.ErrorKind)),
		slog.String("correlation_id", e.CorrelationID),
		slog.String("token_preview", e.TokenPreview),
		slog.Duration("latency", e.Latency),
		slog.Bool("already_linked", e.AlreadyLinked),
	)
}

// newEvent builds an event for the presented raw token. Only the redacted
// preview of the token leaves this function.
func newEvent(ctx context.Context, name domain.EventName, kind domain.ErrorKind, raw string, latency time.Duration, at time.Time) domain.Event {
	correlation := slogx.RequestID(ctx)
	if correlation == "" {
		correlation = uuid.NewString()
	}
	return domain.Event{
		ID:            uuid.NewString(),
		Name:          name,
		ErrorKind:     kind,
		CorrelationID: correlation,
		TokenPreview:  cryptox.Redact(raw),
		Latency:       latency,
		At:            at,
	}
}

func emit(ctx context.Context, sink EventSink, name domain.EventName, kind domain.ErrorKind, raw string, start, now time.Time) {
	emitEvent(sink, newEvent(ctx, name, kind, raw, now.Sub(start), now))
}

func emitEvent(sink EventSink, e domain.Event) {
	if sink == nil {
		return
	}
	sink.Record(e)
}
