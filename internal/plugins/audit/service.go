package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chimibusiness/crm/internal/apperror"
)

// perPage is the number of security events returned per page.
const perPage = 50

// Logger records security events. Other plugins depend on this rather than
// the full Service.
type Logger interface {
	// LogEvent records an event. Designed to be fire-and-forget friendly:
	// failures are logged here, so callers may ignore the error.
	LogEvent(ctx context.Context, event *Event) error
}

// Service handles the security event log.
type Service interface {
	Logger

	// ListEvents returns a page of events (1-indexed), optionally filtered by
	// type, and the total count.
	ListEvents(ctx context.Context, eventType string, page int) ([]Event, int, error)

	// GetStats returns aggregate security counters.
	GetStats(ctx context.Context) (*Stats, error)
}

// service implements Service.
type service struct {
	repo EventRepository
}

// NewService creates a new audit service with the given repository.
func NewService(repo EventRepository) Service {
	return &service{repo: repo}
}

// LogEvent validates and persists an event.
func (s *service) LogEvent(ctx context.Context, event *Event) error {
	if event.Type == "" {
		return apperror.NewBadRequest("event type is required")
	}

	if err := s.repo.Log(ctx, event); err != nil {
		slog.Error("failed to log security event",
			slog.String("event_type", event.Type),
			slog.String("ip", event.IPAddress),
			slog.Any("error", err),
		)
		return apperror.NewInternal(fmt.Errorf("logging security event: %w", err))
	}

	return nil
}

// ListEvents returns paginated events. Invalid page numbers are clamped to 1
// and unknown type filters are rejected.
func (s *service) ListEvents(ctx context.Context, eventType string, page int) ([]Event, int, error) {
	if eventType != "" && !IsEventType(eventType) {
		return nil, 0, apperror.NewValidation("unknown event type",
			apperror.FieldError{Field: "type", Message: fmt.Sprintf("%q is not a known event type", eventType)})
	}
	if page < 1 {
		page = 1
	}

	offset := (page - 1) * perPage
	events, total, err := s.repo.List(ctx, eventType, perPage, offset)
	if err != nil {
		return nil, 0, apperror.NewInternal(fmt.Errorf("listing security events: %w", err))
	}

	return events, total, nil
}

// GetStats returns aggregate security counters.
func (s *service) GetStats(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.GetStats(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("getting security stats: %w", err))
	}
	return stats, nil
}

// Discard is a Logger that drops every event.
var Discard Logger = discard{}

type discard struct{}

func (discard) LogEvent(context.Context, *Event) error { return nil }
