package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cliniq/cliniq/internal/platform/websocket"
)

// createRetries bounds the retry loop around queue-number assignment.
const createRetries = 3

// ErrQueueContention is returned when every registration attempt lost the
// queue-number race. The registration is not applied; the caller may retry.
var ErrQueueContention = errors.New("queue is under heavy contention, try again")

// FieldViolation names one invalid registration field.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every violated field of a rejected registration.
type ValidationError struct {
	Violations []FieldViolation `json:"violations"`
}

func (e *ValidationError) Error() string {
	fields := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		fields[i] = v.Field
	}
	return fmt.Sprintf("invalid registration: %s", strings.Join(fields, ", "))
}

// RegisterInput is a registration command from the reception desk.
type RegisterInput struct {
	Name        string `json:"name"`
	Age         int    `json:"age"`
	IsEmergency bool   `json:"is_emergency"`
	ManualServe bool   `json:"manual_serve"`
}

// RegisterResult reports the outcome of a registration back to the operator.
type RegisterResult struct {
	Patient    *Record `json:"patient"`
	AutoServed bool    `json:"auto_served"`
	Reason     Reason  `json:"reason,omitempty"`
}

type Service struct {
	repo   Repository
	bus    websocket.Publisher
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, bus websocket.Publisher, logger zerolog.Logger) *Service {
	return &Service{repo: repo, bus: bus, logger: logger, now: time.Now}
}

// SetClock overrides the service clock. Used by tests to pin the day boundary.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// dayOf truncates a timestamp to its calendar day, the scope within which
// queue numbers are unique.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func validateRegistration(in RegisterInput) *ValidationError {
	var violations []FieldViolation
	if strings.TrimSpace(in.Name) == "" {
		violations = append(violations, FieldViolation{Field: "name", Message: "name is required"})
	}
	if in.Age < 0 {
		violations = append(violations, FieldViolation{Field: "age", Message: "age must be non-negative"})
	}
	if violations != nil {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// RegisterPatient validates the input, applies the admission policy, persists
// the record with a per-day queue number, and signals connected displays.
// Queue-number races are resolved by retrying the insert; no record with a
// duplicate or missing number is ever persisted.
func (s *Service) RegisterPatient(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if verr := validateRegistration(in); verr != nil {
		return nil, verr
	}

	admission := Admit(in.Age, in.IsEmergency, in.ManualServe)

	now := s.now()
	record := &Record{
		Name:         strings.TrimSpace(in.Name),
		Age:          in.Age,
		IsEmergency:  in.IsEmergency,
		IsServed:     admission.AutoServe,
		QueueDate:    dayOf(now),
		RegisteredAt: now,
	}
	if admission.AutoServe {
		servedAt := now
		record.ServedAt = &servedAt
	}

	var err error
	for attempt := 0; attempt < createRetries; attempt++ {
		err = s.repo.Create(ctx, record)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrQueueNumberConflict) {
			return nil, fmt.Errorf("create patient: %w", err)
		}
		s.logger.Warn().Int("attempt", attempt+1).Msg("queue number conflict, retrying")
	}
	if errors.Is(err, ErrQueueNumberConflict) {
		return nil, ErrQueueContention
	}

	s.broadcastQueueUpdated(ctx)

	return &RegisterResult{
		Patient:    record,
		AutoServed: admission.AutoServe,
		Reason:     admission.Reason,
	}, nil
}

// ServePatient marks the record served and signals connected displays.
// Serving an already-served patient is a safe no-op that still succeeds;
// only the first serve changes observable state.
func (s *Service) ServePatient(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.MarkServed(ctx, id, s.now()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("serve patient: %w", err)
	}

	s.broadcastQueueUpdated(ctx)
	return nil
}

// GetQueue returns the current day's waiting patients in serving order.
func (s *Service) GetQueue(ctx context.Context) ([]*QueueEntry, error) {
	records, err := s.repo.ListUnserved(ctx, dayOf(s.now()))
	if err != nil {
		return nil, fmt.Errorf("list unserved: %w", err)
	}

	ranked := Rank(records)
	entries := make([]*QueueEntry, len(ranked))
	for i, r := range ranked {
		entries[i] = entryFromRecord(r)
	}
	return entries, nil
}

// GetPatient returns a single record by id.
func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.repo.GetByID(ctx, id)
}

// ListPatients returns all records, served included, newest first.
func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Record, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// GetStats returns the current day's dashboard counters.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	return s.repo.DayStats(ctx, dayOf(s.now()))
}

// broadcastQueueUpdated fires the queue-changed signal. Delivery problems are
// logged and swallowed; they never fail the triggering command.
func (s *Service) broadcastQueueUpdated(ctx context.Context) {
	if s.bus == nil {
		return
	}
	event := websocket.Event{Type: websocket.EventQueueUpdated, Timestamp: s.now()}
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Error().Err(err).Msg("queue update broadcast failed")
	}
}
