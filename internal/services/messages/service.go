package messages

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rzbill/smq/internal/queue"
	logpkg "github.com/rzbill/smq/pkg/log"
)

// Service layers validation and domain errors over a storage engine. It
// constructs messages, enforces the body size limit, checks id
// well-formedness, and maps engine failures to StorageError. It holds no
// retry or backoff logic; every call is a single attempt.
type Service struct {
	store          queue.Storage
	logger         logpkg.Logger
	metrics        *Metrics
	maxMessageSize int
}

// New creates a message service over the given storage engine.
func New(store queue.Storage, maxMessageSize int, logger logpkg.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	return &Service{
		store:          store,
		logger:         logger.WithComponent("messages"),
		metrics:        metrics,
		maxMessageSize: maxMessageSize,
	}
}

// Add validates the body size, constructs a message, and enqueues it. The
// created message (with its assigned id) is returned so the caller can
// reference it for delete/retry.
func (s *Service) Add(ctx context.Context, body string) (queue.Message, error) {
	if len(body) > s.maxMessageSize {
		return queue.Message{}, ErrBodyTooLarge
	}
	msg := queue.NewMessage(body)
	if err := s.store.Add(ctx, msg); err != nil {
		return queue.Message{}, &StorageError{Err: err}
	}
	if s.metrics != nil {
		s.metrics.Added.Inc()
	}
	s.logger.Debug("message added", logpkg.Str("id", msg.ID.String()), logpkg.Int("size", len(body)))
	return msg, nil
}

// Get leases up to count messages from the ready head.
func (s *Service) Get(ctx context.Context, count int) ([]queue.Message, error) {
	msgs, err := s.store.Lease(ctx, count)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	if s.metrics != nil {
		s.metrics.Leased.Add(float64(len(msgs)))
	}
	s.logger.Debug("messages leased", logpkg.Int("requested", count), logpkg.Int("leased", len(msgs)))
	return msgs, nil
}

// Peek previews up to count ready messages without leasing them. A
// non-empty filter is compiled as a CEL expression and applied to the
// previewed window.
func (s *Service) Peek(ctx context.Context, count int, filter string) ([]queue.Message, error) {
	f, err := newPeekFilter(filter)
	if err != nil {
		return nil, &InvalidFilterError{Expr: filter, Err: err}
	}
	msgs, err := s.store.Peek(ctx, count)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	if !f.enabled {
		return msgs, nil
	}
	now := time.Now().UnixMilli()
	out := msgs[:0]
	for _, m := range msgs {
		if f.Eval(m, now) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Delete acknowledges the given ids. The whole list is validated before
// any id reaches storage.
func (s *Service) Delete(ctx context.Context, ids []string) error {
	parsed, err := parseIDs(ids)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, parsed); err != nil {
		return &StorageError{Err: err}
	}
	if s.metrics != nil {
		s.metrics.Deleted.Add(float64(len(parsed)))
	}
	s.logger.Debug("messages deleted", logpkg.Int("count", len(parsed)))
	return nil
}

// Retry releases the given ids back to the ready queue. The whole list is
// validated before any id reaches storage.
func (s *Service) Retry(ctx context.Context, ids []string) error {
	parsed, err := parseIDs(ids)
	if err != nil {
		return err
	}
	if err := s.store.Retry(ctx, parsed); err != nil {
		return &StorageError{Err: err}
	}
	if s.metrics != nil {
		s.metrics.Retried.Add(float64(len(parsed)))
	}
	s.logger.Debug("messages retried", logpkg.Int("count", len(parsed)))
	return nil
}

// Purge clears the whole queue.
func (s *Service) Purge(ctx context.Context) error {
	if err := s.store.Purge(ctx); err != nil {
		return &StorageError{Err: err}
	}
	if s.metrics != nil {
		s.metrics.Purges.Inc()
	}
	s.logger.Info("queue purged")
	return nil
}

// Stats reports the current partition sizes and refreshes the gauges.
func (s *Service) Stats(ctx context.Context) (queue.Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return queue.Stats{}, &StorageError{Err: err}
	}
	if s.metrics != nil {
		s.metrics.Ready.Set(float64(st.Ready))
		s.metrics.InFlight.Set(float64(st.InFlight))
	}
	return st, nil
}

// parseIDs rejects an empty list and fails fast on the first malformed id.
func parseIDs(ids []string) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, ErrNoIDs
	}
	parsed := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, &InvalidIDError{ID: raw}
		}
		parsed = append(parsed, id)
	}
	return parsed, nil
}
