// Package history exposes the import audit trail and enforces the undo
// policy: an operator can reverse a batch for a limited window, and never
// after its figures have gone into a filed tax return.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/quidbooks/quidbooks/internal/domain"
)

// Store is the persistence the service drives. The store enforces state
// transitions; the service enforces policy.
type Store interface {
	ListBatches(ctx context.Context, business string) ([]domain.ImportHistoryItem, error)
	Batch(ctx context.Context, business, batchID string) (*domain.ImportHistoryItem, error)
	UndoBatch(ctx context.Context, business, batchID string, at time.Time) error
	MarkTaxSubmission(ctx context.Context, business, batchID string, at time.Time) error
}

// UndoDeniedError explains why a batch cannot be undone. The reason is
// operator-facing.
type UndoDeniedError struct {
	BatchID string
	Reason  string
}

func (e *UndoDeniedError) Error() string {
	return fmt.Sprintf("cannot undo batch %s: %s", e.BatchID, e.Reason)
}

// Service applies the undo policy over a store.
type Service struct {
	store      Store
	undoWindow time.Duration
	now        func() time.Time
}

// NewService creates a history service. undoWindowDays bounds how long after
// commit a batch stays reversible.
func NewService(store Store, undoWindowDays int, now func() time.Time) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if undoWindowDays < 1 {
		return nil, fmt.Errorf("undo window must be at least 1 day, got %d", undoWindowDays)
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:      store,
		undoWindow: time.Duration(undoWindowDays) * 24 * time.Hour,
		now:        now,
	}, nil
}

// List returns a business's import history, newest first.
func (s *Service) List(ctx context.Context, business string) ([]domain.ImportHistoryItem, error) {
	return s.store.ListBatches(ctx, business)
}

// CanUndo reports whether a batch is currently reversible, with the
// operator-facing reason when it is not. The tax lock outranks the window:
// a locked batch stays locked even inside the window.
func (s *Service) CanUndo(item *domain.ImportHistoryItem) (bool, string) {
	if item.TaxSubmissionUsedAt != nil || item.Status == domain.BatchLocked {
		return false, "its figures were used in a filed tax submission"
	}
	switch item.Status {
	case domain.BatchUndone:
		return false, "it has already been undone"
	case domain.BatchActive:
	default:
		return false, fmt.Sprintf("it is in state %q", item.Status)
	}
	if s.now().Sub(item.CommittedAt) > s.undoWindow {
		return false, fmt.Sprintf("it is outside the %d-day undo window", int(s.undoWindow.Hours()/24))
	}
	return true, ""
}

// Undo reverses a batch if the policy allows it. Denials come back as
// *UndoDeniedError.
func (s *Service) Undo(ctx context.Context, business, batchID string) error {
	item, err := s.store.Batch(ctx, business, batchID)
	if err != nil {
		return err
	}
	if ok, reason := s.CanUndo(item); !ok {
		return &UndoDeniedError{BatchID: batchID, Reason: reason}
	}
	return s.store.UndoBatch(ctx, business, batchID, s.now())
}

// MarkTaxSubmission permanently locks a batch after its figures go into a
// filed return. There is no unlock.
func (s *Service) MarkTaxSubmission(ctx context.Context, business, batchID string) error {
	return s.store.MarkTaxSubmission(ctx, business, batchID, s.now())
}

// Undoable filters a history listing down to the batches the operator can
// still reverse right now.
func (s *Service) Undoable(items []domain.ImportHistoryItem) []domain.ImportHistoryItem {
	var out []domain.ImportHistoryItem
	for i := range items {
		if ok, _ := s.CanUndo(&items[i]); ok {
			out = append(out, items[i])
		}
	}
	return out
}
