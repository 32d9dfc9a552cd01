// Package review holds the working state of one import between preview and
// commit: the classified candidates, per-row decisions, bulk edits over a
// selection, and the atomic handoff to the durable ledger.
package review

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quidbooks/quidbooks/internal/domain"
)

// Ledger is the durable store a session commits into. A commit either
// persists the whole batch or none of it.
type Ledger interface {
	CommitBatch(ctx context.Context, item *domain.ImportHistoryItem, records []domain.LedgerRecord) error
}

// CommitError wraps a storage failure at commit time. The session is left
// untouched so the operator can retry.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit failed, no rows were imported: %v", e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// Summary aggregates the rows that will import when the session commits.
type Summary struct {
	IncomeCount  int
	ExpenseCount int
	IncomeTotal  decimal.Decimal
	ExpenseTotal decimal.Decimal
	ByCategory   map[domain.Category]int
	Skipped      int
}

// Session is the mutable review state for one statement import.
type Session struct {
	business   string
	sourceFile string
	bankFormat string
	candidates []domain.MatchCandidate
	selected   map[string]struct{}
}

// NewSession starts a review over classified candidates.
func NewSession(business, sourceFile, bankFormat string, candidates []domain.MatchCandidate) (*Session, error) {
	if business == "" {
		return nil, fmt.Errorf("business cannot be empty")
	}
	if sourceFile == "" {
		return nil, fmt.Errorf("source file cannot be empty")
	}

	s := &Session{
		business:   business,
		sourceFile: sourceFile,
		bankFormat: bankFormat,
		candidates: make([]domain.MatchCandidate, len(candidates)),
		selected:   make(map[string]struct{}),
	}
	copy(s.candidates, candidates)
	return s, nil
}

// Candidates returns the candidates in source order. The slice is a copy;
// mutate rows through the session methods.
func (s *Session) Candidates() []domain.MatchCandidate {
	out := make([]domain.MatchCandidate, len(s.candidates))
	copy(out, s.candidates)
	return out
}

func (s *Session) find(rowID string) *domain.MatchCandidate {
	for i := range s.candidates {
		if s.candidates[i].Row.ID == rowID {
			return &s.candidates[i]
		}
	}
	return nil
}

// Select adds a row to the working selection. Unknown IDs are ignored.
func (s *Session) Select(rowID string) {
	if s.find(rowID) != nil {
		s.selected[rowID] = struct{}{}
	}
}

// Deselect removes a row from the working selection.
func (s *Session) Deselect(rowID string) {
	delete(s.selected, rowID)
}

// Toggle flips a row's selection state.
func (s *Session) Toggle(rowID string) {
	if _, ok := s.selected[rowID]; ok {
		s.Deselect(rowID)
	} else {
		s.Select(rowID)
	}
}

// SelectAll replaces the selection with the given rows, typically the
// visible rows under the current filter.
func (s *Session) SelectAll(rowIDs []string) {
	s.selected = make(map[string]struct{}, len(rowIDs))
	for _, id := range rowIDs {
		s.Select(id)
	}
}

// ClearSelection empties the working selection.
func (s *Session) ClearSelection() {
	s.selected = make(map[string]struct{})
}

// Selected reports whether a row is in the working selection.
func (s *Session) Selected(rowID string) bool {
	_, ok := s.selected[rowID]
	return ok
}

// SelectionCount returns the size of the working selection.
func (s *Session) SelectionCount() int {
	return len(s.selected)
}

// SetAction sets the import/skip decision for one row.
func (s *Session) SetAction(rowID string, action domain.RowAction) error {
	if action != domain.ActionImport && action != domain.ActionSkip {
		return fmt.Errorf("invalid row action %q", action)
	}
	c := s.find(rowID)
	if c == nil {
		return fmt.Errorf("unknown row %q", rowID)
	}
	c.Action = action
	return nil
}

// SetCategory assigns a category to one row. Operator assignments carry
// full confidence.
func (s *Session) SetCategory(rowID string, category domain.Category) error {
	if !domain.ValidateCategory(category) {
		return fmt.Errorf("invalid category %q", category)
	}
	c := s.find(rowID)
	if c == nil {
		return fmt.Errorf("unknown row %q", rowID)
	}
	c.Row.Category = category
	c.Row.Confidence = 100
	return nil
}

// ApplyCategoryToSelection assigns a category to every selected row, then
// clears the selection.
func (s *Session) ApplyCategoryToSelection(category domain.Category) error {
	if !domain.ValidateCategory(category) {
		return fmt.Errorf("invalid category %q", category)
	}
	for id := range s.selected {
		if c := s.find(id); c != nil {
			c.Row.Category = category
			c.Row.Confidence = 100
		}
	}
	s.ClearSelection()
	return nil
}

// SkipAllDuplicates marks every EXACT duplicate as skipped. LIKELY matches
// are left for the operator; they are flagged, not condemned.
func (s *Session) SkipAllDuplicates() int {
	n := 0
	for i := range s.candidates {
		if s.candidates[i].Type == domain.MatchExact && s.candidates[i].Action != domain.ActionSkip {
			s.candidates[i].Action = domain.ActionSkip
			n++
		}
	}
	return n
}

// RowsToImport returns the rows that will persist on commit: action IMPORT
// and a clean parse.
func (s *Session) RowsToImport() []domain.ImportedRow {
	var rows []domain.ImportedRow
	for i := range s.candidates {
		c := &s.candidates[i]
		if c.Action == domain.ActionImport && c.Row.Status == domain.RowStatusOK {
			rows = append(rows, c.Row)
		}
	}
	return rows
}

// Summarize totals the rows that will import, split by direction and
// category, plus the skip count.
func (s *Session) Summarize() Summary {
	sum := Summary{
		IncomeTotal:  decimal.Zero,
		ExpenseTotal: decimal.Zero,
		ByCategory:   make(map[domain.Category]int),
	}
	for i := range s.candidates {
		c := &s.candidates[i]
		if c.Action == domain.ActionSkip {
			sum.Skipped++
			continue
		}
		if c.Row.Status != domain.RowStatusOK {
			continue
		}
		switch c.Row.Direction {
		case domain.DirectionIncome:
			sum.IncomeCount++
			sum.IncomeTotal = sum.IncomeTotal.Add(c.Row.Amount)
		case domain.DirectionExpense:
			sum.ExpenseCount++
			sum.ExpenseTotal = sum.ExpenseTotal.Add(c.Row.Amount)
		}
		if c.Row.Category != "" {
			sum.ByCategory[c.Row.Category]++
		}
	}
	return sum
}

// Commit persists the import decision as one batch. The history item and
// the ledger records go to the store in a single call; on failure the
// session state is unchanged and a CommitError is returned. Committing an
// empty import set is an error, not an empty batch.
func (s *Session) Commit(ctx context.Context, ledger Ledger, now time.Time) (*domain.ImportHistoryItem, error) {
	rows := s.RowsToImport()
	if len(rows) == 0 {
		return nil, fmt.Errorf("nothing to import: every row is skipped or failed to parse")
	}

	item, err := domain.NewImportHistoryItem(s.business, s.sourceFile, s.bankFormat, now)
	if err != nil {
		return nil, err
	}

	records := make([]domain.LedgerRecord, 0, len(rows))
	for _, row := range rows {
		switch row.Direction {
		case domain.DirectionIncome:
			item.IncomeCount++
			item.IncomeTotal = item.IncomeTotal.Add(row.Amount)
		case domain.DirectionExpense:
			item.ExpenseCount++
			item.ExpenseTotal = item.ExpenseTotal.Add(row.Amount)
		}
		records = append(records, domain.LedgerRecord{
			ID:          row.ID,
			Business:    s.business,
			Date:        row.Date,
			Description: row.Description,
			Amount:      row.Amount,
			Direction:   row.Direction,
			Category:    row.Category,
			BatchID:     item.ID,
		})
	}

	if err := ledger.CommitBatch(ctx, item, records); err != nil {
		return nil, &CommitError{Err: err}
	}
	return item, nil
}
