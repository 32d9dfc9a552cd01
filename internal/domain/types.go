// Package domain defines the canonical transaction model shared by every
// stage of the import engine: the bank-agnostic row shape, duplicate match
// classifications, committed batch records, and reconciliation findings.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction says which side of the ledger a transaction lands on.
// Amounts are always stored as unsigned magnitudes; the direction carries
// the sign so downstream code never has to reason about sign conventions.
type Direction string

const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
)

// RowStatus marks whether a CSV row survived parsing.
type RowStatus string

const (
	RowStatusOK         RowStatus = "ok"
	RowStatusParseError RowStatus = "parse_error"
)

// MatchType classifies an incoming row against the existing ledger.
type MatchType string

const (
	MatchNew    MatchType = "new"
	MatchLikely MatchType = "likely"
	MatchExact  MatchType = "exact"
)

// RowAction is the resolved per-row decision at commit time.
type RowAction string

const (
	ActionImport RowAction = "import"
	ActionSkip   RowAction = "skip"
)

// BatchStatus tracks the lifecycle of a committed import batch.
// ACTIVE -> UNDONE (operator, time-boxed) and ACTIVE -> LOCKED (tax
// submission filed) are the only transitions; both are one-way.
type BatchStatus string

const (
	BatchActive BatchStatus = "active"
	BatchUndone BatchStatus = "undone"
	BatchLocked BatchStatus = "locked"
)

// Category is the self-assessment category enum. Income categories and
// expense categories share one namespace; the empty string means
// uncategorized.
type Category string

const (
	CategorySales          Category = "sales"
	CategoryOtherIncome    Category = "other-income"
	CategoryOfficeCosts    Category = "office-costs"
	CategoryTravel         Category = "travel"
	CategoryPremises       Category = "premises"
	CategoryStock          Category = "stock"
	CategoryStaff          Category = "staff"
	CategoryLegalFinancial Category = "legal-financial"
	CategoryMarketing      Category = "marketing"
	CategoryInsurance      Category = "insurance"
	CategoryEquipment      Category = "equipment"
	CategoryOther          Category = "other"
)

var validCategories = map[Category]struct{}{
	CategorySales: {}, CategoryOtherIncome: {}, CategoryOfficeCosts: {},
	CategoryTravel: {}, CategoryPremises: {}, CategoryStock: {},
	CategoryStaff: {}, CategoryLegalFinancial: {}, CategoryMarketing: {},
	CategoryInsurance: {}, CategoryEquipment: {}, CategoryOther: {},
}

// ValidateCategory checks if category is valid. The empty string is not a
// valid category; it is the absence of one.
func ValidateCategory(c Category) bool {
	_, ok := validCategories[c]
	return ok
}

// Categories returns the full category set in declaration order.
func Categories() []Category {
	return []Category{
		CategorySales, CategoryOtherIncome, CategoryOfficeCosts,
		CategoryTravel, CategoryPremises, CategoryStock, CategoryStaff,
		CategoryLegalFinancial, CategoryMarketing, CategoryInsurance,
		CategoryEquipment, CategoryOther,
	}
}

// ImportedRow is a canonical transaction produced from one CSV row. It is
// not persisted; rows excluded from commit are simply discarded.
type ImportedRow struct {
	ID          string
	SourceLine  int // 1-based line number in the source file, for reporting
	Date        time.Time
	Description string
	Amount      decimal.Decimal // unsigned magnitude, never negative
	Direction   Direction
	Category    Category // empty until categorized
	Confidence  int      // 0-100, meaningful only when Category is set
	Duplicate   bool
	Status      RowStatus
	ParseErr    string // populated when Status is RowStatusParseError
}

// NewImportedRow creates a validated, successfully-parsed row with a fresh
// identity.
func NewImportedRow(sourceLine int, date time.Time, description string, amount decimal.Decimal, direction Direction) (*ImportedRow, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("row date cannot be zero")
	}
	if description == "" {
		return nil, fmt.Errorf("description cannot be empty")
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("amount must be an unsigned magnitude, got %s", amount)
	}
	if direction != DirectionIncome && direction != DirectionExpense {
		return nil, fmt.Errorf("invalid direction %q", direction)
	}

	return &ImportedRow{
		ID:          uuid.NewString(),
		SourceLine:  sourceLine,
		Date:        date,
		Description: description,
		Amount:      amount,
		Direction:   direction,
		Status:      RowStatusOK,
	}, nil
}

// NewParseErrorRow creates a row marking a parse failure. The raw description
// is kept for reporting; date and amount are left zero.
func NewParseErrorRow(sourceLine int, description, reason string) *ImportedRow {
	return &ImportedRow{
		ID:          uuid.NewString(),
		SourceLine:  sourceLine,
		Description: description,
		Status:      RowStatusParseError,
		ParseErr:    reason,
	}
}

// LedgerRecord is a snapshot of an existing record in the durable ledger,
// as seen by the duplicate matcher and the reconciliation analyzer.
type LedgerRecord struct {
	ID          string
	Business    string
	Date        time.Time
	Description string
	Amount      decimal.Decimal // unsigned magnitude
	Direction   Direction
	Category    Category
	BatchID     string
}

// MatchCandidate wraps an ImportedRow with its classification against the
// existing ledger and the resolved per-row action.
type MatchCandidate struct {
	Row      ImportedRow
	Type     MatchType
	Action   RowAction
	Existing *LedgerRecord // set for LIKELY and EXACT matches
}

// DefaultAction derives the initial action from a match classification.
// EXACT duplicates are skipped; everything else imports. A LIKELY match is
// flagged for review but still imports by default: silently dropping real
// income or expenses is worse than an operator dismissing a false positive.
func DefaultAction(t MatchType) RowAction {
	if t == MatchExact {
		return ActionSkip
	}
	return ActionImport
}

// ImportHistoryItem is the persisted audit record of one committed batch.
type ImportHistoryItem struct {
	ID                  string
	Business            string
	CommittedAt         time.Time
	SourceFile          string
	BankFormat          string
	IncomeCount         int
	ExpenseCount        int
	IncomeTotal         decimal.Decimal
	ExpenseTotal        decimal.Decimal
	Status              BatchStatus
	UndoneAt            *time.Time
	TaxSubmissionUsedAt *time.Time // non-nil permanently locks the batch
}

// NewImportHistoryItem creates an ACTIVE batch record for a commit.
func NewImportHistoryItem(business, sourceFile, bankFormat string, committedAt time.Time) (*ImportHistoryItem, error) {
	if business == "" {
		return nil, fmt.Errorf("business cannot be empty")
	}
	if sourceFile == "" {
		return nil, fmt.Errorf("source file cannot be empty")
	}
	if committedAt.IsZero() {
		return nil, fmt.Errorf("commit time cannot be zero")
	}

	return &ImportHistoryItem{
		ID:           uuid.NewString(),
		Business:     business,
		CommittedAt:  committedAt,
		SourceFile:   sourceFile,
		BankFormat:   bankFormat,
		IncomeTotal:  decimal.Zero,
		ExpenseTotal: decimal.Zero,
		Status:       BatchActive,
	}, nil
}

// IssueCategory names a class of reconciliation finding.
type IssueCategory string

const (
	IssueDuplicates        IssueCategory = "duplicates"
	IssueMissingCategories IssueCategory = "missing-categories"
	IssueDateGaps          IssueCategory = "date-gaps"
)

// Severity orders reconciliation findings for presentation.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var severityRank = map[Severity]int{
	SeverityHigh:   3,
	SeverityMedium: 2,
	SeverityLow:    1,
}

// SeverityRank returns a sortable rank, higher is more severe. Unknown
// severities rank below LOW.
func SeverityRank(s Severity) int {
	return severityRank[s]
}

// ReconciliationIssue is one advisory finding from a post-commit scan. It is
// computed on demand and never persisted.
type ReconciliationIssue struct {
	Category      IssueCategory
	Severity      Severity
	AffectedCount int
	Samples       []string // a few affected descriptions as evidence
	Remediation   string
}
