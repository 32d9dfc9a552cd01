package wizard

import (
	"strings"

	"github.com/quidbooks/quidbooks/internal/domain"
)

// Filter narrows the review list to one slice of the statement.
type Filter string

const (
	FilterAll           Filter = "ALL"
	FilterIncomeOnly    Filter = "INCOME_ONLY"
	FilterExpensesOnly  Filter = "EXPENSES_ONLY"
	FilterUncategorized Filter = "UNCATEGORIZED"
	FilterDuplicates    Filter = "DUPLICATES"
)

func validFilter(f Filter) bool {
	switch f {
	case FilterAll, FilterIncomeOnly, FilterExpensesOnly, FilterUncategorized, FilterDuplicates:
		return true
	}
	return false
}

// ApplyFilter returns the candidates visible under a filter and an optional
// case-insensitive description search. Both narrow; neither mutates.
func ApplyFilter(candidates []domain.MatchCandidate, f Filter, search string) []domain.MatchCandidate {
	term := strings.ToLower(strings.TrimSpace(search))

	var out []domain.MatchCandidate
	for _, c := range candidates {
		if !filterAdmits(c, f) {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(c.Row.Description), term) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func filterAdmits(c domain.MatchCandidate, f Filter) bool {
	switch f {
	case FilterIncomeOnly:
		return c.Row.Direction == domain.DirectionIncome
	case FilterExpensesOnly:
		return c.Row.Direction == domain.DirectionExpense
	case FilterUncategorized:
		return c.Row.Status == domain.RowStatusOK && c.Row.Category == ""
	case FilterDuplicates:
		return c.Type != domain.MatchNew
	default:
		return true
	}
}
