// Package csvparse applies a completed column mapping to raw CSV rows,
// producing canonical transaction rows. Parsing is row-independent: a bad
// row is captured as a PARSE_ERROR record and never aborts the file.
package csvparse

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/quidbooks/quidbooks/internal/domain"
	"github.com/quidbooks/quidbooks/internal/mapping"
	"github.com/shopspring/decimal"
)

// Summary reports row counts for the preview step.
type Summary struct {
	Total   int
	Parsed  int
	Errored int
}

// columnIndexes resolves mapped column names to positions in the header row.
type columnIndexes struct {
	date        int
	description int
	amount      int // -1 when using separate columns
	income      int // -1 when using a single amount column
	expense     int // -1 when using a single amount column
}

// Parse converts raw CSV data rows into canonical transaction rows using the
// given mapping. The header row is used only to resolve column positions;
// unknown trailing columns are ignored. Returns mapping.ErrIncomplete when
// the mapping cannot drive a parse, and an error when a mapped column is
// absent from the headers. Row-level failures are returned as rows with
// status PARSE_ERROR, counted in the summary.
func Parse(headers []string, records [][]string, m *mapping.ColumnMapping) ([]domain.ImportedRow, Summary, error) {
	cols, err := resolveColumns(headers, m)
	if err != nil {
		return nil, Summary{}, err
	}

	rows := make([]domain.ImportedRow, len(records))
	for i, rec := range records {
		rows[i] = parseRecord(i+2, rec, cols, m)
	}
	return rows, summarize(rows), nil
}

// ParseConcurrent behaves exactly like Parse but fans rows across a bounded
// worker pool. Results are reassembled in input order, so output is
// indistinguishable from the serial path.
func ParseConcurrent(headers []string, records [][]string, m *mapping.ColumnMapping, workers int) ([]domain.ImportedRow, Summary, error) {
	cols, err := resolveColumns(headers, m)
	if err != nil {
		return nil, Summary{}, err
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(records) {
		workers = len(records)
	}

	rows := make([]domain.ImportedRow, len(records))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				rows[i] = parseRecord(i+2, records[i], cols, m)
			}
		}()
	}
	for i := range records {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return rows, summarize(rows), nil
}

func summarize(rows []domain.ImportedRow) Summary {
	s := Summary{Total: len(rows)}
	for i := range rows {
		if rows[i].Status == domain.RowStatusOK {
			s.Parsed++
		} else {
			s.Errored++
		}
	}
	return s
}

func resolveColumns(headers []string, m *mapping.ColumnMapping) (columnIndexes, error) {
	if !m.IsComplete() {
		return columnIndexes{}, mapping.ErrIncomplete
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[normalize(h)] = i
	}

	find := func(name string) (int, error) {
		i, ok := index[normalize(name)]
		if !ok {
			return 0, fmt.Errorf("mapped column %q not found in headers", name)
		}
		return i, nil
	}

	cols := columnIndexes{amount: -1, income: -1, expense: -1}
	var err error
	if cols.date, err = find(m.DateColumn()); err != nil {
		return columnIndexes{}, err
	}
	if cols.description, err = find(m.DescriptionColumn()); err != nil {
		return columnIndexes{}, err
	}
	if m.HasSeparateAmountColumns() {
		if cols.income, err = find(m.IncomeColumn()); err != nil {
			return columnIndexes{}, err
		}
		if cols.expense, err = find(m.ExpenseColumn()); err != nil {
			return columnIndexes{}, err
		}
	} else {
		if cols.amount, err = find(m.AmountColumn()); err != nil {
			return columnIndexes{}, err
		}
	}
	return cols, nil
}

func parseRecord(line int, rec []string, cols columnIndexes, m *mapping.ColumnMapping) domain.ImportedRow {
	description := cell(rec, cols.description)

	dateRaw := cell(rec, cols.date)
	if dateRaw == "" {
		return *domain.NewParseErrorRow(line, description, "date cell is empty")
	}
	date, err := time.Parse(m.DateFormat(), dateRaw)
	if err != nil {
		return *domain.NewParseErrorRow(line, description, fmt.Sprintf("invalid date %q for format %q", dateRaw, m.DateFormat()))
	}

	amount, direction, err := resolveAmount(rec, cols, m)
	if err != nil {
		return *domain.NewParseErrorRow(line, description, err.Error())
	}

	row, err := domain.NewImportedRow(line, date, description, amount, direction)
	if err != nil {
		return *domain.NewParseErrorRow(line, description, err.Error())
	}
	return *row
}

// resolveAmount reads the amount and direction under either mapping branch.
// Amounts are returned as unsigned magnitudes; the sign convention (negative
// signed amount, or presence of an expense cell) becomes the direction.
func resolveAmount(rec []string, cols columnIndexes, m *mapping.ColumnMapping) (decimal.Decimal, domain.Direction, error) {
	if m.HasSeparateAmountColumns() {
		// A non-empty expense cell forces EXPENSE even when the income cell
		// is also populated; banks that emit both never mean income.
		if raw := cell(rec, cols.expense); raw != "" {
			amt, err := parseAmount(raw)
			if err != nil {
				return decimal.Zero, "", err
			}
			return amt.Abs(), domain.DirectionExpense, nil
		}
		if raw := cell(rec, cols.income); raw != "" {
			amt, err := parseAmount(raw)
			if err != nil {
				return decimal.Zero, "", err
			}
			return amt.Abs(), domain.DirectionIncome, nil
		}
		return decimal.Zero, "", fmt.Errorf("neither income nor expense cell is populated")
	}

	raw := cell(rec, cols.amount)
	if raw == "" {
		return decimal.Zero, "", fmt.Errorf("amount cell is empty")
	}
	amt, err := parseAmount(raw)
	if err != nil {
		return decimal.Zero, "", err
	}
	if amt.IsNegative() {
		return amt.Abs(), domain.DirectionExpense, nil
	}
	return amt, domain.DirectionIncome, nil
}

// parseAmount handles the amount formats seen in UK bank exports: currency
// symbols, thousands separators, and parenthesized negatives.
func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.ReplaceAll(s, "£", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	amt, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	if negative {
		amt = amt.Neg()
	}
	return amt, nil
}

// cell returns the trimmed value at index i, or "" when the row is short.
// Short rows are tolerated the same way unknown trailing columns are.
func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func normalize(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
