// Package mapping holds the operator- or profile-supplied mapping from source
// CSV columns onto the canonical transaction shape. A mapping is never
// invalid, only incomplete; the wizard consults IsComplete before letting an
// import proceed.
package mapping

import "errors"

// ErrIncomplete is returned by consumers handed a mapping that does not yet
// satisfy IsComplete.
var ErrIncomplete = errors.New("column mapping is incomplete")

// ColumnMapping maps source column names to canonical fields. Amounts come
// either from a single signed column or from separate income and expense
// columns; setting one configuration clears the other.
type ColumnMapping struct {
	dateColumn        string
	descriptionColumn string
	amountColumn      string
	incomeColumn      string
	expenseColumn     string
	dateFormat        string // Go reference layout, e.g. "02/01/2006"
}

// New returns an empty mapping.
func New() *ColumnMapping {
	return &ColumnMapping{}
}

// SetDateColumn sets the source column holding the transaction date.
func (m *ColumnMapping) SetDateColumn(col string) { m.dateColumn = col }

// SetDescriptionColumn sets the source column holding the description.
func (m *ColumnMapping) SetDescriptionColumn(col string) { m.descriptionColumn = col }

// SetAmountColumn configures a single signed amount column, clearing any
// separate income/expense configuration.
func (m *ColumnMapping) SetAmountColumn(col string) {
	m.amountColumn = col
	if col != "" {
		m.incomeColumn = ""
		m.expenseColumn = ""
	}
}

// SetSeparateAmountColumns configures distinct income and expense columns,
// clearing any single-amount configuration.
func (m *ColumnMapping) SetSeparateAmountColumns(incomeCol, expenseCol string) {
	m.incomeColumn = incomeCol
	m.expenseColumn = expenseCol
	if incomeCol != "" || expenseCol != "" {
		m.amountColumn = ""
	}
}

// SetDateFormat sets the Go reference layout used to parse dates.
func (m *ColumnMapping) SetDateFormat(layout string) { m.dateFormat = layout }

// DateColumn returns the configured date column.
func (m *ColumnMapping) DateColumn() string { return m.dateColumn }

// DescriptionColumn returns the configured description column.
func (m *ColumnMapping) DescriptionColumn() string { return m.descriptionColumn }

// AmountColumn returns the single signed amount column, if configured.
func (m *ColumnMapping) AmountColumn() string { return m.amountColumn }

// IncomeColumn returns the income column, if configured.
func (m *ColumnMapping) IncomeColumn() string { return m.incomeColumn }

// ExpenseColumn returns the expense column, if configured.
func (m *ColumnMapping) ExpenseColumn() string { return m.expenseColumn }

// DateFormat returns the configured date layout.
func (m *ColumnMapping) DateFormat() string { return m.dateFormat }

// HasSeparateAmountColumns reports whether income and expense live in
// distinct columns rather than one signed column. This drives the parsing
// branch.
func (m *ColumnMapping) HasSeparateAmountColumns() bool {
	return m.incomeColumn != "" && m.expenseColumn != ""
}

// IsComplete reports whether the mapping can drive a parse: date,
// description, a valid amount configuration, and a date format must all be
// set. It is the sole gate the wizard consults before leaving the mapping
// step.
func (m *ColumnMapping) IsComplete() bool {
	if m.dateColumn == "" || m.descriptionColumn == "" || m.dateFormat == "" {
		return false
	}
	return m.amountColumn != "" || m.HasSeparateAmountColumns()
}
