package wizard

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quidbooks/quidbooks/internal/bankformat"
	"github.com/quidbooks/quidbooks/internal/domain"
	"github.com/quidbooks/quidbooks/internal/review"
)

var barclaysHeaders = []string{"Date", "Type", "Description", "Money out", "Money in", "Balance"}

func newWizard(t *testing.T) *Wizard {
	t.Helper()
	reg, err := bankformat.LoadEmbedded()
	if err != nil {
		t.Fatal(err)
	}
	w, err := New(reg)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func testCandidate(t *testing.T, desc string, dir domain.Direction, mt domain.MatchType, category domain.Category) domain.MatchCandidate {
	t.Helper()
	r, err := domain.NewImportedRow(2, time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC),
		desc, decimal.RequireFromString("10.00"), dir)
	if err != nil {
		t.Fatal(err)
	}
	r.Category = category
	r.Duplicate = mt != domain.MatchNew
	return domain.MatchCandidate{Row: *r, Type: mt, Action: domain.DefaultAction(mt)}
}

func testSession(t *testing.T, candidates []domain.MatchCandidate) *review.Session {
	t.Helper()
	s, err := review.NewSession("acme", "statement.csv", "BARCLAYS", candidates)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSelectFileDetectsFormat(t *testing.T) {
	w := newWizard(t)

	id := w.SelectFile("statement.csv", barclaysHeaders)
	if id != "BARCLAYS" {
		t.Fatalf("detected format = %q, want BARCLAYS", id)
	}
	if !w.Mapping().IsComplete() {
		t.Error("recognized format should auto-populate a complete mapping")
	}
	if !w.Mapping().HasSeparateAmountColumns() {
		t.Error("Barclays mapping should use separate amount columns")
	}
}

func TestSelectFileUnknownFormat(t *testing.T) {
	w := newWizard(t)

	id := w.SelectFile("export.csv", []string{"Datum", "Betrag", "Beschreibung"})
	if id != bankformat.FormatUnknown {
		t.Fatalf("detected format = %q, want UNKNOWN", id)
	}
	if w.Mapping().IsComplete() {
		t.Error("unknown format must leave the mapping for the operator")
	}

	// The wizard can still advance once the mapping is filled in by hand.
	if !w.GoNext() {
		t.Fatal("should advance to the mapping step")
	}
	if w.CanGoNext() {
		t.Error("step two must gate on a complete mapping")
	}
	m := w.Mapping()
	m.SetDateColumn("Datum")
	m.SetDescriptionColumn("Beschreibung")
	m.SetAmountColumn("Betrag")
	m.SetDateFormat("02.01.2006")
	if !w.CanGoNext() {
		t.Error("complete manual mapping should unlock step three")
	}
}

func TestStepGating(t *testing.T) {
	w := newWizard(t)

	if w.Step() != StepSelectFile {
		t.Fatalf("initial step = %v", w.Step())
	}
	if w.GoNext() {
		t.Error("cannot advance without a file")
	}

	w.SelectFile("statement.csv", barclaysHeaders)
	for _, want := range []Step{StepMapColumns, StepReview, StepConfirm} {
		if !w.GoNext() {
			t.Fatalf("failed to advance to %v", want)
		}
		if w.Step() != want {
			t.Fatalf("step = %v, want %v", w.Step(), want)
		}
	}
	if w.GoNext() {
		t.Error("advanced past the final step")
	}
}

func TestGoPreviousKeepsState(t *testing.T) {
	w := newWizard(t)
	w.SelectFile("statement.csv", barclaysHeaders)
	w.GoNext()
	w.GoNext()

	if !w.GoPrevious() {
		t.Fatal("should step back")
	}
	if w.Step() != StepMapColumns {
		t.Fatalf("step = %v", w.Step())
	}
	if w.FileName() != "statement.csv" || !w.Mapping().IsComplete() {
		t.Error("stepping back lost accumulated state")
	}

	w.GoPrevious()
	if w.GoPrevious() {
		t.Error("stepped back past the first step")
	}
}

func TestSelectFileDiscardsPreviousState(t *testing.T) {
	w := newWizard(t)
	w.SelectFile("first.csv", barclaysHeaders)
	w.SetSession(testSession(t, nil))
	w.SetSearch("tesco")

	id := w.SelectFile("second.csv", []string{"Datum", "Betrag", "Beschreibung"})
	if id != bankformat.FormatUnknown {
		t.Fatalf("detected format = %q", id)
	}
	if w.Session() != nil {
		t.Error("stale review session survived a new file selection")
	}
	if w.Search() != "" || w.Filter() != FilterAll {
		t.Error("stale filter state survived a new file selection")
	}
	if w.Mapping().IsComplete() {
		t.Error("stale mapping survived a new file selection")
	}
}

func TestReset(t *testing.T) {
	w := newWizard(t)
	w.SelectFile("statement.csv", barclaysHeaders)
	w.GoNext()
	w.GoNext()

	w.Reset()
	if w.Step() != StepSelectFile || w.FileName() != "" || len(w.Headers()) != 0 {
		t.Error("reset left state behind")
	}
}

func TestSetFilterClearsSelection(t *testing.T) {
	w := newWizard(t)
	w.SelectFile("statement.csv", barclaysHeaders)

	c := testCandidate(t, "TESCO STORES", domain.DirectionExpense, domain.MatchNew, "")
	session := testSession(t, []domain.MatchCandidate{c})
	w.SetSession(session)
	session.Select(c.Row.ID)

	if err := w.SetFilter(FilterIncomeOnly); err != nil {
		t.Fatal(err)
	}
	if session.SelectionCount() != 0 {
		t.Error("changing filter must clear the selection")
	}

	// Re-applying the same filter keeps the selection.
	session.Select(c.Row.ID)
	if err := w.SetFilter(FilterIncomeOnly); err != nil {
		t.Fatal(err)
	}
	if session.SelectionCount() != 1 {
		t.Error("same filter should not clear the selection")
	}

	if err := w.SetFilter("RANDOM"); err == nil {
		t.Error("invalid filter accepted")
	}
}

func TestSetSearchClearsSelection(t *testing.T) {
	w := newWizard(t)
	w.SelectFile("statement.csv", barclaysHeaders)

	c := testCandidate(t, "TESCO STORES", domain.DirectionExpense, domain.MatchNew, "")
	session := testSession(t, []domain.MatchCandidate{c})
	w.SetSession(session)
	session.Select(c.Row.ID)

	w.SetSearch("stripe")
	if session.SelectionCount() != 0 {
		t.Error("changing the search term must clear the selection")
	}
	if w.Search() != "stripe" {
		t.Errorf("search = %q, want %q", w.Search(), "stripe")
	}

	// Re-setting the same term keeps the selection.
	session.Select(c.Row.ID)
	w.SetSearch("stripe")
	if session.SelectionCount() != 1 {
		t.Error("same search term should not clear the selection")
	}
}

func TestApplyFilter(t *testing.T) {
	candidates := []domain.MatchCandidate{
		testCandidate(t, "CLIENT INVOICE", domain.DirectionIncome, domain.MatchNew, domain.CategorySales),
		testCandidate(t, "TESCO STORES", domain.DirectionExpense, domain.MatchNew, ""),
		testCandidate(t, "STRIPE PAYOUT", domain.DirectionIncome, domain.MatchExact, domain.CategorySales),
		testCandidate(t, "SCREWFIX DIRECT", domain.DirectionExpense, domain.MatchLikely, domain.CategoryStock),
	}

	tests := []struct {
		name   string
		filter Filter
		search string
		want   int
	}{
		{"all", FilterAll, "", 4},
		{"income", FilterIncomeOnly, "", 2},
		{"expenses", FilterExpensesOnly, "", 2},
		{"uncategorized", FilterUncategorized, "", 1},
		{"duplicates", FilterDuplicates, "", 2},
		{"search narrows", FilterAll, "tesco", 1},
		{"search is case-insensitive", FilterIncomeOnly, "stripe", 1},
		{"search misses", FilterAll, "zzz", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyFilter(candidates, tt.filter, tt.search)
			if len(got) != tt.want {
				t.Errorf("ApplyFilter() returned %d rows, want %d", len(got), tt.want)
			}
		})
	}
}

func TestImportInFlightGuard(t *testing.T) {
	w := newWizard(t)

	if err := w.BeginImport(); err != nil {
		t.Fatal(err)
	}
	if err := w.BeginImport(); err == nil {
		t.Error("second concurrent import accepted")
	}
	if !w.Importing() {
		t.Error("Importing() = false during an import")
	}

	w.SetProgress(150)
	if w.Progress() != 100 {
		t.Errorf("progress = %d, want clamp to 100", w.Progress())
	}

	w.EndImport()
	if w.Importing() || w.Progress() != 0 {
		t.Error("EndImport should clear in-flight state")
	}
	if err := w.BeginImport(); err != nil {
		t.Errorf("import after EndImport failed: %v", err)
	}
}
