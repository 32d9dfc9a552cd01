package match

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quidbooks/quidbooks/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func ledgerRecord(id string, date time.Time, desc, amount string, dir domain.Direction) domain.LedgerRecord {
	return domain.LedgerRecord{
		ID:          id,
		Business:    "acme",
		Date:        date,
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		Direction:   dir,
		BatchID:     "batch-1",
	}
}

func importedRow(t *testing.T, date time.Time, desc, amount string, dir domain.Direction) domain.ImportedRow {
	t.Helper()
	r, err := domain.NewImportedRow(2, date, desc, decimal.RequireFromString(amount), dir)
	if err != nil {
		t.Fatal(err)
	}
	return *r
}

func defaultMatcher(t *testing.T) *Matcher {
	t.Helper()
	m, err := NewMatcher(DefaultPolicy())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  CAFÉ   ROUGE  LTD ", "cafe rouge ltd"},
		{"TFL Travel\tCharge", "tfl travel charge"},
		{"", ""},
		{"already normal", "already normal"},
	}
	for _, tt := range tests {
		if got := NormalizeDescription(tt.in); got != tt.want {
			t.Errorf("NormalizeDescription(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFingerprintStability(t *testing.T) {
	amount := decimal.RequireFromString("45.50")
	a := Fingerprint(day(1), domain.DirectionExpense, amount, "CAFÉ ROUGE")
	b := Fingerprint(day(1), domain.DirectionExpense, decimal.RequireFromString("45.5"), "cafe  rouge")
	if a != b {
		t.Error("fingerprints should fold case, accents, spacing and decimal scale")
	}

	if Fingerprint(day(2), domain.DirectionExpense, amount, "CAFÉ ROUGE") == a {
		t.Error("different dates must fingerprint differently")
	}
	if Fingerprint(day(1), domain.DirectionIncome, amount, "CAFÉ ROUGE") == a {
		t.Error("different directions must fingerprint differently")
	}
}

func TestSimilarity(t *testing.T) {
	if s := Similarity("TFL TRAVEL CH", "tfl travel ch"); s != 1 {
		t.Errorf("identical normalized strings: similarity = %f, want 1", s)
	}
	if s := Similarity("", ""); s != 1 {
		t.Errorf("two empty strings: similarity = %f, want 1", s)
	}
	if s := Similarity("TESCO STORES 3412", "COMPLETELY DIFFERENT"); s > 0.5 {
		t.Errorf("unrelated strings: similarity = %f, want low", s)
	}
	if s := Similarity("TESCO STORES 3412", "TESCO STORES 3413"); s < 0.9 {
		t.Errorf("near-identical strings: similarity = %f, want high", s)
	}
}

func TestMatchExactFingerprint(t *testing.T) {
	m := defaultMatcher(t)
	snap := NewSnapshot([]domain.LedgerRecord{
		ledgerRecord("rec-1", day(10), "STRIPE PAYOUT", "2000.00", domain.DirectionIncome),
	})

	row := importedRow(t, day(10), "stripe payout", "2000.00", domain.DirectionIncome)
	c := m.Match(row, snap)

	if c.Type != domain.MatchExact {
		t.Fatalf("Type = %q, want exact", c.Type)
	}
	if c.Action != domain.ActionSkip {
		t.Errorf("Action = %q, exact duplicates default to skip", c.Action)
	}
	if c.Existing == nil || c.Existing.ID != "rec-1" {
		t.Errorf("Existing = %+v, want rec-1", c.Existing)
	}
	if !c.Row.Duplicate {
		t.Error("row should be flagged as duplicate")
	}
}

func TestMatchLikelySameAmountNearbyDate(t *testing.T) {
	m := defaultMatcher(t)
	snap := NewSnapshot([]domain.LedgerRecord{
		ledgerRecord("rec-1", day(10), "CARD PAYMENT REF 8821", "45.50", domain.DirectionExpense),
	})

	// Same amount two days later, unrelated description.
	row := importedRow(t, day(12), "SCREWFIX DIRECT", "45.50", domain.DirectionExpense)
	c := m.Match(row, snap)

	if c.Type != domain.MatchLikely {
		t.Fatalf("Type = %q, want likely", c.Type)
	}
	if c.Action != domain.ActionImport {
		t.Errorf("Action = %q, likely matches default to import", c.Action)
	}
	if c.Existing == nil || c.Existing.ID != "rec-1" {
		t.Errorf("Existing = %+v", c.Existing)
	}
}

func TestMatchLikelySimilarDescription(t *testing.T) {
	m := defaultMatcher(t)
	snap := NewSnapshot([]domain.LedgerRecord{
		ledgerRecord("rec-1", day(10), "TESCO STORES 3412", "18.20", domain.DirectionExpense),
	})

	// Different amount, nearly identical description, one day apart.
	row := importedRow(t, day(11), "TESCO STORES 3413", "22.75", domain.DirectionExpense)
	c := m.Match(row, snap)

	if c.Type != domain.MatchLikely {
		t.Fatalf("Type = %q, want likely", c.Type)
	}
}

func TestMatchNewOutsideDateWindow(t *testing.T) {
	m := defaultMatcher(t)
	snap := NewSnapshot([]domain.LedgerRecord{
		ledgerRecord("rec-1", day(10), "TESCO STORES 3412", "18.20", domain.DirectionExpense),
	})

	// Identical in every way except the date, 10 days out.
	row := importedRow(t, day(20), "TESCO STORES 3412", "18.20", domain.DirectionExpense)
	c := m.Match(row, snap)

	if c.Type != domain.MatchNew {
		t.Fatalf("Type = %q, want new", c.Type)
	}
	if c.Row.Duplicate {
		t.Error("new rows are not duplicates")
	}
	if c.Existing != nil {
		t.Errorf("Existing = %+v, want nil", c.Existing)
	}
}

func TestMatchIgnoresOppositeDirection(t *testing.T) {
	m := defaultMatcher(t)
	snap := NewSnapshot([]domain.LedgerRecord{
		ledgerRecord("rec-1", day(10), "REFUND ADJUSTMENT", "45.50", domain.DirectionIncome),
	})

	row := importedRow(t, day(10), "REFUND ADJUSTMENT CHARGE", "45.50", domain.DirectionExpense)
	if c := m.Match(row, snap); c.Type != domain.MatchNew {
		t.Errorf("Type = %q, income records must not claim expense rows", c.Type)
	}
}

func TestMatchPrefersAmountHitThenSimilarity(t *testing.T) {
	m := defaultMatcher(t)
	snap := NewSnapshot([]domain.LedgerRecord{
		ledgerRecord("sim-only", day(10), "ACME SUPPLIES LTD", "99.99", domain.DirectionExpense),
		ledgerRecord("amount-hit", day(12), "UNRELATED VENDOR", "50.00", domain.DirectionExpense),
	})

	row := importedRow(t, day(11), "ACME SUPPLIES LTD", "50.00", domain.DirectionExpense)
	c := m.Match(row, snap)

	if c.Type != domain.MatchLikely || c.Existing == nil || c.Existing.ID != "amount-hit" {
		t.Errorf("best candidate = %+v, want the amount-equal record", c.Existing)
	}
}

func TestMatchAllSkipsParseErrors(t *testing.T) {
	m := defaultMatcher(t)
	snap := NewSnapshot(nil)

	rows := []domain.ImportedRow{
		importedRow(t, day(1), "ROW ONE", "1.00", domain.DirectionIncome),
		*domain.NewParseErrorRow(3, "BAD ROW", "invalid date"),
		importedRow(t, day(2), "ROW TWO", "2.00", domain.DirectionExpense),
	}

	candidates := m.MatchAll(rows, snap)
	if len(candidates) != 2 {
		t.Fatalf("len(candidates) = %d, want 2", len(candidates))
	}
	for _, c := range candidates {
		if c.Type != domain.MatchNew {
			t.Errorf("empty ledger: Type = %q, want new", c.Type)
		}
	}
}

func TestMatchDeterministicTieBreak(t *testing.T) {
	m := defaultMatcher(t)
	records := []domain.LedgerRecord{
		ledgerRecord("rec-b", day(10), "SAME DESC", "10.00", domain.DirectionExpense),
		ledgerRecord("rec-a", day(10), "SAME DESC", "10.00", domain.DirectionExpense),
	}

	row := importedRow(t, day(11), "SAME DESC", "10.00", domain.DirectionExpense)
	for i := 0; i < 5; i++ {
		c := m.Match(row, NewSnapshot(records))
		if c.Existing == nil || c.Existing.ID != "rec-a" {
			t.Fatalf("tie break not deterministic: got %+v", c.Existing)
		}
	}
}

func TestNewMatcherRejectsBadPolicy(t *testing.T) {
	if _, err := NewMatcher(Policy{DateToleranceDays: -1, SimilarityCutoff: 0.5}); err == nil {
		t.Error("negative tolerance accepted")
	}
	if _, err := NewMatcher(Policy{DateToleranceDays: 3, SimilarityCutoff: 1.5}); err == nil {
		t.Error("cutoff above 1 accepted")
	}
}
