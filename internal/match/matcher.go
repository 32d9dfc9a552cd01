package match

import (
	"fmt"
	"sort"
	"time"

	"github.com/quidbooks/quidbooks/internal/domain"
)

// Policy holds the tunable thresholds for near-duplicate detection.
type Policy struct {
	DateToleranceDays int     // window either side of the incoming date
	SimilarityCutoff  float64 // minimum description similarity for LIKELY
}

// DefaultPolicy returns the stock thresholds: 3 days either side, 0.60
// similarity.
func DefaultPolicy() Policy {
	return Policy{DateToleranceDays: 3, SimilarityCutoff: 0.60}
}

// Matcher classifies incoming rows against a ledger snapshot.
type Matcher struct {
	policy Policy
}

// NewMatcher creates a matcher with a validated policy.
func NewMatcher(p Policy) (*Matcher, error) {
	if p.DateToleranceDays < 0 {
		return nil, fmt.Errorf("date tolerance must be non-negative, got %d", p.DateToleranceDays)
	}
	if p.SimilarityCutoff < 0 || p.SimilarityCutoff > 1 {
		return nil, fmt.Errorf("similarity cutoff must be in [0,1], got %f", p.SimilarityCutoff)
	}
	return &Matcher{policy: p}, nil
}

// Snapshot is a read-only view of the existing ledger prepared for matching:
// a fingerprint index for exact hits and a date-sorted record list for the
// windowed near-duplicate scan.
type Snapshot struct {
	byFingerprint map[string]*domain.LedgerRecord
	records       []domain.LedgerRecord
}

// NewSnapshot indexes ledger records for matching. The input is copied; the
// snapshot stays valid if the caller's slice changes.
func NewSnapshot(records []domain.LedgerRecord) *Snapshot {
	s := &Snapshot{
		byFingerprint: make(map[string]*domain.LedgerRecord, len(records)),
		records:       make([]domain.LedgerRecord, len(records)),
	}
	copy(s.records, records)
	sort.SliceStable(s.records, func(i, j int) bool {
		if !s.records[i].Date.Equal(s.records[j].Date) {
			return s.records[i].Date.Before(s.records[j].Date)
		}
		return s.records[i].ID < s.records[j].ID
	})
	for i := range s.records {
		rec := &s.records[i]
		fp := Fingerprint(rec.Date, rec.Direction, rec.Amount, rec.Description)
		if _, taken := s.byFingerprint[fp]; !taken {
			s.byFingerprint[fp] = rec
		}
	}
	return s
}

// Len reports how many ledger records the snapshot holds.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// Match classifies one row against the snapshot. EXACT means an identical
// fingerprint exists in the ledger; LIKELY means a same-direction record
// within the date window has the same amount or a sufficiently similar
// description; otherwise NEW. The candidate carries the default action for
// its classification.
func (m *Matcher) Match(row domain.ImportedRow, snap *Snapshot) domain.MatchCandidate {
	fp := Fingerprint(row.Date, row.Direction, row.Amount, row.Description)
	if existing, ok := snap.byFingerprint[fp]; ok {
		return candidate(row, domain.MatchExact, existing)
	}

	if best := m.bestNearMatch(row, snap); best != nil {
		return candidate(row, domain.MatchLikely, best)
	}
	return candidate(row, domain.MatchNew, nil)
}

// MatchAll classifies every successfully parsed row. Rows that failed
// parsing are excluded: they carry no usable date or amount and are already
// counted by the parse summary.
func (m *Matcher) MatchAll(rows []domain.ImportedRow, snap *Snapshot) []domain.MatchCandidate {
	candidates := make([]domain.MatchCandidate, 0, len(rows))
	for i := range rows {
		if rows[i].Status != domain.RowStatusOK {
			continue
		}
		candidates = append(candidates, m.Match(rows[i], snap))
	}
	return candidates
}

// bestNearMatch scans the date window for the strongest LIKELY candidate.
// Amount-equal matches beat similarity-only matches; among equals, higher
// similarity wins, then the smaller date gap, then record ID so the result
// is deterministic.
func (m *Matcher) bestNearMatch(row domain.ImportedRow, snap *Snapshot) *domain.LedgerRecord {
	var (
		best           *domain.LedgerRecord
		bestAmountHit  bool
		bestSimilarity float64
		bestGap        int
	)

	for i := range snap.records {
		rec := &snap.records[i]
		if rec.Direction != row.Direction {
			continue
		}
		gap := daysApart(row.Date, rec.Date)
		if gap > m.policy.DateToleranceDays {
			continue
		}

		amountHit := rec.Amount.Equal(row.Amount)
		similarity := Similarity(row.Description, rec.Description)
		if !amountHit && similarity < m.policy.SimilarityCutoff {
			continue
		}

		if best == nil || stronger(amountHit, similarity, gap, rec.ID, bestAmountHit, bestSimilarity, bestGap, best.ID) {
			best = rec
			bestAmountHit = amountHit
			bestSimilarity = similarity
			bestGap = gap
		}
	}
	return best
}

func stronger(amountHit bool, similarity float64, gap int, id string, bestAmountHit bool, bestSimilarity float64, bestGap int, bestID string) bool {
	if amountHit != bestAmountHit {
		return amountHit
	}
	if similarity != bestSimilarity {
		return similarity > bestSimilarity
	}
	if gap != bestGap {
		return gap < bestGap
	}
	return id < bestID
}

func candidate(row domain.ImportedRow, t domain.MatchType, existing *domain.LedgerRecord) domain.MatchCandidate {
	row.Duplicate = t != domain.MatchNew
	return domain.MatchCandidate{
		Row:      row,
		Type:     t,
		Action:   domain.DefaultAction(t),
		Existing: existing,
	}
}

// daysApart returns the whole-day distance between two dates, ignoring the
// time-of-day component.
func daysApart(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(ad.Sub(bd).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}
