// Package analyzer scans the committed ledger for bookkeeping problems
// ahead of a tax return: duplicate clusters, uncategorized spend, and
// suspicious gaps in statement coverage. Findings are advisory and computed
// on demand.
package analyzer

import (
	"fmt"
	"sort"
	"time"

	"github.com/quidbooks/quidbooks/internal/domain"
	"github.com/quidbooks/quidbooks/internal/match"
)

const maxSamples = 3

// Policy tunes the analyzer's thresholds.
type Policy struct {
	DateGapDays          int     // a coverage gap longer than this is flagged
	UncategorizedHighPct float64 // share of uncategorized rows that escalates to HIGH
}

// DefaultPolicy returns the stock thresholds: 30-day gaps, 25% escalation.
func DefaultPolicy() Policy {
	return Policy{DateGapDays: 30, UncategorizedHighPct: 0.25}
}

// Analyzer runs reconciliation scans over ledger snapshots.
type Analyzer struct {
	policy Policy
}

// New creates an analyzer with a validated policy.
func New(p Policy) (*Analyzer, error) {
	if p.DateGapDays < 1 {
		return nil, fmt.Errorf("date gap threshold must be at least 1 day, got %d", p.DateGapDays)
	}
	if p.UncategorizedHighPct <= 0 || p.UncategorizedHighPct > 1 {
		return nil, fmt.Errorf("uncategorized escalation share must be in (0,1], got %f", p.UncategorizedHighPct)
	}
	return &Analyzer{policy: p}, nil
}

// Analyze scans a ledger snapshot and returns findings ordered by severity,
// most severe first. An empty ledger yields no findings.
func (a *Analyzer) Analyze(records []domain.LedgerRecord) []domain.ReconciliationIssue {
	var issues []domain.ReconciliationIssue
	if issue := a.findDuplicateClusters(records); issue != nil {
		issues = append(issues, *issue)
	}
	if issue := a.findUncategorized(records); issue != nil {
		issues = append(issues, *issue)
	}
	if issue := a.findDateGaps(records); issue != nil {
		issues = append(issues, *issue)
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return domain.SeverityRank(issues[i].Severity) > domain.SeverityRank(issues[j].Severity)
	})
	return issues
}

// findDuplicateClusters groups records by fingerprint. Any fingerprint
// appearing more than once means the same transaction was committed twice,
// which inflates the figures on a return.
func (a *Analyzer) findDuplicateClusters(records []domain.LedgerRecord) *domain.ReconciliationIssue {
	byFingerprint := make(map[string][]*domain.LedgerRecord)
	for i := range records {
		rec := &records[i]
		fp := match.Fingerprint(rec.Date, rec.Direction, rec.Amount, rec.Description)
		byFingerprint[fp] = append(byFingerprint[fp], rec)
	}

	affected := 0
	var samples []string
	for _, cluster := range byFingerprint {
		if len(cluster) < 2 {
			continue
		}
		affected += len(cluster)
		samples = append(samples, cluster[0].Description)
	}
	if affected == 0 {
		return nil
	}

	sort.Strings(samples)
	return &domain.ReconciliationIssue{
		Category:      domain.IssueDuplicates,
		Severity:      domain.SeverityHigh,
		AffectedCount: affected,
		Samples:       trimSamples(samples),
		Remediation:   "review the duplicated transactions and undo or re-import the affected batch",
	}
}

// findUncategorized counts rows with no category. They cannot be placed on
// a self-assessment return; a large share escalates the severity.
func (a *Analyzer) findUncategorized(records []domain.LedgerRecord) *domain.ReconciliationIssue {
	count := 0
	var samples []string
	for i := range records {
		if records[i].Category == "" {
			count++
			samples = append(samples, records[i].Description)
		}
	}
	if count == 0 {
		return nil
	}

	severity := domain.SeverityMedium
	if float64(count)/float64(len(records)) > a.policy.UncategorizedHighPct {
		severity = domain.SeverityHigh
	}
	sort.Strings(samples)
	return &domain.ReconciliationIssue{
		Category:      domain.IssueMissingCategories,
		Severity:      severity,
		AffectedCount: count,
		Samples:       trimSamples(samples),
		Remediation:   "assign categories in the review screen or add rules for recurring descriptions",
	}
}

// findDateGaps looks for stretches with no transactions at all, which
// usually means a statement was never imported. Gaps beyond twice the
// threshold escalate.
func (a *Analyzer) findDateGaps(records []domain.LedgerRecord) *domain.ReconciliationIssue {
	if len(records) < 2 {
		return nil
	}

	dates := make([]time.Time, len(records))
	for i := range records {
		dates[i] = records[i].Date
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	gaps := 0
	longest := 0
	var samples []string
	for i := 1; i < len(dates); i++ {
		days := int(dates[i].Sub(dates[i-1]).Hours() / 24)
		if days <= a.policy.DateGapDays {
			continue
		}
		gaps++
		if days > longest {
			longest = days
		}
		samples = append(samples, fmt.Sprintf("%d days between %s and %s",
			days, dates[i-1].Format("2006-01-02"), dates[i].Format("2006-01-02")))
	}
	if gaps == 0 {
		return nil
	}

	severity := domain.SeverityLow
	if longest > 2*a.policy.DateGapDays {
		severity = domain.SeverityMedium
	}
	return &domain.ReconciliationIssue{
		Category:      domain.IssueDateGaps,
		Severity:      severity,
		AffectedCount: gaps,
		Samples:       trimSamples(samples),
		Remediation:   "check whether a statement covering the gap was never imported",
	}
}

func trimSamples(samples []string) []string {
	if len(samples) > maxSamples {
		return samples[:maxSamples]
	}
	return samples
}
