// Package match classifies incoming transactions against the existing
// ledger. Rows are fingerprinted for exact-duplicate detection and compared
// by edit distance for near-duplicate detection; classifications are
// advisory and the operator keeps the final say.
package match

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/quidbooks/quidbooks/internal/domain"
)

// NormalizeDescription folds a bank description into a canonical comparison
// form: accents stripped, lowercased, internal whitespace collapsed. Banks
// are inconsistent about casing and spacing between exports of the same
// transaction, so comparisons never run on raw text.
func NormalizeDescription(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Fingerprint creates a SHA256 hash identifying a transaction by date,
// direction, amount and normalized description. Two rows with the same
// fingerprint are the same transaction for duplicate purposes.
// Format: SHA256("{date}|{direction}|{amount}|{normalizedDescription}")
// with the date as YYYY-MM-DD and the amount fixed to 2 decimal places.
func Fingerprint(date time.Time, direction domain.Direction, amount decimal.Decimal, description string) string {
	input := fmt.Sprintf("%s|%s|%s|%s",
		date.Format("2006-01-02"), direction, amount.StringFixed(2), NormalizeDescription(description))
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}

// Similarity scores two descriptions in [0,1] using edit distance over the
// normalized forms. 1 means identical after normalization.
func Similarity(a, b string) float64 {
	na, nb := NormalizeDescription(a), NormalizeDescription(b)
	if na == nb {
		return 1
	}
	longest := len(na)
	if len(nb) > longest {
		longest = len(nb)
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(na, nb)
	return 1 - float64(dist)/float64(longest)
}
