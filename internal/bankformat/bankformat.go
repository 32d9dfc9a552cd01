// Package bankformat identifies which bank produced a CSV export by
// inspecting its header row. Profiles are declarative data, not code
// branches: each known bank contributes its expected header tokens and a
// default column mapping, loaded from an embedded table at init.
package bankformat

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/quidbooks/quidbooks/internal/mapping"
	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var embeddedProfiles []byte

// FormatUnknown is the identifier returned when no profile matches. It is a
// valid, handled outcome: the operator supplies the mapping by hand.
const FormatUnknown = "UNKNOWN"

// Profile describes one bank's CSV export shape.
type Profile struct {
	ID      string
	Name    string
	Headers []string // expected header tokens, order-insensitive
	mapping profileMapping
}

type profileMapping struct {
	Date        string `yaml:"date"`
	Description string `yaml:"description"`
	Amount      string `yaml:"amount"`
	Income      string `yaml:"income"`
	Expense     string `yaml:"expense"`
	DateFormat  string `yaml:"date_format"`
}

type profileFile struct {
	Profiles []struct {
		ID      string         `yaml:"id"`
		Name    string         `yaml:"name"`
		Headers []string       `yaml:"headers"`
		Mapping profileMapping `yaml:"mapping"`
	} `yaml:"profiles"`
}

// DefaultMapping builds the column mapping this profile auto-populates.
func (p *Profile) DefaultMapping() *mapping.ColumnMapping {
	m := mapping.New()
	m.SetDateColumn(p.mapping.Date)
	m.SetDescriptionColumn(p.mapping.Description)
	if p.mapping.Amount != "" {
		m.SetAmountColumn(p.mapping.Amount)
	} else {
		m.SetSeparateAmountColumns(p.mapping.Income, p.mapping.Expense)
	}
	m.SetDateFormat(p.mapping.DateFormat)
	return m
}

// Registry holds the known bank profiles in declaration order.
type Registry struct {
	profiles []Profile
}

// NewRegistry loads a registry from YAML profile data.
func NewRegistry(data []byte) (*Registry, error) {
	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse profile table: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Profiles))
	profiles := make([]Profile, 0, len(file.Profiles))
	for i, raw := range file.Profiles {
		if raw.ID == "" {
			return nil, fmt.Errorf("profile %d: id cannot be empty", i)
		}
		if raw.ID == FormatUnknown {
			return nil, fmt.Errorf("profile %d: %q is reserved", i, FormatUnknown)
		}
		if _, dup := seen[raw.ID]; dup {
			return nil, fmt.Errorf("profile %d: duplicate id %q", i, raw.ID)
		}
		seen[raw.ID] = struct{}{}
		if len(raw.Headers) == 0 {
			return nil, fmt.Errorf("profile %s: expected headers cannot be empty", raw.ID)
		}
		if raw.Mapping.Date == "" || raw.Mapping.Description == "" || raw.Mapping.DateFormat == "" {
			return nil, fmt.Errorf("profile %s: mapping must set date, description and date_format", raw.ID)
		}
		hasSingle := raw.Mapping.Amount != ""
		hasSplit := raw.Mapping.Income != "" && raw.Mapping.Expense != ""
		if hasSingle == hasSplit {
			return nil, fmt.Errorf("profile %s: mapping needs either an amount column or income+expense columns", raw.ID)
		}

		profiles = append(profiles, Profile{
			ID:      raw.ID,
			Name:    raw.Name,
			Headers: raw.Headers,
			mapping: raw.Mapping,
		})
	}

	return &Registry{profiles: profiles}, nil
}

// LoadEmbedded loads the built-in profile table.
func LoadEmbedded() (*Registry, error) {
	reg, err := NewRegistry(embeddedProfiles)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded bank profiles: %w", err)
	}
	return reg, nil
}

// Profiles returns the registered profiles in declaration order.
func (r *Registry) Profiles() []Profile {
	out := make([]Profile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// Lookup returns the profile with the given ID.
func (r *Registry) Lookup(id string) (*Profile, bool) {
	for i := range r.profiles {
		if r.profiles[i].ID == id {
			return &r.profiles[i], true
		}
	}
	return nil, false
}

// Detect returns the profile whose expected header tokens are all present in
// the observed headers, preferring the profile with the most tokens matched;
// declaration order breaks ties. Matching is case-insensitive and ignores
// surrounding whitespace, and extra observed columns are fine. Returns
// (nil, FormatUnknown) when nothing matches.
func (r *Registry) Detect(headers []string) (*Profile, string) {
	observed := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		observed[normalizeHeader(h)] = struct{}{}
	}

	var best *Profile
	bestSpecificity := 0
	for i := range r.profiles {
		p := &r.profiles[i]
		if !containsAll(observed, p.Headers) {
			continue
		}
		if len(p.Headers) > bestSpecificity {
			best = p
			bestSpecificity = len(p.Headers)
		}
	}

	if best == nil {
		return nil, FormatUnknown
	}
	return best, best.ID
}

func containsAll(observed map[string]struct{}, expected []string) bool {
	for _, token := range expected {
		if _, ok := observed[normalizeHeader(token)]; !ok {
			return false
		}
	}
	return true
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
