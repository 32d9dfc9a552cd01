// Package wizard drives the four-step import flow: choose a file, confirm
// the column mapping, review the classified rows, confirm the commit. Steps
// gate on their own preconditions; navigating backwards never loses work.
package wizard

import (
	"fmt"

	"github.com/quidbooks/quidbooks/internal/bankformat"
	"github.com/quidbooks/quidbooks/internal/mapping"
	"github.com/quidbooks/quidbooks/internal/review"
)

// Step identifies a wizard stage.
type Step int

const (
	StepSelectFile Step = iota + 1
	StepMapColumns
	StepReview
	StepConfirm
)

// StepCount is the number of wizard stages.
const StepCount = 4

func (s Step) String() string {
	switch s {
	case StepSelectFile:
		return "select file"
	case StepMapColumns:
		return "map columns"
	case StepReview:
		return "review rows"
	case StepConfirm:
		return "confirm"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Wizard holds the state of one import flow.
type Wizard struct {
	registry *bankformat.Registry

	step      Step
	fileName  string
	headers   []string
	profileID string
	mapping   *mapping.ColumnMapping

	session *review.Session
	filter  Filter
	search  string

	importing bool
	progress  int // 0-100, advisory only
}

// New starts a wizard at the file-selection step.
func New(registry *bankformat.Registry) (*Wizard, error) {
	if registry == nil {
		return nil, fmt.Errorf("bank format registry cannot be nil")
	}
	return &Wizard{
		registry: registry,
		step:     StepSelectFile,
		mapping:  mapping.New(),
		filter:   FilterAll,
	}, nil
}

// Step returns the current stage.
func (w *Wizard) Step() Step {
	return w.step
}

// SelectFile records the chosen statement and runs format detection over its
// headers. A recognized format auto-populates the column mapping; UNKNOWN
// leaves an empty mapping for the operator to fill in at step two. Selecting
// a file discards any state from a previously selected one.
func (w *Wizard) SelectFile(fileName string, headers []string) string {
	w.fileName = fileName
	w.headers = append([]string(nil), headers...)
	w.session = nil
	w.filter = FilterAll
	w.search = ""
	w.importing = false
	w.progress = 0

	profile, id := w.registry.Detect(headers)
	w.profileID = id
	if profile != nil {
		w.mapping = profile.DefaultMapping()
	} else {
		w.mapping = mapping.New()
	}
	return id
}

// FileName returns the selected statement file.
func (w *Wizard) FileName() string {
	return w.fileName
}

// Headers returns the statement's header row.
func (w *Wizard) Headers() []string {
	return append([]string(nil), w.headers...)
}

// DetectedFormat returns the detected profile ID, or UNKNOWN.
func (w *Wizard) DetectedFormat() string {
	return w.profileID
}

// Mapping exposes the working column mapping for operator edits at step two.
func (w *Wizard) Mapping() *mapping.ColumnMapping {
	return w.mapping
}

// SetSession installs the review session once rows are parsed and matched.
func (w *Wizard) SetSession(s *review.Session) {
	w.session = s
}

// Session returns the active review session, nil before one is set.
func (w *Wizard) Session() *review.Session {
	return w.session
}

// CanGoNext reports whether the current step's precondition is met.
// Step one needs a selected file with headers; step two needs a complete
// mapping; the review and confirm steps gate on nothing.
func (w *Wizard) CanGoNext() bool {
	switch w.step {
	case StepSelectFile:
		return w.fileName != "" && len(w.headers) > 0
	case StepMapColumns:
		return w.mapping.IsComplete()
	case StepReview, StepConfirm:
		return true
	default:
		return false
	}
}

// GoNext advances one step when allowed. At the last step, or when the
// precondition fails, it reports false and stays put.
func (w *Wizard) GoNext() bool {
	if w.step >= StepConfirm || !w.CanGoNext() {
		return false
	}
	w.step++
	return true
}

// GoPrevious steps back, keeping all accumulated state. At the first step
// it reports false.
func (w *Wizard) GoPrevious() bool {
	if w.step <= StepSelectFile {
		return false
	}
	w.step--
	return true
}

// Reset returns the wizard to a pristine first step.
func (w *Wizard) Reset() {
	w.step = StepSelectFile
	w.fileName = ""
	w.headers = nil
	w.profileID = ""
	w.mapping = mapping.New()
	w.session = nil
	w.filter = FilterAll
	w.search = ""
	w.importing = false
	w.progress = 0
}

// Filter returns the active review filter.
func (w *Wizard) Filter() Filter {
	return w.filter
}

// SetFilter switches the review filter. Changing filters clears the row
// selection so a bulk action never touches rows the operator can no longer
// see.
func (w *Wizard) SetFilter(f Filter) error {
	if !validFilter(f) {
		return fmt.Errorf("invalid filter %q", f)
	}
	if f != w.filter && w.session != nil {
		w.session.ClearSelection()
	}
	w.filter = f
	return nil
}

// Search returns the active description search term.
func (w *Wizard) Search() string {
	return w.search
}

// SetSearch updates the description search term. Like a filter change,
// a new term clears the row selection so a bulk action never touches rows
// the operator can no longer see.
func (w *Wizard) SetSearch(term string) {
	if term != w.search && w.session != nil {
		w.session.ClearSelection()
	}
	w.search = term
}

// BeginImport marks the commit as in flight, rejecting a second concurrent
// attempt.
func (w *Wizard) BeginImport() error {
	if w.importing {
		return fmt.Errorf("an import is already in progress")
	}
	w.importing = true
	w.progress = 0
	return nil
}

// EndImport clears the in-flight flag.
func (w *Wizard) EndImport() {
	w.importing = false
	w.progress = 0
}

// Importing reports whether a commit is in flight.
func (w *Wizard) Importing() bool {
	return w.importing
}

// SetProgress records advisory commit progress, clamped to [0,100].
func (w *Wizard) SetProgress(pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	w.progress = pct
}

// Progress returns the advisory commit progress.
func (w *Wizard) Progress() int {
	return w.progress
}
