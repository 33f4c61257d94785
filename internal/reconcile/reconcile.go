// Package reconcile merges a case record's answer key into a working draft.
//
// Every merger fills blanks only: a draft field that already holds a
// non-blank value is never overwritten, so merging the same case twice
// yields the same draft as merging it once.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ptnote/ptnote/internal/note"
)

// EvalEncounter is the encounter whose answer key seeds a draft.
const EvalEncounter = "eval"

// source bundles the case record with its eval answer key. Missing
// sections are nil.
type source struct {
	c    *note.CaseRecord
	eval *note.Encounter
	log  zerolog.Logger
}

// Option configures PopulateDraftFromCaseData.
type Option func(*source)

// WithLogger reports merge failures to l at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(s *source) { s.log = l }
}

func (s source) evalSubjective() *note.Subjective {
	if s.eval == nil {
		return nil
	}
	return s.eval.Subjective
}

func (s source) evalObjective() *note.EncounterObjective {
	if s.eval == nil {
		return nil
	}
	return s.eval.Objective
}

func (s source) evalAssessment() *note.Assessment {
	if s.eval == nil {
		return nil
	}
	return s.eval.Assessment
}

func (s source) evalPlan() *note.EncounterPlan {
	if s.eval == nil {
		return nil
	}
	return s.eval.Plan
}

func (s source) evalBilling() *note.EncounterBilling {
	if s.eval == nil {
		return nil
	}
	return s.eval.Billing
}

// merger updates one section of the draft from the source.
type merger struct {
	name string
	run  func(d *note.Draft, src source) error
}

// mergers run in this order. Treatment-performed reads plan text and writes
// the objective section, so it runs after the plan merger. Prognosis reads
// the assessment the assessment merger filled in.
var mergers = []merger{
	{"subjective", mergeSubjective},
	{"objective", mergeObjective},
	{"assessment", mergeAssessment},
	{"prognosis", mergePrognosis},
	{"plan", mergePlan},
	{"treatment-performed", mergeTreatmentPerformed},
	{"billing", mergeBilling},
	{"meta", mergeMeta},
}

// PopulateDraftFromCaseData fills blank fields of d from c and returns d.
// A nil case is a no-op. Each section is merged atomically: a merger that
// fails leaves its section as it was and the other sections still merge.
func PopulateDraftFromCaseData(d *note.Draft, c *note.CaseRecord, opts ...Option) *note.Draft {
	if d == nil || c == nil {
		return d
	}
	d.EnsureShape()

	src := source{c: c, eval: c.Encounter(EvalEncounter), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&src)
	}
	for _, m := range mergers {
		if err := guarded(d, src, m); err != nil {
			src.log.Debug().Err(err).Str("section", m.name).Msg("section left unmerged")
		}
	}
	return d
}

// guarded runs m against a copy of d and commits the copy only on success.
// Panics inside a merger are recovered and reported as errors.
func guarded(d *note.Draft, src source, m merger) (err error) {
	work := d.Clone()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s merger panicked: %v", m.name, r)
		}
	}()
	if err := m.run(work, src); err != nil {
		return fmt.Errorf("%s merger: %w", m.name, err)
	}
	*d = *work
	return nil
}

// fill sets *dst to the first non-blank candidate, trimmed, if *dst is
// currently blank. It reports whether it wrote.
func fill(dst *string, candidates ...string) bool {
	if strings.TrimSpace(*dst) != "" {
		return false
	}
	for _, c := range candidates {
		if v := strings.TrimSpace(c); v != "" {
			*dst = v
			return true
		}
	}
	return false
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
