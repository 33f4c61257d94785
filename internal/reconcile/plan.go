package reconcile

import (
	"slices"
	"strings"

	"github.com/ptnote/ptnote/internal/note"
)

func mergePlan(d *note.Draft, src source) error {
	ep := src.evalPlan()
	if ep == nil {
		return nil
	}
	p := &d.Plan

	fill(&p.Frequency, note.MapFrequencyToEnum(ep.Frequency))
	fill(&p.Duration, note.MapDurationToEnum(ep.Duration))
	if blank(p.Interventions) && !blank(ep.TreatmentPlan) {
		p.Interventions = ep.TreatmentPlan
	} else {
		fill(&p.Interventions, interventionsText(ep.Interventions))
	}
	fill(&p.ShortTermGoals, ep.ShortTermGoals)
	fill(&p.LongTermGoals, ep.LongTermGoals)
	fill(&p.PatientEducation, ep.PatientEducation)

	// Malformed source tables are skipped; the rest of the plan still merges.
	if p.ExerciseTable.Len() == 0 && present(ep.ExerciseTable) {
		if t, err := note.TableFromJSON[note.ExerciseRow](ep.ExerciseTable); err == nil {
			p.ExerciseTable = t
		}
	}
	if p.GoalsTable.Len() == 0 {
		if present(ep.GoalsTable) {
			if t, err := note.TableFromJSON[note.GoalRow](ep.GoalsTable); err == nil && t.Len() > 0 {
				p.GoalsTable = t
				return nil
			}
		}
		seedGoals(&p.GoalsTable, ep.ShortTermGoals, ep.LongTermGoals)
	}
	return nil
}

// interventionsText renders an interventions list as one line. A plain
// string is used as written.
func interventionsText(v note.TextOrList) string {
	if !v.IsList() {
		return v.Text
	}
	items := v.Join(", ")
	if items == "" {
		return ""
	}
	return "Interventions: " + items
}

// seedGoals adds one row per non-blank goal string.
func seedGoals(t *note.Table[note.GoalRow], shortTerm, longTerm string) {
	for _, g := range []struct{ text, term string }{
		{shortTerm, "short"},
		{longTerm, "long"},
	} {
		if text := strings.TrimSpace(g.text); text != "" {
			t.Add(note.GoalRow{GoalText: text, Term: g.term})
		}
	}
}

// mergeBilling replaces each code list wholesale when the answer key
// carries it, even when the list is empty.
func mergeBilling(d *note.Draft, src source) error {
	eb := src.evalBilling()
	if eb == nil {
		return nil
	}
	b := &d.Billing
	if eb.DiagnosisCodes != nil {
		b.DiagnosisCodes = slices.Clone(eb.DiagnosisCodes)
	}
	if eb.BillingCodes != nil {
		b.BillingCodes = slices.Clone(eb.BillingCodes)
	}
	if eb.OrdersReferrals != nil {
		b.OrdersReferrals = slices.Clone(eb.OrdersReferrals)
	}
	fill(&b.SkilledJustification, eb.SkilledJustification)
	fill(&b.TreatmentNotes, eb.TreatmentNotes)
	return nil
}
