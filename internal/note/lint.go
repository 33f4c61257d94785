package note

import "strings"

// LintResult reports the required note sections that are still empty.
type LintResult struct {
	Valid           bool     `json:"valid"`
	MissingSections []string `json:"missing_sections,omitempty"` // in canonical order
}

// requiredSections lists the checks in canonical order.
var requiredSections = []struct {
	name    string
	present func(d *Draft) bool
}{
	{"Chief complaint", func(d *Draft) bool {
		return !blank(d.Subjective.ChiefComplaint)
	}},
	{"Objective findings", hasObjectiveFindings},
	{"Assessment/diagnosis", func(d *Draft) bool {
		return !blank(d.Assessment.PTDiagnosis) || !blank(d.Assessment.PrimaryImpairments)
	}},
	{"Plan goals or interventions", func(d *Draft) bool {
		p := d.Plan
		return !blank(p.Interventions) || !blank(p.ShortTermGoals) || !blank(p.LongTermGoals) || p.GoalsTable.Len() > 0
	}},
	{"Billing diagnosis code", func(d *Draft) bool {
		for _, dc := range d.Billing.DiagnosisCodes {
			if !blank(dc.Code) {
				return true
			}
		}
		return false
	}},
}

// Lint checks that a draft carries every section needed for a complete
// note.
func Lint(d *Draft) *LintResult {
	result := &LintResult{Valid: true}
	if d == nil {
		d = NewDefaultDraft()
	}
	for _, s := range requiredSections {
		if !s.present(d) {
			result.MissingSections = append(result.MissingSections, s.name)
		}
	}
	if len(result.MissingSections) > 0 {
		result.Valid = false
	}
	return result
}

func hasObjectiveFindings(d *Draft) bool {
	o := d.Objective
	if !blank(o.Text) || !blank(o.Inspection.Visual) || !blank(o.Palpation.Findings) ||
		!blank(o.Neuro.Screening) || !blank(o.Functional.Assessment) {
		return true
	}
	ra := o.RegionalAssessments
	return ra.ROM.Len() > 0 || ra.PROM.Len() > 0 || ra.MMT.Len() > 0 || ra.SpecialTests.Len() > 0
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
