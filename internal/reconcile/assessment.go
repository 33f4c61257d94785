package reconcile

import (
	"regexp"
	"strings"

	"github.com/ptnote/ptnote/internal/note"
)

func mergeAssessment(d *note.Draft, src source) error {
	ea := src.evalAssessment()
	if ea == nil {
		return nil
	}
	a := &d.Assessment
	fill(&a.PrimaryImpairments, ea.PrimaryImpairments)
	fill(&a.BodyFunctions, ea.BodyFunctions)
	fill(&a.ActivityLimitations, ea.ActivityLimitations)
	fill(&a.ParticipationRestrictions, ea.ParticipationRestrictions)
	fill(&a.PTDiagnosis, ea.PTDiagnosis)
	fill(&a.Prognosis, ea.Prognosis)
	fill(&a.PrognosticFactors, ea.PrognosticFactors)
	return nil
}

var prognosisKeyword = regexp.MustCompile(`(?i)\b(excellent|good|fair|poor|guarded)\b`)

// mergePrognosis turns a free-text prognosis from the answer key into its
// rating keyword. The keyword is looked for in the prognosis text, then in
// the prognostic factors. When the prognostic factors text was nothing but
// the keyword it is cleared.
func mergePrognosis(d *note.Draft, src source) error {
	ea := src.evalAssessment()
	if ea == nil {
		return nil
	}

	m := prognosisKeyword.FindStringSubmatch(ea.Prognosis)
	if m == nil {
		m = prognosisKeyword.FindStringSubmatch(ea.PrognosticFactors)
	}
	if m == nil {
		return nil
	}
	keyword := strings.ToLower(m[1])

	a := &d.Assessment
	// Only rewrite a prognosis that is blank or was copied from the answer
	// key; a value the user typed is left alone.
	if blank(a.Prognosis) || strings.TrimSpace(a.Prognosis) == strings.TrimSpace(ea.Prognosis) {
		a.Prognosis = keyword
	}
	if strings.EqualFold(strings.TrimSpace(a.PrognosticFactors), keyword) &&
		strings.EqualFold(strings.TrimSpace(ea.PrognosticFactors), keyword) {
		a.PrognosticFactors = ""
	}
	return nil
}
