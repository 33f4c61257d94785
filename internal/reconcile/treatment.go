package reconcile

import (
	"regexp"
	"strings"

	"github.com/ptnote/ptnote/internal/note"
)

// extraction seeds one treatment-performed field from plan text: the
// parenthetical after a label wins, else a keyword hit inserts a canned
// sentence.
type extraction struct {
	label    *regexp.Regexp
	keywords *regexp.Regexp
	fallback string
}

var (
	manualTherapyExtraction = extraction{
		label:    regexp.MustCompile(`(?i)manual therapy\s*\(([^)]*)\)`),
		keywords: regexp.MustCompile(`(?i)manual therapy|mobiliz|manipulat|soft tissue`),
		fallback: "Manual therapy techniques performed as indicated.",
	}
	therapeuticExerciseExtraction = extraction{
		label:    regexp.MustCompile(`(?i)therapeutic exercise\s*\(([^)]*)\)`),
		keywords: regexp.MustCompile(`(?i)exercise|strengthen|stretch|\bhep\b`),
		fallback: "Therapeutic exercise performed per plan of care.",
	}
	modalitiesExtraction = extraction{
		label:    regexp.MustCompile(`(?i)modalit(?:y|ies)\s*\(([^)]*)\)`),
		keywords: regexp.MustCompile(`(?i)modalit|\b(?:ice|heat|cryotherapy|ultrasound|tens|e-?stim)\b`),
		fallback: "Modalities applied as indicated for symptom management.",
	}
)

func (e extraction) extract(text string) string {
	if m := e.label.FindStringSubmatch(text); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			return v
		}
	}
	if e.keywords.MatchString(text) {
		return e.fallback
	}
	return ""
}

// mergeTreatmentPerformed reads the eval plan's treatment plan text and
// writes the objective section's treatment-performed fields.
func mergeTreatmentPerformed(d *note.Draft, src source) error {
	ep := src.evalPlan()
	if ep == nil || blank(ep.TreatmentPlan) {
		return nil
	}
	text := ep.TreatmentPlan
	tp := &d.Objective.TreatmentPerformed

	fill(&tp.ManualTherapy, manualTherapyExtraction.extract(text))
	fill(&tp.TherapeuticExercise, therapeuticExerciseExtraction.extract(text))
	fill(&tp.Modalities, modalitiesExtraction.extract(text))
	return nil
}
