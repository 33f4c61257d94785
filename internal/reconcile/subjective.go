package reconcile

import (
	"github.com/ptnote/ptnote/internal/note"
)

// mergeSubjective fills the subjective section. The eval answer key is
// preferred; case history and its pain block are the fallback.
func mergeSubjective(d *note.Draft, src source) error {
	s := &d.Subjective
	h := src.c.History

	ev := src.evalSubjective()
	if ev == nil {
		ev = &note.Subjective{}
	}
	pain := h.Pain
	if pain == nil {
		pain = &note.Pain{}
	}

	fill(&s.ChiefComplaint, ev.ChiefComplaint, h.ChiefComplaint)
	fill(&s.HistoryOfPresentIllness, ev.HistoryOfPresentIllness, h.HPI)
	fill(&s.PainLocation, ev.PainLocation, pain.Location)
	fill(&s.PainScale, ev.PainScale, pain.Level.String())
	fill(&s.PainQuality,
		note.NormalizePainQuality(ev.PainQuality),
		note.NormalizePainQuality(pain.Quality))
	fill(&s.PainPattern,
		note.NormalizePainPattern(ev.PainPattern),
		note.NormalizePainPattern(pain.Pattern))
	fill(&s.AggravatingFactors, ev.AggravatingFactors, pain.AggravatingFactors)
	fill(&s.EasingFactors, ev.EasingFactors, pain.EasingFactors)
	fill(&s.MedicalHistory, ev.MedicalHistory, h.PMH.Join(", "))
	fill(&s.Medications, ev.Medications, h.Meds.Join(", "))
	fill(&s.RedFlags, ev.RedFlags, h.RedFlagSignals.Join("; "))
	fill(&s.PatientGoals, ev.PatientGoals, h.FunctionalGoals.Join("; "))
	return nil
}
