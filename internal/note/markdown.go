package note

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders a draft as a SOAP note in markdown. Empty fields
// and empty tables are omitted; tables use GFM pipe syntax.
func RenderMarkdown(d *Draft) string {
	var b strings.Builder

	title := strings.TrimSpace(d.NoteTitle)
	if title == "" {
		title = "SOAP Note"
	}
	fmt.Fprintf(&b, "# %s\n", title)

	s := d.Subjective
	section(&b, "Subjective", []field{
		{"Chief complaint", s.ChiefComplaint},
		{"History of present illness", s.HistoryOfPresentIllness},
		{"Pain location", s.PainLocation},
		{"Pain scale", s.PainScale},
		{"Pain quality", s.PainQuality},
		{"Pain pattern", s.PainPattern},
		{"Aggravating factors", s.AggravatingFactors},
		{"Easing factors", s.EasingFactors},
		{"Medical history", s.MedicalHistory},
		{"Medications", s.Medications},
		{"Red flags", s.RedFlags},
		{"Patient goals", s.PatientGoals},
	})

	o := d.Objective
	section(&b, "Objective", []field{
		{"Findings", o.Text},
		{"Inspection", o.Inspection.Visual},
		{"Palpation", o.Palpation.Findings},
		{"Neuro screen", o.Neuro.Screening},
		{"Functional assessment", o.Functional.Assessment},
		{"Manual therapy", o.TreatmentPerformed.ManualTherapy},
		{"Therapeutic exercise", o.TreatmentPerformed.TherapeuticExercise},
		{"Modalities", o.TreatmentPerformed.Modalities},
	})
	ra := o.RegionalAssessments
	if len(ra.SelectedRegions) > 0 {
		fmt.Fprintf(&b, "\n**Regions:** %s\n", strings.Join(ra.SelectedRegions, ", "))
	}
	measureTable(&b, "Active range of motion", ra.ROM)
	measureTable(&b, "Passive range of motion", ra.PROM)
	measureTable(&b, "Manual muscle testing", ra.MMT)
	if ra.SpecialTests.Len() > 0 {
		rows := [][]string{}
		ra.SpecialTests.Each(func(_ string, r SpecialTestRow) {
			rows = append(rows, []string{r.Region, r.Name, string(r.Left), string(r.Right), r.Result, r.Notes})
		})
		table(&b, "Special tests", []string{"Region", "Test", "Left", "Right", "Result", "Notes"}, rows)
	}

	a := d.Assessment
	section(&b, "Assessment", []field{
		{"Primary impairments", a.PrimaryImpairments},
		{"Body functions", a.BodyFunctions},
		{"Activity limitations", a.ActivityLimitations},
		{"Participation restrictions", a.ParticipationRestrictions},
		{"PT diagnosis", a.PTDiagnosis},
		{"Prognosis", a.Prognosis},
		{"Prognostic factors", a.PrognosticFactors},
	})

	p := d.Plan
	section(&b, "Plan", []field{
		{"Interventions", p.Interventions},
		{"Frequency", p.Frequency},
		{"Duration", p.Duration},
		{"Short-term goals", p.ShortTermGoals},
		{"Long-term goals", p.LongTermGoals},
		{"Patient education", p.PatientEducation},
	})
	if p.GoalsTable.Len() > 0 {
		rows := [][]string{}
		p.GoalsTable.Each(func(_ string, r GoalRow) {
			rows = append(rows, []string{r.GoalText, r.Term, r.Timeframe})
		})
		table(&b, "Goals", []string{"Goal", "Term", "Timeframe"}, rows)
	}
	if p.ExerciseTable.Len() > 0 {
		rows := [][]string{}
		p.ExerciseTable.Each(func(_ string, r ExerciseRow) {
			rows = append(rows, []string{r.Exercise, string(r.Sets), string(r.Reps), r.Load, r.Frequency, r.Notes})
		})
		table(&b, "Home exercise program", []string{"Exercise", "Sets", "Reps", "Load", "Frequency", "Notes"}, rows)
	}

	bl := d.Billing
	section(&b, "Billing", []field{
		{"Skilled justification", bl.SkilledJustification},
		{"Treatment notes", bl.TreatmentNotes},
	})
	var dx, cpt, orders [][]string
	for _, c := range bl.DiagnosisCodes {
		if !blank(c.Code) || !blank(c.Description) {
			primary := ""
			if c.IsPrimary {
				primary = "yes"
			}
			dx = append(dx, []string{c.Code, c.Description, primary})
		}
	}
	for _, c := range bl.BillingCodes {
		if !blank(c.Code) || !blank(c.Description) {
			cpt = append(cpt, []string{c.Code, c.Description, string(c.Units), c.TimeSpent})
		}
	}
	for _, o := range bl.OrdersReferrals {
		if !blank(o.Type) || !blank(o.Details) {
			orders = append(orders, []string{o.Type, o.Details})
		}
	}
	table(&b, "Diagnosis codes", []string{"Code", "Description", "Primary"}, dx)
	table(&b, "Billing codes", []string{"Code", "Description", "Units", "Time"}, cpt)
	table(&b, "Orders and referrals", []string{"Type", "Details"}, orders)

	return b.String()
}

type field struct {
	label string
	value string
}

func section(b *strings.Builder, heading string, fields []field) {
	fmt.Fprintf(b, "\n## %s\n", heading)
	wrote := false
	for _, f := range fields {
		v := strings.TrimSpace(f.value)
		if v == "" {
			continue
		}
		if !wrote {
			b.WriteString("\n")
			wrote = true
		}
		fmt.Fprintf(b, "**%s:** %s\n\n", f.label, v)
	}
}

func measureTable(b *strings.Builder, heading string, t Table[MeasureRow]) {
	if t.Len() == 0 {
		return
	}
	rows := [][]string{}
	t.Each(func(_ string, r MeasureRow) {
		rows = append(rows, []string{r.Region, r.Motion, string(r.Normal), string(r.Left), string(r.Right), r.Notes})
	})
	table(b, heading, []string{"Region", "Motion", "Normal", "Left", "Right", "Notes"}, rows)
}

func table(b *strings.Builder, heading string, header []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(b, "\n### %s\n\n", heading)
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = escapeCell(c)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
}

func escapeCell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
