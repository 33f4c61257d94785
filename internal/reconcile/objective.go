package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/ptnote/ptnote/internal/note"
)

// mergeObjective fills the objective narrative and subparts, then the
// regional assessment tables. Regional failures are swallowed and leave
// the regional block as it was.
func mergeObjective(d *note.Draft, src source) error {
	o := &d.Objective
	eo := src.evalObjective()
	if eo == nil {
		eo = &note.EncounterObjective{}
	}

	fill(&o.Text, eo.Text)
	fill(&o.Text, note.VitalsNarrative(src.c.Findings.Vitals))

	if eo.Inspection != nil {
		fill(&o.Inspection.Visual, eo.Inspection.Visual)
	}
	if eo.Palpation != nil {
		fill(&o.Palpation.Findings, eo.Palpation.Findings)
	}
	if eo.Neuro != nil {
		fill(&o.Neuro.Screening, eo.Neuro.Screening)
	}
	if eo.Functional != nil {
		fill(&o.Functional.Assessment, eo.Functional.Assessment)
	}
	if eo.TreatmentPerformed != nil {
		tp := eo.TreatmentPerformed
		fill(&o.TreatmentPerformed.ManualTherapy, tp.ManualTherapy)
		fill(&o.TreatmentPerformed.TherapeuticExercise, tp.TherapeuticExercise)
		fill(&o.TreatmentPerformed.Modalities, tp.Modalities)
	}

	if err := mergeRegional(&o.RegionalAssessments, src); err != nil {
		src.log.Debug().Err(err).Msg("regional assessments left unmerged")
	}
	return nil
}

// mergeRegional works on a copy of ra and commits it only if every step
// succeeds.
func mergeRegional(ra *note.RegionalAssessments, src source) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("regional assessments: %v", r)
		}
	}()

	work, err := note.DeepCopy(*ra)
	if err != nil {
		return err
	}
	if err := fillRegional(&work, src); err != nil {
		return fmt.Errorf("regional assessments: %w", err)
	}
	*ra = work
	return nil
}

func fillRegional(ra *note.RegionalAssessments, src source) error {
	findings := src.c.Findings
	var er note.SourceRegional
	if eo := src.evalObjective(); eo != nil && eo.RegionalAssessments != nil {
		er = *eo.RegionalAssessments
	}

	if len(ra.SelectedRegions) == 0 {
		switch {
		case len(er.SelectedRegions) > 0:
			ra.SelectedRegions = regionList(er.SelectedRegions)
		case present(findings.SpecialTests):
			ra.SelectedRegions = regionList(src.c.Meta.Regions)
		}
	}
	if len(ra.PROMExcluded) == 0 && len(er.PROMExcluded) > 0 {
		ra.PROMExcluded = slices.Clone(er.PROMExcluded)
	}

	if ra.ROM.Len() == 0 {
		if raw := firstPresent(er.ROM, findings.ROM); raw != nil {
			t, err := note.TableFromJSON[note.MeasureRow](raw)
			if err != nil {
				return fmt.Errorf("rom: %w", err)
			}
			ra.ROM = t
		}
	}

	if ra.PROM.Len() == 0 && present(er.PROM) {
		t, err := promTable(er.PROM)
		if err != nil {
			return fmt.Errorf("prom: %w", err)
		}
		ra.PROM = t
	}

	if ra.MMT.Len() == 0 {
		if raw := firstPresent(er.MMT, findings.MMT); raw != nil {
			t, err := note.TableFromJSON[note.MeasureRow](raw)
			if err != nil {
				return fmt.Errorf("mmt: %w", err)
			}
			ra.MMT = t
		}
	}
	normalizeMMT(&ra.MMT)

	if ra.SpecialTests.Len() == 0 && present(er.SpecialTests) {
		t, err := note.TableFromJSON[note.SpecialTestRow](er.SpecialTests)
		if err != nil {
			return fmt.Errorf("special tests: %w", err)
		}
		ra.SpecialTests = t
	}
	return nil
}

// normalizeMMT rewrites every left/right grade in place.
func normalizeMMT(t *note.Table[note.MeasureRow]) {
	for _, id := range t.Keys() {
		row, _ := t.Get(id)
		row.Left = note.FlexString(note.NormalizeMmtGrade(row.Left.String()))
		row.Right = note.FlexString(note.NormalizeMmtGrade(row.Right.String()))
		t.Set(id, row)
	}
}

// regionList lowercases, trims and dedupes region names, keeping order.
func regionList(regions []string) []string {
	out := make([]string, 0, len(regions))
	for _, r := range regions {
		r = strings.ToLower(strings.TrimSpace(r))
		if r != "" && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func firstPresent(raws ...json.RawMessage) json.RawMessage {
	for _, raw := range raws {
		if present(raw) {
			return raw
		}
	}
	return nil
}

// shoulderPROM is the side-by-side PROM table layout, in display order.
var shoulderPROM = []struct {
	key    string
	label  string
	normal string
}{
	{"flexion", "Flexion", "180"},
	{"extension", "Extension", "60"},
	{"abduction", "Abduction", "180"},
	{"internal-rotation", "Internal rotation", "70"},
	{"external-rotation", "External rotation", "90"},
}

var movementSeparators = regexp.MustCompile(`[\s_]+`)

// movementKey maps a movement name to its shoulderPROM key, or "".
func movementKey(name string) string {
	k := movementSeparators.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	switch k {
	case "ir":
		return "internal-rotation"
	case "er":
		return "external-rotation"
	}
	for _, m := range shoulderPROM {
		if m.key == k {
			return k
		}
	}
	return ""
}

// promTable converts PROM source data to a table. Arrays and id-keyed
// objects decode directly. Two object forms are laid out as the shoulder
// side-by-side table: {"left": {movement: value}, "right": {...}} and
// {movement: {"left": value, "right": value}}.
func promTable(raw json.RawMessage) (note.Table[note.MeasureRow], error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return note.TableFromJSON[note.MeasureRow](trimmed)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return note.Table[note.MeasureRow]{}, err
	}
	if len(obj) == 0 {
		return note.NewTable[note.MeasureRow](), nil
	}

	left := map[string]note.FlexString{}
	right := map[string]note.FlexString{}
	switch {
	case hasSides(obj):
		if err := decodeSide(obj["left"], left); err != nil {
			return note.Table[note.MeasureRow]{}, fmt.Errorf("left: %w", err)
		}
		if err := decodeSide(obj["right"], right); err != nil {
			return note.Table[note.MeasureRow]{}, fmt.Errorf("right: %w", err)
		}
	case allMovements(obj):
		for name, v := range obj {
			var lr struct {
				Left  note.FlexString `json:"left"`
				Right note.FlexString `json:"right"`
			}
			if err := json.Unmarshal(v, &lr); err != nil {
				return note.Table[note.MeasureRow]{}, fmt.Errorf("%s: %w", name, err)
			}
			key := movementKey(name)
			left[key] = lr.Left
			right[key] = lr.Right
		}
	default:
		return note.TableFromJSON[note.MeasureRow](trimmed)
	}

	t := note.NewTable[note.MeasureRow]()
	for _, m := range shoulderPROM {
		t.Set(m.key, note.MeasureRow{
			Region: "shoulder",
			Motion: m.label,
			Normal: note.FlexString(m.normal),
			Left:   left[m.key],
			Right:  right[m.key],
		})
	}
	return t, nil
}

func hasSides(obj map[string]json.RawMessage) bool {
	found := false
	for _, side := range []string{"left", "right"} {
		v, ok := obj[side]
		if !ok {
			continue
		}
		v = bytes.TrimSpace(v)
		if len(v) == 0 || v[0] != '{' {
			return false
		}
		found = true
	}
	return found
}

func allMovements(obj map[string]json.RawMessage) bool {
	for name := range obj {
		if movementKey(name) == "" {
			return false
		}
	}
	return true
}

// decodeSide reads {movement: value} into dst. Unknown movements are
// ignored.
func decodeSide(raw json.RawMessage, dst map[string]note.FlexString) error {
	if !present(raw) {
		return nil
	}
	var values map[string]note.FlexString
	if err := json.Unmarshal(raw, &values); err != nil {
		return err
	}
	for name, v := range values {
		if key := movementKey(name); key != "" {
			dst[key] = v
		}
	}
	return nil
}
