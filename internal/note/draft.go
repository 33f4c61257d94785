package note

import (
	"encoding/json"
	"fmt"
)

// Draft is the working SOAP note a student or faculty member edits.
// Every field path exists after NewDefaultDraft; mergers never need to check
// for missing containers.
type Draft struct {
	NoteTitle      string          `json:"noteTitle"`
	SavedAt        string          `json:"savedAt,omitempty"`
	Subjective     Subjective      `json:"subjective"`
	Objective      Objective       `json:"objective"`
	Assessment     Assessment      `json:"assessment"`
	Plan           Plan            `json:"plan"`
	Billing        Billing         `json:"billing"`
	EditorSettings *EditorSettings `json:"editorSettings,omitempty"`
}

// Subjective holds the patient-reported history fields.
type Subjective struct {
	ChiefComplaint          string `json:"chiefComplaint"`
	HistoryOfPresentIllness string `json:"historyOfPresentIllness"`
	PainLocation            string `json:"painLocation"`
	PainScale               string `json:"painScale"`
	PainQuality             string `json:"painQuality"`
	PainPattern             string `json:"painPattern"`
	AggravatingFactors      string `json:"aggravatingFactors"`
	EasingFactors           string `json:"easingFactors"`
	MedicalHistory          string `json:"medicalHistory"`
	Medications             string `json:"medications"`
	RedFlags                string `json:"redFlags"`
	PatientGoals            string `json:"patientGoals"`
}

// Objective holds measured findings and the treatment performed.
type Objective struct {
	Text                string              `json:"text"`
	Inspection          Inspection          `json:"inspection"`
	Palpation           Palpation           `json:"palpation"`
	Neuro               Neuro               `json:"neuro"`
	Functional          Functional          `json:"functional"`
	TreatmentPerformed  TreatmentPerformed  `json:"treatmentPerformed"`
	RegionalAssessments RegionalAssessments `json:"regionalAssessments"`
}

type Inspection struct {
	Visual string `json:"visual"`
}

type Palpation struct {
	Findings string `json:"findings"`
}

type Neuro struct {
	Screening string `json:"screening"`
}

type Functional struct {
	Assessment string `json:"assessment"`
}

type TreatmentPerformed struct {
	ManualTherapy       string `json:"manualTherapy"`
	TherapeuticExercise string `json:"therapeuticExercise"`
	Modalities          string `json:"modalities"`
}

// RegionalAssessments holds the per-region measurement tables.
type RegionalAssessments struct {
	SelectedRegions []string              `json:"selectedRegions"`
	ROM             Table[MeasureRow]     `json:"rom"`
	PROM            Table[MeasureRow]     `json:"prom"`
	PROMExcluded    []string              `json:"promExcluded"`
	MMT             Table[MeasureRow]     `json:"mmt"`
	SpecialTests    Table[SpecialTestRow] `json:"specialTests"`
}

// Assessment holds the clinical reasoning fields.
type Assessment struct {
	PrimaryImpairments        string `json:"primaryImpairments"`
	BodyFunctions             string `json:"bodyFunctions"`
	ActivityLimitations       string `json:"activityLimitations"`
	ParticipationRestrictions string `json:"participationRestrictions"`
	PTDiagnosis               string `json:"ptDiagnosis"`
	Prognosis                 string `json:"prognosis"`
	PrognosticFactors         string `json:"prognosticFactors"`
}

// Plan holds the plan of care.
type Plan struct {
	Interventions    string             `json:"interventions"`
	Frequency        string             `json:"frequency"`
	Duration         string             `json:"duration"`
	ShortTermGoals   string             `json:"shortTermGoals"`
	LongTermGoals    string             `json:"longTermGoals"`
	PatientEducation string             `json:"patientEducation"`
	ExerciseTable    Table[ExerciseRow] `json:"exerciseTable"`
	GoalsTable       Table[GoalRow]     `json:"goalsTable"`
}

// Billing holds coding and justification.
type Billing struct {
	DiagnosisCodes       []DiagnosisCode `json:"diagnosisCodes"`
	BillingCodes         []BillingCode   `json:"billingCodes"`
	OrdersReferrals      []OrderReferral `json:"ordersReferrals"`
	SkilledJustification string          `json:"skilledJustification"`
	TreatmentNotes       string          `json:"treatmentNotes"`
}

// EditorSettings is faculty-only state controlling what students see.
type EditorSettings struct {
	Visibility map[string]bool `json:"visibility"`
}

// MeasureRow is one row of a ROM, PROM or MMT table.
type MeasureRow struct {
	Region string     `json:"region"`
	Motion string     `json:"motion"`
	Normal FlexString `json:"normal"`
	Left   FlexString `json:"left"`
	Right  FlexString `json:"right"`
	Notes  string     `json:"notes"`
}

type SpecialTestRow struct {
	Region string     `json:"region"`
	Name   string     `json:"name"`
	Left   FlexString `json:"left"`
	Right  FlexString `json:"right"`
	Result string     `json:"result"`
	Notes  string     `json:"notes"`
}

type ExerciseRow struct {
	Exercise  string     `json:"exercise"`
	Sets      FlexString `json:"sets"`
	Reps      FlexString `json:"reps"`
	Load      string     `json:"load"`
	Frequency string     `json:"frequency"`
	Notes     string     `json:"notes"`
}

// GoalRow is one row of the plan goals table. Term is "short" or "long".
type GoalRow struct {
	GoalText  string `json:"goalText"`
	Term      string `json:"term"`
	Timeframe string `json:"timeframe"`
}

type DiagnosisCode struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	IsPrimary   bool   `json:"isPrimary"`
}

type BillingCode struct {
	Code        string     `json:"code"`
	Description string     `json:"description"`
	Units       FlexString `json:"units"`
	TimeSpent   string     `json:"timeSpent"`
}

type OrderReferral struct {
	Type    string `json:"type"`
	Details string `json:"details"`
}

// NewDefaultDraft returns a draft with every container present and empty.
// Billing lists start with one blank placeholder row each.
func NewDefaultDraft() *Draft {
	d := &Draft{
		EditorSettings: &EditorSettings{Visibility: map[string]bool{}},
	}
	d.EnsureShape()
	return d
}

// EnsureShape fills in any containers a decode left nil. It never touches
// populated values and does not create EditorSettings.
func (d *Draft) EnsureShape() {
	ra := &d.Objective.RegionalAssessments
	if ra.SelectedRegions == nil {
		ra.SelectedRegions = []string{}
	}
	if ra.PROMExcluded == nil {
		ra.PROMExcluded = []string{}
	}
	ra.ROM.init()
	ra.PROM.init()
	ra.MMT.init()
	ra.SpecialTests.init()

	d.Plan.ExerciseTable.init()
	d.Plan.GoalsTable.init()

	if d.Billing.DiagnosisCodes == nil {
		d.Billing.DiagnosisCodes = []DiagnosisCode{{}}
	}
	if d.Billing.BillingCodes == nil {
		d.Billing.BillingCodes = []BillingCode{{}}
	}
	if d.Billing.OrdersReferrals == nil {
		d.Billing.OrdersReferrals = []OrderReferral{{}}
	}

	if d.EditorSettings != nil && d.EditorSettings.Visibility == nil {
		d.EditorSettings.Visibility = map[string]bool{}
	}
}

// Clone returns a deep copy of the draft.
func (d *Draft) Clone() *Draft {
	c, err := DeepCopy(d)
	if err != nil {
		// Every field of Draft round-trips through JSON.
		panic(fmt.Sprintf("note: clone draft: %v", err))
	}
	return c
}

// DeepCopy copies v through its JSON form.
func DeepCopy[T any](v T) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}

// ParseDraft decodes a persisted draft. The result is normalized to the full
// shape; missing sections take their default values.
func ParseDraft(data []byte) (*Draft, error) {
	d := NewDefaultDraft()
	d.EditorSettings = nil
	if err := OverlayDraft(d, data); err != nil {
		return nil, err
	}
	return d, nil
}

// OverlayDraft applies a persisted draft on top of base. Every top-level
// section present in data replaces base's section outright; parts of that
// section missing from data take their empty defaults. Sections absent from
// data are left as they are. On error base is unchanged.
func OverlayDraft(base *Draft, data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("draft is null")
	}

	next := *base
	def := NewDefaultDraft()

	if v, ok := raw["noteTitle"]; ok {
		if err := decodeNullable(v, &next.NoteTitle); err != nil {
			return fmt.Errorf("noteTitle: %w", err)
		}
	}
	if v, ok := raw["savedAt"]; ok {
		if err := decodeNullable(v, &next.SavedAt); err != nil {
			return fmt.Errorf("savedAt: %w", err)
		}
	}
	if v, ok := raw["subjective"]; ok {
		s := def.Subjective
		if err := decodeNullable(v, &s); err != nil {
			return fmt.Errorf("subjective: %w", err)
		}
		next.Subjective = s
	}
	if v, ok := raw["objective"]; ok {
		o := def.Objective
		if err := decodeNullable(v, &o); err != nil {
			return fmt.Errorf("objective: %w", err)
		}
		next.Objective = o
	}
	if v, ok := raw["assessment"]; ok {
		a := def.Assessment
		if err := decodeNullable(v, &a); err != nil {
			return fmt.Errorf("assessment: %w", err)
		}
		next.Assessment = a
	}
	if v, ok := raw["plan"]; ok {
		p := def.Plan
		if err := decodeNullable(v, &p); err != nil {
			return fmt.Errorf("plan: %w", err)
		}
		next.Plan = p
	}
	if v, ok := raw["billing"]; ok {
		b := Billing{}
		if err := decodeNullable(v, &b); err != nil {
			return fmt.Errorf("billing: %w", err)
		}
		next.Billing = b
	}
	if v, ok := raw["editorSettings"]; ok {
		var es *EditorSettings
		if err := json.Unmarshal(v, &es); err != nil {
			return fmt.Errorf("editorSettings: %w", err)
		}
		next.EditorSettings = es
	}

	next.EnsureShape()
	*base = next
	return nil
}

func decodeNullable(data json.RawMessage, dst any) error {
	if string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, dst)
}
