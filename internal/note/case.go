package note

import (
	"encoding/json"
	"fmt"
)

// CaseRecord is a faculty-authored clinical case, including the answer key
// for each encounter.
type CaseRecord struct {
	ID         string                `json:"id,omitempty"`
	Meta       CaseMeta              `json:"meta"`
	Snapshot   Snapshot              `json:"snapshot"`
	History    History               `json:"history"`
	Findings   Findings              `json:"findings"`
	Encounters map[string]*Encounter `json:"encounters"`
}

type CaseMeta struct {
	Title     string   `json:"title"`
	Setting   string   `json:"setting"`
	Acuity    string   `json:"acuity"`
	Regions   []string `json:"regions"`
	Generated bool     `json:"generated,omitempty"`
}

type Snapshot struct {
	Age    FlexString `json:"age"`
	Sex    string     `json:"sex"`
	Teaser string     `json:"teaser"`
}

type History struct {
	ChiefComplaint  string     `json:"chief_complaint"`
	HPI             string     `json:"hpi"`
	PMH             TextOrList `json:"pmh"`
	Meds            TextOrList `json:"meds"`
	RedFlagSignals  TextOrList `json:"red_flag_signals"`
	FunctionalGoals TextOrList `json:"functional_goals"`
	Pain            *Pain      `json:"pain,omitempty"`
}

type Pain struct {
	Location           string     `json:"location"`
	Level              FlexString `json:"level"`
	Quality            string     `json:"quality"`
	Pattern            string     `json:"pattern"`
	AggravatingFactors string     `json:"aggravating_factors"`
	EasingFactors      string     `json:"easing_factors"`
}

// Findings holds case-level measurements. The ROM, MMT and special test
// payloads vary by generator (arrays of rows or id-keyed objects) and are
// kept raw until merged.
type Findings struct {
	Vitals       *Vitals         `json:"vitals,omitempty"`
	ROM          json.RawMessage `json:"rom,omitempty"`
	MMT          json.RawMessage `json:"mmt,omitempty"`
	SpecialTests json.RawMessage `json:"special_tests,omitempty"`
}

type Vitals struct {
	BP   FlexString `json:"bp"`
	HR   FlexString `json:"hr"`
	RR   FlexString `json:"rr"`
	Temp FlexString `json:"temp"`
	SpO2 FlexString `json:"spo2"`
	Pain FlexString `json:"pain"`
}

// Encounter is the answer key for one visit. Nil sections are absent.
type Encounter struct {
	Subjective *Subjective         `json:"subjective,omitempty"`
	Objective  *EncounterObjective `json:"objective,omitempty"`
	Assessment *Assessment         `json:"assessment,omitempty"`
	Plan       *EncounterPlan      `json:"plan,omitempty"`
	Billing    *EncounterBilling   `json:"billing,omitempty"`
}

type EncounterObjective struct {
	Text                string              `json:"text,omitempty"`
	Inspection          *Inspection         `json:"inspection,omitempty"`
	Palpation           *Palpation          `json:"palpation,omitempty"`
	Neuro               *Neuro              `json:"neuro,omitempty"`
	Functional          *Functional         `json:"functional,omitempty"`
	TreatmentPerformed  *TreatmentPerformed `json:"treatmentPerformed,omitempty"`
	RegionalAssessments *SourceRegional     `json:"regionalAssessments,omitempty"`
}

// SourceRegional is the regional assessment block of an answer key. Tables
// are kept raw because PROM in particular arrives in several shapes.
type SourceRegional struct {
	SelectedRegions []string        `json:"selectedRegions,omitempty"`
	ROM             json.RawMessage `json:"rom,omitempty"`
	PROM            json.RawMessage `json:"prom,omitempty"`
	PROMExcluded    []string        `json:"promExcluded,omitempty"`
	MMT             json.RawMessage `json:"mmt,omitempty"`
	SpecialTests    json.RawMessage `json:"specialTests,omitempty"`
}

type EncounterPlan struct {
	TreatmentPlan    string          `json:"treatmentPlan,omitempty"`
	Interventions    TextOrList      `json:"interventions"`
	Frequency        string          `json:"frequency,omitempty"`
	Duration         string          `json:"duration,omitempty"`
	ShortTermGoals   string          `json:"shortTermGoals,omitempty"`
	LongTermGoals    string          `json:"longTermGoals,omitempty"`
	PatientEducation string          `json:"patientEducation,omitempty"`
	ExerciseTable    json.RawMessage `json:"exerciseTable,omitempty"`
	GoalsTable       json.RawMessage `json:"goalsTable,omitempty"`
}

// EncounterBilling lists are nil when the answer key does not carry them.
// An empty, non-nil list is an explicit "no codes" and must survive a store
// round trip, so these fields are never omitted.
type EncounterBilling struct {
	DiagnosisCodes       []DiagnosisCode `json:"diagnosisCodes"`
	BillingCodes         []BillingCode   `json:"billingCodes"`
	OrdersReferrals      []OrderReferral `json:"ordersReferrals"`
	SkilledJustification string          `json:"skilledJustification,omitempty"`
	TreatmentNotes       string          `json:"treatmentNotes,omitempty"`
}

// NewBlankCaseRecord returns the starting record for a case authored from
// scratch.
func NewBlankCaseRecord() *CaseRecord {
	return &CaseRecord{
		Meta: CaseMeta{
			Setting: "Outpatient",
			Acuity:  "acute",
			Regions: []string{},
		},
		Encounters: map[string]*Encounter{},
	}
}

// Encounter returns the answer key for id, or nil.
func (c *CaseRecord) Encounter(id string) *Encounter {
	if c == nil || c.Encounters == nil {
		return nil
	}
	return c.Encounters[id]
}

// Clone returns a deep copy of the record.
func (c *CaseRecord) Clone() (*CaseRecord, error) {
	return DeepCopy(c)
}

// EncounterFromDraft converts the five note sections of d into an answer
// key, the shape written back to the case store on a faculty save.
func EncounterFromDraft(d *Draft) (*Encounter, error) {
	sections := struct {
		Subjective Subjective `json:"subjective"`
		Objective  Objective  `json:"objective"`
		Assessment Assessment `json:"assessment"`
		Plan       Plan       `json:"plan"`
		Billing    Billing    `json:"billing"`
	}{d.Subjective, d.Objective, d.Assessment, d.Plan, d.Billing}

	data, err := json.Marshal(sections)
	if err != nil {
		return nil, fmt.Errorf("encode sections: %w", err)
	}
	var enc Encounter
	if err := json.Unmarshal(data, &enc); err != nil {
		return nil, fmt.Errorf("decode encounter: %w", err)
	}
	return &enc, nil
}

// ParseCaseRecord decodes a stored case payload.
func ParseCaseRecord(data []byte) (*CaseRecord, error) {
	var c CaseRecord
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c.Encounters == nil {
		c.Encounters = map[string]*Encounter{}
	}
	return &c, nil
}
