package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ptnote/ptnote/internal/casestore"
	"github.com/ptnote/ptnote/internal/draftstore"
	"github.com/ptnote/ptnote/internal/errors"
	"github.com/ptnote/ptnote/internal/note"
)

// countingCases wraps a memory case store and can be told to fail.
type countingCases struct {
	*casestore.Memory
	creates    atomic.Int32
	updates    atomic.Int32
	failCreate bool
	failUpdate bool
}

func newCountingCases() *countingCases {
	return &countingCases{Memory: casestore.NewMemory()}
}

func (c *countingCases) Create(ctx context.Context, rec *note.CaseRecord) (string, error) {
	c.creates.Add(1)
	if c.failCreate {
		return "", stderrors.New("case store unavailable")
	}
	// Widen the window in which concurrent saves could race.
	time.Sleep(5 * time.Millisecond)
	return c.Memory.Create(ctx, rec)
}

func (c *countingCases) Update(ctx context.Context, id string, rec *note.CaseRecord) error {
	c.updates.Add(1)
	if c.failUpdate {
		return stderrors.New("case store unavailable")
	}
	return c.Memory.Update(ctx, id, rec)
}

// failingDrafts rejects every write.
type failingDrafts struct {
	*draftstore.Memory
}

func (failingDrafts) SetItem(context.Context, string, string) error {
	return stderrors.New("quota exceeded")
}

// renameFailingDrafts cannot move drafts between keys.
type renameFailingDrafts struct {
	*draftstore.Memory
}

func (renameFailingDrafts) Rename(context.Context, string, string) error {
	return stderrors.New("rename unsupported")
}

func testDeps(drafts draftstore.Store, cases casestore.Store) Deps {
	return Deps{
		Drafts: drafts,
		Cases:  cases,
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) },
	}
}

func kneeCase() *note.CaseRecord {
	c := note.NewBlankCaseRecord()
	c.Meta.Title = "Patellofemoral Pain"
	c.History.ChiefComplaint = "Anterior knee pain"
	c.Encounters["eval"] = &note.Encounter{
		Assessment: &note.Assessment{PTDiagnosis: "Patellofemoral pain syndrome"},
	}
	return c
}

func putDraft(t *testing.T, s draftstore.Store, key, value string) {
	t.Helper()
	require.NoError(t, s.SetItem(context.Background(), key, value))
}

func storedDraft(t *testing.T, s draftstore.Store, key string) *note.Draft {
	t.Helper()
	value, ok, err := s.GetItem(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok, "no draft stored under %s", key)
	d, err := note.ParseDraft([]byte(value))
	require.NoError(t, err)
	return d
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeStudent, false},
		{"student", ModeStudent, false},
		{"faculty", ModeFaculty, false},
		{"key", ModeKey, false},
		{"admin", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInitialize_RequiresIDs(t *testing.T) {
	deps := testDeps(draftstore.NewMemory(), nil)
	_, err := Initialize(context.Background(), deps, Options{EncounterID: "eval"})
	require.Error(t, err)
	_, err = Initialize(context.Background(), deps, Options{CaseID: "c1"})
	require.Error(t, err)
}

func TestInitialize_StudentOverlaysPersistedDraft(t *testing.T) {
	ctx := context.Background()
	drafts := draftstore.NewMemory()
	putDraft(t, drafts, "draft_c1_eval", `{
		"subjective": {"chiefComplaint": "Knee pain on stairs"},
		"editorSettings": {"visibility": {"assessment": false}}
	}`)

	s, err := Initialize(ctx, testDeps(drafts, nil), Options{CaseID: "c1", EncounterID: "eval", Mode: ModeStudent, Case: kneeCase()})
	require.NoError(t, err)

	d := s.Draft()
	require.True(t, s.Overlaid())
	require.Equal(t, "draft_c1_eval", s.StorageKey())
	require.Equal(t, "Knee pain on stairs", d.Subjective.ChiefComplaint)
	require.Empty(t, d.Assessment.PTDiagnosis, "student sessions must not see the answer key")
	require.Nil(t, d.EditorSettings, "editor settings are faculty only")
	require.NotNil(t, d.Objective.RegionalAssessments.SelectedRegions)
}

func TestInitialize_FacultyMergesCaseThenOverlay(t *testing.T) {
	ctx := context.Background()
	drafts := draftstore.NewMemory()
	putDraft(t, drafts, "draft_c1_eval", `{
		"subjective": {"chiefComplaint": "Edited by faculty"},
		"editorSettings": {"visibility": {"assessment": false}}
	}`)

	s, err := Initialize(ctx, testDeps(drafts, nil), Options{CaseID: "c1", EncounterID: "eval", Mode: ModeFaculty, Case: kneeCase()})
	require.NoError(t, err)

	d := s.Draft()
	require.Equal(t, "Edited by faculty", d.Subjective.ChiefComplaint, "persisted draft wins outright")
	require.Equal(t, "Patellofemoral pain syndrome", d.Assessment.PTDiagnosis, "sections absent from the persisted draft keep case data")
	require.Equal(t, "Patellofemoral Pain", d.NoteTitle)
	require.NotNil(t, d.EditorSettings)
	require.Equal(t, map[string]bool{"assessment": false}, d.EditorSettings.Visibility)
}

func TestInitialize_KeyModeNeverLoads(t *testing.T) {
	drafts := draftstore.NewMemory()
	putDraft(t, drafts, "draft_c1_eval", `{"subjective": {"chiefComplaint": "stale"}}`)

	s, err := Initialize(context.Background(), testDeps(drafts, nil), Options{CaseID: "c1", EncounterID: "eval", Mode: ModeKey, Case: kneeCase()})
	require.NoError(t, err)

	d := s.Draft()
	require.False(t, s.Overlaid())
	require.Equal(t, "Anterior knee pain", d.Subjective.ChiefComplaint)
	require.Nil(t, d.EditorSettings)
}

func TestInitialize_SkipNewCaseDrafts(t *testing.T) {
	ctx := context.Background()
	drafts := draftstore.NewMemory()
	putDraft(t, drafts, "draft_new_eval", `{"subjective": {"chiefComplaint": "stale new"}}`)
	putDraft(t, drafts, "draft_c1_eval", `{"subjective": {"chiefComplaint": "existing"}}`)
	deps := testDeps(drafts, nil)

	s, err := Initialize(ctx, deps, Options{CaseID: note.NewCaseID, EncounterID: "eval", Mode: ModeFaculty, Case: note.NewBlankCaseRecord(), SkipNewCaseDrafts: true})
	require.NoError(t, err)
	require.False(t, s.Overlaid())
	require.Empty(t, s.Draft().Subjective.ChiefComplaint)

	s, err = Initialize(ctx, deps, Options{CaseID: "c1", EncounterID: "eval", SkipNewCaseDrafts: true})
	require.NoError(t, err)
	require.True(t, s.Overlaid(), "suppression only applies to the new-case path")
	require.Equal(t, "existing", s.Draft().Subjective.ChiefComplaint)

	s, err = Initialize(ctx, deps, Options{CaseID: note.NewCaseID, EncounterID: "eval", Mode: ModeFaculty, Case: note.NewBlankCaseRecord()})
	require.NoError(t, err)
	require.True(t, s.Overlaid())
	require.Equal(t, "stale new", s.Draft().Subjective.ChiefComplaint)
}

func TestInitialize_MalformedDraftIgnored(t *testing.T) {
	for name, payload := range map[string]string{
		"not json":    `{"subjective": `,
		"null":        `null`,
		"wrong shape": `{"subjective": "chief complaint as a string"}`,
	} {
		t.Run(name, func(t *testing.T) {
			drafts := draftstore.NewMemory()
			putDraft(t, drafts, "draft_c1_eval", payload)

			s, err := Initialize(context.Background(), testDeps(drafts, nil), Options{CaseID: "c1", EncounterID: "eval", Mode: ModeFaculty, Case: kneeCase()})
			require.NoError(t, err)
			require.False(t, s.Overlaid())
			require.Equal(t, "Anterior knee pain", s.Draft().Subjective.ChiefComplaint, "engine output stands alone")
		})
	}
}

func TestSave_StudentStampsSavedAt(t *testing.T) {
	ctx := context.Background()
	drafts := draftstore.NewMemory()
	s, err := Initialize(ctx, testDeps(drafts, nil), Options{CaseID: "c1", EncounterID: "daily"})
	require.NoError(t, err)

	s.Edit(func(d *note.Draft) { d.Subjective.ChiefComplaint = "Low back pain" })
	res := s.Save(ctx)

	require.True(t, res.Saved)
	require.False(t, res.CasePersisted)
	require.Equal(t, "draft_c1_daily", res.Key)

	d := storedDraft(t, drafts, "draft_c1_daily")
	require.Equal(t, "Low back pain", d.Subjective.ChiefComplaint)
	require.Equal(t, "2024-03-01T09:30:00Z", d.SavedAt)
}

func TestSave_KeyModeIsNoop(t *testing.T) {
	ctx := context.Background()
	drafts := draftstore.NewMemory()
	cases := newCountingCases()
	s, err := Initialize(ctx, testDeps(drafts, cases), Options{CaseID: "c1", EncounterID: "eval", Mode: ModeKey, Case: kneeCase()})
	require.NoError(t, err)

	res := s.Save(ctx)
	require.True(t, res.Skipped)
	require.False(t, res.Saved)

	keys, err := drafts.Keys(ctx)
	require.NoError(t, err)
	require.Empty(t, keys)
	require.Zero(t, cases.creates.Load()+cases.updates.Load())
}

func TestSave_FacultyPromotesNewCase(t *testing.T) {
	ctx := context.Background()
	drafts := draftstore.NewMemory()
	cases := newCountingCases()
	var promoted []string
	deps := testDeps(drafts, cases)
	deps.OnPromote = func(oldID, newID string) { promoted = append(promoted, oldID, newID) }

	s, err := Initialize(ctx, deps, Options{CaseID: note.NewCaseID, EncounterID: "eval", Mode: ModeFaculty, Case: note.NewBlankCaseRecord()})
	require.NoError(t, err)

	// An earlier local-only save left a draft under the placeholder key.
	putDraft(t, drafts, "draft_new_eval", `{"noteTitle": "earlier"}`)

	s.Edit(func(d *note.Draft) {
		d.NoteTitle = "Ankle sprain"
		d.Assessment.PTDiagnosis = "Lateral ankle sprain, grade II"
	})
	res := s.Save(ctx)

	require.True(t, res.Promoted)
	require.True(t, res.CasePersisted)
	require.True(t, res.Saved)
	require.NotEqual(t, note.NewCaseID, res.CaseID)
	require.Equal(t, note.StorageKey(res.CaseID, "eval"), res.Key)
	require.Equal(t, res.CaseID, s.CaseID())
	require.Equal(t, []string{note.NewCaseID, res.CaseID}, promoted)

	_, ok, err := drafts.GetItem(ctx, "draft_new_eval")
	require.NoError(t, err)
	require.False(t, ok, "placeholder key must be migrated away")
	require.Equal(t, "Lateral ankle sprain, grade II", storedDraft(t, drafts, res.Key).Assessment.PTDiagnosis)

	rec, err := cases.Get(ctx, res.CaseID)
	require.NoError(t, err)
	require.Equal(t, "Lateral ankle sprain, grade II", rec.Encounter("eval").Assessment.PTDiagnosis)

	// The next save updates in place.
	res = s.Save(ctx)
	require.False(t, res.Promoted)
	require.True(t, res.CasePersisted)
	require.EqualValues(t, 1, cases.creates.Load())
	require.EqualValues(t, 1, cases.updates.Load())
}

func TestSave_FailedMigrateRemovesPlaceholderDraft(t *testing.T) {
	ctx := context.Background()
	drafts := renameFailingDrafts{draftstore.NewMemory()}
	cases := newCountingCases()

	s, err := Initialize(ctx, testDeps(drafts, cases), Options{CaseID: note.NewCaseID, EncounterID: "eval", Mode: ModeFaculty, Case: note.NewBlankCaseRecord()})
	require.NoError(t, err)
	putDraft(t, drafts, "draft_new_eval", `{"noteTitle": "earlier"}`)

	s.Edit(func(d *note.Draft) { d.NoteTitle = "Hip OA" })
	res := s.Save(ctx)

	require.True(t, res.Promoted)
	require.True(t, res.Saved)
	require.Equal(t, "Hip OA", storedDraft(t, drafts, res.Key).NoteTitle)

	_, ok, err := drafts.GetItem(ctx, "draft_new_eval")
	require.NoError(t, err)
	require.False(t, ok, "placeholder draft must not outlive the promotion")
}

func TestSave_FacultyEmptyDiagnosisCodesSurviveReopen(t *testing.T) {
	ctx := context.Background()
	drafts := draftstore.NewMemory()
	cases := casestore.NewMemory()
	id, err := cases.Create(ctx, kneeCase())
	require.NoError(t, err)
	rec, err := cases.Get(ctx, id)
	require.NoError(t, err)

	s, err := Initialize(ctx, testDeps(drafts, cases), Options{CaseID: id, EncounterID: "eval", Mode: ModeFaculty, Case: rec})
	require.NoError(t, err)
	s.Edit(func(d *note.Draft) { d.Billing.DiagnosisCodes = []note.DiagnosisCode{} })
	require.True(t, s.Save(ctx).CasePersisted)

	rec, err = cases.Get(ctx, id)
	require.NoError(t, err)
	reopened, err := Initialize(ctx, testDeps(drafts, cases), Options{CaseID: id, EncounterID: "eval", Mode: ModeKey, Case: rec})
	require.NoError(t, err)
	require.Empty(t, reopened.Draft().Billing.DiagnosisCodes)
}

func TestSave_UpdateFailureFallsBackToLocal(t *testing.T) {
	ctx := context.Background()
	drafts := draftstore.NewMemory()
	cases := newCountingCases()
	cases.failUpdate = true

	s, err := Initialize(ctx, testDeps(drafts, cases), Options{CaseID: "c1", EncounterID: "eval", Mode: ModeFaculty, Case: kneeCase()})
	require.NoError(t, err)
	s.Edit(func(d *note.Draft) { d.Plan.Frequency = "2x-week" })

	res := s.Save(ctx)
	require.False(t, res.CasePersisted)
	require.True(t, res.Saved)
	require.Equal(t, "draft_c1_eval", res.Key)
	require.Equal(t, "2x-week", storedDraft(t, drafts, "draft_c1_eval").Plan.Frequency)
}

func TestSave_CreateFailureKeepsPlaceholderKey(t *testing.T) {
	ctx := context.Background()
	drafts := draftstore.NewMemory()
	cases := newCountingCases()
	cases.failCreate = true

	s, err := Initialize(ctx, testDeps(drafts, cases), Options{CaseID: note.NewCaseID, EncounterID: "eval", Mode: ModeFaculty, Case: note.NewBlankCaseRecord()})
	require.NoError(t, err)

	res := s.Save(ctx)
	require.False(t, res.Promoted)
	require.True(t, res.Saved)
	require.Equal(t, note.NewCaseID, s.CaseID())
	require.Equal(t, "draft_new_eval", res.Key)
	storedDraft(t, drafts, "draft_new_eval")
}

func TestSave_LocalFailureIsAbsorbed(t *testing.T) {
	ctx := context.Background()
	s, err := Initialize(ctx, testDeps(failingDrafts{draftstore.NewMemory()}, nil), Options{CaseID: "c1", EncounterID: "eval"})
	require.NoError(t, err)

	res := s.Save(ctx)
	require.False(t, res.Saved)
}

func TestSave_ConcurrentSavesPromoteOnce(t *testing.T) {
	ctx := context.Background()
	drafts := draftstore.NewMemory()
	cases := newCountingCases()
	var promotions atomic.Int32
	deps := testDeps(drafts, cases)
	deps.OnPromote = func(string, string) { promotions.Add(1) }

	s, err := Initialize(ctx, deps, Options{CaseID: note.NewCaseID, EncounterID: "eval", Mode: ModeFaculty, Case: note.NewBlankCaseRecord()})
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	results := make([]SaveResult, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.Save(ctx)
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, cases.creates.Load())
	require.EqualValues(t, n-1, cases.updates.Load())
	require.EqualValues(t, 1, promotions.Load())

	list, err := cases.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	keys, err := drafts.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{note.StorageKey(list[0].ID, "eval")}, keys)
	for _, r := range results {
		require.Equal(t, list[0].ID, r.CaseID)
	}
}

func TestResetDraft(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, confirm ConfirmFunc) (*Session, draftstore.Store) {
		drafts := draftstore.NewMemory()
		putDraft(t, drafts, "draft_c1_eval", `{"subjective": {"chiefComplaint": "saved"}}`)
		deps := testDeps(drafts, nil)
		deps.Confirm = confirm
		s, err := Initialize(ctx, deps, Options{CaseID: "c1", EncounterID: "eval"})
		require.NoError(t, err)
		return s, drafts
	}

	t.Run("confirmed", func(t *testing.T) {
		s, drafts := setup(t, func(context.Context, string) (bool, error) { return true, nil })
		ok, err := s.ResetDraft(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Empty(t, s.Draft().Subjective.ChiefComplaint)
		_, found, err := drafts.GetItem(ctx, "draft_c1_eval")
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("declined", func(t *testing.T) {
		s, drafts := setup(t, func(context.Context, string) (bool, error) { return false, nil })
		ok, err := s.ResetDraft(ctx)
		require.NoError(t, err)
		require.False(t, ok)
		require.Equal(t, "saved", s.Draft().Subjective.ChiefComplaint)
		_, found, err := drafts.GetItem(ctx, "draft_c1_eval")
		require.NoError(t, err)
		require.True(t, found)
	})

	t.Run("no confirmer", func(t *testing.T) {
		s, _ := setup(t, nil)
		ok, err := s.ResetDraft(ctx)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("confirm error", func(t *testing.T) {
		s, _ := setup(t, func(context.Context, string) (bool, error) { return false, context.Canceled })
		ok, err := s.ResetDraft(ctx)
		require.ErrorIs(t, err, context.Canceled)
		require.False(t, ok)
	})
}

func TestDraft_ReturnsCopy(t *testing.T) {
	s, err := Initialize(context.Background(), testDeps(draftstore.NewMemory(), nil), Options{CaseID: "c1", EncounterID: "eval"})
	require.NoError(t, err)

	d := s.Draft()
	d.NoteTitle = "changed outside"
	require.Empty(t, s.Draft().NoteTitle)

	require.NoError(t, s.Overlay([]byte(`{"noteTitle": "changed outside", "editorSettings": {"visibility": {}}}`)))
	require.Equal(t, "changed outside", s.Draft().NoteTitle)

	err = s.Overlay([]byte(`{"plan": []}`))
	require.True(t, errors.Is(err, errors.ErrMalformedDraft))
	require.Equal(t, "changed outside", s.Draft().NoteTitle)

	data, err := json.Marshal(s.Draft())
	require.NoError(t, err)
	require.NotContains(t, string(data), "editorSettings")
}
