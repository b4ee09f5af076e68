package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novaguard/novaguard"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file:" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPatientRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.CreatePatient(ctx, Patient{
		Name:                "Ada Lovelace",
		AgeYears:            36,
		IsPregnant:          true,
		EGFR:                88,
		MedicalRecordNumber: "MRN-001",
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	p, err := s.Patient(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", p.Name)
	assert.Equal(t, 36, p.AgeYears)
	assert.True(t, p.IsPregnant)
	assert.False(t, p.IsNursing)
	assert.Equal(t, 88.0, p.EGFR)
	assert.Equal(t, "MRN-001", p.MedicalRecordNumber)
}

func TestPatientNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.Patient(context.Background(), 999)
	assert.ErrorIs(t, err, novaguard.ErrPatientNotFound)

	_, err = s.PatientSnapshot(context.Background(), 999)
	assert.ErrorIs(t, err, novaguard.ErrPatientNotFound)
}

func TestListPatientsOrderedByName(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, name := range []string{"Charlie", "Ada", "Bob"} {
		_, err := s.CreatePatient(ctx, Patient{Name: name})
		require.NoError(t, err)
	}

	patients, err := s.ListPatients(ctx)
	require.NoError(t, err)
	require.Len(t, patients, 3)
	assert.Equal(t, "Ada", patients[0].Name)
	assert.Equal(t, "Bob", patients[1].Name)
	assert.Equal(t, "Charlie", patients[2].Name)
}

func TestPatientSnapshot(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.CreatePatient(ctx, Patient{Name: "Ada", AgeYears: 70})
	require.NoError(t, err)

	require.NoError(t, s.AddDrug(ctx, id, novaguard.DrugRecord{
		DrugName: "warfarin", Dose: "5mg", Frequency: "daily", Active: true,
	}))
	require.NoError(t, s.AddDrug(ctx, id, novaguard.DrugRecord{
		DrugName: "amoxicillin", Dose: "500mg", Frequency: "tid", Active: false,
	}))
	require.NoError(t, s.AddAllergy(ctx, id, novaguard.Allergy{
		Allergen: "penicillin", Type: "drug", Severity: "severe",
	}))
	require.NoError(t, s.AddReaction(ctx, id, novaguard.AdverseReaction{
		DrugName: "warfarin", Symptoms: "bruising", Severity: "moderate",
	}))

	snap, err := s.PatientSnapshot(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, id, snap.ID)
	assert.Equal(t, "Ada", snap.Name)

	require.Len(t, snap.CurrentDrugs, 2)
	assert.Equal(t, "warfarin", snap.CurrentDrugs[0].DrugName)
	assert.True(t, snap.CurrentDrugs[0].Active)
	assert.False(t, snap.CurrentDrugs[1].Active)

	require.Len(t, snap.Allergies, 1)
	assert.Equal(t, "penicillin", snap.Allergies[0].Allergen)

	require.Len(t, snap.AdverseReactions, 1)
	assert.Equal(t, "bruising", snap.AdverseReactions[0].Symptoms)
}

func TestSessionTitleDerivation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	pid, err := s.CreatePatient(ctx, Patient{Name: "Ada"})
	require.NoError(t, err)

	require.NoError(t, s.CreateSession(ctx, "sess-1"))
	require.NoError(t, s.TouchSession(ctx, "sess-1", pid, "check  warfarin 5mg\ndaily"))

	sessions, err := s.ListSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "check warfarin 5mg daily", sessions[0].Title, "whitespace collapses")
	assert.Equal(t, pid, sessions[0].PatientID)

	// The title sticks once set.
	require.NoError(t, s.TouchSession(ctx, "sess-1", pid, "a different question"))
	sessions, err = s.ListSessions(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "check warfarin 5mg daily", sessions[0].Title)
}

func TestSessionTitleTruncation(t *testing.T) {
	long := strings.Repeat("word ", 30)
	got := deriveTitle(long)
	assert.LessOrEqual(t, len([]rune(got)), titleLimit)
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestTouchUnknownSession(t *testing.T) {
	s := testStore(t)
	err := s.TouchSession(context.Background(), "missing", 0, "hello")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAuditTrail(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendAudit(ctx, AuditEntry{
		RunID: "run-1", SessionID: "sess-1", PatientID: 1, Intent: "AUDIT", Status: "red",
	}))
	require.NoError(t, s.AppendAudit(ctx, AuditEntry{
		RunID: "run-2", Intent: "CLINICAL_QUERY", Status: "ok",
	}))

	entries, err := s.RecentAudits(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "run-2", entries[0].RunID)
	assert.Equal(t, "run-1", entries[1].RunID)
	assert.Equal(t, "red", entries[1].Status)
	assert.Equal(t, "AUDIT", entries[1].Intent)
	assert.Empty(t, entries[0].SessionID)
}
