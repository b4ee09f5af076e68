// Package pipeline assembles the clinical workflow: classify the
// pharmacist's request, extract the prescription, audit it against the
// patient snapshot and FDA label data, and produce a verdict or a
// conversational answer.
//
// The pipeline is built per run from plain input values. The patient
// profile is resolved by the caller before streaming starts; no step
// touches the database or the request scope.
package pipeline

import (
	"log/slog"

	"github.com/novaguard/novaguard"
	"github.com/novaguard/novaguard/fda"
	"github.com/novaguard/novaguard/provider"
	"github.com/novaguard/novaguard/workflow"
)

// Step names as they appear on the wire in progress events.
const (
	stepClassify     = "classify"
	stepIntake       = "intake"
	stepFetchPatient = "_fetch_patient"
	stepAudit        = "audit"
	stepLookup       = "lookup"
	stepVerdict      = "verdict"
	stepRespond      = "respond"
)

// Deps are the long-lived collaborators shared across runs.
type Deps struct {
	Chat   provider.Chat
	FDA    *fda.Client
	RxNorm *fda.RxNorm
	Log    *slog.Logger
}

// Input is one run's resolved input. Profile is a snapshot taken before
// the run starts; HasPatient distinguishes "no patient selected" from a
// zero-valued profile.
type Input struct {
	Text       string
	Profile    novaguard.PatientProfile
	HasPatient bool
}

// New builds the workflow for one run.
func New(deps Deps, in Input) *workflow.Pipeline {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	isAudit := func(s *workflow.State) bool {
		return Intent(s) == novaguard.IntentAudit
	}
	isQuery := func(s *workflow.State) bool {
		return Intent(s) != novaguard.IntentAudit
	}

	return workflow.New("clinical",
		workflow.Always(classifyStep(deps, in)),
		workflow.When(intakeStep(in), isAudit),
		workflow.Always(fetchPatientStep(in)),
		workflow.When(auditStep(in), isAudit),
		workflow.When(lookupStep(deps), isAudit),
		workflow.When(verdictStep(), isAudit),
		workflow.When(respondStep(deps, in), isQuery),
	)
}

// Intent reads the classified intent back out of run state.
func Intent(s *workflow.State) novaguard.Intent {
	return novaguard.Intent(s.String(stepClassify, "intent"))
}

// prescriptionOf reads the extracted prescription out of run state.
func prescriptionOf(s *workflow.State) novaguard.Prescription {
	v, _ := s.Value(stepIntake, "prescription")
	p, _ := v.(novaguard.Prescription)
	return p
}

// flagsAt reads a step's safety flags out of run state.
func flagsAt(s *workflow.State, step string) []novaguard.SafetyFlag {
	v, _ := s.Value(step, "flags")
	flags, _ := v.([]novaguard.SafetyFlag)
	return flags
}
