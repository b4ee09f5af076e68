package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/novaguard/novaguard"
	"github.com/novaguard/novaguard/provider"
	"github.com/novaguard/novaguard/workflow"
)

const classifyPrompt = `You are the intent router for a pharmacy safety assistant.
Classify the pharmacist's message as exactly one of:

AUDIT - a new prescription to check before dispensing
CLINICAL_QUERY - a question about the selected patient's history, allergies, or current medications
MEDICAL_KNOWLEDGE - a general drug question that needs no patient record

Reply with the single category word and nothing else.`

// classifyStep asks the model which path the request takes. An
// unrecognized reply falls back to the conversational path rather than
// failing the run.
func classifyStep(deps Deps, in Input) workflow.Step {
	return workflow.NewFuncStep(stepClassify, func(ctx context.Context, _ *workflow.State) (workflow.Fields, error) {
		reply, err := deps.Chat.Chat(ctx, []provider.Message{
			provider.System(classifyPrompt),
			provider.User(in.Text),
		})
		if err != nil {
			return nil, fmt.Errorf("classifying request: %w", err)
		}
		intent := novaguard.ParseIntent(reply)
		deps.Log.Debug("classified request", "intent", intent)
		return workflow.Fields{"intent": string(intent)}, nil
	})
}

// prescriptionPattern matches "amoxicillin 500mg three times daily" and
// the common prefixed forms ("rx: ...", "prescribe ..."). Group 1 is the
// drug, group 2 the dose, group 3 the remaining frequency text.
var prescriptionPattern = regexp.MustCompile(
	`(?i)(?:prescribe|dispense|rx:?|give)?\s*([a-z][a-z-]{2,})\s+(\d+(?:\.\d+)?\s*(?:mcg|mg|g|ml|units?))(?:\s+(.+))?$`)

// intakeStep extracts the prescription from free text. Unparsable input
// is a user error, not a system fault: the run ends with a message the
// pharmacist can act on.
func intakeStep(in Input) workflow.Step {
	return workflow.NewFuncStep(stepIntake, func(_ context.Context, _ *workflow.State) (workflow.Fields, error) {
		m := prescriptionPattern.FindStringSubmatch(strings.TrimSpace(in.Text))
		if m == nil {
			return nil, &novaguard.UserError{
				Msg:   "I couldn't read a drug name and dose from that. Try e.g. \"amoxicillin 500mg three times daily\".",
				Cause: novaguard.ErrUnparsableInput,
			}
		}
		p := novaguard.Prescription{
			DrugName:  strings.ToLower(m[1]),
			Dose:      strings.ReplaceAll(m[2], " ", ""),
			Frequency: strings.TrimSpace(m[3]),
		}
		if p.Frequency == "" {
			p.Frequency = "as directed"
		}
		return workflow.Fields{"prescription": p}, nil
	})
}

// fetchPatientStep records the pre-resolved patient snapshot into run
// state. It is internal: the snapshot landing in state is bookkeeping,
// not user-visible progress. An audit without a selected patient stops
// here.
func fetchPatientStep(in Input) workflow.Step {
	return workflow.NewFuncStep(stepFetchPatient, func(_ context.Context, s *workflow.State) (workflow.Fields, error) {
		if !in.HasPatient {
			if Intent(s) == novaguard.IntentAudit {
				return nil, &novaguard.UserError{
					Msg:   "Select a patient before running a safety audit.",
					Cause: novaguard.ErrPatientNotFound,
				}
			}
			return workflow.Fields{"found": false}, nil
		}
		return workflow.Fields{"found": true, "profile": in.Profile}, nil
	})
}

// auditStep checks the prescription against the patient's own record:
// allergies, prior adverse reactions, and duplicate therapy.
func auditStep(in Input) workflow.Step {
	return workflow.NewFuncStep(stepAudit, func(_ context.Context, s *workflow.State) (workflow.Fields, error) {
		p := prescriptionOf(s)
		drug := strings.ToLower(p.DrugName)
		var flags []novaguard.SafetyFlag

		for _, a := range in.Profile.Allergies {
			allergen := strings.ToLower(a.Allergen)
			if allergen == "" {
				continue
			}
			if strings.Contains(drug, allergen) || strings.Contains(allergen, drug) {
				flags = append(flags, novaguard.SafetyFlag{
					Severity: novaguard.SeverityCritical,
					Category: "allergy",
					Message:  fmt.Sprintf("Patient has a documented %s allergy (%s)", a.Allergen, a.Severity),
					Source:   "patient record",
				})
			}
		}

		for _, r := range in.Profile.AdverseReactions {
			if strings.EqualFold(r.DrugName, p.DrugName) {
				flags = append(flags, novaguard.SafetyFlag{
					Severity: novaguard.SeverityWarning,
					Category: "adverse_reaction_history",
					Message:  fmt.Sprintf("Prior adverse reaction to %s: %s", r.DrugName, r.Symptoms),
					Source:   "patient record",
				})
			}
		}

		for _, d := range in.Profile.CurrentDrugs {
			if d.Active && strings.EqualFold(d.DrugName, p.DrugName) {
				flags = append(flags, novaguard.SafetyFlag{
					Severity: novaguard.SeverityWarning,
					Category: "duplicate_therapy",
					Message:  fmt.Sprintf("Patient already takes %s %s %s", d.DrugName, d.Dose, d.Frequency),
					Source:   "patient record",
				})
			}
		}

		return workflow.Fields{"flags": flags}, nil
	})
}

// lookupStep pulls the FDA label checks. The drug name goes through
// RxNorm first so brand names and misspellings hit the same label; a
// normalization failure falls back to the raw name rather than failing
// the audit.
func lookupStep(deps Deps) workflow.Step {
	return workflow.NewFuncStep(stepLookup, func(ctx context.Context, s *workflow.State) (workflow.Fields, error) {
		p := prescriptionOf(s)
		name := p.DrugName

		if deps.RxNorm != nil {
			n, err := deps.RxNorm.Normalize(ctx, name)
			switch {
			case err != nil:
				deps.Log.Warn("rxnorm normalization failed", "drug", name, "error", err)
			case n != nil:
				deps.Log.Debug("normalized drug name", "input", name, "preferred", n.PreferredName, "tty", n.TTY)
				name = n.PreferredName
			}
		}

		profile := profileOf(s)
		flags, err := deps.FDA.RunAllChecks(ctx, name, profile)
		if err != nil {
			return nil, fmt.Errorf("fetching FDA label data: %w", err)
		}
		return workflow.Fields{"flags": flags, "normalizedName": name}, nil
	})
}

// verdictStep folds both flag sets into the dispensing recommendation.
func verdictStep() workflow.Step {
	return workflow.NewFuncStep(stepVerdict, func(_ context.Context, s *workflow.State) (workflow.Fields, error) {
		audit := flagsAt(s, stepAudit)
		lookup := flagsAt(s, stepLookup)
		flags := make([]novaguard.SafetyFlag, 0, len(audit)+len(lookup))
		flags = append(flags, audit...)
		flags = append(flags, lookup...)
		v := novaguard.NewVerdict(flags)
		return workflow.Fields{"verdict": v}, nil
	})
}

// profileOf reads the patient snapshot back out of run state.
func profileOf(s *workflow.State) novaguard.PatientProfile {
	v, _ := s.Value(stepFetchPatient, "profile")
	p, _ := v.(novaguard.PatientProfile)
	return p
}
