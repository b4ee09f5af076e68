package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/novaguard/novaguard"
	"github.com/novaguard/novaguard/provider"
	"github.com/novaguard/novaguard/workflow"
)

const respondPrompt = `You are a clinical assistant for a licensed pharmacist.
Answer concisely and factually. Cite the patient record when it is provided.
If you are not sure, say so; never invent patient data.`

// respondStep generates the conversational answer for the query paths.
// Clinical queries get the patient snapshot as context; general
// knowledge questions go to the model bare.
func respondStep(deps Deps, in Input) workflow.Step {
	return workflow.NewFuncStep(stepRespond, func(ctx context.Context, s *workflow.State) (workflow.Fields, error) {
		msgs := []provider.Message{provider.System(respondPrompt)}
		if Intent(s) == novaguard.IntentClinicalQuery && in.HasPatient {
			msgs = append(msgs, provider.System("Patient record:\n"+summarize(in.Profile)))
		}
		msgs = append(msgs, provider.User(in.Text))

		reply, err := deps.Chat.Chat(ctx, msgs)
		if err != nil {
			return nil, fmt.Errorf("generating answer: %w", err)
		}
		return workflow.Fields{"reply": reply}, nil
	})
}

// summarize renders the snapshot as the plain-text block the model sees.
func summarize(p novaguard.PatientProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\nAge: %d\n", p.Name, p.AgeYears)
	if p.IsPregnant {
		b.WriteString("Pregnant: yes\n")
	}
	if p.IsNursing {
		b.WriteString("Nursing: yes\n")
	}
	if p.EGFR > 0 {
		fmt.Fprintf(&b, "eGFR: %.0f\n", p.EGFR)
	}

	if len(p.CurrentDrugs) > 0 {
		b.WriteString("Current medications:\n")
		for _, d := range p.CurrentDrugs {
			status := "active"
			if !d.Active {
				status = "discontinued"
			}
			fmt.Fprintf(&b, "- %s %s %s (%s)\n", d.DrugName, d.Dose, d.Frequency, status)
		}
	}
	if len(p.Allergies) > 0 {
		b.WriteString("Allergies:\n")
		for _, a := range p.Allergies {
			fmt.Fprintf(&b, "- %s (%s, %s)\n", a.Allergen, a.Type, a.Severity)
		}
	}
	if len(p.AdverseReactions) > 0 {
		b.WriteString("Past adverse reactions:\n")
		for _, r := range p.AdverseReactions {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", r.DrugName, r.Symptoms, r.Severity)
		}
	}
	return b.String()
}

// Finish derives the terminal complete payload from the final run state.
// Audit runs report the verdict status; query runs report "ok" and the
// generated reply.
func Finish(s *workflow.State) (string, map[string]any) {
	fields := map[string]any{
		"intent": string(Intent(s)),
	}
	if s.Ran(stepVerdict) {
		v, _ := s.Value(stepVerdict, "verdict")
		verdict, _ := v.(novaguard.Verdict)
		fields["verdict"] = verdict
		if p := prescriptionOf(s); p.DrugName != "" {
			fields["prescription"] = p
		}
		return string(verdict.Status), fields
	}
	if reply := s.String(stepRespond, "reply"); reply != "" {
		fields["reply"] = reply
	}
	return "ok", fields
}
