package novaguard

import "strings"

// Intent classifies what the pharmacist is trying to do.
type Intent string

const (
	// IntentAudit is a new prescription that needs the full safety audit.
	IntentAudit Intent = "AUDIT"

	// IntentClinicalQuery is a question about the selected patient's
	// history, allergies, or current medications.
	IntentClinicalQuery Intent = "CLINICAL_QUERY"

	// IntentMedicalKnowledge is a general drug question with no patient
	// context required (dosage, mechanism, side effects).
	IntentMedicalKnowledge Intent = "MEDICAL_KNOWLEDGE"
)

// ParseIntent normalizes a raw classifier reply into an Intent.
// Models sometimes answer "Intent: AUDIT" or lowercase; substring
// matching keeps the router tolerant. Unrecognized replies default to
// IntentClinicalQuery, the safest conversational path.
func ParseIntent(raw string) Intent {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "AUDIT"):
		return IntentAudit
	case strings.Contains(s, "KNOWLEDGE"):
		return IntentMedicalKnowledge
	case strings.Contains(s, "QUERY"):
		return IntentClinicalQuery
	}
	return IntentClinicalQuery
}

// Prescription holds the normalized extraction from any input modality.
type Prescription struct {
	DrugName   string `json:"drugName"`
	Dose       string `json:"dose"`
	Frequency  string `json:"frequency"`
	Prescriber string `json:"prescriber,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// FlagSeverity ranks a safety flag.
type FlagSeverity string

const (
	SeverityCritical FlagSeverity = "critical"
	SeverityWarning  FlagSeverity = "warning"
	SeverityInfo     FlagSeverity = "info"
)

// SafetyFlag is one safety concern found during the audit.
type SafetyFlag struct {
	Severity FlagSeverity `json:"severity"`
	Category string       `json:"category"`
	Message  string       `json:"message"`
	Source   string       `json:"source"`
	Citation string       `json:"citation,omitempty"`
}

// VerdictStatus is the final dispensing recommendation level.
type VerdictStatus string

const (
	// VerdictGreen means no safety concerns were found.
	VerdictGreen VerdictStatus = "green"

	// VerdictYellow means warnings exist; proceed with caution.
	VerdictYellow VerdictStatus = "yellow"

	// VerdictRed means critical issues exist; do not dispense.
	VerdictRed VerdictStatus = "red"
)

// Verdict aggregates all safety flags into a dispensing recommendation.
type Verdict struct {
	Status         VerdictStatus `json:"status"`
	Flags          []SafetyFlag  `json:"flags"`
	Recommendation string        `json:"recommendation"`
}

// NewVerdict derives the verdict level from the collected flags.
func NewVerdict(flags []SafetyFlag) Verdict {
	var critical, warning bool
	for _, f := range flags {
		switch f.Severity {
		case SeverityCritical:
			critical = true
		case SeverityWarning:
			warning = true
		}
	}

	v := Verdict{Flags: flags}
	switch {
	case critical:
		v.Status = VerdictRed
		v.Recommendation = "DO NOT DISPENSE - Critical safety issues detected"
	case warning:
		v.Status = VerdictYellow
		v.Recommendation = "PROCEED WITH CAUTION - Review warnings with patient"
	default:
		v.Status = VerdictGreen
		v.Recommendation = "SAFE TO DISPENSE - No safety concerns detected"
	}
	return v
}

// DrugRecord is one entry in a patient's medication history.
type DrugRecord struct {
	DrugName  string `json:"drugName"`
	Dose      string `json:"dose"`
	Frequency string `json:"frequency"`
	Active    bool   `json:"active"`
}

// Allergy is one entry in a patient's allergy registry.
type Allergy struct {
	Allergen string `json:"allergen"`
	Type     string `json:"type"`
	Severity string `json:"severity"`
}

// AdverseReaction records a past reaction to a drug.
type AdverseReaction struct {
	DrugName string `json:"drugName"`
	Symptoms string `json:"symptoms"`
	Severity string `json:"severity"`
}

// PatientProfile is a self-contained snapshot of a patient record.
//
// It is a plain value: loading one copies everything out of the database
// so the snapshot can safely outlive the connection that produced it.
// Streaming code must only ever receive this type, never a live handle.
type PatientProfile struct {
	ID               int64             `json:"id"`
	Name             string            `json:"name"`
	AgeYears         int               `json:"ageYears"`
	IsPregnant       bool              `json:"isPregnant"`
	IsNursing        bool              `json:"isNursing"`
	EGFR             float64           `json:"egfr,omitempty"`
	CurrentDrugs     []DrugRecord      `json:"currentDrugs"`
	Allergies        []Allergy         `json:"allergies"`
	AdverseReactions []AdverseReaction `json:"adverseReactions"`
}
