package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/novaguard/novaguard"
)

// Patient is a stored patient row.
type Patient struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	AgeYears            int     `json:"ageYears"`
	IsPregnant          bool    `json:"isPregnant"`
	IsNursing           bool    `json:"isNursing"`
	EGFR                float64 `json:"egfr"`
	MedicalRecordNumber string  `json:"medicalRecordNumber,omitempty"`
}

// CreatePatient inserts a patient and returns its ID.
func (s *Store) CreatePatient(ctx context.Context, p Patient) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO patients (name, age_years, is_pregnant, is_nursing, egfr, medical_record_number)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, p.AgeYears, p.IsPregnant, p.IsNursing, p.EGFR, p.MedicalRecordNumber)
	if err != nil {
		return 0, fmt.Errorf("store: creating patient: %w", err)
	}
	return res.LastInsertId()
}

// Patient fetches one patient row.
func (s *Store) Patient(ctx context.Context, id int64) (Patient, error) {
	var p Patient
	var mrn sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, age_years, is_pregnant, is_nursing, egfr, medical_record_number
		FROM patients WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.AgeYears, &p.IsPregnant, &p.IsNursing, &p.EGFR, &mrn)
	if errors.Is(err, sql.ErrNoRows) {
		return Patient{}, novaguard.ErrPatientNotFound
	}
	if err != nil {
		return Patient{}, fmt.Errorf("store: loading patient %d: %w", id, err)
	}
	p.MedicalRecordNumber = mrn.String
	return p, nil
}

// ListPatients returns patients ordered by name.
func (s *Store) ListPatients(ctx context.Context) ([]Patient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, age_years, is_pregnant, is_nursing, egfr, medical_record_number
		FROM patients ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: listing patients: %w", err)
	}
	defer rows.Close()

	var out []Patient
	for rows.Next() {
		var p Patient
		var mrn sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.AgeYears, &p.IsPregnant, &p.IsNursing, &p.EGFR, &mrn); err != nil {
			return nil, err
		}
		p.MedicalRecordNumber = mrn.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// AddDrug appends a drug history row for the patient.
func (s *Store) AddDrug(ctx context.Context, patientID int64, d novaguard.DrugRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drug_history (patient_id, drug_name, dose, frequency, is_active)
		VALUES (?, ?, ?, ?, ?)`,
		patientID, d.DrugName, d.Dose, d.Frequency, d.Active)
	if err != nil {
		return fmt.Errorf("store: adding drug: %w", err)
	}
	return nil
}

// AddAllergy appends an allergy row for the patient.
func (s *Store) AddAllergy(ctx context.Context, patientID int64, a novaguard.Allergy) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO allergies (patient_id, allergen, allergy_type, severity)
		VALUES (?, ?, ?, ?)`,
		patientID, a.Allergen, a.Type, a.Severity)
	if err != nil {
		return fmt.Errorf("store: adding allergy: %w", err)
	}
	return nil
}

// AddReaction appends an adverse reaction row for the patient.
func (s *Store) AddReaction(ctx context.Context, patientID int64, r novaguard.AdverseReaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO adverse_reactions (patient_id, drug_name, symptoms, severity)
		VALUES (?, ?, ?, ?)`,
		patientID, r.DrugName, r.Symptoms, r.Severity)
	if err != nil {
		return fmt.Errorf("store: adding reaction: %w", err)
	}
	return nil
}

// PatientSnapshot loads the patient and every related row into a plain
// value. Streaming handlers take this snapshot before the response body
// opens, so nothing tied to the request or a transaction leaks into the
// workflow.
func (s *Store) PatientSnapshot(ctx context.Context, id int64) (novaguard.PatientProfile, error) {
	p, err := s.Patient(ctx, id)
	if err != nil {
		return novaguard.PatientProfile{}, err
	}

	profile := novaguard.PatientProfile{
		ID:         p.ID,
		Name:       p.Name,
		AgeYears:   p.AgeYears,
		IsPregnant: p.IsPregnant,
		IsNursing:  p.IsNursing,
		EGFR:       p.EGFR,
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT drug_name, dose, frequency, is_active
		FROM drug_history WHERE patient_id = ? ORDER BY id`, id)
	if err != nil {
		return novaguard.PatientProfile{}, fmt.Errorf("store: loading drug history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d novaguard.DrugRecord
		if err := rows.Scan(&d.DrugName, &d.Dose, &d.Frequency, &d.Active); err != nil {
			return novaguard.PatientProfile{}, err
		}
		profile.CurrentDrugs = append(profile.CurrentDrugs, d)
	}
	if err := rows.Err(); err != nil {
		return novaguard.PatientProfile{}, err
	}

	arows, err := s.db.QueryContext(ctx, `
		SELECT allergen, allergy_type, severity
		FROM allergies WHERE patient_id = ? ORDER BY id`, id)
	if err != nil {
		return novaguard.PatientProfile{}, fmt.Errorf("store: loading allergies: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var a novaguard.Allergy
		if err := arows.Scan(&a.Allergen, &a.Type, &a.Severity); err != nil {
			return novaguard.PatientProfile{}, err
		}
		profile.Allergies = append(profile.Allergies, a)
	}
	if err := arows.Err(); err != nil {
		return novaguard.PatientProfile{}, err
	}

	rrows, err := s.db.QueryContext(ctx, `
		SELECT drug_name, symptoms, severity
		FROM adverse_reactions WHERE patient_id = ? ORDER BY id`, id)
	if err != nil {
		return novaguard.PatientProfile{}, fmt.Errorf("store: loading reactions: %w", err)
	}
	defer rrows.Close()
	for rrows.Next() {
		var r novaguard.AdverseReaction
		if err := rrows.Scan(&r.DrugName, &r.Symptoms, &r.Severity); err != nil {
			return novaguard.PatientProfile{}, err
		}
		profile.AdverseReactions = append(profile.AdverseReactions, r)
	}
	return profile, rrows.Err()
}
