package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/novaguard/novaguard"
	"github.com/novaguard/novaguard/pipeline"
	"github.com/novaguard/novaguard/store"
	"github.com/novaguard/novaguard/stream"
	"github.com/novaguard/novaguard/workflow"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	var p store.Patient
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid patient body")
		return
	}
	if p.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	id, err := s.store.CreatePatient(r.Context(), p)
	if err != nil {
		s.log.Error("creating patient", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create patient")
		return
	}
	p.ID = id
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := s.store.ListPatients(r.Context())
	if err != nil {
		s.log.Error("listing patients", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list patients")
		return
	}
	if patients == nil {
		patients = []store.Patient{}
	}
	writeJSON(w, http.StatusOK, patients)
}

func (s *Server) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	id, err := patientID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid patient id")
		return
	}
	profile, err := s.store.PatientSnapshot(r.Context(), id)
	if errors.Is(err, novaguard.ErrPatientNotFound) {
		writeError(w, http.StatusNotFound, "patient not found")
		return
	}
	if err != nil {
		s.log.Error("loading patient", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load patient")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleAddDrug(w http.ResponseWriter, r *http.Request) {
	id, err := patientID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid patient id")
		return
	}
	var d novaguard.DrugRecord
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil || d.DrugName == "" {
		writeError(w, http.StatusBadRequest, "invalid drug body")
		return
	}
	if err := s.store.AddDrug(r.Context(), id, d); err != nil {
		s.log.Error("adding drug", "patient", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not add drug")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleAddAllergy(w http.ResponseWriter, r *http.Request) {
	id, err := patientID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid patient id")
		return
	}
	var a novaguard.Allergy
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil || a.Allergen == "" {
		writeError(w, http.StatusBadRequest, "invalid allergy body")
		return
	}
	if err := s.store.AddAllergy(r.Context(), id, a); err != nil {
		s.log.Error("adding allergy", "patient", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not add allergy")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleAddReaction(w http.ResponseWriter, r *http.Request) {
	id, err := patientID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid patient id")
		return
	}
	var rec novaguard.AdverseReaction
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil || rec.DrugName == "" {
		writeError(w, http.StatusBadRequest, "invalid reaction body")
		return
	}
	if err := s.store.AddReaction(r.Context(), id, rec); err != nil {
		s.log.Error("adding reaction", "patient", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not add reaction")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	if err := s.store.CreateSession(r.Context(), id); err != nil {
		s.log.Error("creating session", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sessions, err := s.store.ListSessions(r.Context(), limit)
	if err != nil {
		s.log.Error("listing sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list sessions")
		return
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

type streamRequest struct {
	SessionID string `json:"sessionId"`
	PatientID int64  `json:"patientId"`
	Text      string `json:"text"`
}

// handleStream runs one clinical pipeline onto a streaming response.
//
// Everything the run needs is resolved before the first frame goes out:
// the patient snapshot is copied out of the database and the session row
// is updated up front. Once streaming starts, the handler only holds
// plain values.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	in := pipeline.Input{Text: req.Text}
	if req.PatientID > 0 {
		profile, err := s.store.PatientSnapshot(r.Context(), req.PatientID)
		if errors.Is(err, novaguard.ErrPatientNotFound) {
			writeError(w, http.StatusNotFound, "patient not found")
			return
		}
		if err != nil {
			s.log.Error("loading patient snapshot", "id", req.PatientID, "error", err)
			writeError(w, http.StatusInternalServerError, "could not load patient")
			return
		}
		in.Profile = profile
		in.HasPatient = true
	}

	if req.SessionID != "" {
		if err := s.store.TouchSession(r.Context(), req.SessionID, req.PatientID, req.Text); err != nil {
			s.log.Warn("touching session", "session", req.SessionID, "error", err)
		}
	}

	runID := uuid.NewString()
	log := s.log.With("runId", runID)
	p := pipeline.New(s.deps, in)
	state := workflow.NewState()

	runErr := stream.Run(r.Context(), w, p, state, pipeline.Finish, log)

	// The audit trail records the outcome the client was told about,
	// whether or not delivery succeeded.
	entry := store.AuditEntry{
		RunID:     runID,
		SessionID: req.SessionID,
		PatientID: req.PatientID,
		Intent:    string(pipeline.Intent(state)),
	}
	if runErr != nil {
		entry.Status = "error"
		entry.Detail = runErr.Error()
	} else {
		entry.Status, _ = pipeline.Finish(state)
	}
	// The client may already be gone; the audit write must still land.
	if err := s.store.AppendAudit(context.WithoutCancel(r.Context()), entry); err != nil {
		log.Error("appending audit entry", "error", err)
	}
}

func patientID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
