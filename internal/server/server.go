// Package server exposes the review and outreach API consumed by the
// dashboard.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/21draw/ugc-finder/internal/models"
	"github.com/21draw/ugc-finder/internal/notifications"
	"github.com/21draw/ugc-finder/internal/outreach"
	"github.com/21draw/ugc-finder/internal/store"
)

// Server holds the handler dependencies.
type Server struct {
	store    store.StoreInterface
	outreach *outreach.Service
	notifier *notifications.Service
	digest   func() error
}

// New creates the API server. digest runs the follow-up digest for the manual
// trigger endpoint; nil disables it.
func New(st store.StoreInterface, out *outreach.Service, notifier *notifications.Service, digest func() error) *Server {
	return &Server{store: st, outreach: out, notifier: notifier, digest: digest}
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/metrics", s.handleMetrics).Methods("GET")
	router.HandleFunc("/trigger", s.handleTrigger).Methods("POST")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/profiles", s.handleListProfiles).Methods("GET")
	api.HandleFunc("/profiles/{username}", s.handleGetProfile).Methods("GET")
	api.HandleFunc("/profiles/{username}/review", s.handleReview).Methods("POST")

	api.HandleFunc("/outreach", s.handleListOutreach).Methods("GET")
	api.HandleFunc("/outreach/export.csv", s.handleExportCSV).Methods("GET")
	api.HandleFunc("/outreach/follow-ups", s.handleFollowUps).Methods("GET")
	api.HandleFunc("/outreach/{username}", s.handleGetOutreach).Methods("GET")
	api.HandleFunc("/outreach/{username}/status", s.handleOutreachStatus).Methods("POST")
	api.HandleFunc("/outreach/{username}/contacted", s.handleContacted).Methods("POST")
	api.HandleFunc("/outreach/{username}/send-email", s.handleSendEmail).Methods("POST")
	api.HandleFunc("/outreach/{username}/reply", s.handleReply).Methods("POST")
	api.HandleFunc("/outreach/{username}/message", s.handleMessage).Methods("POST")
	api.HandleFunc("/outreach/{username}/notes", s.handleNotes).Methods("POST")
	api.HandleFunc("/outreach/{username}/reclassify", s.handleReclassify).Methods("POST")

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleMetrics reports the pipeline queue depths.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	pending, err := s.store.ListProfilesByStatus(r.Context(), models.StatusPendingReview, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	records, err := s.store.ListOutreach(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	followUps, err := s.outreach.NeedsFollowUp(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"pending_review": len(pending),
		"outreach_total": len(records),
		"follow_ups_due": len(followUps),
	})
}

// handleTrigger runs the follow-up digest on demand instead of waiting for
// the cron schedule.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if s.digest == nil {
		writeError(w, http.StatusServiceUnavailable, "digest is not available")
		return
	}
	go func() {
		if err := s.digest(); err != nil {
			logrus.Errorf("Manual digest trigger failed: %v", err)
		}
	}()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Digest triggered"})
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	status := models.ProfileStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.StatusPendingReview
	}
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}

	profiles, err := s.store.ListProfilesByStatus(r.Context(), status, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	profile, err := s.store.GetProfile(r.Context(), username)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// handleReview records a human decision. The profile moves to HUMAN_REVIEWED
// regardless of direction; the decision itself lives on the review row.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	var req struct {
		Decision    string              `json:"decision"`
		Reasoning   string              `json:"reasoning"`
		ProfileType *models.ProfileType `json:"profile_type"`
		ReviewedBy  string              `json:"reviewed_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Decision != models.DecisionApproved && req.Decision != models.DecisionDenied {
		writeError(w, http.StatusBadRequest, "decision must be APPROVED or DENIED")
		return
	}

	review := &models.HumanReview{
		ProfileUsername: username,
		Decision:        req.Decision,
		HumanReasoning:  req.Reasoning,
		ProfileType:     req.ProfileType,
		ReviewedBy:      req.ReviewedBy,
		ReviewedAt:      time.Now().UTC(),
	}
	if err := s.store.UpsertReview(r.Context(), review); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	fields := map[string]interface{}{"status": models.StatusHumanReviewed}
	if req.ProfileType != nil {
		fields["profile_type"] = *req.ProfileType
	}
	if err := s.store.UpdateProfile(r.Context(), username, fields); err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logrus.Infof("Review saved: %s -> %s by %s", username, req.Decision, req.ReviewedBy)
	writeJSON(w, http.StatusOK, review)
}

func (s *Server) handleListOutreach(w http.ResponseWriter, r *http.Request) {
	var (
		records []models.OutreachRecord
		err     error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		records, err = s.store.ListOutreachByStatus(r.Context(), models.OutreachStatus(status))
	} else {
		records, err = s.store.ListOutreach(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetOutreach(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	record, err := s.store.GetOutreach(r.Context(), username)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "outreach record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleOutreachStatus(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	var req struct {
		Status models.OutreachStatus `json:"status"`
		Notes  string                `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.outreach.UpdateStatus(r.Context(), username, req.Status, req.Notes); err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "outreach record not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}

func (s *Server) handleContacted(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.outreach.MarkContacted(r.Context(), username, req.Message); err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "outreach record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.OutreachContacted)})
}

// handleSendEmail delivers the outreach email over SMTP and records it.
// Subject and body default to the generated message; the request may override
// either before sending.
func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	var req struct {
		To      string `json:"to"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if !s.notifier.IsConfigured() {
		writeError(w, http.StatusServiceUnavailable, "email is not configured")
		return
	}

	record, err := s.store.GetOutreach(r.Context(), username)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "outreach record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	to := req.To
	if to == "" && record.ContactEmail != nil {
		to = *record.ContactEmail
	}
	subject := req.Subject
	if subject == "" && record.EmailSubject != nil {
		subject = *record.EmailSubject
	}
	body := req.Body
	if body == "" && record.EmailBody != nil {
		body = *record.EmailBody
	}
	if to == "" || subject == "" || body == "" {
		writeError(w, http.StatusBadRequest, "recipient, subject, and body are required")
		return
	}

	if err := s.notifier.Send(to, subject, body); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if err := s.outreach.RecordEmailSent(r.Context(), username, subject, body); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.OutreachContacted), "sent_to": to})
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	var req struct {
		Summary   string `json:"summary"`
		Sentiment string `json:"sentiment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Summary == "" {
		writeError(w, http.StatusBadRequest, "summary is required")
		return
	}

	if err := s.outreach.SaveReply(r.Context(), username, req.Summary, req.Sentiment); err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "outreach record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.OutreachReplied)})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.outreach.SaveMessageField(r.Context(), username, req.Field, req.Value); err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "outreach record not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"field": req.Field})
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.outreach.SaveNotes(r.Context(), username, req.Notes); err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "outreach record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"username": username})
}

func (s *Server) handleReclassify(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	if err := s.outreach.Reclassify(r.Context(), username); err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	record, err := s.store.GetOutreach(r.Context(), username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="outreach.csv"`)
	if err := s.outreach.ExportCSV(r.Context(), w); err != nil {
		logrus.Errorf("CSV export failed: %v", err)
	}
}

func (s *Server) handleFollowUps(w http.ResponseWriter, r *http.Request) {
	records, err := s.outreach.NeedsFollowUp(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
