package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/makerpath/progress-hub/internal/application/command"
	"github.com/makerpath/progress-hub/internal/application/query"
	"github.com/makerpath/progress-hub/internal/domain/content"
	"github.com/makerpath/progress-hub/internal/domain/shared"
	"github.com/makerpath/progress-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot returns basic service info.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Endpoint not found")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"service": "progress-hub",
		"status":  "running",
		"uptime":  s.Uptime().String(),
	})
}

// handleLive is the liveness probe. Always 200 while the process serves.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// handleHealth checks the backing services and reports per-service status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.deps.HealthCheckers))
	healthy := true

	for name, checker := range s.deps.HealthCheckers {
		if err := checker.Ping(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			healthy = false
		} else {
			checks[name] = "healthy"
		}
	}

	status := http.StatusOK
	overall := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	writeJSON(w, r, status, map[string]interface{}{
		"status": overall,
		"checks": checks,
		"uptime": s.Uptime().String(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS SNAPSHOT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type saveProgressRequest struct {
	OwnerKind string          `json:"owner_kind"`
	OwnerID   string          `json:"owner_id"`
	Kind      string          `json:"kind"`
	UnitIndex int             `json:"unit_index"`
	Payload   json.RawMessage `json:"payload"`
}

// handleSaveProgress stores or replaces a snapshot for an owner.
func (s *Server) handleSaveProgress(w http.ResponseWriter, r *http.Request) {
	var req saveProgressRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.SaveProgress.Handle(r.Context(), command.SaveProgressCommand{
		OwnerKind:     req.OwnerKind,
		OwnerID:       req.OwnerID,
		Kind:          req.Kind,
		UnitIndex:     req.UnitIndex,
		Payload:       req.Payload,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeHandlerError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, r, status, map[string]interface{}{
		"record_id": result.RecordID,
		"created":   result.Created,
	})
}

// handleGetProgress returns the saved snapshots for an owner.
// Query params: kind (form|checklist), unit_index.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetProgress.Handle(r.Context(), query.GetProgressQuery{
		OwnerKind: r.PathValue("ownerKind"),
		OwnerID:   r.PathValue("ownerId"),
		Kind:      r.URL.Query().Get("kind"),
		UnitIndex: getQueryParamInt(r, "unit_index", -1),
	})
	if err != nil {
		s.writeHandlerError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// IDENTITY HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type linkEmailRequest struct {
	VisitorID string `json:"visitor_id"`
	Email     string `json:"email"`
}

// handleLinkEmail stamps the visitor's unlinked records with an email.
func (s *Server) handleLinkEmail(w http.ResponseWriter, r *http.Request) {
	var req linkEmailRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.LinkIdentity.HandleLinkEmail(r.Context(), command.LinkEmailCommand{
		VisitorID:     req.VisitorID,
		Email:         req.Email,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeHandlerError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"email":          result.Email,
		"records_linked": result.RecordsLinked,
		"records_kept":   result.RecordsKept,
	})
}

type linkAccountRequest struct {
	VisitorID string `json:"visitor_id"`
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
}

// handleLinkAccount stamps the visitor's unlinked records with an account.
func (s *Server) handleLinkAccount(w http.ResponseWriter, r *http.Request) {
	var req linkAccountRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.LinkIdentity.HandleLinkAccount(r.Context(), command.LinkAccountCommand{
		VisitorID:     req.VisitorID,
		AccountID:     req.AccountID,
		Email:         req.Email,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeHandlerError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"records_linked":  result.RecordsLinked,
		"records_kept":    result.RecordsKept,
		"account_created": result.AccountCreated,
	})
}

type migrateRequest struct {
	VisitorID string `json:"visitor_id"`
	AccountID string `json:"account_id"`
}

// handleMigrate moves the visitor's linked snapshots into permanent account
// storage. Safe to call repeatedly.
func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	var req migrateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.Migrate.Handle(r.Context(), command.MigrateProgressCommand{
		VisitorID:     req.VisitorID,
		AccountID:     req.AccountID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeHandlerError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"forms_migrated": result.FormsMigrated,
		"items_migrated": result.ItemsMigrated,
		"skipped":        result.Skipped,
		"malformed":      result.Malformed,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// LEARNING STATE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type updateUnitProgressRequest struct {
	SubUnitID        string   `json:"sub_unit_id,omitempty"`
	QuizScore        *float64 `json:"quiz_score,omitempty"`
	TimeSpentMinutes int      `json:"time_spent_minutes"`
}

// handleUpdateUnitProgress records incremental work on a unit.
func (s *Server) handleUpdateUnitProgress(w http.ResponseWriter, r *http.Request) {
	var req updateUnitProgressRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	err := s.deps.UnitProgress.HandleUpdate(r.Context(), command.UpdateUnitProgressCommand{
		AccountID:        r.PathValue("accountId"),
		UnitSlug:         r.PathValue("slug"),
		SubUnitID:        req.SubUnitID,
		QuizScore:        req.QuizScore,
		TimeSpentMinutes: req.TimeSpentMinutes,
		CorrelationID:    getRequestID(r.Context()),
	})
	if err != nil {
		s.writeHandlerError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "recorded"})
}

type completeUnitRequest struct {
	QuizScore        *float64  `json:"quiz_score,omitempty"`
	TimeSpentMinutes int       `json:"time_spent_minutes"`
	CompletedAt      time.Time `json:"completed_at,omitempty"`
}

// handleCompleteUnit marks a unit completed and triggers unlock evaluation
// through the published event.
func (s *Server) handleCompleteUnit(w http.ResponseWriter, r *http.Request) {
	var req completeUnitRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.UnitProgress.HandleComplete(r.Context(), command.CompleteUnitCommand{
		AccountID:        r.PathValue("accountId"),
		UnitSlug:         r.PathValue("slug"),
		QuizScore:        req.QuizScore,
		TimeSpentMinutes: req.TimeSpentMinutes,
		CompletedAt:      req.CompletedAt,
		CorrelationID:    getRequestID(r.Context()),
	})
	if err != nil {
		s.writeHandlerError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"already_completed": result.AlreadyCompleted,
		"quiz_passed":       result.QuizPassed,
	})
}

// handleGrantUnlock unlocks a unit by operator decision, bypassing the
// dependency graph.
func (s *Server) handleGrantUnlock(w http.ResponseWriter, r *http.Request) {
	granted, err := s.deps.EvaluateUnlocks.Grant(
		r.Context(),
		r.PathValue("accountId"),
		r.PathValue("slug"),
		content.ReasonManual,
		getRequestID(r.Context()),
	)
	if err != nil {
		s.writeHandlerError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"granted":          granted,
		"already_unlocked": !granted,
	})
}

type recordActivityRequest struct {
	At               time.Time `json:"at,omitempty"`
	Minutes          int       `json:"minutes"`
	LessonsCompleted int       `json:"lessons_completed"`
}

// handleRecordActivity records a learning session for the streak counter.
func (s *Server) handleRecordActivity(w http.ResponseWriter, r *http.Request) {
	var req recordActivityRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.RecordActivity.Handle(r.Context(), command.RecordActivityCommand{
		AccountID:        r.PathValue("accountId"),
		At:               req.At,
		Minutes:          req.Minutes,
		LessonsCompleted: req.LessonsCompleted,
		CorrelationID:    getRequestID(r.Context()),
	})
	if err != nil {
		s.writeHandlerError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"current_streak":  result.CurrentStreak,
		"longest_streak":  result.LongestStreak,
		"extended":        result.Extended,
		"same_day":        result.SameDay,
		"streak_broken":   result.StreakBroken,
		"previous_streak": result.PreviousStreak,
	})
}

// handleGetDashboard returns the assembled dashboard view.
// Query params: include_secret, bypass_cache.
func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetDashboard.Handle(r.Context(), query.GetDashboardQuery{
		AccountID:     r.PathValue("accountId"),
		IncludeSecret: getQueryParamBool(r, "include_secret"),
		BypassCache:   getQueryParamBool(r, "bypass_cache"),
	})
	if err != nil {
		s.writeHandlerError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

type generateContentRequest struct {
	Answers map[string]string `json:"answers"`
}

// handleGenerateContent returns personalized content for a unit, generated
// from the learner's saved form answers. Served from cache when available.
func (s *Server) handleGenerateContent(w http.ResponseWriter, r *http.Request) {
	if s.deps.ContentGen == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "content_generation_disabled", "Content generation is not configured")
		return
	}

	var req generateContentRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	accountID, err := shared.NewAccountID(r.PathValue("accountId"))
	if err != nil {
		s.writeHandlerError(w, r, err)
		return
	}

	unitIndex, err := strconv.Atoi(r.PathValue("unitIndex"))
	if err != nil || unitIndex < 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_unit_index", "Unit index must be a non-negative integer")
		return
	}

	blob, err := s.deps.ContentGen.Generate(r.Context(), accountID, unitIndex, req.Answers)
	if err != nil {
		s.writeHandlerError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, blob)
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED HANDLER HELPERS
// ══════════════════════════════════════════════════════════════════════════════

const maxBodySize = 1 << 20 // 1 MB

// decodeBody decodes the JSON request body into dst. Writes the error
// response itself and returns false when decoding fails.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request_body", "Request body must be valid JSON")
		return false
	}
	return true
}

// writeHandlerError maps application errors to HTTP status codes.
func (s *Server) writeHandlerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case shared.IsAlreadyExists(err):
		writeJSONError(w, http.StatusConflict, "conflict", err.Error())
	default:
		s.log.Error("request failed",
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
