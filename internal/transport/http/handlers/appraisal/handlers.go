package appraisalhandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/appraisal"
	"appraisal/internal/domain/audit"
	"appraisal/internal/domain/auth"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
	"appraisal/internal/transport/http/shared"
)

// Directory resolves the employee record behind an authenticated user.
type Directory interface {
	EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error)
}

type Handler struct {
	Service     *appraisal.Service
	Perms       middleware.PermissionStore
	Audit       *audit.Service
	Directory   Directory
	Idempotency *middleware.IdempotencyStore
}

func NewHandler(service *appraisal.Service, perms middleware.PermissionStore, auditSvc *audit.Service, directory Directory, idem *middleware.IdempotencyStore) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc, Directory: directory, Idempotency: idem}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/appraisal", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAppraisalRead, h.Perms)).Get("/cycles", h.handleListCycles)
		r.With(middleware.RequirePermission(auth.PermConfigWrite, h.Perms)).Post("/cycles", h.handleCreateCycle)
		r.With(middleware.RequirePermission(auth.PermAppraisalRead, h.Perms)).Get("/cycles/{cycleID}", h.handleGetCycle)
		r.With(middleware.RequirePermission(auth.PermConfigWrite, h.Perms)).Post("/cycles/{cycleID}/activate", h.handleActivateCycle)
		r.With(middleware.RequirePermission(auth.PermConfigWrite, h.Perms)).Post("/cycles/{cycleID}/close", h.handleCloseCycle)
		r.With(middleware.RequirePermission(auth.PermAppraisalRelease, h.Perms)).Post("/cycles/{cycleID}/release", h.handleBulkRelease)
		r.With(middleware.RequirePermission(auth.PermAppraisalRead, h.Perms)).Get("/cycles/{cycleID}/participants", h.handleListParticipants)
		r.With(middleware.RequirePermission(auth.PermConfigWrite, h.Perms)).Post("/cycles/{cycleID}/participants", h.handleAddParticipant)

		r.With(middleware.RequirePermission(auth.PermAppraisalRead, h.Perms)).Get("/participants/{participantID}", h.handleGetParticipant)
		r.With(middleware.RequirePermission(auth.PermAppraisalWrite, h.Perms)).Post("/participants/{participantID}/advance", h.handleAdvanceParticipant)
		r.With(middleware.RequirePermission(auth.PermConfigWrite, h.Perms)).Post("/participants/{participantID}/cancel", h.handleCancelParticipant)

		r.With(middleware.RequirePermission(auth.PermAppraisalWrite, h.Perms)).Post("/goals/{goalID}/self-rating", h.handleSubmitSelfRating)
		r.With(middleware.RequirePermission(auth.PermAppraisalWrite, h.Perms)).Post("/goals/{goalID}/manager-rating", h.handleSubmitManagerRating)
		r.With(middleware.RequirePermission(auth.PermAppraisalRead, h.Perms)).Get("/goals/{goalID}/score", h.handleScorePreview)
		r.With(middleware.RequirePermission(auth.PermAppraisalRead, h.Perms)).Get("/goals/{goalID}/submission", h.handleGetSubmissionByGoal)

		r.With(middleware.RequirePermission(auth.PermAppraisalRead, h.Perms)).Get("/submissions/{submissionID}", h.handleGetSubmission)
		r.With(middleware.RequirePermission(auth.PermAppraisalRelease, h.Perms)).Post("/submissions/{submissionID}/release", h.handleReleaseSubmission)
		r.With(middleware.RequirePermission(auth.PermAppraisalWrite, h.Perms)).Post("/submissions/{submissionID}/acknowledge", h.handleAcknowledge)
		r.With(middleware.RequirePermission(auth.PermAppraisalWrite, h.Perms)).Post("/submissions/{submissionID}/dispute", h.handleDispute)
		r.With(middleware.RequirePermission(auth.PermAppraisalResolve, h.Perms)).Post("/submissions/{submissionID}/resolve", h.handleResolveDispute)

		r.With(middleware.RequirePermission(auth.PermConfigWrite, h.Perms)).Post("/rating-configs", h.handleSaveRatingConfig)
		r.With(middleware.RequirePermission(auth.PermAppraisalRead, h.Perms)).Get("/rating-configs/{configID}", h.handleGetRatingConfig)
	})
}

// failDomain translates engine errors into HTTP failures. Anything the engine
// does not classify is treated as an internal error with a generic message.
func failDomain(w http.ResponseWriter, r *http.Request, err error, fallbackCode, fallbackMessage string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, appraisal.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "record not found", requestID)
	case errors.Is(err, appraisal.ErrNoSubmissionFound):
		api.Fail(w, http.StatusNotFound, "no_submission", "no rating submission found for goal", requestID)
	case errors.Is(err, appraisal.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), requestID)
	case errors.Is(err, appraisal.ErrSelfRatingPending):
		api.Fail(w, http.StatusConflict, "self_rating_pending", "self rating required before manager rating", requestID)
	case errors.Is(err, appraisal.ErrDisputeAlreadyOpen):
		api.Fail(w, http.StatusConflict, "dispute_open", "a dispute is already open for this submission", requestID)
	case errors.Is(err, appraisal.ErrConcurrentModification):
		api.Fail(w, http.StatusConflict, "conflict", "record was changed by another request", requestID)
	case errors.Is(err, appraisal.ErrWeightConfigurationInvalid):
		api.Fail(w, http.StatusBadRequest, "invalid_weights", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, fallbackCode, fallbackMessage, requestID)
	}
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action, entityType, entityID string, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, action, entityType, entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, after); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}

func (h *Handler) selfEmployeeID(r *http.Request, user auth.UserContext) string {
	id, err := h.Directory.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		slog.Warn("employee lookup failed", "userId", user.UserID, "err", err)
		return ""
	}
	return id
}

func (h *Handler) handleListCycles(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	cycles, err := h.Service.ListCycles(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "cycle_list_failed", "failed to list cycles", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, cycles, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateCycle(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Name               string `json:"name"`
		StartDate          string `json:"startDate"`
		EndDate            string `json:"endDate"`
		EvaluationDeadline string `json:"evaluationDeadline"`
		GracePeriodDays    int    `json:"gracePeriodDays"`
		AutoActivate       *bool  `json:"autoActivate"`
		AutoComplete       *bool  `json:"autoComplete"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "cycle name is required")
	startDate, _ := v.Date("startDate", payload.StartDate)
	endDate, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", startDate, "endDate", endDate)
	if payload.GracePeriodDays < 0 {
		v.Add("gracePeriodDays", "grace period must not be negative")
	}
	var evaluationDeadline time.Time
	if payload.EvaluationDeadline != "" {
		evaluationDeadline, _ = v.Date("evaluationDeadline", payload.EvaluationDeadline)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	cycle := appraisal.Cycle{
		Name:               payload.Name,
		StartDate:          startDate,
		EndDate:            endDate,
		EvaluationDeadline: evaluationDeadline,
		GracePeriodDays:    payload.GracePeriodDays,
		AutoActivate:       true,
		AutoComplete:       true,
	}
	if payload.AutoActivate != nil {
		cycle.AutoActivate = *payload.AutoActivate
	}
	if payload.AutoComplete != nil {
		cycle.AutoComplete = *payload.AutoComplete
	}

	id, err := h.Service.CreateCycle(r.Context(), user.TenantID, cycle)
	if err != nil {
		failDomain(w, r, err, "cycle_create_failed", "failed to create cycle")
		return
	}
	h.record(r, user, "appraisal.cycle.create", audit.EntityCycle, id, payload)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetCycle(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	cycle, err := h.Service.GetCycle(r.Context(), user.TenantID, chi.URLParam(r, "cycleID"))
	if err != nil {
		failDomain(w, r, err, "cycle_get_failed", "failed to load cycle")
		return
	}
	api.Success(w, cycle, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleActivateCycle(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	cycleID := chi.URLParam(r, "cycleID")
	cycle, err := h.Service.ActivateCycle(r.Context(), user.TenantID, cycleID)
	if err != nil {
		failDomain(w, r, err, "cycle_activate_failed", "failed to activate cycle")
		return
	}
	h.record(r, user, "appraisal.cycle.activate", audit.EntityCycle, cycleID, map[string]string{"status": cycle.Status})
	api.Success(w, cycle, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCloseCycle(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	cycleID := chi.URLParam(r, "cycleID")
	cycle, err := h.Service.CloseCycle(r.Context(), user.TenantID, cycleID)
	if err != nil {
		failDomain(w, r, err, "cycle_close_failed", "failed to close cycle")
		return
	}
	h.record(r, user, "appraisal.cycle.close", audit.EntityCycle, cycleID, map[string]string{"status": cycle.Status})
	api.Success(w, cycle, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleBulkRelease(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	// An empty body means "release every eligible participant".
	var payload struct {
		ParticipantIDs []string `json:"participantIds"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
			return
		}
	}

	cycleID := chi.URLParam(r, "cycleID")
	endpoint := "appraisal.cycles.release:" + cycleID

	idemKey := r.Header.Get("Idempotency-Key")
	requestHash := middleware.RequestHash(body)
	if idemKey != "" {
		stored, found, err := h.Idempotency.Check(r.Context(), user.TenantID, user.UserID, endpoint, idemKey, requestHash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used with a different payload", middleware.GetRequestID(r.Context()))
			return
		}
		if err != nil {
			slog.Warn("idempotency check failed", "endpoint", endpoint, "err", err)
		}
		if found {
			api.Success(w, json.RawMessage(stored), middleware.GetRequestID(r.Context()))
			return
		}
	}

	result, err := h.Service.BulkRelease(r.Context(), user.TenantID, cycleID, user.UserID, payload.ParticipantIDs)
	if err != nil {
		failDomain(w, r, err, "bulk_release_failed", "failed to release cycle ratings")
		return
	}

	if idemKey != "" {
		if raw, err := json.Marshal(result); err == nil {
			if err := h.Idempotency.Save(r.Context(), user.TenantID, user.UserID, endpoint, idemKey, requestHash, raw); err != nil {
				slog.Warn("idempotency save failed", "endpoint", endpoint, "err", err)
			}
		}
	}
	h.record(r, user, "appraisal.cycle.release", audit.EntityCycle, cycleID, result)
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	participants, err := h.Service.ListParticipants(r.Context(), user.TenantID, chi.URLParam(r, "cycleID"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "participant_list_failed", "failed to list participants", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(participants)))
	api.Success(w, participants, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		EmployeeID string `json:"employeeId"`
		DueDate    string `json:"dueDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.EmployeeID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "employee id required", middleware.GetRequestID(r.Context()))
		return
	}

	participant := appraisal.Participant{}
	if payload.DueDate != "" {
		dueDate, err := shared.ParseDate(payload.DueDate)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid due date", middleware.GetRequestID(r.Context()))
			return
		}
		participant.DueDate = &dueDate
	}

	cycleID := chi.URLParam(r, "cycleID")
	id, err := h.Service.AddParticipant(r.Context(), user.TenantID, cycleID, payload.EmployeeID, participant)
	if err != nil {
		failDomain(w, r, err, "participant_add_failed", "failed to add participant")
		return
	}
	h.record(r, user, "appraisal.participant.add", audit.EntityParticipant, id, payload)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetParticipant(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	participant, err := h.Service.GetParticipant(r.Context(), user.TenantID, chi.URLParam(r, "participantID"))
	if err != nil {
		failDomain(w, r, err, "participant_get_failed", "failed to load participant")
		return
	}
	if user.RoleName == auth.RoleEmployee && participant.EmployeeID != h.selfEmployeeID(r, user) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, participant, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAdvanceParticipant(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Target string `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.Target == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "target status required", middleware.GetRequestID(r.Context()))
		return
	}

	participantID := chi.URLParam(r, "participantID")
	participant, err := h.Service.Advance(r.Context(), user.TenantID, participantID, payload.Target)
	if err != nil {
		failDomain(w, r, err, "participant_advance_failed", "failed to advance participant")
		return
	}
	h.record(r, user, "appraisal.participant.advance", audit.EntityParticipant, participantID, map[string]string{"status": participant.Status})
	api.Success(w, participant, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCancelParticipant(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	participantID := chi.URLParam(r, "participantID")
	participant, err := h.Service.CancelParticipant(r.Context(), user.TenantID, participantID)
	if err != nil {
		failDomain(w, r, err, "participant_cancel_failed", "failed to cancel participant")
		return
	}
	h.record(r, user, "appraisal.participant.cancel", audit.EntityParticipant, participantID, map[string]string{"status": participant.Status})
	api.Success(w, participant, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubmitSelfRating(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Rating   *float64 `json:"rating"`
		Comments string   `json:"comments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Rating == nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "rating is required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := h.selfEmployeeID(r, user)
	if employeeID == "" {
		api.Fail(w, http.StatusForbidden, "forbidden", "no employee record for user", middleware.GetRequestID(r.Context()))
		return
	}

	goalID := chi.URLParam(r, "goalID")
	submission, err := h.Service.SubmitSelf(r.Context(), user.TenantID, goalID, employeeID, *payload.Rating, payload.Comments)
	if err != nil {
		failDomain(w, r, err, "self_rating_failed", "failed to submit self rating")
		return
	}
	h.record(r, user, "appraisal.rating.self", audit.EntitySubmission, submission.ID, map[string]any{"goalId": goalID, "rating": *payload.Rating})
	api.Success(w, submission, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubmitManagerRating(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if user.RoleName == auth.RoleEmployee {
		api.Fail(w, http.StatusForbidden, "forbidden", "manager or hr role required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Rating   *float64 `json:"rating"`
		Comments string   `json:"comments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Rating == nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "rating is required", middleware.GetRequestID(r.Context()))
		return
	}

	goalID := chi.URLParam(r, "goalID")

	var calculatedScore, finalScore *float64
	score, err := h.Service.ScoreGoal(r.Context(), user.TenantID, goalID, payload.Rating)
	switch {
	case err == nil:
		calculatedScore = &score
		final := score
		finalScore = &final
	case errors.Is(err, appraisal.ErrSelfRatingPending):
		failDomain(w, r, err, "self_rating_pending", "self rating required before manager rating")
		return
	default:
		// Fall back to the raw manager rating when no weighted score can be
		// computed (for example a config without progress data).
		slog.Warn("score computation fell back to raw rating", "goalId", goalID, "err", err)
	}

	managerID := h.selfEmployeeID(r, user)
	submission, err := h.Service.SubmitManager(r.Context(), user.TenantID, goalID, managerID, *payload.Rating, payload.Comments, calculatedScore, finalScore)
	if err != nil {
		failDomain(w, r, err, "manager_rating_failed", "failed to submit manager rating")
		return
	}
	h.record(r, user, "appraisal.rating.manager", audit.EntitySubmission, submission.ID, map[string]any{"goalId": goalID, "rating": *payload.Rating})
	api.Success(w, submission, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleScorePreview(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var managerRating *float64
	if raw := r.URL.Query().Get("managerRating"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid manager rating", middleware.GetRequestID(r.Context()))
			return
		}
		managerRating = &value
	}

	goalID := chi.URLParam(r, "goalID")
	score, err := h.Service.ScoreGoal(r.Context(), user.TenantID, goalID, managerRating)
	if err != nil {
		failDomain(w, r, err, "score_preview_failed", "failed to compute score")
		return
	}
	api.Success(w, map[string]any{"goalId": goalID, "score": score}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetSubmissionByGoal(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	submission, err := h.Service.SubmissionByGoal(r.Context(), user.TenantID, chi.URLParam(r, "goalID"))
	if err != nil {
		failDomain(w, r, err, "submission_get_failed", "failed to load submission")
		return
	}
	h.writeSubmission(w, r, user, submission)
}

func (h *Handler) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	submission, err := h.Service.GetSubmission(r.Context(), user.TenantID, chi.URLParam(r, "submissionID"))
	if err != nil {
		failDomain(w, r, err, "submission_get_failed", "failed to load submission")
		return
	}
	h.writeSubmission(w, r, user, submission)
}

func (h *Handler) writeSubmission(w http.ResponseWriter, r *http.Request, user auth.UserContext, submission appraisal.GoalRatingSubmission) {
	if user.RoleName == auth.RoleEmployee && submission.EmployeeID != h.selfEmployeeID(r, user) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, submission, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReleaseSubmission(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	submissionID := chi.URLParam(r, "submissionID")
	submission, released, err := h.Service.Release(r.Context(), user.TenantID, submissionID, user.UserID)
	if err != nil {
		failDomain(w, r, err, "release_failed", "failed to release rating")
		return
	}
	if released {
		h.record(r, user, "appraisal.rating.release", audit.EntitySubmission, submissionID, map[string]string{"status": submission.Status})
	}
	api.Success(w, submission, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Comments string `json:"comments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := h.selfEmployeeID(r, user)
	if employeeID == "" {
		api.Fail(w, http.StatusForbidden, "forbidden", "no employee record for user", middleware.GetRequestID(r.Context()))
		return
	}

	submissionID := chi.URLParam(r, "submissionID")
	submission, err := h.Service.Acknowledge(r.Context(), user.TenantID, submissionID, employeeID, payload.Comments)
	if err != nil {
		failDomain(w, r, err, "acknowledge_failed", "failed to acknowledge rating")
		return
	}
	h.record(r, user, "appraisal.rating.acknowledge", audit.EntitySubmission, submissionID, map[string]string{"status": submission.Status})
	api.Success(w, submission, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDispute(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Category string `json:"category"`
		Reason   string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.Reason == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "dispute reason required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := h.selfEmployeeID(r, user)
	if employeeID == "" {
		api.Fail(w, http.StatusForbidden, "forbidden", "no employee record for user", middleware.GetRequestID(r.Context()))
		return
	}

	submissionID := chi.URLParam(r, "submissionID")
	submission, err := h.Service.Dispute(r.Context(), user.TenantID, submissionID, employeeID, payload.Category, payload.Reason)
	if err != nil {
		failDomain(w, r, err, "dispute_failed", "failed to open dispute")
		return
	}
	h.record(r, user, "appraisal.dispute.open", audit.EntitySubmission, submissionID, payload)
	api.Success(w, submission, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleResolveDispute(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Resolution         string   `json:"resolution"`
		Outcome            string   `json:"outcome"`
		AdjustedFinalScore *float64 `json:"adjustedFinalScore"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("resolution", payload.Resolution, "resolution note is required")
	v.Enum("outcome", payload.Outcome, []string{appraisal.DisputeStatusResolved, appraisal.DisputeStatusRejected}, "outcome must be resolved or rejected")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	submissionID := chi.URLParam(r, "submissionID")
	submission, err := h.Service.ResolveDispute(r.Context(), user.TenantID, submissionID, user.UserID, payload.Resolution, payload.Outcome, payload.AdjustedFinalScore)
	if err != nil {
		failDomain(w, r, err, "dispute_resolve_failed", "failed to resolve dispute")
		return
	}
	h.record(r, user, "appraisal.dispute.resolve", audit.EntitySubmission, submissionID, payload)
	api.Success(w, submission, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSaveRatingConfig(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload appraisal.RatingConfig
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "config name is required")
	v.Required("calculationMethod", payload.CalculationMethod, "calculation method is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.SaveRatingConfig(r.Context(), user.TenantID, payload)
	if err != nil {
		failDomain(w, r, err, "config_save_failed", "failed to save rating config")
		return
	}
	h.record(r, user, "appraisal.config.save", audit.EntityRatingConfig, id, payload)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRatingConfig(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	cfg, err := h.Service.GetRatingConfig(r.Context(), user.TenantID, chi.URLParam(r, "configID"))
	if err != nil {
		failDomain(w, r, err, "config_get_failed", "failed to load rating config")
		return
	}
	api.Success(w, cfg, middleware.GetRequestID(r.Context()))
}
