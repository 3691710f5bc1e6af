package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/retention-monitor/internal/domain"
	"github.com/ignite/retention-monitor/internal/pkg/httputil"
	"github.com/ignite/retention-monitor/internal/service/followup"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	followUp *followup.Service
}

// NewHandlers creates a new Handlers instance
func NewHandlers(svc *followup.Service) *Handlers {
	return &Handlers{followUp: svc}
}

// recordCallRequest is the body of POST /api/churn-records/{id}/calls.
type recordCallRequest struct {
	Response      string `json:"response"`
	ChurnReason   string `json:"churn_reason,omitempty"`
	Notes         string `json:"notes,omitempty"`
	MailConfirmed *bool  `json:"mail_sent_confirmation,omitempty"`
}

// RecordCall handles POST /api/churn-records/{id}/calls.
func (h *Handlers) RecordCall(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req recordCallRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	rec, err := h.followUp.RecordCallAttempt(r.Context(), id, followup.CallInput{
		Response:      domain.CallResponse(req.Response),
		Reason:        req.ChurnReason,
		Notes:         req.Notes,
		MailConfirmed: req.MailConfirmed,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.Created(w, rec)
}

// ConfirmMail handles POST /api/churn-records/{id}/mail-confirmation.
func (h *Handlers) ConfirmMail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.followUp.ConfirmMailSent(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.OK(w, rec)
}

// updateReasonRequest is the body of PUT /api/churn-records/{id}/reason.
type updateReasonRequest struct {
	ChurnReason string `json:"churn_reason"`
}

// UpdateReason handles PUT /api/churn-records/{id}/reason.
func (h *Handlers) UpdateReason(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateReasonRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	rec, err := h.followUp.UpdateReason(r.Context(), id, req.ChurnReason)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.OK(w, rec)
}

// GetRecord handles GET /api/churn-records/{id}.
func (h *Handlers) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.followUp.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.OK(w, rec)
}

// GetFollowUpStatus handles GET /api/churn-records/{id}/follow-up.
func (h *Handlers) GetFollowUpStatus(w http.ResponseWriter, r *http.Request) {
	view, err := h.followUp.GetFollowUpStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.OK(w, view)
}

// ListActive handles GET /api/churn-records/active. Only records whose
// reminder has come due (or that carry none) are returned.
func (h *Handlers) ListActive(w http.ResponseWriter, r *http.Request) {
	records, err := h.followUp.ActiveRecords(r.Context(), paginationFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

// ListDue handles GET /api/churn-records/due.
func (h *Handlers) ListDue(w http.ResponseWriter, r *http.Request) {
	records, err := h.followUp.DueRecords(r.Context(), paginationFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

// GetDashboard handles GET /api/dashboard. Returns all four category
// buckets plus counts in one call.
func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.followUp.Dashboard(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.OK(w, summary)
}

func paginationFrom(r *http.Request) followup.QueryFilter {
	var f followup.QueryFilter
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			f.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			f.Offset = n
		}
	}
	return f
}

// respondServiceError maps follow-up service errors to HTTP statuses.
// Validation failures are 422 (well-formed request, rejected by the rules),
// malformed JSON is handled earlier as 400.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, followup.ErrNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, followup.ErrConflict):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, followup.ErrInvalidCallResponse):
		httputil.ErrorCode(w, http.StatusUnprocessableEntity, "invalid_call_response", err.Error())
	case errors.Is(err, followup.ErrMissingChurnReason):
		httputil.ErrorCode(w, http.StatusUnprocessableEntity, "missing_churn_reason", err.Error())
	case errors.Is(err, followup.ErrMailConfirmationRequired):
		httputil.ErrorCode(w, http.StatusUnprocessableEntity, "mail_confirmation_required", err.Error())
	default:
		httputil.InternalError(w, err)
	}
}
