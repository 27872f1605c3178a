package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"SendPlan/internal/configwriter"
	"SendPlan/internal/models"
	"SendPlan/internal/recipients"
	"SendPlan/internal/store"
)

// Handler exposes the dispatch engine over HTTP. Authentication and tenant
// scoping are applied by middleware in front of this router and are not
// handled here.
type Handler struct {
	Writer  *configwriter.Writer
	Store   store.JobStore
	Configs store.ConfigStore
	Log     *zap.Logger
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/clients/{clientID}", func(r chi.Router) {
		r.Put("/email-config", h.applyConfig)
		r.Get("/email-config", h.getConfig)
		r.Delete("/email-config", h.deleteConfig)
		r.Post("/email-config/recipients", h.importRecipients)
		r.Get("/scheduled-emails", h.listScheduled)
		r.Post("/scheduled-emails/{jobID}/cancel", h.cancelJob)
		r.Post("/test-email", h.scheduleTestEmail)
	})
	return r
}

type applyConfigResponse struct {
	ClientID     int64       `json:"client_id"`
	CreatedJobs  int         `json:"created_jobs"`
	CancelledIDs []uuid.UUID `json:"cancelled_ids"`
}

func (h *Handler) applyConfig(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}

	var cfg models.EmailConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		h.error(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.Writer.ApplyConfig(r.Context(), clientID, &cfg)
	if err != nil {
		if errors.Is(err, models.ErrInvalidConfig) {
			h.error(w, http.StatusUnprocessableEntity, err)
			return
		}
		h.internal(w, r, err)
		return
	}

	if err := h.Configs.SaveConfig(r.Context(), clientID, &cfg); err != nil {
		h.internal(w, r, err)
		return
	}

	h.json(w, http.StatusOK, applyConfigResponse{
		ClientID:     clientID,
		CreatedJobs:  len(result.Created),
		CancelledIDs: result.CancelledIDs,
	})
}

func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}
	cfg, err := h.Configs.GetConfig(r.Context(), clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.error(w, http.StatusNotFound, errors.New("email configuration not found"))
			return
		}
		h.internal(w, r, err)
		return
	}
	h.json(w, http.StatusOK, cfg)
}

func (h *Handler) deleteConfig(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}
	if _, err := h.Writer.CancelAll(r.Context(), clientID); err != nil {
		h.internal(w, r, err)
		return
	}
	if err := h.Configs.DeleteConfig(r.Context(), clientID); err != nil {
		h.internal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) importRecipients(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.clientID(w, r); !ok {
		return
	}
	rows, err := recipients.ParseRows(r.Body, 1000)
	if err != nil {
		h.error(w, http.StatusBadRequest, err)
		return
	}
	h.json(w, http.StatusOK, map[string]any{
		"recipients": rows,
		"total":      len(rows),
	})
}

type listScheduledResponse struct {
	ScheduledEmails []*models.ScheduledEmailJob `json:"scheduled_emails"`
	Total           int                         `json:"total"`
}

func (h *Handler) listScheduled(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}

	status := models.JobStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		h.error(w, http.StatusBadRequest, errors.New("unknown status filter"))
		return
	}
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	jobs, total, err := h.Store.ListByClient(r.Context(), clientID, status, limit, offset)
	if err != nil {
		h.internal(w, r, err)
		return
	}
	h.json(w, http.StatusOK, listScheduledResponse{ScheduledEmails: jobs, Total: total})
}

func (h *Handler) cancelJob(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		h.error(w, http.StatusBadRequest, errors.New("invalid job id"))
		return
	}

	applied, err := h.Writer.CancelJob(r.Context(), clientID, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.error(w, http.StatusNotFound, errors.New("job not found"))
			return
		}
		h.internal(w, r, err)
		return
	}
	h.json(w, http.StatusOK, map[string]any{
		"job_id":    jobID,
		"cancelled": applied,
	})
}

type testEmailRequest struct {
	TemplateID   int64    `json:"templateId"`
	Recipients   []string `json:"recipients"`
	DueInSeconds int      `json:"dueInSeconds"`
}

func (h *Handler) scheduleTestEmail(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}
	var req testEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, http.StatusBadRequest, err)
		return
	}

	job, err := h.Writer.ScheduleTestEmail(r.Context(), clientID, req.TemplateID, req.Recipients,
		time.Duration(req.DueInSeconds)*time.Second)
	if err != nil {
		if errors.Is(err, models.ErrInvalidConfig) {
			h.error(w, http.StatusUnprocessableEntity, err)
			return
		}
		h.internal(w, r, err)
		return
	}
	h.json(w, http.StatusAccepted, job)
}

func (h *Handler) clientID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "clientID"), 10, 64)
	if err != nil {
		h.error(w, http.StatusBadRequest, errors.New("invalid client id"))
		return 0, false
	}
	return id, true
}

func (h *Handler) json(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Log.Error("response encode failed", zap.Error(err))
	}
}

func (h *Handler) error(w http.ResponseWriter, status int, err error) {
	h.json(w, status, map[string]string{"detail": err.Error()})
}

func (h *Handler) internal(w http.ResponseWriter, r *http.Request, err error) {
	h.Log.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err))
	h.error(w, http.StatusInternalServerError, errors.New("internal server error"))
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
