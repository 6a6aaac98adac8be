package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"animrender/internal/httpkit"
	"animrender/internal/jobs"
	"animrender/internal/pkg/errors"
	"animrender/internal/worker/processor"
)

// MsgNotScheduled is recorded when a job was registered but could not be started.
const MsgNotScheduled = "Job could not be scheduled"

type RenderRequest struct {
	Code     string `json:"code"`
	CodeID   string `json:"code_id,omitempty"`
	Quality  string `json:"quality,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`
}

type RenderResponse struct {
	URL    string `json:"url"`
	CodeID string `json:"code_id"`
	Status string `json:"status"`
}

type StatusResponse struct {
	CodeID  string `json:"code_id"`
	Status  string `json:"status"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// PostRender registers a job and schedules it without waiting for the render.
func (h *Handler) PostRender(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var req RenderRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		return errors.Validation("invalid json body")
	}
	if strings.TrimSpace(req.Code) == "" {
		return errors.ValidationField("code", "No Manim code provided")
	}
	if req.AudioURL != "" {
		if err := validateAudioURL(req.AudioURL); err != nil {
			return err
		}
	}

	id := req.CodeID
	if id == "" {
		id = jobs.NewID()
	}
	quality := jobs.Quality(req.Quality)
	if quality == "" {
		quality = jobs.DefaultQuality
	}

	job, err := h.registry.Create(ctx, jobs.Job{
		ID:       id,
		Quality:  quality,
		AudioURL: req.AudioURL,
		Message:  processor.MsgQueued,
	})
	if err != nil {
		return err
	}

	err = h.scheduler.Submit(processor.Request{
		JobID:    job.ID,
		Source:   req.Code,
		Quality:  string(job.Quality),
		AudioURL: job.AudioURL,
	})
	if err != nil {
		if ferr := h.registry.Fail(ctx, job.ID, err.Error(), MsgNotScheduled); ferr != nil {
			h.log.FromContext(ctx).Error("failed to record unscheduled job", "job_id", job.ID, "error", ferr.Error())
		}
		return err
	}

	h.log.FromContext(ctx).Info("render job accepted",
		"job_id", job.ID,
		"quality", string(job.Quality),
		"audio", job.AudioURL != "",
	)
	httpkit.WriteJSON(w, http.StatusCreated, RenderResponse{
		URL:    "/status/" + job.ID,
		CodeID: job.ID,
		Status: string(jobs.StatusProcessing),
	})
	return nil
}

// GetStatus returns a snapshot of one job.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "code_id")

	job, ok := h.registry.Get(id)
	if !ok {
		return errors.NotFound("job", id)
	}

	httpkit.WriteJSON(w, http.StatusOK, StatusResponse{
		CodeID:  job.ID,
		Status:  string(job.Status),
		URL:     job.URL,
		Error:   job.Error,
		Message: job.Message,
	})
	return nil
}

// The audio URL is handed to curl, so only remote http(s) sources are accepted.
func validateAudioURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.ValidationField("audio_url", "audio_url must be an absolute http or https URL")
	}
	return nil
}
