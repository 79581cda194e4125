package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/kalambet/permitflow/internal/permit"
	"github.com/kalambet/permitflow/internal/storage"
)

// SubmitRequest is the body of POST /questionnaires.
type SubmitRequest struct {
	ProjectID string `json:"projectId"`
	permit.Payload
}

// ClassifyResponse is the body returned by POST /classify.
type ClassifyResponse struct {
	permit.Decision
	Details permit.Details `json:"details"`
}

func handlePutQuestionnaire(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var p permit.Payload
		if err := render.DecodeJSON(r.Body, &p); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		submit(w, r, deps, chi.URLParam(r, "id"), p)
	}
}

func handleSubmitQuestionnaire(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req SubmitRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.ProjectID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "projectId is required")
			return
		}
		submit(w, r, deps, req.ProjectID, req.Payload)
	}
}

func submit(w http.ResponseWriter, r *http.Request, deps AppDeps, projectID string, p permit.Payload) {
	sub, err := deps.Service.SubmitPayload(projectID, p)
	if err != nil {
		serviceError(w, err, "project")
		return
	}

	if sub.Created {
		render.Status(r, http.StatusCreated)
	}
	render.JSON(w, r, sub.Questionnaire)
}

func handleGetQuestionnaire(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := deps.Service.Questionnaire(chi.URLParam(r, "id"))
		if err != nil {
			serviceError(w, err, "project")
			return
		}
		// A nil record encodes as JSON null.
		render.JSON(w, r, q)
	}
}

func handleListQuestionnaires(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := deps.Service.Questionnaires()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list questionnaires: %v", err)
			return
		}
		if qs == nil {
			qs = []storage.Questionnaire{}
		}
		render.JSON(w, r, qs)
	}
}

func handleClassify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var p permit.Payload
	if err := render.DecodeJSON(r.Body, &p); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}
	resp, err := p.Response()
	if err != nil {
		serviceError(w, err, "payload")
		return
	}

	d := permit.Explain(resp)
	render.JSON(w, r, ClassifyResponse{Decision: d, Details: d.Requirement.Details()})
}
