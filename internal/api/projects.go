package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/kalambet/permitflow/internal/intake"
	"github.com/kalambet/permitflow/internal/storage"
)

func handleCreateProject(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var in intake.ProjectInput
		if err := render.DecodeJSON(r.Body, &in); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		p, err := deps.Service.CreateProject(in)
		if err != nil {
			serviceError(w, err, "project")
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, p)
	}
}

func handleListProjects(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := deps.Service.Projects()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list projects: %v", err)
			return
		}
		if projects == nil {
			projects = []storage.Project{}
		}
		render.JSON(w, r, projects)
	}
}

func handleGetProject(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Service.Project(chi.URLParam(r, "id"))
		if err != nil {
			serviceError(w, err, "project")
			return
		}
		render.JSON(w, r, p)
	}
}
