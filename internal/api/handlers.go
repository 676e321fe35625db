package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskpilot/taskpilot/internal/domain"
	"github.com/taskpilot/taskpilot/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	var opts store.ListOptions

	if v := r.URL.Query().Get("status"); v != "" {
		opts.Status = domain.TaskStatus(v)
	}
	if v := r.URL.Query().Get("project_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid project_id")
			return
		}
		opts.ProjectID = &id
	}

	tasks, err := s.backend.ListTasks(r.Context(), opts)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var t domain.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if t.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if t.Priority != 0 && (t.Priority < domain.PriorityMin || t.Priority > domain.PriorityMax) {
		writeError(w, http.StatusBadRequest, "priority must be between 1 and 5")
		return
	}

	created, err := s.backend.CreateTask(r.Context(), t)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	t, err := s.backend.GetTask(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// taskPatch is the wire form of a partial task update.
type taskPatch struct {
	Status            *domain.TaskStatus `json:"status"`
	Priority          *int               `json:"priority"`
	CompletedAt       *time.Time         `json:"completed_at"`
	ProcessingSeconds *float64           `json:"processing_seconds"`
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var patch taskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if patch.Priority != nil && (*patch.Priority < domain.PriorityMin || *patch.Priority > domain.PriorityMax) {
		writeError(w, http.StatusBadRequest, "priority must be between 1 and 5")
		return
	}

	updated, err := s.backend.UpdateTask(r.Context(), id, store.TaskUpdate{
		Status:            patch.Status,
		Priority:          patch.Priority,
		CompletedAt:       patch.CompletedAt,
		ProcessingSeconds: patch.ProcessingSeconds,
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if err := s.backend.DeleteTask(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "task deleted"})
}

func (s *Server) handleListDependencies(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	deps, err := s.backend.GetDependencies(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deps)
}

func (s *Server) handleAddDependency(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var body struct {
		DependsOnID int64                 `json:"depends_on_id"`
		Kind        domain.DependencyKind `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.DependsOnID == id {
		writeError(w, http.StatusBadRequest, "task cannot depend on itself")
		return
	}

	dep := domain.Dependency{TaskID: id, DependsOnID: body.DependsOnID, Kind: body.Kind}
	if err := s.backend.AddDependency(r.Context(), dep); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dep)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.backend.ListProjects(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if projects == nil {
		projects = []domain.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var p domain.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if p.Priority != 0 && (p.Priority < domain.PriorityMin || p.Priority > domain.PriorityMax) {
		writeError(w, http.StatusBadRequest, "priority must be between 1 and 5")
		return
	}

	created, err := s.backend.CreateProject(r.Context(), p)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r)
	if !ok {
		return
	}
	p, err := s.backend.GetProject(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r)
	if !ok {
		return
	}

	var p domain.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if p.Priority != 0 && (p.Priority < domain.PriorityMin || p.Priority > domain.PriorityMax) {
		writeError(w, http.StatusBadRequest, "priority must be between 1 and 5")
		return
	}

	updated, err := s.backend.UpdateProject(r.Context(), id, p)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r)
	if !ok {
		return
	}
	if err := s.backend.DeleteProject(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "project deleted"})
}

func (s *Server) handleProjectProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r)
	if !ok {
		return
	}
	progress, err := s.backend.ProjectProgress(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleRecordMetrics(w http.ResponseWriter, r *http.Request) {
	var m domain.RunMetrics
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if m.RunID == "" {
		writeError(w, http.StatusBadRequest, "run_id is required")
		return
	}
	if err := s.backend.RecordRunMetrics(r.Context(), m); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	metrics, err := s.backend.ListRunMetrics(r.Context(), limit)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if metrics == nil {
		metrics = []domain.RunMetrics{}
	}
	writeJSON(w, http.StatusOK, metrics)
}

func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "taskID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return id, true
}

func projectID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return 0, false
	}
	return id, true
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.log.Error().Err(err).Msg("store error")
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
