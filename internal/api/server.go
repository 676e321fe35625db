// Package api serves the task CRUD and analytics endpoints the
// scheduler (and anything else) talks to.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/taskpilot/taskpilot/internal/domain"
	"github.com/taskpilot/taskpilot/internal/store"
)

// Backend is the storage surface the API serves. *store.SQLite
// implements it.
type Backend interface {
	CreateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	GetTask(ctx context.Context, taskID int64) (domain.Task, error)
	ListTasks(ctx context.Context, opts store.ListOptions) ([]domain.Task, error)
	UpdateTask(ctx context.Context, taskID int64, upd store.TaskUpdate) (domain.Task, error)
	DeleteTask(ctx context.Context, taskID int64) error
	AddDependency(ctx context.Context, dep domain.Dependency) error
	GetDependencies(ctx context.Context, taskID int64) ([]domain.Dependency, error)
	CreateProject(ctx context.Context, p domain.Project) (domain.Project, error)
	GetProject(ctx context.Context, projectID int64) (domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	UpdateProject(ctx context.Context, projectID int64, p domain.Project) (domain.Project, error)
	DeleteProject(ctx context.Context, projectID int64) error
	ProjectProgress(ctx context.Context, projectID int64) (domain.ProjectProgress, error)
	RecordRunMetrics(ctx context.Context, m domain.RunMetrics) error
	ListRunMetrics(ctx context.Context, limit int) ([]domain.RunMetrics, error)
}

// Server is the HTTP task API.
type Server struct {
	backend Backend
	router  chi.Router
	log     zerolog.Logger
}

// NewServer creates a Server over the given backend.
func NewServer(backend Backend, log zerolog.Logger) *Server {
	s := &Server{backend: backend, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.handleListTasks)
		r.Post("/", s.handleCreateTask)
		r.Route("/{taskID}", func(r chi.Router) {
			r.Get("/", s.handleGetTask)
			r.Put("/", s.handleUpdateTask)
			r.Delete("/", s.handleDeleteTask)
			r.Get("/dependencies", s.handleListDependencies)
			r.Post("/dependencies", s.handleAddDependency)
		})
	})

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", s.handleListProjects)
		r.Post("/", s.handleCreateProject)
		r.Route("/{projectID}", func(r chi.Router) {
			r.Get("/", s.handleGetProject)
			r.Put("/", s.handleUpdateProject)
			r.Delete("/", s.handleDeleteProject)
		})
	})

	r.Route("/analytics", func(r chi.Router) {
		r.Get("/workflow-metrics", s.handleListMetrics)
		r.Post("/workflow-metrics", s.handleRecordMetrics)
		r.Get("/project-progress/{projectID}", s.handleProjectProgress)
	})

	s.router = r
	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("task API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("task API shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
