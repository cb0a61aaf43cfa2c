package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AkremHaddad/Productivy-sub000/internal/domain"
)

func (h *Handler) registerProjectRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/projects", h.listProjects)
	mux.HandleFunc("POST /api/projects", h.createProject)
	mux.HandleFunc("GET /api/projects/{id}", h.getProject)
	mux.HandleFunc("PUT /api/projects/{id}", h.updateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", h.deleteProject)

	mux.HandleFunc("GET /api/projects/{id}/sprints", h.listSprints)
	mux.HandleFunc("POST /api/projects/{id}/sprints", h.createSprint)
	mux.HandleFunc("PUT /api/projects/{id}/sprints/{sprintID}", h.updateSprint)
	mux.HandleFunc("DELETE /api/projects/{id}/sprints/{sprintID}", h.deleteSprint)

	mux.HandleFunc("GET /api/projects/{id}/sprints/{sprintID}/tasks", h.listTasks)
	mux.HandleFunc("POST /api/projects/{id}/sprints/{sprintID}/tasks", h.createTask)
	mux.HandleFunc("PUT /api/projects/{id}/sprints/{sprintID}/tasks/order", h.reorderTasks)
	mux.HandleFunc("PUT /api/projects/{id}/sprints/{sprintID}/tasks/{taskID}", h.updateTask)
	mux.HandleFunc("PUT /api/projects/{id}/sprints/{sprintID}/tasks/{taskID}/status", h.updateTaskStatus)
	mux.HandleFunc("DELETE /api/projects/{id}/sprints/{sprintID}/tasks/{taskID}", h.deleteTask)
}

// ProjectRequest is the payload for creating or updating a project.
type ProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate ensures request correctness.
func (r ProjectRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

// ProjectView exposes project details.
type ProjectView struct {
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SprintView exposes sprint details.
type SprintView struct {
	SprintID  string    `json:"sprint_id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskView exposes task details.
type TaskView struct {
	TaskID      string    `json:"task_id"`
	SprintID    string    `json:"sprint_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NameRequest is the payload for renaming a sprint, board or column.
type NameRequest struct {
	Name string `json:"name"`
}

// Validate ensures request correctness.
func (r NameRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

// TaskRequest is the payload for creating or updating a task.
type TaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Validate ensures request correctness.
func (r TaskRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	return nil
}

// StatusRequest is the payload for moving a task between statuses.
type StatusRequest struct {
	Status string `json:"status"`
}

// OrderRequest replaces a stored order wholesale.
type OrderRequest struct {
	Order []string `json:"order"`
}

func (r OrderRequest) ids() ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(r.Order))
	for _, raw := range r.Order {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.New("order must contain valid ids")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}

	projects, err := h.projects.ListProjects(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]ProjectView, 0, len(projects))
	for _, project := range projects {
		views = append(views, toProjectView(project))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}

	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	project, err := h.projects.CreateProject(r.Context(), claims.UserID, req.Name, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectView(*project))
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	project, err := h.projects.GetProject(r.Context(), claims.UserID, projectID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectView(*project))
}

func (h *Handler) updateProject(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	project, err := h.projects.UpdateProject(r.Context(), claims.UserID, projectID, req.Name, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectView(*project))
}

func (h *Handler) deleteProject(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.projects.DeleteProject(r.Context(), claims.UserID, projectID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listSprints(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	sprints, err := h.projects.ListSprints(r.Context(), claims.UserID, projectID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]SprintView, 0, len(sprints))
	for _, sprint := range sprints {
		views = append(views, toSprintView(sprint))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) createSprint(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	sprint, err := h.projects.CreateSprint(r.Context(), claims.UserID, projectID, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSprintView(*sprint))
}

func (h *Handler) updateSprint(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sprintID, ok := pathID(w, r, "sprintID")
	if !ok {
		return
	}

	var req NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	if err := h.projects.UpdateSprint(r.Context(), claims.UserID, projectID, sprintID, req.Name); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteSprint(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sprintID, ok := pathID(w, r, "sprintID")
	if !ok {
		return
	}

	if err := h.projects.DeleteSprint(r.Context(), claims.UserID, projectID, sprintID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sprintID, ok := pathID(w, r, "sprintID")
	if !ok {
		return
	}

	tasks, err := h.projects.ListTasks(r.Context(), claims.UserID, projectID, sprintID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]TaskView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, toTaskView(task))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sprintID, ok := pathID(w, r, "sprintID")
	if !ok {
		return
	}

	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	task, err := h.projects.CreateTask(r.Context(), claims.UserID, projectID, sprintID, req.Title, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskView(*task))
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}

	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	if err := h.projects.UpdateTask(r.Context(), claims.UserID, projectID, taskID, req.Title, req.Description); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateTaskStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	if err := h.projects.UpdateTaskStatus(r.Context(), claims.UserID, projectID, taskID, req.Status); err != nil {
		if errors.Is(err, domain.ErrUnknownStatus) {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}

	if err := h.projects.DeleteTask(r.Context(), claims.UserID, projectID, taskID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reorderTasks(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sprintID, ok := pathID(w, r, "sprintID")
	if !ok {
		return
	}

	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	ids, err := req.ids()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	if err := h.projects.ReorderTasks(r.Context(), claims.UserID, projectID, sprintID, ids); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toProjectView(project domain.Project) ProjectView {
	return ProjectView{
		ProjectID:   project.ID.String(),
		Name:        project.Name,
		Description: project.Description,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
}

func toSprintView(sprint domain.Sprint) SprintView {
	return SprintView{
		SprintID:  sprint.ID.String(),
		ProjectID: sprint.ProjectID.String(),
		Name:      sprint.Name,
		Position:  sprint.Position,
		CreatedAt: sprint.CreatedAt,
	}
}

func toTaskView(task domain.Task) TaskView {
	return TaskView{
		TaskID:      task.ID.String(),
		SprintID:    task.SprintID.String(),
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		Position:    task.Position,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}
