package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
)

// Project is the root of the planning hierarchy. Every read and write on a
// project or anything beneath it is scoped to the owning user.
type Project struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Sprint is an ordered child of a project.
type Sprint struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	Name      string
	Position  int
	CreatedAt time.Time
}

// TaskStatus tracks a task through the sprint board.
type TaskStatus string

const (
	TaskTodo  TaskStatus = "todo"
	TaskDoing TaskStatus = "doing"
	TaskDone  TaskStatus = "done"
)

// ParseTaskStatus validates a raw status value.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	switch status := TaskStatus(raw); status {
	case TaskTodo, TaskDoing, TaskDone:
		return status, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownStatus, raw)
	}
}

// Task is an ordered child of a sprint.
type Task struct {
	ID          uuid.UUID
	SprintID    uuid.UUID
	Title       string
	Description string
	Status      TaskStatus
	Position    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectRepository captures persistence for the project tree. Mutations on
// records that do not exist, or are not reachable from a project owned by
// the caller, return ErrNotFound. Deletes cascade to children.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project Project) error
	ListProjects(ctx context.Context, userID uuid.UUID) ([]Project, error)
	GetProject(ctx context.Context, userID, projectID uuid.UUID) (*Project, error)
	UpdateProject(ctx context.Context, userID uuid.UUID, project Project) error
	DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error

	CreateSprint(ctx context.Context, userID uuid.UUID, sprint Sprint) error
	ListSprints(ctx context.Context, userID, projectID uuid.UUID) ([]Sprint, error)
	UpdateSprint(ctx context.Context, userID, projectID uuid.UUID, sprint Sprint) error
	DeleteSprint(ctx context.Context, userID, projectID, sprintID uuid.UUID) error

	CreateTask(ctx context.Context, userID, projectID uuid.UUID, task Task) error
	ListTasks(ctx context.Context, userID, projectID, sprintID uuid.UUID) ([]Task, error)
	UpdateTask(ctx context.Context, userID, projectID uuid.UUID, task Task) error
	UpdateTaskStatus(ctx context.Context, userID, projectID, taskID uuid.UUID, status TaskStatus) error
	DeleteTask(ctx context.Context, userID, projectID, taskID uuid.UUID) error
	ReorderTasks(ctx context.Context, userID, projectID, sprintID uuid.UUID, taskIDs []uuid.UUID) error
}

// Projects orchestrates the project/sprint/task workflows.
type Projects struct {
	repo  ProjectRepository
	clock quartz.Clock
}

// NewProjects constructs a Projects service.
func NewProjects(repo ProjectRepository, clock quartz.Clock) *Projects {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Projects{repo: repo, clock: clock}
}

// CreateProject creates a project owned by the caller.
func (p *Projects) CreateProject(ctx context.Context, userID uuid.UUID, name, description string) (*Project, error) {
	now := p.clock.Now().UTC()
	project := Project{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.repo.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	return &project, nil
}

// ListProjects lists the caller's projects.
func (p *Projects) ListProjects(ctx context.Context, userID uuid.UUID) ([]Project, error) {
	return p.repo.ListProjects(ctx, userID)
}

// GetProject fetches one project by id.
func (p *Projects) GetProject(ctx context.Context, userID, projectID uuid.UUID) (*Project, error) {
	project, err := p.repo.GetProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}
	return project, nil
}

// UpdateProject renames a project.
func (p *Projects) UpdateProject(ctx context.Context, userID, projectID uuid.UUID, name, description string) (*Project, error) {
	project := Project{
		ID:          projectID,
		UserID:      userID,
		Name:        name,
		Description: description,
		UpdatedAt:   p.clock.Now().UTC(),
	}
	if err := p.repo.UpdateProject(ctx, userID, project); err != nil {
		return nil, err
	}
	return p.GetProject(ctx, userID, projectID)
}

// DeleteProject removes a project and everything beneath it.
func (p *Projects) DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error {
	return p.repo.DeleteProject(ctx, userID, projectID)
}

// CreateSprint appends a sprint to a project.
func (p *Projects) CreateSprint(ctx context.Context, userID, projectID uuid.UUID, name string) (*Sprint, error) {
	sprint := Sprint{
		ID:        uuid.New(),
		ProjectID: projectID,
		Name:      name,
		CreatedAt: p.clock.Now().UTC(),
	}
	if err := p.repo.CreateSprint(ctx, userID, sprint); err != nil {
		return nil, err
	}
	return &sprint, nil
}

// ListSprints lists a project's sprints in order.
func (p *Projects) ListSprints(ctx context.Context, userID, projectID uuid.UUID) ([]Sprint, error) {
	return p.repo.ListSprints(ctx, userID, projectID)
}

// UpdateSprint renames a sprint.
func (p *Projects) UpdateSprint(ctx context.Context, userID, projectID, sprintID uuid.UUID, name string) error {
	return p.repo.UpdateSprint(ctx, userID, projectID, Sprint{ID: sprintID, Name: name})
}

// DeleteSprint removes a sprint and its tasks.
func (p *Projects) DeleteSprint(ctx context.Context, userID, projectID, sprintID uuid.UUID) error {
	return p.repo.DeleteSprint(ctx, userID, projectID, sprintID)
}

// CreateTask appends a task to a sprint.
func (p *Projects) CreateTask(ctx context.Context, userID, projectID, sprintID uuid.UUID, title, description string) (*Task, error) {
	now := p.clock.Now().UTC()
	task := Task{
		ID:          uuid.New(),
		SprintID:    sprintID,
		Title:       title,
		Description: description,
		Status:      TaskTodo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.repo.CreateTask(ctx, userID, projectID, task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTasks lists a sprint's tasks in order. A missing sprint is ErrNotFound,
// not an empty list.
func (p *Projects) ListTasks(ctx context.Context, userID, projectID, sprintID uuid.UUID) ([]Task, error) {
	return p.repo.ListTasks(ctx, userID, projectID, sprintID)
}

// UpdateTask rewrites a task's title and description.
func (p *Projects) UpdateTask(ctx context.Context, userID, projectID, taskID uuid.UUID, title, description string) error {
	return p.repo.UpdateTask(ctx, userID, projectID, Task{
		ID:          taskID,
		Title:       title,
		Description: description,
		UpdatedAt:   p.clock.Now().UTC(),
	})
}

// UpdateTaskStatus moves a task between todo/doing/done.
func (p *Projects) UpdateTaskStatus(ctx context.Context, userID, projectID, taskID uuid.UUID, raw string) error {
	status, err := ParseTaskStatus(raw)
	if err != nil {
		return err
	}
	return p.repo.UpdateTaskStatus(ctx, userID, projectID, taskID, status)
}

// DeleteTask removes a task.
func (p *Projects) DeleteTask(ctx context.Context, userID, projectID, taskID uuid.UUID) error {
	return p.repo.DeleteTask(ctx, userID, projectID, taskID)
}

// ReorderTasks replaces the stored task order wholesale.
func (p *Projects) ReorderTasks(ctx context.Context, userID, projectID, sprintID uuid.UUID, taskIDs []uuid.UUID) error {
	return p.repo.ReorderTasks(ctx, userID, projectID, sprintID, taskIDs)
}
