package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AkremHaddad/Productivy-sub000/internal/domain"
)

// Ownership runs through the projects table: every sprint/task statement
// joins back to projects and matches user_id, so rows belonging to another
// user are indistinguishable from missing ones.

// CreateProject inserts a project.
func (r *Repository) CreateProject(ctx context.Context, project domain.Project) error {
	const stmt = `INSERT INTO projects (project_id, user_id, name, description, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6)`

	_, err := r.pool.Exec(ctx, stmt,
		project.ID, project.UserID, project.Name, project.Description, project.CreatedAt, project.UpdatedAt)
	return err
}

// ListProjects returns the user's projects, newest first.
func (r *Repository) ListProjects(ctx context.Context, userID uuid.UUID) ([]domain.Project, error) {
	const query = `SELECT project_id, user_id, name, description, created_at, updated_at
        FROM projects WHERE user_id=$1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make([]domain.Project, 0)
	for rows.Next() {
		var project domain.Project
		if err := rows.Scan(&project.ID, &project.UserID, &project.Name, &project.Description, &project.CreatedAt, &project.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// GetProject fetches one project owned by the user, nil when unreachable.
func (r *Repository) GetProject(ctx context.Context, userID, projectID uuid.UUID) (*domain.Project, error) {
	const query = `SELECT project_id, user_id, name, description, created_at, updated_at
        FROM projects WHERE project_id=$1 AND user_id=$2`

	var project domain.Project
	row := r.pool.QueryRow(ctx, query, projectID, userID)
	if err := row.Scan(&project.ID, &project.UserID, &project.Name, &project.Description, &project.CreatedAt, &project.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

// UpdateProject rewrites name and description.
func (r *Repository) UpdateProject(ctx context.Context, userID uuid.UUID, project domain.Project) error {
	const stmt = `UPDATE projects SET name=$1, description=$2, updated_at=$3
        WHERE project_id=$4 AND user_id=$5`

	tag, err := r.pool.Exec(ctx, stmt, project.Name, project.Description, project.UpdatedAt, project.ID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteProject removes a project; children go with it via FK cascade.
func (r *Repository) DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE project_id=$1 AND user_id=$2`, projectID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreateSprint appends a sprint at the end of the project's order.
func (r *Repository) CreateSprint(ctx context.Context, userID uuid.UUID, sprint domain.Sprint) error {
	const stmt = `INSERT INTO sprints (sprint_id, project_id, name, position, created_at)
        SELECT $1, p.project_id, $2,
               COALESCE((SELECT MAX(position)+1 FROM sprints WHERE project_id=p.project_id), 0),
               $3
        FROM projects p WHERE p.project_id=$4 AND p.user_id=$5`

	tag, err := r.pool.Exec(ctx, stmt, sprint.ID, sprint.Name, sprint.CreatedAt, sprint.ProjectID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListSprints returns a project's sprints in stored order. A missing project
// is ErrNotFound, not an empty list.
func (r *Repository) ListSprints(ctx context.Context, userID, projectID uuid.UUID) ([]domain.Sprint, error) {
	if err := r.requireProject(ctx, userID, projectID); err != nil {
		return nil, err
	}

	const query = `SELECT sprint_id, project_id, name, position, created_at
        FROM sprints WHERE project_id=$1 ORDER BY position`

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sprints := make([]domain.Sprint, 0)
	for rows.Next() {
		var sprint domain.Sprint
		if err := rows.Scan(&sprint.ID, &sprint.ProjectID, &sprint.Name, &sprint.Position, &sprint.CreatedAt); err != nil {
			return nil, err
		}
		sprints = append(sprints, sprint)
	}
	return sprints, rows.Err()
}

// UpdateSprint renames a sprint.
func (r *Repository) UpdateSprint(ctx context.Context, userID, projectID uuid.UUID, sprint domain.Sprint) error {
	const stmt = `UPDATE sprints s SET name=$1
        FROM projects p
        WHERE s.sprint_id=$2 AND s.project_id=p.project_id AND p.project_id=$3 AND p.user_id=$4`

	tag, err := r.pool.Exec(ctx, stmt, sprint.Name, sprint.ID, projectID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteSprint removes a sprint and its tasks.
func (r *Repository) DeleteSprint(ctx context.Context, userID, projectID, sprintID uuid.UUID) error {
	const stmt = `DELETE FROM sprints s
        USING projects p
        WHERE s.sprint_id=$1 AND s.project_id=p.project_id AND p.project_id=$2 AND p.user_id=$3`

	tag, err := r.pool.Exec(ctx, stmt, sprintID, projectID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreateTask appends a task at the end of the sprint's order.
func (r *Repository) CreateTask(ctx context.Context, userID, projectID uuid.UUID, task domain.Task) error {
	const stmt = `INSERT INTO tasks (task_id, sprint_id, title, description, status, position, created_at, updated_at)
        SELECT $1, s.sprint_id, $2, $3, $4,
               COALESCE((SELECT MAX(position)+1 FROM tasks WHERE sprint_id=s.sprint_id), 0),
               $5, $5
        FROM sprints s
        JOIN projects p ON p.project_id = s.project_id
        WHERE s.sprint_id=$6 AND p.project_id=$7 AND p.user_id=$8`

	tag, err := r.pool.Exec(ctx, stmt,
		task.ID, task.Title, task.Description, task.Status, task.CreatedAt, task.SprintID, projectID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListTasks returns a sprint's tasks in stored order. A deleted sprint is
// ErrNotFound, not an empty list.
func (r *Repository) ListTasks(ctx context.Context, userID, projectID, sprintID uuid.UUID) ([]domain.Task, error) {
	if err := r.requireSprint(ctx, userID, projectID, sprintID); err != nil {
		return nil, err
	}

	const query = `SELECT task_id, sprint_id, title, description, status, position, created_at, updated_at
        FROM tasks WHERE sprint_id=$1 ORDER BY position`

	rows, err := r.pool.Query(ctx, query, sprintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		var task domain.Task
		if err := rows.Scan(&task.ID, &task.SprintID, &task.Title, &task.Description, &task.Status, &task.Position, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// UpdateTask rewrites a task's title and description.
func (r *Repository) UpdateTask(ctx context.Context, userID, projectID uuid.UUID, task domain.Task) error {
	const stmt = `UPDATE tasks t SET title=$1, description=$2, updated_at=$3
        FROM sprints s
        JOIN projects p ON p.project_id = s.project_id
        WHERE t.task_id=$4 AND t.sprint_id=s.sprint_id AND p.project_id=$5 AND p.user_id=$6`

	tag, err := r.pool.Exec(ctx, stmt, task.Title, task.Description, task.UpdatedAt, task.ID, projectID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateTaskStatus moves a task between statuses.
func (r *Repository) UpdateTaskStatus(ctx context.Context, userID, projectID, taskID uuid.UUID, status domain.TaskStatus) error {
	const stmt = `UPDATE tasks t SET status=$1, updated_at=NOW()
        FROM sprints s
        JOIN projects p ON p.project_id = s.project_id
        WHERE t.task_id=$2 AND t.sprint_id=s.sprint_id AND p.project_id=$3 AND p.user_id=$4`

	tag, err := r.pool.Exec(ctx, stmt, status, taskID, projectID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteTask removes a task.
func (r *Repository) DeleteTask(ctx context.Context, userID, projectID, taskID uuid.UUID) error {
	const stmt = `DELETE FROM tasks t
        USING sprints s, projects p
        WHERE t.task_id=$1 AND t.sprint_id=s.sprint_id AND s.project_id=p.project_id
          AND p.project_id=$2 AND p.user_id=$3`

	tag, err := r.pool.Exec(ctx, stmt, taskID, projectID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ReorderTasks replaces the sprint's task order wholesale with the given ids.
func (r *Repository) ReorderTasks(ctx context.Context, userID, projectID, sprintID uuid.UUID, taskIDs []uuid.UUID) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := requireSprintTx(ctx, tx, userID, projectID, sprintID); err != nil {
		return err
	}

	for position, taskID := range taskIDs {
		if _, err := tx.Exec(ctx, `UPDATE tasks SET position=$1 WHERE task_id=$2 AND sprint_id=$3`, position, taskID, sprintID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repository) requireProject(ctx context.Context, userID, projectID uuid.UUID) error {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM projects WHERE project_id=$1 AND user_id=$2)`
	if err := r.pool.QueryRow(ctx, query, projectID, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) requireSprint(ctx context.Context, userID, projectID, sprintID uuid.UUID) error {
	var exists bool
	const query = `SELECT EXISTS (
        SELECT 1 FROM sprints s
        JOIN projects p ON p.project_id = s.project_id
        WHERE s.sprint_id=$1 AND p.project_id=$2 AND p.user_id=$3)`
	if err := r.pool.QueryRow(ctx, query, sprintID, projectID, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return nil
}

func requireSprintTx(ctx context.Context, tx pgx.Tx, userID, projectID, sprintID uuid.UUID) error {
	var exists bool
	const query = `SELECT EXISTS (
        SELECT 1 FROM sprints s
        JOIN projects p ON p.project_id = s.project_id
        WHERE s.sprint_id=$1 AND p.project_id=$2 AND p.user_id=$3)`
	if err := tx.QueryRow(ctx, query, sprintID, projectID, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return nil
}
