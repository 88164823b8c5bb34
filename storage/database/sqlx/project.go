package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
)

type projectRepository struct {
	repository
}

var _ course.ProjectRepository = (*projectRepository)(nil) // interface compliance check

func NewProjectRepository(exec core.DBExecutor) *projectRepository {
	return &projectRepository{repository{exec: exec}}
}

type (
	projectRow struct {
		ID       string    `db:"id"`
		Name     string    `db:"name"`
		Deadline time.Time `db:"deadline"`
	}

	gradeComponentRow struct {
		ProjectID string  `db:"project_id"`
		Name      string  `db:"name"`
		Points    float64 `db:"points"`
	}
)

// components returns the grade components of the course projects, keyed by project.
func (repo projectRepository) components(ctx context.Context, exec core.DBExecutor, courseID string, projectID ...string) (map[string][]course.GradeComponent, error) {
	var rows []gradeComponentRow
	q := "SELECT project_id, name, points FROM grade_component WHERE course_id = ?"
	args := []interface{}{courseID}
	if len(projectID) > 0 {
		q += " AND project_id = ?"
		args = append(args, projectID[0])
	}
	q += " ORDER BY project_id, position, name"
	if err := repo.sel(ctx, exec, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying grade components")
	}
	comps := make(map[string][]course.GradeComponent)
	for _, r := range rows {
		comps[r.ProjectID] = append(comps[r.ProjectID], course.GradeComponent{Name: r.Name, Points: r.Points})
	}
	return comps, nil
}

func (repo projectRepository) GetProject(ctx context.Context, courseID, id string, exec ...core.DBExecutor) (course.Project, error) {
	exe := repo.getExec(exec)

	var row projectRow
	q := "SELECT id, name, deadline FROM project WHERE course_id = ? AND id = ?"
	if err := repo.get(ctx, exe, &row, q, courseID, id); err != nil {
		return course.Project{}, repo.trapNoRowsErr(err, "finding project")
	}
	comps, err := repo.components(ctx, exe, courseID, id)
	if err != nil {
		return course.Project{}, err
	}
	return course.Project{ID: row.ID, Name: row.Name, Deadline: row.Deadline.UTC(), Components: comps[row.ID]}, nil
}

func (repo projectRepository) QueryProjects(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Project, error) {
	exe := repo.getExec(exec)

	var rows []projectRow
	q := "SELECT id, name, deadline FROM project WHERE course_id = ? ORDER BY deadline, id"
	if err := repo.sel(ctx, exe, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying projects")
	}
	comps, err := repo.components(ctx, exe, courseID)
	if err != nil {
		return nil, err
	}
	projects := make([]course.Project, 0, len(rows))
	for _, r := range rows {
		projects = append(projects, course.Project{ID: r.ID, Name: r.Name, Deadline: r.Deadline.UTC(), Components: comps[r.ID]})
	}
	return projects, nil
}

// UpdateOrCreateProject saves a project and replaces its grade components.
func (repo projectRepository) UpdateOrCreateProject(ctx context.Context, courseID string, p course.Project, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)

	_, err := repo.run(ctx, exe,
		`INSERT INTO project (course_id, id, name, deadline) VALUES (?, ?, ?, ?)
		ON CONFLICT (course_id, id) DO UPDATE SET name = excluded.name, deadline = excluded.deadline`,
		courseID, p.ID, p.Name, p.Deadline.UTC())
	if err != nil {
		return errors.Wrap(err, "saving project")
	}

	if _, err = repo.run(ctx, exe, "DELETE FROM grade_component WHERE course_id = ? AND project_id = ?", courseID, p.ID); err != nil {
		return errors.Wrap(err, "clearing grade components")
	}
	for i, gc := range p.Components {
		_, err = repo.run(ctx, exe,
			"INSERT INTO grade_component (course_id, project_id, name, points, position) VALUES (?, ?, ?, ?, ?)",
			courseID, p.ID, gc.Name, gc.Points, i)
		if err != nil {
			return errors.Wrap(err, "saving grade component")
		}
	}
	return nil
}
