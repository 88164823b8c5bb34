package sqlxrepos

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
)

type teamRepository struct {
	repository
}

var _ course.TeamRepository = (*teamRepository)(nil) // interface compliance check

func NewTeamRepository(exec core.DBExecutor) *teamRepository {
	return &teamRepository{repository{exec: exec}}
}

type (
	teamRow struct {
		ID     string `db:"id"`
		Active bool   `db:"active"`
	}

	teamStudentRow struct {
		TeamID    string `db:"team_id"`
		StudentID string `db:"student_id"`
	}

	teamProjectRow struct {
		TeamID    string      `db:"team_id"`
		ProjectID string      `db:"project_id"`
		GraderID  null.String `db:"grader_id"`
	}

	gradeRow struct {
		TeamID    string  `db:"team_id"`
		ProjectID string  `db:"project_id"`
		Component string  `db:"component"`
		Points    float64 `db:"points"`
	}

	penaltyRow struct {
		ID          string    `db:"id"`
		TeamID      string    `db:"team_id"`
		ProjectID   string    `db:"project_id"`
		Description string    `db:"description"`
		Points      float64   `db:"points"`
		CreatedAt   time.Time `db:"created_at"`
	}
)

func (repo teamRepository) students(ctx context.Context, exec core.DBExecutor, courseID string, teamID ...string) (map[string][]string, error) {
	var rows []teamStudentRow
	q := "SELECT team_id, student_id FROM team_student WHERE course_id = ?"
	args := []interface{}{courseID}
	if len(teamID) > 0 {
		q += " AND team_id = ?"
		args = append(args, teamID[0])
	}
	q += " ORDER BY team_id, student_id"
	if err := repo.sel(ctx, exec, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying team students")
	}
	members := make(map[string][]string)
	for _, r := range rows {
		members[r.TeamID] = append(members[r.TeamID], r.StudentID)
	}
	return members, nil
}

func (repo teamRepository) GetTeam(ctx context.Context, courseID, id string, exec ...core.DBExecutor) (course.Team, error) {
	exe := repo.getExec(exec)

	var row teamRow
	if err := repo.get(ctx, exe, &row, "SELECT id, active FROM team WHERE course_id = ? AND id = ?", courseID, id); err != nil {
		return course.Team{}, repo.trapNoRowsErr(err, "finding team")
	}
	members, err := repo.students(ctx, exe, courseID, id)
	if err != nil {
		return course.Team{}, err
	}
	return course.Team{ID: row.ID, Active: row.Active, StudentIDs: members[row.ID]}, nil
}

func (repo teamRepository) QueryTeams(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Team, error) {
	exe := repo.getExec(exec)

	var rows []teamRow
	if err := repo.sel(ctx, exe, &rows, "SELECT id, active FROM team WHERE course_id = ? ORDER BY id", courseID); err != nil {
		return nil, errors.Wrap(err, "querying teams")
	}
	members, err := repo.students(ctx, exe, courseID)
	if err != nil {
		return nil, err
	}
	teams := make([]course.Team, 0, len(rows))
	for _, r := range rows {
		teams = append(teams, course.Team{ID: r.ID, Active: r.Active, StudentIDs: members[r.ID]})
	}
	return teams, nil
}

// UpdateOrCreateTeam saves a team and replaces its students.
func (repo teamRepository) UpdateOrCreateTeam(ctx context.Context, courseID string, t course.Team, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)

	_, err := repo.run(ctx, exe,
		`INSERT INTO team (course_id, id, active) VALUES (?, ?, ?)
		ON CONFLICT (course_id, id) DO UPDATE SET active = excluded.active`,
		courseID, t.ID, t.Active)
	if err != nil {
		return errors.Wrap(err, "saving team")
	}

	if _, err = repo.run(ctx, exe, "DELETE FROM team_student WHERE course_id = ? AND team_id = ?", courseID, t.ID); err != nil {
		return errors.Wrap(err, "clearing team students")
	}
	for _, sid := range t.StudentIDs {
		_, err = repo.run(ctx, exe,
			"INSERT INTO team_student (course_id, team_id, student_id) VALUES (?, ?, ?) ON CONFLICT DO NOTHING",
			courseID, t.ID, sid)
		if err != nil {
			return errors.Wrap(err, "saving team student")
		}
	}
	return nil
}

func (repo teamRepository) QueryTeamProjects(ctx context.Context, courseID, projectID string, exec ...core.DBExecutor) ([]course.TeamProject, error) {
	var rows []teamProjectRow
	q := "SELECT team_id, project_id, grader_id FROM team_project WHERE course_id = ?"
	args := []interface{}{courseID}
	if projectID != "" {
		q += " AND project_id = ?"
		args = append(args, projectID)
	}
	q += " ORDER BY team_id, project_id"
	if err := repo.sel(ctx, repo.getExec(exec), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying team projects")
	}
	tps := make([]course.TeamProject, 0, len(rows))
	for _, r := range rows {
		tps = append(tps, course.TeamProject{TeamID: r.TeamID, ProjectID: r.ProjectID, GraderID: r.GraderID.String})
	}
	return tps, nil
}

func (repo teamRepository) AddTeamProject(ctx context.Context, courseID string, tp course.TeamProject, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	args := []interface{}{courseID, tp.TeamID, tp.ProjectID}

	if _, err := repo.run(ctx, exe, "DELETE FROM team_project_grade WHERE course_id = ? AND team_id = ? AND project_id = ?", args...); err != nil {
		return errors.Wrap(err, "clearing grades")
	}
	if _, err := repo.run(ctx, exe, "DELETE FROM team_project_penalty WHERE course_id = ? AND team_id = ? AND project_id = ?", args...); err != nil {
		return errors.Wrap(err, "clearing penalties")
	}
	_, err := repo.run(ctx, exe,
		`INSERT INTO team_project (course_id, team_id, project_id, grader_id) VALUES (?, ?, ?, ?)
		ON CONFLICT (course_id, team_id, project_id) DO UPDATE SET grader_id = excluded.grader_id`,
		courseID, tp.TeamID, tp.ProjectID, null.NewString(tp.GraderID, tp.GraderID != ""))
	return errors.Wrap(err, "registering team project")
}

func (repo teamRepository) UpdateTeamProjectGraders(ctx context.Context, courseID, projectID string, graders map[string]string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)

	teams := make([]string, 0, len(graders))
	for t := range graders {
		teams = append(teams, t)
	}
	sort.Strings(teams)

	for _, t := range teams {
		g := graders[t]
		res, err := repo.run(ctx, exe,
			"UPDATE team_project SET grader_id = ? WHERE course_id = ? AND project_id = ? AND team_id = ?",
			null.NewString(g, g != ""), courseID, projectID, t)
		if err != nil {
			return errors.Wrap(err, "updating grader")
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return errors.Wrapf(course.ErrNotRegistered, "team %s, project %s", t, projectID)
		}
	}
	return nil
}

func (repo teamRepository) SetGrade(ctx context.Context, courseID string, g course.Grade, exec ...core.DBExecutor) error {
	_, err := repo.run(ctx, repo.getExec(exec),
		`INSERT INTO team_project_grade (course_id, team_id, project_id, component, points) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (course_id, team_id, project_id, component) DO UPDATE SET points = excluded.points`,
		courseID, g.TeamID, g.ProjectID, g.Component, g.Points)
	return errors.Wrap(err, "saving grade")
}

func (repo teamRepository) QueryGrades(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Grade, error) {
	var rows []gradeRow
	q := `SELECT team_id, project_id, component, points FROM team_project_grade
		WHERE course_id = ? ORDER BY team_id, project_id, component`
	if err := repo.sel(ctx, repo.getExec(exec), &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	grades := make([]course.Grade, 0, len(rows))
	for _, r := range rows {
		grades = append(grades, course.Grade(r))
	}
	return grades, nil
}

func (repo teamRepository) AddPenalty(ctx context.Context, courseID string, p course.Penalty, exec ...core.DBExecutor) (course.Penalty, error) {
	_, err := repo.run(ctx, repo.getExec(exec),
		`INSERT INTO team_project_penalty (id, course_id, team_id, project_id, description, points, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, courseID, p.TeamID, p.ProjectID, p.Description, p.Points, p.CreatedAt.UTC())
	if err != nil {
		return course.Penalty{}, errors.Wrap(err, "saving penalty")
	}
	return p, nil
}

func (repo teamRepository) QueryPenalties(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Penalty, error) {
	var rows []penaltyRow
	q := `SELECT id, team_id, project_id, description, points, created_at FROM team_project_penalty
		WHERE course_id = ? ORDER BY team_id, project_id, created_at`
	if err := repo.sel(ctx, repo.getExec(exec), &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying penalties")
	}
	penalties := make([]course.Penalty, 0, len(rows))
	for _, r := range rows {
		penalties = append(penalties, course.Penalty{
			ID:          r.ID,
			TeamID:      r.TeamID,
			ProjectID:   r.ProjectID,
			Description: r.Description,
			Points:      r.Points,
			CreatedAt:   r.CreatedAt.UTC(),
		})
	}
	return penalties, nil
}
