package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
)

const personColumns = "p.id, p.first_name, p.last_name, p.email, p.git_server_id, p.git_staging_server_id"

// personRepository serves both people and graders.
type personRepository struct {
	repository
}

var (
	_ course.PersonRepository = (*personRepository)(nil) // interface compliance check
	_ course.GraderRepository = (*personRepository)(nil)
)

func NewPersonRepository(exec core.DBExecutor) *personRepository {
	return &personRepository{repository{exec: exec}}
}

type personRow struct {
	ID                 string      `db:"id"`
	FirstName          string      `db:"first_name"`
	LastName           string      `db:"last_name"`
	Email              string      `db:"email"`
	GitServerID        null.String `db:"git_server_id"`
	GitStagingServerID null.String `db:"git_staging_server_id"`
	Dropped            bool        `db:"dropped"`
}

func (row personRow) person() course.Person {
	return course.Person{
		ID:                 row.ID,
		FirstName:          row.FirstName,
		LastName:           row.LastName,
		Email:              row.Email,
		GitServerID:        row.GitServerID.String,
		GitStagingServerID: row.GitStagingServerID.String,
	}
}

func (repo personRepository) GetPerson(ctx context.Context, id string, exec ...core.DBExecutor) (course.Person, error) {
	var row personRow
	q := "SELECT " + personColumns + " FROM person p WHERE p.id = ?"
	if err := repo.get(ctx, repo.getExec(exec), &row, q, id); err != nil {
		return course.Person{}, repo.trapNoRowsErr(err, "finding person")
	}
	return row.person(), nil
}

func (repo personRepository) UpdateOrCreatePerson(ctx context.Context, p course.Person, exec ...core.DBExecutor) error {
	_, err := repo.run(ctx, repo.getExec(exec),
		`INSERT INTO person (id, first_name, last_name, email, git_server_id, git_staging_server_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			email = excluded.email,
			git_server_id = excluded.git_server_id,
			git_staging_server_id = excluded.git_staging_server_id`,
		p.ID, p.FirstName, p.LastName, p.Email,
		null.NewString(p.GitServerID, p.GitServerID != ""),
		null.NewString(p.GitStagingServerID, p.GitStagingServerID != ""),
	)
	return errors.Wrap(err, "saving person")
}

func (repo personRepository) AddStudent(ctx context.Context, courseID, personID string, dropped bool, exec ...core.DBExecutor) error {
	_, err := repo.run(ctx, repo.getExec(exec),
		`INSERT INTO course_student (course_id, person_id, dropped) VALUES (?, ?, ?)
		ON CONFLICT (course_id, person_id) DO UPDATE SET dropped = excluded.dropped`,
		courseID, personID, dropped)
	return errors.Wrap(err, "adding student")
}

func (repo personRepository) AddGrader(ctx context.Context, courseID, personID string, exec ...core.DBExecutor) error {
	_, err := repo.run(ctx, repo.getExec(exec),
		"INSERT INTO course_grader (course_id, person_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
		courseID, personID)
	return errors.Wrap(err, "adding grader")
}

func (repo personRepository) AddInstructor(ctx context.Context, courseID, personID string, exec ...core.DBExecutor) error {
	_, err := repo.run(ctx, repo.getExec(exec),
		"INSERT INTO course_instructor (course_id, person_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
		courseID, personID)
	return errors.Wrap(err, "adding instructor")
}

func (repo personRepository) QueryStudents(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Student, error) {
	var rows []personRow
	q := "SELECT " + personColumns + `, cs.dropped FROM person p
		JOIN course_student cs ON cs.person_id = p.id
		WHERE cs.course_id = ? ORDER BY p.id`
	if err := repo.sel(ctx, repo.getExec(exec), &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]course.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, course.Student{Person: r.person(), Dropped: r.Dropped})
	}
	return students, nil
}

func (repo personRepository) QueryInstructors(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Instructor, error) {
	var rows []personRow
	q := "SELECT " + personColumns + ` FROM person p
		JOIN course_instructor ci ON ci.person_id = p.id
		WHERE ci.course_id = ? ORDER BY p.id`
	if err := repo.sel(ctx, repo.getExec(exec), &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying instructors")
	}
	instructors := make([]course.Instructor, 0, len(rows))
	for _, r := range rows {
		instructors = append(instructors, course.Instructor{Person: r.person()})
	}
	return instructors, nil
}

func (repo personRepository) QueryGraders(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Grader, error) {
	var rows []personRow
	q := "SELECT " + personColumns + ` FROM person p
		JOIN course_grader cg ON cg.person_id = p.id
		WHERE cg.course_id = ? ORDER BY p.id`
	if err := repo.sel(ctx, repo.getExec(exec), &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying graders")
	}
	graders := make([]course.Grader, 0, len(rows))
	for _, r := range rows {
		graders = append(graders, course.Grader{Person: r.person()})
	}
	return graders, nil
}

func (repo personRepository) GetGrader(ctx context.Context, courseID, id string, exec ...core.DBExecutor) (course.Grader, error) {
	var row personRow
	q := "SELECT " + personColumns + ` FROM person p
		JOIN course_grader cg ON cg.person_id = p.id
		WHERE cg.course_id = ? AND p.id = ?`
	if err := repo.get(ctx, repo.getExec(exec), &row, q, courseID, id); err != nil {
		return course.Grader{}, repo.trapNoRowsErr(err, "finding grader")
	}
	return course.Grader{Person: row.person()}, nil
}
