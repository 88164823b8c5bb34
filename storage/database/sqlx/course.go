package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
)

type courseRepository struct {
	repository
}

var _ course.CourseRepository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{repository{exec: exec}}
}

type courseRow struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

func (repo courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	var row courseRow
	if err := repo.get(ctx, repo.getExec(exec), &row, "SELECT id, name FROM course WHERE id = ?", id); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "finding course")
	}
	return course.Course(row), nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, exec ...core.DBExecutor) ([]course.Course, error) {
	var rows []courseRow
	if err := repo.sel(ctx, repo.getExec(exec), &rows, "SELECT id, name FROM course ORDER BY id"); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, course.Course(r))
	}
	return courses, nil
}

func (repo courseRepository) UpdateOrCreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) error {
	_, err := repo.run(ctx, repo.getExec(exec),
		`INSERT INTO course (id, name) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		c.ID, c.Name)
	return errors.Wrap(err, "saving course")
}
