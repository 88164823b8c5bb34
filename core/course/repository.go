package course

import (
	"context"

	"github.com/trezcool/gradebook/core"
)

// Every repository method runs against the repository's own DB unless an executor
// (usually a transaction) is passed as the last argument.
type (
	CourseRepository interface {
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		QueryCourses(ctx context.Context, exec ...core.DBExecutor) ([]Course, error)
		UpdateOrCreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) error
	}

	PersonRepository interface {
		GetPerson(ctx context.Context, id string, exec ...core.DBExecutor) (Person, error)
		UpdateOrCreatePerson(ctx context.Context, p Person, exec ...core.DBExecutor) error
		// AddStudent enrolls a person in the course, updating the dropped status of an existing student.
		AddStudent(ctx context.Context, courseID, personID string, dropped bool, exec ...core.DBExecutor) error
		AddGrader(ctx context.Context, courseID, personID string, exec ...core.DBExecutor) error
		AddInstructor(ctx context.Context, courseID, personID string, exec ...core.DBExecutor) error
		QueryStudents(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Student, error)
		QueryInstructors(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Instructor, error)
	}

	GraderRepository interface {
		// QueryGraders returns the graders of the course ordered by ID.
		QueryGraders(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Grader, error)
		GetGrader(ctx context.Context, courseID, id string, exec ...core.DBExecutor) (Grader, error)
	}

	ProjectRepository interface {
		GetProject(ctx context.Context, courseID, id string, exec ...core.DBExecutor) (Project, error)
		// QueryProjects returns the projects of the course ordered by deadline, then ID.
		QueryProjects(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Project, error)
		UpdateOrCreateProject(ctx context.Context, courseID string, p Project, exec ...core.DBExecutor) error
	}

	TeamRepository interface {
		GetTeam(ctx context.Context, courseID, id string, exec ...core.DBExecutor) (Team, error)
		// QueryTeams returns the teams of the course ordered by ID, with their students.
		QueryTeams(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Team, error)
		UpdateOrCreateTeam(ctx context.Context, courseID string, t Team, exec ...core.DBExecutor) error

		// QueryTeamProjects returns the registrations of a project ordered by team ID.
		// An empty projectID returns the registrations of every project.
		QueryTeamProjects(ctx context.Context, courseID, projectID string, exec ...core.DBExecutor) ([]TeamProject, error)
		// AddTeamProject registers a team for a project. An existing registration is reset:
		// its grader, grades and penalties are cleared.
		AddTeamProject(ctx context.Context, courseID string, tp TeamProject, exec ...core.DBExecutor) error
		// UpdateTeamProjectGraders sets the grader of each {team: grader} registration of the project.
		// An empty grader clears the assignment.
		UpdateTeamProjectGraders(ctx context.Context, courseID, projectID string, graders map[string]string, exec ...core.DBExecutor) error

		SetGrade(ctx context.Context, courseID string, g Grade, exec ...core.DBExecutor) error
		QueryGrades(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Grade, error)
		AddPenalty(ctx context.Context, courseID string, p Penalty, exec ...core.DBExecutor) (Penalty, error)
		QueryPenalties(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Penalty, error)
	}
)
