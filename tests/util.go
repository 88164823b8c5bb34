package testutil

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
	appfs "github.com/trezcool/gradebook/fs"
	emailsvc "github.com/trezcool/gradebook/services/email"
	logsvc "github.com/trezcool/gradebook/services/logger"
	"github.com/trezcool/gradebook/storage/database"
	sqlxrepos "github.com/trezcool/gradebook/storage/database/sqlx"
)

const CourseID = "cmsc23300"

// Deadline is the deadline of the first fixture project; later ones are a week apart.
var Deadline = time.Date(2014, time.January, 20, 17, 0, 0, 0, time.UTC)

func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "Gradebook",
		DefaultFromEmail: mail.Address{Name: "Gradebook", Address: "noreply@example.com"},
		Database:         core.DatabaseConfig{Engine: database.EngineSQLite, Path: database.MemoryPath},
		Grading:          core.GradingConfig{Seed: 1},
	}
}

// PrepareDB opens a migrated in-memory database, closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Open(NewConfig())
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func NewRepositories(db *sqlx.DB) course.Repositories {
	people := sqlxrepos.NewPersonRepository(db)
	return course.Repositories{
		Courses:  sqlxrepos.NewCourseRepository(db),
		People:   people,
		Graders:  people,
		Projects: sqlxrepos.NewProjectRepository(db),
		Teams:    sqlxrepos.NewTeamRepository(db),
	}
}

// NewService returns a course service backed by `db`, sending emails through a mock.
func NewService(db *sqlx.DB) (*course.Service, *emailsvc.ConsoleServiceMock) {
	conf := NewConfig()
	logger := logsvc.NewNopLogger()
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, true, logger)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	translator := core.NewTranslator()
	svc := course.NewService(db, NewRepositories(db), mailSvc, logger, conf, core.NewValidator(translator), translator)
	return svc, mailSvc
}

func CreateCourse(t *testing.T, repos course.Repositories, id string) course.Course {
	t.Helper()
	c := course.Course{ID: id, Name: "Course " + id}
	if err := repos.Courses.UpdateOrCreateCourse(context.Background(), c); err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

func CreatePerson(t *testing.T, repos course.Repositories, id, firstName, lastName string) course.Person {
	t.Helper()
	p := course.Person{ID: id, FirstName: firstName, LastName: lastName, Email: id + "@example.com"}
	if err := repos.People.UpdateOrCreatePerson(context.Background(), p); err != nil {
		t.Fatalf("CreatePerson() failed: %v", err)
	}
	return p
}

func CreateGrader(t *testing.T, repos course.Repositories, courseID, id string) course.Grader {
	t.Helper()
	p := CreatePerson(t, repos, id, "Grader", id)
	if err := repos.People.AddGrader(context.Background(), courseID, id); err != nil {
		t.Fatalf("CreateGrader() failed: %v", err)
	}
	return course.Grader{Person: p}
}

func CreateStudent(t *testing.T, repos course.Repositories, courseID, id, firstName, lastName string, dropped bool) course.Student {
	t.Helper()
	p := CreatePerson(t, repos, id, firstName, lastName)
	if err := repos.People.AddStudent(context.Background(), courseID, id, dropped); err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return course.Student{Person: p, Dropped: dropped}
}

func CreateProject(t *testing.T, repos course.Repositories, courseID, id string, deadline time.Time, components ...course.GradeComponent) course.Project {
	t.Helper()
	p := course.Project{ID: id, Name: "Project " + id, Deadline: deadline, Components: components}
	if err := repos.Projects.UpdateOrCreateProject(context.Background(), courseID, p); err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}
	return p
}

// CreateTeam creates a team and registers it for `projectIDs`.
func CreateTeam(t *testing.T, repos course.Repositories, courseID, id string, active bool, studentIDs []string, projectIDs ...string) course.Team {
	t.Helper()
	ctx := context.Background()
	team := course.Team{ID: id, Active: active, StudentIDs: studentIDs}
	if err := repos.Teams.UpdateOrCreateTeam(ctx, courseID, team); err != nil {
		t.Fatalf("CreateTeam() failed: %v", err)
	}
	for _, pid := range projectIDs {
		if err := repos.Teams.AddTeamProject(ctx, courseID, course.TeamProject{TeamID: id, ProjectID: pid}); err != nil {
			t.Fatalf("CreateTeam() failed: %v", err)
		}
	}
	return team
}

// SetGrader assigns a grader to a team's project.
func SetGrader(t *testing.T, repos course.Repositories, courseID, projectID, teamID, graderID string) {
	t.Helper()
	err := repos.Teams.UpdateTeamProjectGraders(context.Background(), courseID, projectID, map[string]string{teamID: graderID})
	if err != nil {
		t.Fatalf("SetGrader() failed: %v", err)
	}
}

// GraderAssignments returns the {team: grader} registrations of a project.
func GraderAssignments(t *testing.T, repos course.Repositories, courseID, projectID string) map[string]string {
	t.Helper()
	tps, err := repos.Teams.QueryTeamProjects(context.Background(), courseID, projectID)
	if err != nil {
		t.Fatalf("GraderAssignments() failed: %v", err)
	}
	assignments := make(map[string]string, len(tps))
	for _, tp := range tps {
		assignments[tp.TeamID] = tp.GraderID
	}
	return assignments
}
