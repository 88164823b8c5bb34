package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
	testutil "github.com/trezcool/gradebook/tests"
)

const courseID = testutil.CourseID

func TestCourseRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repos := testutil.NewRepositories(db)
	ctx := context.Background()

	_, err := repos.Courses.GetCourse(ctx, courseID)
	assert.Equal(t, course.ErrNotFound, err)

	testutil.CreateCourse(t, repos, courseID)
	require.NoError(t, repos.Courses.UpdateOrCreateCourse(ctx, course.Course{ID: courseID, Name: "Networks"}))
	testutil.CreateCourse(t, repos, "cmsc12100")

	c, err := repos.Courses.GetCourse(ctx, courseID)
	require.NoError(t, err)
	assert.Equal(t, course.Course{ID: courseID, Name: "Networks"}, c)

	courses, err := repos.Courses.QueryCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "cmsc12100", courses[0].ID)
}

func TestPersonRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repos := testutil.NewRepositories(db)
	ctx := context.Background()
	testutil.CreateCourse(t, repos, courseID)

	p := course.Person{ID: "jdoe", FirstName: "Jane", LastName: "Doerty", Email: "jane@example.com", GitServerID: "jdoe-git"}
	require.NoError(t, repos.People.UpdateOrCreatePerson(ctx, p))

	got, err := repos.People.GetPerson(ctx, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	p.GitServerID = ""
	p.LastName = "Doughty"
	require.NoError(t, repos.People.UpdateOrCreatePerson(ctx, p))
	got, err = repos.People.GetPerson(ctx, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = repos.People.GetPerson(ctx, "nobody")
	assert.Equal(t, course.ErrNotFound, err)

	// enrollments
	require.NoError(t, repos.People.AddStudent(ctx, courseID, "jdoe", false))
	require.NoError(t, repos.People.AddStudent(ctx, courseID, "jdoe", true))
	students, err := repos.People.QueryStudents(ctx, courseID)
	require.NoError(t, err)
	assert.Equal(t, []course.Student{{Person: p, Dropped: true}}, students)

	testutil.CreatePerson(t, repos, "prof", "Pro", "Fessor")
	require.NoError(t, repos.People.AddInstructor(ctx, courseID, "prof"))
	require.NoError(t, repos.People.AddInstructor(ctx, courseID, "prof"))
	instructors, err := repos.People.QueryInstructors(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, instructors, 1)
	assert.Equal(t, "prof", instructors[0].ID)

	testutil.CreateGrader(t, repos, courseID, "ta2")
	testutil.CreateGrader(t, repos, courseID, "ta1")
	require.NoError(t, repos.People.AddGrader(ctx, courseID, "ta1"))
	graders, err := repos.Graders.QueryGraders(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, graders, 2)
	assert.Equal(t, "ta1", graders[0].ID)
	assert.Equal(t, "ta2", graders[1].ID)

	g, err := repos.Graders.GetGrader(ctx, courseID, "ta2")
	require.NoError(t, err)
	assert.Equal(t, "ta2@example.com", g.Email)

	// a person who is not a grader of the course
	_, err = repos.Graders.GetGrader(ctx, courseID, "jdoe")
	assert.Equal(t, course.ErrNotFound, err)
}

func TestProjectRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repos := testutil.NewRepositories(db)
	ctx := context.Background()
	testutil.CreateCourse(t, repos, courseID)

	later := testutil.CreateProject(t, repos, courseID, "p2", testutil.Deadline.AddDate(0, 0, 7))
	p := testutil.CreateProject(t, repos, courseID, "p1", testutil.Deadline,
		course.GradeComponent{Name: "Tests", Points: 50},
		course.GradeComponent{Name: "Design", Points: 25.5})

	got, err := repos.Projects.GetProject(ctx, courseID, "p1")
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.True(t, p.Deadline.Equal(got.Deadline))
	assert.Equal(t, p.Components, got.Components)
	assert.Equal(t, 75.5, got.MaxPoints())

	// components are replaced
	p.Components = []course.GradeComponent{{Name: "Code", Points: 100}}
	require.NoError(t, repos.Projects.UpdateOrCreateProject(ctx, courseID, p))

	projects, err := repos.Projects.QueryProjects(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "p1", projects[0].ID)
	assert.Equal(t, p.Components, projects[0].Components)
	assert.Equal(t, later.ID, projects[1].ID)
	assert.Empty(t, projects[1].Components)

	_, err = repos.Projects.GetProject(ctx, courseID, "p3")
	assert.Equal(t, course.ErrNotFound, err)
	_, err = repos.Projects.GetProject(ctx, "other", "p1")
	assert.Equal(t, course.ErrNotFound, err)
}

func TestTeamRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repos := testutil.NewRepositories(db)
	ctx := context.Background()
	testutil.CreateCourse(t, repos, courseID)
	testutil.CreateProject(t, repos, courseID, "p1", testutil.Deadline, course.GradeComponent{Name: "Tests", Points: 50})
	testutil.CreateProject(t, repos, courseID, "p2", testutil.Deadline.AddDate(0, 0, 7))
	testutil.CreateStudent(t, repos, courseID, "amy", "Amy", "Anderson", false)
	testutil.CreateStudent(t, repos, courseID, "bob", "Bob", "Baxter", false)
	testutil.CreateGrader(t, repos, courseID, "ta1")

	testutil.CreateTeam(t, repos, courseID, "team-b", true, []string{"bob"}, "p1")
	testutil.CreateTeam(t, repos, courseID, "team-a", false, []string{"bob", "amy"}, "p1", "p2")

	team, err := repos.Teams.GetTeam(ctx, courseID, "team-a")
	require.NoError(t, err)
	assert.Equal(t, course.Team{ID: "team-a", Active: false, StudentIDs: []string{"amy", "bob"}}, team)

	_, err = repos.Teams.GetTeam(ctx, courseID, "team-c")
	assert.Equal(t, course.ErrNotFound, err)

	teams, err := repos.Teams.QueryTeams(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, "team-a", teams[0].ID)
	assert.Equal(t, []string{"bob"}, teams[1].StudentIDs)

	// graders
	err = repos.Teams.UpdateTeamProjectGraders(ctx, courseID, "p1", map[string]string{"team-a": "ta1", "team-b": "ta1"})
	require.NoError(t, err)
	err = repos.Teams.UpdateTeamProjectGraders(ctx, courseID, "p1", map[string]string{"team-b": ""})
	require.NoError(t, err)

	tps, err := repos.Teams.QueryTeamProjects(ctx, courseID, "p1")
	require.NoError(t, err)
	assert.Equal(t, []course.TeamProject{
		{TeamID: "team-a", ProjectID: "p1", GraderID: "ta1"},
		{TeamID: "team-b", ProjectID: "p1", GraderID: ""},
	}, tps)

	all, err := repos.Teams.QueryTeamProjects(ctx, courseID, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	err = repos.Teams.UpdateTeamProjectGraders(ctx, courseID, "p2", map[string]string{"team-b": "ta1"})
	assert.True(t, errors.Is(err, course.ErrNotRegistered))

	// grades & penalties
	grade := course.Grade{TeamID: "team-a", ProjectID: "p1", Component: "Tests", Points: 42.5}
	require.NoError(t, repos.Teams.SetGrade(ctx, courseID, grade))
	penalty := course.Penalty{
		ID: "5f1b8e5e-8f5e-4b8e-9a43-3f1f7a1f0b11", TeamID: "team-a", ProjectID: "p1",
		Description: "late", Points: -5, CreatedAt: time.Date(2014, 1, 21, 10, 0, 0, 0, time.UTC),
	}
	_, err = repos.Teams.AddPenalty(ctx, courseID, penalty)
	require.NoError(t, err)

	grades, err := repos.Teams.QueryGrades(ctx, courseID)
	require.NoError(t, err)
	assert.Equal(t, []course.Grade{grade}, grades)

	penalties, err := repos.Teams.QueryPenalties(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, penalties, 1)
	assert.Equal(t, penalty.Description, penalties[0].Description)
	assert.True(t, penalty.CreatedAt.Equal(penalties[0].CreatedAt))

	// registering again resets the registration
	require.NoError(t, repos.Teams.AddTeamProject(ctx, courseID, course.TeamProject{TeamID: "team-a", ProjectID: "p1"}))
	tps, err = repos.Teams.QueryTeamProjects(ctx, courseID, "p1")
	require.NoError(t, err)
	assert.Equal(t, "", tps[0].GraderID)
	grades, err = repos.Teams.QueryGrades(ctx, courseID)
	require.NoError(t, err)
	assert.Empty(t, grades)
	penalties, err = repos.Teams.QueryPenalties(ctx, courseID)
	require.NoError(t, err)
	assert.Empty(t, penalties)
}

func TestRunInTx_rollback(t *testing.T) {
	db := testutil.PrepareDB(t)
	repos := testutil.NewRepositories(db)
	ctx := context.Background()

	err := core.RunInTx(ctx, db, func(tx core.DBExecutor) error {
		if err := repos.Courses.UpdateOrCreateCourse(ctx, course.Course{ID: courseID, Name: "x"}, tx); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	_, err = repos.Courses.GetCourse(ctx, courseID)
	assert.Equal(t, course.ErrNotFound, err)
}
